package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spigell/fit-judge/internal/ai"
	"github.com/spigell/fit-judge/internal/ai/gemini"
	"github.com/spigell/fit-judge/internal/ai/ollama"
	"github.com/spigell/fit-judge/internal/audit"
	"github.com/spigell/fit-judge/internal/cv"
	"github.com/spigell/fit-judge/internal/evaluation"
	"github.com/spigell/fit-judge/internal/filtering"
	"github.com/spigell/fit-judge/internal/jobstore"
	"github.com/spigell/fit-judge/internal/logger"
	"github.com/spigell/fit-judge/internal/retry"
	"github.com/spigell/fit-judge/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes             = "Yes"
	PromptNo              = "No"
	PromptReportByVerdict = "Report by verdict"
	PromptResultsToFile   = "Dump results to file"
	PromptExit            = "Exit"

	defaultJobTimeout  = 10 * time.Minute
	defaultAuditDir    = "audit"
	defaultOllamaModel = "llama3.1:8b"
)

var errExit = errors.New("exit requested")

var confirmPrompt = promptui.Select{
	Label: "Evaluate these jobs?",
	Items: []string{PromptYes, PromptNo},
}

var afterBatchPrompt = promptui.Select{
	Label: "Batch finished",
	Items: []string{PromptReportByVerdict, PromptResultsToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate pending jobs against the configured CV",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("re-evaluate", "r", false, "evaluate jobs even if they already carry results")
	runCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before evaluating")
	runCmd.Flags().StringArray("job", nil, "evaluate only the given job id (repeatable)")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the fit-judge", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.CVFile == "" {
		logger.Fatal("cv file is required under cv-file to evaluate jobs")
	}

	if config.JobsDir == "" {
		logger.Fatal("jobs directory is required under jobs-dir")
	}

	cvText, err := cv.Load(config.CVFile)
	if err != nil {
		logger.Fatal("loading the cv", zap.Error(err))
	}

	logger.Info("loaded the cv", zap.String("path", config.CVFile), zap.Int("chars", len(cvText)))

	store, err := jobstore.New(config.JobsDir, logger)
	if err != nil {
		logger.Fatal("opening the job store", zap.Error(err))
	}

	jobs, err := store.List()
	if err != nil {
		logger.Fatal("reading the job store", zap.Error(err))
	}

	logger.Info("reading job records", zap.Int("count", jobs.Len()))

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no job records found"))
		return
	}

	jobs, err = applyFilters(ctx, cmd, jobs, logger)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	generator, provider, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the ai generator", zap.Error(err))
	}

	auditDir := config.AuditDir
	if auditDir == "" {
		auditDir = defaultAuditDir
	}

	sink, err := audit.NewWriter(auditDir)
	if err != nil {
		logger.Fatal("preparing the audit directory", zap.Error(err))
	}

	evalCfg := evaluation.Config{Provider: provider}
	if config.Evaluation != nil {
		evalCfg.Runs = config.Evaluation.Runs
		evalCfg.ParseAttempts = config.Evaluation.ParseAttempts
		evalCfg.RunDelayMin = config.Evaluation.RunDelayMin
		evalCfg.RunDelayMax = config.Evaluation.RunDelayMax
	}

	engine := evaluation.NewEngine(generator, store, sink, logger, evalCfg)

	logger.Info("jobs selected for evaluation",
		zap.Int("count", jobs.Len()),
		zap.String("provider", provider),
		zap.String("model", generator.Model()),
	)

	if cmd.Flag("yes").Value.String() == "false" {
		_, action, err := confirmPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	timeout := defaultJobTimeout
	if config.Evaluation != nil && config.Evaluation.JobTimeout > 0 {
		timeout = config.Evaluation.JobTimeout
	}

	summary := evaluateJobs(ctx, engine, jobs, cvText, config.DomainRequirements, timeout, logger)

	logger.Info("batch finished", summary.fields()...)

	// The menu is for humans; with --yes the summary above is the whole story.
	if cmd.Flag("yes").Value.String() == "true" {
		return
	}

	for {
		_, action, err := afterBatchPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, store, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func applyFilters(ctx context.Context, cmd *cobra.Command, jobs *jobstore.Jobs, logger *zap.Logger) (*jobstore.Jobs, error) {
	requested, err := cmd.Flags().GetStringArray("job")
	if err != nil {
		return nil, fmt.Errorf("reading job flags: %w", err)
	}

	steps := []filtering.Filter{
		filtering.NewRequestedIDs(),
		filtering.NewEvaluated(cmd),
		filtering.NewEmptyDescription(),
	}

	if viper.GetBool("debug") {
		for _, status := range filtering.Describe(steps) {
			logger.Debug("filter configured",
				zap.String("name", status.Name),
				zap.Bool("enabled", status.Enabled),
				zap.Any("details", status.Details),
			)
		}
	}

	cfg := &filtering.Config{IDs: requested}

	return filtering.Run(ctx, cfg, filtering.Deps{Logger: logger}, steps, jobs)
}

type batchSummary struct {
	counts   map[evaluation.MatchLevel]int
	unknown  []string
	failures []string
}

func (s *batchSummary) fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("good", s.counts[evaluation.MatchGood]),
		zap.Int("moderate", s.counts[evaluation.MatchModerate]),
		zap.Int("low", s.counts[evaluation.MatchLow]),
	}
	if len(s.unknown) > 0 {
		fields = append(fields, zap.Strings("needs_re_evaluation", s.unknown))
	}
	if len(s.failures) > 0 {
		fields = append(fields, zap.Strings("failed_jobs", s.failures))
	}
	return fields
}

// evaluateJobs walks the worklist strictly one job at a time. A failed job is
// reported and skipped; the batch carries on.
func evaluateJobs(ctx context.Context, engine *evaluation.Engine, jobs *jobstore.Jobs, cvText string, requirements []string, timeout time.Duration, logger *zap.Logger) *batchSummary {
	summary := &batchSummary{counts: make(map[evaluation.MatchLevel]int)}

	for i, record := range jobs.Items {
		logger.Info("evaluating job",
			zap.String("job_id", record.ID),
			zap.String("title", record.Title),
			zap.Int("position", i+1),
			zap.Int("total", jobs.Len()),
		)

		req := &evaluation.Request{
			JobID:              record.ID,
			JobDescription:     record.Description,
			CV:                 cvText,
			DomainRequirements: mergeRequirements(requirements, record.DomainRequirements),
		}

		jobCtx, cancel := context.WithTimeout(ctx, timeout)
		verdict, err := engine.Evaluate(jobCtx, req)
		cancel()

		if err != nil {
			logger.Error("job evaluation failed", zap.String("job_id", record.ID), zap.Error(err))
			summary.failures = append(summary.failures, record.ID)
			continue
		}

		summary.counts[verdict.Level]++
		if verdict.Level == evaluation.MatchUnknown {
			summary.unknown = append(summary.unknown, record.ID)
		}
	}

	return summary
}

func mergeRequirements(global, perRecord []string) []string {
	merged := make([]string, 0, len(global)+len(perRecord))
	merged = append(merged, global...)
	merged = append(merged, perRecord...)
	return merged
}

func handleAction(action string, store *jobstore.Store, logger *zap.Logger) error {
	switch action {
	case PromptReportByVerdict:
		jobs, err := store.List()
		if err != nil {
			return fmt.Errorf("reading the job store: %w", err)
		}
		pretty, _ := json.MarshalIndent(jobs.ReportByVerdict(), "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", jobs.Len()))
		return nil
	case PromptResultsToFile:
		jobs, err := store.List()
		if err != nil {
			return fmt.Errorf("reading the job store: %w", err)
		}
		filename, err := jobs.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "exit selected"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// newGenerator selects and builds the text generation backend.
func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.TextGenerator, string, error) {
	provider := "ollama"
	if cfg != nil {
		if p := strings.TrimSpace(strings.ToLower(cfg.Provider)); p != "" {
			provider = p
		}
	}

	policy := retry.DefaultPolicy()
	if cfg != nil && cfg.Retry != nil {
		if cfg.Retry.MaxAttempts > 0 {
			policy.MaxAttempts = cfg.Retry.MaxAttempts
		}
		if cfg.Retry.BaseDelay > 0 {
			policy.BaseDelay = cfg.Retry.BaseDelay
		}
		if cfg.Retry.MaxDelay > 0 {
			policy.MaxDelay = cfg.Retry.MaxDelay
		}
	}

	switch provider {
	case "ollama":
		ollamaCfg := &OllamaConfig{}
		if cfg != nil && cfg.Ollama != nil {
			ollamaCfg = cfg.Ollama
		}

		model := ollamaCfg.Model
		if model == "" {
			model = defaultOllamaModel
		}

		generator, err := ollama.NewGenerator(
			ollamaCfg.URL,
			model,
			ollamaCfg.Timeout,
			policy,
			logger.WithCommonFields(log, provider, model),
		)
		if err != nil {
			return nil, provider, err
		}
		return generator, provider, nil

	case "gemini":
		if cfg == nil || cfg.Gemini == nil {
			return nil, provider, fmt.Errorf("gemini configuration is required when the gemini provider is selected")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			Env:   "GEMINI_API_KEY",
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, provider, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		generator, err := gemini.NewGenerator(
			ctx,
			apiKey,
			cfg.Gemini.Model,
			policy,
			logger.WithCommonFields(log, provider, cfg.Gemini.Model),
		)
		if err != nil {
			return nil, provider, err
		}
		return generator, provider, nil

	default:
		return nil, provider, fmt.Errorf("unsupported ai provider: %s", provider)
	}
}
