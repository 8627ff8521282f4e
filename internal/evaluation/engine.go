package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/fit-judge/internal/ai"
	"github.com/spigell/fit-judge/internal/audit"
	"github.com/spigell/fit-judge/internal/jobstore"
	"github.com/spigell/fit-judge/internal/logger"
	"github.com/spigell/fit-judge/internal/utils"
)

const (
	DefaultRuns          = 3
	DefaultParseAttempts = 3
	DefaultRunDelayMin   = time.Second
	DefaultRunDelayMax   = 2 * time.Second

	rawPreviewLimit = 600
)

// VerdictStore persists the consensus verdict into the job record.
type VerdictStore interface {
	SaveEvaluation(id string, results *jobstore.EvaluationResults) error
}

// AuditSink records every model run, parsed or not.
type AuditSink interface {
	Write(entry *audit.Entry) error
}

// Config bounds one engine: how many runs per job, how many completions a run
// may burn on unparseable output, and how long to pause between runs.
type Config struct {
	Provider      string
	Runs          int
	ParseAttempts int
	RunDelayMin   time.Duration
	RunDelayMax   time.Duration
}

// Engine evaluates one job at a time: N sequential model runs over the same
// prompt, per-run parsing with bounded retries, consensus reduction, then
// persistence. Runs are paced with a jittered delay to avoid hammering the
// backend and to decorrelate sampling.
type Engine struct {
	generator ai.TextGenerator
	store     VerdictStore
	audit     AuditSink
	logger    *zap.Logger

	provider      string
	runs          int
	parseAttempts int
	delayMin      time.Duration
	delayMax      time.Duration
}

func NewEngine(generator ai.TextGenerator, store VerdictStore, sink AuditSink, log *zap.Logger, cfg Config) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	runs := cfg.Runs
	if runs <= 0 {
		runs = DefaultRuns
	}
	parseAttempts := cfg.ParseAttempts
	if parseAttempts <= 0 {
		parseAttempts = DefaultParseAttempts
	}
	delayMin := cfg.RunDelayMin
	if delayMin < 0 {
		delayMin = DefaultRunDelayMin
	}
	delayMax := cfg.RunDelayMax
	if delayMax <= 0 {
		delayMax = DefaultRunDelayMax
	}

	return &Engine{
		generator:     generator,
		store:         store,
		audit:         sink,
		logger:        log,
		provider:      cfg.Provider,
		runs:          runs,
		parseAttempts: parseAttempts,
		delayMin:      delayMin,
		delayMax:      delayMax,
	}
}

// Evaluate runs the full consensus evaluation for one job. The verdict is
// persisted unless it is Unknown; every run is audited either way. A context
// deadline stops new runs and reduces whatever completed. The returned error
// is non-nil only for invalid requests and persistence failures; model and
// parse failures degrade individual runs instead.
func (e *Engine) Evaluate(ctx context.Context, req *Request) (*Verdict, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation request: %w", err)
	}

	runs := req.Runs
	if runs <= 0 {
		runs = e.runs
	}

	prompt := BuildPrompt(req)
	evaluationID := uuid.NewString()

	log := e.logger.With(
		zap.String(logger.FieldJobID, req.JobID),
		zap.String(logger.FieldEvaluationID, evaluationID),
	)
	log.Info("starting evaluation", zap.Int("runs", runs), zap.Int("prompt_chars", len(prompt)))

	results := make([]*RunResult, 0, runs)
	for run := 1; run <= runs; run++ {
		if run > 1 {
			delay := utils.JitterBetween(e.delayMin, e.delayMax)
			if err := utils.WaitFor(ctx, delay); err != nil {
				log.Warn("evaluation deadline reached, reducing completed runs",
					zap.Int("completed", len(results)),
					zap.Error(err),
				)
				break
			}
		}

		result := e.executeRun(ctx, log, prompt, run, runs)
		results = append(results, result)
		e.writeAudit(log, evaluationID, req, result, runs)
	}

	verdict := Reduce(results)

	if verdict.Override {
		log.Info("no-go rationale found, forcing match level to Low",
			zap.Int("run", verdict.DecidingRun),
		)
	}

	fields := []zap.Field{
		zap.String("match_level", string(verdict.Level)),
		zap.Int("parsed_runs", verdict.ParsedRuns),
		zap.Int("failed_runs", verdict.FailedRuns),
	}

	if verdict.Level == MatchUnknown {
		log.Warn("no run produced a usable judgment, verdict not persisted", fields...)
		return verdict, nil
	}

	if err := e.store.SaveEvaluation(req.JobID, ResultsFromVerdict(verdict)); err != nil {
		return verdict, fmt.Errorf("persist evaluation for job %s: %w", req.JobID, err)
	}

	log.Info("evaluation finished", fields...)
	return verdict, nil
}

// executeRun obtains one parseable sample. Unparseable completions are
// retried with the same prompt up to the attempt budget; a backend failure
// ends the run immediately since the generator already retried transient
// errors internally.
func (e *Engine) executeRun(ctx context.Context, log *zap.Logger, prompt string, run, runs int) *RunResult {
	log.Info("starting run", zap.Int("run", run), zap.Int("runs", runs))

	var lastRaw string
	for attempt := 1; attempt <= e.parseAttempts; attempt++ {
		raw, err := e.generator.GenerateContent(ctx, prompt)
		if err != nil {
			log.Warn("model call failed, giving up on this run",
				zap.Int("run", run),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return &RunResult{Run: run, Level: MatchUnknown, Attempts: attempt, Err: err.Error(), Raw: lastRaw}
		}
		lastRaw = raw

		result, err := ParseRunResult(raw)
		if err == nil {
			result.Run = run
			result.Attempts = attempt
			log.Debug("run parsed",
				zap.Int("run", run),
				zap.Int("attempt", attempt),
				zap.String("match_level", string(result.Level)),
				zap.String("response_preview", logger.Preview(raw, rawPreviewLimit)),
			)
			return result
		}

		log.Warn("response not parseable, requesting a fresh completion",
			zap.Int("run", run),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.parseAttempts),
			zap.String("response_preview", logger.Preview(raw, rawPreviewLimit)),
		)
	}

	return &RunResult{Run: run, Level: MatchUnknown, Attempts: e.parseAttempts, ParseFailed: true, Raw: lastRaw}
}

// writeAudit records a run in the trail. Audit is evidence, not the verdict
// store: a failed write is logged and the evaluation continues.
func (e *Engine) writeAudit(log *zap.Logger, evaluationID string, req *Request, result *RunResult, runs int) {
	if e.audit == nil {
		return
	}

	model := req.Model
	if model == "" && e.generator != nil {
		model = e.generator.Model()
	}

	entry := &audit.Entry{
		EvaluationID:              evaluationID,
		JobID:                     req.JobID,
		Provider:                  e.provider,
		Model:                     model,
		Run:                       result.Run,
		Runs:                      runs,
		Attempts:                  result.Attempts,
		ParseFailed:               result.ParseFailed,
		MatchLevel:                string(result.Level),
		DomainKnowledgeAssessment: result.Assessment,
		NoGoRationale:             result.Rationale,
		ApplicationNarrative:      result.Narrative,
		LeftoverText:              result.Leftover,
		SectionsMalformed:         result.Malformed,
		Error:                     result.Err,
		RawResponse:               result.Raw,
		CreatedAt:                 time.Now().UTC(),
	}

	if err := e.audit.Write(entry); err != nil {
		log.Warn("audit write failed", zap.Int("run", result.Run), zap.Error(err))
	}
}

// ResultsFromVerdict converts a verdict into the record sub-section the store
// persists.
func ResultsFromVerdict(v *Verdict) *jobstore.EvaluationResults {
	return &jobstore.EvaluationResults{
		CVToRoleMatch:             string(v.Level),
		DomainKnowledgeAssessment: v.Assessment,
		NoGoRationale:             v.Rationale,
		ApplicationNarrative:      v.Narrative,
		EvaluationDate:            v.EvaluatedAt.Format(time.RFC3339),
	}
}
