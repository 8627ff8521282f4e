package cmd

import (
	"encoding/json"
	"log"

	"github.com/spigell/fit-judge/internal/jobstore"
	"github.com/spigell/fit-judge/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print stored verdicts grouped by match level, without touching the backend",
	Run: func(_ *cobra.Command, _ []string) {
		report()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func report() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.JobsDir == "" {
		logger.Fatal("jobs directory is required under jobs-dir")
	}

	store, err := jobstore.New(config.JobsDir, logger)
	if err != nil {
		logger.Fatal("opening the job store", zap.Error(err))
	}

	jobs, err := store.List()
	if err != nil {
		logger.Fatal("reading the job store", zap.Error(err))
	}

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no job records found"))
		return
	}

	pretty, _ := json.MarshalIndent(jobs.ReportByVerdict(), "", "  ")
	logger.Info(string(pretty), zap.Int("jobs count", jobs.Len()))
}
