package cmd

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "fit-judge"
)

type Config struct {
	CVFile             string            `mapstructure:"cv-file"`
	JobsDir            string            `mapstructure:"jobs-dir"`
	AuditDir           string            `mapstructure:"audit-dir"`
	DomainRequirements []string          `mapstructure:"domain-requirements"`
	Evaluation         *EvaluationConfig `mapstructure:"evaluation"`
	AI                 *AIConfig         `mapstructure:"ai"`
}

type EvaluationConfig struct {
	Runs          int           `mapstructure:"runs"`
	ParseAttempts int           `mapstructure:"parse-attempts"`
	JobTimeout    time.Duration `mapstructure:"job-timeout"`
	RunDelayMin   time.Duration `mapstructure:"run-delay-min"`
	RunDelayMax   time.Duration `mapstructure:"run-delay-max"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Ollama   *OllamaConfig `mapstructure:"ollama"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Retry    *RetryConfig  `mapstructure:"retry"`
}

type OllamaConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max-attempts"`
	BaseDelay   time.Duration `mapstructure:"base-delay"`
	MaxDelay    time.Duration `mapstructure:"max-delay"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fit-judge evaluates scraped job postings against your CV with a consensus of AI runs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fit-judge.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for commands that touch the store or the backend.
	if runCmd.CalledAs() == "" && reportCmd.CalledAs() == "" {
		return
	}

	// A local .env can carry GEMINI_API_KEY without polluting the shell.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
