package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"codegraph/internal/config"
)

var (
	flagDB          string
	flagOllama      string
	flagModel       string
	flagRerankModel string
	flagLogLevel    string
	flagLogFormat   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "codegraph",
	Short:         "Code graph intelligence for local codebases",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = config.Load(wd)
		if err != nil {
			return err
		}
		// Flags the user actually set win over config file and environment.
		if cmd.Flags().Changed("db") {
			cfg.DBPath = flagDB
		}
		if cmd.Flags().Changed("ollama") {
			cfg.OllamaURL = flagOllama
		}
		if cmd.Flags().Changed("model") {
			cfg.EmbedModel = flagModel
		}
		if cmd.Flags().Changed("rerank-model") {
			cfg.RerankModel = flagRerankModel
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = flagLogFormat
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default <project>/.codegraph/index.db)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "http://localhost:11434", "ollama base URL")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "nomic-embed-text", "embedding model")
	rootCmd.PersistentFlags().StringVar(&flagRerankModel, "rerank-model", "qwen3:8b", "relevance model for deep search")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")
}
