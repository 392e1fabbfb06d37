package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/meddocs/internal/common"
)

var version = "0.1.0"

var (
	configPath string
	logLevel   string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "meddocs",
	Short: "Extract, translate and summarize medical documents",
	Long: `meddocs runs scanned or digital medical documents (PDF, JPEG, PNG, TIFF, HEIC)
through OCR, language detection, translation and type-specific summarization,
producing a multilingual structured record per document.

Configuration is read from environment variables (and a .env file), optionally
layered on top of a YAML file given with --config or MEDDOCS_CONFIG.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = os.Getenv("MEDDOCS_CONFIG")
		}
		c, err := common.LoadConfigFile(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Logging.Level = logLevel
		}
		// stdout carries command output; logs go to stderr.
		logger = common.NewLogger(c.Logging.Level, c.Logging.Format, os.Stderr)
		slog.SetDefault(logger)
		cfg = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command execution failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
}

// validate checks the config; commands that never touch the database skip the DSN check.
func validate(needDB bool) error {
	check := *cfg
	if !needDB {
		check.Database.Driver = "sqlite"
	}
	return check.Validate()
}
