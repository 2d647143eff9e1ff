package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/codeatlas/codeatlas/internal/config"
	"github.com/codeatlas/codeatlas/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "codeatlas",
	Short: "CodeAtlas - per-workspace knowledge graph and hybrid retrieval",
	Long: `CodeAtlas builds an enriched knowledge graph from extracted source
entities and answers natural-language queries by blending graph search
with prebuilt documentation, prevention, and task indexes.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize loggers. CLI commands log through logrus; library
		// components use the default slog handler installed here.
		logger = logrus.New()
		level := slog.LevelWarn
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
			level = slog.LevelDebug
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}
		if _, err := logging.Setup(logging.Config{Level: level}); err != nil {
			logger.WithError(err).Warn("Failed to configure structured logging")
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .codeatlas/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`CodeAtlas {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configureCmd)
}
