package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"ProblemScout/internal/app"
	"ProblemScout/internal/config"
	"ProblemScout/internal/logging"
	"ProblemScout/pkg/console"
)

var (
	configPath string
	plainOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "problemscout",
	Short: "ProblemScout collects problem statements and groups them into themes",
	Long: `ProblemScout ingests short problem statements from feeds and direct
submissions, enriches them with a language model, clusters related problems
and matches them against registered experts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default: $PROBLEMSCOUT_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&plainOut, "plain", false, "Disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(exportCmd)
}

func loadConfig() config.Config {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// openApp builds the application with logs on stderr so stdout stays clean for output.
func openApp(ctx context.Context) (*app.Application, error) {
	cfg := loadConfig()
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level)
	return app.New(ctx, cfg, logger)
}

func newPrinter(cmd *cobra.Command) *console.Printer {
	return console.New(cmd.OutOrStdout(), plainOut)
}
