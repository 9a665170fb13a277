// Package cli holds the sitecheck command tree.
package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/vbonduro/sitecheck/internal/app"
	"github.com/vbonduro/sitecheck/internal/config"
	"github.com/vbonduro/sitecheck/internal/logging"
)

// RootCmd returns the sitecheck command with every subcommand attached.
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sitecheck",
		Short: "Apartment inspection tracking for construction sites",
		Long: `sitecheck records trade inspections (plumbing, electrical, finishing,
communication) per apartment, tracks the issues they raise and reports on them.

Configuration is read from the environment; see the README for variables.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(MigrateCmd())
	rootCmd.AddCommand(StatusCmd())
	rootCmd.AddCommand(StatsCmd())
	rootCmd.AddCommand(ExportCmd())
	return rootCmd
}

// withApp loads configuration, builds the application and runs fn with it.
func withApp(fn func(*app.App, *config.Config) error) error {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return err
	}
	defer cleanup()

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Close()

	return fn(a, cfg)
}
