// Package cli implements the chorectl command line.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chorequest/internal/app"
	"chorequest/internal/config"
	"chorequest/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "chorectl",
	Short:         "Operate the ChoreQuest insights engine",
	Long:          `chorectl runs migrations, inspects family insights, sends weekly digests and exports insight snapshots.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// openApp loads configuration and wires the application for one command.
func openApp(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	logr, err := logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return app.New(cmd.Context(), cfg, logr, opts)
}

// parseNow reads an optional RFC3339 --now flag
func parseNow(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("now")
	if raw == "" {
		return time.Time{}, nil
	}
	now, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now must be an RFC3339 timestamp: %w", err)
	}
	return now, nil
}
