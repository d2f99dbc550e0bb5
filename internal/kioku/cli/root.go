// Package cli implements the kioku CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kioku/common/trace"
	"github.com/bdobrica/Kioku/internal/kioku/app"
	"github.com/bdobrica/Kioku/internal/kioku/observability"
)

var (
	dbPath     string
	configPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "kioku",
	Short: "Conversational memory for assistants",
	Long:  "Kioku is a two-tier conversational memory service: a recency-windowed short-term buffer and a semantically searchable long-term archive, SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $KIOKU_DB_PATH or kioku.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file path")
}

// loadConfig builds the effective config, applying the --db override.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	return cfg, nil
}

// openApp wires a full application for a command. Callers must Stop() it.
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	return app.New(cfg, slog.Default())
}

// opContext returns the command context tagged with a fresh trace ID, so
// every log line of one CLI invocation can be correlated.
func opContext(cmd *cobra.Command) context.Context {
	return trace.WithTraceID(cmd.Context(), trace.GenerateID())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
