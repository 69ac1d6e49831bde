// Package cli implements the operator-facing eventq command: queue
// inspection, bulk dead-letter retry, cleanup, and worker runs. Commands
// are thin wrappers over the maintenance and worker operations in
// pkg/eventq.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/marketpulse/eventq/pkg/eventq"
	"github.com/marketpulse/eventq/pkg/eventq/config"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// rootOptions holds persistent flags shared by all subcommands.
type rootOptions struct {
	dbPath     string
	dbURL      string
	configPath string
}

// NewRootCommand constructs the root eventq command and registers all
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "eventq",
		Short:         "Operate the event queue: inspect, retry, clean up, run workers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default eventq.db)")
	root.PersistentFlags().StringVar(&opts.dbURL, "db-url", "", "Postgres connection URL (overrides --db)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML or JSON)")

	root.AddCommand(newStatsCommand(opts))
	root.AddCommand(newListCommand(opts))
	root.AddCommand(newRetryCommand(opts))
	root.AddCommand(newCleanupCommand(opts))
	root.AddCommand(newWorkCommand(opts))
	return root
}

// Execute runs the root command. Exit status is non-zero only on
// unhandled internal error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "eventq:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from the config file
// and flags. Flags win over the file.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if o.dbURL != "" {
		cfg.Store.Driver = "postgres"
		cfg.Store.URL = o.dbURL
	} else if o.dbPath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = o.dbPath
	}
	return cfg, nil
}

// openStore opens the configured storage backend.
func (o *rootOptions) openStore() (store.Store, config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}

	var st store.Store
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgresStore(cfg.Store.URL)
	default:
		st, err = store.NewSQLiteStore(cfg.Store.Path)
	}
	if err != nil {
		return nil, config.Config{}, err
	}
	return st, cfg, nil
}

// registry returns the configured fan-out mapping, falling back to the
// built-in pipeline registry.
func registryFromConfig(cfg config.Config) *eventq.Registry {
	if len(cfg.Registry) > 0 {
		return eventq.NewRegistry(cfg.Registry)
	}
	return eventq.DefaultRegistry()
}

// newLogger builds the CLI's structured logger.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
