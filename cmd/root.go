package main

import (
	"context"
	"errors"
	"fmt"

	"drawflow-backend/internal/config"
	"drawflow-backend/internal/storage"
	"drawflow-backend/pkg/logger"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	cfg *config.Config
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "drawflow",
		Short:         "Diagram editor backend",
		Long:          "Serves the diagram editor bridge and session API, and manages stored sessions.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.LogLevel != "" {
				cfg.Log.Level = opts.LogLevel
			}
			if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// openStore opens the configured store. Commands that manage sessions need
// one, so an unavailable store is an error here.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if errors.Is(err, storage.ErrStoreUnavailable) {
		return nil, fmt.Errorf("storage type %q has no session store", cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
