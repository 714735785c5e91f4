package main

import (
	"context"
	"fmt"

	"docseal/internal/config"
	"docseal/internal/infra/db"
	"docseal/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "docseal",
		Short:         "Issue, sign and verify official documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional config file (env vars override it)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newCounterCmd(opts),
		newVerifyCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*db.Store, error) {
	store, err := db.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	applied, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	for _, name := range applied {
		logger.Info("migration applied", zap.String("name", name))
	}
	return store, nil
}
