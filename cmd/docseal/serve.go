package main

import (
	"fmt"

	httpinfra "docseal/internal/infra/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("close store", zap.Error(err))
				}
			}()

			srv, err := httpinfra.NewServer(ctx, cfg, store, logger)
			if err != nil {
				return fmt.Errorf("init server: %w", err)
			}
			logger.Info("docseal starting",
				zap.String("addr", cfg.HTTPAddr),
				zap.String("driver", cfg.DBDriver),
				zap.Bool("signing_policy", cfg.SigningPolicyEnabled))
			return srv.Run(ctx)
		},
	}
}
