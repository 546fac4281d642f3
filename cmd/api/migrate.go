package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/knowledge-extractor/internal/config"
	"github.com/bryanwahyu/knowledge-extractor/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the analyses table and indexes, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config load error: %w", err)
		}
		logger := logging.Must(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = logger.Sync() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, repo, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database connect error: %w", err)
		}
		defer db.Close()

		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate error: %w", err)
		}
		logger.Info("schema ready", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}
