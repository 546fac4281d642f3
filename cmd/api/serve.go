package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/knowledge-extractor/internal/application/analysis"
	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
	"github.com/bryanwahyu/knowledge-extractor/internal/config"
	"github.com/bryanwahyu/knowledge-extractor/internal/infra/ai/openai"
	"github.com/bryanwahyu/knowledge-extractor/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/knowledge-extractor/internal/infra/storage"
	"github.com/bryanwahyu/knowledge-extractor/internal/logging"
	"github.com/bryanwahyu/knowledge-extractor/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config load error: %w", err)
		}
		logger := logging.Must(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = logger.Sync() }()

		return serve(cmd.Context(), cfg, logger)
	},
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.AI.APIKey == "" {
		return errors.New("OPENAI_API_KEY environment variable not set")
	}
	if cfg.UsesDefaultToken() {
		logger.Warn("API_TOKEN not set, using the development token")
	}

	db, repo, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database connect error: %w", err)
	}
	defer db.Close()

	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate error: %w", err)
	}

	var archive domain.Archive
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			BucketName: cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("minio init error: %w", err)
		}
		archive = store
	}

	metrics := middleware.NewMetrics()

	svc := &appanalysis.Service{
		Repo: repo,
		AI: openai.NewClient(openai.Config{
			APIKey:    cfg.AI.APIKey,
			Model:     cfg.AI.Model,
			BaseURL:   cfg.AI.BaseURL,
			MaxTokens: cfg.AI.MaxTokens,
			Retries:   cfg.AI.Retries,
		}),
		Logger:           logger.Named("analysis"),
		Archive:          archive,
		Recorder:         metrics,
		Timeout:          cfg.AI.Timeout,
		BatchConcurrency: cfg.Batch.Concurrency,
	}

	stopPruning := make(chan struct{})
	defer close(stopPruning)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	limiter.StartPruning(5*time.Minute, stopPruning)

	proxies, err := middleware.NewTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("server config error: %w", err)
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Token:          cfg.Auth.Token,
		Logger:         logger,
		Metrics:        metrics,
		RateLimiter:    limiter,
		TrustedProxies: proxies,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		HealthCheckers: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", addr),
			zap.String("driver", cfg.Database.Driver),
			zap.String("model", cfg.AI.Model),
			zap.Bool("archive", archive != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return err
	}
	return nil
}
