// Package main is the entrypoint for the Scribe API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/scribe/internal/api"
	"github.com/kiranshivaraju/scribe/internal/api/handler"
	mw "github.com/kiranshivaraju/scribe/internal/api/middleware"
	"github.com/kiranshivaraju/scribe/internal/blob"
	"github.com/kiranshivaraju/scribe/internal/cache"
	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/internal/inference"
	"github.com/kiranshivaraju/scribe/internal/inference/provider"
	"github.com/kiranshivaraju/scribe/internal/jobs"
	"github.com/kiranshivaraju/scribe/internal/service"
	"github.com/kiranshivaraju/scribe/internal/split"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/internal/sweeper"
	"github.com/kiranshivaraju/scribe/internal/watcher"
	"github.com/kiranshivaraju/scribe/pkg/executor"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

const (
	shutdownTimeout   = 30 * time.Second
	cacheReadyTimeout = 15 * time.Second
)

func main() {
	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"store", cfg.Database.Driver,
		"stt_provider", cfg.Inference.STTProvider,
		"text_provider", cfg.Inference.TextProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ca, err := openCache(ctx, cfg.Redis.URL, cacheReadyTimeout)
	if err != nil {
		return err
	}
	defer ca.Close()

	transcriber, err := provider.NewTranscriber(cfg.Inference)
	if err != nil {
		return fmt.Errorf("create transcriber: %w", err)
	}
	generator, err := provider.NewGenerator(ctx, cfg.Inference)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}
	prompts, err := inference.LoadPrompts(cfg.Inference.PromptsFile)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}
	slog.Info("inference backends initialized", "transcriber", transcriber.Name(), "generator", generator.Name())

	blobs, err := blob.NewFSStore(cfg.Blob.Dir)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	splitter := split.NewAudioSplitter(executor.New(), cfg.Pipeline.AudioUnit,
		split.WithBinaries(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath),
		split.WithTempDir(cfg.Pipeline.TempDir),
	)

	machine := jobs.NewMachine(st, ca, cfg.Redis.Snapshot)
	pool := jobs.NewPool(machine, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize)

	svc := service.New(service.Dependencies{
		Machine:     machine,
		Store:       st,
		Cache:       ca,
		Blobs:       blobs,
		Pool:        pool,
		Splitter:    splitter,
		Transcriber: transcriber,
		Generator:   generator,
		Prompts:     prompts,
	}, service.Config{
		TextUnitTokens:  cfg.Pipeline.TextUnitTokens,
		UnitConcurrency: cfg.Pipeline.UnitConcurrency,
		CallTimeout:     cfg.Inference.Timeout,
	})

	sw, err := sweeper.New(st, cfg.Sweeper.StuckAfter, cfg.Sweeper.Schedule)
	if err != nil {
		return err
	}
	sw.Start()
	defer sw.Stop()

	if cfg.Watcher.Dir != "" {
		w, err := watcher.New(cfg.Watcher.Dir, service.SupportedFormats, submitFromInbox(svc))
		if err != nil {
			return fmt.Errorf("start inbox watcher: %w", err)
		}
		defer w.Close()
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("inbox watcher stopped", "error", err)
			}
		}()
	}

	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(st),
		RateLimit: mw.NewRateLimit(ca, cfg.Server.RateLimitPerMin),

		HealthHandler:              handler.NewHealthHandler(map[string]handler.Pinger{"database": st, "cache": ca}),
		SubmitTranscriptionHandler: handler.NewSubmitTranscriptionHandler(svc, cfg.Server.MaxUploadBytes, cfg.Pipeline.TempDir),
		GetTranscriptionHandler:    handler.NewGetJobHandler(svc, models.JobKindTranscription),
		SubmitSummarizationHandler: handler.NewSubmitSummarizationHandler(svc),
		GetSummarizationHandler:    handler.NewGetJobHandler(svc, models.JobKindSummarization),
		SummaryDocxHandler:         handler.NewSummaryDocxHandler(svc),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	// Queued jobs are failed; running jobs get the remaining shutdown window.
	if err := pool.Stop(shutdownCtx); err != nil {
		slog.Warn("worker pool did not drain in time", "error", err)
	}
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown: %w", shutdownErr)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openStore connects the configured job store. Postgres is migrated from ./migrations;
// the SQLite store carries its own schema.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.URL); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		st, err := store.NewSQLiteStore(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		slog.Info("sqlite store opened", "path", cfg.URL)
		return st, nil
	case "postgres":
		pool, err := store.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		slog.Info("database connected")
		if err := store.RunMigrations(cfg.URL, "migrations"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return store.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openCache connects Redis when url is set, retrying the first ping until timeout.
// Without a URL snapshots and rate limiting are disabled.
func openCache(ctx context.Context, url string, timeout time.Duration) (cache.Cache, error) {
	if url == "" {
		slog.Warn("REDIS_URL not set, job snapshots and rate limiting disabled")
		return cache.NopCache{}, nil
	}
	rc, err := cache.NewRedisCache(url)
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = timeout
	ping := func() error {
		if err := rc.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			slog.Warn("redis not ready, retrying", "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return rc, nil
}

// submitFromInbox adapts SubmitTranscription to the watcher handler.
func submitFromInbox(svc *service.Service) watcher.Handler {
	return func(ctx context.Context, path string) error {
		job, err := svc.SubmitTranscription(ctx, service.AudioUpload{
			Filename: filepath.Base(path),
			Path:     path,
		})
		if err != nil {
			return err
		}
		slog.Info("inbox file queued", "path", path, "job_id", job.ID)
		return nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
