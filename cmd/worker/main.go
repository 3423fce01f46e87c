package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"dreamreel/internal/adapter/repo"
	"dreamreel/internal/infra"
	"dreamreel/internal/notify"
	"dreamreel/internal/providers/frame"
	"dreamreel/internal/render"
	"dreamreel/internal/scheduler"
	"dreamreel/internal/storage"
	"dreamreel/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("worker: migrations failed")
	}

	jobs := repo.NewJobRepository(pool)
	usage := telemetry.NewUsageRecorder(repo.NewUsageRepository(pool), logger)

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	renderer := buildRenderer(cfg, logger)

	pipeline := render.NewPipeline(renderer, store, jobs, usage, nil, logger)
	notifier := notify.NewWebhook(jobs, &http.Client{Timeout: cfg.WebhookTimeout}, logger)
	dispatcher := scheduler.NewDispatcher(jobs, pipeline, notifier, logger)

	logger.Info().Msg("worker: starting dispatch loop")
	dispatcher.Run(ctx, cfg.WorkerPollEvery)
}

// buildStore prefers S3-compatible object storage and falls back to the
// local filesystem when no bucket is configured.
func buildStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (storage.Store, error) {
	if cfg.S3Bucket != "" {
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("worker: using s3 storage")
		return storage.NewS3Store(ctx, cfg)
	}

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	logger.Info().Str("path", storagePath).Msg("worker: using filesystem storage")
	return storage.NewFileStore(storagePath, cfg.StorageBaseURL)
}

// buildRenderer uses the remote frame backend when an API key is present and
// the deterministic synthetic renderer otherwise, which keeps local
// development working without credentials.
func buildRenderer(cfg *infra.Config, logger infra.Logger) frame.Renderer {
	if cfg.RenderAPIKey == "" {
		logger.Warn().Msg("worker: RENDER_API_KEY not set, using synthetic renderer")
		return frame.NewSyntheticRenderer()
	}
	client, err := frame.NewClient(frame.Options{
		APIKey:  cfg.RenderAPIKey,
		BaseURL: cfg.RenderBaseURL,
		Model:   cfg.RenderModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure frame renderer")
	}
	logger.Info().Str("model", client.Model()).Msg("worker: using remote frame renderer")
	return client
}
