package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"dreamreel/internal/adapter/repo"
	"dreamreel/internal/admission"
	"dreamreel/internal/guard"
	httpapi "dreamreel/internal/http"
	"dreamreel/internal/http/handlers"
	"dreamreel/internal/infra"
	appmw "dreamreel/internal/middleware"
	"dreamreel/internal/quota"
	"dreamreel/internal/ratelimit"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := repo.Migrate(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	jobs := repo.NewJobRepository(dbpool)
	quotas := repo.NewQuotaRepository(dbpool)

	// The account directory sits behind the concurrency guard so duplicate
	// lookups collapse and provider pressure triggers a shared cooldown.
	directory := guard.WrapDirectory(repo.NewAccountDirectory(dbpool), guard.New(cfg.GuardCooldown))

	ledger := quota.NewLedger(quotas, nil)
	adm := admission.NewController(jobs, ledger, directory, logger)
	app := handlers.NewApp(jobs, adm, logger)

	var limiter appmw.SubmitLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		limiter = ratelimit.NewPerMinuteBucket(rdb, cfg.RateLimitPerMin)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, submission rate limiting disabled")
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		JWTSecret: cfg.JWTSecret,
		Limiter:   limiter,
		Logger:    logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
