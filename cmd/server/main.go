package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"clinicnotes/internal/config"
	httpserver "clinicnotes/internal/http"
	"clinicnotes/internal/logging"
	"clinicnotes/internal/ratelimit"
	"clinicnotes/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "clinicnotes")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.APIKey == config.DefaultAPIKey {
		logger.Warn("API_KEY not set, using the development default key")
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Database ready", zap.String("driver", cfg.Database.Driver))

	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.Redis.Enabled() {
		redisStore := ratelimit.NewRedisStore(ratelimit.NewRedisClient(cfg.Redis))
		defer func() { _ = redisStore.Close() }()
		if err := redisStore.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, rate limiter will fail open until it recovers",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		limiterStore = redisStore
	}

	srv := httpserver.NewServer(cfg, store, limiterStore, logger)
	return srv.Run(ctx)
}
