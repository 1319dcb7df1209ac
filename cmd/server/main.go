package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/coinexchange/internal/bootstrap"
	"anoa.com/coinexchange/internal/config"
	"anoa.com/coinexchange/internal/pricing"
	"anoa.com/coinexchange/internal/scheduler"
	"anoa.com/coinexchange/internal/server"
	"anoa.com/coinexchange/pkg/database"
	"anoa.com/coinexchange/pkg/logger"
	"anoa.com/coinexchange/pkg/storage"

	searchService "anoa.com/coinexchange/internal/modules/search/service"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.IsProduction()); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	prices, err := pricing.Load(cfg.PricingFile)
	if err != nil {
		logger.Log.Fatal("failed to load pricing", zap.Error(err))
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("database connection failed", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Log.Fatal("migration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{
		DB:        db,
		Redis:     connectRedis(ctx, cfg.RedisURL),
		Prices:    prices,
		Scheduler: scheduler.NewScheduler(cfg.PeriodLocation),
	}

	if cfg.MeiliSearchHost != "" {
		host := cfg.MeiliSearchHost
		if !strings.HasPrefix(host, "http") {
			host = "http://" + host + ":7700"
		}
		deps.Search = searchService.NewMeiliSearchService(meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey)))
	}

	deps.Storage, err = storage.NewCloudinaryStorage(cfg.CloudinaryUploadFolder)
	if err != nil {
		if cfg.IsProduction() {
			logger.Log.Fatal("evidence storage unavailable", zap.Error(err))
		}
		logger.Log.Warn("cloudinary not configured, keeping screenshots in memory", zap.Error(err))
		deps.Storage = storage.NewMemoryStorage()
	}

	srv, err := server.NewServer(ctx, cfg, deps)
	if err != nil {
		logger.Log.Fatal("failed to build server", zap.Error(err))
	}

	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("server exited with error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// connectRedis returns nil when REDIS_URL is unset or unreachable. Cooldowns,
// leaderboard caching and live notifications are skipped without it.
func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		logger.Log.Warn("REDIS_URL not set, running without redis")
		return nil
	}

	var opt *redis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Log.Warn("invalid REDIS_URL, running without redis", zap.Error(err))
			return nil
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.Warn("redis unreachable, running without redis", zap.Error(err))
		_ = client.Close()
		return nil
	}

	return client
}
