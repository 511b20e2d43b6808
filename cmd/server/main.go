package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hugh/go-inspect/internal/api"
	"github.com/hugh/go-inspect/internal/api/middleware"
	"github.com/hugh/go-inspect/internal/auth"
	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/database"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/numbering"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/pkg/config"
	"github.com/hugh/go-inspect/pkg/queue"
	"github.com/hugh/go-inspect/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting go-inspect server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Redis is optional for the API: without it manual ticks run inline
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient = nil
	}

	routerCfg := api.RouterConfig{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		RetentionDays: cfg.Reminders.RetentionDays,
	}

	if redisClient != nil {
		asynqClient := queue.NewClient(&cfg.Redis)
		defer asynqClient.Close()
		routerCfg.Queue = asynqClient
	}

	store := catalog.NewStore(db)
	numbers := numbering.NewAllocator(cfg.Executions.NumberPrefix, cfg.Executions.AllocationAttempts)
	routerCfg.Executions = inspection.NewService(db, store, store, numbers, logger, inspection.Options{
		BulkWorkers: cfg.Executions.BulkWorkers,
	})
	routerCfg.Scheduler = scheduler.NewService(db, routerCfg.Executions, store, store, logger, scheduler.Options{
		BatchSize: cfg.Scheduler.BatchSize,
	})
	routerCfg.Tokens = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	defer limiter.Stop()
	routerCfg.RateLimiter = limiter

	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
