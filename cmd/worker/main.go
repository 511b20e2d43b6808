package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/database"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/numbering"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/internal/tasks"
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

	logger.Info("starting go-inspect worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	store := catalog.NewStore(db)
	numbers := numbering.NewAllocator(cfg.Executions.NumberPrefix, cfg.Executions.AllocationAttempts)
	executions := inspection.NewService(db, store, store, numbers, logger, inspection.Options{
		BulkWorkers: cfg.Executions.BulkWorkers,
	})
	plans := scheduler.NewService(db, executions, store, store, logger, scheduler.Options{
		BatchSize: cfg.Scheduler.BatchSize,
	})

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	handler := tasks.NewHandler(plans, logger, cfg.Reminders.RetentionDays)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	periodic := queue.NewScheduler(&cfg.Redis, logger)
	if err := tasks.RegisterPeriodic(periodic, cfg); err != nil {
		logger.Error("failed to register periodic tasks", "error", err)
		os.Exit(1)
	}
	if err := periodic.Start(); err != nil {
		logger.Error("failed to start periodic scheduler", "error", err)
		os.Exit(1)
	}

	if cfg.Scheduler.Enabled {
		if next, err := util.NextCronTime(cfg.Scheduler.TickCron, time.Now().UTC()); err == nil {
			logger.Info("scheduler tick registered", "cron", cfg.Scheduler.TickCron, "next", next)
		}
	} else {
		logger.Warn("scheduler tick disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		periodic.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
