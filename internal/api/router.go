package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hugh/go-inspect/internal/api/handlers"
	"github.com/hugh/go-inspect/internal/api/middleware"
	"github.com/hugh/go-inspect/internal/auth"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/pkg/queue"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	Tokens         auth.TokenService
	Executions     *inspection.Service
	Scheduler      *scheduler.Service
	Queue          queue.Enqueuer // nil runs manual ticks inline
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string // CORS allowed origins
	RetentionDays  int      // default for reminder purges
}

// AdminRoles may trigger ticks and purges.
var AdminRoles = []string{"owner", "admin"}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.ByClientIP))
	}

	// CORS - restrict to configured origins
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	executionHandler := handlers.NewExecutionHandler(cfg.Executions, cfg.Logger)
	planHandler := handlers.NewPlanHandler(cfg.Scheduler, cfg.Logger)
	reminderHandler := handlers.NewReminderHandler(cfg.Scheduler, cfg.Logger, cfg.RetentionDays)
	schedulerHandler := handlers.NewSchedulerHandler(cfg.Scheduler, cfg.Queue, cfg.Logger)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Tokens))

		r.Route("/executions", func(r chi.Router) {
			r.Get("/", executionHandler.List)
			r.Post("/", executionHandler.Create)
			r.Post("/bulk", executionHandler.BulkCreate)
			r.Get("/{id}", executionHandler.Get)
			r.Put("/{id}", executionHandler.Update)
			r.Delete("/{id}", executionHandler.Delete)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", planHandler.List)
			r.Post("/", planHandler.Create)
			r.Get("/{id}", planHandler.Get)
			r.Put("/{id}", planHandler.Update)
			r.Delete("/{id}", planHandler.Delete)
			r.Post("/{id}/activate", planHandler.Activate)
			r.Post("/{id}/deactivate", planHandler.Deactivate)
			r.Get("/{id}/preview", planHandler.Preview)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", reminderHandler.List)
			r.Post("/{id}/complete", reminderHandler.Complete)
			r.Post("/{id}/skip", reminderHandler.Skip)
			r.With(middleware.RequireRole(AdminRoles...)).Delete("/purge-old", reminderHandler.PurgeOld)
		})

		r.With(middleware.RequireRole(AdminRoles...)).Post("/scheduler/tick", schedulerHandler.Tick)
	})

	return &Router{r}
}
