package handlers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hugh/go-inspect/internal/api/handlers"
	"github.com/hugh/go-inspect/internal/api/middleware"
	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/numbering"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/internal/testutil"
	"github.com/hugh/go-inspect/pkg/queue"
)

type testEnv struct {
	*testutil.TestSetup
	router    *chi.Mux
	scheduler *scheduler.Service
}

func setupTestRouter(t *testing.T, q queue.Enqueuer) *testEnv {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := testutil.DiscardLogger()
	store := catalog.NewStore(tc.DB)
	execs := inspection.NewService(tc.DB, store, store, numbering.NewAllocator("CF", 3), logger, inspection.Options{BulkWorkers: 2})
	svc := scheduler.NewService(tc.DB, execs, store, store, logger, scheduler.Options{})

	executionHandler := handlers.NewExecutionHandler(execs, logger)
	planHandler := handlers.NewPlanHandler(svc, logger)
	reminderHandler := handlers.NewReminderHandler(svc, logger, 90)
	schedulerHandler := handlers.NewSchedulerHandler(svc, q, logger)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))
	r.Route("/api/v1", func(r chi.Router) {
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
			r.With(middleware.RequireRole("owner", "admin")).Delete("/purge-old", reminderHandler.PurgeOld)
		})
		r.With(middleware.RequireRole("owner", "admin")).Post("/scheduler/tick", schedulerHandler.Tick)
	})

	return &testEnv{TestSetup: tc, router: r, scheduler: svc}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, e.Token, method, path, body)
}

func (e *testEnv) doAs(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthenticatedRequest(t, method, path, body, token)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

