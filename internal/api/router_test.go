package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hugh/go-inspect/internal/api/middleware"
	"github.com/hugh/go-inspect/internal/catalog"
	"github.com/hugh/go-inspect/internal/inspection"
	"github.com/hugh/go-inspect/internal/numbering"
	"github.com/hugh/go-inspect/internal/scheduler"
	"github.com/hugh/go-inspect/internal/testutil"
)

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) (*Router, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := testutil.DiscardLogger()
	store := catalog.NewStore(tc.DB)
	execs := inspection.NewService(tc.DB, store, store, numbering.NewAllocator("CF", 3), logger, inspection.Options{})

	return NewRouter(RouterConfig{
		DB:          tc.DB,
		Logger:      logger,
		Tokens:      tc.JWTService,
		Executions:  execs,
		Scheduler:   scheduler.NewService(tc.DB, execs, store, store, logger, scheduler.Options{}),
		RateLimiter: limiter,
	}), tc
}

func TestRouter_Routes(t *testing.T) {
	router, tc := newTestRouter(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"executions need auth", http.MethodGet, "/api/v1/executions", "", http.StatusUnauthorized},
		{"executions", http.MethodGet, "/api/v1/executions", tc.Token, http.StatusOK},
		{"plans", http.MethodGet, "/api/v1/plans", tc.Token, http.StatusOK},
		{"reminders", http.MethodGet, "/api/v1/reminders", tc.Token, http.StatusOK},
		{"manual tick", http.MethodPost, "/api/v1/scheduler/tick", tc.Token, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/scans", tc.Token, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, tt.method, tt.path, nil, tt.token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			testutil.AssertStatus(t, rr, tt.wantStatus)
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, 60)
	defer limiter.Stop()
	router, _ := newTestRouter(t, limiter)

	codes := make([]int, 3)
	for i := range codes {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
		codes[i] = rr.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
