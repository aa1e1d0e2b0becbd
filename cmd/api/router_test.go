package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gpa/internal/config"
	"github.com/noah-isme/backend-gpa/internal/gpa"
	"github.com/noah-isme/backend-gpa/internal/health"
	"github.com/noah-isme/backend-gpa/internal/lock"
	"github.com/noah-isme/backend-gpa/internal/ratelimit"
	"github.com/noah-isme/backend-gpa/internal/workbook"
)

func testRouter(t *testing.T, rateMax int, opts ...func(*config.Config)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AppEnv:          "test",
		WorkbookTTL:     time.Hour,
		RateLimitMax:    rateMax,
		RateLimitWindow: time.Minute,
		BodyLimitBytes:  1 << 10,
		SecurityHeaders: true,
		ReadyTimeout:    50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	store := workbook.NewMemoryStore(cfg.WorkbookTTL)
	t.Cleanup(store.Close)
	return newRouter(routerDeps{
		Config:      cfg,
		Logger:      zerolog.Nop(),
		Engine:      gpa.Default,
		Workbooks:   workbook.NewService(store, lock.NewLocalLocker(), gpa.PolicyZeroPoints, zerolog.Nop()),
		ReadyChecks: map[string]health.Check{"store": store.Ping},
		Limiter:     ratelimit.NewMemoryLimiter("test-" + t.Name()),
	})
}

func send(h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterServesHealthAndCalculations(t *testing.T) {
	h := testRouter(t, 100)

	rec := send(h, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(h, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","checks":{"store":"ok"}}`, rec.Body.String())

	rec = send(h, http.MethodPost, "/api/v1/gpa/semester", "application/json",
		`{"subjects":[{"marks":80,"creditRange":100},{"marks":36,"creditRange":60}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var resp struct {
		Data gpa.SemesterResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3.34, *resp.Data.GPA)

	rec = send(h, http.MethodPost, "/api/v1/workbooks", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/api/v1/workbooks/"))
}

func TestRouterRejectsNonJSONAndOversizedBodies(t *testing.T) {
	h := testRouter(t, 100)

	rec := send(h, http.MethodPost, "/api/v1/gpa/cgpa", "text/plain", `3.5,3.8`)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	big := `{"gpas":[` + strings.Repeat("3.5,", 400) + `3.5]}`
	rec = send(h, http.MethodPost, "/api/v1/gpa/cgpa", "application/json", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterRateLimitsAPI(t *testing.T) {
	h := testRouter(t, 2)

	for i := 0; i < 2; i++ {
		rec := send(h, http.MethodGet, "/api/v1/gpa/credit-ranges", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := send(h, http.MethodGet, "/api/v1/gpa/credit-ranges", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")

	rec = send(h, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, rec.Code, "health checks are not rate limited")
}

func TestRouterProtectsProfiler(t *testing.T) {
	rec := send(testRouter(t, 100), http.MethodGet, "/debug/pprof/", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code, "profiler is not mounted by default")

	h := testRouter(t, 100, func(c *config.Config) {
		c.Obs.PprofEnabled = true
		c.Obs.PprofUser = "ops"
		c.Obs.PprofPass = "secret"
	})
	rec = send(h, http.MethodGet, "/debug/pprof/", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.SetBasicAuth("ops", "secret")
	authed := httptest.NewRecorder()
	h.ServeHTTP(authed, req)
	require.Equal(t, http.StatusOK, authed.Code)
}
