package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gpa/internal/health"
)

func ok(context.Context) error { return nil }

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadyReportsEveryCheck(t *testing.T) {
	handler := health.Handler{Checks: map[string]health.Check{
		"store":         ok,
		"store_breaker": func(context.Context) error { return errors.New("circuit open") },
	}}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Equal(t, "unavailable", report.Status)
	require.Equal(t, map[string]string{"store": "ok", "store_breaker": "circuit open"}, report.Checks)
}

func TestReadyAppliesTimeout(t *testing.T) {
	handler := health.Handler{
		Timeout: 20 * time.Millisecond,
		Checks: map[string]health.Check{
			"store": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}
	rr := httptest.NewRecorder()
	start := time.Now()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), context.DeadlineExceeded.Error())
}

func TestReadyWithoutChecks(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "not_configured")
}
