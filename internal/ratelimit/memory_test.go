package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllow(t *testing.T) {
	lim := NewMemoryLimiter("test")
	ctx := context.Background()

	allowed, remaining, reset, err := lim.Allow(ctx, "ip:1", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, remaining, _, err = lim.Allow(ctx, "ip:1", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 0, remaining)

	allowed, _, _, err = lim.Allow(ctx, "ip:1", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, _, _, err = lim.Allow(ctx, "ip:2", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed, "keys are limited independently")
}

func TestMiddlewareKeysByClientIP(t *testing.T) {
	handler := Handler{
		Limiter: NewMemoryLimiter("mw"),
		Config:  Config{Window: time.Minute, Max: 1},
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gpa/semester", nil)
		req.RemoteAddr = ip + ":40000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, send("198.51.100.1").Code)
	limited := send("198.51.100.1")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.True(t, strings.Contains(limited.Body.String(), "RATE_LIMITED"))
	require.NotEmpty(t, limited.Header().Get("Retry-After"))
	require.Equal(t, http.StatusOK, send("198.51.100.2").Code)
}
