package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-gpa/internal/common"
)

// Check probes one dependency. A nil error means the dependency is usable.
type Check func(ctx context.Context) error

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the process readiness flag. It is cleared when shutdown begins so load
// balancers drain traffic before the listener closes.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the process readiness flag.
func IsReady() bool {
	return ready.Load()
}

// Report is the readiness payload.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checks  map[string]Check
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every check concurrently under the probe timeout.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "shutting_down"})
		return
	}
	if len(h.Checks) == 0 {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "not_configured"})
		return
	}
	report := h.run(r.Context())
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, report)
}

func (h Handler) run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var g errgroup.Group
	for i, name := range names {
		check := h.Checks[name]
		g.Go(func() error {
			results[i] = "ok"
			if err := check(ctx); err != nil {
				results[i] = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: "ok", Checks: make(map[string]string, len(names))}
	for i, name := range names {
		report.Checks[name] = results[i]
		if results[i] != "ok" {
			report.Status = "unavailable"
		}
	}
	return report
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.Timeout
}
