package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-gpa/internal/common"
	"github.com/noah-isme/backend-gpa/internal/config"
	"github.com/noah-isme/backend-gpa/internal/gpa"
	"github.com/noah-isme/backend-gpa/internal/health"
	"github.com/noah-isme/backend-gpa/internal/obs"
	"github.com/noah-isme/backend-gpa/internal/ratelimit"
	"github.com/noah-isme/backend-gpa/internal/security"
	"github.com/noah-isme/backend-gpa/internal/workbook"
)

type routerDeps struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Engine      gpa.Engine
	Workbooks   *workbook.Service
	ReadyChecks map[string]health.Check
	Limiter     ratelimit.Allower
	Idem        common.Idem
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Location", "Retry-After", common.ReplayedHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.HSTSEnabled}.Middleware)

	if d.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug", pprofHandler(cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	healthHandler := health.Handler{Checks: d.ReadyChecks, Timeout: cfg.ReadyTimeout}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	gpaHandler := gpa.NewHandler(d.Engine)
	workbookHandler := workbook.NewHandler(d.Workbooks)
	workbookHandler.CloseMiddleware = d.Idem.Middleware

	limit := ratelimit.Handler{
		Limiter: d.Limiter,
		Config:  ratelimit.Config{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(security.RequireJSON)

		v.Route("/gpa", func(g chi.Router) {
			g.Get("/credit-ranges", gpaHandler.CreditRanges)
			g.Post("/subject", gpaHandler.Subject)
			g.Post("/semester", gpaHandler.Semester)
			g.Post("/cgpa", gpaHandler.CGPA)
		})
		v.Route("/workbooks", workbookHandler.Routes)
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
