package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-gpa/internal/common"
	"github.com/noah-isme/backend-gpa/internal/config"
	"github.com/noah-isme/backend-gpa/internal/gpa"
	"github.com/noah-isme/backend-gpa/internal/health"
	"github.com/noah-isme/backend-gpa/internal/lock"
	"github.com/noah-isme/backend-gpa/internal/obs"
	"github.com/noah-isme/backend-gpa/internal/ratelimit"
	"github.com/noah-isme/backend-gpa/internal/resilience"
	"github.com/noah-isme/backend-gpa/internal/workbook"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("version", version).
		Logger()
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	if err := resilience.RegisterMetrics(nil); err != nil {
		logger.Error().Err(err).Msg("register breaker metrics")
	}

	tracingEnabled := cfg.Obs.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    "gpa-api",
			ServiceVersion: version,
			Environment:    cfg.AppEnv,
			Exporter:       cfg.Obs.TracingExporter,
			Endpoint:       cfg.Obs.OTLPEndpoint,
			SamplingRatio:  cfg.Obs.SamplingRatio,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	var (
		store   workbook.Store
		locker  lock.Locker
		limiter ratelimit.Allower
		idem    common.Idem
	)
	checks := map[string]health.Check{}
	if cfg.UseRedis() {
		redisClient := connectRedis(cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		breaker := resilience.NewBreaker(cfg.Breaker.MinRequests, cfg.Breaker.FailureRatio, cfg.Breaker.OpenFor).
			WithTarget("workbook_store").
			WithLogger(logger)
		store = workbook.NewGuardedStore(workbook.NewRedisStore(redisClient, cfg.WorkbookTTL), breaker)
		checks["store_breaker"] = func(context.Context) error {
			if breaker.State() == resilience.Open {
				return resilience.ErrOpenCircuit
			}
			return nil
		}
		locker = lock.RedisLocker{R: redisClient}
		limiter = ratelimit.RedisLimiter{Client: redisClient, Prefix: "rl:gpa:"}
		idem = common.Idem{Store: common.RedisIdemStore{Client: redisClient}, TTL: cfg.IdempotencyTTL}
		logger.Info().Msg("workbook sessions backed by redis")
	} else {
		memStore := workbook.NewMemoryStore(cfg.WorkbookTTL)
		defer memStore.Close()
		memIdem := common.NewMemoryIdemStore()
		defer memIdem.Close()
		store = memStore
		locker = lock.NewLocalLocker()
		limiter = ratelimit.NewMemoryLimiter("gpa")
		idem = common.Idem{Store: memIdem, TTL: cfg.IdempotencyTTL}
		logger.Warn().Msg("REDIS_URL not set: workbook sessions and rate limits are process-local")
	}
	checks["store"] = store.Ping

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	svc := workbook.NewService(store, locker, cfg.BelowMinimum, logger.With().Str("component", "workbook").Logger())
	svc.LockTTL = cfg.WorkbookLockTTL

	handler := newRouter(routerDeps{
		Config:      cfg,
		Logger:      logger,
		Engine:      gpa.Engine{BelowMinimum: cfg.BelowMinimum},
		Workbooks:   svc,
		ReadyChecks: checks,
		Limiter:     limiter,
		Idem:        idem,
		HTTPMetrics: httpMetrics,
		Tracing:     tracingEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("below_minimum", cfg.BelowMinimum.String()).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

// connectRedis dials Redis, retrying the first ping with backoff so the API can start
// alongside a Redis container that is still booting.
func connectRedis(url string, metricsEnabled bool, logger zerolog.Logger) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	const attempts = 5
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			return client
		}
		if attempt == attempts {
			logger.Fatal().Err(err).Msg("ping redis")
		}
		wait := resilience.Backoff(250*time.Millisecond, attempt, 0.2)
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("redis not ready")
		time.Sleep(wait)
	}
}
