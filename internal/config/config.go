package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-gpa/internal/gpa"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	WorkbookTTL     time.Duration
	WorkbookLockTTL time.Duration
	BelowMinimum    gpa.Policy
	IdempotencyTTL  time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration
	BodyLimitBytes  int64

	SecurityHeaders bool
	HSTSEnabled     bool

	ReadyTimeout    time.Duration
	ShutdownTimeout time.Duration

	Obs     Obs
	Breaker Breaker
}

// Obs configures logging, metrics, tracing and pprof.
type Obs struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
}

// Breaker configures the circuit breaker guarding the Redis workbook store.
type Breaker struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

// Load reads configuration from environment variables and an optional .env
// file. Every malformed value is reported, not just the first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	p := &parser{k: k}

	policy, err := gpa.ParsePolicy(k.String("GPA_BELOW_MINIMUM_POLICY"))
	if err != nil {
		p.fail("GPA_BELOW_MINIMUM_POLICY", err)
	}

	cfg := &Config{
		AppEnv:             p.str("APP_ENV", "development"),
		Port:               p.str("PORT", "8080"),
		RedisURL:           p.str("REDIS_URL", ""),
		CORSAllowedOrigins: p.list("CORS_ALLOWED_ORIGINS"),
		WorkbookTTL:        p.duration("WORKBOOK_TTL", 24*time.Hour),
		WorkbookLockTTL:    p.millis("WORKBOOK_LOCK_TTL_MS", 5000),
		BelowMinimum:       policy,
		IdempotencyTTL:     p.duration("IDEMPOTENCY_TTL", 10*time.Minute),
		RateLimitMax:       p.int("RATE_LIMIT_MAX", 120),
		RateLimitWindow:    p.duration("RATE_LIMIT_WINDOW", time.Minute),
		BodyLimitBytes:     int64(p.int("HTTP_BODY_LIMIT_BYTES", 64<<10)),
		SecurityHeaders:    p.bool("SECURITY_HEADERS_ENABLED", true),
		HSTSEnabled:        p.bool("SECURITY_HSTS_ENABLED", false),
		ReadyTimeout:       p.millis("HEALTH_READY_STORE_TIMEOUT_MS", 300),
		ShutdownTimeout:    p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Obs: Obs{
			LogFormat:        p.str("OBS_LOG_FORMAT", "json"),
			LogLevel:         p.str("OBS_LOG_LEVEL", "info"),
			MetricsEnabled:   p.bool("OBS_ENABLE_PROMETHEUS", true),
			MetricsNamespace: p.str("OBS_METRICS_NAMESPACE", "gpa"),
			MetricsBuckets:   p.str("OBS_METRICS_BUCKETS_MS", ""),
			TracingEnabled:   p.bool("OBS_ENABLE_TRACING", true),
			TracingExporter:  p.str("OBS_TRACING_EXPORTER", "otlp"),
			OTLPEndpoint:     p.str("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio:    p.float("OBS_TRACING_SAMPLING_RATIO", 1),
			PprofEnabled:     p.bool("OBS_ENABLE_PPROF", false),
			PprofUser:        p.str("SECURE_PPROF_BASIC_AUTH_USER", ""),
			PprofPass:        p.str("SECURE_PPROF_BASIC_AUTH_PASS", ""),
		},
		Breaker: Breaker{
			MinRequests:  p.int("STORE_BREAKER_MIN_REQUESTS", 10),
			FailureRatio: p.float("STORE_BREAKER_FAILURE_RATIO", 0.5),
			OpenFor:      p.millis("STORE_BREAKER_OPEN_MS", 15000),
		},
	}

	if cfg.WorkbookTTL <= 0 {
		p.fail("WORKBOOK_TTL", fmt.Errorf("must be positive, got %s", cfg.WorkbookTTL))
	}
	if cfg.Breaker.FailureRatio <= 0 || cfg.Breaker.FailureRatio > 1 {
		p.fail("STORE_BREAKER_FAILURE_RATIO", fmt.Errorf("must be in (0, 1], got %g", cfg.Breaker.FailureRatio))
	}
	if cfg.Obs.PprofEnabled && (cfg.Obs.PprofUser == "" || cfg.Obs.PprofPass == "") {
		p.fail("OBS_ENABLE_PPROF", errors.New("requires SECURE_PPROF_BASIC_AUTH_USER and SECURE_PPROF_BASIC_AUTH_PASS"))
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// UseRedis reports whether Redis backs workbook sessions and rate limits.
func (c *Config) UseRedis() bool {
	return c.RedisURL != ""
}

// parser reads typed values from koanf and collects a descriptive error for
// each value that is present but malformed.
type parser struct {
	k    *koanf.Koanf
	errs []error
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p *parser) raw(key string) (string, bool) {
	v := strings.TrimSpace(p.k.String(key))
	return v, v != ""
}

func (p *parser) str(key, fallback string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return fallback
}

func (p *parser) list(key string) []string {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *parser) int(key string, fallback int) int {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, fmt.Errorf("invalid integer %q", v))
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, fmt.Errorf("invalid number %q", v))
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	}
	p.fail(key, fmt.Errorf("invalid boolean %q", v))
	return fallback
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, fmt.Errorf("invalid duration %q", v))
		return fallback
	}
	return d
}

func (p *parser) millis(key string, fallback int) time.Duration {
	return time.Duration(p.int(key, fallback)) * time.Millisecond
}
