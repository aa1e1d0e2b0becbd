package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

const buckets = 10

type bucket struct {
	start     time.Time
	successes int
	failures  int
}

// Breaker is a failure-ratio circuit breaker. Outcomes are counted in a
// rolling window split into ten buckets; the breaker opens once the window
// holds at least minRequests outcomes and the failure ratio reaches the
// threshold.
type Breaker struct {
	mu           sync.Mutex
	state        State
	window       [buckets]bucket
	span         time.Duration
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	probing      bool

	ignore func(error) bool
	target string
	logger zerolog.Logger
	now    func() time.Time
}

// NewBreaker constructs a closed breaker with a one minute rolling window.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		span:         time.Minute / buckets,
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		target:       "default",
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// Allow reports whether a request may proceed. An open breaker admits one
// probe once the cool-off has elapsed; other callers are refused until that
// probe reports.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	cur := b.bucketLocked(b.now())
	if success {
		cur.successes++
	} else {
		cur.failures++
	}
	successes, failures := b.totalsLocked(b.now())
	total := successes + failures
	if total >= b.minRequests && float64(failures)/float64(total) >= b.failureRatio {
		b.transitionLocked(ctx, Open)
	}
}

// Do runs fn when the breaker allows it and reports the outcome. Errors
// accepted by the ignore predicate are returned but count as successes.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	if !b.Allow(ctx) {
		return ErrOpenCircuit
	}
	err := fn(ctx)
	b.Report(ctx, err == nil || b.ignored(err))
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// WithIgnore marks errors that describe a healthy dependency answering "no", such
// as a missing key, so they do not trip the breaker.
func (b *Breaker) WithIgnore(fn func(error) bool) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ignore = fn
	return b
}

// WithWindow sets the span of the rolling outcome window.
func (b *Breaker) WithWindow(d time.Duration) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if d >= buckets {
		b.span = d / buckets
	}
	return b
}

// WithTarget sets the dependency name used for metric labels and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if target = strings.TrimSpace(target); target != "" {
		b.target = target
	}
	BreakerState.WithLabelValues(b.target).Set(float64(b.state))
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// WithClock replaces the time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

func (b *Breaker) ignored(err error) bool {
	b.mu.Lock()
	fn := b.ignore
	b.mu.Unlock()
	return fn != nil && fn(err)
}

// bucketLocked returns the bucket covering t, recycling it when it holds
// outcomes from an earlier lap of the window.
func (b *Breaker) bucketLocked(t time.Time) *bucket {
	start := t.Truncate(b.span)
	cur := &b.window[(start.UnixNano()/int64(b.span))%buckets]
	if !cur.start.Equal(start) {
		*cur = bucket{start: start}
	}
	return cur
}

func (b *Breaker) totalsLocked(t time.Time) (successes, failures int) {
	oldest := t.Add(-b.span * buckets)
	for _, bk := range b.window {
		if bk.start.After(oldest) {
			successes += bk.successes
			failures += bk.failures
		}
	}
	return successes, failures
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
		b.window = [buckets]bucket{}
	}

	BreakerState.WithLabelValues(b.target).Set(float64(next))
	BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	if next == Open {
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	}

	evt := b.logger.Warn()
	if next == Closed {
		evt = b.logger.Info()
	}
	evt = evt.Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

// Backoff returns an exponential backoff duration for the provided attempt.
// Jitter is expressed as a fraction (e.g. 0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
