package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-gpa/internal/resilience"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock { return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)} }

func TestBreakerTransitions(t *testing.T) {
	clock := newClock()
	breaker := resilience.NewBreaker(2, 0.5, time.Second).WithClock(clock.now)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker opens once the threshold is reached")
	require.Equal(t, resilience.Open, breaker.State())

	clock.advance(time.Second)
	require.True(t, breaker.Allow(ctx), "one probe is admitted after the cool-off")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.False(t, breaker.Allow(ctx), "concurrent callers wait for the probe")

	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	clock := newClock()
	breaker := resilience.NewBreaker(1, 0.5, time.Second).WithClock(clock.now)
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())

	clock.advance(time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx), "cool-off restarts after a failed probe")
}

func TestBreakerForgetsOutcomesOutsideWindow(t *testing.T) {
	clock := newClock()
	breaker := resilience.NewBreaker(4, 0.5, time.Second).WithWindow(10 * time.Second).WithClock(clock.now)
	ctx := context.Background()

	breaker.Report(ctx, true)
	breaker.Report(ctx, true)
	clock.advance(11 * time.Second)

	breaker.Report(ctx, false)
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Closed, breaker.State(), "two outcomes in the window are below minRequests")
	breaker.Report(ctx, true)
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
}

func TestBreakerDo(t *testing.T) {
	notFound := errors.New("not found")
	down := errors.New("connection refused")
	breaker := resilience.NewBreaker(4, 0.5, time.Minute).
		WithIgnore(func(err error) bool { return errors.Is(err, notFound) }).
		WithClock(newClock().now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, breaker.Do(ctx, func(context.Context) error { return notFound }), notFound)
	}
	require.Equal(t, resilience.Closed, breaker.State(), "ignored errors must not trip the breaker")

	require.ErrorIs(t, breaker.Do(ctx, func(context.Context) error { return down }), down)
	require.ErrorIs(t, breaker.Do(ctx, func(context.Context) error { return down }), down)
	require.Equal(t, resilience.Open, breaker.State())

	called := false
	err := breaker.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}

func TestNilBreakerRunsCallback(t *testing.T) {
	var breaker *resilience.Breaker
	require.NoError(t, breaker.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, base*2-base*2/5)
	require.LessOrEqual(t, d, base*2+base*2/5)
}
