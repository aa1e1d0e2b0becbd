package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-gpa/internal/resilience"
)

// DefaultTTL bounds how long a holder may keep a lock.
const DefaultTTL = 5 * time.Second

// ErrNotAcquired wraps the context error when a lock could not be taken in time.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker runs fn while holding an exclusive lock for key. fn receives a
// context that ends when the lock lease does.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker provides a Redis-backed lock shared by every API instance.
type RedisLocker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock polls SET NX with jittered backoff until the lock is taken or ctx
// ends. The lock is released by token, so an expired lease never deletes a
// lock taken over by another holder.
func (l RedisLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	base := l.RetryBackoff
	if base <= 0 {
		base = 20 * time.Millisecond
	}
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
			}
			return err
		}
		if ok {
			break
		}
		wait := resilience.Backoff(base, min(attempt, 4), 0.2)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}

	defer func() {
		_ = releaseScript.Run(context.Background(), l.R, []string{key}, token).Err()
	}()
	leaseCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	return fn(leaseCtx)
}
