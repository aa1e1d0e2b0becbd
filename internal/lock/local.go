package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// LocalLocker serializes callers within one process. The ttl bounds the
// callback context the same way RedisLocker's lease does.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker constructs an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

// WithLock executes fn once no other caller holds key. It returns
// ErrNotAcquired wrapping ctx.Err() if ctx ends first.
func (l *LocalLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	kl := l.acquireRef(key)
	defer l.releaseRef(key, kl)

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
	}
	defer func() { <-kl.ch }()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	leaseCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	return fn(leaseCtx)
}

func (l *LocalLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *LocalLocker) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
