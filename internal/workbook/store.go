package workbook

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-gpa/internal/resilience"
)

// ErrNotFound is returned when a workbook does not exist or has expired.
var ErrNotFound = errors.New("workbook not found")

// Store persists workbooks for the lifetime of a session.
type Store interface {
	Get(ctx context.Context, id string) (*Workbook, error)
	Save(ctx context.Context, wb *Workbook) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// RedisStore keeps workbooks as JSON under a per-workbook key with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore constructs a Redis backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "workbook:"}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Get loads the workbook with id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Workbook, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var wb Workbook
	if err := json.Unmarshal(data, &wb); err != nil {
		return nil, err
	}
	return &wb, nil
}

// Save writes wb and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, wb *Workbook) error {
	data, err := json.Marshal(wb)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(wb.ID), data, s.ttl).Err()
}

// Delete removes the workbook with id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryStore is a process-local Store used when Redis is not configured.
// Expired workbooks are evicted by the cache's background sweeper whether or
// not they are read again.
type MemoryStore struct {
	cache *ttlcache.Cache[string, []byte]
	once  sync.Once
}

// NewMemoryStore constructs an in-process store whose entries expire after ttl.
// Call Close to stop the expiry sweeper.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	opts := []ttlcache.Option[string, []byte]{ttlcache.WithDisableTouchOnHit[string, []byte]()}
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, []byte](ttl))
	}
	cache := ttlcache.New(opts...)
	go cache.Start()
	return &MemoryStore{cache: cache}
}

// Get loads the workbook with id. Reads do not extend the TTL.
func (s *MemoryStore) Get(_ context.Context, id string) (*Workbook, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrNotFound
	}
	var wb Workbook
	if err := json.Unmarshal(item.Value(), &wb); err != nil {
		return nil, err
	}
	return &wb, nil
}

// Save stores a copy of wb and refreshes its TTL.
func (s *MemoryStore) Save(_ context.Context, wb *Workbook) error {
	data, err := json.Marshal(wb)
	if err != nil {
		return err
	}
	s.cache.Set(wb.ID, data, ttlcache.DefaultTTL)
	return nil
}

// Delete removes the workbook with id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if s.cache.Get(id) == nil {
		return ErrNotFound
	}
	s.cache.Delete(id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports the number of entries held, including expired ones the sweeper
// has not reached yet.
func (s *MemoryStore) Len() int { return s.cache.Len() }

// Close stops the expiry sweeper. It is safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(s.cache.Stop)
}

// GuardedStore routes every call through a circuit breaker so a failing backend
// is short-circuited with resilience.ErrOpenCircuit.
type GuardedStore struct {
	Store   Store
	Breaker *resilience.Breaker
}

// NewGuardedStore wraps store with b. ErrNotFound does not count as a failure.
func NewGuardedStore(store Store, b *resilience.Breaker) *GuardedStore {
	b.WithIgnore(func(err error) bool { return errors.Is(err, ErrNotFound) })
	return &GuardedStore{Store: store, Breaker: b}
}

// Get loads the workbook with id.
func (g *GuardedStore) Get(ctx context.Context, id string) (*Workbook, error) {
	var wb *Workbook
	err := g.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		wb, err = g.Store.Get(ctx, id)
		return err
	})
	return wb, err
}

// Save writes wb.
func (g *GuardedStore) Save(ctx context.Context, wb *Workbook) error {
	return g.Breaker.Do(ctx, func(ctx context.Context) error { return g.Store.Save(ctx, wb) })
}

// Delete removes the workbook with id.
func (g *GuardedStore) Delete(ctx context.Context, id string) error {
	return g.Breaker.Do(ctx, func(ctx context.Context) error { return g.Store.Delete(ctx, id) })
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (g *GuardedStore) Ping(ctx context.Context) error {
	return g.Store.Ping(ctx)
}
