package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	redis "github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// ReplayedHeader is set on responses served from the idempotency store.
const ReplayedHeader = "Idempotent-Replayed"

// IdemStore holds idempotency records. Reserve claims key and reports false
// when it is already held. Load reports found=false for an unknown key.
type IdemStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Load(ctx context.Context, key string) (raw []byte, found bool, err error)
	Put(ctx context.Context, key string, raw []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RedisIdemStore keeps idempotency records in Redis so every replica shares them.
type RedisIdemStore struct {
	Client *redis.Client
}

func (s RedisIdemStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, pendingMarker, ttl).Result()
}

func (s RedisIdemStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s RedisIdemStore) Put(ctx context.Context, key string, raw []byte, ttl time.Duration) error {
	return s.Client.Set(ctx, key, raw, ttl).Err()
}

func (s RedisIdemStore) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// MemoryIdemStore keeps idempotency records in process when Redis is not configured.
type MemoryIdemStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, []byte]
	once  sync.Once
}

// NewMemoryIdemStore starts an in-process store. Call Close to stop its expiry sweeper.
func NewMemoryIdemStore() *MemoryIdemStore {
	cache := ttlcache.New(ttlcache.WithDisableTouchOnHit[string, []byte]())
	go cache.Start()
	return &MemoryIdemStore{cache: cache}
}

func (s *MemoryIdemStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Get(key) != nil {
		return false, nil
	}
	s.cache.Set(key, []byte(pendingMarker), ttl)
	return true, nil
}

func (s *MemoryIdemStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (s *MemoryIdemStore) Put(_ context.Context, key string, raw []byte, ttl time.Duration) error {
	s.cache.Set(key, raw, ttl)
	return nil
}

func (s *MemoryIdemStore) Release(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Close stops the expiry sweeper. It is safe to call more than once.
func (s *MemoryIdemStore) Close() {
	s.once.Do(s.cache.Stop)
}

// Idem stores the first response for an Idempotency-Key and replays it for
// later requests carrying the same key on the same route.
type Idem struct {
	Store IdemStore
	TTL   time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Location    string `json:"location,omitempty"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

func hashKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency for write endpoints. Without a store or an
// Idempotency-Key header it is a no-op.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.Store == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := hashKey(r, header)
		ok, err := i.Store.Reserve(ctx, key, i.ttl())
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key)
			return
		}

		cw := &captureWriter{ResponseWriter: w}
		completed := false
		defer func() {
			// a panicking or failing handler releases the key so the client can retry
			if !completed {
				_ = i.Store.Release(context.Background(), key)
			}
		}()
		next.ServeHTTP(cw, r)
		if cw.status == 0 || cw.status >= http.StatusInternalServerError {
			return
		}
		snapshot, err := json.Marshal(storedResponse{
			Status:      cw.status,
			ContentType: cw.Header().Get("Content-Type"),
			Location:    cw.Header().Get("Location"),
			Body:        cw.buf.Bytes(),
		})
		if err != nil {
			return
		}
		completed = i.Store.Put(context.Background(), key, snapshot, i.ttl()) == nil
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, found, err := i.Store.Load(ctx, key)
	if err != nil {
		JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "idempotency store unavailable", nil)
		return
	}
	if !found || string(raw) == pendingMarker {
		JSONError(w, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is in progress", nil)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	if stored.Location != "" {
		w.Header().Set("Location", stored.Location)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 10 * time.Minute
	}
	return i.TTL
}
