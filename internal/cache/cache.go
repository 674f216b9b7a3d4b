// Package cache provides the stale-time cache used by the read-heavy
// dashboard endpoints. Values are JSON documents stored under string keys
// with a TTL; concurrent misses for the same key share a single load.
//
// Two stores are available: Redis (shared between replicas) and an
// in-process map for development and tests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	// Get returns the value and true, or false when the key is absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result (hit, miss, error).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheLookups)
}

// loadTimeout bounds a shared load once it is detached from the caller that
// started it.
const loadTimeout = 30 * time.Second

// Cache layers JSON encoding and in-flight de-duplication over a Store.
// A nil *Cache is valid and always loads.
type Cache struct {
	store Store
	log   zerolog.Logger
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64 // invalidation count per prefix
}

// New returns a Cache over store. Store errors are logged and treated as
// misses so a cache outage never fails a request.
func New(store Store, log zerolog.Logger) *Cache {
	return &Cache{store: store, log: log}
}

// Invalidate drops every cached entry whose key starts with prefix. Loads
// already in flight for such keys still answer their callers but do not
// write their result back.
func (c *Cache) Invalidate(ctx context.Context, prefix string) {
	if c == nil || c.store == nil {
		return
	}
	c.mu.Lock()
	if c.gens == nil {
		c.gens = map[string]uint64{}
	}
	c.gens[prefix]++
	c.mu.Unlock()

	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		c.log.Warn().Err(err).Str("prefix", prefix).Msg("cache invalidate failed")
	}
}

// generation sums the invalidation counts of every prefix covering key.
func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generationLocked(key)
}

func (c *Cache) generationLocked(key string) uint64 {
	var g uint64
	for p, n := range c.gens {
		if strings.HasPrefix(key, p) {
			g += n
		}
	}
	return g
}

// GetOrLoad returns the cached value for key, or calls load, caches its
// result for ttl, and returns it. Concurrent callers with the same key wait
// for one load. Load errors are returned and never cached.
//
// The shared load runs detached from any single caller's cancellation, with
// ctx values kept and loadTimeout as its deadline. Each caller still stops
// waiting when its own ctx is done.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.store == nil {
		return load(ctx)
	}

	var zero T
	if b, ok, err := c.store.Get(ctx, key); err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	} else if ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			return v, nil
		}
		c.log.Warn().Str("key", key).Msg("cache entry undecodable; reloading")
	}
	cacheLookups.WithLabelValues("miss").Inc()

	gen := c.generation(key)
	flight := key + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		v, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(lctx, key, gen, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		v, _ := r.Val.(T)
		return v, nil
	}
}

// storeIfCurrent writes v unless key was invalidated since gen was taken.
// Holding mu across the check and the write orders it against Invalidate.
func (c *Cache) storeIfCurrent(ctx context.Context, key string, gen uint64, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generationLocked(key) != gen {
		c.log.Debug().Str("key", key).Msg("cache invalidated during load; not storing")
		return
	}
	if err := c.store.Set(ctx, key, b, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Redis is a Store backed by go-redis.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis { return &Redis{client: client} }

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, val, ttl).Err()
}

// DeletePrefix implements Store using SCAN so large keyspaces are not
// blocked.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Memory is an in-process Store. Expired entries are dropped lazily.
type Memory struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

type memItem struct {
	val     []byte
	expires time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{items: map[string]memItem{}, now: time.Now}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !it.expires.IsZero() && !m.now().Before(it.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return it.val, true, nil
}

// Set implements Store. A non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := memItem{val: append([]byte(nil), val...)}
	if ttl > 0 {
		it.expires = m.now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

// DeletePrefix implements Store.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}
