// Package cache memoizes analysis and backtest results behind a pluggable store.
// Values are serialized as JSON so any store that holds bytes can back the cache.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"span-screener/observability"
)

// Cache namespaces
const (
	NamespaceAnalysis = "analysis"
	NamespaceBacktest = "backtest"
)

// Store holds raw cached values with a time to live.
// Get reports found=false for missing or expired entries.
type Store interface {
	Get(ctx context.Context, namespace, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

// Stats are cumulative counters since the cache was created
type Stats struct {
	Backend   string        `json:"backend"`
	TTL       time.Duration `json:"ttl"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Errors    int64         `json:"errors"`
	Evictions int64         `json:"evictions"`
}

// Cache is a cache-or-compute layer over a Store. Concurrent misses for the
// same key may each run the loader; the last write wins.
type Cache struct {
	store   Store
	backend string
	ttl     time.Duration
	metrics *observability.Metrics

	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache over store. backend is reported in Stats.
func New(store Store, backend string, ttl time.Duration, metrics *observability.Metrics) *Cache {
	return &Cache{store: store, backend: backend, ttl: ttl, metrics: metrics}
}

// GetOrCompute returns the cached value for namespace/key or runs loader and caches
// its result. Loader errors are returned and never cached. Store failures are logged
// and the value is computed as if the cache were empty.
func GetOrCompute[T any](ctx context.Context, c *Cache, namespace, key string, loader func(context.Context) (T, error)) (T, error) {
	if c == nil || c.store == nil {
		return loader(ctx)
	}

	raw, found, err := c.store.Get(ctx, namespace, key)
	if err != nil {
		c.errors.Add(1)
		observability.Warn("cache read failed, computing", "namespace", namespace, "key", key, "error", err)
	}
	if found {
		var cached T
		decodeErr := json.Unmarshal(raw, &cached)
		if decodeErr == nil {
			c.hits.Add(1)
			c.metrics.RecordCacheHit(namespace)
			return cached, nil
		}
		c.errors.Add(1)
		observability.Warn("discarding undecodable cache entry", "namespace", namespace, "key", key, "error", decodeErr)
	}

	c.misses.Add(1)
	c.metrics.RecordCacheMiss(namespace)

	value, err := loader(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		c.errors.Add(1)
		observability.Warn("cache encode failed", "namespace", namespace, "key", key, "error", err)
		return value, nil
	}
	if err := c.store.Set(ctx, namespace, key, encoded, c.ttl); err != nil {
		c.errors.Add(1)
		observability.Warn("cache write failed", "namespace", namespace, "key", key, "error", err)
	}
	return value, nil
}

// Evict removes namespace/key from the store
func (c *Cache) Evict(ctx context.Context, namespace, key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.Delete(ctx, namespace, key); err != nil {
		c.errors.Add(1)
		return err
	}
	c.evictions.Add(1)
	observability.Debug("cache entry evicted", "namespace", namespace, "key", key)
	return nil
}

// Stats returns a snapshot of the counters
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{Backend: "none"}
	}
	return Stats{
		Backend:   c.backend,
		TTL:       c.ttl,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Errors:    c.errors.Load(),
		Evictions: c.evictions.Load(),
	}
}
