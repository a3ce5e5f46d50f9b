// Package cache provides the process-wide caches for compiled routing
// algorithms and constraint graphs: immutable values published atomically
// per key, with a pluggable invalidation bus for multi-instance deployments.
package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Key addresses one cache entry. Prefix carries the tenant's key prefix for
// multi-tenant isolation; Key is the stable per-entry grammar.
type Key struct {
	Key    string
	Prefix string
}

// FullKey renders the complete addressable key.
func (k Key) FullKey() string {
	if k.Prefix == "" {
		return k.Key
	}
	return k.Prefix + ":" + k.Key
}

// Cache maps full keys to shared immutable values. Entries have two states,
// absent and present; publication is last-writer-wins and atomic per key.
// Concurrent loaders may both compute and both publish; no deduplication is
// performed.
type Cache[T any] struct {
	name string
	id   string

	mu      sync.RWMutex
	entries map[string]T

	bus     Bus
	metrics *cacheMetrics
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	bus        Bus
	registerer prometheus.Registerer
}

// WithBus attaches an invalidation bus. Pushes notify peers through it and
// peer notifications evict local entries.
func WithBus(bus Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithRegisterer registers the cache's counters on the given registerer.
// Without it the counters exist but are not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New creates a named cache. The name labels its metrics and must be unique
// per registerer.
func New[T any](name string, opts ...Option) *Cache[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[T]{
		name:    name,
		id:      uuid.NewString(),
		entries: make(map[string]T),
		bus:     o.bus,
		metrics: newCacheMetrics(name, o.registerer),
	}

	if c.bus != nil {
		c.bus.Subscribe(c.id, func(n Notification) {
			if n.Origin == c.id {
				return
			}
			c.drop(n.Key)
		})
	}
	return c
}

// Get returns the value published under the key, if present.
func (c *Cache[T]) Get(_ context.Context, key Key) (T, bool) {
	c.mu.RLock()
	value, ok := c.entries[key.FullKey()]
	c.mu.RUnlock()

	if ok {
		c.metrics.hits.Inc()
	} else {
		c.metrics.misses.Inc()
	}
	return value, ok
}

// Push publishes a value under the key and notifies peers. Idempotent;
// republishing the same key overwrites.
func (c *Cache[T]) Push(ctx context.Context, key Key, value T) {
	full := key.FullKey()

	c.mu.Lock()
	c.entries[full] = value
	c.mu.Unlock()

	c.metrics.pushes.Inc()
	if c.bus != nil {
		_ = c.bus.Publish(ctx, Notification{Key: full, Origin: c.id})
	}
}

// Invalidate evicts the key locally and notifies peers. Idempotent.
func (c *Cache[T]) Invalidate(ctx context.Context, key Key) {
	full := key.FullKey()
	c.drop(full)
	if c.bus != nil {
		_ = c.bus.Publish(ctx, Notification{Key: full, Origin: c.id})
	}
}

// MarkRefresh records a load-through refresh that published a new entry.
// Callers own the refresh path; the cache only keeps the count.
func (c *Cache[T]) MarkRefresh() {
	c.metrics.refreshes.Inc()
}

// MarkRefreshFailure records a refresh that failed before publication.
func (c *Cache[T]) MarkRefreshFailure() {
	c.metrics.refreshFailures.Inc()
}

func (c *Cache[T]) drop(fullKey string) {
	c.mu.Lock()
	delete(c.entries, fullKey)
	c.mu.Unlock()
	c.metrics.evictions.Inc()
}

// Len reports the number of published entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
