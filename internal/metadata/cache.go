package metadata

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Cache decorates a Provider with per-key replay of the last successful
// fetch. Entries are replaced wholesale on success and never mutated in
// place; failures are not cached, so a provider that recovers is picked up
// on the next lookup.
//
// Thread Safety:
//
//	Cache is safe for concurrent use. Identical concurrent lookups share a
//	single call to the underlying provider.
type Cache struct {
	next    Provider
	flight  singleflight.Group
	limiter *rate.Limiter
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry

	hits   atomic.Int64
	misses atomic.Int64
	calls  atomic.Int64
}

type cacheEntry struct {
	value   any
	fetched time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL expires entries after ttl. Zero keeps entries until Invalidate.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithRateLimit limits calls to the underlying provider. A non-positive
// limit disables limiting.
func WithRateLimit(perSecond float64, burst int) CacheOption {
	return func(c *Cache) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLookupTimeout bounds each call to the underlying provider.
func WithLookupTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.timeout = d }
}

// withClock replaces the time source (tests).
func withClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache wraps next.
func NewCache(next Provider, opts ...CacheOption) *Cache {
	c := &Cache{
		next:    next,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64
	Misses int64
	Calls  int64 // calls that reached the underlying provider
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Calls:  c.calls.Load(),
	}
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// ListEntities implements Provider.
func (c *Cache) ListEntities(ctx context.Context) ([]Entity, error) {
	return cached(ctx, c, "entities", func(ctx context.Context) ([]Entity, error) {
		return c.next.ListEntities(ctx)
	})
}

// ListAttributes implements Provider.
func (c *Cache) ListAttributes(ctx context.Context, entityName string) ([]Attribute, error) {
	return cached(ctx, c, "attributes|"+Key(entityName), func(ctx context.Context) ([]Attribute, error) {
		return c.next.ListAttributes(ctx, entityName)
	})
}

// ListOptionSetValues implements Provider.
func (c *Cache) ListOptionSetValues(ctx context.Context, entityName, attributeName string, kind OptionSetKind) ([]Option, error) {
	key := fmt.Sprintf("options|%s|%s|%s", Key(entityName), Key(attributeName), kind)
	return cached(ctx, c, key, func(ctx context.Context) ([]Option, error) {
		return c.next.ListOptionSetValues(ctx, entityName, attributeName, kind)
	})
}

// ListRelationships implements Provider.
func (c *Cache) ListRelationships(ctx context.Context, entityName string) ([]Relationship, error) {
	return cached(ctx, c, "relationships|"+Key(entityName), func(ctx context.Context) ([]Relationship, error) {
		return c.next.ListRelationships(ctx, entityName)
	})
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.fetched) > c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, fetched: c.now()}
	c.mu.Unlock()
}

// cached serves key from the cache or fetches it once for all concurrent
// callers. The shared fetch is detached from any single caller's
// cancellation; each caller still stops waiting when its own ctx ends.
func cached[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v.(T), nil
	}
	c.misses.Add(1)

	ch := c.flight.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.timeout)
			defer cancel()
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(fetchCtx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}

		c.calls.Add(1)
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
