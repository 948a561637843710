package pricefeed

import (
	"coinlab/internal/engine"
	"coinlab/internal/metrics"
	"coinlab/types"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheTTL        = 15 * time.Minute
	DefaultCacheMaxEntries = 256
)

// Cache memoizes another provider per (coin, start, end). Concurrent misses for the
// same key share one upstream call. Errors are not cached. Entries expire after the
// TTL, and the oldest entry is evicted once the cache is full.
type Cache struct {
	upstream   engine.PriceProvider
	group      singleflight.Group
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	prices    []types.PricePoint
	fetchedAt time.Time
}

type CacheOption func(*Cache)

// WithTTL sets how long a fetched series is served. Zero or negative disables expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxEntries caps the number of cached ranges. Zero or negative means unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) { c.maxEntries = n }
}

func NewCache(upstream engine.PriceProvider, opts ...CacheOption) *Cache {
	c := &Cache{
		upstream:   upstream,
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) GetPriceHistory(ctx context.Context, coin string, start, end time.Time) ([]types.PricePoint, error) {
	key := fmt.Sprintf("%s|%s|%s", coin, start.Format(dateLayout), end.Format(dateLayout))

	if prices, ok := c.lookup(key); ok {
		metrics.PriceFetches.WithLabelValues("cache", "hit").Inc()
		return prices, nil
	}

	// The shared fetch must outlive any single caller; each caller still honours its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		prices, err := c.upstream.GetPriceHistory(flightCtx, coin, start, end)
		if err != nil {
			return nil, err
		}
		c.store(key, prices)
		return prices, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		metrics.PriceFetches.WithLabelValues("cache", "miss").Inc()
		return res.Val.([]types.PricePoint), nil
	}
}

func (c *Cache) lookup(key string) ([]types.PricePoint, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry.prices, true
}

func (c *Cache) expired(entry cacheEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.fetchedAt) >= c.ttl
}

func (c *Cache) store(key string, prices []types.PricePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{prices: prices, fetchedAt: c.now()}
}

// evictLocked drops expired entries, or the oldest one when none have expired.
func (c *Cache) evictLocked() {
	var (
		oldestKey string
		oldest    time.Time
		dropped   bool
	)
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			dropped = true
			continue
		}
		if oldestKey == "" || e.fetchedAt.Before(oldest) {
			oldestKey, oldest = k, e.fetchedAt
		}
	}
	if !dropped && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len reports the number of cached ranges, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops every cached series.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
