// Package cache implements the gateway's response cache: a bounded LRU of
// opaque JSON payloads with per-entry TTLs and single-flight fills.
//
// For any key at most one fill runs at a time; concurrent callers for that
// key wait for and share its result or its failure. Failures are never stored,
// so the next caller after a failed fill starts a fresh one. A caller that
// gives up waiting does not cancel a fill other callers may still be waiting
// on.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-gateway/internal/metrics"
)

// DefaultCapacity bounds the cache when no positive capacity is configured.
const DefaultCapacity = 1024

// Entry is a stored payload with its freshness window.
type Entry struct {
	Key       string
	Payload   json.RawMessage
	FetchedAt time.Time
	TTL       time.Duration
}

func (e Entry) expired(now time.Time) bool {
	return e.TTL > 0 && !now.Before(e.FetchedAt.Add(e.TTL))
}

// Stats is a point-in-time view of cache occupancy and effectiveness.
type Stats struct {
	Entries   int     `json:"entries"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Fills     uint64  `json:"fills"`
	Coalesced uint64  `json:"coalesced"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// FillFunc produces the payload for a missing key.
type FillFunc func(ctx context.Context) (json.RawMessage, error)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger.Named("cache")
		}
	}
}

// WithMetrics records cache lookups and occupancy.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is safe for concurrent use. Create instances with New and release
// them with Purge at shutdown.
type Cache struct {
	entries  *lru.Cache[string, Entry]
	group    singleflight.Group
	capacity int
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics

	hits      atomic.Uint64
	misses    atomic.Uint64
	fills     atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most capacity entries.
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	c := &Cache{
		entries:  entries,
		capacity: capacity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the payload stored under key if present and fresh.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	payload, ok := c.lookup(key)
	c.record(ok)
	return payload, ok
}

// Put stores payload under key for ttl. Invalid JSON is refused.
func (c *Cache) Put(key string, payload json.RawMessage, ttl time.Duration) {
	if !json.Valid(payload) {
		c.logger.Warn("refusing to cache invalid payload", zap.String("key", key))
		return
	}
	evicted := c.entries.Add(key, Entry{
		Key:       key,
		Payload:   payload,
		FetchedAt: c.now(),
		TTL:       ttl,
	})
	if evicted {
		c.evictions.Add(1)
		c.metrics.CacheEviction()
	}
	c.metrics.CacheEntries(c.entries.Len())
}

// Fetch returns the cached payload for key, or runs fill once on behalf of
// every concurrent caller for key and stores its result for ttl.
//
// If ctx ends before the shared fill completes, Fetch returns ctx.Err() and
// the fill keeps running for the remaining waiters.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, fill FillFunc) (json.RawMessage, error) {
	if payload, ok := c.lookup(key); ok {
		c.record(true)
		return payload, nil
	}
	c.record(false)

	ch := c.group.DoChan(key, func() (any, error) {
		// Another fill may have finished between our lookup and now.
		if payload, ok := c.lookup(key); ok {
			return payload, nil
		}
		c.fills.Add(1)
		payload, err := fill(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Put(key, payload, ttl)
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		payload, _ := res.Val.(json.RawMessage)
		return payload, nil
	}
}

// Remove drops key from the cache.
func (c *Cache) Remove(key string) {
	c.entries.Remove(key)
	c.metrics.CacheEntries(c.entries.Len())
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
	c.metrics.CacheEntries(0)
}

// Len returns the number of stored entries, including expired ones not yet
// read.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Entries:   c.entries.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fills:     c.fills.Load(),
		Evictions: c.evictions.Load(),
	}
	if s.Misses > s.Fills {
		s.Coalesced = s.Misses - s.Fills
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// lookup reads key without touching counters. Expired or corrupt entries are
// removed and reported as misses.
func (c *Cache) lookup(key string) (json.RawMessage, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		c.entries.Remove(key)
		return nil, false
	}
	if !json.Valid(e.Payload) {
		c.logger.Warn("dropping corrupt cache entry", zap.String("key", key))
		c.entries.Remove(key)
		return nil, false
	}
	return e.Payload, true
}

func (c *Cache) record(hit bool) {
	if hit {
		c.hits.Add(1)
		c.metrics.CacheLookup("hit")
		return
	}
	c.misses.Add(1)
	c.metrics.CacheLookup("miss")
}
