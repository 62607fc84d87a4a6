// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats tracks cache performance.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// HitRate returns hits as a percentage of lookups.
//
//nolint:gocritic // small value type
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// TTL is a thread-safe in-memory cache whose entries expire after a fixed
// duration. Expired entries are removed lazily on Get and in bulk by Sweep.
// A stale entry is never returned.
type TTL[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	onEvict    func(n int)
	stats      Stats
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	now        func() time.Time
	maxEntries int
	onEvict    func(n int)
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxEntries bounds the number of live entries. When full, the entry
// closest to expiry is dropped to make room. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithEvictionHook is called with the number of entries removed by every
// expiry, capacity eviction, Delete, or Clear.
func WithEvictionHook(fn func(n int)) Option {
	return func(o *options) { o.onEvict = fn }
}

// NewTTL creates a cache whose entries live for ttl. A non-positive ttl
// falls back to five minutes.
//
// Example:
//
//	c := cache.NewTTL[string, []models.Track](5 * time.Minute)
//	c.Set("k", tracks)
//	if v, ok := c.Get("k"); ok {
//	    // use v
//	}
func NewTTL[K comparable, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[K, V]{
		entries:    make(map[K]entry[V]),
		ttl:        ttl,
		maxEntries: o.maxEntries,
		now:        o.now,
		onEvict:    o.onEvict,
		stats:      Stats{LastCleanup: o.now()},
	}
}

// Get returns the value for key if present and not expired. An expired
// entry is removed and counted as a miss.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.stats.Misses++
		c.stats.Evictions++
		c.stats.TotalKeys = int64(len(c.entries))
		c.mu.Unlock()
		c.evicted(1)
		return zero, false
	}
	c.stats.Hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a custom TTL.
func (c *TTL[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	now := c.now()
	evicted := 0

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		evicted = c.evictLocked(now)
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	c.stats.TotalKeys = int64(len(c.entries))
	c.mu.Unlock()

	c.evicted(evicted)
}

// evictLocked drops expired entries, or failing that the one closest to
// expiry. Linear in the cache size; callers bound the size.
func (c *TTL[K, V]) evictLocked(now time.Time) int {
	n := c.sweepLocked(now)
	if n > 0 {
		return n
	}
	var (
		victim K
		oldest time.Time
		found  bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(oldest) {
			victim, oldest, found = k, e.expiresAt, true
		}
	}
	if !found {
		return 0
	}
	delete(c.entries, victim)
	c.stats.Evictions++
	return 1
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	_, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		c.stats.Evictions++
		c.stats.TotalKeys = int64(len(c.entries))
	}
	c.mu.Unlock()

	if ok {
		c.evicted(1)
	}
}

// DeleteFunc removes every entry whose key satisfies match and returns how
// many were removed.
func (c *TTL[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	n := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Evictions += int64(n)
	c.stats.TotalKeys = int64(len(c.entries))
	c.mu.Unlock()

	c.evicted(n)
	return n
}

// Clear removes all entries.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[K]entry[V])
	c.stats.Evictions += int64(n)
	c.stats.TotalKeys = 0
	c.mu.Unlock()

	c.evicted(n)
}

// Sweep removes all expired entries and returns how many were removed.
// Calling it again without new expirations removes nothing.
func (c *TTL[K, V]) Sweep() int {
	now := c.now()
	c.mu.Lock()
	n := c.sweepLocked(now)
	c.stats.LastCleanup = now
	c.mu.Unlock()

	c.evicted(n)
	return n
}

func (c *TTL[K, V]) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Evictions += int64(n)
	c.stats.TotalKeys = int64(len(c.entries))
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the cache statistics.
func (c *TTL[K, V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Run sweeps expired entries every interval until ctx is done. It always
// returns ctx.Err().
func (c *TTL[K, V]) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *TTL[K, V]) evicted(n int) {
	if n > 0 && c.onEvict != nil {
		c.onEvict(n)
	}
}

// GenerateKey creates a compact string key from a method name and any
// JSON-serializable parameters.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
