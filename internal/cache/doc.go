// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package cache provides a generic, thread-safe in-memory cache with TTL
expiration.

# Overview

TTL[K, V] stores values of any type under any comparable key:
  - a single mutex guards the map and the statistics
  - expired entries are never returned; Get removes them lazily
  - Sweep removes every expired entry and is safe to call repeatedly
  - an optional capacity bound drops the entry closest to expiry
  - the clock is injectable for tests

The search service keeps its reranked working sets here, keyed by the
normalized query and the ids of the matched rules.

# Usage

	c := cache.NewTTL[search.CacheKey, *search.CacheEntry](5*time.Minute,
	    cache.WithMaxEntries(1000))

	c.Set(key, entry)
	if e, ok := c.Get(key); ok {
	    // serve from e
	}

	// Background sweeping, usually under a supervisor:
	go c.Run(ctx, time.Minute)

# Statistics

GetStats returns hits, misses, evictions and the current key count.
WithEvictionHook lets callers export evictions as metrics without this
package importing them.
*/
package cache
