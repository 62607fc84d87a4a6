// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package search runs a ranked, paginated search on top of a catalog Source.
//
// For every request the Service matches rules against the query, asks the
// ranking executor for hints, and then picks one pagination state:
//
//   - within_interleave_bounds: a single recency rule is the only reorder and
//     the page starts inside the interleaved pattern. The page is assembled
//     from two range fetches (recent and vintage) whose offsets come from
//     ranking.LayoutPage.
//   - beyond_bounds_no_rules: nothing rescores or reorders. The source page is
//     returned as is.
//   - beyond_bounds_with_cache: a working set is fetched, reranked once, cached
//     for the configured TTL and sliced into pages. Concurrent misses for the
//     same key share one build.
//
// Only a Source failure is returned as an error. BreakerSource wraps any
// Source with a circuit breaker.
package search
