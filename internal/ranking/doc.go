// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package ranking turns raw search results into the final, explained order.
//
// It provides three building blocks and the executor that drives them:
//
//   - MergeHybrid unifies taxonomy (facet) matches with free-text matches.
//   - Bucketize and Interleave split tracks by release date and mix them
//     following an R/V pattern; LayoutPage computes the same order for a
//     single page from bucket sizes alone.
//   - Executor.Apply runs matched rules in priority order as a sequential
//     reducer and records AppliedRules and ScoreAdjustments.
//
// Executor.Plan inspects matched rules before any search happens and
// reports the facets, filters and recency settings the search step needs.
//
// Once a recency interleave has run, the order is locked: later boosts
// still rescore tracks but do not move them.
package ranking
