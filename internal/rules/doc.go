// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package rules models PM-configurable business rules and selects the ones
// that apply to a query.
//
// A Rule couples a case-insensitive regular expression with a typed Action.
// Actions form a closed set (GenreSimplification, LibraryBoost, FeatureBoost,
// RecencyInterleaving, FilterOptimization, RecencyDecay); unknown types are
// rejected while decoding so they never reach the ranking pipeline.
//
// Rules are served through a Provider as immutable, versioned Snapshots.
// FileProvider reads a YAML/JSON file with koanf and reloads it on change or
// on an explicit Reload call:
//
//	provider, err := rules.NewFileProvider(ctx, "rules.yaml", logger)
//	matcher := rules.NewMatcher(logger)
//	matched := matcher.Match("upbeat rockabilly", provider.Snapshot().Rules)
//
// Match never fails: a rule whose pattern does not compile is logged and
// skipped.
package rules
