// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/ranking"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// CacheKey identifies one reranked working set: the normalized request and
// the ids of the rules that shaped it, sorted and comma-joined.
type CacheKey struct {
	Query   string
	RuleIDs string
}

// CacheEntry is a reranked working set.
type CacheEntry struct {
	Tracks           []models.Track
	Total            int
	TotalVersions    int
	AppliedRules     []ranking.AppliedRule
	ScoreAdjustments []ranking.ScoreAdjustment
	Timestamp        time.Time
}

// NormalizeQuery lower-cases q and collapses whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// NewCacheKey builds the key for req under the matched rules. Structured
// facets and filters are folded into the query part in a canonical order.
func NewCacheKey(req *Request, matched []rules.Rule) CacheKey {
	parts := []string{NormalizeQuery(req.Query)}

	cats := make([]string, 0, len(req.Facets))
	for c := range req.Facets {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		labels := make([]string, 0, len(req.Facets[c]))
		for _, l := range req.Facets[c] {
			labels = append(labels, NormalizeQuery(l))
		}
		sort.Strings(labels)
		parts = append(parts, "@"+NormalizeQuery(c)+":"+strings.Join(labels, "|"))
	}

	filters := make([]string, 0, len(req.Filters))
	for _, f := range req.Filters {
		filters = append(filters, "@"+NormalizeQuery(f.Field)+" "+operator(f)+" "+NormalizeQuery(f.Value))
	}
	sort.Strings(filters)
	parts = append(parts, filters...)

	ids := rules.IDs(matched)
	sort.Strings(ids)

	return CacheKey{
		Query:   strings.Join(parts, " "),
		RuleIDs: strings.Join(ids, ","),
	}
}

func operator(f rules.Filter) string {
	if f.Operator == "" {
		return "eq"
	}
	return f.Operator
}
