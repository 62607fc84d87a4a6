// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"strconv"
	"strings"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/ranking"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// MatchesFilters reports whether t satisfies every filter. Filters on
// unknown fields are ignored, as the catalog does.
func MatchesFilters(t *models.Track, filters []rules.Filter) bool {
	for i := range filters {
		if !MatchesFilter(t, filters[i]) {
			return false
		}
	}
	return true
}

// MatchesFilter evaluates one filter against t. Comparisons are
// case-insensitive; gte and lte compare numerically, then as release
// dates, then as strings.
func MatchesFilter(t *models.Track, f rules.Filter) bool {
	values, known := t.FieldValues(f.Field)
	if !known {
		return true
	}
	want := strings.TrimSpace(f.Value)

	switch operator(f) {
	case "ne":
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(v), want) {
				return false
			}
		}
		return true
	case "contains":
		w := strings.ToLower(want)
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), w) {
				return true
			}
		}
		return false
	case "gte", "lte":
		for _, v := range values {
			c, ok := compare(strings.TrimSpace(v), want)
			if !ok {
				continue
			}
			if (f.Operator == "gte" && c >= 0) || (f.Operator == "lte" && c <= 0) {
				return true
			}
		}
		return false
	default:
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(v), want) {
				return true
			}
		}
		return false
	}
}

// compare orders a against b. The second result is false when a is empty
// or the two values are not comparable.
func compare(a, b string) (int, bool) {
	if a == "" {
		return 0, false
	}
	if x, err := strconv.ParseFloat(a, 64); err == nil {
		if y, err := strconv.ParseFloat(b, 64); err == nil {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if x, ok := ranking.ParseReleaseDate(a); ok {
		if y, ok := ranking.ParseReleaseDate(b); ok {
			return x.Compare(y), true
		}
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b)), true
}
