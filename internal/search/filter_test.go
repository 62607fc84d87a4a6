// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"testing"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	track := &models.Track{
		ID:               "t1",
		Title:            "Good Rockin' Tonight",
		BPM:              128,
		LibraryName:      "Stock Library",
		AdditionalGenres: []string{"1103", "2001"},
		ReleaseDate:      "06/15/2023",
		HasStems:         true,
	}

	tests := []struct {
		name   string
		filter rules.Filter
		want   bool
	}{
		{"eq default operator", rules.Filter{Field: "library_name", Value: "stock library"}, true},
		{"eq mismatch", rules.Filter{Field: "library_name", Value: "Other", Operator: "eq"}, false},
		{"ne", rules.Filter{Field: "library_name", Value: "Other", Operator: "ne"}, true},
		{"ne list member", rules.Filter{Field: "additional_genres", Value: "2001", Operator: "ne"}, false},
		{"contains", rules.Filter{Field: "track_title", Value: "ROCKIN", Operator: "contains"}, true},
		{"list eq", rules.Filter{Field: "additional_genres", Value: "1103"}, true},
		{"bool", rules.Filter{Field: "has_stems", Value: "true"}, true},
		{"numeric gte", rules.Filter{Field: "bpm", Value: "120", Operator: "gte"}, true},
		{"numeric lte", rules.Filter{Field: "bpm", Value: "120", Operator: "lte"}, false},
		{"numeric not lexical", rules.Filter{Field: "bpm", Value: "99", Operator: "gte"}, true},
		{"date gte across formats", rules.Filter{Field: "apm_release_date", Value: "2023-01-01", Operator: "gte"}, true},
		{"date lte", rules.Filter{Field: "release_date", Value: "2023-01-01", Operator: "lte"}, false},
		{"unknown field ignored", rules.Filter{Field: "mood", Value: "happy"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MatchesFilter(track, tt.filter); got != tt.want {
				t.Errorf("MatchesFilter(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestMatchesFiltersRequiresAll(t *testing.T) {
	t.Parallel()

	track := &models.Track{BPM: 90, HasStems: false}
	filters := []rules.Filter{
		{Field: "bpm", Value: "80", Operator: "gte"},
		{Field: "has_stems", Value: "true"},
	}
	if MatchesFilters(track, filters) {
		t.Error("expected a failing filter to reject the track")
	}
	if !MatchesFilters(track, nil) {
		t.Error("no filters should accept every track")
	}
}
