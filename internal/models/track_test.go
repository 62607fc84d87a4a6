// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestWithRankingDoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	orig := Track{ID: "t1", Ranking: &Ranking{BoostApplied: []BoostApplied{{RuleID: "a", Factor: 2}}}}
	next := orig.WithRanking(func(r *Ranking) {
		r.BoostApplied = append(r.BoostApplied, BoostApplied{RuleID: "b", Factor: 3})
		r.RecencyBucket = "recent"
	})

	if len(orig.Ranking.BoostApplied) != 1 {
		t.Errorf("original boosts mutated: %+v", orig.Ranking.BoostApplied)
	}
	if orig.Ranking.RecencyBucket != "" {
		t.Errorf("original bucket mutated: %q", orig.Ranking.RecencyBucket)
	}
	if len(next.Ranking.BoostApplied) != 2 || next.Ranking.RecencyBucket != "recent" {
		t.Errorf("unexpected copy: %+v", next.Ranking)
	}
}

func TestWithScoreClampsNegative(t *testing.T) {
	t.Parallel()

	if got := (Track{RelevanceScore: 1}).WithScore(-4).RelevanceScore; got != 0 {
		t.Errorf("WithScore(-4) = %v, want 0", got)
	}
	if got := (Track{}).WithScore(2.5).RelevanceScore; got != 2.5 {
		t.Errorf("WithScore(2.5) = %v, want 2.5", got)
	}
}

func TestFieldValues(t *testing.T) {
	t.Parallel()

	tr := Track{
		ID:               "RCK_RCK_0100_00101",
		LibraryName:      "Stock Library",
		AdditionalGenres: []string{"1352", "2131"},
		HasStems:         true,
		BPM:              120,
	}

	tests := []struct {
		field string
		want  []string
		ok    bool
	}{
		{"library_name", []string{"Stock Library"}, true},
		{"LIBRARY", []string{"Stock Library"}, true},
		{"additional_genres", []string{"1352", "2131"}, true},
		{"has_stems", []string{"true"}, true},
		{"bpm", []string{"120"}, true},
		{"mood", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			t.Parallel()
			got, ok := tr.FieldValues(tt.field)
			if ok != tt.ok {
				t.Fatalf("FieldValues(%q) ok = %v, want %v", tt.field, ok, tt.ok)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FieldValues(%q) = %v, want %v", tt.field, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FieldValues(%q)[%d] = %q, want %q", tt.field, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTrackJSONOmitsEmptyRanking(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Track{ID: "t1", Title: "Good Rockin Tonight A"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["_ranking"]; ok {
		t.Errorf("expected _ranking to be omitted, got %s", data)
	}
	if raw["track_title"] != "Good Rockin Tonight A" {
		t.Errorf("unexpected track_title: %v", raw["track_title"])
	}
}
