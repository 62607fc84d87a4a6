// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"testing"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

func TestParseReleaseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"03/15/2024", "2024-03-15", true},
		{"3/5/2024", "2024-03-05", true},
		{"2024-03-15", "2024-03-15", true},
		{"2024-03-15T10:00:00Z", "2024-03-15", true},
		{"03/15/2024 00:00", "2024-03-15", true},
		{"  2020-01-01 ", "2020-01-01", true},
		{"", "", false},
		{"unknown", "", false},
		{"2024/03/15", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseReleaseDate(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("got %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestNewRecencyConfig(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 15, 30, 0, 0, time.UTC)
	cfg := NewRecencyConfig(rules.RecencyInterleaving{
		Pattern:               "R-R-V",
		RecentThresholdMonths: 24,
		VintageMaxMonths:      120,
		RepeatCount:           3,
	}, now)

	if cfg.Pattern != "RRV" || cfg.RepeatCount != 3 || cfg.Bound() != 9 {
		t.Errorf("cfg = %+v", cfg)
	}
	if want := time.Date(2024, 10, 17, 0, 0, 0, 0, time.UTC); !cfg.RecentThreshold.Equal(want) {
		t.Errorf("RecentThreshold = %v, want %v", cfg.RecentThreshold, want)
	}
	if cfg.VintageMax == nil || !cfg.VintageMax.Equal(time.Date(2016, 10, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("VintageMax = %v", cfg.VintageMax)
	}

	noMax := NewRecencyConfig(rules.RecencyInterleaving{Pattern: "RV", RecentThresholdMonths: 6}, now)
	if noMax.VintageMax != nil {
		t.Errorf("VintageMax = %v, want nil", noMax.VintageMax)
	}
	if noMax.RepeatCount != 1 {
		t.Errorf("RepeatCount = %d, want 1", noMax.RepeatCount)
	}
}

func TestBucketize(t *testing.T) {
	t.Parallel()

	threshold := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracks := []models.Track{
		{ID: "new-us", ReleaseDate: "06/01/2025"},
		{ID: "old-iso", ReleaseDate: "1999-12-31"},
		{ID: "edge", ReleaseDate: "2024-01-01"},
		{ID: "blank"},
		{ID: "garbage", ReleaseDate: "soon"},
		{ID: "new-iso", ReleaseDate: "2024-02-02"},
	}

	recent, vintage := Bucketize(tracks, threshold)

	if !equalIDs(recent, "new-us", "edge", "new-iso") {
		t.Errorf("recent = %v", trackIDs(recent))
	}
	if !equalIDs(vintage, "old-iso", "blank", "garbage") {
		t.Errorf("vintage = %v", trackIDs(vintage))
	}
	for i := range recent {
		if recent[i].Ranking == nil || recent[i].Ranking.RecencyBucket != BucketRecent {
			t.Errorf("%s not annotated as recent", recent[i].ID)
		}
	}
	for i := range vintage {
		if vintage[i].Ranking == nil || vintage[i].Ranking.RecencyBucket != BucketVintage {
			t.Errorf("%s not annotated as vintage", vintage[i].ID)
		}
	}
	if tracks[0].Ranking != nil {
		t.Error("input track was mutated")
	}
}
