// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"testing"

	"github.com/tomtom215/trackfinder/internal/models"
)

func scored(id string, score float64) models.Track {
	return models.Track{ID: id, RelevanceScore: score}
}

func trackIDs(tracks []models.Track) []string {
	ids := make([]string, len(tracks))
	for i := range tracks {
		ids[i] = tracks[i].ID
	}
	return ids
}

func equalIDs(got []models.Track, want ...string) bool {
	ids := trackIDs(got)
	if len(ids) != len(want) {
		return false
	}
	for i := range ids {
		if ids[i] != want[i] {
			return false
		}
	}
	return true
}

func TestMergeHybrid(t *testing.T) {
	t.Parallel()

	w := MergeWeights{TaxonomyBaseScore: 1.0, TextFallbackScore: 0.5}
	taxonomy := []models.Track{scored("a", 0), scored("b", 0)}
	text := []models.Track{scored("b", 0.8), scored("c", 0), scored("d", 1.2)}

	got := MergeHybrid(taxonomy, text, w)

	// n + m - overlap
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if !equalIDs(got, "b", "d", "a", "c") {
		t.Errorf("order = %v, want [b d a c]", trackIDs(got))
	}

	want := map[string]struct {
		score    float64
		combined bool
		taxonomy bool
	}{
		"b": {1.8, true, true},
		"d": {1.2, false, false},
		"a": {1.0, false, true},
		"c": {0.5, false, false},
	}
	for i := range got {
		tr := got[i]
		exp := want[tr.ID]
		if diff := tr.RelevanceScore - exp.score; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s score = %v, want %v", tr.ID, tr.RelevanceScore, exp.score)
		}
		if tr.Ranking == nil || tr.Ranking.ScoreBreakdown == nil {
			t.Fatalf("%s has no score breakdown", tr.ID)
		}
		sb := tr.Ranking.ScoreBreakdown
		if sb.Combined != exp.combined || sb.TaxonomyMatch != exp.taxonomy {
			t.Errorf("%s breakdown = %+v", tr.ID, *sb)
		}
	}
}

func TestMergeHybridTiesKeepTaxonomyFirst(t *testing.T) {
	t.Parallel()

	w := MergeWeights{TaxonomyBaseScore: 1.0, TextFallbackScore: 0.5}
	got := MergeHybrid([]models.Track{scored("tax", 0)}, []models.Track{scored("txt", 1.0)}, w)

	if !equalIDs(got, "tax", "txt") {
		t.Errorf("order = %v, want [tax txt]", trackIDs(got))
	}
}

func TestMergeHybridEmpty(t *testing.T) {
	t.Parallel()

	if got := MergeHybrid(nil, nil, MergeWeights{}); len(got) != 0 {
		t.Errorf("MergeHybrid(nil, nil) = %v, want empty", trackIDs(got))
	}
}
