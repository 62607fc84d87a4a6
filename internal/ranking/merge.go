// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"sort"

	"github.com/tomtom215/trackfinder/internal/models"
)

// MergeWeights are the constants of the hybrid merge. They are loaded from
// the search.weights configuration section, the same place the catalog's
// field weights live.
type MergeWeights struct {
	// TaxonomyBaseScore is the uniform score of a facet (taxonomy) match.
	TaxonomyBaseScore float64
	// TextFallbackScore is used for a text match that carries no score.
	TextFallbackScore float64
}

type mergeEntry struct {
	track     models.Track
	taxonomy  bool
	hasText   bool
	textScore float64
	score     float64
}

// MergeHybrid unifies taxonomy matches with free-text matches.
//
// Taxonomy tracks score TaxonomyBaseScore; text tracks keep their relevance
// score (TextFallbackScore when unscored). A track found in both sets scores
// the sum and is marked combined. The result is deduplicated by id and
// stable-sorted by score descending, so ties keep first-seen order with
// taxonomy tracks ahead of text-only ones.
func MergeHybrid(taxonomy, text []models.Track, w MergeWeights) []models.Track {
	index := make(map[string]int, len(taxonomy)+len(text))
	entries := make([]mergeEntry, 0, len(taxonomy)+len(text))

	for i := range taxonomy {
		t := taxonomy[i]
		if _, dup := index[t.ID]; dup {
			continue
		}
		index[t.ID] = len(entries)
		entries = append(entries, mergeEntry{track: t, taxonomy: true, score: w.TaxonomyBaseScore})
	}

	for i := range text {
		t := text[i]
		score := t.RelevanceScore
		if score <= 0 {
			score = w.TextFallbackScore
		}

		if at, ok := index[t.ID]; ok {
			e := &entries[at]
			if e.hasText {
				continue
			}
			e.hasText = true
			e.textScore = score
			e.score += score
			continue
		}

		index[t.ID] = len(entries)
		entries = append(entries, mergeEntry{track: t, hasText: true, textScore: score, score: score})
	}

	out := make([]models.Track, len(entries))
	for i := range entries {
		e := entries[i]
		out[i] = e.track.WithScore(e.score).WithRanking(func(r *models.Ranking) {
			r.ScoreBreakdown = &models.ScoreBreakdown{
				TaxonomyMatch: e.taxonomy,
				TextScore:     e.textScore,
				Combined:      e.taxonomy && e.hasText,
			}
		})
	}

	sortByScore(out)
	return out
}

// sortByScore stable-sorts tracks by relevance score, highest first.
func sortByScore(tracks []models.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].RelevanceScore > tracks[j].RelevanceScore
	})
}
