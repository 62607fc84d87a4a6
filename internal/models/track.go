// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package models

import (
	"strconv"
	"strings"
)

// Track is a catalog track as returned by the search source.
type Track struct {
	ID               string   `json:"id"`
	Title            string   `json:"track_title"`
	Description      string   `json:"track_description,omitempty"`
	BPM              int      `json:"bpm,omitempty"`
	Duration         int      `json:"duration,omitempty"` // seconds
	AlbumTitle       string   `json:"album_title,omitempty"`
	LibraryName      string   `json:"library_name,omitempty"`
	Composer         string   `json:"composer,omitempty"`
	Genre            string   `json:"genre,omitempty"`             // facet id of the master genre
	AdditionalGenres []string `json:"additional_genres,omitempty"` // facet ids
	ReleaseDate      string   `json:"apm_release_date,omitempty"`  // MM/DD/YYYY or YYYY-MM-DD
	HasStems         bool     `json:"has_stems"`

	RelevanceScore float64  `json:"relevance_score"`
	Ranking        *Ranking `json:"_ranking,omitempty"`
}

// Ranking carries the transparency data attached while a track moves
// through the ranking pipeline.
type Ranking struct {
	ScoreBreakdown *ScoreBreakdown `json:"score_breakdown,omitempty"`
	BoostApplied   []BoostApplied  `json:"boost_applied,omitempty"`
	RecencyBucket  string          `json:"recency_bucket,omitempty"`
	DecayScore     *float64        `json:"decay_score,omitempty"`
}

// ScoreBreakdown explains a hybrid (taxonomy + text) score.
type ScoreBreakdown struct {
	TaxonomyMatch bool    `json:"taxonomy_match"`
	TextScore     float64 `json:"text_score"`
	Combined      bool    `json:"combined"`
}

// BoostApplied records one score multiplier applied by a rule.
type BoostApplied struct {
	RuleID string  `json:"rule_id"`
	Factor float64 `json:"factor"`
	Reason string  `json:"reason"`
}

// Clone returns a deep copy of r. A nil receiver yields an empty Ranking.
func (r *Ranking) Clone() *Ranking {
	if r == nil {
		return &Ranking{}
	}
	out := &Ranking{RecencyBucket: r.RecencyBucket}
	if r.ScoreBreakdown != nil {
		sb := *r.ScoreBreakdown
		out.ScoreBreakdown = &sb
	}
	if len(r.BoostApplied) > 0 {
		out.BoostApplied = append([]BoostApplied(nil), r.BoostApplied...)
	}
	if r.DecayScore != nil {
		d := *r.DecayScore
		out.DecayScore = &d
	}
	return out
}

// WithScore returns a copy of t with the given relevance score. Negative
// scores are clamped to zero.
//
//nolint:gocritic // Track is an immutable value type
func (t Track) WithScore(score float64) Track {
	if score < 0 {
		score = 0
	}
	t.RelevanceScore = score
	return t
}

// WithRanking returns a copy of t whose Ranking has been modified by fn.
// The original Ranking is left untouched.
//
//nolint:gocritic // Track is an immutable value type
func (t Track) WithRanking(fn func(r *Ranking)) Track {
	r := t.Ranking.Clone()
	fn(r)
	t.Ranking = r
	return t
}

// FieldValues returns the string values of a named catalog field for
// attribute matching. List fields yield one value per element. The second
// return is false for unknown field names.
//
//nolint:gocritic // Track is an immutable value type
func (t Track) FieldValues(field string) ([]string, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "id":
		return []string{t.ID}, true
	case "track_title", "title":
		return []string{t.Title}, true
	case "track_description", "description":
		return []string{t.Description}, true
	case "bpm":
		return []string{strconv.Itoa(t.BPM)}, true
	case "duration":
		return []string{strconv.Itoa(t.Duration)}, true
	case "album_title", "album":
		return []string{t.AlbumTitle}, true
	case "library_name", "library":
		return []string{t.LibraryName}, true
	case "composer":
		return []string{t.Composer}, true
	case "genre":
		return []string{t.Genre}, true
	case "additional_genres":
		return t.AdditionalGenres, true
	case "apm_release_date", "release_date":
		return []string{t.ReleaseDate}, true
	case "has_stems":
		return []string{strconv.FormatBool(t.HasStems)}, true
	default:
		return nil, false
	}
}

// Facet is a categorized taxonomy value.
type Facet struct {
	ID       string `json:"facet_id"`
	Category string `json:"category_name"`
	Label    string `json:"facet_label"`
}

// SearchPage is one page of results from a search source.
type SearchPage struct {
	Tracks        []Track `json:"tracks"`
	Total         int     `json:"total"`
	TotalVersions int     `json:"total_versions,omitempty"`
}
