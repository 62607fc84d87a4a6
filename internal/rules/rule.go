// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package rules

import "strings"

// Type names a rule action kind as it appears in rule files.
type Type string

const (
	TypeGenreSimplification Type = "genre_simplification"
	TypeLibraryBoost        Type = "library_boost"
	TypeRecencyInterleaving Type = "recency_interleaving"
	TypeFeatureBoost        Type = "feature_boost"
	TypeFilterOptimization  Type = "filter_optimization"
	TypeRecencyDecay        Type = "recency_decay"
)

// Types lists every supported rule type in documentation order.
var Types = []Type{
	TypeGenreSimplification,
	TypeLibraryBoost,
	TypeRecencyInterleaving,
	TypeFeatureBoost,
	TypeFilterOptimization,
	TypeRecencyDecay,
}

// Rule is a pattern-triggered business rule. Rules are values: a matched
// rule is never modified for the rest of the request.
type Rule struct {
	ID          string `json:"id"`
	Type        Type   `json:"type"`
	Pattern     string `json:"pattern"`
	Priority    int    `json:"priority"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
	Action      Action `json:"action"`
}

// Action is the closed set of rule payloads. Only the types in this package
// implement it.
type Action interface {
	Type() Type
	isAction()
}

// GenreSimplification expands a query into taxonomy facets.
type GenreSimplification struct {
	AutoApplyFacets []string `json:"auto_apply_facets" validate:"min=1,dive,required"`
}

// LibraryBoost multiplies the score of tracks from the listed libraries.
type LibraryBoost struct {
	BoostLibraries []LibraryBoostEntry `json:"boost_libraries" validate:"min=1,dive"`
}

// LibraryBoostEntry is one library and its multiplier.
type LibraryBoostEntry struct {
	LibraryName string  `json:"library_name" validate:"required"`
	BoostFactor float64 `json:"boost_factor" validate:"gt=0"`
}

// FeatureBoost multiplies the score of tracks whose field equals a value.
type FeatureBoost struct {
	BoostField  string  `json:"boost_field" validate:"required"`
	BoostValue  string  `json:"boost_value" validate:"required"`
	BoostFactor float64 `json:"boost_factor" validate:"gt=0"`
}

// RecencyInterleaving mixes recent and vintage releases following Pattern.
type RecencyInterleaving struct {
	Pattern               string `json:"pattern" validate:"required,rvpattern"`
	RecentThresholdMonths int    `json:"recent_threshold_months" validate:"gte=1,lte=600"`
	VintageMaxMonths      int    `json:"vintage_max_months,omitempty" validate:"gte=0,lte=1200"`
	RepeatCount           int    `json:"repeat_count" validate:"gte=0,lte=1000"`
}

// Slots returns the R and V characters of Pattern. Anything else is
// dropped; slots are case-sensitive.
func (a RecencyInterleaving) Slots() string {
	var b strings.Builder
	for _, c := range a.Pattern {
		if c == 'R' || c == 'V' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Repeats returns RepeatCount, treating anything below one as one.
func (a RecencyInterleaving) Repeats() int {
	if a.RepeatCount < 1 {
		return 1
	}
	return a.RepeatCount
}

// FilterOptimization adds a structured filter to the search request.
type FilterOptimization struct {
	AutoApplyFilter Filter `json:"auto_apply_filter"`
}

// Filter is a single field predicate handed to the search source.
type Filter struct {
	Field    string `json:"field" validate:"required"`
	Value    string `json:"value" validate:"required"`
	Operator string `json:"operator,omitempty" validate:"omitempty,oneof=eq ne contains gte lte"`
}

// RecencyDecay scales scores down with release age. Paired with a preceding
// interleave it only annotates.
type RecencyDecay struct {
	HalfLifeMonths float64 `json:"half_life_months" validate:"gt=0"`
	MinFactor      float64 `json:"min_factor" validate:"gte=0,lte=1"`
}

func (GenreSimplification) Type() Type { return TypeGenreSimplification }
func (LibraryBoost) Type() Type        { return TypeLibraryBoost }
func (FeatureBoost) Type() Type        { return TypeFeatureBoost }
func (RecencyInterleaving) Type() Type { return TypeRecencyInterleaving }
func (FilterOptimization) Type() Type  { return TypeFilterOptimization }
func (RecencyDecay) Type() Type        { return TypeRecencyDecay }

func (GenreSimplification) isAction() {}
func (LibraryBoost) isAction()        {}
func (FeatureBoost) isAction()        {}
func (RecencyInterleaving) isAction() {}
func (FilterOptimization) isAction()  {}
func (RecencyDecay) isAction()        {}

// IDs returns the ids of rs in order.
func IDs(rs []Rule) []string {
	ids := make([]string, len(rs))
	for i := range rs {
		ids[i] = rs[i].ID
	}
	return ids
}
