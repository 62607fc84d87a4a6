// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// AppliedRule records one rule that took effect.
type AppliedRule struct {
	RuleID         string     `json:"ruleId"`
	Type           rules.Type `json:"type"`
	Description    string     `json:"description"`
	AffectedTracks int        `json:"affectedTracks"`
}

// NewAppliedRule describes r as applied to affected tracks.
//
//nolint:gocritic // Rule is an immutable value type
func NewAppliedRule(r rules.Rule, affected int) AppliedRule {
	return AppliedRule{
		RuleID:         r.ID,
		Type:           r.Action.Type(),
		Description:    r.Description,
		AffectedTracks: affected,
	}
}

// ScoreAdjustment records how one rule moved one track. Ranks are 1-based;
// a positive RankChange means the track moved up.
type ScoreAdjustment struct {
	TrackID         string  `json:"trackId"`
	RuleID          string  `json:"ruleId"`
	OriginalRank    int     `json:"originalRank"`
	OriginalScore   float64 `json:"originalScore"`
	NewScore        float64 `json:"newScore"`
	ScoreMultiplier float64 `json:"scoreMultiplier"`
	FinalRank       int     `json:"finalRank"`
	RankChange      int     `json:"rankChange"`
	Reason          string  `json:"reason"`
}

// Result is the outcome of running matched rules over a track list.
type Result struct {
	Tracks           []models.Track    `json:"results"`
	AppliedRules     []AppliedRule     `json:"appliedRules"`
	ScoreAdjustments []ScoreAdjustment `json:"scoreAdjustments"`
}

// Hints is what the matched rules ask of the search step before any
// tracks exist.
type Hints struct {
	// Facets are taxonomy labels to expand the query with.
	Facets []string
	// Filters are structured predicates to add to the search request.
	Filters []rules.Filter
	// Recency is set when a recency_interleaving rule matched (first one wins).
	Recency *RecencyConfig
	// ScoreMutating is true when any matched rule rescores or reorders tracks.
	ScoreMutating bool
	// DualQueryEligible is true when recency interleaving is the only rule
	// touching order or scores, so pages can be built from per-bucket fetches.
	DualQueryEligible bool
}

// handlerResult is what one rule handler reports back to the reducer.
type handlerResult struct {
	applied     bool
	tracks      []models.Track // nil = unchanged
	affected    int
	adjustments []ScoreAdjustment
}

// pipelineState is threaded through the handlers of one Apply call.
type pipelineState struct {
	tracks []models.Track
	now    time.Time
	// orderLocked is set once an intentional reorder (interleaving) ran.
	// Later score-mutating rules keep the order and only rescore.
	orderLocked bool
}

// Executor applies matched rules to a track list.
type Executor struct {
	logger zerolog.Logger
	now    func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithClock overrides the clock used for recency thresholds.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an Executor.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewExecutor(logger zerolog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger: logger.With().Str("component", "rule_executor").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan derives the pre-search hints from matched rules.
func (e *Executor) Plan(matched []rules.Rule) Hints {
	var h Hints
	seenFacet := make(map[string]struct{})
	reorders := false

	for i := range matched {
		switch a := matched[i].Action.(type) {
		case rules.GenreSimplification:
			for _, f := range a.AutoApplyFacets {
				if _, ok := seenFacet[f]; !ok {
					seenFacet[f] = struct{}{}
					h.Facets = append(h.Facets, f)
				}
			}
		case rules.FilterOptimization:
			h.Filters = append(h.Filters, a.AutoApplyFilter)
		case rules.RecencyInterleaving:
			h.ScoreMutating = true
			if h.Recency == nil {
				cfg := NewRecencyConfig(a, e.now())
				h.Recency = &cfg
			} else {
				reorders = true
			}
		case rules.LibraryBoost, rules.FeatureBoost, rules.RecencyDecay:
			h.ScoreMutating = true
			reorders = true
		}
	}

	h.DualQueryEligible = h.Recency != nil && !reorders && h.Recency.Bound() > 0
	return h
}

// Apply runs matched rules in order. Each rule sees the output of the
// previous one, so the result depends on rule order and not on rule type.
// Apply never fails; a rule that cannot be applied is skipped.
func (e *Executor) Apply(ctx context.Context, tracks []models.Track, matched []rules.Rule) Result {
	st := &pipelineState{
		tracks: append([]models.Track(nil), tracks...),
		now:    e.now(),
	}
	res := Result{
		AppliedRules:     []AppliedRule{},
		ScoreAdjustments: []ScoreAdjustment{},
	}
	log := logging.Ctx(ctx)

	for i := range matched {
		r := matched[i]

		var hr handlerResult
		switch a := r.Action.(type) {
		case rules.GenreSimplification:
			hr = handlerResult{applied: true}
		case rules.FilterOptimization:
			hr = handlerResult{applied: true}
		case rules.LibraryBoost:
			hr = e.boost(st, r, libraryMatcher(a))
		case rules.FeatureBoost:
			hr = e.boost(st, r, featureMatcher(a))
		case rules.RecencyInterleaving:
			hr = e.interleave(st, a)
		case rules.RecencyDecay:
			hr = e.decay(st, r, a)
		default:
			// Only reachable for a Rule built by hand with a nil Action.
			e.logger.Warn().Str("rule_id", r.ID).Str("type", string(r.Type)).Msg("rule has no usable action, skipping")
			continue
		}

		if !hr.applied {
			continue
		}
		if hr.tracks != nil {
			st.tracks = hr.tracks
		}
		res.AppliedRules = append(res.AppliedRules, NewAppliedRule(r, hr.affected))
		res.ScoreAdjustments = append(res.ScoreAdjustments, hr.adjustments...)
		metrics.RecordRuleApplied(string(r.Action.Type()))

		log.Debug().
			Str("rule_id", r.ID).
			Str("type", string(r.Action.Type())).
			Int("affected", hr.affected).
			Bool("order_locked", st.orderLocked).
			Msg("rule applied")
	}

	res.Tracks = st.tracks
	return res
}
