// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// boostMatch decides whether a track is boosted and by how much.
type boostMatch func(t *models.Track) (factor float64, reason string, ok bool)

func libraryMatcher(a rules.LibraryBoost) boostMatch {
	return func(t *models.Track) (float64, string, bool) {
		lib := strings.TrimSpace(t.LibraryName)
		for _, entry := range a.BoostLibraries {
			if strings.EqualFold(lib, strings.TrimSpace(entry.LibraryName)) {
				return entry.BoostFactor, fmt.Sprintf("library %q boosted x%g", entry.LibraryName, entry.BoostFactor), true
			}
		}
		return 0, "", false
	}
}

func featureMatcher(a rules.FeatureBoost) boostMatch {
	want := strings.TrimSpace(a.BoostValue)
	return func(t *models.Track) (float64, string, bool) {
		values, known := t.FieldValues(a.BoostField)
		if !known {
			return 0, "", false
		}
		for _, v := range values {
			if strings.EqualFold(strings.TrimSpace(v), want) {
				return a.BoostFactor, fmt.Sprintf("%s=%s boosted x%g", a.BoostField, a.BoostValue, a.BoostFactor), true
			}
		}
		return 0, "", false
	}
}

// boost multiplies the score of matching tracks and re-sorts the list,
// unless an earlier interleave locked the order, in which case positions
// are kept and only scores change.
func (e *Executor) boost(st *pipelineState, r rules.Rule, match boostMatch) handlerResult {
	n := len(st.tracks)
	next := make([]models.Track, n)
	type hit struct {
		idx       int
		origScore float64
		factor    float64
		reason    string
	}
	var hits []hit

	for i := range st.tracks {
		t := st.tracks[i]
		factor, reason, ok := match(&t)
		if !ok {
			next[i] = t
			continue
		}
		hits = append(hits, hit{idx: i, origScore: t.RelevanceScore, factor: factor, reason: reason})
		next[i] = t.WithScore(t.RelevanceScore*factor).WithRanking(func(rk *models.Ranking) {
			rk.BoostApplied = append(rk.BoostApplied, models.BoostApplied{RuleID: r.ID, Factor: factor, Reason: reason})
		})
	}
	if len(hits) == 0 {
		return handlerResult{}
	}

	var origRank, finalRank []int
	out := next
	if st.orderLocked {
		origRank = identityRanks(n)
		finalRank = origRank
	} else {
		origRank = ranksByScore(st.tracks)
		perm := scoreOrder(next)
		out = make([]models.Track, n)
		finalRank = make([]int, n)
		for pos, idx := range perm {
			out[pos] = next[idx]
			finalRank[idx] = pos + 1
		}
	}

	adjustments := make([]ScoreAdjustment, 0, len(hits))
	for _, h := range hits {
		reason := h.reason
		if st.orderLocked {
			reason += " (order kept from recency interleaving)"
		}
		adjustments = append(adjustments, ScoreAdjustment{
			TrackID:         next[h.idx].ID,
			RuleID:          r.ID,
			OriginalRank:    origRank[h.idx],
			OriginalScore:   h.origScore,
			NewScore:        next[h.idx].RelevanceScore,
			ScoreMultiplier: h.factor,
			FinalRank:       finalRank[h.idx],
			RankChange:      origRank[h.idx] - finalRank[h.idx],
			Reason:          reason,
		})
	}

	return handlerResult{applied: true, tracks: out, affected: len(hits), adjustments: adjustments}
}

// interleave replaces the order with the recent/vintage pattern and locks it.
func (e *Executor) interleave(st *pipelineState, a rules.RecencyInterleaving) handlerResult {
	cfg := NewRecencyConfig(a, st.now)
	recent, vintage := Bucketize(st.tracks, cfg.RecentThreshold)
	out := Interleave(recent, vintage, cfg.Pattern, cfg.RepeatCount)
	st.orderLocked = true
	return handlerResult{applied: true, tracks: out, affected: len(out)}
}

// decay scales scores by release age. After an interleave it only records
// the decayed score for display; otherwise it rescores like a boost.
func (e *Executor) decay(st *pipelineState, r rules.Rule, a rules.RecencyDecay) handlerResult {
	if !st.orderLocked {
		return e.boost(st, r, func(t *models.Track) (float64, string, bool) {
			f := decayFactor(t.ReleaseDate, st.now, a)
			return f, fmt.Sprintf("recency decay x%.3f", f), true
		})
	}

	out := make([]models.Track, len(st.tracks))
	for i := range st.tracks {
		t := st.tracks[i]
		decayed := t.RelevanceScore * decayFactor(t.ReleaseDate, st.now, a)
		out[i] = t.WithRanking(func(rk *models.Ranking) { rk.DecayScore = &decayed })
	}
	return handlerResult{applied: true, tracks: out, affected: len(out)}
}

const daysPerMonth = 30.44

// decayFactor halves every HalfLifeMonths of age, floored at MinFactor.
// Unknown dates get the floor; future dates get 1.
func decayFactor(releaseDate string, now time.Time, a rules.RecencyDecay) float64 {
	d, ok := ParseReleaseDate(releaseDate)
	if !ok {
		return a.MinFactor
	}
	ageMonths := now.Sub(d).Hours() / 24 / daysPerMonth
	if ageMonths <= 0 {
		return 1
	}
	f := math.Pow(0.5, ageMonths/a.HalfLifeMonths)
	return math.Max(f, a.MinFactor)
}

func identityRanks(n int) []int {
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = i + 1
	}
	return ranks
}

// scoreOrder returns indexes of tracks stable-sorted by score descending.
func scoreOrder(tracks []models.Track) []int {
	perm := make([]int, len(tracks))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return tracks[perm[a]].RelevanceScore > tracks[perm[b]].RelevanceScore
	})
	return perm
}

// ranksByScore returns the 1-based score rank of every track.
func ranksByScore(tracks []models.Track) []int {
	ranks := make([]int, len(tracks))
	for pos, idx := range scoreOrder(tracks) {
		ranks[idx] = pos + 1
	}
	return ranks
}
