// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package rules

import (
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/metrics"
)

// Matcher selects the rules whose pattern matches a query.
//
// Compiled patterns are cached by source text, so an invalid pattern is
// reported once and then skipped silently on later queries.
type Matcher struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp // nil value = invalid pattern
}

// NewMatcher creates a Matcher.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMatcher(logger zerolog.Logger) *Matcher {
	return &Matcher{
		logger:   logger.With().Str("component", "rule_matcher").Logger(),
		compiled: make(map[string]*regexp.Regexp),
	}
}

// Match returns the enabled rules whose pattern matches query
// case-insensitively, ordered by priority descending. Rules with equal
// priority keep their configuration order.
func (m *Matcher) Match(query string, all []Rule) []Rule {
	matched := make([]Rule, 0, 4)
	for i := range all {
		r := all[i]
		if !r.Enabled || r.Action == nil {
			continue
		}
		re := m.pattern(r)
		if re == nil || !re.MatchString(query) {
			continue
		}
		matched = append(matched, r)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	for i := range matched {
		metrics.RecordRuleMatched(string(matched[i].Type))
	}
	return matched
}

func (m *Matcher) pattern(r Rule) *regexp.Regexp {
	m.mu.RLock()
	re, ok := m.compiled[r.Pattern]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("rule_id", r.ID).
			Str("pattern", r.Pattern).
			Msg("invalid rule pattern, skipping rule")
		re = nil
	}

	m.mu.Lock()
	m.compiled[r.Pattern] = re
	m.mu.Unlock()
	return re
}

// Retain drops the cached compilations of patterns not used by any rule in
// all and returns how many were dropped. Invalid patterns that are still
// configured stay cached, so they are not reported again.
func (m *Matcher) Retain(all []Rule) int {
	keep := make(map[string]struct{}, len(all))
	for i := range all {
		keep[all[i].Pattern] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for p := range m.compiled {
		if _, ok := keep[p]; !ok {
			delete(m.compiled, p)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of cached patterns.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.compiled)
}
