// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/breaker"
	"github.com/tomtom215/trackfinder/internal/models"
)

// BreakerSource guards a Source with a circuit breaker. Caller
// cancellation does not count as a source failure.
type BreakerSource struct {
	next Source
	cb   *breaker.Breaker
}

// NewBreakerSource wraps next.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBreakerSource(next Source, settings breaker.Settings, logger zerolog.Logger) *BreakerSource {
	ignore := func(err error) bool {
		return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	}
	return &BreakerSource{
		next: next,
		cb:   breaker.New("search-source", settings, logger, ignore),
	}
}

// State returns the breaker state for health reporting.
func (s *BreakerSource) State() string { return s.cb.State() }

func (s *BreakerSource) Search(ctx context.Context, q Query) (models.SearchPage, error) {
	return breaker.Do(s.cb, func() (models.SearchPage, error) {
		return s.next.Search(ctx, q)
	})
}

func (s *BreakerSource) SearchFacets(ctx context.Context, term string, categories []string) ([]models.Facet, error) {
	return breaker.Do(s.cb, func() ([]models.Facet, error) {
		return s.next.SearchFacets(ctx, term, categories)
	})
}

func (s *BreakerSource) TracksByFacetIDs(ctx context.Context, ids []string, limit, offset int) (models.SearchPage, error) {
	return breaker.Do(s.cb, func() (models.SearchPage, error) {
		return s.next.TracksByFacetIDs(ctx, ids, limit, offset)
	})
}

var _ Source = (*BreakerSource)(nil)
