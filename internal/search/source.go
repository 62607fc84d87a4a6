// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"context"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// ReleaseDateField is the catalog field recency ranges apply to.
const ReleaseDateField = "apm_release_date"

// Query is a request to the search source.
type Query struct {
	// Text is free text matched against the catalog's text fields.
	Text string
	// FacetsByCategory restricts results to tracks tagged with any of the
	// listed facet labels in every listed category.
	FacetsByCategory map[string][]string
	// FieldFilters are structured predicates that must all hold.
	FieldFilters []rules.Filter
	// Ranges restrict date fields.
	Ranges []DateRange
	// Limit of zero asks only for the totals.
	Limit  int
	Offset int
}

// DateRange selects From <= field < To. A nil bound is open. Tracks whose
// date is missing or unparsable are included only with IncludeUndated.
type DateRange struct {
	Field          string
	From           *time.Time
	To             *time.Time
	IncludeUndated bool
}

// Source is the catalog search backend. Results are ordered by relevance,
// highest first, with a stable tie-break.
type Source interface {
	Search(ctx context.Context, q Query) (models.SearchPage, error)
	SearchFacets(ctx context.Context, term string, categories []string) ([]models.Facet, error)
	TracksByFacetIDs(ctx context.Context, ids []string, limit, offset int) (models.SearchPage, error)
}
