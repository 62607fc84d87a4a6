// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/ranking"
)

// fakeSource serves an in-memory catalog that is already in relevance
// order. Free text is ignored; filters, ranges and facets are honored.
type fakeSource struct {
	mu     sync.Mutex
	tracks []models.Track
	facets []models.Facet
	err    error

	// gate, when set, holds every Search until it is closed. entered gets
	// a value each time a Search starts waiting.
	gate    chan struct{}
	entered chan struct{}

	searches    atomic.Int64
	facetCalls  atomic.Int64
	facetTracks atomic.Int64
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSource) Search(ctx context.Context, q Query) (models.SearchPage, error) {
	f.searches.Add(1)
	if err := ctx.Err(); err != nil {
		return models.SearchPage{}, err
	}
	if err := f.failure(); err != nil {
		return models.SearchPage{}, err
	}
	if f.gate != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return models.SearchPage{}, ctx.Err()
		}
	}

	var hits []models.Track
	for i := range f.tracks {
		t := f.tracks[i]
		if MatchesFilters(&t, q.FieldFilters) && inRanges(&t, q.Ranges) {
			hits = append(hits, t)
		}
	}
	return paginate(hits, q.Limit, q.Offset), nil
}

func (f *fakeSource) SearchFacets(_ context.Context, term string, _ []string) ([]models.Facet, error) {
	f.facetCalls.Add(1)
	if err := f.failure(); err != nil {
		return nil, err
	}
	var out []models.Facet
	for _, fc := range f.facets {
		if strings.Contains(strings.ToLower(fc.Label), strings.ToLower(term)) {
			out = append(out, fc)
		}
	}
	return out, nil
}

func (f *fakeSource) TracksByFacetIDs(_ context.Context, ids []string, limit, offset int) (models.SearchPage, error) {
	f.facetTracks.Add(1)
	if err := f.failure(); err != nil {
		return models.SearchPage{}, err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var hits []models.Track
	for i := range f.tracks {
		t := f.tracks[i]
		tagged := want[t.Genre]
		for _, g := range t.AdditionalGenres {
			tagged = tagged || want[g]
		}
		if tagged {
			hits = append(hits, t)
		}
	}
	return paginate(hits, limit, offset), nil
}

func paginate(hits []models.Track, limit, offset int) models.SearchPage {
	page := models.SearchPage{Total: len(hits), TotalVersions: len(hits)}
	if limit <= 0 || offset >= len(hits) {
		return page
	}
	end := min(offset+limit, len(hits))
	page.Tracks = append([]models.Track(nil), hits[offset:end]...)
	return page
}

func inRanges(t *models.Track, ranges []DateRange) bool {
	for _, r := range ranges {
		d, ok := ranking.ParseReleaseDate(t.ReleaseDate)
		if !ok {
			if !r.IncludeUndated {
				return false
			}
			continue
		}
		if r.From != nil && d.Before(*r.From) {
			return false
		}
		if r.To != nil && !d.Before(*r.To) {
			return false
		}
	}
	return true
}

// catalog builds n tracks with descending scores. dateFor decides the
// release date of track i.
func catalog(n int, dateFor func(i int) string) []models.Track {
	out := make([]models.Track, n)
	for i := range out {
		out[i] = models.Track{
			ID:             fmt.Sprintf("t%02d", i+1),
			Title:          fmt.Sprintf("Track %d", i+1),
			RelevanceScore: float64(n-i) / float64(n),
			ReleaseDate:    dateFor(i),
		}
	}
	return out
}

var _ Source = (*fakeSource)(nil)
