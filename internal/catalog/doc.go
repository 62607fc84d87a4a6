// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package catalog stores the production-music catalog in an embedded DuckDB
database and serves it as the search source.

Tables:

  - tracks: one row per track version, keyed by id
  - facets: taxonomy values (facet_id, category_name, facet_label)
  - track_facets: track to facet links derived from genre and additional_genres
  - similarities: ranked audio similarity lists per source track

Catalog implements search.Source (Search, SearchFacets, TracksByFacetIDs)
and adds track detail, similar tracks, and CSV import. Every query is timed
into the trackfinder_duckdb_query_duration_seconds histogram.

Usage:

	cat, err := catalog.New(&cfg.Database)
	if err != nil {
	    return err
	}
	defer cat.Close()

	if _, err := cat.Seed(ctx); err != nil {
	    return err
	}
	page, err := cat.Search(ctx, search.Query{Text: "upbeat rock", Limit: 12})
*/
package catalog
