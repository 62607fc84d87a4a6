// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package catalog

import (
	"context"
	"fmt"
)

// schemaQueries create the catalog tables. additional_genres keeps the
// ';'-separated facet ids of the source CSV; track_facets is the
// normalized form used for facet lookups. release_on is the parsed
// apm_release_date (NULL when missing or unparsable).
//
// DuckDB cannot upsert a column referenced by an index, so upserted tables
// carry no secondary indexes. Link tables have no keys; they are rebuilt
// by delete-then-insert and deduplicated on write.
var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		track_title TEXT NOT NULL DEFAULT '',
		track_description TEXT NOT NULL DEFAULT '',
		bpm INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		album_title TEXT NOT NULL DEFAULT '',
		library_name TEXT NOT NULL DEFAULT '',
		composer TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		additional_genres TEXT NOT NULL DEFAULT '',
		apm_release_date TEXT NOT NULL DEFAULT '',
		release_on DATE,
		has_stems BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS facets (
		facet_id TEXT PRIMARY KEY,
		category_name TEXT NOT NULL,
		facet_label TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS track_facets (
		track_id TEXT NOT NULL,
		facet_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS similarities (
		source_track_id TEXT NOT NULL,
		similar_track_id TEXT NOT NULL,
		rank INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_track_facets_facet ON track_facets(facet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_similarities_source ON similarities(source_track_id)`,
}

func (c *Catalog) createSchema(ctx context.Context) error {
	for _, query := range schemaQueries {
		if _, err := c.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}
