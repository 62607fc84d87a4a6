// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/ranking"
)

// GetTrack returns one track by id, or ErrNotFound.
func (c *Catalog) GetTrack(ctx context.Context, id string) (t models.Track, err error) {
	start := time.Now()
	defer func() { observe("get_track", start, err) }()

	rows, err := c.conn.QueryContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE id = ?", strings.TrimSpace(id))
	if err != nil {
		return models.Track{}, fmt.Errorf("get track %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Track{}, fmt.Errorf("get track %s: %w", id, err)
		}
		return models.Track{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return scanTrack(rows, false)
}

// TrackExists reports whether id is in the catalog.
func (c *Catalog) TrackExists(ctx context.Context, id string) (bool, error) {
	_, err := c.GetTrack(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// SimilarTracks returns the tracks listed as similar to id, in similarity
// order. hasStems, when set, keeps only tracks with (or without) stems.
// Similar ids missing from the catalog are skipped.
func (c *Catalog) SimilarTracks(ctx context.Context, id string, hasStems *bool, limit int) (tracks []models.Track, err error) {
	start := time.Now()
	defer func() { observe("similar_tracks", start, err) }()

	if _, err := c.GetTrack(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	wb := newWhereBuilder()
	wb.addClause("s.source_track_id = ?", strings.TrimSpace(id))
	if hasStems != nil {
		wb.addClause("t.has_stems = ?", *hasStems)
	}
	where, args := wb.build()

	query := fmt.Sprintf(`SELECT t.id, t.track_title, t.track_description, t.bpm, t.duration, t.album_title,
			t.library_name, t.composer, t.genre, t.additional_genres, t.apm_release_date, t.has_stems
		FROM similarities s
		JOIN tracks t ON t.id = s.similar_track_id
		WHERE %s
		ORDER BY s.rank ASC, t.id ASC
		LIMIT ?`, where)

	rows, err := c.conn.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("similar tracks for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrack(rows, false)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar tracks: %w", err)
	}
	return tracks, nil
}

// AddTracks upserts tracks and rebuilds their facet tags from genre and
// additional_genres.
func (c *Catalog) AddTracks(ctx context.Context, tracks []models.Track) (err error) {
	start := time.Now()
	defer func() { observe("add_tracks", start, err) }()

	return c.inTx(ctx, func(tx *sql.Tx) error {
		upsert, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO tracks
			(id, track_title, track_description, bpm, duration, album_title, library_name,
			 composer, genre, additional_genres, apm_release_date, release_on, has_stems)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CAST(? AS DATE), ?)`)
		if err != nil {
			return fmt.Errorf("prepare track upsert: %w", err)
		}
		defer upsert.Close()

		for i := range tracks {
			t := &tracks[i]
			if strings.TrimSpace(t.ID) == "" {
				return fmt.Errorf("track %d: id is required", i)
			}
			var releaseOn any
			if d, ok := ranking.ParseReleaseDate(t.ReleaseDate); ok {
				releaseOn = d.Format("2006-01-02")
			}
			if _, err := upsert.ExecContext(ctx,
				strings.TrimSpace(t.ID), t.Title, t.Description, t.BPM, t.Duration, t.AlbumTitle, t.LibraryName,
				t.Composer, strings.TrimSpace(t.Genre), strings.Join(t.AdditionalGenres, ";"), t.ReleaseDate, releaseOn, t.HasStems,
			); err != nil {
				return fmt.Errorf("upsert track %s: %w", t.ID, err)
			}
		}
		return rebuildTrackFacets(ctx, tx)
	})
}

// AddFacets upserts taxonomy facets.
func (c *Catalog) AddFacets(ctx context.Context, facets []models.Facet) (err error) {
	start := time.Now()
	defer func() { observe("add_facets", start, err) }()

	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO facets (facet_id, category_name, facet_label) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare facet upsert: %w", err)
		}
		defer stmt.Close()

		for _, f := range facets {
			if _, err := stmt.ExecContext(ctx, strings.TrimSpace(f.ID), f.Category, f.Label); err != nil {
				return fmt.Errorf("upsert facet %s: %w", f.ID, err)
			}
		}
		return nil
	})
}

// SetSimilar replaces the similarity list of source. Order is similarity rank.
func (c *Catalog) SetSimilar(ctx context.Context, source string, similar []string) (err error) {
	start := time.Now()
	defer func() { observe("set_similar", start, err) }()

	return c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM similarities WHERE source_track_id = ?", source); err != nil {
			return fmt.Errorf("clear similarities for %s: %w", source, err)
		}
		seen := make(map[string]struct{}, len(similar))
		rank := 0
		for _, id := range similar {
			id = strings.TrimSpace(id)
			if _, dup := seen[id]; dup || id == "" || id == source {
				continue
			}
			seen[id] = struct{}{}
			rank++
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO similarities (source_track_id, similar_track_id, rank) VALUES (?, ?, ?)",
				source, id, rank); err != nil {
				return fmt.Errorf("insert similarity %s -> %s: %w", source, id, err)
			}
		}
		return nil
	})
}

// Stats reports table row counts.
type Stats struct {
	Tracks       int `json:"tracks"`
	Facets       int `json:"facets"`
	Similarities int `json:"similarities"`
}

// Stats counts catalog rows.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.conn.QueryRowContext(ctx, `SELECT
		(SELECT count(*) FROM tracks),
		(SELECT count(*) FROM facets),
		(SELECT count(*) FROM similarities)`).Scan(&s.Tracks, &s.Facets, &s.Similarities)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	return s, nil
}

// rebuildTrackFacets derives track_facets from genre and additional_genres.
func rebuildTrackFacets(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM track_facets"); err != nil {
		return fmt.Errorf("clear track facets: %w", err)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO track_facets (track_id, facet_id)
		SELECT DISTINCT id, facet_id FROM (
			SELECT id, trim(genre) AS facet_id FROM tracks
			UNION ALL
			SELECT id, trim(g) AS facet_id FROM (
				SELECT id, unnest(string_split(additional_genres, ';')) AS g FROM tracks
			)
		) WHERE facet_id <> ''`)
	if err != nil {
		return fmt.Errorf("rebuild track facets: %w", err)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back on error.
func (c *Catalog) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
