// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
import.go - CSV catalog import

Loads a catalog export directory into DuckDB with read_csv:

  - tracks.csv (required): id, track_title, track_description, bpm, duration,
    album_title, library_name, composer, genre, additional_genres,
    apm_release_date, has_stems
  - facets.csv (optional): facet_id, category_name, facet_label
  - audio_similarities.csv (optional): source_track_id, similar_track_ids
    (';'-separated, most similar first)

Rows are upserted by id, so importing the same directory twice is a no-op.
Duplicate ids within one file keep a single row.
*/

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/ranking"
)

// Import file names inside a catalog export directory.
const (
	TracksFile       = "tracks.csv"
	FacetsFile       = "facets.csv"
	SimilaritiesFile = "audio_similarities.csv"
)

// ImportResult summarizes one Import call.
type ImportResult struct {
	Tracks       int           `json:"tracks"`
	Facets       int           `json:"facets"`
	Similarities int           `json:"similarities"`
	Duration     time.Duration `json:"duration"`
}

// Import loads the CSV files in dir. Missing optional files are skipped.
func (c *Catalog) Import(ctx context.Context, dir string) (res ImportResult, err error) {
	start := time.Now()
	defer func() { observe("import", start, err) }()

	tracksPath := filepath.Join(dir, TracksFile)
	if _, err := os.Stat(tracksPath); err != nil {
		return ImportResult{}, fmt.Errorf("import catalog: %w", err)
	}
	facetsPath, hasFacets := optionalFile(dir, FacetsFile)
	simPath, hasSim := optionalFile(dir, SimilaritiesFile)

	err = c.inTx(ctx, func(tx *sql.Tx) error {
		n, err := importTracks(ctx, tx, tracksPath)
		if err != nil {
			return err
		}
		res.Tracks = n

		if err := fillReleaseDates(ctx, tx); err != nil {
			return err
		}
		if err := rebuildTrackFacets(ctx, tx); err != nil {
			return err
		}

		if hasFacets {
			if res.Facets, err = importFacets(ctx, tx, facetsPath); err != nil {
				return err
			}
		}
		if hasSim {
			if res.Similarities, err = importSimilarities(ctx, tx, simPath); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	res.Duration = time.Since(start)
	logging.Info().
		Str("dir", dir).
		Int("tracks", res.Tracks).
		Int("facets", res.Facets).
		Int("similarities", res.Similarities).
		Dur("duration", res.Duration).
		Msg("Catalog import complete")
	return res, nil
}

func optionalFile(dir, name string) (string, bool) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	return path, true
}

// readCSV renders a read_csv call over path with every column as text.
func readCSV(path string) string {
	return fmt.Sprintf("read_csv(%s, header = true, all_varchar = true)", sqlQuote(path))
}

// sqlQuote quotes s as a SQL string literal.
func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func importTracks(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO tracks
		(id, track_title, track_description, bpm, duration, album_title, library_name,
		 composer, genre, additional_genres, apm_release_date, release_on, has_stems)
		SELECT
			trim(id),
			coalesce(track_title, ''),
			coalesce(track_description, ''),
			coalesce(TRY_CAST(trim(bpm) AS INTEGER), 0),
			coalesce(TRY_CAST(trim(duration) AS INTEGER), 0),
			coalesce(album_title, ''),
			coalesce(library_name, ''),
			coalesce(composer, ''),
			coalesce(trim(genre), ''),
			coalesce(trim(additional_genres), ''),
			coalesce(trim(apm_release_date), ''),
			NULL,
			lower(trim(coalesce(has_stems, ''))) IN ('true', '1', 'yes', 'y')
		FROM (
			SELECT *, row_number() OVER (PARTITION BY trim(id)) AS rn FROM %s
		)
		WHERE rn = 1 AND coalesce(trim(id), '') <> ''`, readCSV(path))

	result, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", TracksFile, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", TracksFile, err)
	}
	return int(n), nil
}

// fillReleaseDates parses apm_release_date with the same rules the
// recency bucketizer uses, so SQL date ranges and in-memory buckets agree.
func fillReleaseDates(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, apm_release_date FROM tracks
		WHERE release_on IS NULL AND apm_release_date <> ''`)
	if err != nil {
		return fmt.Errorf("select release dates: %w", err)
	}

	type pending struct{ id, day string }
	var updates []pending
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan release date: %w", err)
		}
		if d, ok := ranking.ParseReleaseDate(raw); ok {
			updates = append(updates, pending{id: id, day: d.Format("2006-01-02")})
		}
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return fmt.Errorf("iterate release dates: %w", err)
	}

	if len(updates) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "UPDATE tracks SET release_on = CAST(? AS DATE) WHERE id = ?")
	if err != nil {
		return fmt.Errorf("prepare release date update: %w", err)
	}
	defer stmt.Close()
	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.day, u.id); err != nil {
			return fmt.Errorf("update release date for %s: %w", u.id, err)
		}
	}
	return nil
}

func importFacets(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	query := fmt.Sprintf(`INSERT OR REPLACE INTO facets (facet_id, category_name, facet_label)
		SELECT trim(facet_id), coalesce(trim(category_name), ''), coalesce(trim(facet_label), '')
		FROM (
			SELECT *, row_number() OVER (PARTITION BY trim(facet_id)) AS rn FROM %s
		)
		WHERE rn = 1 AND coalesce(trim(facet_id), '') <> ''`, readCSV(path))

	result, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", FacetsFile, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", FacetsFile, err)
	}
	return int(n), nil
}

// importSimilarities replaces the lists of every source track in the file.
// Self references, blanks and repeats are dropped; the first position wins.
func importSimilarities(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	reset := fmt.Sprintf(`DELETE FROM similarities WHERE source_track_id IN (
		SELECT trim(source_track_id) FROM %s)`, readCSV(path))
	if _, err := tx.ExecContext(ctx, reset); err != nil {
		return 0, fmt.Errorf("clear similarities: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO similarities (source_track_id, similar_track_id, rank)
		SELECT src, trim(sim), min(list_position(ids, sim))
		FROM (
			SELECT src, ids, unnest(ids) AS sim
			FROM (
				SELECT trim(source_track_id) AS src, string_split(coalesce(similar_track_ids, ''), ';') AS ids
				FROM %s
			)
		)
		WHERE coalesce(src, '') <> '' AND trim(sim) <> '' AND trim(sim) <> src
		GROUP BY src, trim(sim)`, readCSV(path))

	result, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", SimilaritiesFile, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", SimilaritiesFile, err)
	}
	return int(n), nil
}

// Seed imports the configured seed directory into an empty catalog. It
// reports whether an import ran.
func (c *Catalog) Seed(ctx context.Context) (bool, error) {
	if c.cfg.SeedPath == "" {
		return false, nil
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		return false, err
	}
	if stats.Tracks > 0 {
		logging.Debug().Int("tracks", stats.Tracks).Msg("Catalog already populated, skipping seed")
		return false, nil
	}
	if _, err := c.Import(ctx, c.cfg.SeedPath); err != nil {
		return false, fmt.Errorf("seed catalog from %s: %w", c.cfg.SeedPath, err)
	}
	return true, nil
}
