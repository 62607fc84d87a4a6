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
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
)

// ErrNotFound is returned when a track does not exist.
var ErrNotFound = errors.New("track not found")

// textColumn is one column free text is scored against.
type textColumn struct {
	name   string
	weight float64
}

// Catalog wraps the DuckDB connection holding tracks, facets and
// similarity lists.
type Catalog struct {
	conn    *sql.DB
	cfg     *config.DatabaseConfig
	columns []textColumn
}

// New opens the catalog database and creates the schema. An empty path or
// ":memory:" opens an in-memory database.
func New(cfg *config.DatabaseConfig) (*Catalog, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &Catalog{
		conn:    conn,
		cfg:     cfg,
		columns: textColumns(cfg.TextWeights),
	}
	c.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.createSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Int("text_columns", len(c.columns)).Msg("Catalog database opened")
	return c, nil
}

// defaultTextWeights applies when the config names no text columns.
var defaultTextWeights = map[string]float64{
	"track_title":       3.0,
	"album_title":       2.0,
	"track_description": 1.0,
	"composer":          1.0,
	"library_name":      0.5,
}

// textColumns turns the weight map into a deterministic column list,
// dropping unknown and zero-weight columns.
func textColumns(weights map[string]float64) []textColumn {
	if len(weights) == 0 {
		weights = defaultTextWeights
	}
	cols := make([]textColumn, 0, len(weights))
	for name, w := range weights {
		if _, ok := textColumnNames[name]; !ok || w <= 0 {
			continue
		}
		cols = append(cols, textColumn{name: name, weight: w})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].name < cols[j].name })
	return cols
}

var textColumnNames = map[string]struct{}{
	"track_title":       {},
	"track_description": {},
	"album_title":       {},
	"library_name":      {},
	"composer":          {},
}

// configureConnectionPool sets pool limits for the embedded database.
func (c *Catalog) configureConnectionPool() {
	c.conn.SetMaxOpenConns(runtime.NumCPU())
	c.conn.SetMaxIdleConns(2)
	c.conn.SetConnMaxLifetime(time.Hour)
	c.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Ping verifies the connection is alive.
func (c *Catalog) Ping(ctx context.Context) error {
	if err := c.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	return nil
}

// observe records the duration and outcome of one catalog query.
func observe(op string, start time.Time, err error) {
	metrics.RecordDBQuery(op, time.Since(start), err)
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
