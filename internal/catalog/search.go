// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
search.go - Catalog search backend

Implements search.Source over DuckDB:
  - Search: free text scored by weighted LIKE matches per term and column,
    normalized to (0, 1], plus facet, field filter and date range predicates
  - SearchFacets: facet labels containing a term, exact matches first
  - TracksByFacetIDs: tracks tagged with any of the given facet ids

Results are ordered by score descending with id as the tie-break so that
offset pagination is stable across calls.
*/

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/ranking"
	"github.com/tomtom215/trackfinder/internal/rules"
	"github.com/tomtom215/trackfinder/internal/search"
)

// trackColumns is the column list scanned by scanTrack.
const trackColumns = `id, track_title, track_description, bpm, duration, album_title,
	library_name, composer, genre, additional_genres, apm_release_date, has_stems`

// maxTerms caps the number of free-text terms scored per query.
const maxTerms = 16

// maxFacetResults caps SearchFacets.
const maxFacetResults = 50

// Search runs a scored catalog search. A zero Limit returns totals only.
func (c *Catalog) Search(ctx context.Context, q search.Query) (page models.SearchPage, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	terms := searchTerms(q.Text)
	scoreExpr, scoreArgs := c.scoreExpression(terms)

	wb := newWhereBuilder()
	addFacetFilters(wb, q.FacetsByCategory)
	for i := range q.FieldFilters {
		addFieldFilter(wb, q.FieldFilters[i])
	}
	for i := range q.Ranges {
		addDateRange(wb, q.Ranges[i])
	}
	where, whereArgs := wb.build()

	minScore := "1=1"
	if len(terms) > 0 {
		minScore = "score > 0"
	}

	cte := fmt.Sprintf(`WITH scored AS (
		SELECT %s, %s AS score FROM tracks WHERE %s
	)`, trackColumns, scoreExpr, where)
	args := append(append([]any{}, scoreArgs...), whereArgs...)

	countQuery := fmt.Sprintf(`%s SELECT count(*) FROM scored WHERE %s`, cte, minScore)
	var total int
	if err := c.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.SearchPage{}, fmt.Errorf("count search results: %w", err)
	}
	page = models.SearchPage{Total: total, TotalVersions: total}
	if q.Limit <= 0 || q.Offset >= total {
		return page, nil
	}

	pageQuery := fmt.Sprintf(`%s SELECT %s, score FROM scored WHERE %s
		ORDER BY score DESC, id ASC LIMIT ? OFFSET ?`, cte, trackColumns, minScore)
	rows, err := c.conn.QueryContext(ctx, pageQuery, append(args, q.Limit, max(q.Offset, 0))...)
	if err != nil {
		return models.SearchPage{}, fmt.Errorf("search tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrack(rows, true)
		if err != nil {
			return models.SearchPage{}, err
		}
		page.Tracks = append(page.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return models.SearchPage{}, fmt.Errorf("iterate search results: %w", err)
	}
	return page, nil
}

// searchTerms lowercases and deduplicates the words of text.
func searchTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, `.,;:!?"'()[]{}`)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}

// scoreExpression builds the normalized relevance expression. Each term
// earns the weight of every column it appears in; the sum is divided by
// the best possible score so a track matching every term everywhere
// scores 1.
func (c *Catalog) scoreExpression(terms []string) (string, []any) {
	if len(terms) == 0 || len(c.columns) == 0 {
		return "CAST(0 AS DOUBLE)", nil
	}
	var (
		parts   []string
		args    []any
		perTerm float64
	)
	for _, col := range c.columns {
		perTerm += col.weight
	}
	for _, term := range terms {
		pattern := likePattern(term)
		for _, col := range c.columns {
			parts = append(parts, fmt.Sprintf(`CASE WHEN lower(%s) LIKE ? ESCAPE '\' THEN %s ELSE 0 END`,
				col.name, strconv.FormatFloat(col.weight, 'f', -1, 64)))
			args = append(args, pattern)
		}
	}
	denom := strconv.FormatFloat(perTerm*float64(len(terms)), 'f', -1, 64)
	return fmt.Sprintf("CAST((%s) AS DOUBLE) / %s", strings.Join(parts, " + "), denom), args
}

// addFacetFilters requires, per category, a tag with one of the labels.
// Categories are applied in sorted order for stable SQL.
func addFacetFilters(wb *whereBuilder, byCategory map[string][]string) {
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		labels := make([]string, 0, len(byCategory[cat]))
		for _, l := range byCategory[cat] {
			if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
				labels = append(labels, l)
			}
		}
		if len(labels) == 0 {
			continue
		}
		in, inArgs := inClause("lower(f.facet_label)", labels)
		args := append([]any{cat}, inArgs...)
		wb.addClause(fmt.Sprintf(`id IN (
			SELECT tf.track_id FROM track_facets tf
			JOIN facets f ON f.facet_id = tf.facet_id
			WHERE lower(f.category_name) = lower(?) AND %s)`, in), args...)
	}
}

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindDate
	kindBool
	kindList
)

// filterColumn maps a catalog field name (with the same aliases as
// Track.FieldValues) to its column. ok is false for unknown fields.
func filterColumn(field string) (column string, kind columnKind, ok bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "id":
		return "id", kindText, true
	case "track_title", "title":
		return "track_title", kindText, true
	case "track_description", "description":
		return "track_description", kindText, true
	case "album_title", "album":
		return "album_title", kindText, true
	case "library_name", "library":
		return "library_name", kindText, true
	case "composer":
		return "composer", kindText, true
	case "genre":
		return "genre", kindText, true
	case "bpm":
		return "bpm", kindInt, true
	case "duration":
		return "duration", kindInt, true
	case "apm_release_date", "release_date":
		return "release_on", kindDate, true
	case "has_stems":
		return "has_stems", kindBool, true
	case "additional_genres":
		return "additional_genres", kindList, true
	default:
		return "", 0, false
	}
}

// addFieldFilter translates one structured filter into SQL. Filters on
// unknown fields are ignored.
//
//nolint:gocritic // Filter is a small value type
func addFieldFilter(wb *whereBuilder, f rules.Filter) {
	column, kind, ok := filterColumn(f.Field)
	if !ok {
		return
	}
	value := strings.TrimSpace(f.Value)
	op := f.Operator
	if op == "" {
		op = "eq"
	}

	switch kind {
	case kindInt:
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			addComparison(wb, column, op, n)
			return
		}
		addTextFilter(wb, "CAST("+column+" AS TEXT)", op, value)
	case kindDate:
		if d, ok := ranking.ParseReleaseDate(value); ok {
			addDateComparison(wb, op, d)
			return
		}
		addTextFilter(wb, "apm_release_date", op, value)
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			addTextFilter(wb, "CAST(has_stems AS TEXT)", op, value)
			return
		}
		switch op {
		case "ne":
			wb.addClause(column+" <> ?", b)
		default:
			wb.addClause(column+" = ?", b)
		}
	case kindList:
		addListFilter(wb, column, op, value)
	default:
		addTextFilter(wb, column, op, value)
	}
}

func addComparison(wb *whereBuilder, column, op string, n float64) {
	switch op {
	case "ne":
		wb.addClause(column+" <> ?", n)
	case "gte":
		wb.addClause(column+" >= ?", n)
	case "lte":
		wb.addClause(column+" <= ?", n)
	case "contains":
		wb.addClause("CAST("+column+" AS TEXT) LIKE ? ESCAPE '\\'", likePattern(strconv.FormatFloat(n, 'f', -1, 64)))
	default:
		wb.addClause(column+" = ?", n)
	}
}

func addDateComparison(wb *whereBuilder, op string, d time.Time) {
	day := d.Format("2006-01-02")
	switch op {
	case "ne":
		wb.addClause("(release_on IS NULL OR release_on <> CAST(? AS DATE))", day)
	case "gte":
		wb.addClause("release_on >= CAST(? AS DATE)", day)
	case "lte":
		wb.addClause("release_on <= CAST(? AS DATE)", day)
	case "contains":
		wb.addClause("apm_release_date LIKE ? ESCAPE '\\'", likePattern(d.Format("2006")))
	default:
		wb.addClause("release_on = CAST(? AS DATE)", day)
	}
}

// addTextFilter compares case-insensitively. gte/lte never match empty values.
func addTextFilter(wb *whereBuilder, column, op, value string) {
	lower := strings.ToLower(value)
	switch op {
	case "ne":
		wb.addClause(fmt.Sprintf("lower(trim(%s)) <> ?", column), lower)
	case "contains":
		wb.addClause(fmt.Sprintf("lower(%s) LIKE ? ESCAPE '\\'", column), likePattern(lower))
	case "gte":
		wb.addClause(fmt.Sprintf("(%s <> '' AND lower(trim(%s)) >= ?)", column, column), lower)
	case "lte":
		wb.addClause(fmt.Sprintf("(%s <> '' AND lower(trim(%s)) <= ?)", column, column), lower)
	default:
		wb.addClause(fmt.Sprintf("lower(trim(%s)) = ?", column), lower)
	}
}

// addListFilter tests membership in a ';'-separated id list.
func addListFilter(wb *whereBuilder, column, op, value string) {
	lower := strings.ToLower(value)
	delimited := fmt.Sprintf("(';' || replace(lower(%s), ' ', '') || ';')", column)
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	member := "%;" + r.Replace(strings.ReplaceAll(lower, " ", "")) + ";%"
	switch op {
	case "ne":
		wb.addClause("NOT "+delimited+" LIKE ? ESCAPE '\\'", member)
	case "contains":
		wb.addClause(fmt.Sprintf("lower(%s) LIKE ? ESCAPE '\\'", column), likePattern(lower))
	default:
		wb.addClause(delimited+" LIKE ? ESCAPE '\\'", member)
	}
}

// addDateRange restricts release dates to [From, To). Only the release
// date field is ranged; other fields are ignored.
func addDateRange(wb *whereBuilder, r search.DateRange) {
	if _, kind, ok := filterColumn(r.Field); !ok || kind != kindDate {
		return
	}
	inner := newWhereBuilder()
	if r.From != nil {
		inner.addClause("release_on >= CAST(? AS DATE)", r.From.UTC().Format("2006-01-02"))
	}
	if r.To != nil {
		inner.addClause("release_on < CAST(? AS DATE)", r.To.UTC().Format("2006-01-02"))
	}
	cond, args := inner.build()
	if r.IncludeUndated {
		if inner.isEmpty() {
			return
		}
		wb.addClause("(release_on IS NULL OR ("+cond+"))", args...)
		return
	}
	wb.addClause("(release_on IS NOT NULL AND ("+cond+"))", args...)
}

// SearchFacets finds facets whose label contains term, optionally limited
// to categories. Exact label matches sort first.
func (c *Catalog) SearchFacets(ctx context.Context, term string, categories []string) (facets []models.Facet, err error) {
	start := time.Now()
	defer func() { observe("search_facets", start, err) }()

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	wb := newWhereBuilder()
	wb.addClause("lower(facet_label) LIKE ? ESCAPE '\\'", likePattern(term))
	wb.addIn("category_name", categories)
	where, args := wb.build()

	query := fmt.Sprintf(`SELECT facet_id, category_name, facet_label FROM facets
		WHERE %s
		ORDER BY (lower(facet_label) = ?) DESC, facet_label ASC, facet_id ASC
		LIMIT %d`, where, maxFacetResults)

	rows, err := c.conn.QueryContext(ctx, query, append(args, term)...)
	if err != nil {
		return nil, fmt.Errorf("search facets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.Facet
		if err := rows.Scan(&f.ID, &f.Category, &f.Label); err != nil {
			return nil, fmt.Errorf("scan facet: %w", err)
		}
		facets = append(facets, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facets: %w", err)
	}
	return facets, nil
}

// TracksByFacetIDs returns tracks tagged with any of ids, ordered by id.
// Relevance scores are zero; the hybrid merger assigns the taxonomy score.
func (c *Catalog) TracksByFacetIDs(ctx context.Context, ids []string, limit, offset int) (page models.SearchPage, err error) {
	start := time.Now()
	defer func() { observe("tracks_by_facet", start, err) }()

	if len(ids) == 0 {
		return models.SearchPage{}, nil
	}
	in, args := inClause("facet_id", ids)
	where := fmt.Sprintf("id IN (SELECT track_id FROM track_facets WHERE %s)", in)

	var total int
	if err := c.conn.QueryRowContext(ctx, "SELECT count(*) FROM tracks WHERE "+where, args...).Scan(&total); err != nil {
		return models.SearchPage{}, fmt.Errorf("count facet tracks: %w", err)
	}
	page = models.SearchPage{Total: total, TotalVersions: total}
	if limit <= 0 || offset >= total {
		return page, nil
	}

	query := fmt.Sprintf("SELECT %s FROM tracks WHERE %s ORDER BY id ASC LIMIT ? OFFSET ?", trackColumns, where)
	rows, err := c.conn.QueryContext(ctx, query, append(args, limit, max(offset, 0))...)
	if err != nil {
		return models.SearchPage{}, fmt.Errorf("query facet tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrack(rows, false)
		if err != nil {
			return models.SearchPage{}, err
		}
		page.Tracks = append(page.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return models.SearchPage{}, fmt.Errorf("iterate facet tracks: %w", err)
	}
	return page, nil
}

// scanTrack reads trackColumns, followed by score when scored is true.
func scanTrack(rows *sql.Rows, scored bool) (models.Track, error) {
	var (
		t          models.Track
		additional string
	)
	dest := []any{
		&t.ID, &t.Title, &t.Description, &t.BPM, &t.Duration, &t.AlbumTitle,
		&t.LibraryName, &t.Composer, &t.Genre, &additional, &t.ReleaseDate, &t.HasStems,
	}
	if scored {
		dest = append(dest, &t.RelevanceScore)
	}
	if err := rows.Scan(dest...); err != nil {
		return models.Track{}, fmt.Errorf("scan track: %w", err)
	}
	t.AdditionalGenres = splitIDs(additional)
	return t, nil
}

// splitIDs splits a ';'-separated id list, dropping blanks.
func splitIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var _ search.Source = (*Catalog)(nil)
