// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/trackfinder/internal/cache"
	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/ranking"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// State is the pagination strategy chosen for one request.
type State string

const (
	// StateWithinInterleaveBounds builds the page from two bucket fetches.
	StateWithinInterleaveBounds State = "within_interleave_bounds"
	// StateBeyondBoundsNoRules passes the page straight through to the source.
	StateBeyondBoundsNoRules State = "beyond_bounds_no_rules"
	// StateBeyondBoundsWithCache slices the page out of a cached working set.
	StateBeyondBoundsWithCache State = "beyond_bounds_with_cache"
)

// ErrInconsistentTotals is returned when a bucket shrinks between the two
// rounds of a dual-query page.
var ErrInconsistentTotals = errors.New("bucket totals changed while paging")

// deepBucket stands in for an unknown bucket total on the first dual-query
// round. It only needs to exceed any offset+limit.
const deepBucket = 1 << 30

// Config tunes the search service.
type Config struct {
	// WorkingSetSize is how many tracks are fetched and reranked on a
	// cache miss (per recency bucket when buckets are fetched separately).
	WorkingSetSize  int
	CacheTTL        time.Duration
	CacheMaxEntries int
	SweepInterval   time.Duration
	Weights         ranking.MergeWeights
	// FacetCategories limits facet label resolution. Empty means all.
	FacetCategories []string
	DefaultLimit    int
	// BuildTimeout bounds one shared working-set build, which runs detached
	// from the request that started it.
	BuildTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		WorkingSetSize:  500,
		CacheTTL:        5 * time.Minute,
		CacheMaxEntries: 1000,
		SweepInterval:   time.Minute,
		Weights:         ranking.MergeWeights{TaxonomyBaseScore: 1.0, TextFallbackScore: 0.5},
		DefaultLimit:    12,
		BuildTimeout:    30 * time.Second,
	}
}

// Request is one ranked search.
type Request struct {
	// Query is matched against rule patterns and sent to the source as text.
	Query string
	// Facets are structured facet restrictions by category.
	Facets map[string][]string
	// Filters are structured field predicates.
	Filters []rules.Filter
	// Limit is the page size. Zero returns only the totals; a negative
	// value takes Config.DefaultLimit.
	Limit  int
	Offset int
}

// Meta is the transparency block of a Response.
type Meta struct {
	AppliedRules     []ranking.AppliedRule     `json:"appliedRules"`
	ScoreAdjustments []ranking.ScoreAdjustment `json:"scoreAdjustments"`
	Pagination       State                     `json:"pagination"`
	Route            string                    `json:"route,omitempty"`
	ResolvedQuery    string                    `json:"resolvedQuery,omitempty"`
	RulesVersion     uint64                    `json:"rulesVersion"`
	CacheHit         bool                      `json:"cacheHit,omitempty"`
}

// Response is one page of ranked results.
type Response struct {
	Tracks        []models.Track `json:"tracks"`
	TotalCount    int            `json:"total_count"`
	TotalVersions int            `json:"total_versions,omitempty"`
	Showing       string         `json:"showing"`
	Meta          Meta           `json:"_meta"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the cache clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs rule matching, ranking and pagination on top of a Source.
type Service struct {
	source   Source
	provider rules.Provider
	matcher  *rules.Matcher
	executor *ranking.Executor
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time

	cache *cache.TTL[CacheKey, *CacheEntry]
	group singleflight.Group
}

// NewService wires a Service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewService(source Source, provider rules.Provider, matcher *rules.Matcher, executor *ranking.Executor, cfg Config, logger zerolog.Logger, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.WorkingSetSize <= 0 {
		cfg.WorkingSetSize = def.WorkingSetSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = def.BuildTimeout
	}

	s := &Service{
		source:   source,
		provider: provider,
		matcher:  matcher,
		executor: executor,
		cfg:      cfg,
		logger:   logger.With().Str("component", "search").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cache = cache.NewTTL[CacheKey, *CacheEntry](cfg.CacheTTL,
		cache.WithClock(s.now),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithEvictionHook(func(n int) { metrics.RerankCacheEvictions.Add(float64(n)) }),
	)
	return s
}

// MatchRules returns the current snapshot and the rules matching query.
func (s *Service) MatchRules(query string) (*rules.Snapshot, []rules.Rule) {
	snap := s.provider.Snapshot()
	return snap, s.matcher.Match(query, snap.Rules)
}

// Search returns one page of ranked results. Only a source failure is an
// error; rule problems degrade to fewer applied rules.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if req.Limit < 0 {
		req.Limit = s.cfg.DefaultLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	snap, matched := s.MatchRules(req.Query)
	hints := s.executor.Plan(matched)
	state := chooseState(&hints, req.Offset)

	var (
		resp *Response
		err  error
	)
	switch state {
	case StateWithinInterleaveBounds:
		resp, err = s.dualQuery(ctx, &req, matched, &hints)
	case StateBeyondBoundsNoRules:
		resp, err = s.passthrough(ctx, &req, matched, &hints)
	default:
		resp, err = s.fromCache(ctx, &req, matched, &hints)
	}
	if err != nil {
		return nil, err
	}

	resp.Meta.Pagination = state
	resp.Meta.RulesVersion = snap.Version
	metrics.RecordPagination(string(state), time.Since(start))

	logging.Ctx(ctx).Debug().
		Str("state", string(state)).
		Int("matched_rules", len(matched)).
		Int("offset", req.Offset).
		Int("limit", req.Limit).
		Int("returned", len(resp.Tracks)).
		Int("total", resp.TotalCount).
		Bool("cache_hit", resp.Meta.CacheHit).
		Dur("duration", time.Since(start)).
		Msg("search completed")

	return resp, nil
}

// chooseState picks the pagination strategy. Facet expansion merges two
// result sets, so it needs a working set just like rescoring does.
func chooseState(h *ranking.Hints, offset int) State {
	needsRanking := h.ScoreMutating || len(h.Facets) > 0
	switch {
	case !needsRanking:
		return StateBeyondBoundsNoRules
	case h.DualQueryEligible && len(h.Facets) == 0 && offset < h.Recency.Bound():
		return StateWithinInterleaveBounds
	default:
		return StateBeyondBoundsWithCache
	}
}

func (s *Service) baseQuery(req *Request, h *ranking.Hints) Query {
	filters := make([]rules.Filter, 0, len(req.Filters)+len(h.Filters))
	filters = append(filters, req.Filters...)
	filters = append(filters, h.Filters...)
	return Query{
		Text:             req.Query,
		FacetsByCategory: req.Facets,
		FieldFilters:     filters,
	}
}

// passthrough serves the source page as is, with hint-only rules recorded.
func (s *Service) passthrough(ctx context.Context, req *Request, matched []rules.Rule, h *ranking.Hints) (*Response, error) {
	q := s.baseQuery(req, h)
	q.Limit, q.Offset = req.Limit, req.Offset

	page, err := s.source.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search source: %w", err)
	}
	res := s.executor.Apply(ctx, page.Tracks, matched)
	return newResponse(res.Tracks, page.Total, page.TotalVersions, req.Offset, res.AppliedRules, res.ScoreAdjustments), nil
}

func bucketQueries(base Query, cfg *ranking.RecencyConfig) (recent, vintage Query) {
	threshold := cfg.RecentThreshold
	recent, vintage = base, base
	recent.Ranges = append(append([]DateRange(nil), base.Ranges...), DateRange{
		Field: ReleaseDateField,
		From:  &threshold,
	})
	vintage.Ranges = append(append([]DateRange(nil), base.Ranges...), DateRange{
		Field:          ReleaseDateField,
		From:           cfg.VintageMax,
		To:             &threshold,
		IncludeUndated: true,
	})
	return recent, vintage
}

// bucketFetch is one fetched range of a bucket.
type bucketFetch struct {
	offset int
	page   models.SearchPage
}

// covers reports whether the fetched range contains [offset, offset+count).
func (b *bucketFetch) covers(offset, count int) bool {
	if count == 0 {
		return true
	}
	return offset >= b.offset && offset+count <= b.offset+len(b.page.Tracks)
}

func (b *bucketFetch) slice(offset, count int) []models.Track {
	if count == 0 {
		return nil
	}
	from := offset - b.offset
	return b.page.Tracks[from : from+count]
}

// dualQuery assembles a page of the interleaved order from two range
// fetches. The first round assumes both buckets are deep; if the real
// totals change the layout, only the bucket whose range is not already
// covered is fetched again.
func (s *Service) dualQuery(ctx context.Context, req *Request, matched []rules.Rule, h *ranking.Hints) (*Response, error) {
	cfg := h.Recency
	recentQ, vintageQ := bucketQueries(s.baseQuery(req, h), cfg)

	guess := ranking.LayoutPage(cfg.Pattern, cfg.RepeatCount, deepBucket, deepBucket, req.Offset, req.Limit)
	recent, vintage, err := s.fetchBuckets(ctx, recentQ, vintageQ,
		guess.RecentOffset, guess.RecentCount, guess.VintageOffset, guess.VintageCount)
	if err != nil {
		return nil, err
	}

	layout := ranking.LayoutPage(cfg.Pattern, cfg.RepeatCount, recent.page.Total, vintage.page.Total, req.Offset, req.Limit)
	needRecent := !recent.covers(layout.RecentOffset, layout.RecentCount)
	needVintage := !vintage.covers(layout.VintageOffset, layout.VintageCount)
	if needRecent || needVintage {
		g, gctx := errgroup.WithContext(ctx)
		if needRecent {
			g.Go(func() error {
				var err error
				recent, err = s.fetchRange(gctx, recentQ, layout.RecentOffset, layout.RecentCount)
				return err
			})
		}
		if needVintage {
			g.Go(func() error {
				var err error
				vintage, err = s.fetchRange(gctx, vintageQ, layout.VintageOffset, layout.VintageCount)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if !recent.covers(layout.RecentOffset, layout.RecentCount) || !vintage.covers(layout.VintageOffset, layout.VintageCount) {
			return nil, fmt.Errorf("search source: %w", ErrInconsistentTotals)
		}
	}

	page := ranking.Interleave(
		ranking.MarkBucket(recent.slice(layout.RecentOffset, layout.RecentCount), ranking.BucketRecent),
		ranking.MarkBucket(vintage.slice(layout.VintageOffset, layout.VintageCount), ranking.BucketVintage),
		layout.Slots, 1,
	)

	applied := make([]ranking.AppliedRule, 0, len(matched))
	for i := range matched {
		affected := 0
		if _, ok := matched[i].Action.(rules.RecencyInterleaving); ok {
			affected = len(page)
		}
		applied = append(applied, ranking.NewAppliedRule(matched[i], affected))
	}

	total := recent.page.Total + vintage.page.Total
	versions := recent.page.TotalVersions + vintage.page.TotalVersions
	return newResponse(page, total, versions, req.Offset, applied, []ranking.ScoreAdjustment{}), nil
}

func (s *Service) fetchBuckets(ctx context.Context, recentQ, vintageQ Query, rOff, rCount, vOff, vCount int) (recent, vintage bucketFetch, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.fetchRange(gctx, recentQ, rOff, rCount)
		return err
	})
	g.Go(func() error {
		var err error
		vintage, err = s.fetchRange(gctx, vintageQ, vOff, vCount)
		return err
	})
	err = g.Wait()
	return recent, vintage, err
}

// fetchRange fetches count tracks at offset. A zero count only asks for the
// bucket totals.
func (s *Service) fetchRange(ctx context.Context, q Query, offset, count int) (bucketFetch, error) {
	q.Offset, q.Limit = offset, count
	page, err := s.source.Search(ctx, q)
	if err != nil {
		return bucketFetch{}, fmt.Errorf("search source: %w", err)
	}
	return bucketFetch{offset: offset, page: page}, nil
}

// fromCache slices the page out of the reranked working set, building it on
// a miss. Concurrent misses for the same key share one build; each caller
// stops waiting only on its own cancellation.
func (s *Service) fromCache(ctx context.Context, req *Request, matched []rules.Rule, h *ranking.Hints) (*Response, error) {
	key := NewCacheKey(req, matched)

	entry, hit := s.cache.Get(key)
	if hit {
		metrics.RerankCacheHits.Inc()
	} else {
		metrics.RerankCacheMisses.Inc()
		buildReq := *req
		ch := s.group.DoChan(cache.GenerateKey("rerank", key), func() (interface{}, error) {
			bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BuildTimeout)
			defer cancel()
			e, err := s.buildEntry(bctx, &buildReq, matched, h)
			if err != nil {
				return nil, err
			}
			s.cache.Set(key, e)
			metrics.RerankCacheEntries.Set(float64(s.cache.Len()))
			return e, nil
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			entry = res.Val.(*CacheEntry)
		}
	}

	if req.Offset >= len(entry.Tracks) {
		if req.Offset >= entry.Total {
			resp := newResponse(nil, entry.Total, entry.TotalVersions, req.Offset, entry.AppliedRules, nil)
			resp.Meta.CacheHit = hit
			return resp, nil
		}
		// Beyond the working set the source order is all there is.
		logging.Ctx(ctx).Debug().Int("offset", req.Offset).Int("working_set", len(entry.Tracks)).
			Msg("offset beyond cached working set, passing through unranked")
		return s.passthrough(ctx, req, nil, h)
	}

	end := min(req.Offset+req.Limit, len(entry.Tracks))
	page := entry.Tracks[req.Offset:end]

	onPage := make(map[string]struct{}, len(page))
	for i := range page {
		onPage[page[i].ID] = struct{}{}
	}
	adjustments := make([]ranking.ScoreAdjustment, 0)
	for _, a := range entry.ScoreAdjustments {
		if _, ok := onPage[a.TrackID]; ok {
			adjustments = append(adjustments, a)
		}
	}

	resp := newResponse(append([]models.Track(nil), page...), entry.Total, entry.TotalVersions, req.Offset, entry.AppliedRules, adjustments)
	resp.Meta.CacheHit = hit
	return resp, nil
}

// buildEntry fetches and reranks one working set.
func (s *Service) buildEntry(ctx context.Context, req *Request, matched []rules.Rule, h *ranking.Hints) (*CacheEntry, error) {
	ws := s.cfg.WorkingSetSize
	base := s.baseQuery(req, h)

	var (
		tracks          []models.Track
		total, versions int
		recentFetched   int
		recentTotal     int
		vintageFetched  int
	)

	switch {
	case len(h.Facets) > 0:
		var err error
		tracks, total, versions, err = s.fetchHybrid(ctx, base, h.Facets, ws)
		if err != nil {
			return nil, err
		}
	case h.Recency != nil:
		recentQ, vintageQ := bucketQueries(base, h.Recency)
		recent, vintage, err := s.fetchBuckets(ctx, recentQ, vintageQ, 0, ws, 0, ws)
		if err != nil {
			return nil, err
		}
		tracks = append(append(make([]models.Track, 0, len(recent.page.Tracks)+len(vintage.page.Tracks)),
			recent.page.Tracks...), vintage.page.Tracks...)
		total = recent.page.Total + vintage.page.Total
		versions = recent.page.TotalVersions + vintage.page.TotalVersions
		recentFetched, recentTotal = len(recent.page.Tracks), recent.page.Total
		vintageFetched = len(vintage.page.Tracks)
	default:
		q := base
		q.Limit = ws
		page, err := s.source.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("search source: %w", err)
		}
		tracks, total, versions = page.Tracks, page.Total, page.TotalVersions
	}

	res := s.executor.Apply(ctx, tracks, matched)
	out := res.Tracks

	// With interleaving as the only reorder, a truncated recent bucket means
	// the fetched vintage leftovers would sit ahead of recent tracks that
	// were never fetched. Keep only the prefix that matches the full order.
	if h.DualQueryEligible && len(h.Facets) == 0 && recentTotal > recentFetched {
		cfg := h.Recency
		used := ranking.LayoutPage(cfg.Pattern, cfg.RepeatCount, recentFetched, vintageFetched, 0, cfg.Bound()).VintageCount
		if cut := len(out) - (vintageFetched - used); cut >= 0 && cut < len(out) {
			out = out[:cut]
		}
	}

	return &CacheEntry{
		Tracks:           out,
		Total:            max(total, len(out)),
		TotalVersions:    versions,
		AppliedRules:     res.AppliedRules,
		ScoreAdjustments: res.ScoreAdjustments,
		Timestamp:        s.now(),
	}, nil
}

// fetchHybrid merges the taxonomy tracks of the expanded facets with the
// text matches. Taxonomy tracks are checked against the field filters in
// memory because the facet lookup cannot apply them.
func (s *Service) fetchHybrid(ctx context.Context, base Query, labels []string, ws int) (tracks []models.Track, total, versions int, err error) {
	ids, err := s.resolveFacets(ctx, labels)
	if err != nil {
		return nil, 0, 0, err
	}

	var taxonomy, text models.SearchPage
	g, gctx := errgroup.WithContext(ctx)
	if len(ids) > 0 {
		g.Go(func() error {
			var err error
			if taxonomy, err = s.source.TracksByFacetIDs(gctx, ids, ws, 0); err != nil {
				return fmt.Errorf("search source: facet tracks: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		q := base
		q.Limit = ws
		var err error
		if text, err = s.source.Search(gctx, q); err != nil {
			return fmt.Errorf("search source: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, 0, err
	}

	kept := taxonomy.Tracks[:0:0]
	for i := range taxonomy.Tracks {
		if MatchesFilters(&taxonomy.Tracks[i], base.FieldFilters) {
			kept = append(kept, taxonomy.Tracks[i])
		}
	}
	dropped := len(taxonomy.Tracks) - len(kept)

	merged := ranking.MergeHybrid(kept, text.Tracks, s.cfg.Weights)
	overlap := len(kept) + len(text.Tracks) - len(merged)
	total = taxonomy.Total - dropped + text.Total - overlap
	return merged, max(total, len(merged)), text.TotalVersions, nil
}

// resolveFacets maps facet labels to ids. Labels match case-insensitively;
// a label with no facet is skipped.
func (s *Service) resolveFacets(ctx context.Context, labels []string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, label := range labels {
		facets, err := s.source.SearchFacets(ctx, label, s.cfg.FacetCategories)
		if err != nil {
			return nil, fmt.Errorf("search source: facets %q: %w", label, err)
		}
		found := false
		for _, f := range facets {
			if !strings.EqualFold(strings.TrimSpace(f.Label), strings.TrimSpace(label)) {
				continue
			}
			found = true
			if _, dup := seen[f.ID]; !dup {
				seen[f.ID] = struct{}{}
				ids = append(ids, f.ID)
			}
		}
		if !found {
			logging.Ctx(ctx).Debug().Str("label", label).Msg("no facet for label, skipping")
		}
	}
	return ids, nil
}

// InvalidateCache drops every cached working set and returns how many were
// dropped.
func (s *Service) InvalidateCache() int {
	n := s.cache.Len()
	s.cache.Clear()
	metrics.RerankCacheEntries.Set(0)
	return n
}

// CacheStats returns the rerank cache statistics.
func (s *Service) CacheStats() cache.Stats { return s.cache.GetStats() }

// SweepCache removes expired working sets periodically until ctx is done.
func (s *Service) SweepCache(ctx context.Context) error {
	err := s.cache.Run(ctx, s.cfg.SweepInterval)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// WatchRules drops cached working sets and stale compiled patterns whenever
// a new rule snapshot is published, so an edited rule never serves results
// ranked by its old version. It blocks until ctx is done.
func (s *Service) WatchRules(ctx context.Context) error {
	ch, unsubscribe := s.provider.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-ch:
			n := s.InvalidateCache()
			patterns := s.matcher.Retain(snap.Rules)
			s.logger.Info().
				Uint64("version", snap.Version).
				Int("dropped", n).
				Int("patterns_dropped", patterns).
				Msg("rule snapshot changed, rerank cache cleared")
		}
	}
}

func newResponse(tracks []models.Track, total, versions, offset int, applied []ranking.AppliedRule, adjustments []ranking.ScoreAdjustment) *Response {
	if tracks == nil {
		tracks = []models.Track{}
	}
	if applied == nil {
		applied = []ranking.AppliedRule{}
	}
	if adjustments == nil {
		adjustments = []ranking.ScoreAdjustment{}
	}
	return &Response{
		Tracks:        tracks,
		TotalCount:    total,
		TotalVersions: versions,
		Showing:       showing(offset, len(tracks)),
		Meta: Meta{
			AppliedRules:     applied,
			ScoreAdjustments: adjustments,
		},
	}
}

// showing renders the 1-based range of a page, "0-0" when it is empty.
func showing(offset, n int) string {
	if n == 0 {
		return "0-0"
	}
	return fmt.Sprintf("%d-%d", offset+1, offset+n)
}
