// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/assistant"
	"github.com/tomtom215/trackfinder/internal/cache"
	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/projects"
	"github.com/tomtom215/trackfinder/internal/rules"
	"github.com/tomtom215/trackfinder/internal/search"
)

// Searcher is the ranked search service.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	MatchRules(query string) (*rules.Snapshot, []rules.Rule)
	CacheStats() cache.Stats
}

// Assistant answers free-text messages.
type Assistant interface {
	Handle(ctx context.Context, req assistant.Request) (*search.Response, error)
}

// RuleSource exposes and reloads the active rule snapshot.
type RuleSource interface {
	Snapshot() *rules.Snapshot
	Reload(ctx context.Context) (*rules.Snapshot, error)
}

// ReloadPublisher announces a local rule reload to other instances.
type ReloadPublisher interface {
	PublishReload(ctx context.Context, snap *rules.Snapshot) error
}

// TrackStore reads catalog tracks.
type TrackStore interface {
	GetTrack(ctx context.Context, id string) (models.Track, error)
	SimilarTracks(ctx context.Context, id string, hasStems *bool, limit int) ([]models.Track, error)
	Ping(ctx context.Context) error
}

// ProjectStore keeps project playlists.
type ProjectStore interface {
	Create(ctx context.Context, in *projects.CreateInput) (models.Project, error)
	Get(ctx context.Context, id string) (models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Tracks(ctx context.Context, id string) ([]models.ProjectTrack, error)
	AddTrack(ctx context.Context, id, trackID, notes string) (models.ProjectTrack, error)
	RemoveTrack(ctx context.Context, id, trackID string) error
}

// Deps are the services the handlers call. Events is optional.
type Deps struct {
	Search    Searcher
	Assistant Assistant
	Rules     RuleSource
	Events    ReloadPublisher
	Tracks    TrackStore
	Projects  ProjectStore
}

// Handler serves the API endpoints.
type Handler struct {
	deps      Deps
	config    *config.Config
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates the API handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(deps Deps, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		deps:      deps,
		config:    cfg,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}

// page reads limit and offset. limit defaults to the configured page size
// and is capped at the maximum; 0 asks for counts only.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	if limit, ok = intParam(w, r, "limit", h.config.API.DefaultPageSize); !ok {
		return 0, 0, false
	}
	if offset, ok = intParam(w, r, "offset", 0); !ok {
		return 0, 0, false
	}
	return h.capLimit(limit), offset, true
}

func (h *Handler) capLimit(limit int) int {
	if limit > h.config.API.MaxPageSize {
		return h.config.API.MaxPageSize
	}
	return limit
}
