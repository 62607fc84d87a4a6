// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trackfinder/internal/catalog"
	"github.com/tomtom215/trackfinder/internal/models"
)

const defaultSimilarLimit = 10

// SimilarResponse lists tracks that sound like TrackID.
type SimilarResponse struct {
	TrackID string         `json:"track_id"`
	Tracks  []models.Track `json:"tracks"`
	Count   int            `json:"count"`
}

// GetTrack handles GET /api/v1/tracks/{id}.
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	track, err := h.deps.Tracks.GetTrack(r.Context(), id)
	if err != nil {
		h.respondTrackError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// SimilarTracks handles GET /api/v1/tracks/{id}/similar.
func (h *Handler) SimilarTracks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hasStems, ok := boolParam(w, r, "has_stems")
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", defaultSimilarLimit)
	if !ok {
		return
	}

	tracks, err := h.deps.Tracks.SimilarTracks(r.Context(), id, hasStems, h.capLimit(limit))
	if err != nil {
		h.respondTrackError(w, err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	respondJSON(w, http.StatusOK, SimilarResponse{TrackID: id, Tracks: tracks, Count: len(tracks)})
}

func (h *Handler) respondTrackError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Track not found", nil)
		return
	}
	respondError(w, http.StatusInternalServerError, CodeInternal, "Track lookup failed", err)
}
