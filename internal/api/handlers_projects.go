// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trackfinder/internal/models"
	"github.com/tomtom215/trackfinder/internal/projects"
	"github.com/tomtom215/trackfinder/internal/validation"
)

// ProjectListResponse is the body of GET /api/v1/projects.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects"`
	Count    int              `json:"count"`
}

// ProjectDetailResponse is a project with its placed tracks.
type ProjectDetailResponse struct {
	models.Project
	Tracks     []models.ProjectTrack `json:"tracks"`
	TrackCount int                   `json:"track_count"`
}

// AddTrackRequest is the body of POST /api/v1/projects/{id}/tracks.
type AddTrackRequest struct {
	TrackID string `json:"track_id" validate:"required,max=100"`
	Notes   string `json:"notes,omitempty" validate:"max=1000"`
}

// CreateProject handles POST /api/v1/projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in projects.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.deps.Projects.Create(r.Context(), &in)
	if err != nil {
		h.respondProjectError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// ListProjects handles GET /api/v1/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Projects.List(r.Context())
	if err != nil {
		h.respondProjectError(w, err)
		return
	}
	if list == nil {
		list = []models.Project{}
	}
	respondJSON(w, http.StatusOK, ProjectListResponse{Projects: list, Count: len(list)})
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.deps.Projects.Get(r.Context(), id)
	if err != nil {
		h.respondProjectError(w, err)
		return
	}
	tracks, err := h.deps.Projects.Tracks(r.Context(), id)
	if err != nil {
		h.respondProjectError(w, err)
		return
	}
	if tracks == nil {
		tracks = []models.ProjectTrack{}
	}
	respondJSON(w, http.StatusOK, ProjectDetailResponse{Project: p, Tracks: tracks, TrackCount: len(tracks)})
}

// AddProjectTrack handles POST /api/v1/projects/{id}/tracks.
func (h *Handler) AddProjectTrack(w http.ResponseWriter, r *http.Request) {
	var body AddTrackRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.TrackID = strings.TrimSpace(body.TrackID)
	if !validateRequest(w, &body) {
		return
	}

	pt, err := h.deps.Projects.AddTrack(r.Context(), chi.URLParam(r, "id"), body.TrackID, body.Notes)
	if err != nil {
		h.respondProjectError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pt)
}

// RemoveProjectTrack handles DELETE /api/v1/projects/{id}/tracks/{trackID}.
func (h *Handler) RemoveProjectTrack(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Projects.RemoveTrack(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "trackID"))
	if err != nil {
		h.respondProjectError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondProjectError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, verr)
	case errors.Is(err, projects.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Project not found", nil)
	case errors.Is(err, projects.ErrTrackNotInProject):
		respondError(w, http.StatusNotFound, CodeNotFound, "Track is not in this project", nil)
	case errors.Is(err, projects.ErrTrackNotInCatalog):
		respondError(w, http.StatusBadRequest, CodeValidation, "Track does not exist in the catalog", nil)
	case errors.Is(err, projects.ErrDuplicateTrack):
		respondError(w, http.StatusConflict, CodeConflict, "Track is already in this project", nil)
	default:
		respondError(w, http.StatusInternalServerError, CodeInternal, "Project operation failed", err)
	}
}
