// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/trackfinder/internal/assistant"
	"github.com/tomtom215/trackfinder/internal/breaker"
	"github.com/tomtom215/trackfinder/internal/search"
	"github.com/tomtom215/trackfinder/internal/validation"
)

const maxQueryLen = 1000

// AssistantRequest is the body of POST /api/v1/assistant. A missing limit
// falls back to the default page size.
type AssistantRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
	Limit   *int   `json:"limit,omitempty" validate:"omitempty,gte=0"`
	Offset  int    `json:"offset,omitempty" validate:"gte=0"`
}

// Search handles GET /api/v1/search. @field:value tokens in q become
// filters and facet selections.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > maxQueryLen {
		respondError(w, http.StatusBadRequest, CodeValidation, "q must be at most 1000 characters", nil)
		return
	}
	limit, offset, ok := h.page(w, r)
	if !ok {
		return
	}

	parsed := assistant.Parse(q)
	resp, err := h.deps.Search.Search(r.Context(), search.Request{
		Query:   parsed.Text,
		Facets:  parsed.Facets,
		Filters: parsed.Filters,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.respondSearchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Assist handles POST /api/v1/assistant.
func (h *Handler) Assist(w http.ResponseWriter, r *http.Request) {
	var body AssistantRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.Message = strings.TrimSpace(body.Message)
	if !validateRequest(w, &body) {
		return
	}

	limit := h.config.API.DefaultPageSize
	if body.Limit != nil {
		limit = h.capLimit(*body.Limit)
	}
	resp, err := h.deps.Assistant.Handle(r.Context(), assistant.Request{
		Message: body.Message,
		Limit:   limit,
		Offset:  body.Offset,
	})
	if err != nil {
		h.respondSearchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondSearchError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondValidation(w, verr)
	case errors.Is(err, breaker.ErrOpen):
		respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "Search is temporarily unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, CodeSearch, "Search timed out", err)
	case errors.Is(err, context.Canceled):
		h.logger.Debug().Err(err).Msg("client went away during search")
	default:
		respondError(w, http.StatusInternalServerError, CodeSearch, "Search failed", err)
	}
}
