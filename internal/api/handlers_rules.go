// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/trackfinder/internal/rules"
)

// RuleMatchResponse previews which rules a query triggers.
type RuleMatchResponse struct {
	Query   string       `json:"query"`
	Version uint64       `json:"version"`
	Matched []rules.Rule `json:"matched"`
	RuleIDs []string     `json:"rule_ids"`
}

// ReloadResponse reports the snapshot a reload produced.
type ReloadResponse struct {
	Version   uint64    `json:"version"`
	Source    string    `json:"source"`
	RuleCount int       `json:"rule_count"`
	LoadedAt  time.Time `json:"loaded_at"`
	Announced bool      `json:"announced"`
}

// ListRules handles GET /api/v1/rules.
func (h *Handler) ListRules(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.deps.Rules.Snapshot())
}

// MatchRules handles GET /api/v1/rules/match.
func (h *Handler) MatchRules(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, http.StatusBadRequest, CodeValidation, "q is required", nil)
		return
	}
	snap, matched := h.deps.Search.MatchRules(q)
	if matched == nil {
		matched = []rules.Rule{}
	}
	respondJSON(w, http.StatusOK, RuleMatchResponse{
		Query:   q,
		Version: snap.Version,
		Matched: matched,
		RuleIDs: rules.IDs(matched),
	})
}

// ReloadRules handles POST /api/v1/rules/reload. On failure the previous
// snapshot stays active. A successful reload is announced to other
// instances when an event bus is configured.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Rules.Reload(r.Context())
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "RULES_ERROR",
			"Rule reload failed; the previous rules remain active", err)
		return
	}

	resp := ReloadResponse{
		Version:   snap.Version,
		Source:    snap.Source,
		RuleCount: len(snap.Rules),
		LoadedAt:  snap.LoadedAt,
	}
	if h.deps.Events != nil {
		if err := h.deps.Events.PublishReload(r.Context(), snap); err != nil {
			h.logger.Warn().Err(err).Uint64("version", snap.Version).Msg("failed to announce rule reload")
		} else {
			resp.Announced = true
		}
	}
	h.logger.Info().Uint64("version", snap.Version).Int("rules", resp.RuleCount).Msg("rules reloaded via API")
	respondJSON(w, http.StatusOK, resp)
}
