// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

// HealthStatus is the readiness response body.
type HealthStatus struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	RulesVersion uint64            `json:"rules_version"`
	RerankCache  CacheStatus       `json:"rerank_cache"`
	Uptime       float64           `json:"uptime_seconds"`
}

// CacheStatus summarizes the rerank cache.
type CacheStatus struct {
	Entries   int64   `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate_percent"`
}

// HealthLive reports that the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 200 once the catalog answers and a rule snapshot is
// loaded, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := HealthStatus{
		Status:       "ready",
		Checks:       map[string]string{"catalog": "ok", "rules": "ok"},
		RulesVersion: h.deps.Rules.Snapshot().Version,
		Uptime:       time.Since(h.startTime).Seconds(),
	}
	stats := h.deps.Search.CacheStats()
	status.RerankCache = CacheStatus{
		Entries:   stats.TotalKeys,
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
		HitRate:   stats.HitRate(),
	}
	if err := h.deps.Tracks.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("readiness: catalog ping failed")
		status.Checks["catalog"] = "unavailable"
		status.Status = "not_ready"
	}
	if status.RulesVersion == 0 {
		status.Checks["rules"] = "not_loaded"
		status.Status = "not_ready"
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
