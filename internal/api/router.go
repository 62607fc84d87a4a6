// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/trackfinder/internal/middleware"
)

// Routes builds the Chi router with the global middleware stack.
func (h *Handler) Routes() http.Handler {
	mw := NewChiMiddleware(ChiMiddlewareConfigFrom(&h.config.Security))
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, CodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		if d := h.config.Server.RequestTimeout; d > 0 {
			r.Use(chimiddleware.Timeout(d))
		}

		r.Get("/search", h.Search)
		r.Post("/assistant", h.Assist)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Get("/match", h.MatchRules)
			r.Post("/reload", h.ReloadRules)
		})

		r.Route("/tracks/{id}", func(r chi.Router) {
			r.Get("/", h.GetTrack)
			r.Get("/similar", h.SimilarTracks)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Post("/tracks", h.AddProjectTrack)
				r.Delete("/tracks/{trackID}", h.RemoveProjectTrack)
			})
		})
	})

	return r
}
