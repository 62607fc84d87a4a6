// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package middleware provides the HTTP middleware shared by every route.

  - RequestID: X-Request-ID propagation into the response and the logging context
  - AccessLog: one zerolog line per request, level by status class
  - PrometheusMetrics: trackfinder_api_requests_total and request durations,
    labeled by chi route pattern

All three use the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logging.WithComponent("http")))
	r.Use(middleware.PrometheusMetrics)

RequestID must run first so the other two can read the ID from the context.
*/
package middleware
