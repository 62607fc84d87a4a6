// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/logging"
)

// AccessLog writes one zerolog line per request. 5xx responses log at
// error level, 4xx at warn, the rest at debug.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := logger.With().Str("request_id", logging.RequestIDFromContext(r.Context())).Logger()
			ctx := logging.ContextWithLogger(r.Context(), reqLogger)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := statusOf(ww)
			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = reqLogger.Error()
			case status >= http.StatusBadRequest:
				event = reqLogger.Warn()
			default:
				event = reqLogger.Debug()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
