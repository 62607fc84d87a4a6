// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generates when missing", "", false},
		{"keeps upstream id", "existing-request-id-12345", true},
		{"replaces oversized id", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var captured string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = logging.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got != captured {
				t.Errorf("header %q != context %q", got, captured)
			}
			if tt.keep {
				if got != tt.incoming {
					t.Errorf("X-Request-ID = %q, want %q", got, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("X-Request-ID %q is not a UUID: %v", got, err)
			}
		})
	}
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/mwtest/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/mwtest/silent", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/mwtest/tracks/A1", "/mwtest/tracks/B2", "/mwtest/silent"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "/mwtest/tracks/{id}", "418")); got != 2 {
		t.Errorf("requests for route pattern = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "/mwtest/silent", "200")); got != 1 {
		t.Errorf("requests without WriteHeader = %v, want 1 with status 200", got)
	}
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewTestLogger(&buf)
	h := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Ctx(r.Context()).Info().Msg("inside handler")
		http.Error(w, "nope", http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks/NOPE", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"message":"inside handler"`, `"request_id":"req-42"`, `"status":404`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
