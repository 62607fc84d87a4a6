// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/middleware"
	"github.com/tomtom215/trackfinder/internal/validation"
)

// Error codes returned in the error envelope.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeSearch           = "SEARCH_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

const maxBodyBytes = 1 << 20

// APIError is the body of a failed request.
type APIError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// sanitizeLogValue escapes control characters so client input cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes v with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes the error envelope. err, when set, is logged but never sent.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		event := logging.Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Error()
		}
		event.Str("code", code).
			Str("request_id", w.Header().Get(middleware.RequestIDHeader)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	respondJSON(w, status, errorEnvelope{Error: &APIError{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get(middleware.RequestIDHeader),
	}})
}

// respondValidation writes a VALIDATION_ERROR built from validator failures.
func respondValidation(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, errorEnvelope{Error: &APIError{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		Details:   apiErr.Details,
		RequestID: w.Header().Get(middleware.RequestIDHeader),
	}})
}

// validateRequest runs struct tags on v. It writes the error response and
// returns false when validation fails.
func validateRequest(w http.ResponseWriter, v interface{}) bool {
	if verr := validation.ValidateStruct(v); verr != nil {
		respondValidation(w, verr)
		return false
	}
	return true
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid JSON body"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "Request body is empty"
		case errors.As(err, &tooLarge):
			msg = "Request body too large"
		}
		respondError(w, http.StatusBadRequest, CodeValidation, msg, err)
		return false
	}
	return true
}

// intParam reads a non-negative integer query parameter. Missing values
// yield def; malformed or negative values write a VALIDATION_ERROR.
func intParam(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("%s must be a non-negative integer", key), nil)
		return 0, false
	}
	return n, true
}

// boolParam reads an optional boolean query parameter.
func boolParam(w http.ResponseWriter, r *http.Request, key string) (*bool, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("%s must be true or false", key), nil)
		return nil, false
	}
	return &b, true
}
