// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide (it caches struct
// metadata). Field names in messages are taken from json tags so errors read
// the same as the rule file or request body that produced them.
//
// It is used in two places: decoding business rules (every action payload is
// validated before a rule enters a snapshot) and API request bodies.
//
//	type AddTrackRequest struct {
//	    TrackID string `json:"track_id" validate:"required"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
