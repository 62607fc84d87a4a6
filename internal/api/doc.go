// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package api serves the Trackfinder HTTP surface on a Chi router.

Routes:

	GET    /api/v1/search?q=&limit=&offset=
	POST   /api/v1/assistant
	GET    /api/v1/rules
	GET    /api/v1/rules/match?q=
	POST   /api/v1/rules/reload
	GET    /api/v1/tracks/{id}
	GET    /api/v1/tracks/{id}/similar?has_stems=&limit=
	GET    /api/v1/projects
	POST   /api/v1/projects
	GET    /api/v1/projects/{id}
	POST   /api/v1/projects/{id}/tracks
	DELETE /api/v1/projects/{id}/tracks/{trackID}
	GET    /health/live
	GET    /health/ready
	GET    /metrics

Search and assistant calls answer with the search response body directly.
Errors share one envelope:

	{"error": {"code": "VALIDATION_ERROR", "message": "...", "request_id": "..."}}

Handlers depend on small interfaces so tests can swap in fakes.
*/
package api
