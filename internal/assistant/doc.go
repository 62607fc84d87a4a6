// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package assistant turns chat messages into ranked searches.

Each message is classified onto one of two routes:

  - fast: messages with @field:value tokens, or short keyword lists, go
    straight to the search service. Tokens become facet restrictions or
    field filters (see Parse).
  - llm: questions and longer prose are first rewritten into keywords by an
    OpenAI-compatible chat model, asked for {"query": "..."}.

The model call runs behind a circuit breaker named "llm". Any model
failure, an open breaker or an unreadable reply falls back to the fast
route with the raw message; the caller only sees search results. The
route taken is reported in the response's _meta.route.
*/
package assistant
