// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package config provides centralized configuration management for Trackfinder.

Configuration is layered with koanf:

 1. Defaults from defaultConfig (structs provider)
 2. A YAML file: CONFIG_PATH, else config.yaml / config.yml / /etc/trackfinder/config.yaml
 3. Environment variables, through an explicit name mapping

Validate runs after unmarshalling and fails fast on the first invalid section.

# Sections

  - server: listen address, request deadline, shutdown grace period
  - api: default and maximum page size
  - logging: level, format, caller
  - database: DuckDB catalog path, memory limit, seed directory, text column weights
  - search: working set size, hybrid merge weights, facet categories, source breaker
  - rules: rule file path and hot reload
  - cache: rerank cache TTL, size bound, sweep interval
  - llm: OpenAI-compatible query rewriter and its breaker
  - events: rule reload fan-out over an in-process channel or NATS
  - projects: badger directory for project playlists
  - security: rate limiting and CORS

# Environment Variables

A selection; see envMappings for the full list.

  - HTTP_PORT, HTTP_HOST, REQUEST_TIMEOUT, ENVIRONMENT
  - API_DEFAULT_PAGE_SIZE (default 12), API_MAX_PAGE_SIZE (default 100)
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, SEED_PATH
  - SEARCH_WORKING_SET (default 500), SEARCH_FACET_CATEGORIES (comma-separated)
  - RULES_PATH, RULES_WATCH
  - CACHE_TTL (default 5m), CACHE_MAX_ENTRIES, CACHE_SWEEP_INTERVAL
  - LLM_ENABLED, LLM_BASE_URL, OPENAI_API_KEY, LLM_MODEL, LLM_TIMEOUT
  - EVENTS_ENABLED, EVENTS_BACKEND (channel|nats), NATS_URL, EVENTS_TOPIC
  - PROJECTS_PATH, PROJECTS_IN_MEMORY
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal().Err(err).Msg("Failed to load config")
	}
*/
package config
