// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

/*
Package metrics provides Prometheus instrumentation for Trackfinder.

All collectors are registered on the default registry through promauto and
exposed at /metrics.

# Available Metrics

Ranking:
  - trackfinder_rules_matched_total{type}
  - trackfinder_rules_applied_total{type}
  - trackfinder_rule_snapshot_version
  - trackfinder_rule_reloads_total{result}

Pagination:
  - trackfinder_rerank_cache_hits_total / _misses_total / _evictions_total
  - trackfinder_rerank_cache_entries
  - trackfinder_pagination_requests_total{state}
  - trackfinder_search_duration_seconds{state}

Infrastructure:
  - trackfinder_api_requests_total{method,endpoint,status}
  - trackfinder_api_request_duration_seconds{method,endpoint}
  - trackfinder_duckdb_query_duration_seconds{operation}
  - trackfinder_circuit_breaker_state{name}
  - trackfinder_llm_requests_total{outcome}
  - trackfinder_events_published_total{topic}
  - trackfinder_project_operations_total{operation,result}
*/
package metrics
