// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackfinder_duckdb_query_duration_seconds",
			Help:    "Duration of catalog DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_duckdb_query_errors_total",
			Help: "Total number of failed catalog queries",
		},
		[]string{"operation"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackfinder_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackfinder_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Business rules
	RulesMatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_rules_matched_total",
			Help: "Rules whose pattern matched a query, by rule type",
		},
		[]string{"type"},
	)

	RulesAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_rules_applied_total",
			Help: "Rules that changed or annotated a result set, by rule type",
		},
		[]string{"type"},
	)

	RuleSnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackfinder_rule_snapshot_version",
			Help: "Version of the rule snapshot currently served",
		},
	)

	RuleReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_rule_reloads_total",
			Help: "Rule reload attempts by result",
		},
		[]string{"result"},
	)

	// Rerank cache and pagination
	RerankCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackfinder_rerank_cache_hits_total",
			Help: "Pages served from a cached re-ranked result set",
		},
	)

	RerankCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackfinder_rerank_cache_misses_total",
			Help: "Rerank cache lookups that required a fresh working-set fetch",
		},
	)

	RerankCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackfinder_rerank_cache_evictions_total",
			Help: "Entries dropped from the rerank cache because they expired",
		},
	)

	RerankCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trackfinder_rerank_cache_entries",
			Help: "Entries currently held by the rerank cache",
		},
	)

	PaginationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_pagination_requests_total",
			Help: "Search requests by pagination state",
		},
		[]string{"state"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackfinder_search_duration_seconds",
			Help:    "End-to-end ranked search duration by pagination state",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	// Resilience
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trackfinder_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Assistant
	AssistantRoutesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_assistant_routes_total",
			Help: "Assistant queries by chosen route",
		},
		[]string{"route"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_llm_requests_total",
			Help: "Language model rewrite calls by outcome",
		},
		[]string{"outcome"},
	)

	// Event bus
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_events_published_total",
			Help: "Events published to the bus by topic",
		},
		[]string{"topic"},
	)

	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_events_consumed_total",
			Help: "Events consumed from the bus by topic and result",
		},
		[]string{"topic", "result"},
	)

	// Projects
	ProjectOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackfinder_project_operations_total",
			Help: "Project store operations by kind and result",
		},
		[]string{"operation", "result"},
	)
)

// RecordDBQuery records a catalog query.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRuleMatched counts one matched rule.
func RecordRuleMatched(ruleType string) {
	RulesMatchedTotal.WithLabelValues(ruleType).Inc()
}

// RecordRuleApplied counts one applied rule.
func RecordRuleApplied(ruleType string) {
	RulesAppliedTotal.WithLabelValues(ruleType).Inc()
}

// RecordRuleReload records a reload attempt and, on success, the new version.
func RecordRuleReload(version uint64, err error) {
	if err != nil {
		RuleReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	RuleReloadsTotal.WithLabelValues("success").Inc()
	RuleSnapshotVersion.Set(float64(version))
}

// RecordPagination records one ranked search by pagination state.
func RecordPagination(state string, duration time.Duration) {
	PaginationRequestsTotal.WithLabelValues(state).Inc()
	SearchDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition updates the state gauge and transition counter.
func RecordCircuitBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordAssistantRoute counts one routed assistant query.
func RecordAssistantRoute(route string) {
	AssistantRoutesTotal.WithLabelValues(route).Inc()
}

// RecordLLMRequest counts one language model call ("ok", "error", "rejected", "invalid").
func RecordLLMRequest(outcome string) {
	LLMRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordEventPublished counts one published event.
func RecordEventPublished(topic string) {
	EventsPublishedTotal.WithLabelValues(topic).Inc()
}

// RecordEventConsumed counts one consumed event.
func RecordEventConsumed(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsConsumedTotal.WithLabelValues(topic, result).Inc()
}

// RecordProjectOperation counts one project store operation.
func RecordProjectOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProjectOperationsTotal.WithLabelValues(operation, result).Inc()
}
