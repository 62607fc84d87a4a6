// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package config

import (
	"time"

	"github.com/tomtom215/trackfinder/internal/breaker"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Search   SearchConfig   `koanf:"search"`
	Rules    RulesConfig    `koanf:"rules"`
	Cache    CacheConfig    `koanf:"cache"`
	LLM      LLMConfig      `koanf:"llm"`
	Events   EventsConfig   `koanf:"events"`
	Projects ProjectsConfig `koanf:"projects"`
	Security SecurityConfig `koanf:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`  // Deadline applied around every request
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"` // Grace period for in-flight requests
	Environment     string        `koanf:"environment"`      // "development", "staging", "production"
}

// APIConfig holds API pagination settings
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB catalog settings
type DatabaseConfig struct {
	Path      string `koanf:"path"` // Empty or ":memory:" opens an in-memory catalog
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU

	// SeedPath is a directory holding tracks.csv, facets.csv and
	// audio_similarities.csv, imported at startup when set.
	SeedPath string `koanf:"seed_path"`

	// TextWeights weights each text column in free-text scoring.
	TextWeights map[string]float64 `koanf:"text_weights"`
}

// SearchConfig holds ranking and pagination settings
type SearchConfig struct {
	WorkingSetSize  int           `koanf:"working_set"`
	Weights         WeightsConfig `koanf:"weights"`
	FacetCategories []string      `koanf:"facet_categories"` // Empty = all categories
	Breaker         BreakerConfig `koanf:"breaker"`
}

// WeightsConfig holds the hybrid merge constants
type WeightsConfig struct {
	TaxonomyBase float64 `koanf:"taxonomy_base"`
	TextFallback float64 `koanf:"text_fallback"`
}

// RulesConfig locates the business rule file
type RulesConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

// CacheConfig holds rerank cache settings
type CacheConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	MaxEntries    int           `koanf:"max_entries"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LLMConfig holds settings for the OpenAI-compatible query rewriter
type LLMConfig struct {
	Enabled   bool          `koanf:"enabled"`
	BaseURL   string        `koanf:"base_url"` // Empty = api.openai.com
	APIKey    string        `koanf:"api_key"`
	Model     string        `koanf:"model"`
	Timeout   time.Duration `koanf:"timeout"`
	MaxTokens int           `koanf:"max_tokens"`
	Breaker   BreakerConfig `koanf:"breaker"`
}

// EventsConfig holds the rule reload fan-out settings
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Backend string `koanf:"backend"` // "channel" (in-process) or "nats"
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic"`
	// QueueGroup is left empty so every instance receives every reload.
	QueueGroup string `koanf:"queue_group"`
}

// ProjectsConfig holds project store settings
type ProjectsConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SecurityConfig holds rate limiting and CORS settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// BreakerConfig mirrors breaker.Settings for koanf.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// Settings converts to breaker settings.
func (b BreakerConfig) Settings() breaker.Settings {
	return breaker.Settings{
		MaxRequests:  b.MaxRequests,
		Interval:     b.Interval,
		Timeout:      b.Timeout,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}
