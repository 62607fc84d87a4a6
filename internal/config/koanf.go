// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trackfinder/config.yaml",
	"/etc/trackfinder/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		API: APIConfig{
			DefaultPageSize: 12,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/trackfinder.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
			SeedPath:  "",
			TextWeights: map[string]float64{
				"track_title":       3.0,
				"album_title":       2.0,
				"track_description": 1.0,
				"composer":          1.0,
				"library_name":      0.5,
			},
		},
		Search: SearchConfig{
			WorkingSetSize: 500,
			Weights: WeightsConfig{
				TaxonomyBase: 1.0,
				TextFallback: 0.5,
			},
			FacetCategories: []string{},
			Breaker: BreakerConfig{
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Rules: RulesConfig{
			Path:  "rules.yaml",
			Watch: true,
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			MaxEntries:    1000,
			SweepInterval: time.Minute,
		},
		LLM: LLMConfig{
			Enabled:   false, // Opt-in; the fast path always works without it
			BaseURL:   "",
			APIKey:    "",
			Model:     "gpt-4o-mini",
			Timeout:   10 * time.Second,
			MaxTokens: 200,
			Breaker: BreakerConfig{
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      time.Minute,
				MinRequests:  5,
				FailureRatio: 0.5,
			},
		},
		Events: EventsConfig{
			Enabled: true,
			Backend: "channel",
			NATSURL: "nats://127.0.0.1:4222",
			Topic:   "rules.reloaded",
		},
		Projects: ProjectsConfig{
			Path:     "/data/projects",
			InMemory: false,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources:
//  1. Defaults (lowest priority)
//  2. Config file (YAML), if found
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, else the first default path found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are keys whose env values arrive as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"search.facet_categories",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps flat environment variable names to koanf paths.
var envMappings = map[string]string{
	"http_port":        "server.port",
	"http_host":        "server.host",
	"request_timeout":  "server.request_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_path":         "database.seed_path",

	"search_working_set":      "search.working_set",
	"search_taxonomy_base":    "search.weights.taxonomy_base",
	"search_text_fallback":    "search.weights.text_fallback",
	"search_facet_categories": "search.facet_categories",

	"rules_path":  "rules.path",
	"rules_watch": "rules.watch",

	"cache_ttl":            "cache.ttl",
	"cache_max_entries":    "cache.max_entries",
	"cache_sweep_interval": "cache.sweep_interval",

	"llm_enabled":    "llm.enabled",
	"llm_base_url":   "llm.base_url",
	"openai_api_key": "llm.api_key",
	"llm_api_key":    "llm.api_key",
	"llm_model":      "llm.model",
	"llm_timeout":    "llm.timeout",
	"llm_max_tokens": "llm.max_tokens",

	"events_enabled":     "events.enabled",
	"events_backend":     "events.backend",
	"nats_url":           "events.nats_url",
	"events_topic":       "events.topic",
	"events_queue_group": "events.queue_group",

	"projects_path":      "projects.path",
	"projects_in_memory": "projects.in_memory",

	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
}

// envTransformFunc maps an environment variable to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
