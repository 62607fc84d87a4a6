// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.API.DefaultPageSize != 12 || cfg.API.MaxPageSize != 100 {
		t.Errorf("API page sizes = %d/%d, want 12/100", cfg.API.DefaultPageSize, cfg.API.MaxPageSize)
	}
	if cfg.Search.WorkingSetSize != 500 {
		t.Errorf("Search.WorkingSetSize = %d, want 500", cfg.Search.WorkingSetSize)
	}
	if cfg.Search.Weights.TaxonomyBase != 1.0 || cfg.Search.Weights.TextFallback != 0.5 {
		t.Errorf("Search.Weights = %+v, want {1 0.5}", cfg.Search.Weights)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.LLM.Enabled {
		t.Error("LLM should be disabled by default")
	}
	if cfg.Events.Backend != "channel" {
		t.Errorf("Events.Backend = %q, want channel", cfg.Events.Backend)
	}
	if cfg.Database.TextWeights["track_title"] != 3.0 {
		t.Errorf("TextWeights[track_title] = %v, want 3", cfg.Database.TextWeights["track_title"])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"REQUEST_TIMEOUT", "server.request_timeout"},
		{"API_DEFAULT_PAGE_SIZE", "api.default_page_size"},
		{"DUCKDB_PATH", "database.path"},
		{"SEED_PATH", "database.seed_path"},
		{"SEARCH_WORKING_SET", "search.working_set"},
		{"SEARCH_TAXONOMY_BASE", "search.weights.taxonomy_base"},
		{"RULES_PATH", "rules.path"},
		{"CACHE_TTL", "cache.ttl"},
		{"OPENAI_API_KEY", "llm.api_key"},
		{"LLM_BASE_URL", "llm.base_url"},
		{"NATS_URL", "events.nats_url"},
		{"EVENTS_BACKEND", "events.backend"},
		{"PROJECTS_PATH", "projects.path"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"LOG_LEVEL", "logging.level"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
search:
  working_set: 200
  weights:
    taxonomy_base: 2.0
    text_fallback: 0.25
database:
  path: ":memory:"
  seed_path: /data/seed
cache:
  ttl: 90s
rules:
  path: /etc/trackfinder/rules.yaml
`)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Search.WorkingSetSize != 200 {
		t.Errorf("Search.WorkingSetSize = %d, want 200", cfg.Search.WorkingSetSize)
	}
	if cfg.Search.Weights.TaxonomyBase != 2.0 || cfg.Search.Weights.TextFallback != 0.25 {
		t.Errorf("Search.Weights = %+v", cfg.Search.Weights)
	}
	if cfg.Database.SeedPath != "/data/seed" {
		t.Errorf("Database.SeedPath = %q", cfg.Database.SeedPath)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Cache.TTL = %v, want 90s", cfg.Cache.TTL)
	}
	// Untouched sections keep their defaults.
	if cfg.API.DefaultPageSize != 12 {
		t.Errorf("API.DefaultPageSize = %d, want 12", cfg.API.DefaultPageSize)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\nlogging:\n  level: warn\n")
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SEARCH_FACET_CATEGORIES", "Master Genre,Mood")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn from file", cfg.Logging.Level)
	}
	if got := strings.Join(cfg.Security.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("CORSOrigins = %q", got)
	}
	if got := strings.Join(cfg.Search.FacetCategories, "|"); got != "Master Genre|Mood" {
		t.Errorf("FacetCategories = %q", got)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad port",
			env:     map[string]string{"HTTP_PORT": "70000"},
			wantErr: "HTTP_PORT",
		},
		{
			name:    "llm enabled without credentials",
			env:     map[string]string{"LLM_ENABLED": "true"},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "llm placeholder key",
			env:     map[string]string{"LLM_ENABLED": "true", "OPENAI_API_KEY": "your_api_key_here"},
			wantErr: "placeholder",
		},
		{
			name:    "unknown events backend",
			env:     map[string]string{"EVENTS_BACKEND": "kafka"},
			wantErr: "EVENTS_BACKEND",
		},
		{
			name:    "bad nats url",
			env:     map[string]string{"EVENTS_BACKEND": "nats", "NATS_URL": "http://localhost:4222"},
			wantErr: "NATS_URL",
		},
		{
			name:    "default page size above max",
			env:     map[string]string{"API_DEFAULT_PAGE_SIZE": "200"},
			wantErr: "API_DEFAULT_PAGE_SIZE",
		},
		{
			name:    "wildcard cors in production",
			env:     map[string]string{"ENVIRONMENT": "production"},
			wantErr: "CORS_ORIGINS",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"LOG_LEVEL": "loud"},
			wantErr: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, writeConfig(t, "logging:\n  level: info\n"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatalf("LoadWithKoanf() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTextWeights(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Database.TextWeights = map[string]float64{"bpm": 1}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bpm") {
		t.Errorf("Validate() = %v, want unknown column error", err)
	}

	cfg = defaultConfig()
	cfg.Database.TextWeights = map[string]float64{"composer": -1}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject negative weights")
	}
}

func TestBreakerConfigSettings(t *testing.T) {
	t.Parallel()

	b := BreakerConfig{MaxRequests: 2, Interval: time.Second, Timeout: time.Minute, MinRequests: 4, FailureRatio: 0.5}
	s := b.Settings()
	if s.MaxRequests != 2 || s.Interval != time.Second || s.Timeout != time.Minute || s.MinRequests != 4 || s.FailureRatio != 0.5 {
		t.Errorf("Settings() = %+v", s)
	}
}

func TestFindConfigFilePrefersEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1\n")
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	if got := findConfigFile(); got == path {
		t.Error("findConfigFile() returned a stale path")
	}
}
