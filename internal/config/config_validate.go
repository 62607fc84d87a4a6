// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateSearch(); err != nil {
		return err
	}

	if err := c.validateRules(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateLLM(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	if err := c.validateProjects(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must not be negative")
	}
	return nil
}

// validateAPI validates pagination settings
func (c *Config) validateAPI() error {
	if c.API.MaxPageSize < 1 {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be at least 1")
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE (%d)", c.API.MaxPageSize)
	}
	return nil
}

// validateDatabase validates catalog settings
func (c *Config) validateDatabase() error {
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	for column, w := range c.Database.TextWeights {
		if !validTextColumns[column] {
			return fmt.Errorf("database.text_weights: unknown column %q", column)
		}
		if w < 0 {
			return fmt.Errorf("database.text_weights.%s must not be negative", column)
		}
	}
	return nil
}

// validTextColumns are the catalog columns free text can be matched against.
var validTextColumns = map[string]bool{
	"track_title":       true,
	"track_description": true,
	"album_title":       true,
	"library_name":      true,
	"composer":          true,
}

// validateSearch validates ranking settings
func (c *Config) validateSearch() error {
	if c.Search.WorkingSetSize < 1 {
		return fmt.Errorf("SEARCH_WORKING_SET must be at least 1")
	}
	if c.Search.Weights.TaxonomyBase < 0 || c.Search.Weights.TextFallback < 0 {
		return fmt.Errorf("search.weights must not be negative")
	}
	return validateBreaker("search.breaker", c.Search.Breaker)
}

// validateRules validates the rule file location
func (c *Config) validateRules() error {
	if strings.TrimSpace(c.Rules.Path) == "" {
		return fmt.Errorf("RULES_PATH is required")
	}
	return nil
}

// validateCache validates rerank cache settings
func (c *Config) validateCache() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must not be negative")
	}
	if c.Cache.SweepInterval < time.Second {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be at least 1s")
	}
	return nil
}

// validateLLM validates the query rewriter (only if enabled)
func (c *Config) validateLLM() error {
	if !c.LLM.Enabled {
		return nil
	}
	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY or LLM_BASE_URL is required when LLM_ENABLED=true")
	}
	if c.LLM.BaseURL != "" {
		if err := validateHTTPURL(c.LLM.BaseURL, "LLM_BASE_URL"); err != nil {
			return err
		}
	}
	if containsPlaceholder(c.LLM.APIKey) {
		return fmt.Errorf("OPENAI_API_KEY looks like a placeholder value")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required when LLM_ENABLED=true")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	return validateBreaker("llm.breaker", c.LLM.Breaker)
}

// validateEvents validates the reload fan-out (only if enabled)
func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required when EVENTS_ENABLED=true")
	}
	switch c.Events.Backend {
	case "channel":
		return nil
	case "nats":
		if err := validateNATSURL(c.Events.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_BACKEND must be one of: channel, nats")
	}
}

// validateProjects validates the project store location
func (c *Config) validateProjects() error {
	if !c.Projects.InMemory && strings.TrimSpace(c.Projects.Path) == "" {
		return fmt.Errorf("PROJECTS_PATH is required unless PROJECTS_IN_MEMORY=true")
	}
	return nil
}

// validateSecurity validates rate limiting and CORS
func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS must not contain * in production")
	}
	return nil
}

// hasWildcardCORS reports whether any CORS origin is "*"
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func validateBreaker(name string, b BreakerConfig) error {
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("%s.failure_ratio must be in (0, 1], got %v", name, b.FailureRatio)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be positive", name)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns are values that indicate the operator forgot to set a real secret.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_API_KEY",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
