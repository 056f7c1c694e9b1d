package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateAPI(cfg, ve)
	validateUsage(cfg, ve)
	validateGeneration(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateAPI(cfg *Config, ve *ValidationError) {
	api := cfg.API
	u, err := url.Parse(api.BaseURL)
	switch {
	case api.BaseURL == "":
		ve.Add("api.base_url must not be empty")
	case err != nil:
		ve.Add("api.base_url %q is invalid: %v", api.BaseURL, err)
	case u.Scheme != "http" && u.Scheme != "https":
		ve.Add("api.base_url %q must use http or https", api.BaseURL)
	case u.Host == "":
		ve.Add("api.base_url %q has no host", api.BaseURL)
	}

	if IsEncrypted(api.AuthToken) {
		ve.Add("api.auth_token is encrypted but %s is not set", KeyEnv)
	}
	if api.ConnTimeout < 0 {
		ve.Add("api.conn_timeout must be >= 0")
	}
	if api.RespTimeout < 0 {
		ve.Add("api.resp_timeout must be >= 0")
	}
	if api.RequestsPerMinute < 0 {
		ve.Add("api.requests_per_minute must be >= 0")
	}
	if api.RequestsPerMinute > 0 && api.Burst < 1 {
		ve.Add("api.burst must be >= 1 when requests_per_minute is set")
	}
	if api.CircuitBreaker.Timeout < 0 || api.CircuitBreaker.Interval < 0 {
		ve.Add("api.circuit_breaker durations must be >= 0")
	}
}

func validateUsage(cfg *Config, ve *ValidationError) {
	if cfg.Usage.SessionLimit < 0 {
		ve.Add("usage.session_limit must be >= 0")
	}
	if cfg.Usage.DailyLimit < 0 {
		ve.Add("usage.daily_limit must be >= 0")
	}
	if cfg.Usage.MinInterval < 0 {
		ve.Add("usage.min_interval must be >= 0")
	}
}

func validateGeneration(cfg *Config, ve *ValidationError) {
	g := cfg.Generation
	if g.MaxContextWords <= 0 {
		ve.Add("generation.max_context_words must be > 0")
	}
	if g.ReplayChunkSize <= 0 {
		ve.Add("generation.replay_chunk_size must be > 0")
	}
	if g.ReplayDelay < 0 {
		ve.Add("generation.replay_delay must be >= 0")
	}
}

var validLogFormats = map[string]bool{"text": true, "json": true}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if f := strings.ToLower(cfg.Logger.Format); f != "" && !validLogFormats[f] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
	if l := strings.ToLower(cfg.Logger.Level); l != "" && !validLogLevels[l] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
}

var validExporters = map[string]bool{"": true, "noop": true, "stdout": true}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}
