package config

import (
	"strings"
	"testing"
	"time"
)

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateAPI(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url must not be empty"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://host" }, "must use http or https"},
		{"no host", func(c *Config) { c.API.BaseURL = "http://" }, "has no host"},
		{"encrypted token", func(c *Config) { c.API.AuthToken = "enc:00:00" }, "MAGIC_CONFIG_KEY is not set"},
		{"negative rpm", func(c *Config) { c.API.RequestsPerMinute = -1 }, "api.requests_per_minute must be >= 0"},
		{"zero burst", func(c *Config) { c.API.Burst = 0 }, "api.burst must be >= 1"},
		{"negative timeout", func(c *Config) { c.API.ConnTimeout = -time.Second }, "api.conn_timeout must be >= 0"},
		{"negative breaker", func(c *Config) { c.API.CircuitBreaker.Timeout = -time.Second }, "api.circuit_breaker durations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			assertContains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateBurstIgnoredWithoutRateLimit(t *testing.T) {
	cfg := Defaults()
	cfg.API.RequestsPerMinute = 0
	cfg.API.Burst = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUsageAndGeneration(t *testing.T) {
	cfg := Defaults()
	cfg.Usage.DailyLimit = -1
	cfg.Usage.SessionLimit = -1
	cfg.Usage.MinInterval = -time.Second
	cfg.Generation.MaxContextWords = 0
	cfg.Generation.ReplayChunkSize = 0
	cfg.Generation.ReplayDelay = -time.Millisecond

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("err type = %T, want *ValidationError", err)
	}
	if len(ve.Errors) != 6 {
		t.Errorf("got %d errors, want 6: %v", len(ve.Errors), ve.Errors)
	}
	assertContains(t, err.Error(), "usage.daily_limit must be >= 0")
	assertContains(t, err.Error(), "generation.replay_chunk_size must be > 0")
}

func TestValidateLoggerAndTracer(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Format = "xml"
	cfg.Logger.Level = "verbose"
	cfg.Tracer.Exporter = "jaeger"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `logger.format "xml" is invalid`)
	assertContains(t, err.Error(), `logger.level "verbose" is invalid`)
	assertContains(t, err.Error(), `tracer.exporter "jaeger" is invalid`)
}

func TestValidateLoggerCaseInsensitive(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Format = "JSON"
	cfg.Logger.Level = "WARN"
	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
