// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CROWDSAFE_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.URL != "http://localhost:5000" {
		t.Errorf("Expected default backend URL, got %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Monitor.StatsPollInterval != 5*time.Second {
		t.Errorf("Expected default stats poll 5s, got %v", cfg.Monitor.StatsPollInterval)
	}
	if cfg.Monitor.BadgePollInterval != 30*time.Second {
		t.Errorf("Expected default badge poll 30s, got %v", cfg.Monitor.BadgePollInterval)
	}
	if cfg.Monitor.ChartPoints != 60 {
		t.Errorf("Expected default chart points 60, got %d", cfg.Monitor.ChartPoints)
	}
	if cfg.Monitor.AnalyticsLimit != 2000 {
		t.Errorf("Expected default analytics limit 2000, got %d", cfg.Monitor.AnalyticsLimit)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("Unexpected default logging config: %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CROWDSAFE_CONFIG", "")
	t.Setenv("CROWDSAFE_BACKEND_URL", "https://ops.example.com")
	t.Setenv("CROWDSAFE_LOGGING_LEVEL", "debug")
	t.Setenv("CROWDSAFE_MONITOR_STATS_POLL_INTERVAL", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.URL != "https://ops.example.com" {
		t.Errorf("Env override for backend URL not applied: %q", cfg.Backend.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Env override for log level not applied: %q", cfg.Logging.Level)
	}
	if cfg.Monitor.StatsPollInterval != 10*time.Second {
		t.Errorf("Env override for poll interval not applied: %v", cfg.Monitor.StatsPollInterval)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yaml")
	yaml := `
backend:
  url: http://backend.internal:5000
  rate_limit: 50
monitor:
  chart_points: 120
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CROWDSAFE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.URL != "http://backend.internal:5000" {
		t.Errorf("File value for backend URL not applied: %q", cfg.Backend.URL)
	}
	if cfg.Backend.RateLimit != 50 {
		t.Errorf("File value for rate limit not applied: %v", cfg.Backend.RateLimit)
	}
	if cfg.Monitor.ChartPoints != 120 {
		t.Errorf("File value for chart points not applied: %d", cfg.Monitor.ChartPoints)
	}
	// File values merge over defaults without clobbering them.
	if cfg.Monitor.AnalyticsLimit != 2000 {
		t.Errorf("Default analytics limit lost in merge: %d", cfg.Monitor.AnalyticsLimit)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("File value for log format not applied: %q", cfg.Logging.Format)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  url: http://from-file:5000\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CROWDSAFE_CONFIG", path)
	t.Setenv("CROWDSAFE_BACKEND_URL", "http://from-env:5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://from-env:5000" {
		t.Errorf("Expected env to beat file, got %q", cfg.Backend.URL)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CROWDSAFE_CONFIG", "")
	t.Setenv("CROWDSAFE_LOGGING_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Error("Expected validation error for unknown log level")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"CROWDSAFE_BACKEND_URL":                 "backend.url",
		"CROWDSAFE_MONITOR_STATS_POLL_INTERVAL": "monitor.stats_poll_interval",
		"CROWDSAFE_LOGGING_LEVEL":               "logging.level",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("%s: expected %s, got %s", in, want, got)
		}
	}
}
