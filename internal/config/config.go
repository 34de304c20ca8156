// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package config loads the monitoring client's configuration. Sources
// are layered with koanf: struct defaults, then an optional YAML file,
// then CROWDSAFE_-prefixed environment variables (highest priority).
//
//	CROWDSAFE_BACKEND_URL=https://ops.example.com crowdsafe-monitor
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"monitor.yaml",
	"monitor.yml",
	"/etc/crowdsafe/monitor.yaml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CROWDSAFE_CONFIG"

// envPrefix namespaces environment overrides.
const envPrefix = "CROWDSAFE_"

// Config is the full client configuration.
type Config struct {
	Backend BackendConfig `koanf:"backend" validate:"required"`
	Session SessionConfig `koanf:"session"`
	Monitor MonitorConfig `koanf:"monitor"`
	Metrics MetricsConfig `koanf:"metrics"`
	Logging LoggingConfig `koanf:"logging"`
}

// BackendConfig locates the CrowdSafe backend.
type BackendConfig struct {
	// URL is the backend origin, e.g. http://localhost:5000.
	URL string `koanf:"url" validate:"required,url"`

	// Timeout bounds each REST request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// RateLimit caps outbound requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`

	// RateBurst is the limiter burst size.
	RateBurst int `koanf:"rate_burst" validate:"gte=0"`
}

// SessionConfig locates the persisted session file.
type SessionConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// MonitorConfig tunes the view controllers.
type MonitorConfig struct {
	// StatsPollInterval is the dashboard summary poll cadence.
	StatsPollInterval time.Duration `koanf:"stats_poll_interval" validate:"gt=0"`

	// BadgePollInterval is the unacknowledged-alert badge poll cadence.
	BadgePollInterval time.Duration `koanf:"badge_poll_interval" validate:"gt=0"`

	// ChartPoints is the live chart buffer capacity.
	ChartPoints int `koanf:"chart_points" validate:"gt=0"`

	// AnalyticsLimit caps historical range fetches server-side.
	AnalyticsLimit int `koanf:"analytics_limit" validate:"gt=0"`

	// DownloadDir receives exports and recording downloads.
	DownloadDir string `koanf:"download_dir" validate:"required"`
}

// MetricsConfig controls the local Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns the defaults applied before file and env layers.
func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:       "http://localhost:5000",
			Timeout:   30 * time.Second,
			RateLimit: 20,
			RateBurst: 10,
		},
		Session: SessionConfig{
			Path: defaultSessionPath(),
		},
		Monitor: MonitorConfig{
			StatsPollInterval: 5 * time.Second,
			BadgePollInterval: 30 * time.Second,
			ChartPoints:       60,
			AnalyticsLimit:    2000,
			DownloadDir:       ".",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9890",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// defaultSessionPath places the session file under the user config dir,
// falling back to the working directory.
func defaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/crowdsafe/session.json"
	}
	return ".crowdsafe-session.json"
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envTransformFunc maps environment variable names to config paths:
// CROWDSAFE_BACKEND_URL -> backend.url. Only the first underscore
// becomes a section separator; the rest stay part of the key
// (MONITOR_STATS_POLL_INTERVAL -> monitor.stats_poll_interval).
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// findConfigFile resolves the config file path, env override first.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
