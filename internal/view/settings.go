// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
settings.go - Platform settings controller

Three categories with different write granularity: risk thresholds are
written as one atomic group, alert and AI settings one key at a time.
Keys the backend has never stored are filled with client-side defaults
so the form always renders a complete set.
*/

package view

import (
	"context"
	"sync"

	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// Default values for settings the backend has not stored yet. All
// values are strings on the wire regardless of logical type.
var (
	defaultRiskSettings = map[string]string{
		"caution_threshold":  "30",
		"warning_threshold":  "60",
		"critical_threshold": "80",
	}
	defaultAlertSettings = map[string]string{
		"cooldown_seconds":   "60",
		"email_enabled":      "false",
		"webhook_enabled":    "false",
		"min_alert_severity": models.RiskWarning,
	}
	defaultAISettings = map[string]string{
		"detection_confidence": "0.5",
		"tracking_enabled":     "true",
		"anomaly_detection":    "true",
	}
)

// SettingsView drives the settings screen.
type SettingsView struct {
	client   *transport.Client
	notifier Notifier

	mu       sync.RWMutex
	settings models.Settings
}

// NewSettingsView creates the settings controller.
func NewSettingsView(client *transport.Client, notifier Notifier) *SettingsView {
	return &SettingsView{client: client, notifier: notifier}
}

// Load fetches all categories and fills missing keys with defaults.
func (s *SettingsView) Load(ctx context.Context) error {
	settings, err := s.client.Settings(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = models.Settings{
		Risk:   withDefaults(settings.Risk, defaultRiskSettings),
		Alerts: withDefaults(settings.Alerts, defaultAlertSettings),
		AI:     withDefaults(settings.AI, defaultAISettings),
	}
	s.mu.Unlock()
	return nil
}

// withDefaults overlays stored values on the default set. Stored keys
// outside the defaults are kept too; the backend may know newer keys
// than this client.
func withDefaults(stored, defaults map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(stored))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range stored {
		out[k] = v
	}
	return out
}

// SaveRiskThresholds writes the whole risk-threshold group atomically.
func (s *SettingsView) SaveRiskThresholds(ctx context.Context, thresholds map[string]string) error {
	if err := s.client.UpdateRiskThresholds(ctx, thresholds); err != nil {
		s.notifier.Notice("Failed to save risk thresholds: " + serverMessage(err))
		return err
	}

	s.mu.Lock()
	for k, v := range thresholds {
		s.settings.Risk[k] = v
	}
	s.mu.Unlock()
	s.notifier.Toast("success", "Risk thresholds saved")
	return nil
}

// SetAlertSetting writes one alert-category key.
func (s *SettingsView) SetAlertSetting(ctx context.Context, key, value string) error {
	return s.setCategory(ctx, "alerts", key, value)
}

// SetAISetting writes one ai-category key.
func (s *SettingsView) SetAISetting(ctx context.Context, key, value string) error {
	return s.setCategory(ctx, "ai", key, value)
}

func (s *SettingsView) setCategory(ctx context.Context, category, key, value string) error {
	if err := s.client.UpdateSetting(ctx, category, key, value); err != nil {
		s.notifier.Notice("Failed to save setting " + key + ": " + serverMessage(err))
		return err
	}

	s.mu.Lock()
	switch category {
	case "alerts":
		s.settings.Alerts[key] = value
	case "ai":
		s.settings.AI[key] = value
	}
	s.mu.Unlock()
	s.notifier.Toast("success", "Setting "+key+" saved")
	return nil
}

// Snapshot returns a deep copy of the current settings.
func (s *SettingsView) Snapshot() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Settings{
		Risk:   copyMap(s.settings.Risk),
		Alerts: copyMap(s.settings.Alerts),
		AI:     copyMap(s.settings.AI),
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
