// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package models defines the wire types exchanged with the CrowdSafe
// backend. Field names and JSON tags mirror the backend's snake_case
// responses; the backend owns the authoritative shapes.
package models

import (
	"strconv"
	"time"
)

// Risk levels as emitted by the backend's risk calculator, ordered from
// least to most severe.
const (
	RiskSafe     = "SAFE"
	RiskCaution  = "CAUTION"
	RiskWarning  = "WARNING"
	RiskCritical = "CRITICAL"
)

// riskRank orders risk levels for comparisons. Unknown levels rank below SAFE.
var riskRank = map[string]int{
	RiskSafe:     1,
	RiskCaution:  2,
	RiskWarning:  3,
	RiskCritical: 4,
}

// RiskRank returns the ordinal severity of a risk level, 0 for unknown.
func RiskRank(level string) int {
	return riskRank[level]
}

// Camera is a monitored camera as returned by GET /api/cameras.
// CurrentMetrics is populated only while the camera is processing.
type Camera struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Location         string       `json:"location"`
	SourceType       string       `json:"source_type"`
	SourceURL        string       `json:"source_url"`
	AreaSqm          float64      `json:"area_sqm"`
	ExpectedCapacity int          `json:"expected_capacity"`
	IsActive         bool         `json:"is_active"`
	Status           string       `json:"status"`
	IsProcessing     bool         `json:"is_processing"`
	CurrentMetrics   *LiveMetrics `json:"current_metrics,omitempty"`
	CreatedAt        string       `json:"created_at,omitempty"`
	UpdatedAt        string       `json:"updated_at,omitempty"`
}

// CreateCameraRequest is the body for POST /api/cameras.
// Validation tags are enforced client-side before the request is issued;
// the backend repeats the same checks authoritatively.
type CreateCameraRequest struct {
	Name             string  `json:"name" validate:"required,min=1,max=100"`
	Location         string  `json:"location" validate:"max=200"`
	AreaSqm          float64 `json:"area_sqm" validate:"gt=0"`
	ExpectedCapacity int     `json:"expected_capacity" validate:"gt=0"`
}

// LiveMetrics is a per-camera metric sample as pushed over the realtime
// channel (metrics_update) and embedded in Camera.CurrentMetrics. The ML
// fields (clusters, coherence, pressure, anomalies, trends) are only
// present on live samples, not on persisted history rows.
type LiveMetrics struct {
	CameraID            string  `json:"camera_id"`
	Timestamp           string  `json:"timestamp"`
	Count               int     `json:"count"`
	Density             float64 `json:"density"`
	AvgVelocity         float64 `json:"avg_velocity"`
	SurgeRate           float64 `json:"surge_rate"`
	RiskScore           float64 `json:"risk_score"`
	RiskLevel           string  `json:"risk_level"`
	CapacityUtilization float64 `json:"capacity_utilization"`
	NumClusters         int     `json:"num_clusters"`
	FlowCoherence       float64 `json:"flow_coherence"`
	CrowdPressure       float64 `json:"crowd_pressure"`
	NumAnomalies        int     `json:"num_anomalies"`
	DensityTrend        string  `json:"density_trend"`
	RiskTrend           string  `json:"risk_trend"`
}

// MetricSample is a persisted history row from GET /api/metrics/{id}.
// Samples are immutable once received and ordered by timestamp ascending
// as delivered by the backend.
type MetricSample struct {
	ID                  int64   `json:"id"`
	CameraID            string  `json:"camera_id"`
	Timestamp           string  `json:"timestamp"`
	Count               int     `json:"count"`
	Density             float64 `json:"density"`
	AvgVelocity         float64 `json:"avg_velocity"`
	MaxVelocity         float64 `json:"max_velocity"`
	SurgeRate           float64 `json:"surge_rate"`
	FlowIn              int     `json:"flow_in"`
	FlowOut             int     `json:"flow_out"`
	RiskScore           float64 `json:"risk_score"`
	RiskLevel           string  `json:"risk_level"`
	CapacityUtilization float64 `json:"capacity_utilization"`
	FrameNumber         int     `json:"frame_number"`
}

// Time parses the sample timestamp. The backend emits RFC 3339 with an
// explicit Z suffix; a zero time is returned for malformed values.
func (m *MetricSample) Time() time.Time {
	t, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MetricsSummary aggregates a camera's samples over a queried range,
// from GET /api/metrics/{id}/summary.
type MetricsSummary struct {
	AvgCount     float64 `json:"avg_count"`
	PeakCount    int     `json:"peak_count"`
	AvgDensity   float64 `json:"avg_density"`
	MaxDensity   float64 `json:"max_density"`
	AvgVelocity  float64 `json:"avg_velocity"`
	AvgRisk      float64 `json:"avg_risk"`
	MaxRiskScore float64 `json:"max_risk_score"`
	TotalRecords int     `json:"total_records"`
}

// GlobalSummary is the fleet-wide snapshot from GET /api/metrics/summary.
type GlobalSummary struct {
	TotalPeople   int     `json:"total_people"`
	CamerasActive int     `json:"cameras_active"`
	MaxRiskScore  float64 `json:"max_risk_score"`
	MaxRiskLevel  string  `json:"max_risk_level"`
}

// SystemStats is the counters snapshot from GET /api/system/stats.
type SystemStats struct {
	CamerasTotal         int `json:"cameras_total"`
	CamerasActive        int `json:"cameras_active"`
	AlertsTotal          int `json:"alerts_total"`
	AlertsUnacknowledged int `json:"alerts_unacknowledged"`
	MetricsRecorded      int `json:"metrics_recorded"`
	TotalPeopleDetected  int `json:"total_people_detected"`
}

// Alert is a risk alert from GET /api/alerts. Acknowledged and Resolved
// each transition false->true exactly once via idempotent server actions
// and never revert.
type Alert struct {
	ID               int64   `json:"id"`
	AlertID          string  `json:"alert_id"`
	CameraID         string  `json:"camera_id"`
	Timestamp        string  `json:"timestamp"`
	RiskLevel        string  `json:"risk_level"`
	TriggerCondition string  `json:"trigger_condition"`
	Message          string  `json:"message"`
	RiskScore        float64 `json:"risk_score,omitempty"`
	Acknowledged     bool    `json:"acknowledged"`
	AcknowledgedAt   string  `json:"acknowledged_at,omitempty"`
	Resolved         bool    `json:"resolved"`
	ResolvedAt       string  `json:"resolved_at,omitempty"`
}

// Key returns the identifier used for alert actions. Newer backends emit
// a string alert_id alongside the numeric row id; prefer it when present.
func (a *Alert) Key() string {
	if a.AlertID != "" {
		return a.AlertID
	}
	return strconv.FormatInt(a.ID, 10)
}

// AlertCount is the unacknowledged-count response used by the badge poller.
type AlertCount struct {
	Count int `json:"count"`
}

// User is an operator account from GET /api/users.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	LastLogin string `json:"last_login,omitempty"`
}

// CreateUserRequest is the body for POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin operator viewer"`
}

// UpdateUserRequest is the body for PUT /api/users/{id}. Only non-nil
// fields are sent.
type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Settings groups the backend's key/value settings by category as
// returned by GET /api/settings. All values are strings on the wire.
type Settings struct {
	Risk   map[string]string `json:"risk"`
	Alerts map[string]string `json:"alerts"`
	AI     map[string]string `json:"ai"`
}

// TokenPair is issued by login and refresh endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// APIError is the backend's error envelope for rejected requests.
type APIError struct {
	Error string `json:"error"`
}

// CameraStatusEvent is pushed when a camera's processing state changes.
// RecordingID is set once a recording has been finalized by a stop.
type CameraStatusEvent struct {
	CameraID    string `json:"camera_id"`
	Status      string `json:"status"`
	RecordingID string `json:"recording_id,omitempty"`
}

// StopCameraResponse is returned by POST /api/cameras/{id}/stop.
type StopCameraResponse struct {
	Status      string `json:"status"`
	CameraID    string `json:"camera_id"`
	RecordingID string `json:"recording_id,omitempty"`
}
