// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
api.go - Typed endpoint methods

One method per REST endpoint the client consumes. The backend owns the
authoritative shapes; these methods only translate between Go types and
the wire.
*/

package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LuciferDono/CrowdSafe/internal/models"
)

// --- Auth ---

// Login authenticates with username/password and stores the session.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	var pair models.TokenPair
	body := map[string]string{"username": username, "password": password}
	if err := c.postJSON(ctx, "/api/auth/login", body, &pair); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if err := c.store.SetTokens(pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout invalidates the server session and clears local state. Local
// state is cleared even when the server call fails; the tokens are gone
// either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.postJSON(ctx, "/api/auth/logout", nil, nil)
	if clearErr := c.store.Clear(); clearErr != nil {
		return clearErr
	}
	return err
}

// --- Cameras ---

// Cameras lists all configured cameras with their live processing state.
func (c *Client) Cameras(ctx context.Context) ([]models.Camera, error) {
	var cameras []models.Camera
	if err := c.getJSON(ctx, "/api/cameras", &cameras); err != nil {
		return nil, fmt.Errorf("failed to fetch cameras: %w", err)
	}
	return cameras, nil
}

// Camera fetches one camera by id.
func (c *Client) Camera(ctx context.Context, id string) (*models.Camera, error) {
	var cam models.Camera
	if err := c.getJSON(ctx, "/api/cameras/"+url.PathEscape(id), &cam); err != nil {
		return nil, fmt.Errorf("failed to fetch camera %s: %w", id, err)
	}
	return &cam, nil
}

// CreateCamera registers a new camera.
func (c *Client) CreateCamera(ctx context.Context, req models.CreateCameraRequest) (*models.Camera, error) {
	var cam models.Camera
	if err := c.postJSON(ctx, "/api/cameras", req, &cam); err != nil {
		return nil, err
	}
	return &cam, nil
}

// DeleteCamera removes a camera and all its recorded data.
func (c *Client) DeleteCamera(ctx context.Context, id string) error {
	return c.delete(ctx, "/api/cameras/"+url.PathEscape(id))
}

// StartCamera starts video processing for a camera.
func (c *Client) StartCamera(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/cameras/"+url.PathEscape(id)+"/start", nil, nil)
}

// StopCamera stops processing; the response carries the id of the
// finalized recording when one was produced.
func (c *Client) StopCamera(ctx context.Context, id string) (*models.StopCameraResponse, error) {
	var out models.StopCameraResponse
	if err := c.postJSON(ctx, "/api/cameras/"+url.PathEscape(id)+"/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Metrics ---

// MetricsQuery bounds a historical metrics fetch. Zero times are omitted
// from the query string; Limit caps the result size server-side.
type MetricsQuery struct {
	Start time.Time
	End   time.Time
	Limit int
}

// encode renders the query string, shared by Metrics, MetricsSummary and
// ExportMetrics so the three always agree on bounds.
func (q MetricsQuery) encode() string {
	params := url.Values{}
	if !q.Start.IsZero() {
		params.Set("start", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.UTC().Format(time.RFC3339))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// Metrics fetches historical samples for a camera, oldest first.
func (c *Client) Metrics(ctx context.Context, cameraID string, q MetricsQuery) ([]models.MetricSample, error) {
	var samples []models.MetricSample
	path := "/api/metrics/" + url.PathEscape(cameraID) + q.encode()
	if err := c.getJSON(ctx, path, &samples); err != nil {
		return nil, fmt.Errorf("failed to fetch metrics for %s: %w", cameraID, err)
	}
	return samples, nil
}

// MetricsSummary fetches the aggregate summary for a camera and range.
func (c *Client) MetricsSummary(ctx context.Context, cameraID string, q MetricsQuery) (*models.MetricsSummary, error) {
	var summary models.MetricsSummary
	path := "/api/metrics/" + url.PathEscape(cameraID) + "/summary" + q.encode()
	if err := c.getJSON(ctx, path, &summary); err != nil {
		return nil, fmt.Errorf("failed to fetch metrics summary for %s: %w", cameraID, err)
	}
	return &summary, nil
}

// GlobalSummary fetches the fleet-wide live snapshot.
func (c *Client) GlobalSummary(ctx context.Context) (*models.GlobalSummary, error) {
	var summary models.GlobalSummary
	if err := c.getJSON(ctx, "/api/metrics/summary", &summary); err != nil {
		return nil, fmt.Errorf("failed to fetch global summary: %w", err)
	}
	return &summary, nil
}

// SystemStats fetches platform-wide counters.
func (c *Client) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	var stats models.SystemStats
	if err := c.getJSON(ctx, "/api/system/stats", &stats); err != nil {
		return nil, fmt.Errorf("failed to fetch system stats: %w", err)
	}
	return &stats, nil
}

// --- Alerts ---

// AlertFilter narrows an alert listing. Resolved is a tri-state: nil
// means both, otherwise it filters on the resolved flag.
type AlertFilter struct {
	Limit     int
	RiskLevel string
	Resolved  *bool
}

// Alerts lists alerts, newest first.
func (c *Client) Alerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	params := url.Values{}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.RiskLevel != "" {
		params.Set("risk_level", filter.RiskLevel)
	}
	if filter.Resolved != nil {
		params.Set("resolved", strconv.FormatBool(*filter.Resolved))
	}

	path := "/api/alerts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var alerts []models.Alert
	if err := c.getJSON(ctx, path, &alerts); err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert acknowledged. The server action is
// idempotent: acknowledging an already-acknowledged alert is a no-op.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/alerts/"+url.PathEscape(id)+"/acknowledge", nil, nil)
}

// ResolveAlert marks an alert resolved. Idempotent like acknowledge.
func (c *Client) ResolveAlert(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/alerts/"+url.PathEscape(id)+"/resolve", nil, nil)
}

// UnacknowledgedCount returns the badge count of open alerts.
func (c *Client) UnacknowledgedCount(ctx context.Context) (int, error) {
	var out models.AlertCount
	if err := c.getJSON(ctx, "/api/alerts/unacknowledged/count", &out); err != nil {
		return 0, fmt.Errorf("failed to fetch unacknowledged count: %w", err)
	}
	return out.Count, nil
}

// --- Users ---

// Users lists operator accounts.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.getJSON(ctx, "/api/users", &users); err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return users, nil
}

// CreateUser creates an operator account.
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.postJSON(ctx, "/api/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial update to a user.
func (c *Client) UpdateUser(ctx context.Context, id int64, req models.UpdateUserRequest) error {
	return c.putJSON(ctx, "/api/users/"+strconv.FormatInt(id, 10), req, nil)
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.delete(ctx, "/api/users/"+strconv.FormatInt(id, 10))
}

// ResetPassword issues a temporary password for a user.
func (c *Client) ResetPassword(ctx context.Context, id int64) (string, error) {
	var out struct {
		TemporaryPassword string `json:"temporary_password"`
	}
	path := "/api/users/" + strconv.FormatInt(id, 10) + "/reset-password"
	if err := c.postJSON(ctx, path, nil, &out); err != nil {
		return "", err
	}
	return out.TemporaryPassword, nil
}

// --- Settings ---

// Settings fetches all setting categories.
func (c *Client) Settings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := c.getJSON(ctx, "/api/settings", &settings); err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return &settings, nil
}

// UpdateSetting writes one key in a category (alerts, ai). Values are
// strings on the wire regardless of their logical type.
func (c *Client) UpdateSetting(ctx context.Context, category, key, value string) error {
	path := "/api/settings/" + url.PathEscape(category) + "/" + url.PathEscape(key)
	return c.putJSON(ctx, path, map[string]string{"value": value}, nil)
}

// UpdateRiskThresholds writes the whole risk-threshold group atomically.
func (c *Client) UpdateRiskThresholds(ctx context.Context, thresholds map[string]string) error {
	return c.postJSON(ctx, "/api/settings/risk-thresholds", thresholds, nil)
}

// --- Health ---

// Ping verifies backend reachability without touching auth.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/system/health", nil, "")
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health returned status %d", resp.StatusCode)
	}
	return nil
}
