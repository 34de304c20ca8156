// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
dashboard.go - Fleet overview controller

The dashboard shows the fleet-wide summary, platform counters, the
active-camera grid with per-tile live metrics, and a short alert feed.

Push events and the poll timer converge on the same refresh path: every
update re-fetches authoritative server values and overwrites the model
wholesale. Nothing is incremented or decremented client-side, so
applying a push, a poll, or both in any order yields the same final
model for a given server state.
*/

package view

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/metrics"
	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/realtime"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// alertFeedLimit caps the dashboard's alert feed.
const alertFeedLimit = 10

// DashboardBackend is the polling surface the dashboard reads from.
// Satisfied by transport.PollClient so dashboard traffic shares the
// poll-path circuit breaker.
type DashboardBackend interface {
	GlobalSummary(ctx context.Context) (*models.GlobalSummary, error)
	SystemStats(ctx context.Context) (*models.SystemStats, error)
	UnacknowledgedCount(ctx context.Context) (int, error)
	Cameras(ctx context.Context) ([]models.Camera, error)
	Alerts(ctx context.Context, filter transport.AlertFilter) ([]models.Alert, error)
}

// DashboardModel is the rendered state snapshot.
type DashboardModel struct {
	Summary        models.GlobalSummary
	Stats          models.SystemStats
	Unacknowledged int
	Cameras        []models.Camera
	Alerts         []models.Alert
	Connected      bool
	LastRefresh    time.Time
}

// Dashboard reconciles the fleet overview from pushes and polls.
type Dashboard struct {
	backend  DashboardBackend
	interval time.Duration

	mu    sync.RWMutex
	model DashboardModel

	// refreshCh coalesces push-triggered refreshes; capacity 1 so a
	// burst of events causes one re-fetch, not one per event.
	refreshCh chan struct{}
}

// NewDashboard creates the dashboard controller. Call Bind to attach it
// to the realtime channel, then run Serve under the supervisor.
func NewDashboard(backend DashboardBackend, pollInterval time.Duration) *Dashboard {
	return &Dashboard{
		backend:   backend,
		interval:  pollInterval,
		refreshCh: make(chan struct{}, 1),
	}
}

// Bind subscribes the dashboard to the realtime channel. Any event that
// can change the overview schedules an authoritative re-fetch; the event
// payloads themselves are not applied to the model.
func (d *Dashboard) Bind(ch *realtime.Channel) {
	ch.On(realtime.EventMetricsUpdate, func(json.RawMessage) { d.requestRefresh() })
	ch.On(realtime.EventNewAlert, func(json.RawMessage) { d.requestRefresh() })
	ch.On(realtime.EventCameraStatus, func(json.RawMessage) { d.requestRefresh() })
	ch.OnStateChange(func(connected bool) {
		d.mu.Lock()
		d.model.Connected = connected
		d.mu.Unlock()
	})
}

// requestRefresh schedules a refresh without blocking the channel's
// dispatch goroutine.
func (d *Dashboard) requestRefresh() {
	select {
	case d.refreshCh <- struct{}{}:
	default:
	}
}

// Serve implements suture.Service: an immediate load, then a refresh on
// every poll tick or coalesced push signal until the context ends.
func (d *Dashboard) Serve(ctx context.Context) error {
	d.Refresh(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Refresh(ctx)
		case <-d.refreshCh:
			d.Refresh(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (d *Dashboard) String() string { return "dashboard-controller" }

// Refresh re-fetches every dashboard surface and applies the results.
// Each fetch degrades independently: a failed summary fetch leaves the
// previous summary on screen while the camera grid still updates.
func (d *Dashboard) Refresh(ctx context.Context) {
	outcome := "success"

	summary, err := d.backend.GlobalSummary(ctx)
	if err != nil {
		logging.Debug().Err(err).Msg("Dashboard summary refresh failed")
		outcome = "partial"
		summary = nil
	}

	stats, err := d.backend.SystemStats(ctx)
	if err != nil {
		logging.Debug().Err(err).Msg("Dashboard stats refresh failed")
		outcome = "partial"
		stats = nil
	}

	count, countErr := d.backend.UnacknowledgedCount(ctx)

	cameras, err := d.backend.Cameras(ctx)
	if err != nil {
		logging.Debug().Err(err).Msg("Dashboard camera refresh failed")
		outcome = "partial"
		cameras = nil
	}

	alerts, err := d.backend.Alerts(ctx, transport.AlertFilter{Limit: alertFeedLimit})
	if err != nil {
		logging.Debug().Err(err).Msg("Dashboard alert feed refresh failed")
		outcome = "partial"
		alerts = nil
	}

	d.mu.Lock()
	if summary != nil {
		d.model.Summary = *summary
	}
	if stats != nil {
		d.model.Stats = *stats
	}
	if countErr == nil {
		d.model.Unacknowledged = count
	}
	if cameras != nil {
		d.model.Cameras = activeCameras(cameras)
	}
	if alerts != nil {
		d.model.Alerts = alerts
	}
	d.model.LastRefresh = time.Now()
	d.mu.Unlock()

	metrics.PollCycles.WithLabelValues("dashboard", outcome).Inc()
}

// activeCameras filters the grid down to cameras currently processing.
func activeCameras(cameras []models.Camera) []models.Camera {
	active := make([]models.Camera, 0, len(cameras))
	for _, cam := range cameras {
		if cam.IsProcessing {
			active = append(active, cam)
		}
	}
	return active
}

// Snapshot returns a copy of the current model for rendering.
func (d *Dashboard) Snapshot() DashboardModel {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := d.model
	out.Cameras = append([]models.Camera(nil), d.model.Cameras...)
	out.Alerts = append([]models.Alert(nil), d.model.Alerts...)
	return out
}
