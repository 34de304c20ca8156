// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package view

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// fakeDashboardBackend serves one fixed server state, with optional
// per-endpoint failures.
type fakeDashboardBackend struct {
	summary models.GlobalSummary
	stats   models.SystemStats
	count   int
	cameras []models.Camera
	alerts  []models.Alert

	failSummary bool
}

func (f *fakeDashboardBackend) GlobalSummary(ctx context.Context) (*models.GlobalSummary, error) {
	if f.failSummary {
		return nil, errors.New("backend unavailable")
	}
	s := f.summary
	return &s, nil
}

func (f *fakeDashboardBackend) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	s := f.stats
	return &s, nil
}

func (f *fakeDashboardBackend) UnacknowledgedCount(ctx context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeDashboardBackend) Cameras(ctx context.Context) ([]models.Camera, error) {
	return append([]models.Camera(nil), f.cameras...), nil
}

func (f *fakeDashboardBackend) Alerts(ctx context.Context, filter transport.AlertFilter) ([]models.Alert, error) {
	return append([]models.Alert(nil), f.alerts...), nil
}

func testBackend() *fakeDashboardBackend {
	return &fakeDashboardBackend{
		summary: models.GlobalSummary{TotalPeople: 340, CamerasActive: 3, MaxRiskScore: 72.5, MaxRiskLevel: models.RiskWarning},
		stats:   models.SystemStats{CamerasTotal: 5, AlertsTotal: 12, MetricsRecorded: 9000},
		count:   4,
		cameras: []models.Camera{
			{ID: "cam-1", Name: "Gate A", IsProcessing: true},
			{ID: "cam-2", Name: "Storage", IsProcessing: false},
		},
		alerts: []models.Alert{{AlertID: "a-1", RiskLevel: models.RiskWarning}},
	}
}

// normalize strips the refresh timestamp so snapshots compare on data.
func normalize(m DashboardModel) DashboardModel {
	m.LastRefresh = time.Time{}
	return m
}

func TestDashboardRefreshAppliesAuthoritativeState(t *testing.T) {
	d := NewDashboard(testBackend(), time.Second)

	d.Refresh(context.Background())

	m := d.Snapshot()
	if m.Summary.TotalPeople != 340 {
		t.Errorf("Expected 340 people, got %d", m.Summary.TotalPeople)
	}
	if m.Unacknowledged != 4 {
		t.Errorf("Expected badge count 4, got %d", m.Unacknowledged)
	}
	// Only processing cameras appear in the grid.
	if len(m.Cameras) != 1 || m.Cameras[0].ID != "cam-1" {
		t.Errorf("Expected only the processing camera in the grid, got %+v", m.Cameras)
	}
}

func TestDashboardPushAndPollCommute(t *testing.T) {
	backend := testBackend()

	// Push-triggered refresh then poll refresh.
	pushThenPoll := NewDashboard(backend, time.Second)
	pushThenPoll.requestRefresh()
	pushThenPoll.Refresh(context.Background()) // drained push signal refreshes
	pushThenPoll.Refresh(context.Background()) // poll tick refreshes again

	// Poll refresh only.
	pollOnly := NewDashboard(backend, time.Second)
	pollOnly.Refresh(context.Background())

	a := normalize(pushThenPoll.Snapshot())
	b := normalize(pollOnly.Snapshot())
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Push+poll and poll-only models diverged:\n%+v\n%+v", a, b)
	}
}

func TestDashboardPartialFailureKeepsPreviousValues(t *testing.T) {
	backend := testBackend()
	d := NewDashboard(backend, time.Second)

	d.Refresh(context.Background())
	before := d.Snapshot()

	// The summary endpoint starts failing; other surfaces keep updating.
	backend.failSummary = true
	backend.count = 9
	d.Refresh(context.Background())

	after := d.Snapshot()
	if !reflect.DeepEqual(after.Summary, before.Summary) {
		t.Errorf("Failed summary fetch should keep the previous summary, got %+v", after.Summary)
	}
	if after.Unacknowledged != 9 {
		t.Errorf("Expected updated badge count 9, got %d", after.Unacknowledged)
	}
}

func TestDashboardRefreshSignalCoalesces(t *testing.T) {
	d := NewDashboard(testBackend(), time.Second)

	for i := 0; i < 10; i++ {
		d.requestRefresh()
	}

	// The buffered signal channel holds at most one pending refresh.
	if len(d.refreshCh) != 1 {
		t.Errorf("Expected a single coalesced refresh signal, got %d", len(d.refreshCh))
	}
}
