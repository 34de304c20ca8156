// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/session"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

func TestResolveRangePresets(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		preset    string
		wantStart time.Time
	}{
		{Range1h, now.Add(-time.Hour)},
		{Range24h, now.Add(-24 * time.Hour)},
		{Range7d, now.AddDate(0, 0, -7)},
		{Range30d, now.AddDate(0, 0, -30)},
	}
	for _, tt := range tests {
		start, end, err := resolveRange(tt.preset, now)
		if err != nil {
			t.Errorf("Preset %s: unexpected error %v", tt.preset, err)
			continue
		}
		if !start.Equal(tt.wantStart) {
			t.Errorf("Preset %s: expected start %v, got %v", tt.preset, tt.wantStart, start)
		}
		if !end.Equal(now) {
			t.Errorf("Preset %s: expected end %v, got %v", tt.preset, now, end)
		}
	}

	start, end, err := resolveRange(RangeAll, now)
	if err != nil {
		t.Fatalf("All-time preset failed: %v", err)
	}
	if !start.IsZero() || !end.IsZero() {
		t.Errorf("All-time preset should yield zero bounds, got %v / %v", start, end)
	}

	if _, _, err := resolveRange("2weeks", now); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestCustomRangeClearsPreset(t *testing.T) {
	a := NewAnalytics(nil, NopNotifier{}, 2000, ".")

	if err := a.SetPreset(Range7d); err != nil {
		t.Fatalf("SetPreset failed: %v", err)
	}
	if a.ActivePreset() != Range7d {
		t.Fatalf("Expected active preset 7d, got %q", a.ActivePreset())
	}

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if err := a.SetCustomRange(start, end); err != nil {
		t.Fatalf("SetCustomRange failed: %v", err)
	}

	if a.ActivePreset() != "" {
		t.Errorf("Custom range must clear preset highlighting, got %q", a.ActivePreset())
	}

	// Re-selecting a preset re-highlights it.
	if err := a.SetPreset(Range1h); err != nil {
		t.Fatalf("SetPreset failed: %v", err)
	}
	if a.ActivePreset() != Range1h {
		t.Errorf("Expected active preset 1h, got %q", a.ActivePreset())
	}
}

func TestSetCustomRangeRejectsInvertedBounds(t *testing.T) {
	a := NewAnalytics(nil, NopNotifier{}, 2000, ".")

	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(time.Hour)
	if err := a.SetCustomRange(start, end); err == nil {
		t.Error("Expected error for end before start")
	}
}

// analyticsTestClient builds a transport client against a fake backend
// serving one camera's metrics and summary.
func analyticsTestClient(t *testing.T, handler http.HandlerFunc) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.SetTokens(models.TokenPair{AccessToken: "access-1"}); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}
	return transport.NewClient(transport.Config{BaseURL: srv.URL}, store, nil)
}

func TestAnalyticsRefreshAppliesSamplesAndSummary(t *testing.T) {
	samples := []models.MetricSample{
		{CameraID: "cam-1", Timestamp: "2026-08-30T10:00:00Z", Count: 10, Density: 1.0, RiskScore: 20},
		{CameraID: "cam-1", Timestamp: "2026-08-30T10:01:00Z", Count: 12, Density: 1.2, RiskScore: 25},
		{CameraID: "cam-1", Timestamp: "2026-08-30T10:02:00Z", Count: 15, Density: 1.5, RiskScore: 30},
	}
	summary := models.MetricsSummary{AvgCount: 12.3, PeakCount: 15, TotalRecords: 3}

	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/metrics/cam-1":
			if r.URL.Query().Get("limit") != "2000" {
				t.Errorf("Expected limit=2000, got %q", r.URL.Query().Get("limit"))
			}
			if r.URL.Query().Get("start") == "" || r.URL.Query().Get("end") == "" {
				t.Error("Expected preset bounds in query")
			}
			_ = json.NewEncoder(w).Encode(samples)
		case "/api/metrics/cam-1/summary":
			_ = json.NewEncoder(w).Encode(summary)
		default:
			t.Errorf("Unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	a := NewAnalytics(client, NopNotifier{}, 2000, ".")
	a.SetCamera("cam-1")

	if err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	m := a.Snapshot()
	if m.Summary.PeakCount != 15 {
		t.Errorf("Expected peak count 15, got %d", m.Summary.PeakCount)
	}

	// Table order is newest first.
	if len(m.Samples) != 3 {
		t.Fatalf("Expected 3 table rows, got %d", len(m.Samples))
	}
	if m.Samples[0].Count != 15 || m.Samples[2].Count != 10 {
		t.Errorf("Table not reverse-chronological: %+v", m.Samples)
	}

	// Four charts, each with one point per sample and matching labels.
	for _, key := range []string{"count", "density", "velocity", "risk"} {
		c, ok := m.Charts[key]
		if !ok {
			t.Errorf("Missing %s chart", key)
			continue
		}
		if c.Points() != 3 {
			t.Errorf("Chart %s: expected 3 points, got %d", key, c.Points())
		}
		if len(c.Labels()) != c.Points() {
			t.Errorf("Chart %s: labels/points mismatch", key)
		}
	}

	// Chart series stay oldest first, matching delivery order.
	counts := m.Charts["count"].Series()
	if counts[0] != 10 || counts[2] != 15 {
		t.Errorf("Chart series not in delivery order: %v", counts)
	}
}

func TestAnalyticsStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var slow atomic.Bool

	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		isSlow := slow.Load()
		switch r.URL.Path {
		case "/api/metrics/cam-1":
			count := 99
			if isSlow {
				<-release
				count = 1 // the older request's data
			}
			_ = json.NewEncoder(w).Encode([]models.MetricSample{
				{CameraID: "cam-1", Timestamp: "2026-08-30T10:00:00Z", Count: count},
			})
		case "/api/metrics/cam-1/summary":
			_ = json.NewEncoder(w).Encode(models.MetricsSummary{TotalRecords: 1})
		}
	})

	a := NewAnalytics(client, NopNotifier{}, 2000, ".")
	a.SetCamera("cam-1")

	// First refresh hangs server-side until released.
	slow.Store(true)
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = a.Refresh(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)

	// Second refresh completes immediately and wins.
	slow.Store(false)
	if err := a.Refresh(context.Background()); err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}

	close(release)
	<-firstDone

	m := a.Snapshot()
	if len(m.Samples) != 1 || m.Samples[0].Count != 99 {
		t.Errorf("Stale response overwrote newer data: %+v", m.Samples)
	}
}

func TestAnalyticsExportSavesToDownloadDir(t *testing.T) {
	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "csv" {
			t.Errorf("Expected format=csv, got %q", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Disposition", `attachment; filename="cam1_metrics.csv"`)
		_, _ = w.Write([]byte("timestamp,count\n"))
	})

	dir := t.TempDir()
	a := NewAnalytics(client, NopNotifier{}, 2000, dir)
	a.SetCamera("cam-1")

	path, err := a.Export(context.Background(), "csv")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Export saved outside download dir: %s", path)
	}
	if filepath.Base(path) != "cam1_metrics.csv" {
		t.Errorf("Expected disposition filename, got %s", filepath.Base(path))
	}
}
