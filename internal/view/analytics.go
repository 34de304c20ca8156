// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
analytics.go - Historical analytics controller

Range presets resolve against "now" at the moment of the request, never
cached; a custom start/end pair overrides and clears the active preset.
Samples and the summary are fetched in parallel under one bounded query
so table, charts and summary always describe the same range.

Rapid successive refreshes can resolve out of issue order. Each refresh
takes a monotonically increasing sequence number and a response is
discarded unless its sequence number is still the latest issued, so a
slow stale response can never overwrite a newer one.
*/

package view

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LuciferDono/CrowdSafe/internal/chart"
	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/metrics"
	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// Range presets offered by the analytics view.
const (
	Range1h  = "1h"
	Range24h = "24h"
	Range7d  = "7d"
	Range30d = "30d"
	RangeAll = "all"
)

// chart colors per metric, matching the platform palette.
const (
	countChartColor    = "#36a2eb"
	velocityChartColor = "#9966ff"
	riskChartColor     = "#ff6384"
)

// resolveRange translates a preset into absolute bounds relative to now.
// The all-time preset returns zero bounds, which the transport omits
// from the query string.
func resolveRange(preset string, now time.Time) (start, end time.Time, err error) {
	switch preset {
	case Range1h:
		return now.Add(-time.Hour), now, nil
	case Range24h:
		return now.Add(-24 * time.Hour), now, nil
	case Range7d:
		return now.AddDate(0, 0, -7), now, nil
	case Range30d:
		return now.AddDate(0, 0, -30), now, nil
	case RangeAll:
		return time.Time{}, time.Time{}, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown range preset %q", preset)
	}
}

// AnalyticsModel is the rendered analytics state.
type AnalyticsModel struct {
	CameraID string
	Preset   string // empty when a custom range is active
	Start    time.Time
	End      time.Time
	Samples  []models.MetricSample // newest first, for the table
	Summary  models.MetricsSummary
	Charts   map[string]*chart.Chart
}

// Analytics drives the historical analytics view for one camera at a
// time.
type Analytics struct {
	client      *transport.Client
	notifier    Notifier
	limit       int
	downloadDir string

	mu     sync.RWMutex
	seq    uint64 // latest issued refresh sequence number
	model  AnalyticsModel
	custom bool
}

// NewAnalytics creates the analytics controller. limit caps each sample
// fetch server-side.
func NewAnalytics(client *transport.Client, notifier Notifier, limit int, downloadDir string) *Analytics {
	return &Analytics{
		client:      client,
		notifier:    notifier,
		limit:       limit,
		downloadDir: downloadDir,
		model: AnalyticsModel{
			Preset: Range24h,
			Charts: make(map[string]*chart.Chart),
		},
	}
}

// SetCamera switches the view to another camera; the next Refresh
// fetches its data.
func (a *Analytics) SetCamera(cameraID string) {
	a.mu.Lock()
	a.model.CameraID = cameraID
	a.mu.Unlock()
}

// SetPreset activates a range preset and clears any custom bounds.
func (a *Analytics) SetPreset(preset string) error {
	if _, _, err := resolveRange(preset, time.Now()); err != nil {
		return err
	}
	a.mu.Lock()
	a.model.Preset = preset
	a.custom = false
	a.mu.Unlock()
	return nil
}

// SetCustomRange activates explicit bounds, overriding and clearing the
// active preset.
func (a *Analytics) SetCustomRange(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("range end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	a.mu.Lock()
	a.model.Preset = ""
	a.custom = true
	a.model.Start = start
	a.model.End = end
	a.mu.Unlock()
	return nil
}

// ActivePreset returns the highlighted preset, empty when a custom
// range is in effect.
func (a *Analytics) ActivePreset() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model.Preset
}

// currentQuery resolves the active range into a bounded metrics query.
// Preset bounds are resolved fresh against now on every call.
func (a *Analytics) currentQuery(now time.Time) (string, transport.MetricsQuery, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := transport.MetricsQuery{Limit: a.limit}
	if a.custom {
		q.Start = a.model.Start
		q.End = a.model.End
		return a.model.CameraID, q, nil
	}

	start, end, err := resolveRange(a.model.Preset, now)
	if err != nil {
		return "", q, err
	}
	a.model.Start = start
	a.model.End = end
	q.Start = start
	q.End = end
	return a.model.CameraID, q, nil
}

// Refresh fetches samples and summary for the active range in parallel
// and applies them, unless a newer refresh was issued meanwhile.
func (a *Analytics) Refresh(ctx context.Context) error {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	cameraID, q, err := a.currentQuery(time.Now())
	if err != nil {
		return err
	}
	if cameraID == "" {
		return fmt.Errorf("no camera selected")
	}

	var (
		wg         sync.WaitGroup
		samples    []models.MetricSample
		summary    *models.MetricsSummary
		sampleErr  error
		summaryErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		samples, sampleErr = a.client.Metrics(ctx, cameraID, q)
	}()
	go func() {
		defer wg.Done()
		summary, summaryErr = a.client.MetricsSummary(ctx, cameraID, q)
	}()
	wg.Wait()

	if sampleErr != nil {
		metrics.PollCycles.WithLabelValues("analytics", "error").Inc()
		return sampleErr
	}
	if summaryErr != nil {
		metrics.PollCycles.WithLabelValues("analytics", "error").Inc()
		return summaryErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		logging.Debug().Uint64("seq", seq).Uint64("latest", a.seq).Msg("Discarding stale analytics response")
		metrics.PollCycles.WithLabelValues("analytics", "stale").Inc()
		return nil
	}

	a.model.Summary = *summary
	a.model.Samples = reverseSamples(samples)
	a.updateCharts(samples)
	metrics.PollCycles.WithLabelValues("analytics", "success").Inc()
	return nil
}

// updateCharts rebuilds the four metric charts in place. Labels come
// from sample timestamps, oldest first, matching delivery order.
// Caller holds a.mu.
func (a *Analytics) updateCharts(samples []models.MetricSample) {
	labels := make([]string, len(samples))
	counts := make([]float64, len(samples))
	densities := make([]float64, len(samples))
	velocities := make([]float64, len(samples))
	risks := make([]float64, len(samples))
	for i, s := range samples {
		labels[i] = FormatISTTime(s.Timestamp)
		counts[i] = float64(s.Count)
		densities[i] = s.Density
		velocities[i] = s.AvgVelocity
		risks[i] = s.RiskScore
	}

	for _, def := range []struct {
		key, label, color string
		series            []float64
	}{
		{"count", "People Count", countChartColor, counts},
		{"density", "Density (people/m²)", densityChartColor, densities},
		{"velocity", "Avg Velocity (m/s)", velocityChartColor, velocities},
		{"risk", "Risk Score", riskChartColor, risks},
	} {
		updated, err := chart.RenderOrUpdate(a.model.Charts[def.key], def.label, labels, def.series, def.color)
		if err != nil {
			logging.Debug().Err(err).Str("chart", def.key).Msg("Analytics chart update failed")
			continue
		}
		a.model.Charts[def.key] = updated
	}
}

// reverseSamples orders samples newest first for the table without
// mutating the input slice.
func reverseSamples(samples []models.MetricSample) []models.MetricSample {
	out := make([]models.MetricSample, len(samples))
	for i, s := range samples {
		out[len(samples)-1-i] = s
	}
	return out
}

// Export downloads the active range in the given format (csv, pdf,
// docx, markdown) into the controller's download directory and returns
// the written path.
func (a *Analytics) Export(ctx context.Context, format string) (string, error) {
	cameraID, q, err := a.currentQuery(time.Now())
	if err != nil {
		return "", err
	}
	if cameraID == "" {
		return "", fmt.Errorf("no camera selected")
	}
	q.Limit = 0 // exports are not row-capped

	dl, err := a.client.ExportMetrics(ctx, cameraID, format, q)
	if err != nil {
		a.notifier.Notice("Export failed: " + err.Error())
		return "", err
	}
	path, err := dl.SaveTo(a.downloadDir)
	if err != nil {
		return "", err
	}
	a.notifier.Toast("success", "Export saved to "+path)
	return path, nil
}

// Snapshot returns a copy of the current model for rendering. Chart
// handles are shared; they are internally synchronized.
func (a *Analytics) Snapshot() AnalyticsModel {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := a.model
	out.Samples = append([]models.MetricSample(nil), a.model.Samples...)
	charts := make(map[string]*chart.Chart, len(a.model.Charts))
	for k, v := range a.model.Charts {
		charts[k] = v
	}
	out.Charts = charts
	return out
}
