// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
camera.go - Single-camera detail controller

Subscribes to one camera's live stream and maintains the 60-point
density buffer behind the live chart. Metric events are filtered by
camera id before any state is touched; the filter is a pure predicate
on the payload, so multiple controllers can watch the shared stream
independently.
*/

package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/LuciferDono/CrowdSafe/internal/chart"
	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/metrics"
	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/realtime"
	"github.com/LuciferDono/CrowdSafe/internal/timeseries"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// densityChartColor matches the platform's teal accent.
const densityChartColor = "#4bc0c0"

// CameraDetail drives the single-camera live view.
type CameraDetail struct {
	client   *transport.Client
	channel  *realtime.Channel
	notifier Notifier
	cameraID string

	mu          sync.RWMutex
	camera      models.Camera
	live        models.LiveMetrics
	hasLive     bool
	recordingID string

	buffer *timeseries.Buffer
	labels []string
	chart  *chart.Chart
}

// NewCameraDetail creates a detail controller for one camera. chartPoints
// bounds the live density buffer; 60 matches one minute of 1 Hz samples.
func NewCameraDetail(client *transport.Client, channel *realtime.Channel, notifier Notifier, cameraID string, chartPoints int) *CameraDetail {
	if chartPoints <= 0 {
		chartPoints = timeseries.DefaultCapacity
	}
	return &CameraDetail{
		client:   client,
		channel:  channel,
		notifier: notifier,
		cameraID: cameraID,
		buffer:   timeseries.NewBuffer(chartPoints),
		labels:   make([]string, 0, chartPoints),
	}
}

// Load fetches the camera, registers the live handlers, and subscribes
// to the camera's stream. Call Close when leaving the view.
func (c *CameraDetail) Load(ctx context.Context) error {
	cam, err := c.client.Camera(ctx, c.cameraID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.camera = *cam
	c.mu.Unlock()

	c.channel.On(realtime.EventMetricsUpdate, c.handleMetrics)
	c.channel.On(realtime.EventCameraStatus, c.handleStatus)

	if err := c.channel.SubscribeCamera(c.cameraID); err != nil {
		logging.Warn().Err(err).Str("camera_id", c.cameraID).Msg("Camera subscription failed, relying on reconnect resubscribe")
	}
	return nil
}

// handleMetrics applies a pushed live sample: update the metrics panel
// model, push density into the buffer, and update the chart in place.
func (c *CameraDetail) handleMetrics(data json.RawMessage) {
	var m models.LiveMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Debug().Err(err).Msg("Malformed metrics_update payload")
		return
	}
	if m.CameraID != c.cameraID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.live = m
	c.hasLive = true

	c.buffer.Push(m.Density)
	c.labels = append(c.labels, FormatISTTime(m.Timestamp))
	if len(c.labels) > c.buffer.Cap() {
		c.labels = c.labels[len(c.labels)-c.buffer.Cap():]
	}
	metrics.TimeSeriesBufferLen.WithLabelValues(c.cameraID).Set(float64(c.buffer.Len()))

	updated, err := chart.RenderOrUpdate(c.chart, "Density (people/m²)", c.labels, c.buffer.Snapshot(), densityChartColor)
	if err != nil {
		logging.Debug().Err(err).Msg("Density chart update failed")
		return
	}
	c.chart = updated
}

// handleStatus tracks processing-state changes and captures the
// recording id once a stop finalizes a recording.
func (c *CameraDetail) handleStatus(data json.RawMessage) {
	var ev models.CameraStatusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		logging.Debug().Err(err).Msg("Malformed camera_status payload")
		return
	}
	if ev.CameraID != c.cameraID {
		return
	}

	c.mu.Lock()
	c.camera.Status = ev.Status
	c.camera.IsProcessing = ev.Status == "processing"
	if ev.RecordingID != "" {
		c.recordingID = ev.RecordingID
	}
	c.mu.Unlock()

	if ev.RecordingID != "" {
		c.notifier.Toast("info", fmt.Sprintf("Recording %s is ready for download", ev.RecordingID))
	}
}

// Start begins processing on the camera.
func (c *CameraDetail) Start(ctx context.Context) error {
	if err := c.client.StartCamera(ctx, c.cameraID); err != nil {
		c.notifier.Notice("Failed to start camera: " + err.Error())
		return err
	}
	c.mu.Lock()
	c.camera.IsProcessing = true
	c.mu.Unlock()
	c.notifier.Toast("success", "Camera started")
	return nil
}

// Stop halts processing and records the finalized recording id when the
// backend produced one.
func (c *CameraDetail) Stop(ctx context.Context) error {
	resp, err := c.client.StopCamera(ctx, c.cameraID)
	if err != nil {
		c.notifier.Notice("Failed to stop camera: " + err.Error())
		return err
	}

	c.mu.Lock()
	c.camera.IsProcessing = false
	if resp.RecordingID != "" {
		c.recordingID = resp.RecordingID
	}
	c.mu.Unlock()

	if resp.RecordingID != "" {
		c.notifier.Toast("success", fmt.Sprintf("Camera stopped, recording %s saved", resp.RecordingID))
	} else {
		c.notifier.Toast("success", "Camera stopped")
	}
	return nil
}

// DownloadRecording saves the last finalized recording into dir and
// returns the written path.
func (c *CameraDetail) DownloadRecording(ctx context.Context, dir string) (string, error) {
	c.mu.RLock()
	recordingID := c.recordingID
	c.mu.RUnlock()

	if recordingID == "" {
		return "", fmt.Errorf("no recording available for camera %s", c.cameraID)
	}

	dl, err := c.client.DownloadRecording(ctx, recordingID)
	if err != nil {
		c.notifier.Notice("Recording download failed: " + err.Error())
		return "", err
	}
	path, err := dl.SaveTo(dir)
	if err != nil {
		return "", err
	}
	c.notifier.Toast("success", "Recording saved to "+path)
	return path, nil
}

// Close unsubscribes from the camera's stream.
func (c *CameraDetail) Close() {
	if err := c.channel.UnsubscribeCamera(c.cameraID); err != nil {
		logging.Debug().Err(err).Str("camera_id", c.cameraID).Msg("Camera unsubscribe failed")
	}
}

// Camera returns the camera's current descriptive state.
func (c *CameraDetail) Camera() models.Camera {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.camera
}

// Live returns the latest pushed metrics and whether any have arrived.
func (c *CameraDetail) Live() (models.LiveMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live, c.hasLive
}

// RecordingID returns the last finalized recording id, empty if none.
func (c *CameraDetail) RecordingID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recordingID
}

// Chart returns the live density chart handle, nil before the first
// sample arrives.
func (c *CameraDetail) Chart() *chart.Chart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chart
}
