// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package metrics provides Prometheus instrumentation for the monitoring
// client itself: API request latency, token refreshes, realtime channel
// health, poll cycles, and buffer occupancy. Exposed on the local
// /metrics endpoint for scraping.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crowdsafe_api_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	APIRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdsafe_api_request_errors_total",
			Help: "Total number of failed backend API requests",
		},
		[]string{"endpoint", "reason"},
	)

	// TokenRefreshes counts refresh attempts by outcome (success/failure).
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdsafe_token_refreshes_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"outcome"},
	)

	// Realtime channel metrics
	ChannelConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crowdsafe_channel_connected",
			Help: "1 when the realtime channel is connected, 0 otherwise",
		},
	)

	ChannelReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crowdsafe_channel_reconnects_total",
			Help: "Total number of realtime channel reconnect attempts",
		},
	)

	ChannelEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdsafe_channel_events_total",
			Help: "Total number of events received on the realtime channel",
		},
		[]string{"event"},
	)

	// Poller metrics
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowdsafe_poll_cycles_total",
			Help: "Total number of poll cycles by view and outcome",
		},
		[]string{"view", "outcome"},
	)

	// TimeSeriesBufferLen tracks live chart buffer occupancy per camera.
	TimeSeriesBufferLen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crowdsafe_timeseries_buffer_length",
			Help: "Current number of samples in a live chart buffer",
		},
		[]string{"camera"},
	)

	// CircuitBreakerState tracks breaker state: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crowdsafe_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveAPIRequest records one completed API request.
func ObserveAPIRequest(endpoint, method string, start time.Time) {
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}
