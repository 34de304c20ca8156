// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
breaker.go - Circuit breaker for polling paths

Background pollers hit the backend every few seconds. When the backend
is down, raw retries would burn the request budget and flood logs; the
breaker sheds those calls fast and probes for recovery. User-initiated
actions bypass the breaker on purpose: a person clicking a button should
get a real attempt and a real error.
*/

package transport

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/metrics"
	"github.com/LuciferDono/CrowdSafe/internal/models"
)

// PollClient wraps the transport adapter's read-only polling endpoints
// with a shared circuit breaker.
type PollClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewPollClient creates the breaker-guarded polling facade.
//
// Breaker tuning: opens at a 60% failure rate over a minimum of 10
// requests in a 1 minute window, probes again after 30 seconds. The
// fast probe matters here because the dashboard polls at 5 second
// cadence and should recover promptly.
func NewPollClient(client *Client) *PollClient {
	name := "crowdsafe-poll"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &PollClient{client: client, cb: cb}
}

// breakerStateValue maps gobreaker states onto the metric encoding.
func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// GlobalSummary is the breaker-guarded fleet summary fetch.
func (p *PollClient) GlobalSummary(ctx context.Context) (*models.GlobalSummary, error) {
	out, err := p.cb.Execute(func() (any, error) {
		return p.client.GlobalSummary(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.GlobalSummary), nil
}

// SystemStats is the breaker-guarded platform counters fetch.
func (p *PollClient) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	out, err := p.cb.Execute(func() (any, error) {
		return p.client.SystemStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.SystemStats), nil
}

// UnacknowledgedCount is the breaker-guarded badge count fetch.
func (p *PollClient) UnacknowledgedCount(ctx context.Context) (int, error) {
	out, err := p.cb.Execute(func() (any, error) {
		return p.client.UnacknowledgedCount(ctx)
	})
	if err != nil {
		return 0, err
	}
	return out.(int), nil
}

// Cameras is the breaker-guarded camera listing used by grid refreshes.
func (p *PollClient) Cameras(ctx context.Context) ([]models.Camera, error) {
	out, err := p.cb.Execute(func() (any, error) {
		return p.client.Cameras(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.Camera), nil
}

// Alerts is the breaker-guarded alert listing used by feed refreshes.
func (p *PollClient) Alerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	out, err := p.cb.Execute(func() (any, error) {
		return p.client.Alerts(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return out.([]models.Alert), nil
}
