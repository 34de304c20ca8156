// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
badge.go - Global unacknowledged-alert badge

Visible on every screen. A 30 second poll guarantees the count
eventually matches the server even when pushes are missed; a new_alert
push raises a toast and refreshes the count immediately. Both paths
write the server's count verbatim, so they commute.
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
)

// BadgeBackend is the single endpoint the badge needs.
type BadgeBackend interface {
	UnacknowledgedCount(ctx context.Context) (int, error)
}

// Badge polls the unacknowledged-alert count and reacts to alert pushes.
type Badge struct {
	backend  BadgeBackend
	notifier Notifier
	interval time.Duration

	mu    sync.RWMutex
	count int

	refreshCh chan struct{}
}

// NewBadge creates the badge controller.
func NewBadge(backend BadgeBackend, notifier Notifier, pollInterval time.Duration) *Badge {
	return &Badge{
		backend:   backend,
		notifier:  notifier,
		interval:  pollInterval,
		refreshCh: make(chan struct{}, 1),
	}
}

// Bind subscribes the badge to alert pushes. The pushed alert raises a
// toast; the count itself still comes from the server.
func (b *Badge) Bind(ch *realtime.Channel) {
	ch.On(realtime.EventNewAlert, func(data json.RawMessage) {
		var alert models.Alert
		if err := json.Unmarshal(data, &alert); err == nil && alert.Message != "" {
			b.notifier.Toast("warning", alert.Message)
		}
		select {
		case b.refreshCh <- struct{}{}:
		default:
		}
	})
}

// Serve implements suture.Service: an immediate refresh, then polls.
func (b *Badge) Serve(ctx context.Context) error {
	b.Refresh(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.Refresh(ctx)
		case <-b.refreshCh:
			b.Refresh(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (b *Badge) String() string { return "alert-badge" }

// Refresh re-fetches the authoritative count. Failures keep the last
// known count on screen; badge staleness is tolerable.
func (b *Badge) Refresh(ctx context.Context) {
	count, err := b.backend.UnacknowledgedCount(ctx)
	if err != nil {
		logging.Debug().Err(err).Msg("Badge count refresh failed")
		metrics.PollCycles.WithLabelValues("badge", "error").Inc()
		return
	}

	b.mu.Lock()
	b.count = count
	b.mu.Unlock()
	metrics.PollCycles.WithLabelValues("badge", "success").Inc()
}

// Count returns the last known unacknowledged count.
func (b *Badge) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
