// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
alerts.go - Alert workflow controller

Lists alerts with risk-level and resolution filters and drives the
acknowledge/resolve workflow. Camera names come from a best-effort
bounded cache refreshed once per Load; a stale or missing name degrades
to the raw camera id, never to an error.
*/

package view

import (
	"context"
	"sync"
	"time"

	"github.com/LuciferDono/CrowdSafe/internal/cache"
	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// alertListLimit caps the alert listing, newest first.
const alertListLimit = 100

// alertColumns is the table width used by the empty placeholder row.
const alertColumns = 7

// AlertsBackend is the transport surface the alerts view needs.
type AlertsBackend interface {
	Alerts(ctx context.Context, filter transport.AlertFilter) ([]models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
	ResolveAlert(ctx context.Context, id string) error
	Cameras(ctx context.Context) ([]models.Camera, error)
}

// AlertRow is one rendered table row. A placeholder row spans all
// columns and carries no alert data.
type AlertRow struct {
	Key         string
	Time        string
	CameraLabel string
	RiskLevel   string
	RiskScore   string
	Message     string
	Status      string

	Placeholder string
	Span        int
}

// Alerts drives the alert management view.
type Alerts struct {
	backend  AlertsBackend
	notifier Notifier
	labels   *cache.LRU

	mu        sync.RWMutex
	riskLevel string
	resolved  *bool
	alerts    []models.Alert
}

// NewAlerts creates the alerts controller. The camera-label cache holds
// up to 256 names for 10 minutes; plenty for one operator session.
func NewAlerts(backend AlertsBackend, notifier Notifier) *Alerts {
	return &Alerts{
		backend:  backend,
		notifier: notifier,
		labels:   cache.NewLRU(256, 10*time.Minute),
	}
}

// SetFilter narrows the listing. riskLevel empty means all levels;
// resolved nil means both resolved and unresolved.
func (a *Alerts) SetFilter(riskLevel string, resolved *bool) {
	a.mu.Lock()
	a.riskLevel = riskLevel
	a.resolved = resolved
	a.mu.Unlock()
}

// Load refreshes the camera-label cache once, then fetches the filtered
// alert list. The label refresh is best effort and failures are ignored
// silently; staleness there is tolerable.
func (a *Alerts) Load(ctx context.Context) error {
	if cameras, err := a.backend.Cameras(ctx); err == nil {
		for _, cam := range cameras {
			a.labels.Set(cam.ID, cam.Name)
		}
	} else {
		logging.Debug().Err(err).Msg("Camera label refresh failed")
	}

	a.mu.RLock()
	filter := transport.AlertFilter{
		Limit:     alertListLimit,
		RiskLevel: a.riskLevel,
		Resolved:  a.resolved,
	}
	a.mu.RUnlock()

	alerts, err := a.backend.Alerts(ctx, filter)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.alerts = alerts
	a.mu.Unlock()
	return nil
}

// Acknowledge marks an alert acknowledged. Acknowledging an already
// acknowledged or resolved alert is a local no-op; the server action is
// idempotent anyway, but skipping it avoids a pointless round trip.
func (a *Alerts) Acknowledge(ctx context.Context, key string) error {
	a.mu.Lock()
	alert := a.findLocked(key)
	if alert == nil || alert.Acknowledged || alert.Resolved {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.backend.AcknowledgeAlert(ctx, key); err != nil {
		a.notifier.Notice("Failed to acknowledge alert: " + err.Error())
		return err
	}

	a.mu.Lock()
	if alert := a.findLocked(key); alert != nil {
		alert.Acknowledged = true
	}
	a.mu.Unlock()
	a.notifier.Toast("success", "Alert acknowledged")
	return nil
}

// Resolve marks an alert resolved, a no-op when already resolved.
func (a *Alerts) Resolve(ctx context.Context, key string) error {
	a.mu.Lock()
	alert := a.findLocked(key)
	if alert == nil || alert.Resolved {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.backend.ResolveAlert(ctx, key); err != nil {
		a.notifier.Notice("Failed to resolve alert: " + err.Error())
		return err
	}

	a.mu.Lock()
	if alert := a.findLocked(key); alert != nil {
		alert.Resolved = true
	}
	a.mu.Unlock()
	a.notifier.Toast("success", "Alert resolved")
	return nil
}

// findLocked locates an alert by key. Caller holds a.mu.
func (a *Alerts) findLocked(key string) *models.Alert {
	for i := range a.alerts {
		if a.alerts[i].Key() == key {
			return &a.alerts[i]
		}
	}
	return nil
}

// Rows projects the model into table rows in input order. An empty list
// yields a single placeholder row spanning all columns.
func (a *Alerts) Rows() []AlertRow {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.alerts) == 0 {
		return []AlertRow{{Placeholder: "No alerts found", Span: alertColumns}}
	}

	rows := make([]AlertRow, len(a.alerts))
	for i, alert := range a.alerts {
		label := alert.CameraID
		if name, ok := a.labels.Get(alert.CameraID); ok {
			label = name
		}
		rows[i] = AlertRow{
			Key:         alert.Key(),
			Time:        FormatIST(alert.Timestamp),
			CameraLabel: label,
			RiskLevel:   RiskBadge(alert.RiskLevel),
			RiskScore:   FormatFloat(alert.RiskScore),
			Message:     alert.Message,
			Status:      AlertStatus(alert),
		}
	}
	return rows
}
