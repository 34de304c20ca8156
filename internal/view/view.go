// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
view.go - Shared view helpers

Package view holds one controller per screen. Every controller follows
the same reconciliation pattern: an initial load fetches current state,
realtime channel events and polling timers both feed an idempotent
"apply authoritative snapshot" path, and rendering is a pure projection
from the in-memory model. Controllers own their models exclusively; the
transport client and the realtime channel are shared singletons injected
by the caller.

All operator-facing timestamps render in IST, matching the deployment's
control rooms.
*/

package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/LuciferDono/CrowdSafe/internal/models"
)

// istZone is UTC+05:30.
var istZone = time.FixedZone("IST", 5*3600+30*60)

// validate is shared by the admin controllers; validator instances cache
// struct metadata and are meant to be long-lived.
var validate = validator.New()

// Notifier receives operator-facing feedback. Toast is transient
// (severity one of info, success, warning, error); Notice is the
// blocking-notification analog used for mutating-action failures.
type Notifier interface {
	Toast(level, message string)
	Notice(message string)
}

// NopNotifier discards all feedback. Used in tests and headless runs.
type NopNotifier struct{}

func (NopNotifier) Toast(level, message string) {}
func (NopNotifier) Notice(message string)       {}

// parseTimestamp handles the backend's RFC 3339 timestamps, with and
// without fractional seconds.
func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatIST renders a backend timestamp as a full IST date and time.
// Malformed input falls back to the raw string rather than erroring;
// a timestamp the operator can partially read beats an empty cell.
func FormatIST(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.In(istZone).Format("02 Jan 2006, 03:04:05 PM")
}

// FormatISTTime renders only the time-of-day portion, used for chart
// axis labels where the date would be noise.
func FormatISTTime(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.In(istZone).Format("03:04:05 PM")
}

// FormatISTDate renders only the date portion.
func FormatISTDate(ts string) string {
	t, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.In(istZone).Format("02 Jan 2006")
}

// AlertStatus derives the display status from the alert's flags.
// Resolved takes precedence over Acknowledged over Open.
func AlertStatus(a models.Alert) string {
	switch {
	case a.Resolved:
		return "Resolved"
	case a.Acknowledged:
		return "Acknowledged"
	default:
		return "Open"
	}
}

// RiskBadge renders a risk level for display, defaulting unknown or
// missing levels to a dash placeholder.
func RiskBadge(level string) string {
	if models.RiskRank(level) == 0 {
		return "-"
	}
	return level
}

// TrendArrow maps the backend's trend strings to a compact marker.
func TrendArrow(trend string) string {
	switch strings.ToLower(trend) {
	case "increasing", "rising", "up":
		return "↑"
	case "decreasing", "falling", "down":
		return "↓"
	case "stable", "steady":
		return "→"
	default:
		return "-"
	}
}

// FormatFloat renders a numeric field with two decimals. Missing
// optional fields arrive as zero and render as "0.00", never as
// placeholder text that would suggest corrupt data.
func FormatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatPercent renders a ratio as a percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
