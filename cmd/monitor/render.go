// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/view"
)

// consoleNotifier routes operator feedback through the logger so it
// interleaves cleanly with the rendered dashboard.
type consoleNotifier struct{}

func newConsoleNotifier() *consoleNotifier { return &consoleNotifier{} }

func (n *consoleNotifier) Toast(level, message string) {
	switch level {
	case "error":
		logging.Error().Msg(message)
	case "warning":
		logging.Warn().Msg(message)
	default:
		logging.Info().Msg(message)
	}
}

func (n *consoleNotifier) Notice(message string) {
	logging.Warn().Msg(message)
}

// renderDashboard projects the dashboard model to stdout. Rendering is
// a pure function of the snapshot; the model is never touched here.
func renderDashboard(dashboard *view.Dashboard, badge *view.Badge) {
	m := dashboard.Snapshot()

	var b strings.Builder

	state := "disconnected"
	if m.Connected {
		state = "connected"
	}
	fmt.Fprintf(&b, "\n=== CrowdSafe Monitor (%s) ===\n", state)
	fmt.Fprintf(&b, "People: %d  Active cameras: %d  Max risk: %s (%.1f)  Unacknowledged alerts: %d\n",
		m.Summary.TotalPeople,
		m.Summary.CamerasActive,
		view.RiskBadge(m.Summary.MaxRiskLevel),
		m.Summary.MaxRiskScore,
		badge.Count(),
	)
	fmt.Fprintf(&b, "Platform: %d cameras, %d alerts, %d metric records, %d people detected\n",
		m.Stats.CamerasTotal,
		m.Stats.AlertsTotal,
		m.Stats.MetricsRecorded,
		m.Stats.TotalPeopleDetected,
	)

	if len(m.Cameras) > 0 {
		b.WriteString("\nActive cameras:\n")
		w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLOCATION\tCOUNT\tDENSITY\tRISK")
		for _, cam := range m.Cameras {
			count, density, risk := "-", "-", "-"
			if cam.CurrentMetrics != nil {
				count = fmt.Sprintf("%d", cam.CurrentMetrics.Count)
				density = view.FormatFloat(cam.CurrentMetrics.Density)
				risk = view.RiskBadge(cam.CurrentMetrics.RiskLevel)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cam.Name, cam.Location, count, density, risk)
		}
		_ = w.Flush()
	}

	if len(m.Alerts) > 0 {
		b.WriteString("\nRecent alerts:\n")
		w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tCAMERA\tRISK\tSTATUS\tMESSAGE")
		for _, alert := range m.Alerts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				view.FormatIST(alert.Timestamp),
				alert.CameraID,
				view.RiskBadge(alert.RiskLevel),
				view.AlertStatus(alert),
				alert.Message,
			)
		}
		_ = w.Flush()
	}

	fmt.Fprint(os.Stdout, b.String())
}
