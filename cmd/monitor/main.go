// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package main is the entry point for the CrowdSafe monitoring client.
//
// The monitor is a headless terminal client for a CrowdSafe backend. It
// keeps live view models synchronized over the backend's websocket
// channel plus periodic polling, and renders the fleet dashboard to the
// terminal.
//
// # Startup order
//
//  1. Configuration: defaults, optional monitor.yaml, CROWDSAFE_ env vars (Koanf v2)
//  2. Logging: zerolog, console or json format
//  3. Session: restore persisted tokens, or log in with CROWDSAFE_USERNAME/PASSWORD
//  4. Transport: bearer-auth REST client with refresh-on-401 and rate limiting
//  5. Realtime channel: websocket with auto-reconnect and resubscribe
//  6. Supervisor tree: channel, dashboard poller, alert badge, telemetry server
//
// # Example usage
//
//	export CROWDSAFE_BACKEND_URL=http://localhost:5000
//	export CROWDSAFE_USERNAME=admin
//	export CROWDSAFE_PASSWORD=secure-password
//	./crowdsafe-monitor
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the supervisor stops
// all services, the websocket closes, and in-flight requests finish
// within the shutdown timeout.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/LuciferDono/CrowdSafe/internal/config"
	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/realtime"
	"github.com/LuciferDono/CrowdSafe/internal/session"
	"github.com/LuciferDono/CrowdSafe/internal/supervisor"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
	"github.com/LuciferDono/CrowdSafe/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config not yet available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Str("backend_url", cfg.Backend.URL).
		Str("session_path", cfg.Session.Path).
		Msg("Starting CrowdSafe monitor")

	store := session.NewStore(cfg.Session.Path)

	// Root context, canceled on SIGINT/SIGTERM and on unrecoverable
	// auth failure (the redirect-to-login analog for a headless client).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := transport.NewClient(transport.Config{
		BaseURL:   cfg.Backend.URL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
		RateBurst: cfg.Backend.RateBurst,
	}, store, func() {
		logging.Error().Msg("Session expired and could not be refreshed, shutting down; log in again to continue")
		cancel()
	})

	if err := client.Ping(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Backend is not reachable")
	}

	if err := ensureSession(ctx, client, store); err != nil {
		logging.Fatal().Err(err).Msg("Authentication failed")
	}

	channel, err := realtime.NewChannel(cfg.Backend.URL, client.DeviceID())
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid backend URL for realtime channel")
	}
	defer func() { _ = channel.Close() }()

	poll := transport.NewPollClient(client)
	notifier := newConsoleNotifier()

	dashboard := view.NewDashboard(poll, cfg.Monitor.StatsPollInterval)
	dashboard.Bind(channel)

	badge := view.NewBadge(poll, notifier, cfg.Monitor.BadgePollInterval)
	badge.Bind(channel)

	channel.On(realtime.EventSystemNotification, func(data json.RawMessage) {
		var note struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &note); err != nil || note.Message == "" {
			return
		}
		notifier.Notice(note.Message)
	})

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(supervisor.NewChannelService(channel))
	tree.AddPollingService(dashboard)
	tree.AddPollingService(badge)
	if cfg.Metrics.Enabled {
		tree.AddPollingService(supervisor.NewTelemetryService(cfg.Metrics.Addr))
	}

	treeErr := tree.ServeBackground(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	render := time.NewTicker(cfg.Monitor.StatsPollInterval)
	defer render.Stop()

	renderDashboard(dashboard, badge)
	for {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Shutting down")
			cancel()
			waitForTree(treeErr, tree)
			return
		case err := <-treeErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Supervisor tree stopped")
				os.Exit(1)
			}
			return
		case <-render.C:
			renderDashboard(dashboard, badge)
		}
	}
}

// ensureSession reuses a persisted session when its access token is
// still valid, otherwise logs in with credentials from the environment.
func ensureSession(ctx context.Context, client *transport.Client, store *session.Store) error {
	if store.AccessToken() != "" {
		if expiry, ok := store.AccessTokenExpiry(); !ok || expiry.After(time.Now().Add(time.Minute)) {
			logging.Info().Msg("Reusing persisted session")
			return nil
		}
		if store.RefreshToken() != "" {
			// An expired access token with a refresh token on hand is
			// fine; the first 401 triggers the refresh path.
			logging.Info().Msg("Persisted access token expired, will refresh on first request")
			return nil
		}
	}

	username := os.Getenv("CROWDSAFE_USERNAME")
	password := os.Getenv("CROWDSAFE_PASSWORD")
	if username == "" || password == "" {
		return errors.New("no persisted session; set CROWDSAFE_USERNAME and CROWDSAFE_PASSWORD to log in")
	}

	pair, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if pair.User != nil {
		logging.Info().Str("username", pair.User.Username).Str("role", pair.User.Role).Msg("Logged in")
	}
	return nil
}

// waitForTree gives the supervisor a bounded window to stop cleanly.
func waitForTree(treeErr <-chan error, tree *supervisor.Tree) {
	select {
	case <-treeErr:
	case <-time.After(15 * time.Second):
		if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
			for _, svc := range report {
				logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
			}
		}
	}
}
