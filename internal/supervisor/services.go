// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/realtime"
)

// ChannelService runs the realtime channel under supervision. The
// channel reconnects on its own; this service only establishes the
// initial connection and holds it open for the service's lifetime. A
// failed initial dial returns an error so suture retries with backoff.
type ChannelService struct {
	channel *realtime.Channel
}

// NewChannelService wraps a channel for supervision.
func NewChannelService(channel *realtime.Channel) *ChannelService {
	return &ChannelService{channel: channel}
}

// Serve implements suture.Service.
func (s *ChannelService) Serve(ctx context.Context) error {
	if err := s.channel.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *ChannelService) String() string { return "realtime-channel" }

// TelemetryService serves the client's own Prometheus metrics and a
// liveness endpoint on a local address.
type TelemetryService struct {
	addr string
}

// NewTelemetryService creates the local telemetry server service.
func NewTelemetryService(addr string) *TelemetryService {
	return &TelemetryService{addr: addr}
}

// Serve implements suture.Service: run the HTTP server until the
// context ends, then shut it down gracefully.
func (s *TelemetryService) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info().Str("addr", s.addr).Msg("Telemetry server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String names the service in supervisor logs.
func (s *TelemetryService) String() string { return "telemetry-server" }
