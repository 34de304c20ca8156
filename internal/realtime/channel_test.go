// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/LuciferDono/CrowdSafe/internal/models"
)

// testServer upgrades /ws connections and exposes what it saw.
type testServer struct {
	srv *httptest.Server

	conns    chan *websocket.Conn
	inbound  chan envelope
	upgrader websocket.Upgrader
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		conns:   make(chan *websocket.Conn, 4),
		inbound: make(chan envelope, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		ts.conns <- conn
		go func() {
			for {
				var frame envelope
				if err := conn.ReadJSON(&frame); err != nil {
					return
				}
				ts.inbound <- frame
			}
		}()
	})

	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-ts.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for websocket connection")
		return nil
	}
}

func (ts *testServer) waitInbound(t *testing.T) envelope {
	t.Helper()
	select {
	case frame := <-ts.inbound:
		return frame
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for inbound frame")
		return envelope{}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to encode event data: %v", err)
	}
	if err := conn.WriteJSON(envelope{Event: event, Data: payload}); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
}

func TestChannelDispatchesNamedEvents(t *testing.T) {
	ts := newTestServer(t)

	ch, err := NewChannel(ts.srv.URL, "test-device")
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	defer func() { _ = ch.Close() }()

	received := make(chan models.LiveMetrics, 4)
	ch.On(EventMetricsUpdate, func(data json.RawMessage) {
		var m models.LiveMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			t.Errorf("Malformed payload: %v", err)
			return
		}
		received <- m
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	conn := ts.waitConn(t)
	sendEvent(t, conn, EventMetricsUpdate, models.LiveMetrics{CameraID: "cam-1", Count: 42, Density: 1.5})

	select {
	case m := <-received:
		if m.CameraID != "cam-1" || m.Count != 42 {
			t.Errorf("Unexpected metrics: %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for dispatched event")
	}
}

func TestChannelHandlersFilterByCameraID(t *testing.T) {
	ts := newTestServer(t)

	ch, err := NewChannel(ts.srv.URL, "test-device")
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Two subscribers on the shared stream, each filtering on its own
	// camera id.
	cam1 := make(chan string, 4)
	cam2 := make(chan string, 4)
	filterTo := func(want string, out chan string) Handler {
		return func(data json.RawMessage) {
			var m models.LiveMetrics
			if err := json.Unmarshal(data, &m); err != nil {
				return
			}
			if m.CameraID != want {
				return
			}
			out <- m.CameraID
		}
	}
	ch.On(EventMetricsUpdate, filterTo("cam-1", cam1))
	ch.On(EventMetricsUpdate, filterTo("cam-2", cam2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	conn := ts.waitConn(t)
	sendEvent(t, conn, EventMetricsUpdate, models.LiveMetrics{CameraID: "cam-2"})

	select {
	case id := <-cam2:
		if id != "cam-2" {
			t.Errorf("Expected cam-2, got %s", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for cam-2 event")
	}

	select {
	case id := <-cam1:
		t.Errorf("cam-1 subscriber received foreign event %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelSubscribeSendsFrame(t *testing.T) {
	ts := newTestServer(t)

	ch, err := NewChannel(ts.srv.URL, "test-device")
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	defer func() { _ = ch.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	ts.waitConn(t)

	if err := ch.SubscribeCamera("cam-7"); err != nil {
		t.Fatalf("SubscribeCamera failed: %v", err)
	}

	frame := ts.waitInbound(t)
	if frame.Event != "subscribe_camera" {
		t.Errorf("Expected subscribe_camera frame, got %s", frame.Event)
	}
	var body map[string]string
	if err := json.Unmarshal(frame.Data, &body); err != nil {
		t.Fatalf("Malformed subscribe payload: %v", err)
	}
	if body["camera_id"] != "cam-7" {
		t.Errorf("Expected camera_id cam-7, got %q", body["camera_id"])
	}
}

func TestChannelResubscribesAfterReconnect(t *testing.T) {
	ts := newTestServer(t)

	ch, err := NewChannel(ts.srv.URL, "test-device")
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	defer func() { _ = ch.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	first := ts.waitConn(t)

	if err := ch.SubscribeCamera("cam-3"); err != nil {
		t.Fatalf("SubscribeCamera failed: %v", err)
	}
	if frame := ts.waitInbound(t); frame.Event != "subscribe_camera" {
		t.Fatalf("Expected initial subscribe frame, got %s", frame.Event)
	}

	// Drop the connection server-side; the listen loop reconnects with
	// backoff and must replay the subscription.
	_ = first.Close()

	ts.waitConn(t)
	frame := ts.waitInbound(t)
	if frame.Event != "subscribe_camera" {
		t.Fatalf("Expected replayed subscribe frame, got %s", frame.Event)
	}
	var body map[string]string
	if err := json.Unmarshal(frame.Data, &body); err != nil {
		t.Fatalf("Malformed resubscribe payload: %v", err)
	}
	if body["camera_id"] != "cam-3" {
		t.Errorf("Expected replayed camera_id cam-3, got %q", body["camera_id"])
	}
}

func TestChannelStateObservers(t *testing.T) {
	ts := newTestServer(t)

	ch, err := NewChannel(ts.srv.URL, "test-device")
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	states := make(chan bool, 8)
	ch.OnStateChange(func(connected bool) { states <- connected })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	ts.waitConn(t)

	select {
	case connected := <-states:
		if !connected {
			t.Error("Expected first transition to be connected")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for connected transition")
	}
	if !ch.IsConnected() {
		t.Error("Expected IsConnected true after connect")
	}

	_ = ch.Close()

	select {
	case connected := <-states:
		if connected {
			t.Error("Expected disconnected transition on close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for disconnected transition")
	}
}

func TestNewChannelRewritesScheme(t *testing.T) {
	ch, err := NewChannel("https://ops.example.com", "dev-1")
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if !strings.HasPrefix(ch.wsURL, "wss://ops.example.com/ws") {
		t.Errorf("Expected wss URL, got %s", ch.wsURL)
	}
	if !strings.Contains(ch.wsURL, "device_id=dev-1") {
		t.Errorf("Expected device_id in URL, got %s", ch.wsURL)
	}
}
