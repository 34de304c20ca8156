// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
channel.go - Realtime event channel

This file implements the client side of the backend's push channel: a
single shared WebSocket carrying named events in a JSON envelope:

	{"event": "metrics_update", "data": {...}}

Inbound events: metrics_update, new_alert, camera_status,
system_notification. Outbound: subscribe_camera, unsubscribe_camera.

Ordering: the backend delivers events for a single camera in
non-decreasing timestamp order. The channel does not deduplicate or
reorder; a transport that violates the guarantee produces out-of-order
artifacts downstream.

Connection state is observable but has no effect on data correctness -
the polling paths guarantee eventual consistency regardless.
*/

package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/metrics"
)

// Event names on the channel.
const (
	EventMetricsUpdate      = "metrics_update"
	EventNewAlert           = "new_alert"
	EventCameraStatus       = "camera_status"
	EventSystemNotification = "system_notification"

	eventSubscribeCamera   = "subscribe_camera"
	eventUnsubscribeCamera = "unsubscribe_camera"
)

// Handler receives the raw data payload of a named event. Handlers run
// on the channel's read goroutine and must not block.
type Handler func(data json.RawMessage)

// StateHandler observes connection state transitions.
type StateHandler func(connected bool)

// envelope is the wire frame for both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Channel is the process-wide realtime event channel. Constructed once
// at startup and shared read-only (On/Emit) by all view controllers.
type Channel struct {
	wsURL    string
	deviceID string

	conn   *websocket.Conn
	connMu sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// handlers maps event name -> subscriber list. Subscribing appends;
	// there is no unsubscribe because controllers live for the process.
	handlerMu     sync.RWMutex
	handlers      map[string][]Handler
	stateHandlers []StateHandler

	// subscriptions tracks camera subscriptions for replay on reconnect.
	subMu         sync.Mutex
	subscriptions map[string]struct{}
}

// NewChannel creates a channel for the given backend origin. The origin
// scheme (http/https) is rewritten to ws/wss.
func NewChannel(baseURL, deviceID string) (*Channel, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/ws"
	query := parsed.Query()
	query.Set("device_id", deviceID)
	parsed.RawQuery = query.Encode()

	return &Channel{
		wsURL:         parsed.String(),
		deviceID:      deviceID,
		stopChan:      make(chan struct{}),
		handlers:      make(map[string][]Handler),
		subscriptions: make(map[string]struct{}),
	}, nil
}

// On registers a handler for a named event. Multiple handlers per event
// are supported; each receives every matching payload and applies its
// own filtering (a pure predicate on the payload, typically camera id).
func (c *Channel) On(event string, handler Handler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// OnStateChange registers a connection-state observer. Used only for
// the status indicator; data correctness never depends on it.
func (c *Channel) OnStateChange(handler StateHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.stateHandlers = append(c.stateHandlers, handler)
}

// Emit sends a named event with a JSON payload to the backend.
func (c *Channel) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("channel not connected")
	}
	return c.conn.WriteJSON(envelope{Event: event, Data: data})
}

// SubscribeCamera requests per-camera metric events. The subscription is
// remembered and replayed after every reconnect.
func (c *Channel) SubscribeCamera(cameraID string) error {
	c.subMu.Lock()
	c.subscriptions[cameraID] = struct{}{}
	c.subMu.Unlock()
	return c.Emit(eventSubscribeCamera, map[string]string{"camera_id": cameraID})
}

// UnsubscribeCamera drops a per-camera subscription.
func (c *Channel) UnsubscribeCamera(cameraID string) error {
	c.subMu.Lock()
	delete(c.subscriptions, cameraID)
	c.subMu.Unlock()
	return c.Emit(eventUnsubscribeCamera, map[string]string{"camera_id": cameraID})
}

// IsConnected reports whether the socket is currently up.
func (c *Channel) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil
}

// Connect dials the backend and starts the read and keep-alive loops.
// Safe to call when already connected.
func (c *Channel) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.conn != nil {
		c.connMu.Unlock()
		return nil
	}

	logging.Info().Str("url", c.wsURL).Msg("[realtime] Connecting")

	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		c.connMu.Unlock()
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	c.conn = conn
	c.connMu.Unlock()

	logging.Info().Msg("[realtime] Connected")
	metrics.ChannelConnected.Set(1)
	c.notifyState(true)
	c.resubscribe()

	c.wg.Add(2)
	go c.listen(ctx)
	go c.pingLoop(ctx)

	return nil
}

// resubscribe replays remembered camera subscriptions after a connect.
func (c *Channel) resubscribe() {
	c.subMu.Lock()
	ids := make([]string, 0, len(c.subscriptions))
	for id := range c.subscriptions {
		ids = append(ids, id)
	}
	c.subMu.Unlock()

	for _, id := range ids {
		if err := c.Emit(eventSubscribeCamera, map[string]string{"camera_id": id}); err != nil {
			logging.Warn().Err(err).Str("camera", id).Msg("[realtime] Resubscribe failed")
		}
	}
}

// listen reads frames until stopped, reconnecting with exponential
// backoff when the connection drops.
func (c *Channel) listen(ctx context.Context) {
	defer c.wg.Done()

	reconnectDelay := 1 * time.Second
	const maxReconnectDelay = 32 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		default:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil {
				logging.Info().Dur("delay", reconnectDelay).Msg("[realtime] Connection lost, reconnecting")
				select {
				case <-time.After(reconnectDelay):
				case <-ctx.Done():
					return
				case <-c.stopChan:
					return
				}
				reconnectDelay *= 2
				if reconnectDelay > maxReconnectDelay {
					reconnectDelay = maxReconnectDelay
				}

				metrics.ChannelReconnects.Inc()
				if err := c.reconnect(ctx); err != nil {
					logging.Warn().Err(err).Msg("[realtime] Reconnect failed")
					continue
				}
				reconnectDelay = 1 * time.Second
				continue
			}

			if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
				logging.Debug().Err(err).Msg("[realtime] Failed to set read deadline")
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logging.Info().Msg("[realtime] Connection closed by server")
				} else {
					logging.Warn().Err(err).Msg("[realtime] Read error")
				}
				c.closeConnection()
				continue
			}

			reconnectDelay = 1 * time.Second
			c.dispatch(message)
		}
	}
}

// reconnect re-dials without spawning new loops; the existing listen and
// ping goroutines keep running against the replaced connection.
func (c *Channel) reconnect(ctx context.Context) error {
	c.connMu.Lock()
	if c.conn != nil {
		c.connMu.Unlock()
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		c.connMu.Unlock()
		if resp != nil {
			return fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	c.conn = conn
	c.connMu.Unlock()

	logging.Info().Msg("[realtime] Reconnected")
	metrics.ChannelConnected.Set(1)
	c.notifyState(true)
	c.resubscribe()
	return nil
}

// dispatch decodes one frame and fans it out to subscribers. Filtering
// by camera id happens inside handlers, not here: every subscriber sees
// the shared stream.
func (c *Channel) dispatch(message []byte) {
	var frame envelope
	if err := json.Unmarshal(message, &frame); err != nil {
		logging.Warn().Err(err).Msg("[realtime] Failed to parse frame")
		return
	}
	if frame.Event == "" {
		return
	}

	metrics.ChannelEvents.WithLabelValues(frame.Event).Inc()

	c.handlerMu.RLock()
	handlers := c.handlers[frame.Event]
	c.handlerMu.RUnlock()

	if len(handlers) == 0 {
		logging.Debug().Str("event", frame.Event).Msg("[realtime] No subscribers for event")
		return
	}
	for _, handler := range handlers {
		handler(frame.Data)
	}
}

// pingLoop sends keep-alive pings so intermediaries hold the connection.
func (c *Channel) pingLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			if conn != nil {
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					logging.Warn().Err(err).Msg("[realtime] Keep-alive failed")
					c.connMu.Unlock()
					c.closeConnection()
					continue
				}
			}
			c.connMu.Unlock()
		}
	}
}

// closeConnection tears down the socket and flips the state indicator.
func (c *Channel) closeConnection() {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn == nil {
		return
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(1*time.Second),
	)
	_ = conn.Close()

	metrics.ChannelConnected.Set(0)
	c.notifyState(false)
}

// notifyState fans a connection-state transition out to observers.
func (c *Channel) notifyState(connected bool) {
	c.handlerMu.RLock()
	observers := c.stateHandlers
	c.handlerMu.RUnlock()
	for _, observer := range observers {
		observer(connected)
	}
}

// Close shuts the channel down and waits for its goroutines.
func (c *Channel) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.closeConnection()
	c.wg.Wait()
	logging.Info().Msg("[realtime] Channel closed")
	return nil
}
