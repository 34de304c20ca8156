// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
client.go - Authenticated HTTP transport

This file implements the transport adapter shared by every view
controller. It attaches bearer credentials to outbound requests and
transparently recovers from expired access tokens:

  - 401 response -> exactly one refresh using the stored refresh token
  - refresh succeeds -> the original request is retried exactly once
  - refresh fails (no token, or the refresh endpoint rejects) -> the
    auth-failure callback fires (the login redirect) and ErrAuthFailed
    is returned

The adapter never loops: a 401 on the retried request is returned to the
caller as-is. Network failures propagate to the call site, which decides
whether to degrade silently (background refreshes) or surface a notice
(user-initiated actions).
*/

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/LuciferDono/CrowdSafe/internal/logging"
	"github.com/LuciferDono/CrowdSafe/internal/metrics"
	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/session"
)

// Sentinel errors surfaced by the transport adapter.
var (
	// ErrAuthFailed means the session could not be recovered: there was
	// no refresh token, or the refresh endpoint rejected it. The
	// auth-failure callback has already fired when this is returned.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound maps 404 responses on typed endpoint methods.
	ErrNotFound = errors.New("not found")
)

// APIStatusError carries a backend error envelope for non-2xx responses.
type APIStatusError struct {
	StatusCode int
	Message    string
}

func (e *APIStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.StatusCode)
}

// Client is the process-wide transport adapter. It is shared read-only
// by all view controllers; only the client itself mutates the session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	limiter    *rate.Limiter
	deviceID   string

	// onAuthFailure is the login-redirect analog: invoked once per
	// unrecoverable 401, after which the calling view stops processing.
	onAuthFailure func()
}

// Config holds transport construction parameters.
type Config struct {
	// BaseURL is the backend origin, e.g. http://localhost:5000.
	BaseURL string

	// Timeout bounds each HTTP request. Default: 30s.
	Timeout time.Duration

	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst size. Default: 10 when limiting.
	RateBurst int
}

// NewClient creates the transport adapter.
func NewClient(cfg Config, store *session.Store, onAuthFailure func()) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 10
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		store:         store,
		limiter:       limiter,
		deviceID:      "crowdsafe-monitor-" + uuid.NewString()[:8],
		onAuthFailure: onAuthFailure,
	}
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DeviceID returns the per-process client identifier sent with requests.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// Do issues an authenticated request. The body may be nil. On a 401 the
// adapter refreshes the access token at most once and retries the
// original request at most once; see the file header for the full
// policy. The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.send(ctx, method, path, body, c.store.AccessToken())
	if err != nil {
		metrics.APIRequestErrors.WithLabelValues(path, "network").Inc()
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()

		if err := c.refresh(ctx); err != nil {
			metrics.APIRequestErrors.WithLabelValues(path, "auth").Inc()
			if c.onAuthFailure != nil {
				c.onAuthFailure()
			}
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}

		// Exactly one retry with the refreshed token; a second 401 is
		// returned to the caller unchanged.
		resp, err = c.send(ctx, method, path, body, c.store.AccessToken())
		if err != nil {
			metrics.APIRequestErrors.WithLabelValues(path, "network").Inc()
			return nil, err
		}
	}

	metrics.ObserveAPIRequest(path, method, start)
	return resp, nil
}

// send builds and issues a single HTTP request.
func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Client-Device", c.deviceID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// refresh exchanges the stored refresh token for a new access token.
// It bypasses Do deliberately: the refresh endpoint must never recurse
// into the 401-retry path.
func (c *Client) refresh(ctx context.Context) error {
	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return errors.New("no refresh token stored")
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return fmt.Errorf("failed to encode refresh request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", payload, "")
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	var pair models.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if err := c.store.SetTokens(pair); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	logging.Debug().Msg("[transport] Access token refreshed")
	return nil
}

// getJSON issues a GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

// postJSON issues a POST with an optional JSON body, decoding into out
// when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.writeJSON(ctx, http.MethodPost, path, body, out)
}

// putJSON issues a PUT with a JSON body.
func (c *Client) putJSON(ctx context.Context, path string, body, out any) error {
	return c.writeJSON(ctx, http.MethodPut, path, body, out)
}

// writeJSON is the shared body-carrying request helper.
func (c *Client) writeJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, out)
}

// delete issues a DELETE and checks for success.
func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeResponse(resp, nil)
}

// decodeResponse maps status codes to errors and decodes success bodies.
// Backend validation failures carry an {"error": "..."} envelope which is
// surfaced verbatim so views can show the server-provided message.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr models.APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return &APIStatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIStatusError{StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
