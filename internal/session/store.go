// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

// Package session owns the client's persisted authentication state:
// access token, refresh token, and the logged-in user profile. The state
// is stored under fixed keys in a single JSON file, created at login,
// mutated on refresh, and destroyed on logout. The transport adapter is
// the only writer; every other component reads through the store.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/LuciferDono/CrowdSafe/internal/models"
)

// Fixed storage keys, kept stable across releases so an upgraded client
// picks up an existing session.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// Store is a thread-safe, file-backed session store.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]json.RawMessage
}

// NewStore opens (or initializes) the session file at path. A missing or
// unreadable file yields an empty session rather than an error; the user
// simply has to log in again.
func NewStore(path string) *Store {
	s := &Store{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	// Corrupt session files are discarded, not repaired.
	_ = json.Unmarshal(raw, &s.data)
	return s
}

// AccessToken returns the stored access token, or "" when logged out.
func (s *Store) AccessToken() string {
	return s.getString(keyAccessToken)
}

// RefreshToken returns the stored refresh token, or "".
func (s *Store) RefreshToken() string {
	return s.getString(keyRefreshToken)
}

// User returns the stored user profile, or nil when logged out.
func (s *Store) User() *models.User {
	s.mu.RLock()
	raw, ok := s.data[keyUser]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}
	return &u
}

// SetTokens stores a token pair. An empty refresh token leaves the
// existing refresh token in place, matching the refresh endpoint which
// rotates only the access token.
func (s *Store) SetTokens(pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setString(keyAccessToken, pair.AccessToken)
	if pair.RefreshToken != "" {
		s.setString(keyRefreshToken, pair.RefreshToken)
	}
	if pair.User != nil {
		raw, err := json.Marshal(pair.User)
		if err != nil {
			return fmt.Errorf("failed to encode user profile: %w", err)
		}
		s.data[keyUser] = raw
	}
	return s.persist()
}

// Clear removes all session state and deletes the backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]json.RawMessage)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// AccessTokenExpiry reports when the stored access token expires, based
// on an unverified parse of its exp claim. Verification belongs to the
// backend; the client only uses expiry to log upcoming refreshes. The
// second return is false when no token is stored or it carries no exp.
func (s *Store) AccessTokenExpiry() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// getString reads a string value under the lock.
func (s *Store) getString(key string) string {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// setString stores a string value; caller must hold the lock.
func (s *Store) setString(key, value string) {
	raw, _ := json.Marshal(value)
	s.data[key] = raw
}

// persist writes the session file; caller must hold the lock.
// Written with 0600: the file contains bearer credentials.
func (s *Store) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
