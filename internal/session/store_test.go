// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LuciferDono/CrowdSafe/internal/models"
)

func TestStoreSetAndGetTokens(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))

	user := &models.User{ID: 1, Username: "admin", Role: "admin"}
	err := store.SetTokens(models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1", User: user})
	if err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	if store.AccessToken() != "access-1" {
		t.Errorf("Expected access-1, got %q", store.AccessToken())
	}
	if store.RefreshToken() != "refresh-1" {
		t.Errorf("Expected refresh-1, got %q", store.RefreshToken())
	}
	got := store.User()
	if got == nil || got.Username != "admin" {
		t.Errorf("Expected stored user admin, got %+v", got)
	}
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	first := NewStore(path)
	if err := first.SetTokens(models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	second := NewStore(path)
	if second.AccessToken() != "access-1" {
		t.Errorf("Expected persisted access token, got %q", second.AccessToken())
	}
	if second.RefreshToken() != "refresh-1" {
		t.Errorf("Expected persisted refresh token, got %q", second.RefreshToken())
	}
}

func TestStoreRefreshKeepsExistingRefreshToken(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))

	if err := store.SetTokens(models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	// Refresh responses often omit the refresh token; the stored one
	// must survive.
	if err := store.SetTokens(models.TokenPair{AccessToken: "access-2"}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	if store.AccessToken() != "access-2" {
		t.Errorf("Expected rotated access token, got %q", store.AccessToken())
	}
	if store.RefreshToken() != "refresh-1" {
		t.Errorf("Expected refresh token to survive rotation, got %q", store.RefreshToken())
	}
}

func TestStoreClearRemovesEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)

	if err := store.SetTokens(models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if store.AccessToken() != "" || store.RefreshToken() != "" {
		t.Error("Expected empty tokens after clear")
	}
	if store.User() != nil {
		t.Error("Expected no user after clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected session file to be removed")
	}
}

func TestStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)

	if err := store.SetTokens(models.TokenPair{AccessToken: "access-1"}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Expected 0600 permissions on session file, got %o", perm)
	}
}

func TestStoreAccessTokenExpiry(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))

	// Not a JWT: no expiry available.
	if err := store.SetTokens(models.TokenPair{AccessToken: "opaque"}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	if _, ok := store.AccessTokenExpiry(); ok {
		t.Error("Expected no expiry for a non-JWT token")
	}

	// Unsigned JWT with exp=4102444800 (2100-01-01); the store parses
	// without verifying, it only needs the claim.
	jwt := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJleHAiOjQxMDI0NDQ4MDB9." +
		"c2lnbmF0dXJl"
	if err := store.SetTokens(models.TokenPair{AccessToken: jwt}); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	expiry, ok := store.AccessTokenExpiry()
	if !ok {
		t.Fatal("Expected expiry from JWT exp claim")
	}
	if expiry.Year() != 2100 {
		t.Errorf("Expected expiry in 2100, got %v", expiry)
	}
}
