// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

package view

import (
	"context"
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/LuciferDono/CrowdSafe/internal/models"
)

func TestUsersAdminCreateValidatesBeforeSending(t *testing.T) {
	requests := 0
	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	u := NewUsersAdmin(client, NopNotifier{})

	// Short password fails the min=8 rule client-side.
	_, err := u.Create(context.Background(), models.CreateUserRequest{
		Username: "operator1",
		Email:    "op@example.com",
		Password: "short",
		Role:     "operator",
	})
	if err == nil {
		t.Fatal("Expected validation error for short password")
	}
	if requests != 0 {
		t.Errorf("Invalid request must not reach the server, got %d requests", requests)
	}
}

func TestUsersAdminCreateAndList(t *testing.T) {
	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/users" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode([]models.User{
				{ID: 1, Username: "admin", Role: "admin", IsActive: true},
			})
		case r.URL.Path == "/api/users" && r.Method == http.MethodPost:
			var req models.CreateUserRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("Malformed create body: %v", err)
			}
			_ = json.NewEncoder(w).Encode(models.User{ID: 2, Username: req.Username, Role: req.Role, IsActive: true})
		default:
			t.Errorf("Unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	u := NewUsersAdmin(client, NopNotifier{})
	if err := u.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	user, err := u.Create(context.Background(), models.CreateUserRequest{
		Username: "operator1",
		Email:    "op@example.com",
		Password: "longenough",
		Role:     "operator",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID != 2 {
		t.Errorf("Expected created user id 2, got %d", user.ID)
	}

	rows := u.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows after create, got %d", len(rows))
	}
	if rows[1].Username != "operator1" {
		t.Errorf("Expected operator1 in rows, got %q", rows[1].Username)
	}
}

func TestUsersAdminProtectsAdminAccount(t *testing.T) {
	requests := 0
	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users" {
			_ = json.NewEncoder(w).Encode([]models.User{
				{ID: 1, Username: "admin", Role: "admin", IsActive: true},
			})
			return
		}
		requests++
	})

	u := NewUsersAdmin(client, NopNotifier{})
	if err := u.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := u.Delete(context.Background(), 1); err == nil {
		t.Error("Expected delete of admin account to be rejected")
	}
	if err := u.SetActive(context.Background(), 1, false); err == nil {
		t.Error("Expected deactivation of admin account to be rejected")
	}
	if requests != 0 {
		t.Errorf("Protected actions must not reach the server, got %d requests", requests)
	}
}

func TestUsersAdminResetPassword(t *testing.T) {
	client := analyticsTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			_ = json.NewEncoder(w).Encode([]models.User{{ID: 3, Username: "operator1"}})
		case "/api/users/3/reset-password":
			_ = json.NewEncoder(w).Encode(map[string]string{"temporary_password": "tmp-1234"})
		default:
			t.Errorf("Unexpected request to %s", r.URL.Path)
		}
	})

	u := NewUsersAdmin(client, NopNotifier{})
	if err := u.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	temp, err := u.ResetPassword(context.Background(), 3)
	if err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if temp != "tmp-1234" {
		t.Errorf("Expected temporary password tmp-1234, got %q", temp)
	}
}
