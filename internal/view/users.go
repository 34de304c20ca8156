// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
users.go - Operator account administration controller

The built-in admin account cannot be deleted or deactivated from this
client; the backend enforces the same rule authoritatively.
*/

package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// protectedUsername is the account exempt from destructive actions.
const protectedUsername = "admin"

// UserRow is one rendered account table row.
type UserRow struct {
	ID        int64
	Username  string
	FullName  string
	Email     string
	Role      string
	Active    bool
	LastLogin string
}

// UsersAdmin drives the user management view.
type UsersAdmin struct {
	client   *transport.Client
	notifier Notifier

	mu    sync.RWMutex
	users []models.User
}

// NewUsersAdmin creates the user admin controller.
func NewUsersAdmin(client *transport.Client, notifier Notifier) *UsersAdmin {
	return &UsersAdmin{client: client, notifier: notifier}
}

// Load fetches all operator accounts.
func (u *UsersAdmin) Load(ctx context.Context) error {
	users, err := u.client.Users(ctx)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.users = users
	u.mu.Unlock()
	return nil
}

// Create validates and submits a new account.
func (u *UsersAdmin) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := validate.Struct(req); err != nil {
		u.notifier.Notice("Invalid user: " + validationMessage(err))
		return nil, err
	}

	user, err := u.client.CreateUser(ctx, req)
	if err != nil {
		u.notifier.Notice("Failed to create user: " + serverMessage(err))
		return nil, err
	}

	u.mu.Lock()
	u.users = append(u.users, *user)
	u.mu.Unlock()
	u.notifier.Toast("success", "User "+user.Username+" created")
	return user, nil
}

// SetActive enables or disables an account.
func (u *UsersAdmin) SetActive(ctx context.Context, id int64, active bool) error {
	user := u.find(id)
	if user == nil {
		return fmt.Errorf("unknown user %d", id)
	}
	if user.Username == protectedUsername && !active {
		u.notifier.Notice("The admin account cannot be deactivated")
		return fmt.Errorf("cannot deactivate the %s account", protectedUsername)
	}

	req := models.UpdateUserRequest{IsActive: &active}
	if err := u.client.UpdateUser(ctx, id, req); err != nil {
		u.notifier.Notice("Failed to update user: " + serverMessage(err))
		return err
	}

	u.mu.Lock()
	for i := range u.users {
		if u.users[i].ID == id {
			u.users[i].IsActive = active
		}
	}
	u.mu.Unlock()
	if active {
		u.notifier.Toast("success", "User enabled")
	} else {
		u.notifier.Toast("success", "User disabled")
	}
	return nil
}

// ResetPassword issues a temporary password and surfaces it once; it is
// never stored client-side.
func (u *UsersAdmin) ResetPassword(ctx context.Context, id int64) (string, error) {
	temp, err := u.client.ResetPassword(ctx, id)
	if err != nil {
		u.notifier.Notice("Failed to reset password: " + serverMessage(err))
		return "", err
	}
	u.notifier.Notice("Temporary password: " + temp)
	return temp, nil
}

// Delete removes an account. The admin account is protected.
func (u *UsersAdmin) Delete(ctx context.Context, id int64) error {
	if user := u.find(id); user != nil && user.Username == protectedUsername {
		u.notifier.Notice("The admin account cannot be deleted")
		return fmt.Errorf("cannot delete the %s account", protectedUsername)
	}

	if err := u.client.DeleteUser(ctx, id); err != nil {
		u.notifier.Notice("Failed to delete user: " + serverMessage(err))
		return err
	}

	u.mu.Lock()
	kept := u.users[:0]
	for _, user := range u.users {
		if user.ID != id {
			kept = append(kept, user)
		}
	}
	u.users = kept
	u.mu.Unlock()
	u.notifier.Toast("success", "User deleted")
	return nil
}

// find locates a user by id, nil when absent.
func (u *UsersAdmin) find(id int64) *models.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	for i := range u.users {
		if u.users[i].ID == id {
			return &u.users[i]
		}
	}
	return nil
}

// Rows projects the accounts into table rows.
func (u *UsersAdmin) Rows() []UserRow {
	u.mu.RLock()
	defer u.mu.RUnlock()

	rows := make([]UserRow, len(u.users))
	for i, user := range u.users {
		lastLogin := "-"
		if user.LastLogin != "" {
			lastLogin = FormatIST(user.LastLogin)
		}
		rows[i] = UserRow{
			ID:        user.ID,
			Username:  user.Username,
			FullName:  user.FullName,
			Email:     user.Email,
			Role:      user.Role,
			Active:    user.IsActive,
			LastLogin: lastLogin,
		}
	}
	return rows
}
