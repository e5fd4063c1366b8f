// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session stores per-user authentication profiles.
package session

import (
	"context"
	"strings"
	"time"
)

// Session is the authentication profile of one messaging user. A stored
// session is always fully authenticated; users who never validated have no
// session at all.
type Session struct {
	UserID          int64     `json:"user_id"`
	DisplayName     string    `json:"display_name"`
	Authenticated   bool      `json:"authenticated"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// FirstName returns the first word of the display name.
func (s Session) FirstName() string {
	return FirstName(s.DisplayName)
}

// FirstName returns the first space-separated word of displayName, the form
// used to greet a user.
func FirstName(displayName string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(displayName), " ")
	return first
}

// Store defines the interface for session storage implementations.
// All implementations must be safe for concurrent use. Writes to the same
// user are last-writer-wins.
type Store interface {
	// Get returns the session for userID, or ErrNotFound.
	Get(ctx context.Context, userID int64) (Session, error)

	// Put creates or overwrites the session for s.UserID.
	Put(ctx context.Context, s Session) error

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Error represents an error type for session operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNotFound indicates the user has no session.
	ErrNotFound Error = "session not found"

	// ErrClosed indicates the store has been closed.
	ErrClosed Error = "session store closed"
)
