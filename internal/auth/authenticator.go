// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth validates attendee credentials against the directory and
// records authenticated sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/eventbot/internal/directory"
	"github.com/olegiv/eventbot/internal/session"
)

// ErrEmptyCredential is returned when the user submitted only whitespace.
// It is distinct from a failed lookup so the caller can prompt for input
// instead of reporting "not registered".
var ErrEmptyCredential = errors.New("auth: empty credential")

// Lookup resolves a normalized identifier to a display name.
type Lookup interface {
	Lookup(key string) (string, bool)
}

// Result is the outcome of a credential check.
type Result struct {
	Success     bool
	DisplayName string
}

// Authenticator is the only writer of session records.
type Authenticator struct {
	dir    Lookup
	store  session.Store
	now    func() time.Time
	logger *slog.Logger
}

// New creates an authenticator. A nil logger uses slog.Default().
func New(dir Lookup, store session.Store, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		dir:    dir,
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Authenticate checks raw against the directory. On a hit the user's
// session is created or overwritten; on a miss nothing is written.
func (a *Authenticator) Authenticate(ctx context.Context, userID int64, raw string) (Result, error) {
	key := directory.Normalize(raw)
	if key == "" {
		return Result{}, ErrEmptyCredential
	}

	name, ok := a.dir.Lookup(key)
	if !ok {
		a.logger.Info("credential rejected", "user_id", userID)
		return Result{}, nil
	}

	sess := session.Session{
		UserID:          userID,
		DisplayName:     name,
		Authenticated:   true,
		AuthenticatedAt: a.now().UTC(),
	}
	if err := a.store.Put(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("storing session for %d: %w", userID, err)
	}

	a.logger.Info("user authenticated", "user_id", userID, "display_name", name)
	return Result{Success: true, DisplayName: name}, nil
}

// Session returns the user's session and whether the user is authenticated.
// A missing session is not an error.
func (a *Authenticator) Session(ctx context.Context, userID int64) (session.Session, bool, error) {
	sess, err := a.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, fmt.Errorf("loading session for %d: %w", userID, err)
	}
	return sess, sess.Authenticated, nil
}
