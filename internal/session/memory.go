// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryStore is a thread-safe in-memory session store. Sessions live for
// the lifetime of the process.
type MemoryStore struct {
	data   sync.Map // int64 -> Session
	count  atomic.Int64
	closed atomic.Bool
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get retrieves the session for userID.
func (s *MemoryStore) Get(_ context.Context, userID int64) (Session, error) {
	if s.closed.Load() {
		return Session{}, ErrClosed
	}

	val, ok := s.data.Load(userID)
	if !ok {
		return Session{}, ErrNotFound
	}
	return val.(Session), nil
}

// Put stores the session, replacing any previous one for the same user.
func (s *MemoryStore) Put(_ context.Context, sess Session) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if _, loaded := s.data.Swap(sess.UserID, sess); !loaded {
		s.count.Add(1)
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return int(s.count.Load()), nil
}

// Close marks the store closed. Further calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

var _ Store = (*MemoryStore)(nil)
