// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"time"
)

// Config holds configuration for store creation.
type Config struct {
	// RedisURL selects the Redis backend when non-empty.
	RedisURL string
	Prefix   string
	TTL      time.Duration
}

// New creates a store based on cfg: Redis when a URL is configured,
// otherwise an in-memory store.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.RedisURL == "" {
		return NewMemoryStore(), nil
	}

	opts := DefaultRedisOptions()
	opts.URL = cfg.RedisURL
	if cfg.Prefix != "" {
		opts.Prefix = cfg.Prefix
	}
	opts.TTL = cfg.TTL
	return NewRedisStore(ctx, opts)
}
