// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides the bot's slog setup and a handler that keeps
// secrets out of log output.
// The bot token appears in Bot API URLs, so transport errors and SDK log
// lines would otherwise leak it.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Redacted replaces every secret found in a log record.
const Redacted = "<redacted>"

// RedactHandler is a slog.Handler that wraps another handler and masks
// configured secrets in the message and in string-valued attributes.
type RedactHandler struct {
	inner    slog.Handler
	replacer *strings.Replacer
}

// NewRedactHandler creates a RedactHandler. Empty secrets are ignored.
func NewRedactHandler(inner slog.Handler, secrets ...string) *RedactHandler {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, Redacted)
		}
	}
	return &RedactHandler{
		inner:    inner,
		replacer: strings.NewReplacer(pairs...),
	}
}

// Enabled implements slog.Handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, h.replacer.Replace(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redactAttr(a)
	}
	return &RedactHandler{
		inner:    h.inner.WithAttrs(clean),
		replacer: h.replacer,
	}
}

// WithGroup implements slog.Handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{
		inner:    h.inner.WithGroup(name),
		replacer: h.replacer,
	}
}

// redactAttr masks secrets in string, error and group values.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.replacer.Replace(v.String()))
	case slog.KindGroup:
		group := v.Group()
		clean := make([]any, len(group))
		for i, ga := range group {
			clean[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, clean...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.replacer.Replace(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// ParseLevel maps a LOG_LEVEL value to a slog.Level. Unknown values fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger: a text handler in development and a
// JSON handler otherwise, wrapped to redact secrets.
func NewLogger(w io.Writer, level slog.Level, development bool, secrets ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if development {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}
	return slog.New(NewRedactHandler(inner, secrets...))
}
