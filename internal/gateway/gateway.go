// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package gateway defines the outbound contract between the bot core and the
// messaging platform. Implementations live in sub-packages.
package gateway

import (
	"context"
	"fmt"
	"time"
)

// Format selects how the platform renders message text.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
)

// Button is one inline keyboard button. Exactly one of Action and URL is set:
// Action is an opaque callback token sent back on press, URL opens a link.
type Button struct {
	Label  string
	Action string
	URL    string
}

// InlineKeyboard is a grid of buttons attached to a message.
type InlineKeyboard [][]Button

// ShortcutKeyboard is a persistent reply keyboard whose presses arrive as
// ordinary text messages.
type ShortcutKeyboard [][]string

// Options controls formatting and the keyboard of an outbound message. At
// most one of Inline, Shortcuts and RemoveShortcuts should be set.
type Options struct {
	Format          Format
	Inline          InlineKeyboard
	Shortcuts       ShortcutKeyboard
	RemoveShortcuts bool
}

// MessageRef identifies a sent message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// FileKind distinguishes large media from generic documents.
type FileKind int

const (
	FileDocument FileKind = iota
	FileVideo
)

func (k FileKind) String() string {
	if k == FileVideo {
		return "video"
	}
	return "document"
}

// File is a local attachment to upload.
type File struct {
	Path    string
	Name    string // file name presented to the recipient
	Caption string
	Kind    FileKind
}

// Timeouts bound a single upload attempt.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// Gateway sends renders and files to users.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, opts Options) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opts Options) error
	SendFile(ctx context.Context, chatID int64, file File, timeouts Timeouts) error
	SendProgressIndicator(ctx context.Context, chatID int64, kind FileKind) error
}

// APIError is a request the platform received and rejected.
type APIError struct {
	Code       int
	Message    string
	RetryAfter int // seconds, set on rate-limit rejections
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform error %d: %s", e.Code, e.Message)
}

// Temporary reports whether retrying the same request may succeed. Request
// timeouts, rate limiting and server errors are temporary.
func (e *APIError) Temporary() bool {
	return e.Code == 408 || e.Code == 429 || e.Code >= 500
}
