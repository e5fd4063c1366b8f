// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bot implements the conversational state machine and the per-user
// event dispatcher.
package bot

// Commands understood by the router.
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandMenu  = "menu"
)

// Event is an inbound user interaction. It is one of TextEvent,
// CallbackEvent or CommandEvent.
type Event interface {
	User() int64
	Chat() int64
	kind() string
}

// TextEvent is a free-text message.
type TextEvent struct {
	UserID int64
	ChatID int64
	Text   string
}

// CallbackEvent is an inline button press. MessageID identifies the message
// that carried the button.
type CallbackEvent struct {
	UserID    int64
	ChatID    int64
	Token     string
	MessageID int
}

// CommandEvent is a slash command, without the slash or bot mention.
type CommandEvent struct {
	UserID  int64
	ChatID  int64
	Command string
}

func (e TextEvent) User() int64     { return e.UserID }
func (e TextEvent) Chat() int64     { return e.ChatID }
func (e CallbackEvent) User() int64 { return e.UserID }
func (e CallbackEvent) Chat() int64 { return e.ChatID }
func (e CommandEvent) User() int64  { return e.UserID }
func (e CommandEvent) Chat() int64  { return e.ChatID }

func (TextEvent) kind() string     { return "text" }
func (CallbackEvent) kind() string { return "callback" }
func (CommandEvent) kind() string  { return "command" }
