// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the bot packages.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/olegiv/eventbot/internal/gateway"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// WriteFile creates a file with content under dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// Call kinds recorded by FakeGateway.
const (
	CallSendText = "send_text"
	CallEditText = "edit_text"
	CallSendFile = "send_file"
	CallProgress = "progress"
)

// Call is one recorded gateway interaction.
type Call struct {
	Kind    string
	ChatID  int64
	Ref     gateway.MessageRef
	Text    string
	Options gateway.Options
	File    gateway.File
}

// FakeGateway records every outbound call. SendFileErrors are returned by
// successive SendFile calls; once exhausted SendFile succeeds.
type FakeGateway struct {
	mu             sync.Mutex
	calls          []Call
	nextID         int
	SendFileErrors []error
	SendTextErr    error
	EditTextErr    error
}

// SendText implements gateway.Gateway.
func (f *FakeGateway) SendText(_ context.Context, chatID int64, text string, opts gateway.Options) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendTextErr != nil {
		return gateway.MessageRef{}, f.SendTextErr
	}
	f.nextID++
	ref := gateway.MessageRef{ChatID: chatID, MessageID: f.nextID}
	f.calls = append(f.calls, Call{Kind: CallSendText, ChatID: chatID, Ref: ref, Text: text, Options: opts})
	return ref, nil
}

// EditText implements gateway.Gateway.
func (f *FakeGateway) EditText(_ context.Context, ref gateway.MessageRef, text string, opts gateway.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Kind: CallEditText, ChatID: ref.ChatID, Ref: ref, Text: text, Options: opts})
	return f.EditTextErr
}

// SendFile implements gateway.Gateway.
func (f *FakeGateway) SendFile(_ context.Context, chatID int64, file gateway.File, _ gateway.Timeouts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Kind: CallSendFile, ChatID: chatID, File: file})
	if len(f.SendFileErrors) == 0 {
		return nil
	}
	err := f.SendFileErrors[0]
	f.SendFileErrors = f.SendFileErrors[1:]
	return err
}

// SendProgressIndicator implements gateway.Gateway.
func (f *FakeGateway) SendProgressIndicator(_ context.Context, chatID int64, kind gateway.FileKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Kind: CallProgress, ChatID: chatID, File: gateway.File{Kind: kind}})
	return nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeGateway) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOf returns the recorded calls of one kind.
func (f *FakeGateway) CallsOf(kind string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (f *FakeGateway) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Last returns the most recent call, or the zero Call.
func (f *FakeGateway) Last() Call {
	calls := f.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

var _ gateway.Gateway = (*FakeGateway)(nil)
