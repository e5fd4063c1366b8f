// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package delivery sends catalog files to users with a progress notice and
// a bounded retry protocol.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olegiv/eventbot/internal/gateway"
)

// Delivery configuration constants
const (
	MaxAttempts  = 3                 // Maximum number of transfer attempts
	BackoffUnit  = 1 * time.Second   // Backoff before retry i is BackoffUnit * 2^i
	ReadTimeout  = 600 * time.Second // Per-attempt upload read timeout
	WriteTimeout = 600 * time.Second // Per-attempt upload write timeout
)

// User-facing notices.
const (
	msgNotFound     = "⚠️ No encuentro el archivo: %s"
	msgPrepareVideo = "⏳ Preparando y enviando el video… puede tardar unos minutos."
	msgPrepareDoc   = "⏳ Preparando y enviando el archivo…"
	msgRetrying     = "⚠️ Conexión inestable, reintentando en %ds… (intento %d/%d)"
	msgTimedOut     = "❌ No se pudo enviar el archivo por tiempo de espera agotado.\nDetalle: %v"
	msgFailed       = "❌ Error al enviar el archivo: %v"
	msgSent         = "✅ Archivo enviado."
)

var videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".m4v": true}

// Item is a file to deliver: the on-disk path and the title shown to the user.
type Item struct {
	Title string
	Path  string
}

// Kind classifies the item by extension. It only affects wording and the
// progress indicator.
func (it Item) Kind() gateway.FileKind {
	if videoExtensions[strings.ToLower(filepath.Ext(it.Path))] {
		return gateway.FileVideo
	}
	return gateway.FileDocument
}

// Status is the terminal state of a delivery.
type Status int

const (
	StatusDelivered Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Outcome reports how a delivery ended.
type Outcome struct {
	Status   Status
	Attempts int
	Err      error
}

// attemptResult represents the result of one transfer attempt.
type attemptResult struct {
	Success     bool
	Error       error
	ShouldRetry bool
}

// Deliverer sends files through a gateway.
type Deliverer struct {
	gw     gateway.Gateway
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Deliverer.
func New(gw gateway.Gateway, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{gw: gw, logger: logger, sleep: sleepContext}
}

// Deliver sends item to chatID. The existence check runs before any notice
// is shown. A single progress notice is created and edited in place, ending
// in exactly one terminal message.
func (d *Deliverer) Deliver(ctx context.Context, chatID int64, item Item) Outcome {
	logger := d.logger.With("chat_id", chatID, "title", item.Title)

	if info, err := os.Stat(item.Path); err != nil || info.IsDir() {
		logger.Warn("file not found", "path", item.Path)
		if _, err := d.gw.SendText(ctx, chatID, fmt.Sprintf(msgNotFound, item.Title), gateway.Options{}); err != nil {
			logger.Error("failed to send not-found notice", "error", err)
		}
		return Outcome{Status: StatusNotFound}
	}

	kind := item.Kind()
	if err := d.gw.SendProgressIndicator(ctx, chatID, kind); err != nil {
		logger.Debug("progress indicator failed", "error", err)
	}

	prepare := msgPrepareDoc
	if kind == gateway.FileVideo {
		prepare = msgPrepareVideo
	}
	notice, err := d.gw.SendText(ctx, chatID, prepare, gateway.Options{})
	if err != nil {
		logger.Warn("failed to send progress notice", "error", err)
	}

	file := gateway.File{
		Path:    item.Path,
		Name:    filepath.Base(item.Path),
		Caption: item.Title,
		Kind:    kind,
	}

	var result attemptResult
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		result = d.attemptDelivery(ctx, chatID, file)
		logger.Info("file delivery attempt",
			"attempt", attempt,
			"kind", kind.String(),
			"success", result.Success,
			"error", result.Error)

		if result.Success {
			d.editNotice(ctx, chatID, notice, msgSent, logger)
			return Outcome{Status: StatusDelivered, Attempts: attempt}
		}

		if !result.ShouldRetry {
			d.editNotice(ctx, chatID, notice, fmt.Sprintf(msgFailed, result.Error), logger)
			return Outcome{Status: StatusFailed, Attempts: attempt, Err: result.Error}
		}

		if attempt == MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt)
		if notice.MessageID != 0 {
			// Intermediate edits are best effort.
			_ = d.gw.EditText(ctx, notice, fmt.Sprintf(msgRetrying, int(backoff.Seconds()), attempt, MaxAttempts), gateway.Options{})
		}
		logger.Warn("file delivery scheduled for retry",
			"attempt", attempt,
			"backoff", backoff.String())
		if err := d.sleep(ctx, backoff); err != nil {
			d.editNotice(ctx, chatID, notice, fmt.Sprintf(msgFailed, err), logger)
			return Outcome{Status: StatusFailed, Attempts: attempt, Err: err}
		}
	}

	logger.Warn("file delivery exhausted retries", "attempts", MaxAttempts, "error", result.Error)
	d.editNotice(ctx, chatID, notice, fmt.Sprintf(msgTimedOut, result.Error), logger)
	return Outcome{Status: StatusFailed, Attempts: MaxAttempts, Err: result.Error}
}

// attemptDelivery performs one upload.
func (d *Deliverer) attemptDelivery(ctx context.Context, chatID int64, file gateway.File) attemptResult {
	err := d.gw.SendFile(ctx, chatID, file, gateway.Timeouts{Read: ReadTimeout, Write: WriteTimeout})
	if err == nil {
		return attemptResult{Success: true}
	}
	return attemptResult{
		Error:       err,
		ShouldRetry: IsTransient(err) && ctx.Err() == nil,
	}
}

func (d *Deliverer) editNotice(ctx context.Context, chatID int64, notice gateway.MessageRef, text string, logger *slog.Logger) {
	if notice.MessageID == 0 {
		if _, err := d.gw.SendText(ctx, chatID, text, gateway.Options{}); err != nil {
			logger.Error("failed to send delivery result", "error", err)
		}
		return
	}
	if err := d.gw.EditText(ctx, notice, text, gateway.Options{}); err != nil {
		logger.Error("failed to update progress notice", "error", err)
	}
}

// calculateBackoff returns the wait before the retry that follows attempt.
// Attempt 1 = 2s, attempt 2 = 4s.
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	return time.Duration(float64(BackoffUnit) * math.Pow(2, float64(attempt)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
