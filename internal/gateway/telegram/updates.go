// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/olegiv/eventbot/internal/bot"
)

// pollTimeout is the long-polling timeout in seconds.
const pollTimeout = 60

// Sink receives normalized events.
type Sink interface {
	Submit(ev bot.Event) error
}

// ToEvent normalizes an update. Updates the bot does not act on (stickers,
// channel posts, edited messages) are reported as not ok.
func ToEvent(u tgbotapi.Update) (bot.Event, bool) {
	if q := u.CallbackQuery; q != nil {
		if q.From == nil || q.Message == nil || q.Message.Chat == nil {
			return nil, false
		}
		return bot.CallbackEvent{
			UserID:    q.From.ID,
			ChatID:    q.Message.Chat.ID,
			Token:     q.Data,
			MessageID: q.Message.MessageID,
		}, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return nil, false
	}
	if m.IsCommand() {
		return bot.CommandEvent{
			UserID:  m.From.ID,
			ChatID:  m.Chat.ID,
			Command: strings.ToLower(m.Command()),
		}, true
	}
	if m.Text == "" {
		return nil, false
	}
	return bot.TextEvent{UserID: m.From.ID, ChatID: m.Chat.ID, Text: m.Text}, true
}

// dispatch acknowledges callback queries so the client stops its spinner,
// then hands the event to sink.
func (c *Client) dispatch(ctx context.Context, u tgbotapi.Update, sink Sink) {
	if q := u.CallbackQuery; q != nil {
		if err := c.request(ctx, tgbotapi.NewCallback(q.ID, "")); err != nil {
			c.logger.Warn("failed to answer callback query", "error", err)
		}
	}

	ev, ok := ToEvent(u)
	if !ok {
		c.logger.Debug("ignoring update", "update_id", u.UpdateID)
		return
	}
	if err := sink.Submit(ev); err != nil {
		c.logger.Warn("failed to submit event", "update_id", u.UpdateID, "error", err)
	}
}

// Poll receives updates by long polling until ctx is cancelled. Any
// registered webhook is removed first, together with pending updates.
func (c *Client) Poll(ctx context.Context, sink Sink) error {
	if err := c.request(ctx, tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := c.api.GetUpdatesChan(cfg)
	c.logger.Info("polling for updates", "bot", c.Username())

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.logger.Info("stopped polling")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			c.dispatch(ctx, u, sink)
		}
	}
}

// SetWebhook registers link as the update endpoint and drops updates queued
// while the bot was offline.
func (c *Client) SetWebhook(ctx context.Context, link string) error {
	wh, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("parsing webhook url: %w", err)
	}
	wh.DropPendingUpdates = true
	if err := c.request(ctx, wh); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}
	c.logger.Info("webhook registered", "bot", c.Username())
	return nil
}

// WebhookHandler returns the HTTP handler that receives pushed updates.
func (c *Client) WebhookHandler(sink Sink) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := c.api.HandleUpdate(r)
		if err != nil {
			c.logger.Warn("invalid webhook request", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		c.dispatch(r.Context(), *u, sink)
		w.WriteHeader(http.StatusOK)
	})
}

// botLogger routes the SDK's log output through slog.
type botLogger struct {
	logger *slog.Logger
}

func (l botLogger) Println(v ...any) {
	l.logger.Warn(strings.TrimSuffix(fmt.Sprintln(v...), "\n"), "source", "telegram")
}

func (l botLogger) Printf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "source", "telegram")
}

// UseLogger redirects the SDK's package-level logger.
func UseLogger(logger *slog.Logger) error {
	return tgbotapi.SetLogger(botLogger{logger: logger})
}
