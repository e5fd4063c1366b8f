// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package telegram implements the messaging gateway on the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/olegiv/eventbot/internal/gateway"
)

// Client configuration defaults
const (
	DefaultSendRate       = 25               // Outbound requests per second
	DefaultRequestTimeout = 30 * time.Second // Timeout for non-upload calls
)

// Options configures a Client.
type Options struct {
	Token string
	// Endpoint is the Bot API URL template; defaults to tgbotapi.APIEndpoint.
	Endpoint string
	// SendRate caps outbound requests per second across all chats.
	SendRate float64
	// RequestTimeout bounds calls other than file uploads.
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client talks to the Bot API. It implements gateway.Gateway.
type Client struct {
	api            *tgbotapi.BotAPI
	httpClient     *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration
	token          string
	logger         *slog.Logger
}

// New connects to the Bot API and verifies the token.
func New(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = tgbotapi.APIEndpoint
	}
	if opts.SendRate <= 0 {
		opts.SendRate = DefaultSendRate
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Client{
		httpClient:     opts.HTTPClient,
		limiter:        rate.NewLimiter(rate.Limit(opts.SendRate), max(1, int(opts.SendRate))),
		requestTimeout: opts.RequestTimeout,
		token:          opts.Token,
		logger:         opts.Logger,
	}

	api, err := tgbotapi.NewBotAPIWithClient(opts.Token, opts.Endpoint, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", c.convertError(err, 0))
	}
	c.api = api
	return c, nil
}

// Username returns the bot's username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// SendText implements gateway.Gateway.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, opts gateway.Options) (gateway.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode(opts.Format)
	msg.ReplyMarkup = replyMarkup(opts)

	sent, err := c.send(ctx, msg, c.requestTimeout)
	if err != nil {
		return gateway.MessageRef{}, err
	}
	return gateway.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// EditText implements gateway.Gateway. Only inline keyboards can be
// attached to an edited message.
func (c *Client) EditText(ctx context.Context, ref gateway.MessageRef, text string, opts gateway.Options) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ParseMode = parseMode(opts.Format)
	if len(opts.Inline) > 0 {
		markup := inlineMarkup(opts.Inline)
		edit.ReplyMarkup = &markup
	}
	_, err := c.send(ctx, edit, c.requestTimeout)
	return err
}

// SendFile implements gateway.Gateway. The upload is bounded by the sum of
// the read and write timeouts.
func (c *Client) SendFile(ctx context.Context, chatID int64, file gateway.File, timeouts gateway.Timeouts) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer func() { _ = f.Close() }()

	data := tgbotapi.FileReader{Name: file.Name, Reader: f}
	var upload tgbotapi.Chattable
	if file.Kind == gateway.FileVideo {
		video := tgbotapi.NewVideo(chatID, data)
		video.Caption = file.Caption
		video.SupportsStreaming = true
		upload = video
	} else {
		doc := tgbotapi.NewDocument(chatID, data)
		doc.Caption = file.Caption
		upload = doc
	}

	timeout := timeouts.Read + timeouts.Write
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	_, err = c.send(ctx, upload, timeout)
	return err
}

// SendProgressIndicator implements gateway.Gateway.
func (c *Client) SendProgressIndicator(ctx context.Context, chatID int64, kind gateway.FileKind) error {
	action := tgbotapi.ChatUploadDocument
	if kind == gateway.FileVideo {
		action = tgbotapi.ChatUploadVideo
	}
	return c.request(ctx, tgbotapi.NewChatAction(chatID, action))
}

func (c *Client) send(ctx context.Context, msg tgbotapi.Chattable, timeout time.Duration) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	api, status := c.withContext(ctx)
	sent, err := api.Send(msg)
	return sent, c.convertError(err, status.code)
}

func (c *Client) request(ctx context.Context, req tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	api, status := c.withContext(ctx)
	_, err := api.Request(req)
	return c.convertError(err, status.code)
}

// withContext returns a shallow copy of the API client whose HTTP requests
// carry ctx, and the holder the response status is recorded in.
func (c *Client) withContext(ctx context.Context) (*tgbotapi.BotAPI, *httpStatus) {
	status := &httpStatus{}
	api := *c.api
	api.Client = ctxClient{ctx: ctx, client: c.httpClient, status: status}
	return &api, status
}

// httpStatus holds the HTTP status of the last response of one call.
type httpStatus struct {
	code int
}

type ctxClient struct {
	ctx    context.Context
	client tgbotapi.HTTPClient
	status *httpStatus
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req.WithContext(c.ctx))
	if resp != nil {
		c.status.code = resp.StatusCode
	}
	return resp, err
}

// convertError maps Bot API rejections to gateway.APIError and strips the
// token from transport errors, whose URLs embed it. status is the HTTP status
// of the response, or 0 when none arrived. The SDK leaves Error.Code unset on
// file uploads, so the status fills it in.
func (c *Client) convertError(err error, status int) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		switch {
		case code != 0:
		case apiErr.RetryAfter > 0:
			code = http.StatusTooManyRequests
		case status >= http.StatusBadRequest:
			code = status
		}
		return &gateway.APIError{
			Code:       code,
			Message:    apiErr.Message,
			RetryAfter: apiErr.RetryAfter,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, c.token, "<redacted>"),
			Err: urlErr.Err,
		}
	}

	// A proxy error page or other non-JSON body behind an error status.
	if status >= http.StatusBadRequest {
		return &gateway.APIError{
			Code:    status,
			Message: fmt.Sprintf("%s: %v", http.StatusText(status), err),
		}
	}
	return err
}

func parseMode(f gateway.Format) string {
	if f == gateway.FormatMarkdown {
		return tgbotapi.ModeMarkdown
	}
	return ""
}

// replyMarkup picks the keyboard to attach, if any.
func replyMarkup(opts gateway.Options) any {
	switch {
	case len(opts.Inline) > 0:
		return inlineMarkup(opts.Inline)
	case len(opts.Shortcuts) > 0:
		return shortcutMarkup(opts.Shortcuts)
	case opts.RemoveShortcuts:
		return tgbotapi.NewRemoveKeyboard(false)
	default:
		return nil
	}
}

func inlineMarkup(kb gateway.InlineKeyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func shortcutMarkup(kb gateway.ShortcutKeyboard) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}

var _ gateway.Gateway = (*Client)(nil)
