// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package delivery

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/olegiv/eventbot/internal/gateway"
)

// IsTransient reports whether err is a timeout or network failure worth
// retrying. Platform rejections are transient only when the platform says
// so (request timeout, rate limiting, server errors).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// Covers *url.Error and *net.OpError from the HTTP transport.
	var netErr net.Error
	return errors.As(err, &netErr)
}
