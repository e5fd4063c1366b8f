// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package bot

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrDispatcherStopped is returned by Submit after Stop.
var ErrDispatcherStopped = errors.New("bot: dispatcher stopped")

// Handler processes a single event.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) { f(ctx, ev) }

// Config holds dispatcher configuration.
type Config struct {
	MaxPending int // Maximum queued events per user before new ones are dropped
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		MaxPending: 32,
	}
}

// lane holds the events of one user waiting to be handled.
type lane struct {
	pending []Event
}

// Dispatcher runs events for the same user strictly in arrival order and
// events for different users concurrently. A lane goroutine is started on
// a user's first pending event and exits once the lane drains.
type Dispatcher struct {
	handler    Handler
	logger     *slog.Logger
	maxPending int

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	lanes   map[int64]*lane
	running bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(handler Handler, logger *slog.Logger, cfg Config) *Dispatcher {
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultConfig().MaxPending
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handler:    handler,
		logger:     logger,
		maxPending: cfg.MaxPending,
		ctx:        ctx,
		cancel:     cancel,
		lanes:      make(map[int64]*lane),
		running:    true,
	}
}

// Submit queues ev on its user's lane.
func (d *Dispatcher) Submit(ev Event) error {
	userID := ev.User()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrDispatcherStopped
	}

	l, ok := d.lanes[userID]
	if !ok {
		l = &lane{}
		d.lanes[userID] = l
		d.wg.Add(1)
		go d.run(userID, l)
	}

	if len(l.pending) >= d.maxPending {
		d.logger.Warn("user queue full, dropping event", "user_id", userID, "event", ev.kind())
		return nil
	}
	l.pending = append(l.pending, ev)
	return nil
}

// Active returns the number of users with queued or in-flight events.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

// run drains one user's lane.
func (d *Dispatcher) run(userID int64, l *lane) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(l.pending) == 0 {
			delete(d.lanes, userID)
			d.mu.Unlock()
			return
		}
		ev := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		d.mu.Unlock()

		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"user_id", ev.User(),
				"event", ev.kind(),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	d.handler.Handle(d.ctx, ev)
}

// Stop rejects new events and waits for queued and in-flight events to
// finish. If ctx expires first, in-flight handlers are cancelled and
// ctx's error is returned without waiting for them.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping event dispatcher")

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		d.logger.Warn("event dispatcher stop timed out, cancelled in-flight events")
		return ctx.Err()
	}
}
