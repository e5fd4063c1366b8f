// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule reports status once an hour.
const DefaultSchedule = "@every 1h"

// statusTimeout bounds a single status collection.
const statusTimeout = 10 * time.Second

// Status is a snapshot of the running bot.
type Status struct {
	Locked      bool // pre-launch lockdown in effect
	Sessions    int  // authenticated users
	ActiveUsers int  // users with queued or in-flight events
}

// StatusFunc collects a Status.
type StatusFunc func(ctx context.Context) (Status, error)

// Scheduler handles scheduled tasks like the periodic status report.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	status   StatusFunc
	logger   *slog.Logger
}

// New creates a new scheduler instance. An empty schedule uses DefaultSchedule.
func New(schedule string, status StatusFunc, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		status:   status,
		logger:   logger,
	}
}

// Validate reports whether schedule is a valid cron expression or descriptor.
func Validate(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Start registers the status job and starts the cron runner.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.reportStatus)
	if err != nil {
		return fmt.Errorf("scheduling status report: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "schedule", s.schedule)
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// reportStatus logs a status snapshot.
func (s *Scheduler) reportStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	st, err := s.status(ctx)
	if err != nil {
		s.logger.Error("failed to collect bot status", "error", err)
		return
	}
	s.logger.Info("bot status",
		"locked", st.Locked,
		"sessions", st.Sessions,
		"active_users", st.ActiveUsers,
	)
}
