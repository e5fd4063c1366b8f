// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package timegate decides whether the bot is still in its pre-launch lockdown.
package timegate

import (
	"fmt"
	"time"
)

// Gate computes the pre-launch window from a launch date and a lead time.
// It holds no mutable state and is safe for concurrent use.
type Gate struct {
	launch    time.Time
	hasLaunch bool
	leadDays  int
	message   string
}

// New creates a gate. When hasLaunch is false the gate never locks.
func New(launch time.Time, hasLaunch bool, leadDays int, message string) *Gate {
	return &Gate{
		launch:    launch.UTC(),
		hasLaunch: hasLaunch,
		leadDays:  leadDays,
		message:   message,
	}
}

// Disabled returns a gate that is always unlocked.
func Disabled() *Gate {
	return &Gate{}
}

// UnlockAt returns the instant full functionality becomes available.
func (g *Gate) UnlockAt() (time.Time, bool) {
	if !g.hasLaunch {
		return time.Time{}, false
	}
	return g.launch.AddDate(0, 0, -g.leadDays), true
}

// IsLocked reports whether now falls before the unlock instant and, if so,
// the lockdown message to show the user.
func (g *Gate) IsLocked(now time.Time) (bool, string) {
	unlock, ok := g.UnlockAt()
	if !ok || !now.Before(unlock) {
		return false, ""
	}

	days := DaysBetween(now, unlock)
	msg := fmt.Sprintf(
		"✨ El bot estará disponible 🔥 %d días antes del evento.\n\n"+
			"⏳ Faltan %d días, vuelve pronto. 🙌\n\n"+
			"%s",
		g.leadDays, days, g.message,
	)
	return true, msg
}

// DaysRemaining returns the whole calendar days left until unlock, or 0 when
// the gate is open.
func (g *Gate) DaysRemaining(now time.Time) int {
	unlock, ok := g.UnlockAt()
	if !ok || !now.Before(unlock) {
		return 0
	}
	return DaysBetween(now, unlock)
}

// DaysBetween counts calendar days from a to b in UTC. Time of day is
// ignored so the count does not flip back and forth around midnight.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
