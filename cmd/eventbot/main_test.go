// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olegiv/eventbot/internal/bot"
	"github.com/olegiv/eventbot/internal/config"
	"github.com/olegiv/eventbot/internal/session"
	"github.com/olegiv/eventbot/internal/testutil"
	"github.com/olegiv/eventbot/internal/timegate"
	"github.com/olegiv/eventbot/internal/version"
)

func TestRun_CheckOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("LOG_LEVEL", "error")

	if err := run("", true, version.Info{Version: "test"}); err != nil {
		t.Fatalf("run --check: %v", err)
	}
}

func TestRun_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	err := run("", true, version.Info{})
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() = %v, want config error", err)
	}
}

func TestRun_EnvFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	// godotenv never overrides variables already set; drop the empty one.
	_ = os.Unsetenv("BOT_TOKEN")
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "bot.env")
	if err := os.WriteFile(path, []byte("BOT_TOKEN=456:def\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := run(path, true, version.Info{}); err != nil {
		t.Fatalf("run with env file: %v", err)
	}
}

func TestLoadEnv_MissingFile(t *testing.T) {
	if err := loadEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("loadEnv should fail for a missing explicit file")
	}
	if err := loadEnv(""); err != nil {
		t.Errorf("loadEnv(\"\") = %v, want nil", err)
	}
}

func TestLoadContent_InvalidSchedule(t *testing.T) {
	cfg := &config.Config{StatusCron: "sometimes"}

	if _, _, err := loadContent(cfg); err == nil || !strings.Contains(err.Error(), "BOT_STATUS_CRON") {
		t.Errorf("loadContent() = %v, want schedule error", err)
	}
}

func TestLoadContent_MissingCatalog(t *testing.T) {
	cfg := &config.Config{
		StatusCron:  "@every 1h",
		CatalogPath: filepath.Join(t.TempDir(), "missing.yaml"),
	}

	if _, _, err := loadContent(cfg); err == nil || !strings.Contains(err.Error(), "catalog") {
		t.Errorf("loadContent() = %v, want catalog error", err)
	}
}

func TestStatusFunc(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	for id := int64(1); id <= 2; id++ {
		if err := store.Put(ctx, session.Session{UserID: id, DisplayName: "Ana"}); err != nil {
			t.Fatal(err)
		}
	}

	launch := time.Now().UTC().AddDate(0, 0, 30)
	gate := timegate.New(launch, true, 2, "pronto")
	d := bot.NewDispatcher(bot.HandlerFunc(func(context.Context, bot.Event) {}), testutil.TestLoggerSilent(), bot.DefaultConfig())
	defer func() { _ = d.Stop(ctx) }()

	st, err := statusFunc(gate, store, d)(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Locked {
		t.Error("Locked = false, want true a month before launch")
	}
	if st.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", st.Sessions)
	}
	if st.ActiveUsers != 0 {
		t.Errorf("ActiveUsers = %d, want 0", st.ActiveUsers)
	}
}

func TestStatusFunc_StoreError(t *testing.T) {
	store := session.NewMemoryStore()
	_ = store.Close()
	d := bot.NewDispatcher(bot.HandlerFunc(func(context.Context, bot.Event) {}), testutil.TestLoggerSilent(), bot.DefaultConfig())
	defer func() { _ = d.Stop(context.Background()) }()

	if _, err := statusFunc(timegate.Disabled(), store, d)(context.Background()); err == nil {
		t.Error("expected error from closed store")
	}
}
