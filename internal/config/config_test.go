// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

const testToken = "123456:ABC-test-token"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Clear environment and set only required var
	os.Clearenv()
	setEnv(t, "BOT_TOKEN", testToken)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.UseWebhook {
		t.Error("UseWebhook should default to true")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.PrelaunchDays != 2 {
		t.Errorf("PrelaunchDays = %d, want 2", cfg.PrelaunchDays)
	}
	if cfg.PrelaunchMessage != DefaultPrelaunchMessage {
		t.Errorf("PrelaunchMessage = %q, want default", cfg.PrelaunchMessage)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "./data")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.SessionTTL != 0 {
		t.Errorf("SessionTTL = %v, want 0", cfg.SessionTTL)
	}
	if _, ok := cfg.LaunchAt(); ok {
		t.Error("LaunchAt should be unset without LAUNCH_DATE")
	}
	if cfg.UseRedisSessions() {
		t.Error("UseRedisSessions should be false without REDIS_URL")
	}
	if cfg.HealthVerbose {
		t.Error("HealthVerbose should default to false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "BOT_TOKEN", testToken)
	setEnv(t, "PORT", "3000")
	setEnv(t, "HOST", "127.0.0.1")
	setEnv(t, "LAUNCH_DATE", "2025-08-25")
	setEnv(t, "PRELAUNCH_DAYS", "3")
	setEnv(t, "SESSION_TTL", "12h")
	setEnv(t, "REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "LOG_LEVEL", "debug")
	setEnv(t, "HEALTH_VERBOSE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ServerAddr() != "127.0.0.1:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "127.0.0.1:3000")
	}
	launch, ok := cfg.LaunchAt()
	if !ok {
		t.Fatal("LaunchAt should be set")
	}
	want := time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
	if !launch.Equal(want) {
		t.Errorf("LaunchAt = %v, want %v", launch, want)
	}
	if cfg.PrelaunchDays != 3 {
		t.Errorf("PrelaunchDays = %d, want 3", cfg.PrelaunchDays)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
	if !cfg.UseRedisSessions() {
		t.Error("UseRedisSessions should be true")
	}
	if !cfg.HealthVerbose {
		t.Error("HealthVerbose should be true")
	}
}

func TestLoad_RequiredBotToken(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when BOT_TOKEN is not set")
	}

	setEnv(t, "BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when BOT_TOKEN is empty")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed launch date", "LAUNCH_DATE", "25/08/2025"},
		{"impossible launch date", "LAUNCH_DATE", "2025-02-30"},
		{"negative prelaunch days", "PRELAUNCH_DAYS", "-1"},
		{"relative webhook host", "WEBHOOK_HOST", "bot.example.com"},
		{"port out of range", "PORT", "70000"},
		{"zero send rate", "TELEGRAM_SEND_RATE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "BOT_TOKEN", testToken)
			setEnv(t, tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() should fail with %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestWebhookMode(t *testing.T) {
	tests := []struct {
		name        string
		useWebhook  bool
		webhookHost string
		wantMode    bool
		wantURL     string
	}{
		{"webhook with host", true, "https://bot.example.com/", true, "https://bot.example.com/webhook/" + testToken},
		{"webhook without host falls back to polling", true, "", false, ""},
		{"polling requested", false, "https://bot.example.com", false, "https://bot.example.com/webhook/" + testToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{BotToken: testToken, UseWebhook: tt.useWebhook, WebhookHost: tt.webhookHost}
			if got := cfg.WebhookMode(); got != tt.wantMode {
				t.Errorf("WebhookMode() = %v, want %v", got, tt.wantMode)
			}
			if got := cfg.WebhookURL(); got != tt.wantURL {
				t.Errorf("WebhookURL() = %q, want %q", got, tt.wantURL)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"", false},
	}

	for _, tt := range tests {
		cfg := Config{Env: tt.env}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() with Env=%q = %v, want %v", tt.env, got, tt.want)
		}
	}
}
