// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the bot configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// LaunchDateLayout is the accepted format for LAUNCH_DATE.
const LaunchDateLayout = "2006-01-02"

// DefaultPrelaunchMessage is shown below the countdown while the bot is locked.
const DefaultPrelaunchMessage = "✨ El bot estará disponible 🔥 2 días antes del evento." +
	"⏳ Vuelve pronto y usa /start para comenzar. 🙌"

// Config holds the application configuration loaded from environment variables.
// It is assembled once at startup and passed down by value or pointer; nothing
// else in the bot reads the environment.
type Config struct {
	BotToken string `env:"BOT_TOKEN,required,notEmpty"`

	// Transport
	UseWebhook  bool   `env:"USE_WEBHOOK" envDefault:"true"`
	ServerHost  string `env:"HOST" envDefault:"0.0.0.0"`
	ServerPort  int    `env:"PORT" envDefault:"8080"`
	WebhookHost string `env:"WEBHOOK_HOST"` // Public base URL, e.g. https://bot.example.com

	// Pre-launch lockdown
	LaunchDate       string `env:"LAUNCH_DATE"` // YYYY-MM-DD, empty disables the lockdown
	PrelaunchDays    int    `env:"PRELAUNCH_DAYS" envDefault:"2"`
	PrelaunchMessage string `env:"PRELAUNCH_MESSAGE"`

	// Connection screen
	WifiName     string `env:"WIFI_NAME"`
	WifiPassword string `env:"WIFI_PASSWORD"`

	// Content
	CatalogPath   string `env:"CATALOG_PATH"`   // Empty uses the embedded catalog
	DirectoryPath string `env:"DIRECTORY_PATH"` // Empty uses the embedded attendee list
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`

	Env      string `env:"BOT_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Session storage
	RedisURL      string        `env:"REDIS_URL"` // Optional, memory store when empty
	SessionPrefix string        `env:"SESSION_PREFIX" envDefault:"eventbot:session:"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"0s"` // 0 keeps sessions until restart/eviction

	StatusCron string  `env:"BOT_STATUS_CRON" envDefault:"@every 1h"`
	SendRate   float64 `env:"TELEGRAM_SEND_RATE" envDefault:"25"` // Outbound API calls per second

	// HealthVerbose allows /health?verbose=true to report runtime details.
	HealthVerbose bool `env:"HEALTH_VERBOSE" envDefault:"false"`

	launchAt  time.Time
	hasLaunch bool
}

// IsDevelopment returns true if the bot is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the listen address in host:port format.
func (c Config) ServerAddr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// WebhookPath is the secret path Telegram posts updates to.
func (c Config) WebhookPath() string {
	if c.BotToken == "" {
		return "/webhook"
	}
	return "/webhook/" + c.BotToken
}

// WebhookURL is the public URL registered with Telegram, or empty when
// WEBHOOK_HOST is not configured.
func (c Config) WebhookURL() string {
	if c.WebhookHost == "" {
		return ""
	}
	return strings.TrimRight(c.WebhookHost, "/") + c.WebhookPath()
}

// WebhookMode reports whether updates arrive by push. Polling is used
// whenever the webhook host is missing, regardless of USE_WEBHOOK.
func (c Config) WebhookMode() bool {
	return c.UseWebhook && c.WebhookHost != ""
}

// UseRedisSessions returns true if a Redis session store is configured.
func (c Config) UseRedisSessions() bool {
	return c.RedisURL != ""
}

// LaunchAt returns the parsed launch instant (UTC midnight) and whether one is configured.
func (c Config) LaunchAt() (time.Time, bool) {
	return c.launchAt, c.hasLaunch
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if c.LaunchDate != "" {
		t, err := time.ParseInLocation(LaunchDateLayout, strings.TrimSpace(c.LaunchDate), time.UTC)
		if err != nil {
			return fmt.Errorf("LAUNCH_DATE must be YYYY-MM-DD, got %q: %w", c.LaunchDate, err)
		}
		c.launchAt = t
		c.hasLaunch = true
	}
	if c.PrelaunchDays < 0 {
		return fmt.Errorf("PRELAUNCH_DAYS must not be negative, got %d", c.PrelaunchDays)
	}
	if c.PrelaunchMessage == "" {
		c.PrelaunchMessage = DefaultPrelaunchMessage
	}

	if c.WebhookHost != "" {
		u, err := url.Parse(c.WebhookHost)
		if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
			return fmt.Errorf("WEBHOOK_HOST must be an absolute http(s) URL, got %q", c.WebhookHost)
		}
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.ServerPort)
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("TELEGRAM_SEND_RATE must be positive, got %v", c.SendRate)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative, got %v", c.SessionTTL)
	}
	return nil
}
