package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"taskflow/internal/model"
)

const (
	DefaultDatabaseURL     = "taskflow.db"
	DefaultHTTPAddr        = ":8080"
	DefaultPreferencesPath = "preferences.yaml"
)

// Config keeps runtime settings for the bot and the HTTP API.
type Config struct {
	TelegramToken   string
	DatabaseURL     string
	HTTPAddr        string
	JWTSecret       string
	ReportInterval  time.Duration
	DigestTime      string
	OverdueInterval time.Duration
	Location        *time.Location
	PreferencesPath string
}

// BotEnabled reports whether a Telegram token is configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// HTTPEnabled reports whether the API should listen.
func (c Config) HTTPEnabled() bool {
	return c.HTTPAddr != ""
}

// Load reads configuration from environment variables with sane defaults and
// checks that at least one surface can run.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse reads the environment without requiring a surface. Commands that
// only touch storage use it.
func Parse() (Config, error) {
	cfg := Config{
		TelegramToken:   strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		ReportInterval:  parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS")), time.Hour),
		DigestTime:      strings.TrimSpace(os.Getenv("DIGEST_TIME")),
		OverdueInterval: parseInterval(strings.TrimSpace(os.Getenv("OVERDUE_CHECK_MINUTES")), time.Minute),
		PreferencesPath: strings.TrimSpace(os.Getenv("PREFERENCES_PATH")),
	}

	// An explicitly empty HTTP_ADDR turns the API off.
	if addr, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = strings.TrimSpace(addr)
	} else {
		cfg.HTTPAddr = DefaultHTTPAddr
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	if cfg.PreferencesPath == "" {
		cfg.PreferencesPath = DefaultPreferencesPath
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}
	if cfg.OverdueInterval == 0 {
		cfg.OverdueInterval = time.Minute
	}

	loc, err := loadLocation(strings.TrimSpace(os.Getenv("TIMEZONE")))
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	if cfg.DigestTime != "" {
		if _, _, err := model.ParseClock(cfg.DigestTime); err != nil {
			return cfg, fmt.Errorf("DIGEST_TIME: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the surface settings.
func (c Config) Validate() error {
	if !c.BotEnabled() && !c.HTTPEnabled() {
		return fmt.Errorf("nothing to serve: set TELEGRAM_TOKEN or HTTP_ADDR")
	}
	if c.HTTPEnabled() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when HTTP_ADDR is set")
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}

func parseInterval(raw string, unit time.Duration) time.Duration {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * unit
}
