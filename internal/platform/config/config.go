// Package config loads application configuration from environment variables.
// All variables use the READER_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Telegram    TelegramConfig
	Quiz        QuizConfig
	Metrics     MetricsConfig
	Log         LogConfig
	ContentPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL settings for the event log.
// An empty URL disables it.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis settings for quiz statistics.
// An empty URL disables them.
type CacheConfig struct {
	URL string
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	BotToken string
}

// QuizConfig holds session behaviour settings.
type QuizConfig struct {
	GenerationDelay time.Duration
	SessionIdleTTL  time.Duration
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with READER_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("READER_SERVER_PORT", 8080),
			Host: envStr("READER_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("READER_DATABASE_URL", ""),
			MaxConns: envInt("READER_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("READER_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("READER_CACHE_URL", ""),
		},
		Telegram: TelegramConfig{
			BotToken: envStr("READER_TELEGRAM_BOT_TOKEN", ""),
		},
		Quiz: QuizConfig{
			GenerationDelay: envDuration("READER_QUIZ_GENERATION_DELAY", 900*time.Millisecond),
			SessionIdleTTL:  envDuration("READER_SESSION_IDLE_TTL", 30*time.Minute),
		},
		Metrics: MetricsConfig{
			Enabled: envBool("READER_METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  envStr("READER_LOG_LEVEL", "info"),
			Format: envStr("READER_LOG_FORMAT", "json"),
		},
		ContentPath: envStr("READER_CONTENT_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("READER_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Quiz.GenerationDelay < 0 {
		return fmt.Errorf("READER_QUIZ_GENERATION_DELAY must not be negative, got %s", c.Quiz.GenerationDelay)
	}

	if c.Quiz.SessionIdleTTL <= 0 {
		return fmt.Errorf("READER_SESSION_IDLE_TTL must be positive, got %s", c.Quiz.SessionIdleTTL)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("READER_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("READER_DATABASE_MIN_CONNS (%d) exceeds READER_DATABASE_MAX_CONNS (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	return nil
}

// HasTelegram returns true if the Telegram channel should be started.
func (c *Config) HasTelegram() bool {
	return c.Telegram.BotToken != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envDuration accepts Go durations ("900ms", "30m") or bare milliseconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
