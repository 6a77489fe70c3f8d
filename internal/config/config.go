// Package config defines the top-level configuration for the trading bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KISBOT_* environment variables.
type Config struct {
	KIS       KISConfig       `toml:"kis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Market    MarketConfig    `toml:"market"`
	Engine    EngineConfig    `toml:"engine"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	LogLevel  string          `toml:"log_level"`
}

// KISConfig holds Korea Investment & Securities API credentials and the
// trading account.
type KISConfig struct {
	BaseURL   string `toml:"base_url"`
	AppKey    string `toml:"app_key"`
	AppSecret string `toml:"app_secret"`
	// AccountNo is the full account number "NNNNNNNN-PP".
	AccountNo string `toml:"account_no"`
	// Paper routes orders through the paper-trading environment.
	Paper bool `toml:"paper"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled, the run lock, report cache, and API rate limiting are skipped.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the signal
// archive. Optional; when disabled, signals are kept in Postgres only.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// MarketConfig holds exchange session parameters.
type MarketConfig struct {
	// Timezone is the IANA name of the exchange's local timezone.
	Timezone string `toml:"timezone"`
}

// EngineConfig holds trading engine parameters.
type EngineConfig struct {
	// CallTimeout bounds each brokerage API call made during a run.
	CallTimeout duration `toml:"call_timeout"`
	// LockTTL bounds how long the distributed run lock is held.
	LockTTL duration `toml:"lock_ttl"`
}

// SchedulerConfig holds the automatic trading schedule installed at startup.
type SchedulerConfig struct {
	// AutoStart installs the configured schedule when the bot boots.
	AutoStart bool `toml:"auto_start"`
	// Mode selects "interval" or "daily".
	Mode string `toml:"mode"`
	// Interval is the run period for interval mode, e.g. "30s".
	Interval duration `toml:"interval"`
	// At is the local run time for daily mode, "HH:MM".
	At string `toml:"at"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects all /api routes when set. Empty disables auth.
	APIKey string `toml:"api_key"`
	// RateLimit caps requests per client IP per rate_window. Zero disables.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		KIS: KISConfig{
			BaseURL: "https://openapi.koreainvestment.com:9443",
			Paper:   false,
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "kisbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "kisbot-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Market: MarketConfig{
			Timezone: "Asia/Seoul",
		},
		Engine: EngineConfig{
			CallTimeout: duration{10 * time.Second},
			LockTTL:     duration{5 * time.Minute},
		},
		Scheduler: SchedulerConfig{
			AutoStart: false,
			Mode:      "daily",
			Interval:  duration{time.Minute},
			At:        "09:05",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"order_executed", "order_failed", "run_completed"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validSchedulerModes enumerates the accepted values for SchedulerConfig.Mode.
var validSchedulerModes = map[string]bool{
	"interval": true,
	"daily":    true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// KIS credentials
	if c.KIS.BaseURL == "" {
		errs = append(errs, "kis: base_url must not be empty")
	}
	if c.KIS.AppKey == "" {
		errs = append(errs, "kis: app_key must not be empty")
	}
	if c.KIS.AppSecret == "" {
		errs = append(errs, "kis: app_secret must not be empty")
	}
	if !validAccountNo(c.KIS.AccountNo) {
		errs = append(errs, fmt.Sprintf("kis: account_no must be formatted NNNNNNNN-PP, got %q", c.KIS.AccountNo))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Market
	if c.Market.Timezone == "" {
		errs = append(errs, "market: timezone must not be empty")
	}

	// Engine
	if c.Engine.CallTimeout.Duration <= 0 {
		errs = append(errs, "engine: call_timeout must be > 0")
	}
	if c.Engine.LockTTL.Duration <= 0 {
		errs = append(errs, "engine: lock_ttl must be > 0")
	}

	// Scheduler
	if !validSchedulerModes[strings.ToLower(c.Scheduler.Mode)] {
		errs = append(errs, fmt.Sprintf("scheduler: unknown mode %q (valid: interval, daily)", c.Scheduler.Mode))
	}
	if c.Scheduler.Mode == "interval" && c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be > 0 for interval mode")
	}
	if c.Scheduler.Mode == "daily" {
		if _, err := time.Parse("15:04", c.Scheduler.At); err != nil {
			errs = append(errs, fmt.Sprintf("scheduler: at must be HH:MM, got %q", c.Scheduler.At))
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	// Telegram credentials must be set together, or both empty.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validAccountNo reports whether s looks like "NNNNNNNN-PP": an 8-digit
// account number, a dash, and a 2-digit product code.
func validAccountNo(s string) bool {
	if len(s) != 11 || s[8] != '-' {
		return false
	}
	for i, r := range s {
		if i == 8 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
