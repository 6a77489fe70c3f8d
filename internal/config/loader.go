package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KISBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KISBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── KIS ──
	setStr(&cfg.KIS.BaseURL, "KISBOT_KIS_BASE_URL")
	setStr(&cfg.KIS.AppKey, "KISBOT_KIS_APP_KEY")
	setStr(&cfg.KIS.AppSecret, "KISBOT_KIS_APP_SECRET")
	setStr(&cfg.KIS.AccountNo, "KISBOT_KIS_ACCOUNT_NO")
	setBool(&cfg.KIS.Paper, "KISBOT_KIS_PAPER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "KISBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "KISBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "KISBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "KISBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "KISBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "KISBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "KISBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "KISBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "KISBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "KISBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "KISBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "KISBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KISBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KISBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KISBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KISBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KISBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "KISBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "KISBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "KISBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "KISBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "KISBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "KISBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "KISBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "KISBOT_S3_FORCE_PATH_STYLE")

	// ── Market ──
	setStr(&cfg.Market.Timezone, "KISBOT_MARKET_TIMEZONE")

	// ── Engine ──
	setDuration(&cfg.Engine.CallTimeout, "KISBOT_ENGINE_CALL_TIMEOUT")
	setDuration(&cfg.Engine.LockTTL, "KISBOT_ENGINE_LOCK_TTL")

	// ── Scheduler ──
	setBool(&cfg.Scheduler.AutoStart, "KISBOT_SCHEDULER_AUTO_START")
	setStr(&cfg.Scheduler.Mode, "KISBOT_SCHEDULER_MODE")
	setDuration(&cfg.Scheduler.Interval, "KISBOT_SCHEDULER_INTERVAL")
	setStr(&cfg.Scheduler.At, "KISBOT_SCHEDULER_AT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "KISBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "KISBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "KISBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "KISBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "KISBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "KISBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "KISBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KISBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KISBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "KISBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "KISBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
