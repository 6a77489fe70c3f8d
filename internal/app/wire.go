package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/seojun-park/kisbot/internal/blob/s3"
	"github.com/seojun-park/kisbot/internal/cache/redis"
	"github.com/seojun-park/kisbot/internal/config"
	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/marketclock"
	"github.com/seojun-park/kisbot/internal/notify"
	"github.com/seojun-park/kisbot/internal/platform/kis"
	"github.com/seojun-park/kisbot/internal/store/postgres"
)

// Dependencies bundles every external dependency the trading bot needs. It is
// constructed by Wire and torn down by the returned cleanup function. The
// optional members (Locks, Reports, Limiter, Archiver) are nil when the
// backing service is disabled in the configuration; downstream code treats a
// nil dependency as "feature off".
type Dependencies struct {
	// Stores
	Strategies domain.StrategyStore
	Watchlist  domain.WatchlistStore
	Signals    domain.SignalStore

	// Redis-backed collaborators, nil when Redis is disabled.
	Locks   domain.LockManager
	Reports domain.ReportCache
	Limiter domain.RateLimiter

	// Archiver is nil when S3 is disabled.
	Archiver domain.SignalArchiver

	// Broker is the brokerage API client. It serves as quote, chart,
	// ranking and position provider as well as the order broker.
	Broker *kis.Client

	Clock    *marketclock.Clock
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Strategies = postgres.NewStrategyStore(pool)
	deps.Watchlist = postgres.NewWatchlistStore(pool)
	deps.Signals = postgres.NewSignalStore(pool)

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Locks = redis.NewLockManager(redisClient)
		deps.Reports = redis.NewReportCache(redisClient)
		deps.Limiter = redis.NewRateLimiter(redisClient)
	}

	// --- S3 signal archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), logger)
	}

	// --- Brokerage ---
	broker, err := kis.NewClient(kis.Config{
		BaseURL:   cfg.KIS.BaseURL,
		AppKey:    cfg.KIS.AppKey,
		AppSecret: cfg.KIS.AppSecret,
		AccountNo: cfg.KIS.AccountNo,
		Paper:     cfg.KIS.Paper,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: brokerage client: %w", err)
	}
	deps.Broker = broker

	// --- Market clock ---
	clock, err := marketclock.New(cfg.Market.Timezone)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: market clock: %w", err)
	}
	deps.Clock = clock

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
