package domain

import (
	"context"
	"time"
)

// QuoteProvider fetches real-time quote snapshots.
type QuoteProvider interface {
	CurrentData(ctx context.Context, code string) (MarketData, error)
}

// ChartProvider fetches historical daily closing prices, oldest first.
type ChartProvider interface {
	DailyCloses(ctx context.Context, code string, days int) ([]float64, error)
}

// RankingProvider fetches exchange rankings used by stock selection.
type RankingProvider interface {
	TopByVolume(ctx context.Context, limit int) ([]RankedStock, error)
	TopByChangeRate(ctx context.Context, limit int) ([]RankedStock, error)
	TopByMarketCap(ctx context.Context, limit int) ([]RankedStock, error)
}

// PositionProvider exposes the trading account's cash and holdings.
type PositionProvider interface {
	Balance(ctx context.Context) (AccountBalance, error)
	HoldingOf(ctx context.Context, code string) (Holding, error)
}

// Broker submits orders to the brokerage.
type Broker interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// ReportCache stores the most recent run report for status queries.
type ReportCache interface {
	SetLastReport(ctx context.Context, report RunReport) error
	LastReport(ctx context.Context) (RunReport, error)
}

// LockManager provides a distributed mutual-exclusion lock. Acquire returns
// ErrLockHeld when another holder owns the lock, otherwise an unlock
// function.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Notifier delivers operational events to external channels.
type Notifier interface {
	Notify(ctx context.Context, event string, fields map[string]string) error
}

// ReportSink receives completed run reports, e.g. for WebSocket broadcast.
type ReportSink interface {
	PublishReport(report RunReport)
}

// SignalArchiver writes signal batches to long-term storage.
type SignalArchiver interface {
	ArchiveSignals(ctx context.Context, ts time.Time, signals []Signal) error
}
