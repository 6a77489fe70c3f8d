package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// StrategyStore persists registered strategies.
type StrategyStore interface {
	Create(ctx context.Context, s Strategy) error
	Update(ctx context.Context, s Strategy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Strategy, error)
	GetByName(ctx context.Context, name string) (Strategy, error)
	List(ctx context.Context, opts ListOpts) ([]Strategy, error)
	ListActive(ctx context.Context) ([]Strategy, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// WatchlistStore persists the stock watchlist. ListActive returns entries in
// insertion order.
type WatchlistStore interface {
	Add(ctx context.Context, e WatchlistEntry) error
	Remove(ctx context.Context, code string) error
	Get(ctx context.Context, code string) (WatchlistEntry, error)
	List(ctx context.Context) ([]WatchlistEntry, error)
	ListActive(ctx context.Context) ([]WatchlistEntry, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// SignalStore persists trading signal history.
type SignalStore interface {
	InsertBatch(ctx context.Context, signals []Signal) error
	ListRecent(ctx context.Context, limit int) ([]Signal, error)
	ListByStrategy(ctx context.Context, strategy string, opts ListOpts) ([]Signal, error)
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Signal, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
