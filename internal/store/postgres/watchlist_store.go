package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seojun-park/kisbot/internal/domain"
)

// WatchlistStore implements domain.WatchlistStore using PostgreSQL. The
// position column preserves insertion order.
type WatchlistStore struct {
	pool *pgxpool.Pool
}

// NewWatchlistStore creates a WatchlistStore backed by the given pool.
func NewWatchlistStore(pool *pgxpool.Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

// Add inserts a watchlist entry.
func (s *WatchlistStore) Add(ctx context.Context, e domain.WatchlistEntry) error {
	const query = `
		INSERT INTO watchlist (code, name, active, added_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.pool.Exec(ctx, query, e.Code, e.Name, e.Active, e.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: watchlist %s: %w", e.Code, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: add watchlist %s: %w", e.Code, err)
	}
	return nil
}

// Remove deletes a watchlist entry.
func (s *WatchlistStore) Remove(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM watchlist WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("postgres: remove watchlist %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a single watchlist entry.
func (s *WatchlistStore) Get(ctx context.Context, code string) (domain.WatchlistEntry, error) {
	var e domain.WatchlistEntry
	err := s.pool.QueryRow(ctx,
		`SELECT code, name, active, added_at FROM watchlist WHERE code = $1`, code).
		Scan(&e.Code, &e.Name, &e.Active, &e.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WatchlistEntry{}, domain.ErrNotFound
		}
		return domain.WatchlistEntry{}, fmt.Errorf("postgres: get watchlist %s: %w", code, err)
	}
	return e, nil
}

// List returns all watchlist entries in insertion order.
func (s *WatchlistStore) List(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return s.list(ctx, `SELECT code, name, active, added_at FROM watchlist ORDER BY position`)
}

// ListActive returns active watchlist entries in insertion order.
func (s *WatchlistStore) ListActive(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return s.list(ctx, `SELECT code, name, active, added_at FROM watchlist WHERE active ORDER BY position`)
}

// SetActive flips the active flag of an entry.
func (s *WatchlistStore) SetActive(ctx context.Context, code string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE watchlist SET active = $2 WHERE code = $1`, code, active)
	if err != nil {
		return fmt.Errorf("postgres: set watchlist %s active=%t: %w", code, active, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *WatchlistStore) list(ctx context.Context, query string) ([]domain.WatchlistEntry, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.Code, &e.Name, &e.Active, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan watchlist: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
