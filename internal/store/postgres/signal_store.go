package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seojun-park/kisbot/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a SignalStore backed by the given pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalSelectCols = `id, strategy, action, code, quantity, price,
	order_type, status, order_no, error, created_at`

// InsertBatch inserts a batch of signals in one round trip.
func (s *SignalStore) InsertBatch(ctx context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO signals (
			id, strategy, action, code, quantity, price,
			order_type, status, order_no, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, sig := range signals {
		batch.Queue(query,
			sig.ID, sig.Strategy, string(sig.Action), sig.Code, sig.Quantity, sig.Price,
			sig.OrderType, string(sig.Status), sig.OrderNo, sig.Error, sig.CreatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range signals {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert signals: %w", err)
		}
	}
	return nil
}

// ListRecent returns the most recent signals, newest first.
func (s *SignalStore) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalSelectCols+` FROM signals ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent signals: %w", err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

// ListByStrategy returns a strategy's signals, newest first.
func (s *SignalStore) ListByStrategy(ctx context.Context, strategy string, opts domain.ListOpts) ([]domain.Signal, error) {
	query := `SELECT ` + signalSelectCols + ` FROM signals WHERE strategy = $1`
	args := []any{strategy}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals by strategy: %w", err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

// ListBefore returns signals older than cutoff, oldest first, for archival.
func (s *SignalStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Signal, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalSelectCols+` FROM signals WHERE created_at < $1 ORDER BY created_at LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals before %s: %w", cutoff, err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

// DeleteBefore removes signals older than cutoff and reports how many went.
func (s *SignalStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM signals WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete signals before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

func collectSignals(rows pgx.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		var (
			sig            domain.Signal
			action, status string
		)
		if err := rows.Scan(
			&sig.ID, &sig.Strategy, &action, &sig.Code, &sig.Quantity, &sig.Price,
			&sig.OrderType, &status, &sig.OrderNo, &sig.Error, &sig.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		sig.Action = domain.SignalAction(action)
		sig.Status = domain.SignalStatus(status)
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}
