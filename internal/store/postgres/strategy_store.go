package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seojun-park/kisbot/internal/domain"
)

// StrategyStore implements domain.StrategyStore using PostgreSQL.
type StrategyStore struct {
	pool *pgxpool.Pool
}

// NewStrategyStore creates a StrategyStore backed by the given pool.
func NewStrategyStore(pool *pgxpool.Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

const strategySelectCols = `id, name, description, type, config, active,
	selection_mode, auto_selection, created_at, updated_at`

func scanStrategy(row pgx.Row) (domain.Strategy, error) {
	var (
		s          domain.Strategy
		mode       string
		configRaw  []byte
		autoSelRaw []byte
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Type, &configRaw, &s.Active,
		&mode, &autoSelRaw, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Strategy{}, err
	}
	s.SelectionMode = domain.SelectionMode(mode)
	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &s.Config); err != nil {
			return domain.Strategy{}, fmt.Errorf("decode config: %w", err)
		}
	}
	if len(autoSelRaw) > 0 {
		if err := json.Unmarshal(autoSelRaw, &s.AutoSelection); err != nil {
			return domain.Strategy{}, fmt.Errorf("decode auto_selection: %w", err)
		}
	}
	return s, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new strategy.
func (s *StrategyStore) Create(ctx context.Context, strat domain.Strategy) error {
	config, err := json.Marshal(strat.Config)
	if err != nil {
		return fmt.Errorf("postgres: encode config: %w", err)
	}
	autoSel, err := json.Marshal(strat.AutoSelection)
	if err != nil {
		return fmt.Errorf("postgres: encode auto_selection: %w", err)
	}

	const query = `
		INSERT INTO strategies (
			id, name, description, type, config, active,
			selection_mode, auto_selection, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.pool.Exec(ctx, query,
		strat.ID, strat.Name, strat.Description, strat.Type, config, strat.Active,
		string(strat.SelectionMode), autoSel, strat.CreatedAt, strat.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: strategy %q: %w", strat.Name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: create strategy %s: %w", strat.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of a strategy.
func (s *StrategyStore) Update(ctx context.Context, strat domain.Strategy) error {
	config, err := json.Marshal(strat.Config)
	if err != nil {
		return fmt.Errorf("postgres: encode config: %w", err)
	}
	autoSel, err := json.Marshal(strat.AutoSelection)
	if err != nil {
		return fmt.Errorf("postgres: encode auto_selection: %w", err)
	}

	const query = `
		UPDATE strategies SET
			name           = $2,
			description    = $3,
			config         = $4,
			selection_mode = $5,
			auto_selection = $6,
			updated_at     = $7
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		strat.ID, strat.Name, strat.Description, config,
		string(strat.SelectionMode), autoSel, strat.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: strategy %q: %w", strat.Name, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: update strategy %s: %w", strat.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a strategy.
func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete strategy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a strategy by its ID.
func (s *StrategyStore) GetByID(ctx context.Context, id string) (domain.Strategy, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+strategySelectCols+` FROM strategies WHERE id = $1`, id)

	strat, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Strategy{}, domain.ErrNotFound
		}
		return domain.Strategy{}, fmt.Errorf("postgres: get strategy %s: %w", id, err)
	}
	return strat, nil
}

// GetByName retrieves a strategy by its unique name.
func (s *StrategyStore) GetByName(ctx context.Context, name string) (domain.Strategy, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+strategySelectCols+` FROM strategies WHERE name = $1`, name)

	strat, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Strategy{}, domain.ErrNotFound
		}
		return domain.Strategy{}, fmt.Errorf("postgres: get strategy %q: %w", name, err)
	}
	return strat, nil
}

// List returns strategies ordered by creation time.
func (s *StrategyStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Strategy, error) {
	query := `SELECT ` + strategySelectCols + ` FROM strategies ORDER BY created_at`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list strategies: %w", err)
	}
	defer rows.Close()

	return collectStrategies(rows)
}

// ListActive returns strategies marked active.
func (s *StrategyStore) ListActive(ctx context.Context) ([]domain.Strategy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strategySelectCols+` FROM strategies WHERE active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active strategies: %w", err)
	}
	defer rows.Close()

	return collectStrategies(rows)
}

// SetActive flips the active flag.
func (s *StrategyStore) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE strategies SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("postgres: set strategy %s active=%t: %w", id, active, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectStrategies(rows pgx.Rows) ([]domain.Strategy, error) {
	var strategies []domain.Strategy
	for rows.Next() {
		strat, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan strategy: %w", err)
		}
		strategies = append(strategies, strat)
	}
	return strategies, rows.Err()
}
