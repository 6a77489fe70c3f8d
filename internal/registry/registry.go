package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/strategy"
)

// Registry manages the lifecycle of registered strategies. It validates
// strategy types against the factory so a strategy that cannot be
// instantiated is rejected at registration time, not at run time.
type Registry struct {
	store  domain.StrategyStore
	logger *slog.Logger
}

// New creates a Registry backed by the given store.
func New(store domain.StrategyStore, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With(slog.String("component", "registry")),
	}
}

// CreateParams are the caller-supplied fields for a new strategy.
type CreateParams struct {
	Name          string
	Description   string
	Type          string
	Config        map[string]any
	SelectionMode domain.SelectionMode
	AutoSelection domain.AutoSelection
}

// Create registers a new, inactive strategy. Type defaults are merged under
// the supplied config so stored configs are always complete.
func (r *Registry) Create(ctx context.Context, p CreateParams) (domain.Strategy, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return domain.Strategy{}, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
	}
	mode := p.SelectionMode
	if mode == "" {
		mode = domain.SelectionWatchlist
	}
	if !mode.Valid() {
		return domain.Strategy{}, fmt.Errorf("%w: selection mode %q", domain.ErrValidation, p.SelectionMode)
	}
	cfg, err := mergedConfig(p.Type, p.Config)
	if err != nil {
		return domain.Strategy{}, err
	}

	now := time.Now().UTC()
	s := domain.Strategy{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   p.Description,
		Type:          p.Type,
		Config:        cfg,
		Active:        false,
		SelectionMode: mode,
		AutoSelection: p.AutoSelection,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.store.Create(ctx, s); err != nil {
		return domain.Strategy{}, fmt.Errorf("create strategy: %w", err)
	}

	r.logger.Info("strategy registered",
		slog.String("id", s.ID),
		slog.String("name", s.Name),
		slog.String("type", s.Type),
	)
	return s, nil
}

// Get returns the strategy with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (domain.Strategy, error) {
	return r.store.GetByID(ctx, id)
}

// List returns registered strategies.
func (r *Registry) List(ctx context.Context, opts domain.ListOpts) ([]domain.Strategy, error) {
	return r.store.List(ctx, opts)
}

// ListActive returns only active strategies.
func (r *Registry) ListActive(ctx context.Context) ([]domain.Strategy, error) {
	return r.store.ListActive(ctx)
}

// UpdateParams are the mutable fields of a strategy. Nil pointers leave the
// current value untouched; a non-nil Config replaces the stored one after
// re-merging type defaults.
type UpdateParams struct {
	Name          *string
	Description   *string
	Config        map[string]any
	SelectionMode *domain.SelectionMode
	AutoSelection *domain.AutoSelection
}

// Update applies the given changes to an existing strategy.
func (r *Registry) Update(ctx context.Context, id string, p UpdateParams) (domain.Strategy, error) {
	s, err := r.store.GetByID(ctx, id)
	if err != nil {
		return domain.Strategy{}, err
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return domain.Strategy{}, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
		}
		s.Name = name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.SelectionMode != nil {
		if !p.SelectionMode.Valid() {
			return domain.Strategy{}, fmt.Errorf("%w: selection mode %q", domain.ErrValidation, *p.SelectionMode)
		}
		s.SelectionMode = *p.SelectionMode
	}
	if p.AutoSelection != nil {
		s.AutoSelection = *p.AutoSelection
	}
	if p.Config != nil {
		cfg, err := mergedConfig(s.Type, p.Config)
		if err != nil {
			return domain.Strategy{}, err
		}
		s.Config = cfg
	}
	s.UpdatedAt = time.Now().UTC()

	if err := r.store.Update(ctx, s); err != nil {
		return domain.Strategy{}, fmt.Errorf("update strategy: %w", err)
	}
	return s, nil
}

// Delete removes a strategy. Deleting an active strategy is allowed; it
// simply stops being picked up on the next run.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	r.logger.Info("strategy deleted", slog.String("id", id))
	return nil
}

// Activate marks a strategy active after re-checking that its type still
// instantiates.
func (r *Registry) Activate(ctx context.Context, id string) (domain.Strategy, error) {
	s, err := r.store.GetByID(ctx, id)
	if err != nil {
		return domain.Strategy{}, err
	}
	if _, err := strategy.New(s.Type, s.Config, r.logger); err != nil {
		return domain.Strategy{}, err
	}
	if err := r.store.SetActive(ctx, id, true); err != nil {
		return domain.Strategy{}, fmt.Errorf("activate strategy: %w", err)
	}
	s.Active = true
	r.logger.Info("strategy activated", slog.String("id", id), slog.String("name", s.Name))
	return s, nil
}

// Deactivate marks a strategy inactive.
func (r *Registry) Deactivate(ctx context.Context, id string) (domain.Strategy, error) {
	s, err := r.store.GetByID(ctx, id)
	if err != nil {
		return domain.Strategy{}, err
	}
	if err := r.store.SetActive(ctx, id, false); err != nil {
		return domain.Strategy{}, fmt.Errorf("deactivate strategy: %w", err)
	}
	s.Active = false
	r.logger.Info("strategy deactivated", slog.String("id", id), slog.String("name", s.Name))
	return s, nil
}

// mergedConfig validates typ and layers the supplied config over the type's
// defaults.
func mergedConfig(typ string, cfg map[string]any) (map[string]any, error) {
	defaults := strategy.Defaults(typ)
	if defaults == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategyType, typ)
	}
	for k, v := range cfg {
		defaults[k] = v
	}
	return defaults, nil
}
