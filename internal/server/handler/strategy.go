package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/registry"
)

// StrategyService defines the methods that the strategy handler requires. It
// is declared locally so the handler package does not depend on the concrete
// registry implementation.
type StrategyService interface {
	Create(ctx context.Context, p registry.CreateParams) (domain.Strategy, error)
	Get(ctx context.Context, id string) (domain.Strategy, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Strategy, error)
	Update(ctx context.Context, id string, p registry.UpdateParams) (domain.Strategy, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) (domain.Strategy, error)
	Deactivate(ctx context.Context, id string) (domain.Strategy, error)
}

// StrategyHandler serves strategy CRUD and activation HTTP endpoints.
type StrategyHandler struct {
	strategies StrategyService
	logger     *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler with the given service and logger.
func NewStrategyHandler(strategies StrategyService, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{
		strategies: strategies,
		logger:     logger,
	}
}

// listStrategiesResponse wraps the list endpoint output with metadata.
type listStrategiesResponse struct {
	Strategies []domain.Strategy `json:"strategies"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// createStrategyRequest is the JSON body for creating a strategy.
type createStrategyRequest struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	Type          string               `json:"type"`
	Config        map[string]any       `json:"config"`
	SelectionMode domain.SelectionMode `json:"selection_mode"`
	AutoSelection domain.AutoSelection `json:"auto_selection"`
}

// updateStrategyRequest is the JSON body for updating a strategy. Absent
// fields leave the stored values untouched.
type updateStrategyRequest struct {
	Name          *string               `json:"name"`
	Description   *string               `json:"description"`
	Config        map[string]any        `json:"config"`
	SelectionMode *domain.SelectionMode `json:"selection_mode"`
	AutoSelection *domain.AutoSelection `json:"auto_selection"`
}

// ListStrategies returns registered strategies with pagination.
// GET /api/strategies?limit=50&offset=0
func (h *StrategyHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	strategies, err := h.strategies.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list strategies failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list strategies")
		return
	}

	if strategies == nil {
		strategies = []domain.Strategy{}
	}

	writeJSON(w, http.StatusOK, listStrategiesResponse{
		Strategies: strategies,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
}

// GetStrategy returns a single strategy by its ID.
// GET /api/strategies/{id}
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing strategy id")
		return
	}

	s, err := h.strategies.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "strategy not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get strategy failed",
			slog.String("strategy_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get strategy")
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// CreateStrategy registers a new, inactive strategy.
// POST /api/strategies
func (h *StrategyHandler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req createStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.strategies.Create(r.Context(), registry.CreateParams{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		Config:        req.Config,
		SelectionMode: req.SelectionMode,
		AutoSelection: req.AutoSelection,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownStrategyType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "strategy name already exists")
		default:
			h.logger.ErrorContext(r.Context(), "handler: create strategy failed",
				slog.String("name", req.Name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create strategy")
		}
		return
	}

	writeJSON(w, http.StatusCreated, s)
}

// UpdateStrategy applies partial changes to an existing strategy.
// PUT /api/strategies/{id}
func (h *StrategyHandler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing strategy id")
		return
	}

	var req updateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s, err := h.strategies.Update(r.Context(), id, registry.UpdateParams{
		Name:          req.Name,
		Description:   req.Description,
		Config:        req.Config,
		SelectionMode: req.SelectionMode,
		AutoSelection: req.AutoSelection,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "strategy not found")
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownStrategyType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "strategy name already exists")
		default:
			h.logger.ErrorContext(r.Context(), "handler: update strategy failed",
				slog.String("strategy_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to update strategy")
		}
		return
	}

	writeJSON(w, http.StatusOK, s)
}

// DeleteStrategy removes a strategy. Active strategies may be deleted; they
// simply stop participating in subsequent runs.
// DELETE /api/strategies/{id}
func (h *StrategyHandler) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing strategy id")
		return
	}

	if err := h.strategies.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "strategy not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete strategy failed",
			slog.String("strategy_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete strategy")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}

// ActivateStrategy marks a strategy active so it participates in runs.
// POST /api/strategies/{id}/activate
func (h *StrategyHandler) ActivateStrategy(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivateStrategy marks a strategy inactive.
// POST /api/strategies/{id}/deactivate
func (h *StrategyHandler) DeactivateStrategy(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *StrategyHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing strategy id")
		return
	}

	var (
		s   domain.Strategy
		err error
	)
	if active {
		s, err = h.strategies.Activate(r.Context(), id)
	} else {
		s, err = h.strategies.Deactivate(r.Context(), id)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "strategy not found")
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownStrategyType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "handler: set strategy active failed",
				slog.String("strategy_id", id),
				slog.Bool("active", active),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to update strategy")
		}
		return
	}

	writeJSON(w, http.StatusOK, s)
}
