package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/seojun-park/kisbot/internal/domain"
)

// AccountHandler serves brokerage account HTTP endpoints.
type AccountHandler struct {
	positions domain.PositionProvider
	logger    *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given provider and logger.
func NewAccountHandler(positions domain.PositionProvider, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		positions: positions,
		logger:    logger,
	}
}

// Balance returns the account's cash and current holdings.
// GET /api/account/balance
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.positions.Balance(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			writeError(w, http.StatusTooManyRequests, "brokerage rate limit exceeded")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: balance failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch account balance")
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

// Holding returns the position held in a single stock.
// GET /api/account/holdings/{code}
func (h *AccountHandler) Holding(w http.ResponseWriter, r *http.Request) {
	code := pathParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing stock code")
		return
	}

	holding, err := h.positions.HoldingOf(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no holding for stock")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "brokerage rate limit exceeded")
		default:
			h.logger.ErrorContext(r.Context(), "handler: holding lookup failed",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "failed to fetch holding")
		}
		return
	}

	writeJSON(w, http.StatusOK, holding)
}
