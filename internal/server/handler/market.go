package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
)

// MarketHandler serves market session and quote HTTP endpoints.
type MarketHandler struct {
	clock  MarketClock
	quotes domain.QuoteProvider
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given clock and quote
// provider.
func NewMarketHandler(clock MarketClock, quotes domain.QuoteProvider, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		clock:  clock,
		quotes: quotes,
		logger: logger,
	}
}

// MarketStatus reports whether the exchange is currently open.
// GET /api/market/status
func (h *MarketHandler) MarketStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clock.Status(time.Now()))
}

// Quote returns a real-time quote snapshot for a stock.
// GET /api/market/quote/{code}
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	code := pathParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing stock code")
		return
	}

	data, err := h.quotes.CurrentData(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "stock not found")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "brokerage rate limit exceeded")
		default:
			h.logger.ErrorContext(r.Context(), "handler: quote failed",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "failed to fetch quote")
		}
		return
	}

	writeJSON(w, http.StatusOK, data)
}
