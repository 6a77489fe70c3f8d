package handler

import (
	"log/slog"
	"net/http"

	"github.com/seojun-park/kisbot/internal/domain"
)

// SignalHandler serves the persisted signal history.
type SignalHandler struct {
	signals domain.SignalStore
	logger  *slog.Logger
}

// NewSignalHandler creates a SignalHandler with the given store and logger.
func NewSignalHandler(signals domain.SignalStore, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		logger:  logger,
	}
}

// listSignalsResponse wraps the signal history output.
type listSignalsResponse struct {
	Signals []domain.Signal `json:"signals"`
}

// ListSignals returns recent signals, newest first. When the strategy query
// parameter is set, only that strategy's signals are returned.
// GET /api/signals?strategy=golden-cross&limit=50&offset=0
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		signals []domain.Signal
		err     error
	)
	if name := r.URL.Query().Get("strategy"); name != "" {
		signals, err = h.signals.ListByStrategy(r.Context(), name, opts)
	} else {
		signals, err = h.signals.ListRecent(r.Context(), opts.Limit)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list signals failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}

	if signals == nil {
		signals = []domain.Signal{}
	}

	writeJSON(w, http.StatusOK, listSignalsResponse{Signals: signals})
}
