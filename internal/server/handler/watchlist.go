package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
)

// WatchlistHandler serves watchlist HTTP endpoints.
type WatchlistHandler struct {
	watchlist domain.WatchlistStore
	logger    *slog.Logger
}

// NewWatchlistHandler creates a WatchlistHandler with the given store and logger.
func NewWatchlistHandler(watchlist domain.WatchlistStore, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		watchlist: watchlist,
		logger:    logger,
	}
}

// listWatchlistResponse wraps the watchlist in insertion order.
type listWatchlistResponse struct {
	Entries []domain.WatchlistEntry `json:"entries"`
}

// addWatchlistRequest is the JSON body for adding a stock to the watchlist.
type addWatchlistRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// setWatchlistActiveRequest is the JSON body for toggling an entry.
type setWatchlistActiveRequest struct {
	Active bool `json:"active"`
}

// ListWatchlist returns all watchlist entries in insertion order.
// GET /api/watchlist
func (h *WatchlistHandler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.watchlist.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list watchlist failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list watchlist")
		return
	}

	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}

	writeJSON(w, http.StatusOK, listWatchlistResponse{Entries: entries})
}

// AddToWatchlist pins a stock for strategies using watchlist selection.
// POST /api/watchlist
func (h *WatchlistHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	entry := domain.WatchlistEntry{
		Code:    code,
		Name:    strings.TrimSpace(req.Name),
		Active:  true,
		AddedAt: time.Now().UTC(),
	}

	if err := h.watchlist.Add(r.Context(), entry); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "stock already in watchlist")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: add to watchlist failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to add to watchlist")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// RemoveFromWatchlist removes a stock from the watchlist.
// DELETE /api/watchlist/{code}
func (h *WatchlistHandler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	code := pathParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing stock code")
		return
	}

	if err := h.watchlist.Remove(r.Context(), code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stock not in watchlist")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: remove from watchlist failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove from watchlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "removed",
		"code":   code,
	})
}

// SetWatchlistActive toggles whether an entry participates in selection
// without removing it.
// PUT /api/watchlist/{code}
func (h *WatchlistHandler) SetWatchlistActive(w http.ResponseWriter, r *http.Request) {
	code := pathParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing stock code")
		return
	}

	var req setWatchlistActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.watchlist.SetActive(r.Context(), code, req.Active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stock not in watchlist")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set watchlist active failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update watchlist entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "updated",
		"code":   code,
		"active": req.Active,
	})
}
