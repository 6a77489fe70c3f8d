package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/scheduler"
)

// TradingService defines what the trading handler needs from the engine.
type TradingService interface {
	RunOnce(ctx context.Context) (domain.RunReport, error)
	Running() bool
}

// SchedulerService defines what the trading handler needs from the scheduler.
type SchedulerService interface {
	StartInterval(interval time.Duration) error
	StartDaily(at string) error
	Stop()
	Status() domain.SchedulerStatus
}

// MarketClock reports market session state.
type MarketClock interface {
	Status(t time.Time) domain.MarketStatus
}

// TradingHandler serves trading execution and scheduler HTTP endpoints.
type TradingHandler struct {
	engine    TradingService
	scheduler SchedulerService
	clock     MarketClock
	reports   domain.ReportCache // may be nil when Redis is not configured
	logger    *slog.Logger
}

// NewTradingHandler creates a TradingHandler.
func NewTradingHandler(engine TradingService, sched SchedulerService, clock MarketClock, reports domain.ReportCache, logger *slog.Logger) *TradingHandler {
	return &TradingHandler{
		engine:    engine,
		scheduler: sched,
		clock:     clock,
		reports:   reports,
		logger:    logger,
	}
}

// tradingStatusResponse aggregates everything a dashboard polls for.
type tradingStatusResponse struct {
	Running    bool                   `json:"running"`
	Scheduler  domain.SchedulerStatus `json:"scheduler"`
	Market     domain.MarketStatus    `json:"market"`
	LastReport *domain.RunReport      `json:"last_report,omitempty"`
}

// startSchedulerRequest is the JSON body for installing a schedule.
type startSchedulerRequest struct {
	Mode     string `json:"mode"`     // "interval" or "daily"
	Interval string `json:"interval"` // Go duration, e.g. "30s"
	At       string `json:"at"`       // "HH:MM" local exchange time
}

// Execute triggers one trading run synchronously and returns the run report.
// POST /api/trading/execute
func (h *TradingHandler) Execute(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunOnce(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			writeError(w, http.StatusConflict, "a trading run is already in progress")
		case errors.Is(err, domain.ErrMarketClosed):
			// The report carries the next-open timestamp in its message.
			writeJSON(w, http.StatusUnprocessableEntity, report)
		default:
			h.logger.ErrorContext(r.Context(), "handler: trading run failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "trading run failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Status returns engine, scheduler, and market state plus the last run report
// when one is cached.
// GET /api/trading/status
func (h *TradingHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := tradingStatusResponse{
		Running:   h.engine.Running(),
		Scheduler: h.scheduler.Status(),
		Market:    h.clock.Status(time.Now()),
	}

	if h.reports != nil {
		report, err := h.reports.LastReport(r.Context())
		switch {
		case err == nil:
			resp.LastReport = &report
		case errors.Is(err, domain.ErrNotFound):
			// No run yet.
		default:
			h.logger.WarnContext(r.Context(), "handler: last report lookup failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartScheduler installs a recurring trading schedule, replacing any
// existing one.
// POST /api/trading/scheduler/start
func (h *TradingHandler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	var req startSchedulerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var err error
	switch req.Mode {
	case scheduler.ModeInterval:
		var interval time.Duration
		interval, err = time.ParseDuration(req.Interval)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid interval: "+err.Error())
			return
		}
		err = h.scheduler.StartInterval(interval)
	case scheduler.ModeDaily:
		err = h.scheduler.StartDaily(req.At)
	default:
		writeError(w, http.StatusBadRequest, `mode must be "interval" or "daily"`)
		return
	}

	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: start scheduler failed",
			slog.String("mode", req.Mode),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to start scheduler")
		return
	}

	writeJSON(w, http.StatusOK, h.scheduler.Status())
}

// StopScheduler removes the installed schedule. Stopping an idle scheduler
// is a no-op.
// POST /api/trading/scheduler/stop
func (h *TradingHandler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	writeJSON(w, http.StatusOK, h.scheduler.Status())
}
