package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/server/handler"
	"github.com/seojun-park/kisbot/internal/server/middleware"
	"github.com/seojun-park/kisbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// rate limiting even when a limiter is supplied.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Strategy  *handler.StrategyHandler
	Watchlist *handler.WatchlistHandler
	Trading   *handler.TradingHandler
	Market    *handler.MarketHandler
	Signals   *handler.SignalHandler
	Account   *handler.AccountHandler
}

// Server is the headless HTTP + WebSocket API server for the trading bot.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub. limiter may be nil when Redis is not
// configured.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required, registered outside /api).
	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)

	// Strategy endpoints.
	mux.HandleFunc("GET /api/strategies", handlers.Strategy.ListStrategies)
	mux.HandleFunc("POST /api/strategies", handlers.Strategy.CreateStrategy)
	mux.HandleFunc("GET /api/strategies/{id}", handlers.Strategy.GetStrategy)
	mux.HandleFunc("PUT /api/strategies/{id}", handlers.Strategy.UpdateStrategy)
	mux.HandleFunc("DELETE /api/strategies/{id}", handlers.Strategy.DeleteStrategy)
	mux.HandleFunc("POST /api/strategies/{id}/activate", handlers.Strategy.ActivateStrategy)
	mux.HandleFunc("POST /api/strategies/{id}/deactivate", handlers.Strategy.DeactivateStrategy)

	// Watchlist endpoints.
	mux.HandleFunc("GET /api/watchlist", handlers.Watchlist.ListWatchlist)
	mux.HandleFunc("POST /api/watchlist", handlers.Watchlist.AddToWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{code}", handlers.Watchlist.SetWatchlistActive)
	mux.HandleFunc("DELETE /api/watchlist/{code}", handlers.Watchlist.RemoveFromWatchlist)

	// Trading endpoints.
	mux.HandleFunc("POST /api/trading/execute", handlers.Trading.Execute)
	mux.HandleFunc("GET /api/trading/status", handlers.Trading.Status)
	mux.HandleFunc("POST /api/trading/scheduler/start", handlers.Trading.StartScheduler)
	mux.HandleFunc("POST /api/trading/scheduler/stop", handlers.Trading.StopScheduler)

	// Market endpoints.
	mux.HandleFunc("GET /api/market/status", handlers.Market.MarketStatus)
	mux.HandleFunc("GET /api/market/quote/{code}", handlers.Market.Quote)

	// Signal history.
	mux.HandleFunc("GET /api/signals", handlers.Signals.ListSignals)

	// Account endpoints.
	mux.HandleFunc("GET /api/account/balance", handlers.Account.Balance)
	mux.HandleFunc("GET /api/account/holdings/{code}", handlers.Account.Holding)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when configured.
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
