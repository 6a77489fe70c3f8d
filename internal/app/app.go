// Package app provides the top-level application lifecycle for the trading
// bot. It wires together all dependencies (stores, caches, blob storage, the
// brokerage client, and notifications), assembles the engine, scheduler, and
// API server, and runs them until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seojun-park/kisbot/internal/config"
	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/engine"
	"github.com/seojun-park/kisbot/internal/registry"
	"github.com/seojun-park/kisbot/internal/scheduler"
	"github.com/seojun-park/kisbot/internal/selector"
	"github.com/seojun-park/kisbot/internal/server"
	"github.com/seojun-park/kisbot/internal/server/handler"
	"github.com/seojun-park/kisbot/internal/server/ws"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the API
// server and the configured schedule, and blocks until the context is
// cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Bool("paper", a.cfg.KIS.Paper),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// WebSocket hub. Only worth running when the server is enabled; the
	// engine treats a nil sink as "no live streaming".
	var hub *ws.Hub
	var sink domain.ReportSink
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(a.logger)
		sink = hub
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	reg := registry.New(deps.Strategies, a.logger)
	sel := selector.New(deps.Watchlist, deps.Broker, a.logger)

	eng := engine.New(engine.Deps{
		Strategies: deps.Strategies,
		Selector:   sel,
		Clock:      deps.Clock,
		Quotes:     deps.Broker,
		Charts:     deps.Broker,
		Positions:  deps.Broker,
		Broker:     deps.Broker,
		Signals:    deps.Signals,
		Reports:    deps.Reports,
		Notifier:   deps.Notifier,
		Sink:       sink,
		Archiver:   deps.Archiver,
		Locks:      deps.Locks,
	}, engine.Options{
		CallTimeout: a.cfg.Engine.CallTimeout.Duration,
		LockTTL:     a.cfg.Engine.LockTTL.Duration,
	}, a.logger)

	sched := scheduler.New(eng, deps.Clock.Location(), deps.Notifier, a.logger)
	if a.cfg.Scheduler.AutoStart {
		if err := a.startSchedule(sched); err != nil {
			return err
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	if a.cfg.Server.Enabled {
		handlers := server.Handlers{
			Health:    handler.NewHealthHandler(a.logger),
			Strategy:  handler.NewStrategyHandler(reg, a.logger),
			Watchlist: handler.NewWatchlistHandler(deps.Watchlist, a.logger),
			Trading:   handler.NewTradingHandler(eng, sched, deps.Clock, deps.Reports, a.logger),
			Market:    handler.NewMarketHandler(deps.Clock, deps.Broker, a.logger),
			Signals:   handler.NewSignalHandler(deps.Signals, a.logger),
			Account:   handler.NewAccountHandler(deps.Broker, a.logger),
		}
		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		}, handlers, hub, deps.Limiter, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	} else if !a.cfg.Scheduler.AutoStart {
		a.logger.WarnContext(ctx, "server disabled and scheduler not auto-started, bot will idle")
	}

	return g.Wait()
}

// startSchedule installs the configured schedule on boot.
func (a *App) startSchedule(sched *scheduler.Scheduler) error {
	var err error
	switch a.cfg.Scheduler.Mode {
	case scheduler.ModeDaily:
		err = sched.StartDaily(a.cfg.Scheduler.At)
	default:
		err = sched.StartInterval(a.cfg.Scheduler.Interval.Duration)
	}
	if err != nil {
		return fmt.Errorf("app: start scheduler: %w", err)
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
