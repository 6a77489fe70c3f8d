package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/strategy"
)

const (
	defaultCallTimeout = 10 * time.Second

	runLockKey     = "kisbot:run"
	defaultLockTTL = 5 * time.Minute
)

// Clock answers trading-session questions. Implemented by marketclock.Clock.
type Clock interface {
	IsOpen(t time.Time) bool
	NextOpen(t time.Time) time.Time
}

// Resolver turns a strategy's selection settings into stock codes.
type Resolver interface {
	Resolve(ctx context.Context, strat domain.Strategy) ([]string, error)
}

// Deps are the collaborators an Engine needs. Signals, Reports, Notifier,
// Sink, Archiver and Locks may be nil; the engine degrades gracefully
// without them.
type Deps struct {
	Strategies domain.StrategyStore
	Selector   Resolver
	Clock      Clock
	Quotes     domain.QuoteProvider
	Charts     domain.ChartProvider
	Positions  domain.PositionProvider
	Broker     domain.Broker
	Signals    domain.SignalStore
	Reports    domain.ReportCache
	Notifier   domain.Notifier
	Sink       domain.ReportSink
	Archiver   domain.SignalArchiver
	Locks      domain.LockManager
}

// Options tune engine behaviour.
type Options struct {
	// CallTimeout bounds each external call made while evaluating one stock.
	CallTimeout time.Duration
	// LockTTL bounds how long the distributed run lock may be held.
	LockTTL time.Duration
	// Factory overrides strategy instantiation; defaults to strategy.New.
	Factory strategy.Factory
}

// Engine executes one trading run at a time: it resolves each active
// strategy's universe, evaluates it against live quotes, and submits the
// resulting orders. A run already in progress rejects new runs instead of
// queueing them.
type Engine struct {
	deps        Deps
	factory     strategy.Factory
	callTimeout time.Duration
	lockTTL     time.Duration
	logger      *slog.Logger

	running atomic.Bool

	mu        sync.Mutex
	instances map[string]cachedInstance
}

// cachedInstance keeps a live strategy instance (and its accumulated price
// history) across runs until the stored config changes.
type cachedInstance struct {
	strat     strategy.Strategy
	updatedAt time.Time
}

// New creates an Engine.
func New(deps Deps, opts Options, logger *slog.Logger) *Engine {
	factory := opts.Factory
	if factory == nil {
		factory = strategy.New
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Engine{
		deps:        deps,
		factory:     factory,
		callTimeout: timeout,
		lockTTL:     lockTTL,
		instances:   make(map[string]cachedInstance),
		logger:      logger.With(slog.String("component", "engine")),
	}
}

// Running reports whether a run is currently in flight.
func (e *Engine) Running() bool { return e.running.Load() }

// RunOnce executes a single trading run. It returns ErrRunInProgress when a
// run is already in flight (locally or, when a lock manager is configured,
// on another instance) and ErrMarketClosed outside trading hours. The
// market-closed report is still recorded so status queries see it.
func (e *Engine) RunOnce(ctx context.Context) (domain.RunReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		return domain.RunReport{}, domain.ErrRunInProgress
	}
	defer e.running.Store(false)

	if e.deps.Locks != nil {
		unlock, err := e.deps.Locks.Acquire(ctx, runLockKey, e.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return domain.RunReport{}, domain.ErrRunInProgress
			}
			return domain.RunReport{}, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("release run lock", slog.String("error", err.Error()))
			}
		}()
	}

	now := time.Now()
	report := domain.RunReport{Timestamp: now.UTC()}

	active, err := e.deps.Strategies.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active strategies: %w", err)
	}
	if len(active) == 0 {
		report.Message = "no active strategies"
		e.finish(ctx, report)
		return report, nil
	}

	if !e.deps.Clock.IsOpen(now) {
		report.Message = fmt.Sprintf("market is closed, next open %s",
			e.deps.Clock.NextOpen(now).Format(time.RFC3339))
		e.finish(ctx, report)
		return report, domain.ErrMarketClosed
	}

	balance, err := e.deps.Positions.Balance(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch account balance: %w", err)
	}
	acct := newAccountState(balance)

	for _, strat := range active {
		signals, errs := e.evaluateStrategy(ctx, strat, acct)
		report.Signals = append(report.Signals, signals...)
		report.Errors = append(report.Errors, errs...)
		if ctx.Err() != nil {
			break
		}
	}

	e.logger.Info("run complete",
		slog.Int("strategies", len(active)),
		slog.Int("signals", len(report.Signals)),
		slog.Int("errors", len(report.Errors)),
	)
	e.finish(ctx, report)
	return report, nil
}

// evaluateStrategy runs one strategy over its resolved universe. All
// failures are captured as StrategyErrors; nothing propagates to the
// caller so sibling strategies keep running.
func (e *Engine) evaluateStrategy(ctx context.Context, strat domain.Strategy, acct *accountState) ([]domain.Signal, []domain.StrategyError) {
	inst, err := e.instance(strat)
	if err != nil {
		return nil, []domain.StrategyError{{Strategy: strat.Name, Message: err.Error()}}
	}

	codes, err := e.deps.Selector.Resolve(ctx, strat)
	if err != nil {
		return nil, []domain.StrategyError{{Strategy: strat.Name, Message: fmt.Sprintf("resolve universe: %v", err)}}
	}
	if len(codes) == 0 {
		e.logger.Debug("empty universe", slog.String("strategy", strat.Name))
		return nil, nil
	}

	var (
		signals []domain.Signal
		errs    []domain.StrategyError
	)
	for _, code := range codes {
		if ctx.Err() != nil {
			break
		}
		sigs, err := e.evaluateStock(ctx, strat, inst, code, acct)
		if err != nil {
			errs = append(errs, domain.StrategyError{Strategy: strat.Name, Code: code, Message: err.Error()})
			continue
		}
		signals = append(signals, sigs...)
	}
	return signals, errs
}

// evaluateStock checks one stock for a sell and then a buy decision and
// submits the resulting orders.
func (e *Engine) evaluateStock(ctx context.Context, strat domain.Strategy, inst strategy.Strategy, code string, acct *accountState) ([]domain.Signal, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	if warmer, ok := inst.(strategy.Warmer); ok {
		if err := warmer.Warmup(callCtx, code, e.deps.Charts); err != nil {
			return nil, err
		}
	}

	data, err := e.deps.Quotes.CurrentData(callCtx, code)
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}

	var signals []domain.Signal

	holding := acct.holding(code)
	if holding.Quantity > 0 {
		sell, err := inst.ShouldSell(callCtx, data, holding)
		if err != nil {
			return nil, fmt.Errorf("sell check: %w", err)
		}
		if sell {
			sellQty := inst.SellQuantity(holding)
			if sellQty <= 0 {
				return signals, nil
			}
			sellPrice := inst.SellPrice(data)
			sig := e.submit(ctx, strat, domain.OrderRequest{
				Code:      code,
				Side:      domain.OrderSideSell,
				Quantity:  sellQty,
				Price:     sellPrice,
				OrderType: inst.OrderType(),
			})
			if sig.Status == domain.SignalStatusExecuted {
				acct.settleSell(code, sellQty, sellPrice)
			}
			return append(signals, sig), nil
		}
	}

	buy, err := inst.ShouldBuy(callCtx, data)
	if err != nil {
		return nil, fmt.Errorf("buy check: %w", err)
	}
	if !buy {
		return signals, nil
	}
	buyPrice := inst.BuyPrice(data)
	qty := inst.BuyQuantity(acct.cash(), buyPrice)
	if qty <= 0 {
		e.logger.Debug("buy skipped, allocation affords no shares",
			slog.String("strategy", strat.Name),
			slog.String("code", code),
			slog.Float64("price", buyPrice),
		)
		return signals, nil
	}

	sig := e.submit(ctx, strat, domain.OrderRequest{
		Code:      code,
		Side:      domain.OrderSideBuy,
		Quantity:  qty,
		Price:     buyPrice,
		OrderType: inst.OrderType(),
	})
	if sig.Status == domain.SignalStatusExecuted {
		acct.settleBuy(code, qty, buyPrice)
	}
	return append(signals, sig), nil
}

// submit sends the order to the broker and records the outcome as a Signal.
// Broker failures become failed signals, not errors.
func (e *Engine) submit(ctx context.Context, strat domain.Strategy, req domain.OrderRequest) domain.Signal {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	action := domain.SignalActionBuy
	if req.Side == domain.OrderSideSell {
		action = domain.SignalActionSell
	}
	sig := domain.Signal{
		ID:        uuid.NewString(),
		Strategy:  strat.Name,
		Action:    action,
		Code:      req.Code,
		Quantity:  req.Quantity,
		Price:     req.Price,
		OrderType: req.OrderType,
		CreatedAt: time.Now().UTC(),
	}

	res, err := e.deps.Broker.SubmitOrder(callCtx, req)
	if err != nil {
		sig.Status = domain.SignalStatusFailed
		sig.Error = err.Error()
		e.logger.Warn("order failed",
			slog.String("strategy", strat.Name),
			slog.String("code", req.Code),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
		return sig
	}

	sig.Status = domain.SignalStatusExecuted
	sig.OrderNo = res.OrderNo
	e.logger.Info("order executed",
		slog.String("strategy", strat.Name),
		slog.String("code", req.Code),
		slog.String("action", string(action)),
		slog.Int64("quantity", req.Quantity),
		slog.Float64("price", req.Price),
		slog.String("order_no", res.OrderNo),
	)
	return sig
}

// instance returns a cached strategy instance, rebuilding it when the
// stored strategy changed since it was cached. Keeping instances alive
// between runs preserves their price history.
func (e *Engine) instance(strat domain.Strategy) (strategy.Strategy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.instances[strat.ID]; ok && c.updatedAt.Equal(strat.UpdatedAt) {
		return c.strat, nil
	}
	inst, err := e.factory(strat.Type, strat.Config, e.logger)
	if err != nil {
		return nil, err
	}
	e.instances[strat.ID] = cachedInstance{strat: inst, updatedAt: strat.UpdatedAt}
	return inst, nil
}

// finish persists and publishes a completed report. Everything here is best
// effort; failures are logged and never fail the run.
func (e *Engine) finish(ctx context.Context, report domain.RunReport) {
	ctx = context.WithoutCancel(ctx)

	if e.deps.Signals != nil && len(report.Signals) > 0 {
		if err := e.deps.Signals.InsertBatch(ctx, report.Signals); err != nil {
			e.logger.Warn("persist signals", slog.String("error", err.Error()))
		}
	}
	if e.deps.Reports != nil {
		if err := e.deps.Reports.SetLastReport(ctx, report); err != nil {
			e.logger.Warn("cache report", slog.String("error", err.Error()))
		}
	}
	if e.deps.Archiver != nil && len(report.Signals) > 0 {
		if err := e.deps.Archiver.ArchiveSignals(ctx, report.Timestamp, report.Signals); err != nil {
			e.logger.Warn("archive signals", slog.String("error", err.Error()))
		}
	}
	if e.deps.Notifier != nil {
		e.notify(ctx, report)
	}
	if e.deps.Sink != nil {
		e.deps.Sink.PublishReport(report)
	}
}

// notify emits one event per signal plus a run summary.
func (e *Engine) notify(ctx context.Context, report domain.RunReport) {
	for _, sig := range report.Signals {
		event := "order_executed"
		fields := map[string]string{
			"strategy": sig.Strategy,
			"action":   string(sig.Action),
			"code":     sig.Code,
			"quantity": fmt.Sprintf("%d", sig.Quantity),
			"price":    fmt.Sprintf("%.0f", sig.Price),
		}
		if sig.Status == domain.SignalStatusFailed {
			event = "order_failed"
			fields["error"] = sig.Error
		} else {
			fields["order_no"] = sig.OrderNo
		}
		if err := e.deps.Notifier.Notify(ctx, event, fields); err != nil {
			e.logger.Warn("notify", slog.String("event", event), slog.String("error", err.Error()))
		}
	}

	summary := map[string]string{
		"signals": fmt.Sprintf("%d", len(report.Signals)),
		"errors":  fmt.Sprintf("%d", len(report.Errors)),
	}
	if err := e.deps.Notifier.Notify(ctx, "run_completed", summary); err != nil {
		e.logger.Warn("notify", slog.String("event", "run_completed"), slog.String("error", err.Error()))
	}
}
