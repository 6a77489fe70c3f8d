package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-park/kisbot/internal/domain"
	"github.com/seojun-park/kisbot/internal/strategy"
)

// --- fakes ---

type fakeStrategyStore struct {
	active []domain.Strategy
	err    error
}

func (f *fakeStrategyStore) Create(context.Context, domain.Strategy) error { return nil }
func (f *fakeStrategyStore) Update(context.Context, domain.Strategy) error { return nil }
func (f *fakeStrategyStore) Delete(context.Context, string) error          { return nil }
func (f *fakeStrategyStore) GetByID(context.Context, string) (domain.Strategy, error) {
	return domain.Strategy{}, domain.ErrNotFound
}
func (f *fakeStrategyStore) GetByName(context.Context, string) (domain.Strategy, error) {
	return domain.Strategy{}, domain.ErrNotFound
}
func (f *fakeStrategyStore) List(context.Context, domain.ListOpts) ([]domain.Strategy, error) {
	return f.active, f.err
}
func (f *fakeStrategyStore) ListActive(context.Context) ([]domain.Strategy, error) {
	return f.active, f.err
}
func (f *fakeStrategyStore) SetActive(context.Context, string, bool) error { return nil }

type fakeResolver struct {
	codes map[string][]string // strategy name -> universe
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, s domain.Strategy) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.codes[s.Name], nil
}

type fakeClock struct {
	open bool
}

func (f *fakeClock) IsOpen(time.Time) bool { return f.open }
func (f *fakeClock) NextOpen(t time.Time) time.Time {
	return t.Add(time.Hour)
}

type fakeQuotes struct {
	prices map[string]float64
}

func (f *fakeQuotes) CurrentData(_ context.Context, code string) (domain.MarketData, error) {
	p, ok := f.prices[code]
	if !ok {
		return domain.MarketData{}, domain.ErrNotFound
	}
	return domain.MarketData{Code: code, Price: p}, nil
}

type fakePositions struct {
	balance domain.AccountBalance
}

func (f *fakePositions) Balance(context.Context) (domain.AccountBalance, error) {
	return f.balance, nil
}
func (f *fakePositions) HoldingOf(_ context.Context, code string) (domain.Holding, error) {
	for _, h := range f.balance.Holdings {
		if h.Code == code {
			return h, nil
		}
	}
	return domain.Holding{}, domain.ErrNotFound
}

type fakeBroker struct {
	mu     sync.Mutex
	orders []domain.OrderRequest
	err    error
	block  chan struct{} // closed to release a blocked SubmitOrder
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.OrderResult{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.OrderResult{}, f.err
	}
	f.orders = append(f.orders, req)
	return domain.OrderResult{OrderNo: "0000012345"}, nil
}

func (f *fakeBroker) submitted() []domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderRequest(nil), f.orders...)
}

type fakeSignalStore struct {
	mu       sync.Mutex
	inserted []domain.Signal
}

func (f *fakeSignalStore) InsertBatch(_ context.Context, sigs []domain.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, sigs...)
	return nil
}
func (f *fakeSignalStore) ListRecent(context.Context, int) ([]domain.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) ListByStrategy(context.Context, string, domain.ListOpts) ([]domain.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) ListBefore(context.Context, time.Time, int) ([]domain.Signal, error) {
	return nil, nil
}
func (f *fakeSignalStore) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type fakeReportCache struct {
	mu   sync.Mutex
	last *domain.RunReport
}

func (f *fakeReportCache) SetLastReport(_ context.Context, r domain.RunReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = &r
	return nil
}
func (f *fakeReportCache) LastReport(context.Context) (domain.RunReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return domain.RunReport{}, domain.ErrNotFound
	}
	return *f.last, nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return nil, domain.ErrLockHeld
}

// stubStrategy drives deterministic decisions in engine tests.
type stubStrategy struct {
	name       string
	buy        bool
	sell       bool
	allocation float64
	buyErr     error

	// Zero values fall back to the current market price / whole holding.
	buyPrice  float64
	sellPrice float64
	maxSell   int64
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) ShouldBuy(context.Context, domain.MarketData) (bool, error) {
	return s.buy, s.buyErr
}
func (s *stubStrategy) ShouldSell(_ context.Context, _ domain.MarketData, h domain.Holding) (bool, error) {
	return s.sell && h.Quantity > 0, nil
}
func (s *stubStrategy) BuyQuantity(cash, price float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(cash * s.allocation / price)
}
func (s *stubStrategy) BuyPrice(data domain.MarketData) float64 {
	if s.buyPrice > 0 {
		return s.buyPrice
	}
	return data.Price
}
func (s *stubStrategy) SellPrice(data domain.MarketData) float64 {
	if s.sellPrice > 0 {
		return s.sellPrice
	}
	return data.Price
}
func (s *stubStrategy) SellQuantity(h domain.Holding) int64 {
	if s.maxSell > 0 && s.maxSell < h.Quantity {
		return s.maxSell
	}
	return h.Quantity
}
func (s *stubStrategy) OrderType() string { return "00" }

func stubFactory(stubs map[string]*stubStrategy) strategy.Factory {
	return func(typ string, _ map[string]any, _ *slog.Logger) (strategy.Strategy, error) {
		s, ok := stubs[typ]
		if !ok {
			return nil, domain.ErrUnknownStrategyType
		}
		return s, nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func active(name, typ string) domain.Strategy {
	return domain.Strategy{ID: name, Name: name, Type: typ, Active: true, UpdatedAt: time.Now()}
}

// --- tests ---

func TestRunOnceNoActiveStrategies(t *testing.T) {
	reports := &fakeReportCache{}
	e := New(Deps{
		Strategies: &fakeStrategyStore{},
		Selector:   &fakeResolver{},
		Clock:      &fakeClock{open: false}, // closed market must not matter
		Reports:    reports,
	}, Options{}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no active strategies", report.Message)
	assert.Empty(t, report.Signals)

	cached, err := reports.LastReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.Message, cached.Message)
}

func TestRunOnceMarketClosed(t *testing.T) {
	broker := &fakeBroker{}
	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: false},
		Broker:     broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": {name: "s1", buy: true, allocation: 0.1}})}, testLogger())

	report, err := e.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
	assert.Empty(t, report.Signals)
	assert.Contains(t, report.Message, "market is closed")
	assert.Empty(t, broker.submitted())
}

func TestRunOnceBuySignal(t *testing.T) {
	broker := &fakeBroker{}
	signals := &fakeSignalStore{}
	stub := &stubStrategy{name: "rsi samsung", buy: true, allocation: 0.1}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("rsi samsung", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"rsi samsung": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions:  &fakePositions{balance: domain.AccountBalance{Cash: 7_000_000}},
		Broker:     broker,
		Signals:    signals,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 1)

	sig := report.Signals[0]
	assert.Equal(t, domain.SignalActionBuy, sig.Action)
	assert.Equal(t, "005930", sig.Code)
	assert.Equal(t, int64(10), sig.Quantity)
	assert.Equal(t, domain.SignalStatusExecuted, sig.Status)
	assert.Equal(t, "0000012345", sig.OrderNo)

	require.Len(t, broker.submitted(), 1)
	assert.Equal(t, domain.OrderSideBuy, broker.submitted()[0].Side)
	assert.Len(t, signals.inserted, 1)
}

func TestRunOnceSellWholeHolding(t *testing.T) {
	broker := &fakeBroker{}
	stub := &stubStrategy{name: "s1", buy: true, sell: true, allocation: 0.1}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions: &fakePositions{balance: domain.AccountBalance{
			Cash:     1_000_000,
			Holdings: []domain.Holding{{Code: "005930", Quantity: 25, AvgCost: 60_000}},
		}},
		Broker: broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 1)

	sig := report.Signals[0]
	assert.Equal(t, domain.SignalActionSell, sig.Action)
	assert.Equal(t, int64(25), sig.Quantity, "sells the whole holding")
	// Sell decision short-circuits the buy check for the same stock.
	require.Len(t, broker.submitted(), 1)
}

func TestRunOnceUsesStrategyPrices(t *testing.T) {
	broker := &fakeBroker{}
	stub := &stubStrategy{name: "s1", buy: true, allocation: 0.1, buyPrice: 69_500}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions:  &fakePositions{balance: domain.AccountBalance{Cash: 7_000_000}},
		Broker:     broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 1)

	// The strategy's limit price sizes and prices the order, not the quote.
	assert.Equal(t, float64(69_500), report.Signals[0].Price)
	require.Len(t, broker.submitted(), 1)
	assert.Equal(t, float64(69_500), broker.submitted()[0].Price)
	assert.Equal(t, int64(10), broker.submitted()[0].Quantity)
}

func TestRunOncePartialSell(t *testing.T) {
	broker := &fakeBroker{}
	stub := &stubStrategy{name: "s1", sell: true, allocation: 0.1, sellPrice: 71_000, maxSell: 10}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions: &fakePositions{balance: domain.AccountBalance{
			Cash:     1_000_000,
			Holdings: []domain.Holding{{Code: "005930", Quantity: 25, AvgCost: 60_000}},
		}},
		Broker: broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 1)

	sig := report.Signals[0]
	assert.Equal(t, domain.SignalActionSell, sig.Action)
	assert.Equal(t, int64(10), sig.Quantity, "sell capped by the strategy's sizing")
	assert.Equal(t, float64(71_000), sig.Price)
}

func TestRunOnceZeroQuantitySkipsOrder(t *testing.T) {
	broker := &fakeBroker{}
	stub := &stubStrategy{name: "s1", buy: true, allocation: 0.1}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions:  &fakePositions{balance: domain.AccountBalance{Cash: 500_000}}, // 10% affords 0 shares
		Broker:     broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Signals)
	assert.Empty(t, broker.submitted())
}

func TestRunOnceStrategyIsolation(t *testing.T) {
	broker := &fakeBroker{}
	good := &stubStrategy{name: "good", buy: true, allocation: 0.1}
	bad := &stubStrategy{name: "bad", buyErr: errors.New("indicator blew up")}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{
			active("bad", "bad"),
			active("good", "good"),
		}},
		Selector: &fakeResolver{codes: map[string][]string{
			"bad":  {"000660"},
			"good": {"005930"},
		}},
		Clock:     &fakeClock{open: true},
		Quotes:    &fakeQuotes{prices: map[string]float64{"005930": 70_000, "000660": 120_000}},
		Positions: &fakePositions{balance: domain.AccountBalance{Cash: 7_000_000}},
		Broker:    broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"bad": bad, "good": good})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "bad", report.Errors[0].Strategy)
	assert.Contains(t, report.Errors[0].Message, "indicator blew up")

	require.Len(t, report.Signals, 1, "good strategy still traded")
	assert.Equal(t, "good", report.Signals[0].Strategy)
}

func TestRunOnceBrokerFailureRecordsFailedSignal(t *testing.T) {
	broker := &fakeBroker{err: errors.New("insufficient buying power")}
	stub := &stubStrategy{name: "s1", buy: true, allocation: 0.1}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions:  &fakePositions{balance: domain.AccountBalance{Cash: 7_000_000}},
		Broker:     broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	report, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Signals, 1)
	assert.Equal(t, domain.SignalStatusFailed, report.Signals[0].Status)
	assert.Contains(t, report.Signals[0].Error, "insufficient buying power")
	assert.Empty(t, report.Errors, "order failure is a signal outcome, not a strategy error")
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	broker := &fakeBroker{block: release}
	stub := &stubStrategy{name: "s1", buy: true, allocation: 0.1}

	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions:  &fakePositions{balance: domain.AccountBalance{Cash: 7_000_000}},
		Broker:     broker,
	}, Options{Factory: stubFactory(map[string]*stubStrategy{"stub": stub})}, testLogger())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := e.RunOnce(context.Background())
		done <- err
	}()

	<-started
	require.Eventually(t, e.Running, time.Second, time.Millisecond)

	_, err := e.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)

	// A finished run frees the engine for the next one.
	_, err = e.RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOnceDistributedLockHeld(t *testing.T) {
	e := New(Deps{
		Strategies: &fakeStrategyStore{active: []domain.Strategy{active("s1", "stub")}},
		Selector:   &fakeResolver{},
		Clock:      &fakeClock{open: true},
		Locks:      heldLock{},
	}, Options{}, testLogger())

	_, err := e.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestRunOnceReusesInstanceUntilConfigChanges(t *testing.T) {
	calls := 0
	factory := func(typ string, _ map[string]any, _ *slog.Logger) (strategy.Strategy, error) {
		calls++
		return &stubStrategy{name: "s1", allocation: 0.1}, nil
	}
	strat := active("s1", "stub")
	store := &fakeStrategyStore{active: []domain.Strategy{strat}}

	e := New(Deps{
		Strategies: store,
		Selector:   &fakeResolver{codes: map[string][]string{"s1": {"005930"}}},
		Clock:      &fakeClock{open: true},
		Quotes:     &fakeQuotes{prices: map[string]float64{"005930": 70_000}},
		Positions:  &fakePositions{balance: domain.AccountBalance{Cash: 1_000_000}},
		Broker:     &fakeBroker{},
	}, Options{Factory: factory}, testLogger())

	_, err := e.RunOnce(context.Background())
	require.NoError(t, err)
	_, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "instance cached across runs")

	store.active[0].UpdatedAt = store.active[0].UpdatedAt.Add(time.Minute)
	_, err = e.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "config change rebuilds the instance")
}
