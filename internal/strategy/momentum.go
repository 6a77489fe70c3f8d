package strategy

import (
	"context"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultMomentumPeriod = 10
	defaultBuyThreshold   = 3.0
	defaultSellThreshold  = -3.0
)

// Momentum buys stocks whose return over the lookback window exceeds the buy
// threshold and sells holdings whose return falls below the sell threshold.
// Thresholds are percentages.
type Momentum struct {
	base
	hist   *history
	period int
	buyAt  float64
	sellAt float64
	logger *slog.Logger
}

// NewMomentum creates a momentum strategy. Config keys:
//
//   - "period" (int): lookback window. Defaults to 10.
//   - "buy_threshold" (float64): minimum percent return to buy. Defaults to 3.
//   - "sell_threshold" (float64): percent return below which to sell.
//     Defaults to -3.
func NewMomentum(cfg map[string]any, logger *slog.Logger) *Momentum {
	p := params(cfg)
	period := p.integer("period", defaultMomentumPeriod)
	return &Momentum{
		base:   base{params: p},
		hist:   newHistory(period * 3),
		period: period,
		buyAt:  p.float("buy_threshold", defaultBuyThreshold),
		sellAt: p.float("sell_threshold", defaultSellThreshold),
		logger: logger.With(slog.String("strategy", TypeMomentum)),
	}
}

// Name returns the strategy type identifier.
func (s *Momentum) Name() string { return TypeMomentum }

// Warmup seeds price history from daily closes.
func (s *Momentum) Warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	return s.hist.warmup(ctx, code, charts)
}

// ShouldBuy reports whether the lookback return clears the buy threshold.
func (s *Momentum) ShouldBuy(_ context.Context, data domain.MarketData) (bool, error) {
	s.hist.observe(data.Code, data.Price)
	ret, ok := s.lookbackReturn(data.Code)
	if !ok {
		return false, nil
	}
	if ret >= s.buyAt {
		s.logger.Info("momentum buy",
			slog.String("code", data.Code),
			slog.Float64("return_pct", ret),
		)
		return true, nil
	}
	return false, nil
}

// ShouldSell reports whether the lookback return breached the sell threshold.
func (s *Momentum) ShouldSell(_ context.Context, data domain.MarketData, holding domain.Holding) (bool, error) {
	if holding.Quantity <= 0 {
		return false, nil
	}
	ret, ok := s.lookbackReturn(data.Code)
	return ok && ret <= s.sellAt, nil
}

func (s *Momentum) lookbackReturn(code string) (float64, bool) {
	series := s.hist.series(code)
	if len(series) < s.period+1 {
		return 0, false
	}
	then := series[len(series)-1-s.period]
	now := series[len(series)-1]
	if then == 0 {
		return 0, false
	}
	return (now - then) / then * 100, true
}
