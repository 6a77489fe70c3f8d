package strategy

import (
	"context"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultFastPeriod   = 12
	defaultSlowPeriod   = 26
	defaultSignalPeriod = 9
)

// MACD buys when the MACD line crosses above its signal line and sells when
// it crosses below.
type MACD struct {
	base
	hist   *history
	fast   int
	slow   int
	signal int
	logger *slog.Logger
}

// NewMACD creates a MACD strategy. Config keys:
//
//   - "fast_period" (int): fast EMA window. Defaults to 12.
//   - "slow_period" (int): slow EMA window. Defaults to 26.
//   - "signal_period" (int): signal EMA window. Defaults to 9.
func NewMACD(cfg map[string]any, logger *slog.Logger) *MACD {
	p := params(cfg)
	slow := p.integer("slow_period", defaultSlowPeriod)
	return &MACD{
		base:   base{params: p},
		hist:   newHistory(slow * 4),
		fast:   p.integer("fast_period", defaultFastPeriod),
		slow:   slow,
		signal: p.integer("signal_period", defaultSignalPeriod),
		logger: logger.With(slog.String("strategy", TypeMACD)),
	}
}

// Name returns the strategy type identifier.
func (s *MACD) Name() string { return TypeMACD }

// Warmup seeds price history from daily closes.
func (s *MACD) Warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	return s.hist.warmup(ctx, code, charts)
}

// ShouldBuy reports whether the MACD line crossed above the signal line.
func (s *MACD) ShouldBuy(_ context.Context, data domain.MarketData) (bool, error) {
	s.hist.observe(data.Code, data.Price)
	cross, up := s.cross(data.Code)
	if cross && up {
		s.logger.Info("macd cross up",
			slog.String("code", data.Code),
			slog.Float64("price", data.Price),
		)
		return true, nil
	}
	return false, nil
}

// ShouldSell reports whether the MACD line crossed below the signal line.
func (s *MACD) ShouldSell(_ context.Context, data domain.MarketData, holding domain.Holding) (bool, error) {
	if holding.Quantity <= 0 {
		return false, nil
	}
	cross, up := s.cross(data.Code)
	return cross && !up, nil
}

// cross inspects the last two MACD-vs-signal relations.
func (s *MACD) cross(code string) (crossed, up bool) {
	series := s.hist.series(code)
	if len(series) < s.slow+s.signal {
		return false, false
	}
	macd, sig := macdLine(series, s.fast, s.slow, s.signal)
	n := len(macd)
	nowAbove := macd[n-1] > sig[n-1]
	prevAbove := macd[n-2] > sig[n-2]
	return nowAbove != prevAbove, nowAbove
}
