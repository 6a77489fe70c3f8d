package strategy

import (
	"context"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultRSIPeriod  = 14
	defaultOversold   = 30.0
	defaultOverbought = 70.0
)

// RSI buys when the relative strength index drops into oversold territory
// and sells when it rises into overbought territory.
type RSI struct {
	base
	hist       *history
	period     int
	oversold   float64
	overbought float64
	logger     *slog.Logger
}

// NewRSI creates an RSI strategy. Config keys:
//
//   - "rsi_period" (int): lookback for the index. Defaults to 14.
//   - "oversold" (float64): buy threshold. Defaults to 30.
//   - "overbought" (float64): sell threshold. Defaults to 70.
func NewRSI(cfg map[string]any, logger *slog.Logger) *RSI {
	p := params(cfg)
	period := p.integer("rsi_period", defaultRSIPeriod)
	return &RSI{
		base:       base{params: p},
		hist:       newHistory(period * 4),
		period:     period,
		oversold:   p.float("oversold", defaultOversold),
		overbought: p.float("overbought", defaultOverbought),
		logger:     logger.With(slog.String("strategy", TypeRSI)),
	}
}

// Name returns the strategy type identifier.
func (s *RSI) Name() string { return TypeRSI }

// Warmup seeds price history from daily closes.
func (s *RSI) Warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	return s.hist.warmup(ctx, code, charts)
}

// ShouldBuy reports whether the index is at or below the oversold threshold.
func (s *RSI) ShouldBuy(_ context.Context, data domain.MarketData) (bool, error) {
	s.hist.observe(data.Code, data.Price)
	v, ok := rsi(s.hist.series(data.Code), s.period)
	if !ok {
		return false, nil
	}
	if v <= s.oversold {
		s.logger.Info("oversold",
			slog.String("code", data.Code),
			slog.Float64("rsi", v),
		)
		return true, nil
	}
	return false, nil
}

// ShouldSell reports whether the index is at or above the overbought threshold.
func (s *RSI) ShouldSell(_ context.Context, data domain.MarketData, holding domain.Holding) (bool, error) {
	if holding.Quantity <= 0 {
		return false, nil
	}
	v, ok := rsi(s.hist.series(data.Code), s.period)
	return ok && v >= s.overbought, nil
}
