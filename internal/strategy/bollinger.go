package strategy

import (
	"context"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultBandPeriod = 20
	defaultNumStd     = 2.0
)

// Bollinger buys when price pierces the lower band and sells when it pierces
// the upper band.
type Bollinger struct {
	base
	hist   *history
	period int
	numStd float64
	logger *slog.Logger
}

// NewBollinger creates a Bollinger band strategy. Config keys:
//
//   - "period" (int): moving average window. Defaults to 20.
//   - "num_std" (float64): band width in standard deviations. Defaults to 2.
func NewBollinger(cfg map[string]any, logger *slog.Logger) *Bollinger {
	p := params(cfg)
	period := p.integer("period", defaultBandPeriod)
	return &Bollinger{
		base:   base{params: p},
		hist:   newHistory(period * 3),
		period: period,
		numStd: p.float("num_std", defaultNumStd),
		logger: logger.With(slog.String("strategy", TypeBollinger)),
	}
}

// Name returns the strategy type identifier.
func (s *Bollinger) Name() string { return TypeBollinger }

// Warmup seeds price history from daily closes.
func (s *Bollinger) Warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	return s.hist.warmup(ctx, code, charts)
}

// ShouldBuy reports whether the price closed below the lower band.
func (s *Bollinger) ShouldBuy(_ context.Context, data domain.MarketData) (bool, error) {
	s.hist.observe(data.Code, data.Price)
	lower, _, ok := s.bands(data.Code)
	if !ok {
		return false, nil
	}
	if data.Price < lower {
		s.logger.Info("below lower band",
			slog.String("code", data.Code),
			slog.Float64("price", data.Price),
			slog.Float64("lower", lower),
		)
		return true, nil
	}
	return false, nil
}

// ShouldSell reports whether the price closed above the upper band.
func (s *Bollinger) ShouldSell(_ context.Context, data domain.MarketData, holding domain.Holding) (bool, error) {
	if holding.Quantity <= 0 {
		return false, nil
	}
	_, upper, ok := s.bands(data.Code)
	return ok && data.Price > upper, nil
}

func (s *Bollinger) bands(code string) (lower, upper float64, ok bool) {
	series := s.hist.series(code)
	if len(series) < s.period {
		return 0, 0, false
	}
	mid := sma(series, s.period)
	sd := stddev(series, s.period)
	if sd == 0 {
		return 0, 0, false
	}
	return mid - s.numStd*sd, mid + s.numStd*sd, true
}
