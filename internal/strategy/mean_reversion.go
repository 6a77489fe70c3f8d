package strategy

import (
	"context"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultReversionPeriod = 20
	defaultDeviation       = 2.0
)

// MeanReversion buys when the price sits significantly below its recent mean
// and sells when it sits significantly above. "Significantly" is measured in
// multiples of the trailing standard deviation.
type MeanReversion struct {
	base
	hist      *history
	period    int
	deviation float64
	logger    *slog.Logger
}

// NewMeanReversion creates a mean reversion strategy. Config keys:
//
//   - "period" (int): window for mean and deviation. Defaults to 20.
//   - "deviation" (float64): number of standard deviations from the mean
//     before a signal fires. Defaults to 2.
func NewMeanReversion(cfg map[string]any, logger *slog.Logger) *MeanReversion {
	p := params(cfg)
	period := p.integer("period", defaultReversionPeriod)
	return &MeanReversion{
		base:      base{params: p},
		hist:      newHistory(period * 3),
		period:    period,
		deviation: p.float("deviation", defaultDeviation),
		logger:    logger.With(slog.String("strategy", TypeMeanReversion)),
	}
}

// Name returns the strategy type identifier.
func (s *MeanReversion) Name() string { return TypeMeanReversion }

// Warmup seeds price history from daily closes.
func (s *MeanReversion) Warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	return s.hist.warmup(ctx, code, charts)
}

// ShouldBuy reports whether the price deviates below the mean by at least
// the configured number of standard deviations.
func (s *MeanReversion) ShouldBuy(_ context.Context, data domain.MarketData) (bool, error) {
	s.hist.observe(data.Code, data.Price)
	z, ok := s.zscore(data.Code, data.Price)
	if !ok {
		return false, nil
	}
	if z <= -s.deviation {
		s.logger.Info("below mean",
			slog.String("code", data.Code),
			slog.Float64("zscore", z),
		)
		return true, nil
	}
	return false, nil
}

// ShouldSell reports whether the price deviates above the mean by at least
// the configured number of standard deviations.
func (s *MeanReversion) ShouldSell(_ context.Context, data domain.MarketData, holding domain.Holding) (bool, error) {
	if holding.Quantity <= 0 {
		return false, nil
	}
	z, ok := s.zscore(data.Code, data.Price)
	return ok && z >= s.deviation, nil
}

func (s *MeanReversion) zscore(code string, price float64) (float64, bool) {
	series := s.hist.series(code)
	if len(series) < s.period {
		return 0, false
	}
	sd := stddev(series, s.period)
	if sd == 0 {
		return 0, false
	}
	return (price - sma(series, s.period)) / sd, true
}
