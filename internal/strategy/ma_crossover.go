package strategy

import (
	"context"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultShortPeriod = 5
	defaultLongPeriod  = 20
)

// MACrossover buys on a golden cross (short moving average crossing above
// the long one) and sells on a dead cross.
type MACrossover struct {
	base
	hist   *history
	short  int
	long   int
	logger *slog.Logger
}

// NewMACrossover creates a moving-average crossover strategy. Config keys:
//
//   - "short_period" (int): short moving average window. Defaults to 5.
//   - "long_period" (int): long moving average window. Defaults to 20.
func NewMACrossover(cfg map[string]any, logger *slog.Logger) *MACrossover {
	p := params(cfg)
	short := p.integer("short_period", defaultShortPeriod)
	long := p.integer("long_period", defaultLongPeriod)
	return &MACrossover{
		base:   base{params: p},
		hist:   newHistory(long * 3),
		short:  short,
		long:   long,
		logger: logger.With(slog.String("strategy", TypeMACrossover)),
	}
}

// Name returns the strategy type identifier.
func (s *MACrossover) Name() string { return TypeMACrossover }

// Warmup seeds price history from daily closes.
func (s *MACrossover) Warmup(ctx context.Context, code string, charts domain.ChartProvider) error {
	return s.hist.warmup(ctx, code, charts)
}

// ShouldBuy reports a golden cross at the latest observation.
func (s *MACrossover) ShouldBuy(_ context.Context, data domain.MarketData) (bool, error) {
	s.hist.observe(data.Code, data.Price)
	cross, golden := s.cross(data.Code)
	if cross && golden {
		s.logger.Info("golden cross",
			slog.String("code", data.Code),
			slog.Float64("price", data.Price),
		)
		return true, nil
	}
	return false, nil
}

// ShouldSell reports a dead cross at the latest observation.
func (s *MACrossover) ShouldSell(_ context.Context, data domain.MarketData, holding domain.Holding) (bool, error) {
	if holding.Quantity <= 0 {
		return false, nil
	}
	cross, golden := s.cross(data.Code)
	return cross && !golden, nil
}

// cross compares the short and long moving averages at the last two points.
// It returns whether the relation flipped and, if so, the direction.
func (s *MACrossover) cross(code string) (crossed, golden bool) {
	series := s.hist.series(code)
	if len(series) < s.long+1 {
		return false, false
	}
	prev := series[:len(series)-1]
	nowAbove := sma(series, s.short) > sma(series, s.long)
	prevAbove := sma(prev, s.short) > sma(prev, s.long)
	return nowAbove != prevAbove, nowAbove
}
