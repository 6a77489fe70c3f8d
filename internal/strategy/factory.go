package strategy

import (
	"fmt"
	"log/slog"

	"github.com/seojun-park/kisbot/internal/domain"
)

// Strategy type identifiers as stored on a registered strategy.
const (
	TypeMACrossover   = "moving_average_crossover"
	TypeRSI           = "rsi"
	TypeBollinger     = "bollinger_bands"
	TypeMACD          = "macd"
	TypeMomentum      = "momentum"
	TypeMeanReversion = "mean_reversion"
)

// Factory builds a strategy instance from a type identifier and config.
type Factory func(typ string, cfg map[string]any, logger *slog.Logger) (Strategy, error)

// New instantiates the strategy variant for typ with the given config.
// Unknown types return domain.ErrUnknownStrategyType.
func New(typ string, cfg map[string]any, logger *slog.Logger) (Strategy, error) {
	switch typ {
	case TypeMACrossover:
		return NewMACrossover(cfg, logger), nil
	case TypeRSI:
		return NewRSI(cfg, logger), nil
	case TypeBollinger:
		return NewBollinger(cfg, logger), nil
	case TypeMACD:
		return NewMACD(cfg, logger), nil
	case TypeMomentum:
		return NewMomentum(cfg, logger), nil
	case TypeMeanReversion:
		return NewMeanReversion(cfg, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategyType, typ)
}

// Types lists the supported strategy type identifiers.
func Types() []string {
	return []string{
		TypeMACrossover,
		TypeRSI,
		TypeBollinger,
		TypeMACD,
		TypeMomentum,
		TypeMeanReversion,
	}
}

// Defaults returns the default config for typ, or nil for unknown types.
// The registry fills these into newly created strategies so stored configs
// are always complete.
func Defaults(typ string) map[string]any {
	// Momentum-driven variants allocate a larger slice of cash per order.
	common := func(ratio float64, m map[string]any) map[string]any {
		m["allocation_ratio"] = ratio
		m["order_type"] = defaultOrderType
		return m
	}
	switch typ {
	case TypeMACrossover:
		return common(0.1, map[string]any{
			"short_period": defaultShortPeriod,
			"long_period":  defaultLongPeriod,
		})
	case TypeRSI:
		return common(0.15, map[string]any{
			"rsi_period": defaultRSIPeriod,
			"oversold":   defaultOversold,
			"overbought": defaultOverbought,
		})
	case TypeBollinger:
		return common(0.12, map[string]any{
			"period":  defaultBandPeriod,
			"num_std": defaultNumStd,
		})
	case TypeMACD:
		return common(0.12, map[string]any{
			"fast_period":   defaultFastPeriod,
			"slow_period":   defaultSlowPeriod,
			"signal_period": defaultSignalPeriod,
		})
	case TypeMomentum:
		return common(0.1, map[string]any{
			"period":         defaultMomentumPeriod,
			"buy_threshold":  defaultBuyThreshold,
			"sell_threshold": defaultSellThreshold,
		})
	case TypeMeanReversion:
		return common(0.1, map[string]any{
			"period":    defaultReversionPeriod,
			"deviation": defaultDeviation,
		})
	}
	return nil
}
