package strategy

import (
	"math"

	"github.com/seojun-park/kisbot/internal/domain"
)

const (
	defaultAllocationRatio = 0.1
	defaultOrderType       = "00"
)

// params wraps a strategy's raw config map with typed, defaulted accessors.
// JSON round-trips turn numbers into float64, so integer parameters accept
// both forms.
type params map[string]any

func (p params) float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func (p params) integer(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func (p params) str(key string, def string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return def
}

// base carries the sizing and order parameters shared by every variant.
type base struct {
	params params
}

// BuyQuantity sizes a buy order as the whole number of shares that the
// allocated slice of cash affords. Zero means the order is skipped.
func (b base) BuyQuantity(cash, price float64) int64 {
	if price <= 0 || cash <= 0 {
		return 0
	}
	alloc := b.params.float("allocation_ratio", defaultAllocationRatio)
	return int64(math.Floor(cash * alloc / price))
}

// BuyPrice returns the limit price for a buy order, the current market
// price unless a variant overrides it.
func (b base) BuyPrice(data domain.MarketData) float64 {
	return data.Price
}

// SellPrice returns the limit price for a sell order, the current market
// price unless a variant overrides it.
func (b base) SellPrice(data domain.MarketData) float64 {
	return data.Price
}

// SellQuantity sizes a sell order. The whole holding is sold unless
// max_sell_quantity caps it.
func (b base) SellQuantity(holding domain.Holding) int64 {
	qty := holding.Quantity
	if limit := int64(b.params.integer("max_sell_quantity", 0)); limit > 0 && limit < qty {
		qty = limit
	}
	return qty
}

// OrderType returns the brokerage order division code.
func (b base) OrderType() string {
	return b.params.str("order_type", defaultOrderType)
}
