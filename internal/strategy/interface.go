package strategy

import (
	"context"

	"github.com/seojun-park/kisbot/internal/domain"
)

// Strategy defines the contract for trading strategies. The engine calls
// ShouldSell before ShouldBuy for each stock; BuyQuantity sizes the order
// from available cash, and the price methods set the limit price so the
// engine never second-guesses a variant's pricing.
type Strategy interface {
	Name() string
	ShouldBuy(ctx context.Context, data domain.MarketData) (bool, error)
	ShouldSell(ctx context.Context, data domain.MarketData, holding domain.Holding) (bool, error)
	BuyQuantity(cash, price float64) int64
	BuyPrice(data domain.MarketData) float64
	SellPrice(data domain.MarketData) float64
	SellQuantity(holding domain.Holding) int64
	OrderType() string
}

// Warmer is implemented by strategies that need historical closes before
// they can evaluate. The engine calls Warmup once per stock per run.
type Warmer interface {
	Warmup(ctx context.Context, code string, charts domain.ChartProvider) error
}
