package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-park/kisbot/internal/domain"
)

type fakeCharts struct {
	closes map[string][]float64
	calls  int
}

func (f *fakeCharts) DailyCloses(_ context.Context, code string, days int) ([]float64, error) {
	f.calls++
	c := f.closes[code]
	if len(c) > days {
		c = c[len(c)-days:]
	}
	return c, nil
}

func quote(code string, price float64) domain.MarketData {
	return domain.MarketData{Code: code, Price: price}
}

func TestRSIBuysAfterSustainedDrop(t *testing.T) {
	s := NewRSI(map[string]any{"rsi_period": 14}, discard())

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100_000 - float64(i)*1_000
	}
	charts := &fakeCharts{closes: map[string][]float64{"005930": closes}}
	require.NoError(t, s.Warmup(context.Background(), "005930", charts))

	buy, err := s.ShouldBuy(context.Background(), quote("005930", 69_000))
	require.NoError(t, err)
	assert.True(t, buy)

	sell, err := s.ShouldSell(context.Background(), quote("005930", 69_000), domain.Holding{Code: "005930", Quantity: 10})
	require.NoError(t, err)
	assert.False(t, sell)
}

func TestRSISellsAfterSustainedRally(t *testing.T) {
	s := NewRSI(nil, discard())

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 50_000 + float64(i)*1_000
	}
	charts := &fakeCharts{closes: map[string][]float64{"005930": closes}}
	require.NoError(t, s.Warmup(context.Background(), "005930", charts))

	_, err := s.ShouldBuy(context.Background(), quote("005930", 81_000))
	require.NoError(t, err)

	sell, err := s.ShouldSell(context.Background(), quote("005930", 81_000), domain.Holding{Code: "005930", Quantity: 10})
	require.NoError(t, err)
	assert.True(t, sell)
}

func TestShouldSellRequiresHolding(t *testing.T) {
	for _, typ := range Types() {
		s, err := New(typ, nil, discard())
		require.NoError(t, err)
		sell, err := s.ShouldSell(context.Background(), quote("005930", 70_000), domain.Holding{})
		require.NoError(t, err, typ)
		assert.False(t, sell, typ)
	}
}

func TestMACrossoverGoldenCross(t *testing.T) {
	s := NewMACrossover(map[string]any{"short_period": 2, "long_period": 4}, discard())

	// Declining series keeps the short MA below the long MA.
	for _, p := range []float64{110, 108, 106, 104, 102} {
		buy, err := s.ShouldBuy(context.Background(), quote("000660", p))
		require.NoError(t, err)
		assert.False(t, buy)
	}

	// A sharp rebound flips the short MA above the long MA.
	buy, err := s.ShouldBuy(context.Background(), quote("000660", 120))
	require.NoError(t, err)
	assert.True(t, buy)
}

func TestMACrossoverDeadCross(t *testing.T) {
	s := NewMACrossover(map[string]any{"short_period": 2, "long_period": 4}, discard())

	for _, p := range []float64{100, 102, 104, 106, 108} {
		_, err := s.ShouldBuy(context.Background(), quote("000660", p))
		require.NoError(t, err)
	}

	_, err := s.ShouldBuy(context.Background(), quote("000660", 80))
	require.NoError(t, err)
	sell, err := s.ShouldSell(context.Background(), quote("000660", 80), domain.Holding{Code: "000660", Quantity: 5})
	require.NoError(t, err)
	assert.True(t, sell)
}

func TestBollingerBuysBelowLowerBand(t *testing.T) {
	s := NewBollinger(map[string]any{"period": 5, "num_std": 1.5}, discard())

	for _, p := range []float64{100, 101, 99, 100, 101} {
		buy, err := s.ShouldBuy(context.Background(), quote("035420", p))
		require.NoError(t, err)
		assert.False(t, buy)
	}

	buy, err := s.ShouldBuy(context.Background(), quote("035420", 90))
	require.NoError(t, err)
	assert.True(t, buy)
}

func TestMomentumThresholds(t *testing.T) {
	s := NewMomentum(map[string]any{"period": 3, "buy_threshold": 5.0, "sell_threshold": -5.0}, discard())

	for _, p := range []float64{100, 100, 100} {
		_, err := s.ShouldBuy(context.Background(), quote("005380", p))
		require.NoError(t, err)
	}

	// +10% over the lookback clears the buy threshold.
	buy, err := s.ShouldBuy(context.Background(), quote("005380", 110))
	require.NoError(t, err)
	assert.True(t, buy)
}

func TestMeanReversionZScore(t *testing.T) {
	s := NewMeanReversion(map[string]any{"period": 5, "deviation": 1.5}, discard())

	for _, p := range []float64{100, 102, 98, 101, 99} {
		_, err := s.ShouldBuy(context.Background(), quote("068270", p))
		require.NoError(t, err)
	}

	buy, err := s.ShouldBuy(context.Background(), quote("068270", 80))
	require.NoError(t, err)
	assert.True(t, buy)

	sell, err := s.ShouldSell(context.Background(), quote("068270", 130), domain.Holding{Code: "068270", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, sell)
}

func TestWarmupRunsOncePerCode(t *testing.T) {
	s := NewRSI(nil, discard())
	charts := &fakeCharts{closes: map[string][]float64{"005930": {1, 2, 3}}}

	require.NoError(t, s.Warmup(context.Background(), "005930", charts))
	require.NoError(t, s.Warmup(context.Background(), "005930", charts))
	assert.Equal(t, 1, charts.calls)
}
