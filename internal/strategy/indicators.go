package strategy

import "math"

// sma returns the simple moving average of the last n values, or 0 when the
// series is too short.
func sma(series []float64, n int) float64 {
	if n <= 0 || len(series) < n {
		return 0
	}
	var sum float64
	for _, v := range series[len(series)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// stddev returns the population standard deviation of the last n values.
func stddev(series []float64, n int) float64 {
	if n <= 0 || len(series) < n {
		return 0
	}
	mean := sma(series, n)
	var sum float64
	for _, v := range series[len(series)-n:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// ema returns the full exponential moving average series with period n.
// The first value seeds the average.
func ema(series []float64, n int) []float64 {
	if n <= 0 || len(series) == 0 {
		return nil
	}
	k := 2.0 / float64(n+1)
	out := make([]float64, len(series))
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = series[i]*k + out[i-1]*(1-k)
	}
	return out
}

// rsi returns the relative strength index over the last n changes.
// ok is false when the series is too short.
func rsi(series []float64, n int) (v float64, ok bool) {
	if n <= 0 || len(series) < n+1 {
		return 0, false
	}
	var gain, loss float64
	start := len(series) - n - 1
	for i := start + 1; i < len(series); i++ {
		d := series[i] - series[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}

// macdLine returns the MACD and signal series for the given periods. Both
// slices have the input length; leading values are unreliable until the slow
// period has been seen.
func macdLine(series []float64, fast, slow, signal int) (macd, sig []float64) {
	if len(series) == 0 {
		return nil, nil
	}
	fastEMA := ema(series, fast)
	slowEMA := ema(series, slow)
	macd = make([]float64, len(series))
	for i := range series {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig = ema(macd, signal)
	return macd, sig
}
