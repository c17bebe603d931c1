package models

import (
	"math"
	"sync"
)

const (
	// DefaultVolatilityWindow is the number of mid prices retained.
	DefaultVolatilityWindow = 100

	// tradingPeriodsPerYear annualises per-period volatility.
	tradingPeriodsPerYear = 252
)

// VolatilityCalculator keeps a rolling window of prices and their log-returns
// and reports annualised volatility. All methods are safe for concurrent use;
// the window is guarded by its own mutex.
type VolatilityCalculator struct {
	mu      sync.Mutex
	window  int
	prices  []float64
	returns []float64
}

// NewVolatilityCalculator creates a calculator over the last window prices.
// Windows smaller than 3 are raised to 3 so at least two returns fit.
func NewVolatilityCalculator(window int) *VolatilityCalculator {
	if window < 3 {
		window = 3
	}
	return &VolatilityCalculator{
		window:  window,
		prices:  make([]float64, 0, window),
		returns: make([]float64, 0, window-1),
	}
}

// Update appends price to the window and returns the new annualised
// volatility, or 0 while fewer than two returns are held. Non-positive prices
// are ignored since their log-return is undefined.
func (v *VolatilityCalculator) Update(price float64) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if price > 0 && !math.IsInf(price, 0) {
		if n := len(v.prices); n > 0 {
			v.returns = pushBounded(v.returns, math.Log(price/v.prices[n-1]), v.window-1)
		}
		v.prices = pushBounded(v.prices, price, v.window)
	}
	return annualisedStd(v.returns)
}

// Current returns the annualised volatility of the current window without
// advancing it.
func (v *VolatilityCalculator) Current() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return annualisedStd(v.returns)
}

// Prices returns a copy of the retained prices, oldest first.
func (v *VolatilityCalculator) Prices() []float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]float64(nil), v.prices...)
}

// HistoricalVolatility computes rolling annualised volatility over a price
// series, one value per full window of log-returns. Fewer than two prices
// yield a single zero; windows below 2 are raised to 2.
func HistoricalVolatility(prices []float64, window int) []float64 {
	if len(prices) < 2 {
		return []float64{0}
	}
	if window < 2 {
		window = 2
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) < window {
		return []float64{}
	}
	out := make([]float64, 0, len(returns)-window+1)
	for i := 0; i+window <= len(returns); i++ {
		out = append(out, stddev(returns[i:i+window])*math.Sqrt(tradingPeriodsPerYear))
	}
	return out
}

func annualisedStd(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stddev(returns) * math.Sqrt(tradingPeriodsPerYear)
}

// stddev is the sample (n-1) standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// pushBounded appends x and drops the oldest entries beyond limit.
func pushBounded(xs []float64, x float64, limit int) []float64 {
	xs = append(xs, x)
	if over := len(xs) - limit; over > 0 {
		xs = append(xs[:0], xs[over:]...)
	}
	return xs
}
