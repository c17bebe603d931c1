package models

import "math"

// RegressionCoefficients parameterises the linear slippage estimate and the
// logistic maker/taker split. The defaults are placeholders, not a fit.
type RegressionCoefficients struct {
	SlippageIntercept  float64 `toml:"slippage_intercept"`
	SlippageSize       float64 `toml:"slippage_size"`
	SlippageVolatility float64 `toml:"slippage_volatility"`

	TakerIntercept  float64 `toml:"taker_intercept"`
	TakerSize       float64 `toml:"taker_size"`
	TakerVolatility float64 `toml:"taker_volatility"`
}

// DefaultRegression returns the stock coefficients.
func DefaultRegression() RegressionCoefficients {
	return RegressionCoefficients{
		SlippageIntercept:  0.01,
		SlippageSize:       0.0001,
		SlippageVolatility: 0.5,
		TakerIntercept:     -2,
		TakerSize:          0.01,
		TakerVolatility:    -10,
	}
}

// SlippageRegression estimates slippage linearly from order size and
// volatility.
func (c RegressionCoefficients) SlippageRegression(orderSize, volatility float64) float64 {
	return c.SlippageIntercept + c.SlippageSize*orderSize + c.SlippageVolatility*volatility
}

// MakerTakerProportion returns the probability the order fills as maker and
// as taker. The two always sum to one.
func (c RegressionCoefficients) MakerTakerProportion(orderSize, volatility float64) (makerProb, takerProb float64) {
	score := c.TakerIntercept + c.TakerSize*orderSize + c.TakerVolatility*volatility
	takerProb = logistic(score)
	makerProb = 1 - takerProb
	return makerProb, takerProb
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
