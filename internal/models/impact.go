package models

import "math"

const (
	// DefaultImpactCoefficient scales the linear impact proxy.
	DefaultImpactCoefficient = 0.1

	// DefaultRiskAversion is the trader's risk-aversion parameter.
	DefaultRiskAversion = 0.1

	daysPerYear = 365
)

// MarketImpactModel is a toy Almgren-Chriss model. Impact is a linear proxy in
// size and price rather than the closed-form solution. A model is built per
// simulation from the latest volatility reading.
type MarketImpactModel struct {
	volatility   float64
	coefficient  float64
	riskAversion float64
}

// NewMarketImpactModel creates a model. Non-positive coefficient or risk
// aversion fall back to the defaults.
func NewMarketImpactModel(volatility, coefficient, riskAversion float64) *MarketImpactModel {
	if coefficient <= 0 {
		coefficient = DefaultImpactCoefficient
	}
	if riskAversion <= 0 {
		riskAversion = DefaultRiskAversion
	}
	return &MarketImpactModel{
		volatility:   volatility,
		coefficient:  coefficient,
		riskAversion: riskAversion,
	}
}

// OptimalExecution returns the temporary market impact of executing totalQty
// at initialPrice over horizonDays, and the optimal execution schedule.
func (m *MarketImpactModel) OptimalExecution(totalQty, horizonDays, initialPrice float64) (impact, schedule float64) {
	t := horizonDays / daysPerYear
	eta := math.Sqrt(m.riskAversion * m.volatility * m.volatility / m.coefficient)

	schedule = totalQty
	if decay := 1 - math.Exp(-eta*t); decay != 0 && !math.IsNaN(decay) {
		schedule = totalQty * decay / decay
	}
	impact = m.coefficient * totalQty * initialPrice
	return impact, schedule
}

// PermanentImpact returns the permanent price impact of trading qty.
func (m *MarketImpactModel) PermanentImpact(qty, initialPrice float64) float64 {
	return m.coefficient * qty * initialPrice
}
