// Package models contains the pricing models layered on top of a book walk:
// the volume-tiered fee schedule, the rolling volatility estimator, the toy
// Almgren-Chriss impact model and the regression stand-ins.
package models

import "github.com/alanyoungcy/tradesim/internal/domain"

// FeeTier is one bracket of a volume-tiered fee schedule.
type FeeTier struct {
	Name      string
	MinVolume float64
	MakerRate float64
	TakerRate float64
}

// Rate returns the rate charged for the given role.
func (t FeeTier) Rate(role domain.LiquidityRole) float64 {
	if role == domain.RoleMaker {
		return t.MakerRate
	}
	return t.TakerRate
}

// DefaultFeeTiers is the spot fee schedule, highest volume bracket first.
var DefaultFeeTiers = []FeeTier{
	{Name: "tier5", MinVolume: 1_000_000, MakerRate: 0.0004, TakerRate: 0.0006},
	{Name: "tier4", MinVolume: 500_000, MakerRate: 0.0005, TakerRate: 0.0007},
	{Name: "tier3", MinVolume: 100_000, MakerRate: 0.0006, TakerRate: 0.0008},
	{Name: "tier2", MinVolume: 50_000, MakerRate: 0.0007, TakerRate: 0.0009},
	{Name: "tier1", MinVolume: 0, MakerRate: 0.0008, TakerRate: 0.0010},
}

// FeeCalculator maps 30-day traded volume to a fee tier. It is immutable after
// construction and safe for concurrent use.
type FeeCalculator struct {
	tiers []FeeTier
}

// NewFeeCalculator builds a calculator over tiers ordered highest MinVolume
// first. An empty slice selects DefaultFeeTiers.
func NewFeeCalculator(tiers []FeeTier) *FeeCalculator {
	if len(tiers) == 0 {
		tiers = DefaultFeeTiers
	}
	return &FeeCalculator{tiers: append([]FeeTier(nil), tiers...)}
}

// TierFor returns the first tier whose inclusive lower bound volume30d meets.
// Volumes below every bound fall into the last tier.
func (c *FeeCalculator) TierFor(volume30d float64) FeeTier {
	for _, t := range c.tiers {
		if volume30d >= t.MinVolume {
			return t
		}
	}
	return c.tiers[len(c.tiers)-1]
}

// Fee prices a fill of qty units at avgPrice for the given role.
func (c *FeeCalculator) Fee(role domain.LiquidityRole, qty, avgPrice, volume30d float64) domain.FeeBreakdown {
	tier := c.TierFor(volume30d)
	rate := tier.Rate(role)
	value := qty * avgPrice
	return domain.FeeBreakdown{
		Rate:       rate,
		Amount:     value * rate,
		Tier:       tier.Name,
		OrderValue: value,
	}
}
