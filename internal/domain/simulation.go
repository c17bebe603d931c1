package domain

import (
	"fmt"
	"math"
	"time"
)

// SimulationRequest describes a hypothetical market order sized in quote
// currency. Exchange and Asset are carried through for attribution only.
type SimulationRequest struct {
	QuantityUSD float64
	Side        OrderSide
	Volume30d   float64
	Exchange    string
	Asset       string
}

// Validate rejects requests the simulator cannot price.
func (r SimulationRequest) Validate() error {
	if !(r.QuantityUSD > 0) || math.IsInf(r.QuantityUSD, 1) {
		return fmt.Errorf("%w: quantity_usd must be a finite positive number", ErrInvalidRequest)
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return fmt.Errorf("%w: order_type must be buy or sell", ErrInvalidRequest)
	}
	if !(r.Volume30d >= 0) || math.IsInf(r.Volume30d, 1) {
		return fmt.Errorf("%w: volume_30d must be a finite non-negative number", ErrInvalidRequest)
	}
	return nil
}

// FeeBreakdown is the fee charged for a fill.
type FeeBreakdown struct {
	Rate       float64 `json:"fee_rate"`
	Amount     float64 `json:"fee_amount"`
	Tier       string  `json:"fee_tier"`
	OrderValue float64 `json:"order_value"`
}

// SimulationResult is the priced outcome of one simulated market order.
type SimulationResult struct {
	ID               string       `json:"id"`
	Exchange         string       `json:"exchange"`
	Asset            string       `json:"asset"`
	Side             OrderSide    `json:"order_type"`
	QuantityUSD      float64      `json:"quantity_usd"`
	FilledQuantity   float64      `json:"filled_quantity"`
	AvgPrice         float64      `json:"avg_price"`
	Slippage         float64      `json:"slippage"`
	RegSlippage      float64      `json:"reg_slippage"`
	MidPrice         float64      `json:"mid_price"`
	Fees             FeeBreakdown `json:"fees"`
	MarketImpact     float64      `json:"market_impact"`
	NetCost          float64      `json:"net_cost"`
	Volatility       float64      `json:"volatility"`
	ProcessingTimeMs float64      `json:"processing_time_ms"`
	OptimalSchedule  float64      `json:"optimal_schedule"`
	MakerProb        float64      `json:"maker_prob"`
	TakerProb        float64      `json:"taker_prob"`
	CreatedAt        time.Time    `json:"created_at"`
}
