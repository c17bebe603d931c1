package domain

import (
	"fmt"
	"strings"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// ParseOrderSide normalises s and rejects anything other than buy or sell.
func ParseOrderSide(s string) (OrderSide, error) {
	switch OrderSide(strings.ToLower(strings.TrimSpace(s))) {
	case OrderSideBuy:
		return OrderSideBuy, nil
	case OrderSideSell:
		return OrderSideSell, nil
	default:
		return "", fmt.Errorf("%w: order_type must be buy or sell, got %q", ErrInvalidRequest, s)
	}
}

// LiquidityRole is the fee role of an order. Market orders are always takers.
type LiquidityRole string

const (
	RoleMaker LiquidityRole = "maker"
	RoleTaker LiquidityRole = "taker"
)
