package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Value is the quote-currency notional resting at this level.
func (l PriceLevel) Value() float64 {
	return l.Price * l.Size
}

// BookSnapshot is a point-in-time copy of the top of the book. Bids are sorted
// best (highest) first, asks best (lowest) first.
type BookSnapshot struct {
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Empty reports whether either side has no levels.
func (s BookSnapshot) Empty() bool {
	return len(s.Bids) == 0 || len(s.Asks) == 0
}

// BestBid returns the highest bid, or 0 when there are no bids.
func (s BookSnapshot) BestBid() float64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask, or 0 when there are no asks.
func (s BookSnapshot) BestAsk() float64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// MidPrice is the average of best bid and best ask. It is 0 for an empty book.
func (s BookSnapshot) MidPrice() float64 {
	if s.Empty() {
		return 0
	}
	return (s.BestBid() + s.BestAsk()) / 2
}

// BookUpdate is one decoded message from the market-data feed.
type BookUpdate struct {
	Exchange   string
	Asset      string
	Bids       []PriceLevel
	Asks       []PriceLevel
	ReceivedAt time.Time
}

// BookEvent is the bus payload published after every applied book update.
type BookEvent struct {
	Event     string       `json:"event"`
	Exchange  string       `json:"exchange"`
	Asset     string       `json:"asset"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	BestBid   float64      `json:"best_bid"`
	BestAsk   float64      `json:"best_ask"`
	MidPrice  float64      `json:"mid_price"`
	Timestamp time.Time    `json:"timestamp"`
}
