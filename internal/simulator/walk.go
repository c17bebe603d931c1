package simulator

import "github.com/alanyoungcy/tradesim/internal/domain"

// fill is the outcome of walking one side of the book.
type fill struct {
	qty  float64
	cost float64
}

// avgPrice is the volume-weighted execution price, or 0 when nothing filled.
func (f fill) avgPrice() float64 {
	if f.qty == 0 {
		return 0
	}
	return f.cost / f.qty
}

// walkBook consumes levels best price first until quantityUSD of notional has
// been spent. The last level touched may be consumed partially. If the levels
// run out first, the returned fill covers whatever was available.
func walkBook(levels []domain.PriceLevel, quantityUSD float64) fill {
	var f fill
	remaining := quantityUSD
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		value := lvl.Value()
		if value >= remaining {
			qty := remaining / lvl.Price
			f.qty += qty
			f.cost += qty * lvl.Price
			return f
		}
		f.qty += lvl.Size
		f.cost += value
		remaining -= value
	}
	return f
}
