package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

func TestWalkBook(t *testing.T) {
	asks := []domain.PriceLevel{{Price: 10, Size: 2}, {Price: 20, Size: 1}}

	tests := []struct {
		name     string
		notional float64
		wantQty  float64
		wantCost float64
	}{
		{"inside first level", 5, 0.5, 5},
		{"exactly first level", 20, 2, 20},
		{"spills into second", 30, 2.5, 30},
		{"exhausts book", 100, 3, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := walkBook(asks, tt.notional)
			assert.InDelta(t, tt.wantQty, f.qty, 1e-12)
			assert.InDelta(t, tt.wantCost, f.cost, 1e-12)
		})
	}
}

func TestWalkBook_SkipsDeadLevels(t *testing.T) {
	f := walkBook([]domain.PriceLevel{{Price: 0, Size: 5}, {Price: 10, Size: 0}, {Price: 10, Size: 1}}, 5)
	assert.InDelta(t, 0.5, f.qty, 1e-12)
	assert.Equal(t, 10.0, f.avgPrice())

	assert.Equal(t, 0.0, walkBook(nil, 5).avgPrice())
}
