package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketImpact_OptimalExecution(t *testing.T) {
	m := NewMarketImpactModel(0.5, DefaultImpactCoefficient, DefaultRiskAversion)
	impact, schedule := m.OptimalExecution(2, 1, 10_000)

	assert.InDelta(t, 2_000, impact, 1e-9)
	assert.Equal(t, 2.0, schedule)
}

func TestMarketImpact_DegenerateScheduleIsQuantity(t *testing.T) {
	tests := []struct {
		name    string
		vol     float64
		horizon float64
	}{
		{"zero volatility", 0, 1},
		{"zero horizon", 0.4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMarketImpactModel(tt.vol, 0.1, 0.1)
			_, schedule := m.OptimalExecution(3.5, tt.horizon, 100)
			assert.False(t, math.IsNaN(schedule))
			assert.Equal(t, 3.5, schedule)
		})
	}
}

func TestMarketImpact_PermanentImpact(t *testing.T) {
	m := NewMarketImpactModel(0.2, 0, 0)
	assert.InDelta(t, 0.1*4*250, m.PermanentImpact(4, 250), 1e-12)
}
