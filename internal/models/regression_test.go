package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlippageRegression(t *testing.T) {
	c := DefaultRegression()
	assert.InDelta(t, 0.01, c.SlippageRegression(0, 0), 1e-12)
	assert.InDelta(t, 0.01+0.0001*100+0.5*0.2, c.SlippageRegression(100, 0.2), 1e-12)
	assert.Greater(t, c.SlippageRegression(200, 0.2), c.SlippageRegression(100, 0.2))
}

func TestMakerTakerProportion_SumsToOne(t *testing.T) {
	c := DefaultRegression()
	for _, size := range []float64{0, 0.00999, 1, 100, 1e6} {
		for _, vol := range []float64{0, 0.1, 2, 50} {
			maker, taker := c.MakerTakerProportion(size, vol)
			assert.InDelta(t, 1, maker+taker, 1e-6)
			assert.GreaterOrEqual(t, maker, 0.0)
			assert.LessOrEqual(t, maker, 1.0)
			assert.GreaterOrEqual(t, taker, 0.0)
			assert.LessOrEqual(t, taker, 1.0)
		}
	}
}

func TestMakerTakerProportion_Monotonic(t *testing.T) {
	c := DefaultRegression()
	_, small := c.MakerTakerProportion(10, 0.1)
	_, large := c.MakerTakerProportion(500, 0.1)
	assert.Greater(t, large, small)

	_, calm := c.MakerTakerProportion(10, 0)
	_, wild := c.MakerTakerProportion(10, 1)
	assert.Less(t, wild, calm)
}
