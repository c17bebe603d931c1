package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

func TestBookKeySchema(t *testing.T) {
	key := BookKey("OKX", "BTC-USDT-SWAP")
	assert.Equal(t, "OKX:BTC-USDT-SWAP", key)
	assert.Equal(t, "book:OKX:BTC-USDT-SWAP:bids", bookBidsKey(key))
	assert.Equal(t, "book:OKX:BTC-USDT-SWAP:ask:size", bookAskSizeKey(key))
	assert.Equal(t, "book:OKX:BTC-USDT-SWAP:bbo", bookBBOKey(key))
}

func TestReadSide(t *testing.T) {
	zs := []redis.Z{
		{Score: 101.5, Member: "101.5"},
		{Score: 102, Member: "102"},
		{Score: 103, Member: 103}, // non-string member is skipped
	}
	sizes := map[string]string{"101.5": "2.25"}

	levels := readSide(zs, sizes)
	assert.Equal(t, []domain.PriceLevel{
		{Price: 101.5, Size: 2.25},
		{Price: 102, Size: 0},
	}, levels)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.1", formatFloat(0.1))
	assert.Equal(t, "95000", formatFloat(95000))
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("ch:*"))
	assert.False(t, hasPattern("ch:book"))
}

func TestPayloadBytes(t *testing.T) {
	b, ok := payloadBytes(`{"id":"a"}`)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"id":"a"}`), b)

	b, ok = payloadBytes([]byte("raw"))
	assert.True(t, ok)
	assert.Equal(t, []byte("raw"), b)

	_, ok = payloadBytes(nil)
	assert.False(t, ok)
	_, ok = payloadBytes(42)
	assert.False(t, ok)
}
