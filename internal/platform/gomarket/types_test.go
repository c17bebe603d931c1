package gomarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradesim/internal/book"
	"github.com/alanyoungcy/tradesim/internal/domain"
)

func TestToDomainUpdate(t *testing.T) {
	raw := `{
		"timestamp": "2025-05-04T10:39:13Z",
		"exchange": "OKX",
		"symbol": "BTC-USDT-SWAP",
		"asks": [["95445.5", "9.06"], ["95448", "2.05"]],
		"bids": [["95445.4", "1104.23"], [95445.3, 0.02]]
	}`
	var msg L2Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	at := time.Date(2025, 5, 4, 10, 39, 14, 0, time.UTC)
	update, errs := ToDomainUpdate(&msg, at)
	assert.Empty(t, errs)
	assert.Equal(t, "OKX", update.Exchange)
	assert.Equal(t, "BTC-USDT-SWAP", update.Asset)
	assert.Equal(t, at, update.ReceivedAt)
	assert.Equal(t, []domain.PriceLevel{{Price: 95445.4, Size: 1104.23}, {Price: 95445.3, Size: 0.02}}, update.Bids)
	assert.Equal(t, []domain.PriceLevel{{Price: 95445.5, Size: 9.06}, {Price: 95448, Size: 2.05}}, update.Asks)
}

func TestParseLevels_DropsMalformed(t *testing.T) {
	raw := `[["100", "1"], ["abc", "1"], ["101"], ["102", "-3"], ["103", ""], [null, "1"], ["105", null], ["106", "1e400"], ["104", "2"]]`
	var levels [][]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &levels))

	got, errs := ParseLevels(levels)
	assert.Equal(t, []domain.PriceLevel{{Price: 100, Size: 1}, {Price: 104, Size: 2}}, got)
	require.Len(t, errs, 7)
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrMalformedLevel)
	}
}

func TestToDomainUpdate_NullPriceKeepsMidIntact(t *testing.T) {
	var msg L2Message
	require.NoError(t, json.Unmarshal(
		[]byte(`{"bids":[["100","1"]],"asks":[[null,"5"],["101","1"]]}`), &msg))

	update, errs := ToDomainUpdate(&msg, time.Now())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrMalformedLevel)
	assert.Equal(t, []domain.PriceLevel{{Price: 101, Size: 1}}, update.Asks)

	store := book.NewStore(20)
	require.True(t, store.Apply(update.Bids, update.Asks, update.ReceivedAt))
	snap := store.Snapshot()
	assert.Equal(t, 101.0, snap.BestAsk())
	assert.InDelta(t, 100.5, snap.MidPrice(), 1e-9)
}

func TestParseLevels_MissingSide(t *testing.T) {
	var msg L2Message
	require.NoError(t, json.Unmarshal([]byte(`{"bids": [["1","1"]]}`), &msg))

	update, errs := ToDomainUpdate(&msg, time.Now())
	assert.Empty(t, errs)
	assert.Len(t, update.Bids, 1)
	assert.Empty(t, update.Asks)
}
