package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradesim/internal/book"
	"github.com/alanyoungcy/tradesim/internal/cache/memory"
	"github.com/alanyoungcy/tradesim/internal/domain"
)

func TestBusFollower_AppliesBookEvents(t *testing.T) {
	bus := memory.NewSignalBus(0)
	store := book.NewStore(book.DefaultDepth)
	f := NewBusFollower(bus, func(_ context.Context, u domain.BookUpdate) {
		store.Apply(u.Bids, u.Asks, u.ReceivedAt)
	}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	evt, err := json.Marshal(domain.BookEvent{
		Event: "book_update",
		Bids:  []domain.PriceLevel{{Price: 10, Size: 1}},
		Asks:  []domain.PriceLevel{{Price: 11, Size: 1}},
	})
	require.NoError(t, err)

	// Publish until the subscription is registered and the event lands.
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, domain.ChannelBook, []byte("garbage"))
		_ = bus.Publish(ctx, domain.ChannelBook, evt)
		return !store.Snapshot().Empty()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 10.5, store.Snapshot().MidPrice())
	assert.GreaterOrEqual(t, f.Status().Messages, uint64(1))
}
