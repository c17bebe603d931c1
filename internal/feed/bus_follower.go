package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// BusFollower rebuilds the local book from book events relayed on the signal
// bus, so an API process can serve simulations while another process owns the
// websocket.
type BusFollower struct {
	bus        domain.SignalBus
	onUpdate   UpdateHandler
	logger     *slog.Logger
	lastUpdate atomic.Int64
	messages   atomic.Uint64
}

// NewBusFollower creates a BusFollower.
func NewBusFollower(bus domain.SignalBus, onUpdate UpdateHandler, logger *slog.Logger) *BusFollower {
	return &BusFollower{
		bus:      bus,
		onUpdate: onUpdate,
		logger:   logger.With(slog.String("component", "bus_follower")),
	}
}

// Run subscribes to the book channel and applies each event until ctx is
// cancelled.
func (f *BusFollower) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, domain.ChannelBook)
	if err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "bus follower started")
	defer f.logger.Info("bus follower stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			var evt domain.BookEvent
			if err := json.Unmarshal(data, &evt); err != nil {
				f.logger.WarnContext(ctx, "bus follower: bad book event", slog.String("error", err.Error()))
				continue
			}
			ts := evt.Timestamp
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			f.onUpdate(ctx, domain.BookUpdate{
				Exchange:   evt.Exchange,
				Asset:      evt.Asset,
				Bids:       evt.Bids,
				Asks:       evt.Asks,
				ReceivedAt: ts,
			})
			f.messages.Add(1)
			f.lastUpdate.Store(ts.UnixNano())
		}
	}
}

// Status reports the follower in the same shape as the websocket ingester.
func (f *BusFollower) Status() Status {
	st := Status{
		URL:       "bus:" + domain.ChannelBook,
		Connected: true,
		Messages:  f.messages.Load(),
	}
	if ns := f.lastUpdate.Load(); ns != 0 {
		st.LastUpdate = time.Unix(0, ns).UTC()
	}
	return st
}
