// Package service coordinates the book store, the simulator and the optional
// mirror, bus, audit and archive backends.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/tradesim/internal/book"
	"github.com/alanyoungcy/tradesim/internal/domain"
)

// BookService applies feed updates to the local book and fans them out to the
// mirror and the bus. Mirror and bus are optional; their failures are logged
// and never block the local update.
type BookService struct {
	store    *book.Store
	mirror   domain.BookMirror
	bus      domain.SignalBus
	exchange string
	asset    string
	logger   *slog.Logger
}

// NewBookService creates a BookService. mirror and bus may be nil.
func NewBookService(
	store *book.Store,
	mirror domain.BookMirror,
	bus domain.SignalBus,
	exchange, asset string,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:    store,
		mirror:   mirror,
		bus:      bus,
		exchange: exchange,
		asset:    asset,
		logger:   logger.With(slog.String("component", "book_service")),
	}
}

// HandleUpdate applies one feed message. It has the feed.UpdateHandler
// signature.
func (s *BookService) HandleUpdate(ctx context.Context, upd domain.BookUpdate) {
	if !s.store.Apply(upd.Bids, upd.Asks, upd.ReceivedAt) {
		return
	}
	snap := s.store.Snapshot()

	exchange, asset := upd.Exchange, upd.Asset
	if exchange == "" {
		exchange = s.exchange
	}
	if asset == "" {
		asset = s.asset
	}

	if s.mirror != nil {
		if err := s.mirror.SetSnapshot(ctx, bookKey(exchange, asset), snap); err != nil {
			s.logger.WarnContext(ctx, "mirror book snapshot failed",
				slog.String("asset", asset),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		evt, err := json.Marshal(domain.BookEvent{
			Event:     "book_update",
			Exchange:  exchange,
			Asset:     asset,
			Bids:      snap.Bids,
			Asks:      snap.Asks,
			BestBid:   snap.BestBid(),
			BestAsk:   snap.BestAsk(),
			MidPrice:  snap.MidPrice(),
			Timestamp: snap.UpdatedAt,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "encode book event failed",
				slog.String("asset", asset),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := s.bus.Publish(ctx, domain.ChannelBook, evt); err != nil {
			s.logger.WarnContext(ctx, "publish book event failed",
				slog.String("asset", asset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Snapshot returns a copy of the current local book.
func (s *BookService) Snapshot() domain.BookSnapshot {
	return s.store.Snapshot()
}

// Depth is the number of levels kept per side.
func (s *BookService) Depth() int {
	return s.store.Depth()
}

// Updates counts applied book updates.
func (s *BookService) Updates() uint64 {
	return s.store.Updates()
}

// Market returns the configured exchange and asset.
func (s *BookService) Market() (exchange, asset string) {
	return s.exchange, s.asset
}

func bookKey(exchange, asset string) string {
	return exchange + ":" + asset
}
