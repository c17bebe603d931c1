// Package feed keeps the local book fresh from an external market-data
// stream or from book events relayed over the signal bus.
package feed

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/tradesim/internal/domain"
	"github.com/alanyoungcy/tradesim/internal/platform/gomarket"
)

// DefaultReconnectDelay is the fixed pause between connection attempts.
const DefaultReconnectDelay = 3 * time.Second

// UpdateHandler receives every decoded book update.
type UpdateHandler func(ctx context.Context, update domain.BookUpdate)

// Status is a point-in-time view of the ingester for health reporting.
type Status struct {
	URL           string    `json:"url"`
	Connected     bool      `json:"connected"`
	LastUpdate    time.Time `json:"last_update"`
	Reconnects    uint64    `json:"reconnects"`
	Messages      uint64    `json:"messages"`
	DroppedLevels uint64    `json:"dropped_levels"`
	LastError     string    `json:"last_error,omitempty"`
}

// Ingester holds a websocket connection to an L2 stream and hands every
// message to its handler. Any connection-level failure is logged and followed
// by a fixed delay and a fresh connection, with no retry ceiling.
type Ingester struct {
	wsURL          string
	reconnectDelay time.Duration
	onUpdate       UpdateHandler
	logger         *slog.Logger

	connected     atomic.Bool
	lastUpdate    atomic.Int64
	reconnects    atomic.Uint64
	messages      atomic.Uint64
	droppedLevels atomic.Uint64
	lastError     atomic.Pointer[string]
}

// NewIngester creates an Ingester for wsURL. A non-positive delay selects
// DefaultReconnectDelay.
func NewIngester(wsURL string, reconnectDelay time.Duration, onUpdate UpdateHandler, logger *slog.Logger) *Ingester {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Ingester{
		wsURL:          wsURL,
		reconnectDelay: reconnectDelay,
		onUpdate:       onUpdate,
		logger:         logger.With(slog.String("component", "feed_ingester")),
	}
}

// Run connects and keeps reconnecting until ctx is cancelled.
func (in *Ingester) Run(ctx context.Context) error {
	in.logger.InfoContext(ctx, "feed ingester starting", slog.String("url", in.wsURL))
	for {
		err := in.runConnection(ctx)
		in.connected.Store(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			msg := err.Error()
			in.lastError.Store(&msg)
		}
		in.reconnects.Add(1)
		in.logger.WarnContext(ctx, "feed disconnected, reconnecting",
			slog.String("error", errString(err)),
			slog.Duration("delay", in.reconnectDelay),
			slog.Uint64("reconnects", in.reconnects.Load()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(in.reconnectDelay):
		}
	}
}

func (in *Ingester) runConnection(ctx context.Context) error {
	client := gomarket.NewWSClient(in.wsURL, func(update domain.BookUpdate, errs []error) {
		in.handle(ctx, update, errs)
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	in.connected.Store(true)
	in.logger.InfoContext(ctx, "feed connected", slog.String("url", in.wsURL))

	return client.Wait(ctx)
}

func (in *Ingester) handle(ctx context.Context, update domain.BookUpdate, errs []error) {
	in.messages.Add(1)
	for _, err := range errs {
		in.droppedLevels.Add(1)
		in.logger.WarnContext(ctx, "dropping malformed level", slog.String("error", err.Error()))
	}
	if len(update.Bids) == 0 || len(update.Asks) == 0 {
		in.logger.WarnContext(ctx, "book message missing a side",
			slog.Int("bids", len(update.Bids)),
			slog.Int("asks", len(update.Asks)),
		)
	}
	if in.onUpdate != nil {
		in.onUpdate(ctx, update)
	}
	in.lastUpdate.Store(update.ReceivedAt.UnixNano())
}

// Status reports connection state and counters.
func (in *Ingester) Status() Status {
	st := Status{
		URL:           in.wsURL,
		Connected:     in.connected.Load(),
		Reconnects:    in.reconnects.Load(),
		Messages:      in.messages.Load(),
		DroppedLevels: in.droppedLevels.Load(),
	}
	if ns := in.lastUpdate.Load(); ns != 0 {
		st.LastUpdate = time.Unix(0, ns).UTC()
	}
	if msg := in.lastError.Load(); msg != nil {
		st.LastError = *msg
	}
	return st
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
