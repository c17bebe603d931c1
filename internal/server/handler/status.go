package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/tradesim/internal/domain"
	"github.com/alanyoungcy/tradesim/internal/feed"
)

// BookView is the read side of the local book.
type BookView interface {
	Snapshot() domain.BookSnapshot
	Depth() int
	Updates() uint64
	Market() (exchange, asset string)
}

// VolatilitySource exposes the volatility estimates.
type VolatilitySource interface {
	CurrentVolatility() float64
	VolatilityHistory(window int) []float64
}

// StatusHandler serves runtime status and the current book.
type StatusHandler struct {
	mode       string
	feed       func() feed.Status
	book       BookView
	volatility VolatilitySource
	startedAt  time.Time
}

// NewStatusHandler creates a StatusHandler. feedStatus may be nil when the
// process has no feed.
func NewStatusHandler(mode string, feedStatus func() feed.Status, book BookView, vol VolatilitySource) *StatusHandler {
	return &StatusHandler{
		mode:       mode,
		feed:       feedStatus,
		book:       book,
		volatility: vol,
		startedAt:  time.Now().UTC(),
	}
}

// GetStatus responds with mode, feed state, volatility and book depth.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	exchange, asset := h.book.Market()
	snap := h.book.Snapshot()

	body := map[string]any{
		"mode":           h.mode,
		"exchange":       exchange,
		"asset":          asset,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"volatility":     h.volatility.CurrentVolatility(),
		"book": map[string]any{
			"depth":       h.book.Depth(),
			"bid_levels":  len(snap.Bids),
			"ask_levels":  len(snap.Asks),
			"updates":     h.book.Updates(),
			"mid_price":   snap.MidPrice(),
			"last_update": snap.UpdatedAt,
		},
	}
	if h.feed != nil {
		body["feed"] = h.feed()
	}
	writeJSON(w, http.StatusOK, body)
}

// GetOrderBook responds with the current snapshot, best first.
// GET /api/orderbook
func (h *StatusHandler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	snap := h.book.Snapshot()
	if snap.Bids == nil {
		snap.Bids = []domain.PriceLevel{}
	}
	if snap.Asks == nil {
		snap.Asks = []domain.PriceLevel{}
	}
	exchange, asset := h.book.Market()
	writeJSON(w, http.StatusOK, map[string]any{
		"exchange":   exchange,
		"asset":      asset,
		"bids":       snap.Bids,
		"asks":       snap.Asks,
		"best_bid":   snap.BestBid(),
		"best_ask":   snap.BestAsk(),
		"mid_price":  snap.MidPrice(),
		"updated_at": snap.UpdatedAt,
	})
}
