// Package book holds the live top-of-book state shared between the feed
// ingester and simulation requests.
package book

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// DefaultDepth is the number of levels retained per side.
const DefaultDepth = 20

// Store holds the current book as an immutable snapshot behind an atomic
// pointer. Update builds a new snapshot and swaps it in one step, so readers
// never block and never see one side from an older update.
type Store struct {
	depth   int
	current atomic.Pointer[domain.BookSnapshot]
	updates atomic.Uint64
}

// NewStore creates an empty Store retaining up to depth levels per side.
// A non-positive depth falls back to DefaultDepth.
func NewStore(depth int) *Store {
	if depth <= 0 {
		depth = DefaultDepth
	}
	s := &Store{depth: depth}
	s.current.Store(&domain.BookSnapshot{})
	return s
}

// Depth returns the per-side level limit.
func (s *Store) Depth() int {
	return s.depth
}

// Update sorts both sides best-first, truncates them to the configured depth
// and publishes them together. The input slices are not retained.
func (s *Store) Update(bids, asks []domain.PriceLevel) {
	s.UpdateAt(bids, asks, time.Now().UTC())
}

// UpdateAt is Update with an explicit timestamp.
func (s *Store) UpdateAt(bids, asks []domain.PriceLevel, at time.Time) {
	next := &domain.BookSnapshot{
		Bids:      normalise(bids, s.depth, func(a, b float64) bool { return a > b }),
		Asks:      normalise(asks, s.depth, func(a, b float64) bool { return a < b }),
		UpdatedAt: at,
	}
	s.current.Store(next)
	s.updates.Add(1)
}

// Apply publishes a feed update, keeping the previous side whenever the
// update carries no levels for it. It reports false when both sides are empty
// and nothing changed.
func (s *Store) Apply(bids, asks []domain.PriceLevel, at time.Time) bool {
	if len(bids) == 0 && len(asks) == 0 {
		return false
	}
	for {
		cur := s.current.Load()
		next := &domain.BookSnapshot{Bids: cur.Bids, Asks: cur.Asks, UpdatedAt: at}
		if len(bids) > 0 {
			next.Bids = normalise(bids, s.depth, func(a, b float64) bool { return a > b })
		}
		if len(asks) > 0 {
			next.Asks = normalise(asks, s.depth, func(a, b float64) bool { return a < b })
		}
		if s.current.CompareAndSwap(cur, next) {
			s.updates.Add(1)
			return true
		}
	}
}

// Snapshot returns a copy of the current book. The caller owns the returned
// slices.
func (s *Store) Snapshot() domain.BookSnapshot {
	cur := s.current.Load()
	return domain.BookSnapshot{
		Bids:      append([]domain.PriceLevel(nil), cur.Bids...),
		Asks:      append([]domain.PriceLevel(nil), cur.Asks...),
		UpdatedAt: cur.UpdatedAt,
	}
}

// Updates returns the number of updates applied since construction.
func (s *Store) Updates() uint64 {
	return s.updates.Load()
}

func normalise(levels []domain.PriceLevel, depth int, better func(a, b float64) bool) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		return better(out[i].Price, out[j].Price)
	})
	if len(out) > depth {
		out = out[:depth]
	}
	return out
}
