package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradesim/internal/book"
	"github.com/alanyoungcy/tradesim/internal/cache/memory"
	"github.com/alanyoungcy/tradesim/internal/domain"
	"github.com/alanyoungcy/tradesim/internal/models"
	"github.com/alanyoungcy/tradesim/internal/simulator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMirror struct {
	mu    sync.Mutex
	snaps map[string]domain.BookSnapshot
	err   error
}

func (m *fakeMirror) SetSnapshot(_ context.Context, key string, snap domain.BookSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.snaps == nil {
		m.snaps = make(map[string]domain.BookSnapshot)
	}
	m.snaps[key] = snap
	return nil
}

func (m *fakeMirror) GetSnapshot(_ context.Context, key string) (domain.BookSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[key]
	if !ok {
		return domain.BookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (m *fakeMirror) GetBBO(ctx context.Context, key string) (float64, float64, error) {
	snap, err := m.GetSnapshot(ctx, key)
	if err != nil {
		return 0, 0, err
	}
	return snap.BestBid(), snap.BestAsk(), nil
}

type fakeStore struct {
	mu      sync.Mutex
	results []domain.SimulationResult
	err     error
}

func (s *fakeStore) Insert(_ context.Context, res domain.SimulationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.results = append(s.results, res)
	return nil
}

func (s *fakeStore) InsertBatch(ctx context.Context, results []domain.SimulationResult) error {
	for _, r := range results {
		if err := s.Insert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) List(_ context.Context, opts domain.ListOpts) ([]domain.SimulationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.SimulationResult(nil), s.results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.results)), nil
}

func levels(pairs ...float64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.PriceLevel{Price: pairs[i], Size: pairs[i+1]})
	}
	return out
}

func TestBookService_AppliesMirrorsAndPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus(0)
	events, err := bus.Subscribe(ctx, domain.ChannelBook)
	require.NoError(t, err)

	mirror := &fakeMirror{}
	svc := NewBookService(book.NewStore(5), mirror, bus, "OKX", "BTC-USDT-SWAP", discardLogger())

	at := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc.HandleUpdate(ctx, domain.BookUpdate{
		Bids:       levels(99, 1, 100, 2),
		Asks:       levels(102, 1, 101, 3),
		ReceivedAt: at,
	})

	snap := svc.Snapshot()
	assert.Equal(t, 100.0, snap.BestBid())
	assert.Equal(t, 101.0, snap.BestAsk())
	assert.Equal(t, uint64(1), svc.Updates())

	mirrored, err := mirror.GetSnapshot(ctx, "OKX:BTC-USDT-SWAP")
	require.NoError(t, err)
	assert.Equal(t, snap.Bids, mirrored.Bids)

	select {
	case data := <-events:
		var evt domain.BookEvent
		require.NoError(t, json.Unmarshal(data, &evt))
		assert.Equal(t, "book_update", evt.Event)
		assert.Equal(t, "OKX", evt.Exchange)
		assert.Equal(t, 100.5, evt.MidPrice)
		assert.True(t, at.Equal(evt.Timestamp))
	case <-time.After(time.Second):
		t.Fatal("no book event published")
	}
}

func TestBookService_MirrorFailureDoesNotBlockUpdate(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("redis down")}
	svc := NewBookService(book.NewStore(5), mirror, nil, "OKX", "BTC", discardLogger())

	svc.HandleUpdate(context.Background(), domain.BookUpdate{
		Bids: levels(100, 1),
		Asks: levels(101, 1),
	})
	assert.False(t, svc.Snapshot().Empty())
}

func TestBookService_UnencodableBookSkipsPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewSignalBus(0)
	events, err := bus.Subscribe(ctx, domain.ChannelBook)
	require.NoError(t, err)

	svc := NewBookService(book.NewStore(5), nil, bus, "OKX", "BTC", discardLogger())
	svc.HandleUpdate(ctx, domain.BookUpdate{
		Bids: levels(100, 1),
		Asks: []domain.PriceLevel{{Price: 101, Size: math.Inf(1)}},
	})

	assert.False(t, svc.Snapshot().Empty())
	select {
	case data := <-events:
		t.Fatalf("unexpected book event %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBookService_EmptyUpdateIgnored(t *testing.T) {
	mirror := &fakeMirror{}
	svc := NewBookService(book.NewStore(5), mirror, nil, "OKX", "BTC", discardLogger())

	svc.HandleUpdate(context.Background(), domain.BookUpdate{})
	assert.True(t, svc.Snapshot().Empty())
	assert.Empty(t, mirror.snaps)
}

func newSimulationService(t *testing.T, store domain.SimulationStore, bus domain.SignalBus) (*SimulationService, *book.Store) {
	t.Helper()
	books := book.NewStore(book.DefaultDepth)
	sim := simulator.New(
		books,
		models.NewFeeCalculator(nil),
		models.NewVolatilityCalculator(models.DefaultVolatilityWindow),
		simulator.Config{
			ImpactCoefficient: models.DefaultImpactCoefficient,
			RiskAversion:      models.DefaultRiskAversion,
			Regression:        models.DefaultRegression(),
		},
		discardLogger(),
	)
	return NewSimulationService(sim, store, bus, "OKX", "BTC-USDT-SWAP", discardLogger()), books
}

func TestSimulationService_RecordsResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &fakeStore{}
	bus := memory.NewSignalBus(0)
	sims, err := bus.Subscribe(ctx, domain.ChannelSimulation)
	require.NoError(t, err)

	svc, books := newSimulationService(t, store, bus)
	books.Update(levels(10000, 1), levels(10010, 5))

	res, err := svc.Simulate(ctx, domain.SimulationRequest{QuantityUSD: 100, Side: domain.OrderSideBuy})
	require.NoError(t, err)
	assert.Equal(t, "OKX", res.Exchange)
	assert.Equal(t, "BTC-USDT-SWAP", res.Asset)

	list, total, err := svc.Recent(ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)

	select {
	case data := <-sims:
		var got domain.SimulationResult
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, res.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("no simulation event published")
	}

	msgs, err := bus.StreamRead(ctx, domain.StreamSimulations, "0", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSimulationService_FailedSimulationNotRecorded(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newSimulationService(t, store, nil)

	_, err := svc.Simulate(context.Background(), domain.SimulationRequest{QuantityUSD: 100, Side: domain.OrderSideBuy})
	require.ErrorIs(t, err, domain.ErrEmptyBook)
	assert.Empty(t, store.results)
}

func TestSimulationService_StoreFailureStillReturnsResult(t *testing.T) {
	svc, books := newSimulationService(t, &fakeStore{err: errors.New("db down")}, nil)
	books.Update(levels(100, 10), levels(101, 10))

	_, err := svc.Simulate(context.Background(), domain.SimulationRequest{QuantityUSD: 50, Side: domain.OrderSideSell})
	require.NoError(t, err)
}

func TestSimulationService_RecentDisabledWithoutStore(t *testing.T) {
	svc, _ := newSimulationService(t, nil, nil)
	_, _, err := svc.Recent(context.Background(), domain.ListOpts{})
	assert.ErrorIs(t, err, domain.ErrDisabled)
}

func TestSimulationService_VolatilityHistory(t *testing.T) {
	svc, books := newSimulationService(t, nil, nil)
	for i := 0; i < 6; i++ {
		p := 100 + float64(i%2)
		books.Update(levels(p, 10), levels(p+1, 10))
		_, err := svc.Simulate(context.Background(), domain.SimulationRequest{QuantityUSD: 10, Side: domain.OrderSideBuy})
		require.NoError(t, err)
	}
	assert.Greater(t, svc.CurrentVolatility(), 0.0)
	assert.NotEmpty(t, svc.VolatilityHistory(3))
}
