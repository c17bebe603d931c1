package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradesim/internal/domain"
	"github.com/alanyoungcy/tradesim/internal/models"
)

// Simulator prices a single request.
type Simulator interface {
	Simulate(ctx context.Context, req domain.SimulationRequest) (domain.SimulationResult, error)
	Volatility() *models.VolatilityCalculator
}

// SimulationService runs simulations and records successful results to the
// audit store, the simulation channel and the archive stream.
type SimulationService struct {
	sim      Simulator
	store    domain.SimulationStore
	bus      domain.SignalBus
	exchange string
	asset    string
	logger   *slog.Logger
}

// NewSimulationService creates a SimulationService. store and bus may be nil.
func NewSimulationService(
	sim Simulator,
	store domain.SimulationStore,
	bus domain.SignalBus,
	exchange, asset string,
	logger *slog.Logger,
) *SimulationService {
	return &SimulationService{
		sim:      sim,
		store:    store,
		bus:      bus,
		exchange: exchange,
		asset:    asset,
		logger:   logger.With(slog.String("component", "simulation_service")),
	}
}

// Simulate prices req. Empty exchange or asset fields take the configured
// market. Recording failures are logged and do not fail the request.
func (s *SimulationService) Simulate(ctx context.Context, req domain.SimulationRequest) (domain.SimulationResult, error) {
	if req.Exchange == "" {
		req.Exchange = s.exchange
	}
	if req.Asset == "" {
		req.Asset = s.asset
	}

	res, err := s.sim.Simulate(ctx, req)
	if err != nil {
		return domain.SimulationResult{}, err
	}
	s.logger.DebugContext(ctx, "simulation complete",
		slog.String("id", res.ID),
		slog.String("side", string(res.Side)),
		slog.Float64("quantity_usd", res.QuantityUSD),
		slog.Float64("net_cost", res.NetCost),
		slog.Float64("processing_time_ms", res.ProcessingTimeMs),
	)

	s.record(ctx, res)
	return res, nil
}

func (s *SimulationService) record(ctx context.Context, res domain.SimulationResult) {
	if s.store != nil {
		if err := s.store.Insert(ctx, res); err != nil {
			s.logger.WarnContext(ctx, "store simulation failed",
				slog.String("id", res.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode simulation failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelSimulation, payload); err != nil {
		s.logger.WarnContext(ctx, "publish simulation failed",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamSimulations, payload); err != nil {
		s.logger.WarnContext(ctx, "append simulation stream failed",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Recent lists recorded simulations newest first. It returns
// domain.ErrDisabled when no audit store is configured.
func (s *SimulationService) Recent(ctx context.Context, opts domain.ListOpts) ([]domain.SimulationResult, int64, error) {
	if s.store == nil {
		return nil, 0, domain.ErrDisabled
	}
	results, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("simulation_service: list: %w", err)
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("simulation_service: count: %w", err)
	}
	return results, total, nil
}

// CurrentVolatility is the latest rolling volatility estimate.
func (s *SimulationService) CurrentVolatility() float64 {
	return s.sim.Volatility().Current()
}

// VolatilityHistory computes the rolling volatility series over the mid
// prices seen so far.
func (s *SimulationService) VolatilityHistory(window int) []float64 {
	return models.HistoricalVolatility(s.sim.Volatility().Prices(), window)
}
