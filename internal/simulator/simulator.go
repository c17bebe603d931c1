// Package simulator prices hypothetical market orders against the live book.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradesim/internal/domain"
	"github.com/alanyoungcy/tradesim/internal/models"
)

const (
	// fillTolerance is the share of requested notional that must fill.
	fillTolerance = 0.99

	// executionHorizonDays is the horizon passed to the impact model.
	executionHorizonDays = 1.0
)

// BookReader is the read side of the book store.
type BookReader interface {
	Snapshot() domain.BookSnapshot
}

// Config holds the model parameters used by a Simulator.
type Config struct {
	ImpactCoefficient float64
	RiskAversion      float64
	Regression        models.RegressionCoefficients
}

// Simulator walks book snapshots and composes the pricing models into a
// SimulationResult. It is safe for concurrent use.
type Simulator struct {
	book       BookReader
	fees       *models.FeeCalculator
	volatility *models.VolatilityCalculator
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Simulator reading from book.
func New(book BookReader, fees *models.FeeCalculator, vol *models.VolatilityCalculator, cfg Config, logger *slog.Logger) *Simulator {
	return &Simulator{
		book:       book,
		fees:       fees,
		volatility: vol,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "simulator")),
	}
}

// Volatility returns the calculator fed by simulations.
func (s *Simulator) Volatility() *models.VolatilityCalculator {
	return s.volatility
}

// Simulate prices a market order for req. It returns domain.ErrInvalidRequest,
// domain.ErrEmptyBook or domain.ErrInsufficientLiquidity (wrapped) when the
// order cannot be priced.
func (s *Simulator) Simulate(ctx context.Context, req domain.SimulationRequest) (domain.SimulationResult, error) {
	start := s.now()

	if err := req.Validate(); err != nil {
		return domain.SimulationResult{}, fmt.Errorf("simulator: %w", err)
	}

	snap := s.book.Snapshot()
	if snap.Empty() {
		return domain.SimulationResult{}, fmt.Errorf("simulator: %w", domain.ErrEmptyBook)
	}

	mid := snap.MidPrice()
	vol := s.volatility.Update(mid)
	impactModel := models.NewMarketImpactModel(vol, s.cfg.ImpactCoefficient, s.cfg.RiskAversion)

	levels := snap.Asks
	if req.Side == domain.OrderSideSell {
		levels = snap.Bids
	}
	f := walkBook(levels, req.QuantityUSD)
	avg := f.avgPrice()

	if f.qty == 0 || f.qty*avg < fillTolerance*req.QuantityUSD {
		s.logger.DebugContext(ctx, "insufficient liquidity",
			slog.Float64("quantity_usd", req.QuantityUSD),
			slog.Float64("filled_value", f.cost),
			slog.String("side", string(req.Side)),
		)
		return domain.SimulationResult{}, fmt.Errorf("simulator: %w: filled %.2f of %.2f",
			domain.ErrInsufficientLiquidity, f.cost, req.QuantityUSD)
	}

	slippage := avg - mid
	if req.Side == domain.OrderSideSell {
		slippage = mid - avg
	}

	regSlippage := s.cfg.Regression.SlippageRegression(f.qty, vol)
	makerProb, takerProb := s.cfg.Regression.MakerTakerProportion(f.qty, vol)
	fee := s.fees.Fee(domain.RoleTaker, f.qty, avg, req.Volume30d)
	impact, schedule := impactModel.OptimalExecution(f.qty, executionHorizonDays, mid)

	end := s.now()
	return domain.SimulationResult{
		ID:               uuid.NewString(),
		Exchange:         req.Exchange,
		Asset:            req.Asset,
		Side:             req.Side,
		QuantityUSD:      req.QuantityUSD,
		FilledQuantity:   f.qty,
		AvgPrice:         avg,
		Slippage:         slippage,
		RegSlippage:      regSlippage,
		MidPrice:         mid,
		Fees:             fee,
		MarketImpact:     impact,
		NetCost:          slippage + fee.Amount + impact,
		Volatility:       vol,
		ProcessingTimeMs: float64(end.Sub(start).Microseconds()) / 1000,
		OptimalSchedule:  schedule,
		MakerProb:        makerProb,
		TakerProb:        takerProb,
		CreatedAt:        end.UTC(),
	}, nil
}
