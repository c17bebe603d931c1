package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

const (
	defaultQuantityUSD      = 100.0
	defaultVolatilityWindow = 20
)

// SimulationRunner runs and lists simulations.
type SimulationRunner interface {
	Simulate(ctx context.Context, req domain.SimulationRequest) (domain.SimulationResult, error)
	Recent(ctx context.Context, opts domain.ListOpts) ([]domain.SimulationResult, int64, error)
	VolatilitySource
}

// SimulateHandler serves the simulation endpoints.
type SimulateHandler struct {
	sims   SimulationRunner
	logger *slog.Logger
}

// NewSimulateHandler creates a SimulateHandler.
func NewSimulateHandler(sims SimulationRunner, logger *slog.Logger) *SimulateHandler {
	return &SimulateHandler{sims: sims, logger: logHandler(logger, "simulate")}
}

// Simulate prices a market order described by the query string.
// GET /simulate?quantity_usd=100&order_type=buy&volume_30d=0&exchange=OKX&asset=BTC-USDT-SWAP
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	req, err := parseSimulationRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.sims.Simulate(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, domain.ErrEmptyBook):
		writeError(w, http.StatusServiceUnavailable, "Order book is empty")
	case errors.Is(err, domain.ErrInsufficientLiquidity):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient liquidity")
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "simulation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseSimulationRequest(r *http.Request) (domain.SimulationRequest, error) {
	q := r.URL.Query()

	qty, err := floatParam(r, "quantity_usd", defaultQuantityUSD)
	if err != nil {
		return domain.SimulationRequest{}, err
	}
	vol30d, err := floatParam(r, "volume_30d", 0)
	if err != nil {
		return domain.SimulationRequest{}, err
	}

	side := domain.OrderSideBuy
	if v := q.Get("order_type"); v != "" {
		side, err = domain.ParseOrderSide(v)
		if err != nil {
			return domain.SimulationRequest{}, err
		}
	}

	req := domain.SimulationRequest{
		QuantityUSD: qty,
		Side:        side,
		Volume30d:   vol30d,
		Exchange:    q.Get("exchange"),
		Asset:       q.Get("asset"),
	}
	return req, req.Validate()
}

// ListSimulations pages through recorded simulations, newest first.
// GET /api/simulations?limit=50&offset=0
func (h *SimulateHandler) ListSimulations(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	results, total, err := h.sims.Recent(r.Context(), opts)
	if err != nil {
		if errors.Is(err, domain.ErrDisabled) {
			writeError(w, http.StatusNotFound, "simulation history is disabled")
			return
		}
		h.logger.ErrorContext(r.Context(), "list simulations failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if results == nil {
		results = []domain.SimulationResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"simulations": results,
		"total":       total,
		"limit":       opts.Limit,
		"offset":      opts.Offset,
	})
}

// VolatilityHistory returns rolling volatility over the retained mid prices.
// GET /api/volatility/history?window=20
func (h *SimulateHandler) VolatilityHistory(w http.ResponseWriter, r *http.Request) {
	window := defaultVolatilityWindow
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 {
			writeError(w, http.StatusBadRequest, "window must be an integer >= 2")
			return
		}
		window = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":     window,
		"current":    h.sims.CurrentVolatility(),
		"volatility": h.sims.VolatilityHistory(window),
	})
}
