package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// SimulationStore implements domain.SimulationStore using PostgreSQL.
type SimulationStore struct {
	pool *pgxpool.Pool
}

// NewSimulationStore creates a new SimulationStore backed by the given
// connection pool.
func NewSimulationStore(pool *pgxpool.Pool) *SimulationStore {
	return &SimulationStore{pool: pool}
}

const simulationSelectCols = `id, exchange, asset, order_type, quantity_usd,
	filled_quantity, avg_price, mid_price, slippage, reg_slippage,
	fee_rate, fee_amount, fee_tier, order_value, market_impact, net_cost,
	volatility, optimal_schedule, maker_prob, taker_prob, processing_time_ms,
	created_at`

const insertSimulationSQL = `
	INSERT INTO simulations (
		id, exchange, asset, order_type, quantity_usd,
		filled_quantity, avg_price, mid_price, slippage, reg_slippage,
		fee_rate, fee_amount, fee_tier, order_value, market_impact, net_cost,
		volatility, optimal_schedule, maker_prob, taker_prob, processing_time_ms,
		created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21,
		$22
	) ON CONFLICT (id) DO NOTHING`

func simulationArgs(r domain.SimulationResult) []any {
	return []any{
		r.ID, r.Exchange, r.Asset, string(r.Side), r.QuantityUSD,
		r.FilledQuantity, r.AvgPrice, r.MidPrice, r.Slippage, r.RegSlippage,
		r.Fees.Rate, r.Fees.Amount, r.Fees.Tier, r.Fees.OrderValue, r.MarketImpact, r.NetCost,
		r.Volatility, r.OptimalSchedule, r.MakerProb, r.TakerProb, r.ProcessingTimeMs,
		r.CreatedAt,
	}
}

func scanSimulationRows(rows pgx.Rows) ([]domain.SimulationResult, error) {
	var results []domain.SimulationResult
	for rows.Next() {
		var (
			r    domain.SimulationResult
			side string
		)
		if err := rows.Scan(
			&r.ID, &r.Exchange, &r.Asset, &side, &r.QuantityUSD,
			&r.FilledQuantity, &r.AvgPrice, &r.MidPrice, &r.Slippage, &r.RegSlippage,
			&r.Fees.Rate, &r.Fees.Amount, &r.Fees.Tier, &r.Fees.OrderValue, &r.MarketImpact, &r.NetCost,
			&r.Volatility, &r.OptimalSchedule, &r.MakerProb, &r.TakerProb, &r.ProcessingTimeMs,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.Side = domain.OrderSide(side)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Insert records one simulation. Re-inserting an ID is a no-op.
func (s *SimulationStore) Insert(ctx context.Context, res domain.SimulationResult) error {
	if _, err := s.pool.Exec(ctx, insertSimulationSQL, simulationArgs(res)...); err != nil {
		return fmt.Errorf("postgres: insert simulation %s: %w", res.ID, err)
	}
	return nil
}

// InsertBatch inserts multiple simulations in one round trip using pgx Batch.
func (s *SimulationStore) InsertBatch(ctx context.Context, results []domain.SimulationResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(insertSimulationSQL, simulationArgs(r)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert simulation batch item %d: %w", i, err)
		}
	}
	return nil
}

// List returns simulations newest first, filtered and paginated by opts.
func (s *SimulationStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.SimulationResult, error) {
	query, args := buildListQuery(opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list simulations: %w", err)
	}
	defer rows.Close()

	results, err := scanSimulationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan simulations: %w", err)
	}
	return results, nil
}

func buildListQuery(opts domain.ListOpts) (string, []any) {
	query := `SELECT ` + simulationSelectCols + ` FROM simulations WHERE TRUE`
	var args []any
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

// Count returns the number of recorded simulations.
func (s *SimulationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM simulations").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count simulations: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.SimulationStore = (*SimulationStore)(nil)
