package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// SimulationStore persists simulation results as an audit trail.
type SimulationStore interface {
	Insert(ctx context.Context, res SimulationResult) error
	InsertBatch(ctx context.Context, results []SimulationResult) error
	List(ctx context.Context, opts ListOpts) ([]SimulationResult, error)
	Count(ctx context.Context) (int64, error)
}
