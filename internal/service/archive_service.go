package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

const (
	defaultArchiveInterval = 5 * time.Minute
	defaultArchiveBatch    = 1000
)

// Archiver uploads a batch of simulation results and returns the object key.
type Archiver interface {
	Archive(ctx context.Context, results []domain.SimulationResult, at time.Time) (string, error)
}

// ArchiveService drains the simulation stream into object storage on a fixed
// interval. The stream cursor only advances after a successful upload, so a
// failed batch is retried on the next tick.
type ArchiveService struct {
	bus      domain.SignalBus
	archiver Archiver
	interval time.Duration
	batch    int
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	lastID string
}

// NewArchiveService creates an ArchiveService. Non-positive interval and
// batch select 5 minutes and 1000.
func NewArchiveService(bus domain.SignalBus, archiver Archiver, interval time.Duration, batch int, logger *slog.Logger) *ArchiveService {
	if interval <= 0 {
		interval = defaultArchiveInterval
	}
	if batch <= 0 {
		batch = defaultArchiveBatch
	}
	return &ArchiveService{
		bus:      bus,
		archiver: archiver,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "archive_service")),
		lastID:   "0",
	}
}

// Run archives on every tick until ctx is cancelled. A final flush runs on
// shutdown with a short detached deadline.
func (s *ArchiveService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "archive service started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := s.Flush(flushCtx); err != nil {
				s.logger.Warn("final archive flush failed", slog.String("error", err.Error()))
			}
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.Flush(ctx); err != nil {
				s.logger.WarnContext(ctx, "archive flush failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.logger.InfoContext(ctx, "archived simulations", slog.Int("count", n))
			}
		}
	}
}

// Flush uploads every pending stream entry in batches and returns how many
// results were archived.
func (s *ArchiveService) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for {
		msgs, err := s.bus.StreamRead(ctx, domain.StreamSimulations, s.lastID, s.batch)
		if err != nil {
			return total, fmt.Errorf("archive_service: read stream: %w", err)
		}
		if len(msgs) == 0 {
			return total, nil
		}

		results := make([]domain.SimulationResult, 0, len(msgs))
		for _, m := range msgs {
			var r domain.SimulationResult
			if err := json.Unmarshal(m.Payload, &r); err != nil {
				s.logger.WarnContext(ctx, "skipping undecodable stream entry",
					slog.String("id", m.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			results = append(results, r)
		}

		path, err := s.archiver.Archive(ctx, results, s.now())
		if err != nil {
			return total, fmt.Errorf("archive_service: upload: %w", err)
		}
		s.lastID = msgs[len(msgs)-1].ID
		total += len(results)
		if path != "" {
			s.logger.DebugContext(ctx, "archive batch uploaded",
				slog.String("path", path),
				slog.Int("count", len(results)),
			)
		}
		if len(msgs) < s.batch {
			return total, nil
		}
	}
}
