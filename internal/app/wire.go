package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/tradesim/internal/blob/s3"
	"github.com/alanyoungcy/tradesim/internal/cache/memory"
	"github.com/alanyoungcy/tradesim/internal/cache/redis"
	"github.com/alanyoungcy/tradesim/internal/config"
	"github.com/alanyoungcy/tradesim/internal/domain"
	"github.com/alanyoungcy/tradesim/internal/server/handler"
	"github.com/alanyoungcy/tradesim/internal/store/postgres"
)

// memoryBusMaxLen bounds the in-process archive stream when Redis is off.
const memoryBusMaxLen = 10000

// Dependencies bundles the optional backends a mode runs against. Every field
// except SignalBus may be nil when its backend is disabled.
type Dependencies struct {
	SignalBus       domain.SignalBus
	BookMirror      domain.BookMirror
	SimulationStore domain.SimulationStore
	Archiver        *s3blob.SimulationArchiver

	// Probes feed /api/health, keyed by backend name.
	Probes map[string]handler.Probe
}

// Wire connects the enabled backends and returns them together with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Probes: make(map[string]handler.Probe)}

	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			MaxRetries:  cfg.Redis.MaxRetries,
			TLSEnabled:  cfg.Redis.TLSEnabled,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
		if cfg.Redis.MirrorBook {
			deps.BookMirror = redis.NewBookMirror(redisClient, cfg.Redis.BookTTL.Duration)
		}
		deps.Probes["redis"] = redisClient.Ping
		logger.InfoContext(ctx, "redis connected",
			slog.String("addr", cfg.Redis.Addr),
			slog.Bool("mirror_book", cfg.Redis.MirrorBook),
		)
	} else {
		deps.SignalBus = memory.NewSignalBus(memoryBusMaxLen)
		logger.InfoContext(ctx, "redis disabled, using in-process signal bus")
	}

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.SimulationStore = postgres.NewSimulationStore(pgClient.Pool())
		deps.Probes["postgres"] = pgClient.Pool().Ping
		logger.InfoContext(ctx, "postgres connected", slog.Bool("migrations", cfg.Postgres.RunMigrations))
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewSimulationArchiver(s3blob.NewWriter(s3Client), cfg.Archive.Prefix)
		deps.Probes["s3"] = s3Client.Health
		logger.InfoContext(ctx, "s3 archive enabled", slog.String("bucket", cfg.S3.Bucket))
	}

	return deps, cleanup, nil
}
