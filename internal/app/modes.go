package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradesim/internal/book"
	"github.com/alanyoungcy/tradesim/internal/feed"
	"github.com/alanyoungcy/tradesim/internal/models"
	"github.com/alanyoungcy/tradesim/internal/server"
	"github.com/alanyoungcy/tradesim/internal/server/handler"
	"github.com/alanyoungcy/tradesim/internal/server/ws"
	"github.com/alanyoungcy/tradesim/internal/service"
	"github.com/alanyoungcy/tradesim/internal/simulator"
)

// shutdownTimeout bounds the HTTP drain once the context is cancelled.
const shutdownTimeout = 5 * time.Second

// newBookService builds the local book and the service that feeds it.
func (a *App) newBookService(deps *Dependencies, mirrored bool) *service.BookService {
	store := book.NewStore(a.cfg.Book.Depth)
	if !mirrored {
		return service.NewBookService(store, nil, nil, a.cfg.Feed.Exchange, a.cfg.Feed.Asset, a.logger)
	}
	return service.NewBookService(store, deps.BookMirror, deps.SignalBus, a.cfg.Feed.Exchange, a.cfg.Feed.Asset, a.logger)
}

// newSimulationService composes the pricing models over books.
func (a *App) newSimulationService(deps *Dependencies, books *service.BookService) *service.SimulationService {
	mc := a.cfg.Models
	sim := simulator.New(
		books,
		models.NewFeeCalculator(mc.Tiers()),
		models.NewVolatilityCalculator(mc.VolatilityWindow),
		simulator.Config{
			ImpactCoefficient: mc.ImpactCoefficient,
			RiskAversion:      mc.RiskAversion,
			Regression:        mc.Regression,
		},
		a.logger,
	)
	return service.NewSimulationService(sim, deps.SimulationStore, deps.SignalBus, a.cfg.Feed.Exchange, a.cfg.Feed.Asset, a.logger)
}

// FullMode runs the websocket feed, the API and, when S3 is enabled, the
// archive loop in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	books := a.newBookService(deps, true)
	sims := a.newSimulationService(deps, books)

	ingester := feed.NewIngester(a.cfg.Feed.URL, a.cfg.Feed.ReconnectDelay.Duration, books.HandleUpdate, a.logger)
	g.Go(func() error {
		return ingester.Run(ctx)
	})

	a.startArchiver(ctx, g, deps)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, books, sims, ingester.Status)
	}

	return g.Wait()
}

// IngestMode keeps the book fresh and relays it through Redis for api-mode
// processes. It serves no HTTP.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode",
		slog.Bool("mirror", deps.BookMirror != nil),
	)

	g, ctx := errgroup.WithContext(ctx)

	books := a.newBookService(deps, true)
	ingester := feed.NewIngester(a.cfg.Feed.URL, a.cfg.Feed.ReconnectDelay.Duration, books.HandleUpdate, a.logger)
	g.Go(func() error {
		return ingester.Run(ctx)
	})

	return g.Wait()
}

// APIMode serves simulations from a book rebuilt from the Redis book channel.
// The book is neither mirrored nor republished, since the ingest process
// already owns both.
func (a *App) APIMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting api mode")

	g, ctx := errgroup.WithContext(ctx)

	books := a.newBookService(deps, false)
	sims := a.newSimulationService(deps, books)

	follower := feed.NewBusFollower(deps.SignalBus, books.HandleUpdate, a.logger)
	g.Go(func() error {
		return follower.Run(ctx)
	})

	a.startArchiver(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, books, sims, follower.Status)

	return g.Wait()
}

// startArchiver adds the archive loop to g when an archiver is wired.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	archives := service.NewArchiveService(
		deps.SignalBus,
		deps.Archiver,
		a.cfg.Archive.Interval.Duration,
		a.cfg.Archive.BatchSize,
		a.logger,
	)
	g.Go(func() error {
		return archives.Run(ctx)
	})
}

// startHTTPServer adds the HTTP server and websocket hub to g. The server is
// drained when ctx is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	books *service.BookService,
	sims *service.SimulationService,
	feedStatus func() feed.Status,
) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.cfg.Server.CORSOrigins, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:         a.cfg.Server.Port,
			CORSOrigins:  a.cfg.Server.CORSOrigins,
			APIKey:       a.cfg.Server.APIKey,
			RateLimitRPS: a.cfg.Server.RateLimitRPS,
			RateBurst:    a.cfg.Server.RateBurst,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(deps.Probes, a.logger),
			Status:   handler.NewStatusHandler(a.cfg.Mode, feedStatus, books, sims),
			Simulate: handler.NewSimulateHandler(sims, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
