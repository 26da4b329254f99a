// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/api"
	"dollartracker/internal/cache"
	"dollartracker/internal/config"
	"dollartracker/internal/history"
	"dollartracker/internal/history/postgres"
	"dollartracker/internal/httpx"
	"dollartracker/internal/messaging"
	"dollartracker/internal/refresher"
	"dollartracker/internal/service"
	"dollartracker/internal/status"
	"dollartracker/internal/synthetic"
)

// App owns every long-lived component of the process.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	http       *httpx.Client
	Tracker    *status.Tracker
	Aggregator *aggregate.Aggregator
	Store      history.Store
	Publisher  messaging.Publisher
	Service    *service.Service
	Refresher  *refresher.Refresher
	Server     *api.Server

	closers []func() error
}

// New wires the components. Optional backends (Redis, PostgreSQL, NATS)
// that cannot be reached are logged and replaced by in-process ones.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	a.http = httpx.New(10 * time.Second)
	a.closers = append(a.closers, func() error { a.http.CloseIdle(); return nil })

	up := BuildUpstreams(cfg.Sources, a.http)
	if len(up.Registry) == 0 {
		logger.Warn("no sources enabled, every snapshot will be placeholder data")
	}
	a.Tracker = status.New(up.Registry)

	a.Store = a.openStore()
	a.closers = append(a.closers, a.Store.Close)

	a.Aggregator = aggregate.New(aggregate.Options{
		Sides:   up.Sides,
		Quotes:  up.Quotes,
		Batches: up.Batches,
		Tracker: a.Tracker,
		Change:  &history.ChangeLookup{Store: a.Store, Tolerance: time.Hour},
		Logger:  logger.Named("aggregate"),
	})

	a.Service = service.New(service.Options{
		Aggregator: a.Aggregator,
		Cache:      a.openCache(ctx),
		TTL:        cfg.Cache.TTL,
		Points:     &history.Feed{Store: a.Store},
		Fallback:   synthetic.New(uint64(time.Now().UnixNano()), nil),
		Tracker:    a.Tracker,
		Version:    cfg.Server.Version,
		Logger:     logger.Named("service"),
	})

	a.Publisher = a.openPublisher()
	a.closers = append(a.closers, a.Publisher.Close)

	a.Refresher = &refresher.Refresher{
		Service:       a.Service,
		Store:         a.Store,
		Publisher:     a.Publisher,
		Logger:        logger.Named("refresher"),
		FetchInterval: cfg.History.FetchInterval,
		StoreInterval: cfg.History.StoreInterval,
		PruneEvery:    cfg.History.PruneInterval,
		Retention:     cfg.History.Retention,
	}
	a.Server = api.NewServer(cfg.Server, a.Service, logger)
	return a, nil
}

func (a *App) openStore() history.Store {
	if !a.cfg.History.Enabled {
		return history.NewMemory()
	}
	pg, err := postgres.Open(a.cfg.History.Postgres, false)
	if err != nil {
		a.logger.Warn("PostgreSQL unavailable, keeping history in memory", zap.Error(err))
		return history.NewMemory()
	}
	a.logger.Info("history stored in PostgreSQL", zap.String("db", a.cfg.History.Postgres.DBName))
	return pg
}

func (a *App) openCache(ctx context.Context) cache.Cache[*aggregate.Snapshot] {
	if a.cfg.Cache.Backend != "redis" {
		return cache.NewMemory[*aggregate.Snapshot]()
	}
	client, err := cache.Dial(ctx, a.cfg.Cache.Redis)
	if err != nil {
		a.logger.Warn("Redis unavailable, caching in memory", zap.Error(err))
		return cache.NewMemory[*aggregate.Snapshot]()
	}
	rc := cache.NewRedis[*aggregate.Snapshot](client, "dollartracker:", a.cfg.Cache.TTL, a.logger)
	a.closers = append(a.closers, rc.Close)
	return rc
}

func (a *App) openPublisher() messaging.Publisher {
	if !a.cfg.NATS.Enabled {
		return messaging.Nop{}
	}
	n, err := messaging.Connect(a.cfg.NATS, a.logger)
	if err != nil {
		a.logger.Warn("NATS unavailable, snapshots will not be published", zap.Error(err))
		return messaging.Nop{}
	}
	return n
}

// Run serves HTTP and runs the background cycle until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Refresher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return a.Server.ListenAndServe(ctx)
	})
	return g.Wait()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
