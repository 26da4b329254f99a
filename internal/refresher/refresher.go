// Package refresher keeps the cached snapshot warm, persists it to history
// and prunes old ticks.
package refresher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/history"
	"dollartracker/internal/messaging"
	"dollartracker/internal/metrics"
)

// Refresh is satisfied by *service.Service.
type Refresh interface {
	Refresh(ctx context.Context) *aggregate.Snapshot
}

type state struct {
	snapshot  *aggregate.Snapshot
	fetchedAt time.Time
}

type Refresher struct {
	Service   Refresh
	Store     history.Store
	Publisher messaging.Publisher
	Logger    *zap.Logger

	FetchInterval time.Duration
	StoreInterval time.Duration
	PruneEvery    time.Duration
	Retention     time.Duration

	Now func() time.Time

	once   sync.Once
	latest atomic.Pointer[state]
	stored time.Time
}

func (r *Refresher) setup() { r.once.Do(r.defaults) }

func (r *Refresher) defaults() {
	if r.FetchInterval <= 0 {
		r.FetchInterval = 5 * time.Second
	}
	if r.StoreInterval <= 0 {
		r.StoreInterval = time.Second
	}
	if r.PruneEvery <= 0 {
		r.PruneEvery = time.Hour
	}
	if r.Retention <= 0 {
		r.Retention = 7 * 24 * time.Hour
	}
	if r.Publisher == nil {
		r.Publisher = messaging.Nop{}
	}
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}
	if r.Now == nil {
		r.Now = time.Now
	}
}

// Latest returns the snapshot of the most recent fetch, or nil before the
// first one completes.
func (r *Refresher) Latest() *aggregate.Snapshot {
	if s := r.latest.Load(); s != nil {
		return s.snapshot
	}
	return nil
}

// Run blocks until ctx is cancelled and every loop has returned. Without a
// Store only the fetch loop runs.
func (r *Refresher) Run(ctx context.Context) {
	r.setup()
	loops := []loop{{r.FetchInterval, r.Fetch}}
	if r.Store != nil {
		loops = append(loops, loop{r.StoreInterval, r.Persist}, loop{r.PruneEvery, r.Prune})
	}
	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.run(ctx)
		}()
	}
	wg.Wait()
	r.Logger.Info("refresher stopped")
}

type loop struct {
	every time.Duration
	fn    func(context.Context)
}

// run calls fn immediately and then on every tick.
func (l loop) run(ctx context.Context) {
	l.fn(ctx)
	t := time.NewTicker(l.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.fn(ctx)
		}
	}
}

// Fetch refreshes the cached snapshot and publishes it.
func (r *Refresher) Fetch(ctx context.Context) {
	r.setup()
	if ctx.Err() != nil {
		return
	}
	snap := r.Service.Refresh(ctx)
	if snap == nil {
		return
	}
	r.latest.Store(&state{snapshot: snap, fetchedAt: r.Now()})
	if err := r.Publisher.Publish(ctx, snap); err != nil {
		r.Logger.Warn("publish snapshot", zap.Error(err))
	}
}

// Persist stores the latest snapshot once. Synthetic snapshots are never
// stored.
func (r *Refresher) Persist(ctx context.Context) {
	r.setup()
	st := r.latest.Load()
	if st == nil || st.snapshot.Synthetic || !st.fetchedAt.After(r.stored) {
		return
	}
	ticks := history.FromSnapshot(st.snapshot)
	if err := r.Store.Append(ctx, ticks); err != nil {
		r.Logger.Error("store snapshot", zap.Error(err))
		return
	}
	r.stored = st.fetchedAt
	metrics.RecordStored(len(ticks))
}

// Prune drops ticks older than the retention period.
func (r *Refresher) Prune(ctx context.Context) {
	r.setup()
	n, err := r.Store.Prune(ctx, r.Now().Add(-r.Retention))
	if err != nil {
		r.Logger.Error("prune history", zap.Error(err))
		return
	}
	if n > 0 {
		r.Logger.Info("pruned history", zap.Int64("ticks", n))
	}
}
