// Package service is the single entry point the HTTP layer and the
// background cycle use to reach prices, history and source status.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/cache"
	"dollartracker/internal/provider"
	"dollartracker/internal/stats"
	"dollartracker/internal/status"
)

// Snapshotter produces a fresh snapshot. *aggregate.Aggregator satisfies it.
type Snapshotter interface {
	Snapshot(ctx context.Context) *aggregate.Snapshot
}

type Options struct {
	Aggregator Snapshotter
	Cache      cache.Cache[*aggregate.Snapshot]
	TTL        time.Duration
	// Points serves stored history; Fallback is used when it has nothing.
	Points   stats.PointSource
	Fallback stats.PointSource
	Tracker  *status.Tracker
	Version  string
	Logger   *zap.Logger
	Now      func() time.Time
}

type Service struct {
	agg      Snapshotter
	cache    cache.Cache[*aggregate.Snapshot]
	ttl      time.Duration
	points   stats.PointSource
	fallback stats.PointSource
	tracker  *status.Tracker
	version  string
	log      *zap.Logger
	now      func() time.Time
}

func New(opts Options) *Service {
	s := &Service{
		agg:      opts.Aggregator,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		points:   opts.Points,
		fallback: opts.Fallback,
		tracker:  opts.Tracker,
		version:  opts.Version,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.NewMemory[*aggregate.Snapshot]()
	}
	if s.ttl <= 0 {
		s.ttl = 60 * time.Second
	}
	if s.tracker == nil {
		s.tracker = status.New(nil)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Current returns the cached snapshot, computing a new one when the cached
// entry is older than the TTL.
func (s *Service) Current(ctx context.Context) *aggregate.Snapshot {
	return s.cache.GetOrCompute(ctx, cache.CurrentPrices, s.ttl, s.agg.Snapshot)
}

// Refresh computes a snapshot and overwrites the cached one.
func (s *Service) Refresh(ctx context.Context) *aggregate.Snapshot {
	snap := s.agg.Snapshot(ctx)
	s.cache.Set(ctx, cache.CurrentPrices, snap)
	return snap
}

type HistoryResponse struct {
	Exchange   string        `json:"exchange"`
	Interval   string        `json:"interval"`
	DataPoints []stats.Point `json:"data_points"`
	Summary    stats.Summary `json:"summary"`
	Synthetic  bool          `json:"synthetic"`
}

// History returns the OHLC series of interval. Unknown intervals fall back
// to 7d and an empty exchange means every exchange.
func (s *Service) History(ctx context.Context, interval, exchange string) HistoryResponse {
	w := stats.ParseHistoryWindow(interval)
	if exchange == "" {
		exchange = "all"
	}
	pts, synthetic := s.series(ctx, w, exchange)
	return HistoryResponse{
		Exchange:   exchange,
		Interval:   w.Name,
		DataPoints: pts,
		Summary:    stats.Summarize(pts),
		Synthetic:  synthetic,
	}
}

// Volatility rates the 24h (or the given) period across every exchange.
func (s *Service) Volatility(ctx context.Context, period string) stats.VolatilityResult {
	w := stats.ParseVolatilityWindow(period)
	pts, _ := s.series(ctx, w, "all")
	return stats.Volatility(w.Name, pts)
}

func (s *Service) series(ctx context.Context, w stats.Window, exchange string) ([]stats.Point, bool) {
	if s.points != nil {
		pts, err := s.points.Points(ctx, w, exchange)
		if err != nil {
			s.log.Warn("history unavailable, using synthetic series", zap.String("window", w.Name), zap.Error(err))
		} else if len(pts) > 0 {
			return pts, false
		}
	}
	if s.fallback == nil {
		return []stats.Point{}, false
	}
	pts, err := s.fallback.Points(ctx, w, exchange)
	if err != nil {
		s.log.Error("synthetic series failed", zap.Error(err))
		return []stats.Point{}, true
	}
	return pts, true
}

func (s *Service) Sources() []status.Entry { return s.tracker.Snapshot() }

type HealthResponse struct {
	Status    string                              `json:"status"`
	Timestamp time.Time                           `json:"timestamp"`
	Version   string                              `json:"version"`
	Sources   map[provider.SourceID]status.Status `json:"sources"`
}

func (s *Service) Health() HealthResponse {
	return HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC(),
		Version:   s.version,
		Sources:   s.tracker.Map(),
	}
}

func (s *Service) Version() string { return s.version }
