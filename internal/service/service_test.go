package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/cache"
	"dollartracker/internal/history"
	"dollartracker/internal/provider"
	"dollartracker/internal/service"
	"dollartracker/internal/stats"
	"dollartracker/internal/status"
	"dollartracker/internal/synthetic"
)

var now = time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

func flat(at time.Time, price float64) stats.Point {
	return stats.Point{Timestamp: at, Open: price, High: price, Low: price, Close: price}
}

type countingAggregator struct {
	calls atomic.Int32
}

func (a *countingAggregator) Snapshot(context.Context) *aggregate.Snapshot {
	n := a.calls.Add(1)
	q := provider.Quote{Exchange: provider.Binance, Name: "Binance P2P", Bid: 6.9, Ask: 7.0, Last: 6.95 + float64(n)/100}
	return aggregate.Merge([]provider.Quote{q}, "Binance P2P", now)
}

func newService(t *testing.T, store history.Store, agg service.Snapshotter) *service.Service {
	t.Helper()
	tr := status.New([]status.Source{
		{ID: provider.Binance, Name: "Binance P2P", URL: "https://p2p.binance.com"},
		{ID: provider.OKX, Name: "OKX P2P", URL: "https://www.okx.com/p2p-markets/bob/buy-usdt"},
	})
	opts := service.Options{
		Aggregator: agg,
		Cache:      cache.NewMemory[*aggregate.Snapshot]().WithClock(clock),
		TTL:        time.Minute,
		Fallback:   synthetic.New(1, clock),
		Tracker:    tr,
		Version:    "1.2.3",
		Now:        clock,
	}
	if store != nil {
		opts.Points = &history.Feed{Store: store, Now: clock}
	}
	return service.New(opts)
}

func TestCurrent_ServesCachedSnapshot(t *testing.T) {
	// Arrange
	agg := &countingAggregator{}
	svc := newService(t, nil, agg)

	// Act
	first := svc.Current(t.Context())
	second := svc.Current(t.Context())

	// Assert
	require.Same(t, first, second)
	require.EqualValues(t, 1, agg.calls.Load())
}

func TestRefresh_ReplacesCachedSnapshot(t *testing.T) {
	agg := &countingAggregator{}
	svc := newService(t, nil, agg)

	before := svc.Current(t.Context())
	refreshed := svc.Refresh(t.Context())

	require.NotSame(t, before, refreshed)
	require.Same(t, refreshed, svc.Current(t.Context()))
	require.EqualValues(t, 2, agg.calls.Load())
}

func TestHistory_UsesStoredTicks(t *testing.T) {
	// Arrange
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	store.EXPECT().
		Candles(gomock.Any(), "binance", stats.Day, now).
		Return([]stats.Point{
			flat(now.Add(-3*time.Hour).Truncate(time.Hour), 6.90),
			flat(now.Add(-2*time.Hour).Truncate(time.Hour), 6.95),
			flat(now.Add(-time.Hour).Truncate(time.Hour), 7.00),
		}, nil)
	svc := newService(t, store, &countingAggregator{})

	// Act
	res := svc.History(t.Context(), "24h", "binance")

	// Assert
	require.False(t, res.Synthetic)
	require.Equal(t, "binance", res.Exchange)
	require.Equal(t, "24h", res.Interval)
	require.Len(t, res.DataPoints, 3)
	require.InDelta(t, 6.95, res.Summary.AvgPrice, 1e-9)
	require.InDelta(t, 6.9, res.Summary.MinPrice, 1e-9)
	require.InDelta(t, 7.0, res.Summary.MaxPrice, 1e-9)
	require.InDelta(t, 1.45, res.Summary.ChangePercent, 1e-9)
}

func TestHistory_EmptyStoreFallsBackToSynthetic(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	store.EXPECT().Candles(gomock.Any(), "all", gomock.Any(), gomock.Any()).Return(nil, nil)
	svc := newService(t, store, &countingAggregator{})

	res := svc.History(t.Context(), "", "")

	require.True(t, res.Synthetic)
	require.Equal(t, "all", res.Exchange)
	require.Equal(t, "7d", res.Interval)
	require.Len(t, res.DataPoints, 168)
	require.Positive(t, res.Summary.TotalVolume)
}

func TestHistory_StoreErrorFallsBackToSynthetic(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	store.EXPECT().Candles(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	svc := newService(t, store, &countingAggregator{})

	res := svc.History(t.Context(), "1y", "okx")

	require.True(t, res.Synthetic)
	require.Equal(t, "1y", res.Interval)
	require.Len(t, res.DataPoints, 30)
}

func TestVolatility_DefaultsAndRejectsYear(t *testing.T) {
	svc := newService(t, nil, &countingAggregator{})

	res := svc.Volatility(t.Context(), "1y")

	require.Equal(t, "24h", res.Period)
	require.Contains(t, []stats.Rating{stats.Low, stats.Medium, stats.High}, res.Rating)
	require.LessOrEqual(t, res.Range.Min, res.Range.Max)
}

func TestVolatility_FromStoredTicks(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	store.EXPECT().Candles(gomock.Any(), "all", stats.Hour, now).Return([]stats.Point{
		flat(now.Add(-10*time.Minute), 7.0),
		flat(now.Add(-5*time.Minute), 7.0),
	}, nil)
	svc := newService(t, store, &countingAggregator{})

	res := svc.Volatility(t.Context(), "1h")

	require.Equal(t, stats.VolatilityResult{Period: "1h", Rating: stats.Low, Range: stats.Range{Min: 7, Max: 7}}, res)
}

func TestHealth_ReportsSourceStatuses(t *testing.T) {
	svc := newService(t, nil, &countingAggregator{})

	h := svc.Health()

	require.Equal(t, "healthy", h.Status)
	require.Equal(t, "1.2.3", h.Version)
	require.Equal(t, now, h.Timestamp)
	require.Equal(t, map[provider.SourceID]status.Status{
		provider.Binance: status.Unknown,
		provider.OKX:     status.Unknown,
	}, h.Sources)
}

func TestSources_RegistrationOrder(t *testing.T) {
	svc := newService(t, nil, &countingAggregator{})

	entries := svc.Sources()

	require.Len(t, entries, 2)
	require.Equal(t, provider.Binance, entries[0].ID)
	require.Equal(t, provider.OKX, entries[1].ID)
	require.Nil(t, entries[0].LastCheck)
}
