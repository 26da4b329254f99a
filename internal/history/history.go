// Package history persists per-source observations and serves them back
// as OHLC series and 24h changes.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dollartracker/internal/aggregate"
	"dollartracker/internal/provider"
	"dollartracker/internal/stats"
)

// MaxRange caps how many ticks one Range call returns. The newest ticks win.
const MaxRange = 10_000

var ErrClosed = errors.New("history store closed")

// Tick is one stored observation of one source.
type Tick struct {
	ID        uint64
	BatchID   string
	Exchange  provider.SourceID
	Bid       float64
	Ask       float64
	Last      float64
	Origin    string
	Timestamp time.Time
}

// Store is an append-only time series of ticks.
//
//go:generate mockgen -package=service_test -destination=../service/mock_store_test.go -source=history.go Store
type Store interface {
	Append(ctx context.Context, ticks []Tick) error
	// Range returns ticks at or after since in ascending time order, at
	// most the newest MaxRange of them. An empty exchange or "all" selects
	// every exchange.
	Range(ctx context.Context, exchange string, since time.Time) ([]Tick, error)
	// Candles buckets every tick of w ending at now into OHLC points of the
	// last price. For all exchanges each batch contributes its mean price.
	Candles(ctx context.Context, exchange string, w stats.Window, now time.Time) ([]stats.Point, error)
	// Near returns the tick of exchange closest to at, if one lies within
	// tolerance.
	Near(ctx context.Context, exchange string, at time.Time, tolerance time.Duration) (Tick, bool, error)
	// Prune deletes ticks older than before and reports how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// AllExchanges reports whether exchange selects every source.
func AllExchanges(exchange string) bool {
	return exchange == "" || exchange == "all"
}

// FromSnapshot converts a snapshot into ticks sharing one batch id.
func FromSnapshot(s *aggregate.Snapshot) []Tick {
	if s == nil || len(s.Prices) == 0 {
		return nil
	}
	batch := uuid.NewString()
	out := make([]Tick, 0, len(s.Prices))
	for _, q := range s.Prices {
		out = append(out, Tick{
			BatchID:   batch,
			Exchange:  q.Exchange,
			Bid:       q.Bid,
			Ask:       q.Ask,
			Last:      q.Last,
			Origin:    q.Name,
			Timestamp: s.Timestamp,
		})
	}
	return out
}
