package history

import (
	"context"
	"fmt"
	"time"

	"dollartracker/internal/provider"
	"dollartracker/internal/stats"
)

// Feed serves stored ticks as OHLC points. It satisfies stats.PointSource.
type Feed struct {
	Store Store
	Now   func() time.Time
}

func (f *Feed) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Points buckets the last price of exchange over w. For every exchange at
// once, each stored snapshot contributes the mean of its last prices.
func (f *Feed) Points(ctx context.Context, w stats.Window, exchange string) ([]stats.Point, error) {
	pts, err := f.Store.Candles(ctx, exchange, w, f.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("history candles: %w", err)
	}
	return pts, nil
}

func samples(ticks []Tick, byBatch bool) []stats.Sample {
	if !byBatch {
		out := make([]stats.Sample, 0, len(ticks))
		for _, t := range ticks {
			out = append(out, stats.Sample{At: t.Timestamp, Price: t.Last})
		}
		return out
	}
	type acc struct {
		at  time.Time
		sum float64
		n   int
	}
	var order []string
	batches := make(map[string]*acc)
	for _, t := range ticks {
		if t.Last <= 0 {
			continue
		}
		key := t.BatchID
		if key == "" {
			key = t.Timestamp.String()
		}
		a, ok := batches[key]
		if !ok {
			a = &acc{at: t.Timestamp}
			batches[key] = a
			order = append(order, key)
		}
		a.sum += t.Last
		a.n++
	}
	out := make([]stats.Sample, 0, len(order))
	for _, k := range order {
		a := batches[k]
		out = append(out, stats.Sample{At: a.at, Price: a.sum / float64(a.n)})
	}
	return out
}

// ChangeLookup derives change_24h from the tick stored closest to a day ago.
type ChangeLookup struct {
	Store     Store
	Tolerance time.Duration
	Now       func() time.Time
}

func (c *ChangeLookup) Change24h(ctx context.Context, exchange provider.SourceID, last float64) (float64, bool) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	tol := c.Tolerance
	if tol <= 0 {
		tol = time.Hour
	}
	old, ok, err := c.Store.Near(ctx, string(exchange), now().Add(-24*time.Hour), tol)
	if err != nil || !ok || old.Last <= 0 {
		return 0, false
	}
	return provider.Round((last-old.Last)/old.Last*100, 2), true
}
