package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"dollartracker/internal/stats"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu     sync.Mutex
	ticks  []Tick
	nextID uint64
	closed bool
}

func NewMemory() *Memory {
	return &Memory{ticks: make([]Tick, 0)}
}

func (m *Memory) Append(_ context.Context, ticks []Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, t := range ticks {
		m.nextID++
		t.ID = m.nextID
		m.ticks = append(m.ticks, t)
	}
	return nil
}

func (m *Memory) Range(_ context.Context, exchange string, since time.Time) ([]Tick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := m.since(exchange, since)
	if len(out) > MaxRange {
		out = out[len(out)-MaxRange:]
	}
	return out, nil
}

func (m *Memory) Candles(_ context.Context, exchange string, w stats.Window, now time.Time) ([]stats.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	ticks := m.since(exchange, now.Add(-w.Lookback))
	return stats.Candles(samples(ticks, AllExchanges(exchange)), w, now), nil
}

// since must be called with mu held.
func (m *Memory) since(exchange string, since time.Time) []Tick {
	out := make([]Tick, 0)
	for _, t := range m.ticks {
		if t.Timestamp.Before(since) {
			continue
		}
		if !AllExchanges(exchange) && string(t.Exchange) != exchange {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (m *Memory) Near(_ context.Context, exchange string, at time.Time, tolerance time.Duration) (Tick, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Tick{}, false, ErrClosed
	}
	var best Tick
	found := false
	bestGap := tolerance
	for _, t := range m.ticks {
		if string(t.Exchange) != exchange {
			continue
		}
		gap := t.Timestamp.Sub(at)
		if gap < 0 {
			gap = -gap
		}
		if gap <= bestGap && (!found || gap < bestGap) {
			best, bestGap, found = t, gap, true
		}
	}
	return best, found, nil
}

func (m *Memory) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	kept := m.ticks[:0]
	var removed int64
	for _, t := range m.ticks {
		if t.Timestamp.Before(before) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	m.ticks = kept
	return removed, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
