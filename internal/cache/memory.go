package cache

import (
	"context"
	"sync"
	"time"

	"dollartracker/internal/metrics"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
}

// Memory is a process-local Cache.
//
// Concurrent misses on the same key each run compute and the last write
// wins; there is no single-flight.
type Memory[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
	now   func() time.Time
}

func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{items: make(map[string]entry[V]), now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (m *Memory[V]) WithClock(now func() time.Time) *Memory[V] {
	m.now = now
	return m
}

// Get returns the value under key if it is younger than ttl.
func (m *Memory[V]) Get(key string, ttl time.Duration) (V, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || m.now().Sub(e.createdAt) >= ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *Memory[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) V) V {
	if v, ok := m.Get(key, ttl); ok {
		metrics.RecordCache("hit")
		return v
	}
	metrics.RecordCache("miss")
	v := compute(ctx)
	m.Set(ctx, key, v)
	return v
}

func (m *Memory[V]) Set(_ context.Context, key string, v V) {
	m.mu.Lock()
	m.items[key] = entry[V]{value: v, createdAt: m.now()}
	m.mu.Unlock()
}

// Delete drops key.
func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}
