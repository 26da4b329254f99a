// Package status records the outcome of the most recent call to each upstream.
package status

import (
	"sync"
	"time"

	"dollartracker/internal/provider"
)

type Status string

const (
	Unknown Status = "unknown"
	Active  Status = "active"
	Error   Status = "error"
)

// Source describes a registered upstream.
type Source struct {
	ID   provider.SourceID
	Name string
	URL  string
}

// Entry is one row of the sources report.
type Entry struct {
	ID        provider.SourceID `json:"id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Status    Status            `json:"status"`
	LastCheck *time.Time        `json:"last_check"`
}

type record struct {
	status  Status
	checked time.Time
}

// Tracker is safe for concurrent use. The fan-out marks sources from many
// goroutines while HTTP handlers read.
type Tracker struct {
	mu      sync.RWMutex
	order   []Source
	records map[provider.SourceID]record
	now     func() time.Time
}

func New(sources []Source) *Tracker {
	t := &Tracker{
		order:   append([]Source(nil), sources...),
		records: make(map[provider.SourceID]record, len(sources)),
		now:     time.Now,
	}
	for _, s := range sources {
		t.records[s.ID] = record{status: Unknown}
	}
	return t
}

// WithClock replaces the time source. Intended for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Mark sets the status of id. Ids that were never registered are ignored.
func (t *Tracker) Mark(id provider.SourceID, s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[id]; !ok {
		return
	}
	t.records[id] = record{status: s, checked: t.now().UTC()}
}

// Get returns the current status of id.
func (t *Tracker) Get(id provider.SourceID) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if r, ok := t.records[id]; ok {
		return r.status
	}
	return Unknown
}

// Snapshot lists every source in registration order.
func (t *Tracker) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.order))
	for _, s := range t.order {
		r := t.records[s.ID]
		e := Entry{ID: s.ID, Name: s.Name, URL: s.URL, Status: r.status}
		if r.status != Unknown && !r.checked.IsZero() {
			ts := r.checked
			e.LastCheck = &ts
		}
		out = append(out, e)
	}
	return out
}

func (t *Tracker) Map() map[provider.SourceID]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[provider.SourceID]Status, len(t.records))
	for id, r := range t.records {
		out[id] = r.status
	}
	return out
}
