// Package store provides in-memory requests.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/returns-engine/requests"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[string]*requests.Record
	order   []string // insertion order, oldest first
	events  map[string][]requests.Event
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*requests.Record),
		events:  make(map[string][]requests.Event),
	}
}

// Create stores a copy of rec and its creation event.
func (m *Memory) Create(_ context.Context, rec *requests.Record, ev requests.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	m.records[rec.ID] = &stored
	m.order = append(m.order, rec.ID)
	m.events[rec.ID] = append(m.events[rec.ID], ev)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*requests.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, requests.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// List returns matching records, newest first.
func (m *Memory) List(_ context.Context, f requests.Filter) ([]requests.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []requests.Record
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.records[m.order[i]]
		if f.Matches(rec) {
			out = append(out, *rec)
		}
	}
	// Same-instant records keep reverse insertion order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Decide closes a pending record.
func (m *Memory) Decide(_ context.Context, id string, d requests.DecisionUpdate, ev requests.Event) (*requests.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, requests.ErrNotFound
	}
	if rec.Decision.Final() {
		return nil, &requests.DecisionConflictError{RequestID: id, Current: rec.Decision}
	}

	at := d.At
	rec.Decision = d.Decision
	rec.DecidedBy = d.Actor
	rec.DecisionNotes = d.Notes
	rec.DecidedAt = &at
	m.events[id] = append(m.events[id], ev)

	out := *rec
	return &out, nil
}

func (m *Memory) Events(_ context.Context, id string) ([]requests.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[id]
	out := make([]requests.Event, len(evs))
	copy(out, evs)
	return out, nil
}

// Reset removes every record. Used by the demo scenario loader.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]*requests.Record)
	m.order = nil
	m.events = make(map[string][]requests.Event)
	return nil
}
