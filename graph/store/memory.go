package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// Designed for tests and single-session editing where persistence across
// restarts is not needed. Thread-safe.
type MemStore[S any] struct {
	mu        sync.RWMutex
	steps     map[string][]StepRecord[S] // buildID -> steps
	snapshots map[string]S               // snapshotID -> payload
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		steps:     make(map[string][]StepRecord[S]),
		snapshots: make(map[string]S),
	}
}

// SaveStep records one build step, replacing any record with the same
// build and step number.
func (m *MemStore[S]) SaveStep(_ context.Context, buildID string, step int, nodeID string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := StepRecord[S]{Step: step, NodeID: nodeID, State: state}
	for i, existing := range m.steps[buildID] {
		if existing.Step == step {
			m.steps[buildID][i] = record
			return nil
		}
	}
	m.steps[buildID] = append(m.steps[buildID], record)
	return nil
}

// LoadLatest returns the record with the highest step number. Handles
// out-of-order saves correctly.
func (m *MemStore[S]) LoadLatest(_ context.Context, buildID string) (S, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[buildID]
	if len(records) == 0 {
		var zero S
		return zero, 0, ErrNotFound
	}
	latest := records[0]
	for _, record := range records[1:] {
		if record.Step > latest.Step {
			latest = record
		}
	}
	return latest.State, latest.Step, nil
}

// History returns the build's steps sorted by step number.
func (m *MemStore[S]) History(_ context.Context, buildID string) ([]StepRecord[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[buildID]
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	out := make([]StepRecord[S], len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

// SaveSnapshot stores a named payload, replacing an existing one.
func (m *MemStore[S]) SaveSnapshot(_ context.Context, snapshotID string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotID] = state
	return nil
}

// LoadSnapshot retrieves a named payload.
func (m *MemStore[S]) LoadSnapshot(_ context.Context, snapshotID string) (S, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.snapshots[snapshotID]
	if !ok {
		var zero S
		return zero, ErrNotFound
	}
	return state, nil
}
