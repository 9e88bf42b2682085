package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, keyed by
// build ID (graph-level events land under the empty key).
//
// Useful for debugging, tests, and post-build analysis. All events stay in
// memory; long-lived hosts should Clear finished builds.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter selects events from a build's history. All fields are
// optional and combine with AND logic.
type HistoryFilter struct {
	NodeID  string // filter by node (empty = no filter)
	Msg     string // filter by message (empty = no filter)
	MinStep *int   // step >= MinStep (nil = no lower bound)
	MaxStep *int   // step <= MaxStep (nil = no upper bound)
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to its build's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.BuildID] = append(b.events[event.BuildID], event)
}

// History returns all events recorded for a build, in emission order.
func (b *BufferedEmitter) History(buildID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[buildID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the build's events matching the filter.
func (b *BufferedEmitter) HistoryWithFilter(buildID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.events[buildID] {
		if filter.NodeID != "" && ev.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && ev.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && ev.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && ev.Step > *filter.MaxStep {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Clear drops one build's history.
func (b *BufferedEmitter) Clear(buildID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, buildID)
}

// ClearAll drops everything.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
