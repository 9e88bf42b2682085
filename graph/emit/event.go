// Package emit carries observability events out of the graph core.
package emit

// Event is an observability notification emitted by the graph or the build
// engine.
//
// Two kinds of events flow through the same bus:
//   - node status notifications from the graph (compiled_changed,
//     invalid_changed, sockets_changed, node_created, node_removed) —
//     BuildID is empty and Step zero
//   - build lifecycle events from the engine (build_start, node_start,
//     node_end, node_error, build_canceled, build_end)
//
// Events are notifications only: the core never depends on receiving data
// back from an observer.
type Event struct {
	// BuildID identifies the build run, empty for graph-level events.
	BuildID string

	// Step is the 1-indexed position in the execution queue. Zero for
	// build-level and graph-level events.
	Step int

	// NodeID identifies the node the event concerns, empty for build-level
	// events.
	NodeID string

	// Msg names the event (e.g. "node_start", "compiled_changed").
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "error": failure details
	//   - "compiled"/"invalid": the new flag value on status changes
	//   - "inputs"/"outputs": socket counts on sockets_changed
	Meta map[string]any
}
