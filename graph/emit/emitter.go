package emit

// Emitter receives observability events from the graph and the engine.
//
// Implementations should be:
//   - Non-blocking: never slow down a build
//   - Thread-safe: hosts may emit from helper goroutines
//   - Resilient: a failing backend must not crash the build
//
// The view layer of an editor typically installs an Emitter to redraw nodes
// on status changes; monitoring setups fan the same stream into logs,
// OpenTelemetry spans, or a buffered history.
type Emitter interface {
	// Emit delivers one event. Must not panic; internal errors should be
	// logged, not raised.
	Emit(event Event)
}

// MultiEmitter fans every event out to several emitters in order.
type MultiEmitter []Emitter

// Emit delivers the event to each wrapped emitter.
func (m MultiEmitter) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
