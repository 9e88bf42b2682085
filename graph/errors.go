// Package graph provides the node-graph execution core for rig builds.
package graph

// ConnectionLimitError indicates that adding an edge would exceed a socket's
// maximum connection count.
//
// The check happens before any mutation: when this error is returned, both
// sockets are exactly as they were before the AddEdge call (all-or-nothing).
type ConnectionLimitError struct {
	// NodeID identifies the node owning the saturated socket.
	NodeID string

	// Socket is the label of the saturated socket.
	Socket string

	// Max is the connection limit that would have been exceeded.
	Max int
}

// Error implements the error interface.
func (e *ConnectionLimitError) Error() string {
	return "socket " + e.Socket + " on node " + e.NodeID + ": connection limit reached"
}

// UnknownSocketError indicates that an operation referenced a socket label
// that does not exist on the node.
//
// Most lookup paths are lenient (nil return plus a log entry); Node.Value is
// strict and returns this error, because a missing value silently propagating
// would corrupt downstream computation.
type UnknownSocketError struct {
	// NodeID identifies the node that was searched.
	NodeID string

	// Label is the socket label that failed to resolve.
	Label string
}

// Error implements the error interface.
func (e *UnknownSocketError) Error() string {
	return "node " + e.NodeID + ": no socket labeled " + e.Label
}

// UnknownNodeTypeError indicates that a Graph could not resolve a requested
// node type tag to a registered definition.
type UnknownNodeTypeError struct {
	// TypeName is the unresolved type tag.
	TypeName string
}

// Error implements the error interface.
func (e *UnknownNodeTypeError) Error() string {
	return "unknown node type: " + e.TypeName
}

// ExecutionError wraps a failure raised from a node's Execute.
//
// It carries the originating node and triggers the Invalid state transition.
// During a build the engine propagates it to the caller (fail-fast default)
// so the host can halt and report.
type ExecutionError struct {
	// NodeID identifies the node whose execution failed.
	NodeID string

	// Title is the node's display title at the time of failure.
	Title string

	// Message is the human-readable failure description.
	Message string

	// Cause is the underlying error returned by Execute.
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Title != "" {
		return "execute " + e.Title + " (" + e.NodeID + "): " + e.Message
	}
	return "execute " + e.NodeID + ": " + e.Message
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// BuildError represents a configuration or sequencing error from Engine
// operations, as opposed to a node-level execution failure.
type BuildError struct {
	Message string
	Code    string
}

func (e *BuildError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
