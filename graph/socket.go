package graph

// Direction distinguishes input sockets from output sockets.
type Direction int

const (
	// Input sockets receive values from upstream nodes. An input holds at
	// most one edge.
	Input Direction = iota

	// Output sockets publish values computed during the owning node's
	// Execute. An output holds up to MaxConnections edges (0 = unlimited).
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Socket is a typed connection point on a node.
//
// A socket belongs to exactly one node, has a direction, a data-type tag, a
// label, a locally stored value, a maximum connection count, and an ordered
// set of edges. Exec sockets are capped at one connection regardless of the
// requested maximum.
//
// Value resolution:
//   - connected input: delegates to the connected output socket's value, as
//     computed by the upstream node's last Execute
//   - unconnected input: returns the locally stored default
//   - output: returns the value stored during the owning node's last Execute
type Socket struct {
	node           *Node
	direction      Direction
	index          int
	dataType       DataType
	label          string
	value          any
	maxConnections int
	edges          []*Edge

	// affects lists output sockets on the same node whose value depends on
	// this input. UpdateAffected pushes the input's current value to them,
	// giving the one-level dependency refresh after Execute.
	affects []*Socket
}

// Node returns the owning node.
func (s *Socket) Node() *Node {
	return s.node
}

// Direction returns whether this is an input or output socket.
func (s *Socket) Direction() Direction {
	return s.direction
}

// Index returns the socket's dense position on its side of the node.
func (s *Socket) Index() int {
	return s.index
}

// DataType returns the socket's data-type tag.
func (s *Socket) DataType() DataType {
	return s.dataType
}

// Label returns the socket's display label.
func (s *Socket) Label() string {
	return s.label
}

// MaxConnections returns the connection limit. Zero means unlimited.
func (s *Socket) MaxConnections() int {
	return s.maxConnections
}

// Edges returns the socket's edges in connection order.
func (s *Socket) Edges() []*Edge {
	out := make([]*Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// HasEdge reports whether the socket has at least one connection.
func (s *Socket) HasEdge() bool {
	return len(s.edges) > 0
}

// AddEdge connects this socket to other and returns the new edge.
//
// Capacity on both endpoints is checked before anything is mutated: on a
// *ConnectionLimitError neither socket has changed. On success the edge is
// recorded on both sockets.
//
// Which endpoint is the output and which the input is derived from socket
// direction; pairing validation (type compatibility, same-node rejection)
// belongs to the view layer that drives connections.
func (s *Socket) AddEdge(other *Socket) (*Edge, error) {
	if err := s.checkCapacity(); err != nil {
		return nil, err
	}
	if err := other.checkCapacity(); err != nil {
		return nil, err
	}

	from, to := s, other
	if s.direction == Input {
		from, to = other, s
	}
	edge := &Edge{from: from, to: to}
	s.edges = append(s.edges, edge)
	other.edges = append(other.edges, edge)

	s.node.notifyStructuralChange()
	if other.node != s.node {
		other.node.notifyStructuralChange()
	}
	return edge, nil
}

// checkCapacity returns a *ConnectionLimitError when the socket is already
// at its connection limit.
func (s *Socket) checkCapacity() error {
	if s.maxConnections > 0 && len(s.edges) >= s.maxConnections {
		return &ConnectionLimitError{
			NodeID: s.node.ID(),
			Socket: s.label,
			Max:    s.maxConnections,
		}
	}
	return nil
}

// RemoveEdge removes the edge from both endpoints. Calling it with an edge
// the socket does not hold is a no-op.
func (s *Socket) RemoveEdge(edge *Edge) {
	if edge == nil {
		return
	}
	edge.detach()
	s.node.notifyStructuralChange()
}

// RemoveAllEdges disconnects everything from this socket. Never fails; a
// socket with no edges is a no-op.
func (s *Socket) RemoveAllEdges() {
	for len(s.edges) > 0 {
		s.edges[0].detach()
	}
	s.node.notifyStructuralChange()
}

// dropEdge removes a single edge record from this socket's set, preserving
// the order of the remaining edges.
func (s *Socket) dropEdge(edge *Edge) {
	for i, e := range s.edges {
		if e == edge {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return
		}
	}
}

// Connections returns the sockets connected to this one, in the order the
// connections were made.
func (s *Socket) Connections() []*Socket {
	conns := make([]*Socket, 0, len(s.edges))
	for _, e := range s.edges {
		if other := e.Other(s); other != nil {
			conns = append(conns, other)
		}
	}
	return conns
}

// Value resolves the socket's current value.
func (s *Socket) Value() any {
	if s.direction == Input && s.HasEdge() {
		if upstream := s.edges[0].Other(s); upstream != nil {
			return upstream.Value()
		}
	}
	return s.value
}

// SetValue stores a value locally: the default for inputs, the computed
// result for outputs.
func (s *Socket) SetValue(v any) {
	s.value = v
}

// AddAffected marks out as depending on this input socket. Behaviors call
// this from SetupSockets so UpdateAffected can refresh downstream-visible
// outputs after each execution.
func (s *Socket) AddAffected(out *Socket) {
	if out == nil {
		return
	}
	for _, existing := range s.affects {
		if existing == out {
			return
		}
	}
	s.affects = append(s.affects, out)
}

// UpdateAffected pushes this input's resolved value to every affected
// output. One-level refresh only; no graph-wide re-evaluation.
func (s *Socket) UpdateAffected() {
	for _, out := range s.affects {
		out.SetValue(s.Value())
	}
}
