package graph

// Edge is a directed connection from an output socket to an input socket.
//
// Edges are not independently owned: their lifetime is bound to the two
// sockets they connect. Removing either socket, or either node, removes the
// edge from both endpoints. Create edges with Socket.AddEdge; both-sided
// bookkeeping is handled there atomically.
type Edge struct {
	from *Socket // output endpoint
	to   *Socket // input endpoint
}

// From returns the output endpoint.
func (e *Edge) From() *Socket {
	return e.from
}

// To returns the input endpoint.
func (e *Edge) To() *Socket {
	return e.to
}

// Other returns the endpoint opposite to s, or nil if s is not an endpoint
// of this edge.
func (e *Edge) Other(s *Socket) *Socket {
	switch s {
	case e.from:
		return e.to
	case e.to:
		return e.from
	default:
		return nil
	}
}

// detach removes the edge record from both endpoints. Safe to call more
// than once.
func (e *Edge) detach() {
	if e.from != nil {
		e.from.dropEdge(e)
	}
	if e.to != nil {
		e.to.dropEdge(e)
	}
}
