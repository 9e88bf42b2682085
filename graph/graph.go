package graph

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rigforge/nodegraph/graph/emit"
)

// Definition describes a registerable node type.
type Definition struct {
	// Type is the unique tag the graph resolves at creation time.
	Type string

	// Title is the default display title for new nodes of this type.
	Title string

	// Exec marks the type as participating in execution flow. Exec-enabled
	// nodes are created with one exec-in and one exec-out socket before
	// SetupSockets runs.
	Exec bool

	// New constructs a fresh behavior instance for each created node.
	New func() Behavior
}

// Registry maps node type tags to definitions.
//
// A registry is supplied to the graph at construction time; there is no
// global mutable type table. Hosts compose registries from the built-in
// node set and their own types.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Returns a *BuildError when the type tag is
// empty, the constructor is nil, or the tag is already taken.
func (r *Registry) Register(def Definition) error {
	if def.Type == "" {
		return &BuildError{Message: "node type tag cannot be empty"}
	}
	if def.New == nil {
		return &BuildError{Message: "node type " + def.Type + " has no constructor"}
	}
	if _, exists := r.defs[def.Type]; exists {
		return &BuildError{Message: "duplicate node type: " + def.Type, Code: "DUPLICATE_TYPE"}
	}
	r.defs[def.Type] = def
	r.order = append(r.order, def.Type)
	return nil
}

// Definition resolves a type tag.
func (r *Registry) Definition(typeName string) (Definition, bool) {
	def, ok := r.defs[typeName]
	return def, ok
}

// Types returns the registered type tags in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Graph is the container of nodes the engine operates over.
//
// It owns node creation, removal, and lookup, the type registry, and the
// observability surface (emitter + logger) that node status changes flow
// through. All mutation goes through Graph and Node methods; the node
// mapping is never handed out for external modification.
//
// The model is single-threaded by design (the host application's main
// thread). The coarse mutex only serializes the graph's own bookkeeping for
// hosts that touch it from helper goroutines.
type Graph struct {
	mu sync.Mutex

	id       string
	registry *Registry
	nodes    map[string]*Node
	order    []*Node

	emitter emit.Emitter
	logger  *zap.Logger
}

// GraphOption configures a Graph at construction time.
type GraphOption func(*Graph)

// WithEmitter routes node status notifications (compiled_changed,
// invalid_changed, sockets_changed, node lifecycle) to the given emitter.
func WithEmitter(em emit.Emitter) GraphOption {
	return func(g *Graph) { g.emitter = em }
}

// WithLogger sets the structured logger used for lenient failure paths.
// Defaults to a nop logger.
func WithLogger(l *zap.Logger) GraphOption {
	return func(g *Graph) { g.logger = l }
}

// NewGraph creates an empty graph backed by the given type registry.
func NewGraph(registry *Registry, opts ...GraphOption) *Graph {
	g := &Graph{
		id:       uuid.NewString(),
		registry: registry,
		nodes:    make(map[string]*Node),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID returns the graph's unique identifier.
func (g *Graph) ID() string {
	return g.id
}

// Registry returns the type registry the graph resolves against.
func (g *Graph) Registry() *Registry {
	return g.registry
}

// Emitter returns the emitter node status notifications flow through, or
// nil when none was configured.
func (g *Graph) Emitter() emit.Emitter {
	return g.emitter
}

// Logger returns the graph's structured logger.
func (g *Graph) Logger() *zap.Logger {
	return g.logger
}

// CreateNode instantiates a node of the given type, assigns it a fresh
// unique id, registers it, and returns it.
//
// Exec-enabled definitions get their exec-in/exec-out sockets before the
// behavior's SetupSockets runs. An empty title falls back to the
// definition's default. Unresolvable types return *UnknownNodeTypeError.
func (g *Graph) CreateNode(typeName, title string, pos Position) (*Node, error) {
	return g.createNode(typeName, title, pos, uuid.NewString())
}

func (g *Graph) createNode(typeName, title string, pos Position, id string) (*Node, error) {
	if g.registry == nil {
		return nil, &UnknownNodeTypeError{TypeName: typeName}
	}
	def, ok := g.registry.Definition(typeName)
	if !ok {
		g.logger.Error("cannot create node: unknown type", zap.String("type", typeName))
		return nil, &UnknownNodeTypeError{TypeName: typeName}
	}
	if title == "" {
		title = def.Title
	}

	n := &Node{
		id:       id,
		typeName: def.Type,
		title:    title,
		position: pos,
		graph:    g,
		behavior: def.New(),
	}
	if def.Exec {
		n.execIn = n.AddInput(TypeExec, "Exec In", nil)
		n.execOut = n.AddOutput(TypeExec, "Exec Out", nil, 1)
	}
	n.behavior.SetupSockets(n)

	g.mu.Lock()
	g.nodes[n.id] = n
	g.order = append(g.order, n)
	g.mu.Unlock()

	g.notifyNode(n.id, "node_created", map[string]any{"type": def.Type, "title": title})
	return n, nil
}

// NodeByID returns the node with the given id, or nil. O(1).
func (g *Graph) NodeByID(id string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[id]
}

// NodeByName returns the first node whose title matches, in insertion
// order, or nil. Titles are not unique; this is an O(n) convenience for
// display-side lookups.
func (g *Graph) NodeByName(name string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.order {
		if n.title == name {
			return n
		}
	}
	return nil
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// RemoveNode removes the node through its own Remove (edges first, fail
// closed). A node not present in the graph is a no-op.
func (g *Graph) RemoveNode(n *Node) error {
	if n == nil {
		return nil
	}
	g.mu.Lock()
	_, present := g.nodes[n.id]
	g.mu.Unlock()
	if !present {
		return nil
	}
	return n.Remove()
}

// Clear removes every node. Used by restore and by hosts starting a new
// build file.
func (g *Graph) Clear() {
	for _, n := range g.Nodes() {
		if err := n.Remove(); err != nil {
			g.logger.Error("failed to remove node during clear",
				zap.String("node", n.ID()), zap.Error(err))
		}
	}
}

// detach drops a node from the mapping after its edges are gone. Called by
// Node.Remove only.
func (g *Graph) detach(n *Node) {
	g.mu.Lock()
	if _, ok := g.nodes[n.id]; ok {
		delete(g.nodes, n.id)
		for i, existing := range g.order {
			if existing == n {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
	g.mu.Unlock()
	g.notifyNode(n.id, "node_removed", nil)
}

// notifyNode forwards a node status event to the graph's emitter. These are
// notifications only; the core never depends on receiving data back.
func (g *Graph) notifyNode(nodeID, msg string, meta map[string]any) {
	if g.emitter == nil {
		return
	}
	g.emitter.Emit(emit.Event{
		NodeID: nodeID,
		Msg:    msg,
		Meta:   meta,
	})
}
