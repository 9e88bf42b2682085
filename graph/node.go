package graph

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Behavior supplies the per-type logic of a node.
//
// Each registered node type is one Behavior implementation. The capability
// set is deliberately small:
//   - SetupSockets declares the node's data sockets (exec sockets are
//     created by the graph for exec-enabled definitions before this runs)
//   - Execute performs the node's computation against the live node
//
// Behaviors that need to participate in persistence implement the optional
// SerializationHooks interface; behaviors that own external resources may
// implement Finalizer to veto removal.
type Behavior interface {
	// SetupSockets declares the node's sockets and affected-output wiring.
	SetupSockets(n *Node)

	// Execute runs the node's computation. Input values are read through
	// n.Value; results are stored on output sockets. A non-nil error marks
	// the node Invalid and surfaces as an *ExecutionError.
	Execute(ctx context.Context, n *Node) error
}

// SerializationHooks is implemented by behaviors that need to run around a
// persistence pass. The graph guarantees the call order: PreSerialize before
// a node's record is built, PostSerialize after; PreDeserialize before a
// restored node's sockets are populated, PostDeserialize after (with
// socket-count notifications fired so dependents resync).
type SerializationHooks interface {
	PreSerialize(n *Node)
	PostSerialize(n *Node, rec *NodeRecord)
	PreDeserialize(n *Node, rec *NodeRecord)
	PostDeserialize(n *Node, rec *NodeRecord)
}

// Finalizer is implemented by behaviors that must release resources before
// their node leaves the graph. A non-nil error aborts the removal: the node
// stays in the graph with its edges intact (fail closed).
type Finalizer interface {
	Finalize(n *Node) error
}

// BaseBehavior is a no-op Behavior suitable for embedding. Its Execute
// returns nil and performs no work.
type BaseBehavior struct{}

// SetupSockets declares no sockets.
func (BaseBehavior) SetupSockets(*Node) {}

// Execute performs no work and reports success.
func (BaseBehavior) Execute(context.Context, *Node) error { return nil }

// Position locates a node in the editor scene. The core stores it for the
// view layer; it carries no execution meaning.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a unit of the build graph.
//
// A node owns ordered input and output sockets with dense per-side indices,
// tracks its compiled/invalid/executing status, and delegates computation to
// its Behavior. Exec-enabled nodes additionally carry one exec-in and one
// exec-out socket that sequence the build.
//
// Status state machine: Unbuilt (initial) -> Compiled after a successful
// execution, Invalid when execution or verification fails. Any structural
// edit (socket or edge add/remove) drops the node back to Unbuilt, and a
// node leaving Compiled drags every downstream node out of Compiled with it.
type Node struct {
	id       string
	typeName string
	title    string
	position Position

	graph    *Graph
	behavior Behavior

	compiled  bool
	invalid   bool
	executing bool

	inputs   []*Socket
	outputs  []*Socket
	required []*Socket
	execIn   *Socket
	execOut  *Socket

	tooltip strings.Builder
}

// ID returns the node's unique identifier.
func (n *Node) ID() string {
	return n.id
}

// TypeName returns the registered type tag this node was created from.
func (n *Node) TypeName() string {
	return n.typeName
}

// Title returns the node's display title.
func (n *Node) Title() string {
	return n.title
}

// SetTitle updates the display title.
func (n *Node) SetTitle(title string) {
	n.title = title
}

// Graph returns the owning graph.
func (n *Node) Graph() *Graph {
	return n.graph
}

// Behavior returns the node's behavior implementation.
func (n *Node) Behavior() Behavior {
	return n.behavior
}

// Position returns the node's scene position.
func (n *Node) Position() Position {
	return n.position
}

// SetPosition moves the node within the scene.
func (n *Node) SetPosition(x, y float64) {
	n.position = Position{X: x, Y: y}
}

// IsCompiled reports whether the last execution succeeded and the node's
// outputs are current.
func (n *Node) IsCompiled() bool {
	return n.compiled
}

// IsInvalid reports whether the last execution or verification failed.
func (n *Node) IsInvalid() bool {
	return n.invalid
}

// IsExecuting reports whether the engine is currently running this node.
func (n *Node) IsExecuting() bool {
	return n.executing
}

// ExecIn returns the exec-in socket, or nil for non-exec nodes.
func (n *Node) ExecIn() *Socket {
	return n.execIn
}

// ExecOut returns the exec-out socket, or nil for non-exec nodes.
func (n *Node) ExecOut() *Socket {
	return n.execOut
}

// Inputs returns the input sockets in index order.
func (n *Node) Inputs() []*Socket {
	out := make([]*Socket, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Outputs returns the output sockets in index order.
func (n *Node) Outputs() []*Socket {
	out := make([]*Socket, len(n.outputs))
	copy(out, n.outputs)
	return out
}

// RequiredInputs returns the required-input queue in marking order.
func (n *Node) RequiredInputs() []*Socket {
	out := make([]*Socket, len(n.required))
	copy(out, n.required)
	return out
}

// Tooltip returns the node's accumulated diagnostic text.
func (n *Node) Tooltip() string {
	return n.tooltip.String()
}

// AppendTooltip adds diagnostic text to the node's tooltip surface.
func (n *Node) AppendTooltip(text string) {
	n.tooltip.WriteString(text)
}

// clearTooltip resets the diagnostic surface. Verify calls this before
// re-checking inputs.
func (n *Node) clearTooltip() {
	n.tooltip.Reset()
}

// AddInput appends an input socket with the next dense index.
//
// Inputs accept a single connection, which is what makes value resolution
// on a connected input unambiguous.
func (n *Node) AddInput(dataType DataType, label string, value any) *Socket {
	s := &Socket{
		node:           n,
		direction:      Input,
		index:          len(n.inputs),
		dataType:       dataType,
		label:          label,
		value:          value,
		maxConnections: 1,
	}
	n.inputs = append(n.inputs, s)
	n.notifySocketsChanged()
	return s
}

// AddOutput appends an output socket with the next dense index.
//
// maxConnections limits fan-out; zero means unlimited. For TypeExec the
// limit is forced to 1 so each branch has a single linear continuation.
func (n *Node) AddOutput(dataType DataType, label string, value any, maxConnections int) *Socket {
	if dataType.IsExec() {
		maxConnections = 1
	}
	s := &Socket{
		node:           n,
		direction:      Output,
		index:          len(n.outputs),
		dataType:       dataType,
		label:          label,
		value:          value,
		maxConnections: maxConnections,
	}
	n.outputs = append(n.outputs, s)
	n.notifySocketsChanged()
	return s
}

// MarkInputRequired adds the socket to the required-input queue. Required
// inputs must carry a value, via connection or non-empty default, before the
// node may execute. Duplicates and sockets from other nodes are ignored.
func (n *Node) MarkInputRequired(s *Socket) {
	if s == nil || s.node != n || s.direction != Input {
		n.logger().Error("invalid required-input socket", zap.String("node", n.id))
		return
	}
	for _, existing := range n.required {
		if existing == s {
			return
		}
	}
	n.required = append(n.required, s)
}

// MarkInputRequiredByLabel resolves the label and marks the socket required.
// Lenient: an unknown label logs an error and leaves the queue unchanged.
func (n *Node) MarkInputRequiredByLabel(label string) {
	s := n.InputByLabel(label)
	if s == nil {
		n.logger().Error("cannot mark input as required: no such label",
			zap.String("node", n.id), zap.String("label", label))
		return
	}
	n.MarkInputRequired(s)
}

// InputByLabel returns the first input socket with the given label, or nil.
func (n *Node) InputByLabel(label string) *Socket {
	for _, s := range n.inputs {
		if s.label == label {
			return s
		}
	}
	return nil
}

// OutputByLabel returns the first output socket with the given label, or nil.
func (n *Node) OutputByLabel(label string) *Socket {
	for _, s := range n.outputs {
		if s.label == label {
			return s
		}
	}
	return nil
}

// InputByType returns the first input socket of the given data type, or nil.
func (n *Node) InputByType(dataType DataType) *Socket {
	for _, s := range n.inputs {
		if s.dataType == dataType {
			return s
		}
	}
	return nil
}

// OutputByType returns the first output socket of the given data type, or nil.
func (n *Node) OutputByType(dataType DataType) *Socket {
	for _, s := range n.outputs {
		if s.dataType == dataType {
			return s
		}
	}
	return nil
}

// Value resolves the value of the socket with the given label, searching
// inputs first, then outputs.
//
// Strict by contract: an unknown label is logged and returned as a
// *UnknownSocketError rather than a nil value, since a missing value
// silently propagating would corrupt downstream computation.
func (n *Node) Value(label string) (any, error) {
	if s := n.InputByLabel(label); s != nil {
		return s.Value(), nil
	}
	if s := n.OutputByLabel(label); s != nil {
		return s.Value(), nil
	}
	n.logger().Error("socket does not exist", zap.String("node", n.id), zap.String("label", label))
	return nil, &UnknownSocketError{NodeID: n.id, Label: label}
}

// SetOutputValue stores a computed value on the labeled output socket.
// Strict like Value: unknown labels return a *UnknownSocketError.
func (n *Node) SetOutputValue(label string, v any) error {
	s := n.OutputByLabel(label)
	if s == nil {
		n.logger().Error("output socket does not exist", zap.String("node", n.id), zap.String("label", label))
		return &UnknownSocketError{NodeID: n.id, Label: label}
	}
	s.SetValue(v)
	return nil
}

// RemoveSocket removes the socket with the given label from the chosen side,
// disconnects its edges, drops it from the required queue, and re-indexes
// the remaining sockets densely. Lenient: an unknown label logs and no-ops.
func (n *Node) RemoveSocket(label string, direction Direction) {
	side := &n.inputs
	if direction == Output {
		side = &n.outputs
	}

	idx := -1
	for i, s := range *side {
		if s.label == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		n.logger().Error("cannot remove socket: no such label",
			zap.String("node", n.id), zap.String("label", label))
		return
	}

	victim := (*side)[idx]
	victim.RemoveAllEdges()
	*side = append((*side)[:idx], (*side)[idx+1:]...)
	for i, s := range *side {
		s.index = i
	}
	for i, s := range n.required {
		if s == victim {
			n.required = append(n.required[:i], n.required[i+1:]...)
			break
		}
	}
	switch victim {
	case n.execIn:
		n.execIn = nil
	case n.execOut:
		n.execOut = nil
	}
	n.notifySocketsChanged()
}

// RemoveAllConnections disconnects every edge on every socket. Exec edges
// are kept unless includeExec is set, letting the view layer rewire data
// edges without breaking the build sequence.
func (n *Node) RemoveAllConnections(includeExec bool) {
	for _, s := range n.inputs {
		if !includeExec && s.dataType.IsExec() {
			continue
		}
		s.RemoveAllEdges()
	}
	for _, s := range n.outputs {
		if !includeExec && s.dataType.IsExec() {
			continue
		}
		s.RemoveAllEdges()
	}
}

// Remove detaches the node from its graph: all edges first (exec included),
// then the graph mapping.
//
// Fail-closed policy: when the behavior's Finalizer vetoes the removal, the
// node keeps its edges and stays in the graph, and the failure is logged.
func (n *Node) Remove() error {
	if fin, ok := n.behavior.(Finalizer); ok {
		if err := fin.Finalize(n); err != nil {
			n.logger().Error("failed to remove node",
				zap.String("node", n.id), zap.String("title", n.title), zap.Error(err))
			return err
		}
	}
	n.RemoveAllConnections(true)
	if n.graph != nil {
		n.graph.detach(n)
	}
	return nil
}

// VerifyInputs checks that every required input carries a value via a
// connection or a non-empty default. All failures are collected into the
// tooltip surface, not just the first, so the user sees the full list.
func (n *Node) VerifyInputs() bool {
	var missing []*Socket
	for _, s := range n.required {
		if !s.HasEdge() && !hasValue(s.Value()) {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return true
	}
	for _, s := range missing {
		n.AppendTooltip("Invalid input: " + s.Label() + "\n")
	}
	return false
}

// Verify clears prior diagnostics and re-checks the node's inputs.
// Behaviors with structural checks of their own implement Verifier; the
// base input check always runs first.
func (n *Node) Verify() bool {
	n.clearTooltip()
	if !n.VerifyInputs() {
		return false
	}
	if v, ok := n.behavior.(Verifier); ok {
		return v.Verify(n)
	}
	return true
}

// Verifier is implemented by behaviors that add structural checks on top of
// the base required-input verification.
type Verifier interface {
	Verify(n *Node) bool
}

// SetCompiled sets the compiled flag. Idempotent: when the value is
// unchanged nothing happens and no notification fires.
//
// Dropping out of Compiled cascades: every node reachable through this
// node's output connections, data and exec alike, is pulled out of Compiled
// too, because its inputs may now be stale. Entering Compiled never
// cascades.
func (n *Node) SetCompiled(flag bool) {
	if n.compiled == flag {
		return
	}
	n.compiled = flag
	n.notify("compiled_changed", map[string]any{"compiled": flag})
	if !flag {
		n.markDescendantsNotCompiled(map[*Node]bool{n: true})
	}
}

// markDescendantsNotCompiled clears the compiled flag on every reachable
// downstream node. The visited set guarantees termination on cyclic graphs.
func (n *Node) markDescendantsNotCompiled(visited map[*Node]bool) {
	for _, out := range n.outputs {
		for _, conn := range out.Connections() {
			child := conn.Node()
			if child == nil || visited[child] {
				continue
			}
			visited[child] = true
			if child.compiled {
				child.compiled = false
				child.notify("compiled_changed", map[string]any{"compiled": false})
			}
			child.markDescendantsNotCompiled(visited)
		}
	}
}

// SetInvalid sets the invalid flag. Idempotent like SetCompiled. Only the
// node directly reporting a failure is marked; invalidity never cascades.
func (n *Node) SetInvalid(flag bool) {
	if n.invalid == flag {
		return
	}
	n.invalid = flag
	n.notify("invalid_changed", map[string]any{"invalid": flag})
	if flag {
		n.logger().Warn("node marked invalid", zap.String("node", n.id), zap.String("title", n.title))
	}
}

// setExecuting flips the engine's is-executing marker.
func (n *Node) setExecuting(flag bool) {
	n.executing = flag
}

// UpdateAffectedOutputs refreshes, for every input socket, the output
// sockets registered as depending on it. One-level refresh after Execute.
func (n *Node) UpdateAffectedOutputs() {
	for _, s := range n.inputs {
		s.UpdateAffected()
	}
}

// ExecOutputs returns the exec-typed output sockets in index order.
func (n *Node) ExecOutputs() []*Socket {
	var out []*Socket
	for _, s := range n.outputs {
		if s.dataType.IsExec() {
			out = append(out, s)
		}
	}
	return out
}

// NonExecInputs returns the data-carrying input sockets in index order.
func (n *Node) NonExecInputs() []*Socket {
	var out []*Socket
	for _, s := range n.inputs {
		if !s.dataType.IsExec() {
			out = append(out, s)
		}
	}
	return out
}

// NonExecOutputs returns the data-carrying output sockets in index order.
func (n *Node) NonExecOutputs() []*Socket {
	var out []*Socket
	for _, s := range n.outputs {
		if !s.dataType.IsExec() {
			out = append(out, s)
		}
	}
	return out
}

// Children returns the nodes connected to this node's outputs. With
// recursive set, the full downstream closure is returned; a visited set
// keeps cyclic graphs finite.
func (n *Node) Children(recursive bool) []*Node {
	visited := map[*Node]bool{n: true}
	return n.collectChildren(recursive, visited)
}

func (n *Node) collectChildren(recursive bool, visited map[*Node]bool) []*Node {
	var children []*Node
	for _, out := range n.outputs {
		for _, conn := range out.Connections() {
			child := conn.Node()
			if child == nil || visited[child] {
				continue
			}
			visited[child] = true
			children = append(children, child)
			if recursive {
				children = append(children, child.collectChildren(true, visited)...)
			}
		}
	}
	return children
}

// ExecChildren returns the nodes attached to this node's exec outputs.
func (n *Node) ExecChildren() []*Node {
	var children []*Node
	for _, out := range n.ExecOutputs() {
		for _, conn := range out.Connections() {
			if conn.Node() != nil {
				children = append(children, conn.Node())
			}
		}
	}
	return children
}

// notifySocketsChanged fires the socket-count notification and drops the
// node back to Unbuilt.
func (n *Node) notifySocketsChanged() {
	n.notify("sockets_changed", map[string]any{
		"inputs":  len(n.inputs),
		"outputs": len(n.outputs),
	})
	n.SetCompiled(false)
}

// notifyStructuralChange drops the node back to Unbuilt after an edge
// add/remove.
func (n *Node) notifyStructuralChange() {
	n.SetCompiled(false)
}

// notify forwards a status event to the graph's emitter.
func (n *Node) notify(msg string, meta map[string]any) {
	if n.graph != nil {
		n.graph.notifyNode(n.id, msg, meta)
	}
}

// logger returns the graph's logger, or a nop logger for detached nodes.
func (n *Node) logger() *zap.Logger {
	if n.graph != nil && n.graph.logger != nil {
		return n.graph.logger
	}
	return zap.NewNop()
}
