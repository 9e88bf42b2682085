// Package nodes provides the built-in node behaviors and a ready registry.
//
// These are the small, host-independent node types every rig-builder setup
// needs: a build entry point, arithmetic, value relays, and a print sink.
// DCC-specific node types (Maya components, control shapes) live in host
// packages and register alongside these.
package nodes

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rigforge/nodegraph/graph"
)

// TypeStart is the build entry point. Exec-enabled, no data sockets; a
// build's root node is conventionally a Start.
const TypeStart = "Start"

// Start marks the beginning of a build chain.
type Start struct {
	graph.BaseBehavior
}

// TypeAdd sums two numeric inputs.
const TypeAdd = "Add"

// Add computes Result = A + B. Both inputs are required.
type Add struct{}

// SetupSockets declares A, B and Result.
func (Add) SetupSockets(n *graph.Node) {
	a := n.AddInput(graph.TypeNumber, "A", nil)
	b := n.AddInput(graph.TypeNumber, "B", nil)
	n.AddOutput(graph.TypeNumber, "Result", nil, 0)
	n.MarkInputRequired(a)
	n.MarkInputRequired(b)
}

// Execute stores the sum on Result.
func (Add) Execute(_ context.Context, n *graph.Node) error {
	a, err := numberInput(n, "A")
	if err != nil {
		return err
	}
	b, err := numberInput(n, "B")
	if err != nil {
		return err
	}
	return n.SetOutputValue("Result", a+b)
}

// TypeMultiply multiplies two numeric inputs.
const TypeMultiply = "Multiply"

// Multiply computes Result = A * B. Both inputs are required.
type Multiply struct{}

// SetupSockets declares A, B and Result.
func (Multiply) SetupSockets(n *graph.Node) {
	a := n.AddInput(graph.TypeNumber, "A", nil)
	b := n.AddInput(graph.TypeNumber, "B", nil)
	n.AddOutput(graph.TypeNumber, "Result", nil, 0)
	n.MarkInputRequired(a)
	n.MarkInputRequired(b)
}

// Execute stores the product on Result.
func (Multiply) Execute(_ context.Context, n *graph.Node) error {
	a, err := numberInput(n, "A")
	if err != nil {
		return err
	}
	b, err := numberInput(n, "B")
	if err != nil {
		return err
	}
	return n.SetOutputValue("Result", a*b)
}

// TypePrint writes its input value to a writer.
const TypePrint = "Print"

// Print is a sink node for inspecting values mid-chain. The zero value
// writes to stdout.
type Print struct {
	Writer io.Writer
}

// SetupSockets declares the required Value input.
func (Print) SetupSockets(n *graph.Node) {
	in := n.AddInput(graph.TypeAny, "Value", nil)
	n.MarkInputRequired(in)
}

// Execute writes "<title>: <value>" to the configured writer.
func (p Print) Execute(_ context.Context, n *graph.Node) error {
	v, err := n.Value("Value")
	if err != nil {
		return err
	}
	w := p.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err = fmt.Fprintf(w, "%s: %v\n", n.Title(), v)
	return err
}

// TypeConstant publishes a fixed value on a data-only node.
const TypeConstant = "Constant"

// Constant is a non-exec node whose output carries whatever the host stores
// on it. It takes no part in the build sequence; downstream inputs read it
// through their data edges.
type Constant struct {
	graph.BaseBehavior
}

// SetupSockets declares the Value output.
func (Constant) SetupSockets(n *graph.Node) {
	n.AddOutput(graph.TypeAny, "Value", nil, 0)
}

// TypeRelay forwards its input to its output unchanged.
const TypeRelay = "Relay"

// Relay pipes Value in to Value out through the affected-output refresh,
// so the forwarded value is current after every execution.
type Relay struct {
	graph.BaseBehavior
}

// SetupSockets declares the pass-through pair and wires the dependency.
func (Relay) SetupSockets(n *graph.Node) {
	in := n.AddInput(graph.TypeAny, "Value", nil)
	out := n.AddOutput(graph.TypeAny, "Value", nil, 0)
	in.AddAffected(out)
}

// numberInput resolves a socket value as float64, accepting the numeric
// types hosts commonly store.
func numberInput(n *graph.Node, label string) (float64, error) {
	v, err := n.Value(label)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("socket %s: expected a number, got %T", label, v)
	}
}

// Register adds every built-in definition to the registry.
func Register(r *graph.Registry) error {
	defs := []graph.Definition{
		{Type: TypeStart, Title: "Start", Exec: true, New: func() graph.Behavior { return Start{} }},
		{Type: TypeAdd, Title: "Add", Exec: true, New: func() graph.Behavior { return Add{} }},
		{Type: TypeMultiply, Title: "Multiply", Exec: true, New: func() graph.Behavior { return Multiply{} }},
		{Type: TypePrint, Title: "Print", Exec: true, New: func() graph.Behavior { return Print{} }},
		{Type: TypeConstant, Title: "Constant", Exec: false, New: func() graph.Behavior { return Constant{} }},
		{Type: TypeRelay, Title: "Relay", Exec: true, New: func() graph.Behavior { return Relay{} }},
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns a fresh registry preloaded with the built-in types.
func Registry() *graph.Registry {
	r := graph.NewRegistry()
	// Register on a fresh registry only fails on duplicates, which cannot
	// happen here.
	_ = Register(r)
	return r
}
