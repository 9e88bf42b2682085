package graph

import (
	"errors"
	"testing"
)

// pairNodes builds two nodes with one numeric output (fan-out capped by max)
// and one numeric input each.
func pairNodes(t *testing.T, outMax int) (*Node, *Node) {
	t.Helper()
	stub := &stubBehavior{setup: func(n *Node) {
		n.AddOutput(TypeNumber, "Out", nil, outMax)
		n.AddInput(TypeNumber, "In", nil)
	}}
	g := newTestGraph(t, newExecDef("test", stub))
	return mustCreate(t, g, "test", "a"), mustCreate(t, g, "test", "b")
}

func TestSocket_DenseIndices(t *testing.T) {
	stub := &stubBehavior{setup: func(n *Node) {
		n.AddInput(TypeNumber, "A", nil)
		n.AddInput(TypeString, "B", nil)
		n.AddInput(TypeBool, "C", nil)
		n.AddOutput(TypeNumber, "X", nil, 0)
		n.AddOutput(TypeNumber, "Y", nil, 0)
	}}
	g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
	n := mustCreate(t, g, "test", "")

	for i, s := range n.Inputs() {
		if s.Index() != i {
			t.Errorf("input %s index = %d, want %d", s.Label(), s.Index(), i)
		}
	}
	for i, s := range n.Outputs() {
		if s.Index() != i {
			t.Errorf("output %s index = %d, want %d", s.Label(), s.Index(), i)
		}
	}
}

func TestSocket_AddEdge(t *testing.T) {
	t.Run("connects output to input", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		e := mustConnect(t, a.OutputByLabel("Out"), b.InputByLabel("In"))
		if e.From() != a.OutputByLabel("Out") || e.To() != b.InputByLabel("In") {
			t.Error("edge endpoints not oriented output->input")
		}
	})

	t.Run("direction derived when called from the input side", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		e := mustConnect(t, b.InputByLabel("In"), a.OutputByLabel("Out"))
		if e.From() != a.OutputByLabel("Out") || e.To() != b.InputByLabel("In") {
			t.Error("edge endpoints not oriented output->input")
		}
	})

	t.Run("input capacity enforced", func(t *testing.T) {
		stub := &stubBehavior{setup: func(n *Node) {
			n.AddOutput(TypeNumber, "Out", nil, 0)
			n.AddInput(TypeNumber, "In", nil)
		}}
		g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
		a := mustCreate(t, g, "test", "a")
		b := mustCreate(t, g, "test", "b")
		c := mustCreate(t, g, "test", "c")
		mustConnect(t, a.OutputByLabel("Out"), c.InputByLabel("In"))

		_, err := b.OutputByLabel("Out").AddEdge(c.InputByLabel("In"))
		var limitErr *ConnectionLimitError
		if !errors.As(err, &limitErr) {
			t.Fatalf("expected *ConnectionLimitError, got %v", err)
		}
		if limitErr.Socket != "In" || limitErr.Max != 1 {
			t.Errorf("unexpected error detail: %+v", limitErr)
		}
	})

	t.Run("rejected edge leaves both endpoints unchanged", func(t *testing.T) {
		stub := &stubBehavior{setup: func(n *Node) {
			n.AddOutput(TypeNumber, "Out", nil, 1)
			n.AddInput(TypeNumber, "In", nil)
		}}
		g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
		a := mustCreate(t, g, "test", "a")
		b := mustCreate(t, g, "test", "b")
		c := mustCreate(t, g, "test", "c")
		mustConnect(t, a.OutputByLabel("Out"), b.InputByLabel("In"))

		if _, err := a.OutputByLabel("Out").AddEdge(c.InputByLabel("In")); err == nil {
			t.Fatal("expected fan-out limit to reject")
		}
		if got := len(a.OutputByLabel("Out").Edges()); got != 1 {
			t.Errorf("output edge count = %d after rejection, want 1", got)
		}
		if c.InputByLabel("In").HasEdge() {
			t.Error("rejected edge was recorded on the input")
		}
	})

	t.Run("exec fan-out capped at one", func(t *testing.T) {
		g := newTestGraph(t, newExecDef("test", &stubBehavior{}))
		a := mustCreate(t, g, "test", "a")
		b := mustCreate(t, g, "test", "b")
		c := mustCreate(t, g, "test", "c")
		mustConnect(t, a.ExecOut(), b.ExecIn())
		if _, err := a.ExecOut().AddEdge(c.ExecIn()); err == nil {
			t.Fatal("expected exec output to allow only one connection")
		}
	})

	t.Run("unlimited output fans out", func(t *testing.T) {
		stub := &stubBehavior{setup: func(n *Node) {
			n.AddOutput(TypeNumber, "Out", nil, 0)
			n.AddInput(TypeNumber, "In", nil)
		}}
		g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
		a := mustCreate(t, g, "test", "a")
		for i := 0; i < 5; i++ {
			sink := mustCreate(t, g, "test", "sink")
			mustConnect(t, a.OutputByLabel("Out"), sink.InputByLabel("In"))
		}
		if got := len(a.OutputByLabel("Out").Edges()); got != 5 {
			t.Errorf("edge count = %d, want 5", got)
		}
	})
}

func TestSocket_RemoveEdge(t *testing.T) {
	t.Run("detaches from both endpoints", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		out, in := a.OutputByLabel("Out"), b.InputByLabel("In")
		e := mustConnect(t, out, in)

		out.RemoveEdge(e)
		if out.HasEdge() || in.HasEdge() {
			t.Error("edge survived on an endpoint")
		}
	})

	t.Run("reconnect restores both edge sets", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		out, in := a.OutputByLabel("Out"), b.InputByLabel("In")
		e := mustConnect(t, out, in)
		out.RemoveEdge(e)
		mustConnect(t, out, in)

		if len(out.Edges()) != 1 || len(in.Edges()) != 1 {
			t.Errorf("edge counts after reconnect: out=%d in=%d, want 1/1",
				len(out.Edges()), len(in.Edges()))
		}
	})

	t.Run("nil and foreign edges are no-ops", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		out := a.OutputByLabel("Out")
		out.RemoveEdge(nil)
		mustConnect(t, out, b.InputByLabel("In"))
		out.RemoveEdge(&Edge{})
		if !out.HasEdge() {
			t.Error("foreign edge removal dropped a real edge")
		}
	})

	t.Run("remove all edges", func(t *testing.T) {
		stub := &stubBehavior{setup: func(n *Node) {
			n.AddOutput(TypeNumber, "Out", nil, 0)
			n.AddInput(TypeNumber, "In", nil)
		}}
		g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
		a := mustCreate(t, g, "test", "a")
		b := mustCreate(t, g, "test", "b")
		c := mustCreate(t, g, "test", "c")
		mustConnect(t, a.OutputByLabel("Out"), b.InputByLabel("In"))
		mustConnect(t, a.OutputByLabel("Out"), c.InputByLabel("In"))

		a.OutputByLabel("Out").RemoveAllEdges()
		if a.OutputByLabel("Out").HasEdge() || b.InputByLabel("In").HasEdge() || c.InputByLabel("In").HasEdge() {
			t.Error("edges survived RemoveAllEdges")
		}
		// Idempotent on an empty socket.
		a.OutputByLabel("Out").RemoveAllEdges()
	})
}

func TestSocket_Connections(t *testing.T) {
	stub := &stubBehavior{setup: func(n *Node) {
		n.AddOutput(TypeNumber, "Out", nil, 0)
		n.AddInput(TypeNumber, "In", nil)
	}}
	g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
	a := mustCreate(t, g, "test", "a")
	b := mustCreate(t, g, "test", "b")
	c := mustCreate(t, g, "test", "c")
	mustConnect(t, a.OutputByLabel("Out"), b.InputByLabel("In"))
	mustConnect(t, a.OutputByLabel("Out"), c.InputByLabel("In"))

	conns := a.OutputByLabel("Out").Connections()
	if len(conns) != 2 || conns[0].Node() != b || conns[1].Node() != c {
		t.Error("Connections() not in connection order")
	}
}

func TestSocket_Value(t *testing.T) {
	t.Run("unconnected input returns local default", func(t *testing.T) {
		stub := &stubBehavior{setup: func(n *Node) {
			n.AddInput(TypeNumber, "In", 7.0)
		}}
		g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
		n := mustCreate(t, g, "test", "")
		if got := n.InputByLabel("In").Value(); got != 7.0 {
			t.Errorf("Value() = %v, want 7", got)
		}
	})

	t.Run("connected input delegates upstream", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		mustConnect(t, a.OutputByLabel("Out"), b.InputByLabel("In"))
		b.InputByLabel("In").SetValue(1.0) // shadowed by the connection
		a.OutputByLabel("Out").SetValue(42.0)
		if got := b.InputByLabel("In").Value(); got != 42.0 {
			t.Errorf("Value() = %v, want 42 from upstream", got)
		}
	})

	t.Run("disconnect restores local default", func(t *testing.T) {
		a, b := pairNodes(t, 0)
		in := b.InputByLabel("In")
		in.SetValue(1.0)
		e := mustConnect(t, a.OutputByLabel("Out"), in)
		a.OutputByLabel("Out").SetValue(42.0)
		in.RemoveEdge(e)
		if got := in.Value(); got != 1.0 {
			t.Errorf("Value() = %v after disconnect, want local 1", got)
		}
	})
}

func TestSocket_Affected(t *testing.T) {
	stub := &stubBehavior{setup: func(n *Node) {
		in := n.AddInput(TypeNumber, "In", nil)
		out := n.AddOutput(TypeNumber, "Out", nil, 0)
		in.AddAffected(out)
		in.AddAffected(out) // duplicate registration ignored
		in.AddAffected(nil)
	}}
	g := newTestGraph(t, Definition{Type: "test", New: func() Behavior { return stub }})
	n := mustCreate(t, g, "test", "")

	n.InputByLabel("In").SetValue(5.0)
	n.InputByLabel("In").UpdateAffected()
	if got := n.OutputByLabel("Out").Value(); got != 5.0 {
		t.Errorf("affected output = %v, want 5", got)
	}
}

func TestDataType(t *testing.T) {
	if !TypeExec.IsExec() {
		t.Error("TypeExec.IsExec() = false")
	}
	for _, dt := range []DataType{TypeNumber, TypeString, TypeBool, TypeAny} {
		if dt.IsExec() {
			t.Errorf("%s.IsExec() = true", dt)
		}
	}
}

func TestDirection_String(t *testing.T) {
	if Input.String() != "input" || Output.String() != "output" {
		t.Errorf("Direction strings: %s/%s", Input, Output)
	}
}
