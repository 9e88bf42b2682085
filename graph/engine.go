package graph

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rigforge/nodegraph/graph/emit"
	"github.com/rigforge/nodegraph/graph/store"
)

// BuildState is the per-step record the engine persists during a build. It
// is deliberately small: enough for a host to show progress and resume
// diagnostics after a crash, not a replay log.
type BuildState struct {
	NodeID string   `json:"node_id"`
	Title  string   `json:"title"`
	Status string   `json:"status"` // compiled | invalid
	Failed []string `json:"failed,omitempty"`
}

// Engine drives the compile/verify/execute state machine over a graph.
//
// Execution is synchronous and run-to-completion per node: the engine
// builds the execution queue from a root node, then executes each node in
// order on the calling goroutine. The cancellation context is checked
// between nodes, which doubles as the cooperative yield point host UIs need
// to abort long builds.
//
// Per node: is-executing is raised, Verify runs, Execute runs, affected
// outputs are refreshed, and the node lands in Compiled — or, on any
// failure, in Invalid with a diagnostic appended to its tooltip. The
// is-executing marker is cleared on every exit path.
//
// Failures stop the build at the first failed node (fail-fast) unless
// WithContinueOnError opts into best-effort continuation.
type Engine struct {
	graph   *Graph
	store   store.Store[BuildState]
	emitter emit.Emitter
	metrics *PrometheusMetrics
	logger  *zap.Logger
	opts    Options
}

// Options configures Engine execution behavior. Zero values are valid.
type Options struct {
	// ContinueOnError keeps executing the remaining queue after a node
	// fails. The run still returns an error aggregating every failure.
	// Default false: fail fast.
	ContinueOnError bool

	// NodeTimeout bounds a single node's Execute via context deadline.
	// Zero means no per-node limit.
	NodeTimeout time.Duration
}

// NewEngine creates an engine over the given graph.
//
// The engine inherits the graph's emitter and logger unless overridden via
// options. A store is optional; without one, builds are not persisted.
func NewEngine(g *Graph, opts ...Option) *Engine {
	e := &Engine{
		graph:   g,
		emitter: g.Emitter(),
		logger:  g.Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// ExecuteNode runs a single node through the execute portion of the state
// machine and returns the *ExecutionError on failure.
//
// The is-executing marker is always cleared, whatever the exit path.
func (e *Engine) ExecuteNode(ctx context.Context, n *Node) error {
	if n == nil {
		return &BuildError{Message: "node cannot be nil", Code: "NIL_NODE"}
	}

	e.logger.Debug("executing node", zap.String("node", n.ID()), zap.String("title", n.Title()))
	n.setExecuting(true)
	defer n.setExecuting(false)

	if e.opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.NodeTimeout)
		defer cancel()
	}

	start := time.Now()
	err := n.behavior.Execute(ctx, n)
	if err != nil {
		e.logger.Error("node execution failed",
			zap.String("node", n.ID()), zap.String("title", n.Title()), zap.Error(err))
		n.AppendTooltip("Execution error: " + err.Error() + "\n")
		n.SetInvalid(true)
		if e.metrics != nil {
			e.metrics.RecordNodeLatency(n.ID(), time.Since(start), "error")
			e.metrics.IncrementFailures(n.ID(), "execute")
		}
		return &ExecutionError{NodeID: n.ID(), Title: n.Title(), Message: err.Error(), Cause: err}
	}

	n.UpdateAffectedOutputs()
	n.SetCompiled(true)
	n.SetInvalid(false)
	if e.metrics != nil {
		e.metrics.RecordNodeLatency(n.ID(), time.Since(start), "success")
	}
	return nil
}

// Run executes a full build: the execution queue from root, in order.
//
// buildID names the run for persistence and events. The context is honored
// between node executions; a canceled build returns ctx.Err() with the
// already-executed nodes left Compiled.
//
// Fail-fast by default. With ContinueOnError the whole queue runs and the
// returned error joins every node failure.
func (e *Engine) Run(ctx context.Context, buildID string, root *Node) error {
	if root == nil {
		return &BuildError{Message: "build root not set", Code: "NO_ROOT"}
	}
	if root.graph != e.graph {
		return &BuildError{Message: "root node does not belong to this graph", Code: "NODE_NOT_FOUND"}
	}

	queue := root.ExecQueue()
	e.emit(emit.Event{BuildID: buildID, Msg: "build_start", Meta: map[string]any{"nodes": len(queue)}})
	if e.metrics != nil {
		e.metrics.UpdateQueueDepth(len(queue))
	}

	var failed []string
	var errs []error

	for step, n := range queue {
		// Cooperative yield point between nodes.
		select {
		case <-ctx.Done():
			e.emit(emit.Event{BuildID: buildID, Step: step, Msg: "build_canceled"})
			if e.metrics != nil {
				e.metrics.BuildFinished("canceled")
			}
			return ctx.Err()
		default:
		}

		e.emit(emit.Event{BuildID: buildID, Step: step + 1, NodeID: n.ID(), Msg: "node_start"})

		err := e.runStep(ctx, n)
		status := "compiled"
		if err != nil {
			status = "invalid"
			failed = append(failed, n.ID())
			errs = append(errs, err)
			e.emit(emit.Event{
				BuildID: buildID, Step: step + 1, NodeID: n.ID(), Msg: "node_error",
				Meta: map[string]any{"error": err.Error()},
			})
		} else {
			e.emit(emit.Event{BuildID: buildID, Step: step + 1, NodeID: n.ID(), Msg: "node_end"})
		}

		e.saveStep(ctx, buildID, step+1, n, status, failed)
		if e.metrics != nil {
			e.metrics.UpdateQueueDepth(len(queue) - step - 1)
		}

		if err != nil && !e.opts.ContinueOnError {
			if e.metrics != nil {
				e.metrics.BuildFinished("error")
			}
			return err
		}
	}

	if len(errs) > 0 {
		if e.metrics != nil {
			e.metrics.BuildFinished("error")
		}
		e.emit(emit.Event{BuildID: buildID, Msg: "build_end", Meta: map[string]any{"failed": len(errs)}})
		return errors.Join(errs...)
	}

	if e.metrics != nil {
		e.metrics.BuildFinished("success")
	}
	e.emit(emit.Event{BuildID: buildID, Msg: "build_end"})
	return nil
}

// runStep verifies then executes one node. A verification failure marks the
// node Invalid without attempting execution.
func (e *Engine) runStep(ctx context.Context, n *Node) error {
	if !n.Verify() {
		n.SetInvalid(true)
		if e.metrics != nil {
			e.metrics.IncrementFailures(n.ID(), "verify")
		}
		e.logger.Error("node verification failed",
			zap.String("node", n.ID()), zap.String("title", n.Title()),
			zap.String("diagnostics", n.Tooltip()))
		return &ExecutionError{
			NodeID:  n.ID(),
			Title:   n.Title(),
			Message: "verification failed: " + n.Tooltip(),
		}
	}
	return e.ExecuteNode(ctx, n)
}

// saveStep persists the per-node build record when a store is configured.
// Persistence failures are logged, never fatal to the build.
func (e *Engine) saveStep(ctx context.Context, buildID string, step int, n *Node, status string, failed []string) {
	if e.store == nil {
		return
	}
	state := BuildState{NodeID: n.ID(), Title: n.Title(), Status: status, Failed: failed}
	if err := e.store.SaveStep(ctx, buildID, step, n.ID(), state); err != nil {
		e.logger.Error("failed to persist build step",
			zap.String("build", buildID), zap.Int("step", step), zap.Error(err))
	}
}

func (e *Engine) emit(ev emit.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}
