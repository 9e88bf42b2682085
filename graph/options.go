package graph

import (
	"time"

	"go.uber.org/zap"

	"github.com/rigforge/nodegraph/graph/emit"
	"github.com/rigforge/nodegraph/graph/store"
)

// Option is a functional option for configuring an Engine.
//
// Options keep the constructor small and self-documenting:
//
//	engine := graph.NewEngine(g,
//	    graph.WithStore(st),
//	    graph.WithNodeTimeout(30*time.Second),
//	)
type Option func(*Engine)

// WithStore persists a BuildState record after every executed node.
// Without a store, builds run unpersisted.
func WithStore(st store.Store[BuildState]) Option {
	return func(e *Engine) { e.store = st }
}

// WithBuildEmitter overrides the emitter build lifecycle events flow
// through. Defaults to the graph's emitter.
func WithBuildEmitter(em emit.Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithMetrics records build and per-node execution metrics.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEngineLogger overrides the logger inherited from the graph.
func WithEngineLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithContinueOnError switches a build from fail-fast to best-effort: the
// remaining queue keeps executing past failed nodes and the run's error
// joins every failure. Explicit opt-in; fail-fast is the default so hosts
// halt and report on the first broken node.
func WithContinueOnError() Option {
	return func(e *Engine) { e.opts.ContinueOnError = true }
}

// WithNodeTimeout bounds each node's Execute with a context deadline.
// Protects interactive hosts from a runaway node; zero disables the limit.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Engine) { e.opts.NodeTimeout = d }
}
