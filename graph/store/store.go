// Package store persists build history and graph snapshots.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested build ID or snapshot ID does not
// exist.
var ErrNotFound = errors.New("not found")

// StepRecord is one persisted build step.
type StepRecord[S any] struct {
	Step   int
	NodeID string
	State  S
}

// Store provides persistence around the graph core.
//
// It covers two concerns:
//   - build history: one record per executed node, written by the engine,
//     so hosts can show progress and diagnose a crashed build
//   - snapshots: named payloads saved around the graph's serialization
//     hooks, typically graph.Snapshot values
//
// Implementations: MemStore (tests, short-lived sessions), SQLiteStore
// (single artist, zero setup), MySQLStore (shared studio database).
//
// Type parameter S is the payload type; it must be JSON-serializable for
// the database-backed stores.
type Store[S any] interface {
	// SaveStep persists the payload for one executed node. Steps are
	// identified by buildID + step number; saving the same pair again
	// replaces the record.
	SaveStep(ctx context.Context, buildID string, step int, nodeID string, state S) error

	// LoadLatest retrieves the record with the highest step number for a
	// build. Returns ErrNotFound for unknown builds.
	LoadLatest(ctx context.Context, buildID string) (state S, step int, err error)

	// History returns every step recorded for a build in step order.
	// Returns ErrNotFound for unknown builds.
	History(ctx context.Context, buildID string) ([]StepRecord[S], error)

	// SaveSnapshot stores a named payload. Saving an existing name
	// replaces it.
	SaveSnapshot(ctx context.Context, snapshotID string, state S) error

	// LoadSnapshot retrieves a named payload. Returns ErrNotFound for
	// unknown names.
	LoadSnapshot(ctx context.Context, snapshotID string) (S, error)
}
