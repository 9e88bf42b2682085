package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// Single-file database suited to a single artist's workstation: zero setup,
// survives host restarts, trivially copied alongside the build file.
//
// The store uses WAL mode for concurrent reads and transactions for write
// safety.
//
// Schema:
//   - build_steps: per-node execution history
//   - graph_snapshots: named graph payloads
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens or creates a SQLite-backed store at path.
//
// Use ":memory:" for an in-memory database (data lost on close). Tables are
// created on first use.
//
// Example:
//
//	st, err := store.NewSQLiteStore[graph.BuildState]("./builds.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	stepsTable := `
		CREATE TABLE IF NOT EXISTS build_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			build_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(build_id, step)
		)
	`
	if _, err := s.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create build_steps table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_steps_build_id ON build_steps(build_id)"); err != nil {
		return fmt.Errorf("failed to create idx_steps_build_id: %w", err)
	}

	snapshotsTable := `
		CREATE TABLE IF NOT EXISTS graph_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id TEXT NOT NULL UNIQUE,
			state TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, snapshotsTable); err != nil {
		return fmt.Errorf("failed to create graph_snapshots table: %w", err)
	}
	return nil
}

// SaveStep persists one build step, replacing an existing build/step pair.
func (s *SQLiteStore[S]) SaveStep(ctx context.Context, buildID string, step int, nodeID string, state S) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO build_steps (build_id, step, node_id, state) VALUES (?, ?, ?, ?)`,
		buildID, step, nodeID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadLatest retrieves the highest-numbered step for a build.
func (s *SQLiteStore[S]) LoadLatest(ctx context.Context, buildID string) (S, int, error) {
	var zero S
	if err := s.ensureOpen(); err != nil {
		return zero, 0, err
	}

	var stateJSON string
	var step int
	err := s.db.QueryRowContext(ctx,
		`SELECT state, step FROM build_steps WHERE build_id = ? ORDER BY step DESC LIMIT 1`,
		buildID).Scan(&stateJSON, &step)
	if err == sql.ErrNoRows {
		return zero, 0, ErrNotFound
	}
	if err != nil {
		return zero, 0, fmt.Errorf("failed to load latest step: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return zero, 0, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, step, nil
}

// History returns every recorded step for a build in step order.
func (s *SQLiteStore[S]) History(ctx context.Context, buildID string) ([]StepRecord[S], error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, node_id, state FROM build_steps WHERE build_id = ? ORDER BY step ASC`,
		buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []StepRecord[S]
	for rows.Next() {
		var record StepRecord[S]
		var stateJSON string
		if err := rows.Scan(&record.Step, &record.NodeID, &stateJSON); err != nil {
			return nil, fmt.Errorf("failed to scan step row: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &record.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// SaveSnapshot stores a named payload, replacing an existing name.
func (s *SQLiteStore[S]) SaveSnapshot(ctx context.Context, snapshotID string, state S) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graph_snapshots (snapshot_id, state) VALUES (?, ?)
		 ON CONFLICT(snapshot_id) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP`,
		snapshotID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves a named payload.
func (s *SQLiteStore[S]) LoadSnapshot(ctx context.Context, snapshotID string) (S, error) {
	var zero S
	if err := s.ensureOpen(); err != nil {
		return zero, err
	}

	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM graph_snapshots WHERE snapshot_id = ?`, snapshotID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return zero, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return state, nil
}

// Close releases the database connection. Further calls return an error.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore[S]) ensureOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
