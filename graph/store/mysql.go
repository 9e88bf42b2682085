package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// Suited to studio deployments where several workstations share build
// history and published graph snapshots through one database. Uses
// connection pooling and upserts for reliability.
//
// Schema:
//   - build_steps: per-node execution history
//   - graph_snapshots: named graph payloads
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a MySQL-backed store.
//
// The DSN format is the go-sql-driver one:
//
//	user:password@tcp(localhost:3306)/rigbuilds?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment:
//
//	st, err := store.NewMySQLStore[graph.BuildState](os.Getenv("MYSQL_DSN"))
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore[S]{db: db}
	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	stepsTable := `
		CREATE TABLE IF NOT EXISTS build_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			build_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_build_id (build_id),
			UNIQUE KEY unique_build_step (build_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create build_steps table: %w", err)
	}

	snapshotsTable := `
		CREATE TABLE IF NOT EXISTS graph_snapshots (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			snapshot_id VARCHAR(255) NOT NULL UNIQUE,
			state JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, snapshotsTable); err != nil {
		return fmt.Errorf("failed to create graph_snapshots table: %w", err)
	}
	return nil
}

// SaveStep persists one build step, replacing an existing build/step pair.
func (m *MySQLStore[S]) SaveStep(ctx context.Context, buildID string, step int, nodeID string, state S) error {
	if err := m.ensureOpen(); err != nil {
		return err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO build_steps (build_id, step, node_id, state) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE node_id = VALUES(node_id), state = VALUES(state)`,
		buildID, step, nodeID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadLatest retrieves the highest-numbered step for a build.
func (m *MySQLStore[S]) LoadLatest(ctx context.Context, buildID string) (S, int, error) {
	var zero S
	if err := m.ensureOpen(); err != nil {
		return zero, 0, err
	}

	var stateJSON string
	var step int
	err := m.db.QueryRowContext(ctx,
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
func (m *MySQLStore[S]) History(ctx context.Context, buildID string) ([]StepRecord[S], error) {
	if err := m.ensureOpen(); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx,
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
func (m *MySQLStore[S]) SaveSnapshot(ctx context.Context, snapshotID string, state S) error {
	if err := m.ensureOpen(); err != nil {
		return err
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO graph_snapshots (snapshot_id, state) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE state = VALUES(state)`,
		snapshotID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves a named payload.
func (m *MySQLStore[S]) LoadSnapshot(ctx context.Context, snapshotID string) (S, error) {
	var zero S
	if err := m.ensureOpen(); err != nil {
		return zero, err
	}

	var stateJSON string
	err := m.db.QueryRowContext(ctx,
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

// Close releases the database connection pool.
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

func (m *MySQLStore[S]) ensureOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
