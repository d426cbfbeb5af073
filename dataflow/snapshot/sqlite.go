package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It keeps snapshots in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Local audit trails of single-process runs
//
// SQLiteStore uses WAL mode for concurrent reads and a single writer
// connection, which is all the single-threaded engine needs.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./snapshots.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
//
// The store creates the database file and the snapshots table on first
// use, and enables WAL mode plus a 5 second busy timeout.
//
// Example:
//
//	store, err := snapshot.NewSQLiteStore("./snapshots.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS graph_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			dot TEXT NOT NULL,
			node_counts TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(run_id, step)
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return err
	}
	index := `CREATE INDEX IF NOT EXISTS idx_graph_snapshots_run ON graph_snapshots(run_id, step)`
	_, err := s.db.ExecContext(ctx, index)
	return err
}

func (s *SQLiteStore) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	if err := s.guard(); err != nil {
		return err
	}
	counts, err := json.Marshal(snap.NodeCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal node counts: %w", err)
	}
	query := `
		INSERT INTO graph_snapshots (run_id, step, dot, node_counts, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			dot = excluded.dot,
			node_counts = excluded.node_counts,
			created_at = excluded.created_at
	`
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, snap.RunID, snap.Step, snap.Dot, string(counts), createdAt); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanOne(row *sql.Row) (Snapshot, error) {
	var snap Snapshot
	var counts, createdAt string
	err := row.Scan(&snap.RunID, &snap.Step, &snap.Dot, &counts, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &snap.NodeCounts); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal node counts: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		snap.CreatedAt = ts
	}
	return snap, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, runID string, step int) (Snapshot, error) {
	if err := s.guard(); err != nil {
		return Snapshot{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, step, dot, node_counts, created_at
		FROM graph_snapshots WHERE run_id = ? AND step = ?
	`, runID, step)
	return s.scanOne(row)
}

// LoadLatest implements Store.
func (s *SQLiteStore) LoadLatest(ctx context.Context, runID string) (Snapshot, error) {
	if err := s.guard(); err != nil {
		return Snapshot{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, step, dot, node_counts, created_at
		FROM graph_snapshots WHERE run_id = ?
		ORDER BY step DESC LIMIT 1
	`, runID)
	return s.scanOne(row)
}

// ListSteps implements Store.
func (s *SQLiteStore) ListSteps(ctx context.Context, runID string) ([]int, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT step FROM graph_snapshots WHERE run_id = ? ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var steps []int
	for rows.Next() {
		var step int
		if err := rows.Scan(&step); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
