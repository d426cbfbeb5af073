package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for:
//   - Long-lived audit trails shared across hosts
//   - Runs whose traces must survive the process
//
// MySQLStore uses connection pooling; snapshots from concurrent runs on
// different hosts coexist as long as their run ids differ.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example DSNs:
//
//	user:password@tcp(localhost:3306)/dataflow
//	user:password@/dataflow (uses localhost:3306)
//
// Never hardcode credentials in source; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	store, err := snapshot.NewMySQLStore(dsn)
func NewMySQLStore(dsn string) (*MySQLStore, error) {
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

	store := &MySQLStore{db: db}
	if err := store.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS graph_snapshots (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			dot MEDIUMTEXT NOT NULL,
			node_counts MEDIUMTEXT NOT NULL,
			created_at VARCHAR(64) NOT NULL,
			UNIQUE KEY uniq_run_step (run_id, step),
			INDEX idx_run (run_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	_, err := s.db.ExecContext(ctx, table)
	return err
}

func (s *MySQLStore) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Save implements Store.
func (s *MySQLStore) Save(ctx context.Context, snap Snapshot) error {
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
		ON DUPLICATE KEY UPDATE
			dot = VALUES(dot),
			node_counts = VALUES(node_counts),
			created_at = VALUES(created_at)
	`
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, snap.RunID, snap.Step, snap.Dot, string(counts), createdAt); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *MySQLStore) scanOne(row *sql.Row) (Snapshot, error) {
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
func (s *MySQLStore) Load(ctx context.Context, runID string, step int) (Snapshot, error) {
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
func (s *MySQLStore) LoadLatest(ctx context.Context, runID string) (Snapshot, error) {
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
func (s *MySQLStore) ListSteps(ctx context.Context, runID string) ([]int, error) {
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
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
