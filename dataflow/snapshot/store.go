// Package snapshot persists point-in-time graph metadata — the dot dump,
// per-node message counts, and the step number — keyed by run id and step.
// It is a debugging and audit trail: operator state is never persisted and
// a run cannot be resumed from a snapshot.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/flowcore/differential/dataflow"
	"github.com/flowcore/differential/dataflow/dot"
)

// ErrNotFound is returned when a requested run ID or step does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is one persisted observation of a running graph.
type Snapshot struct {
	// RunID identifies the execution this snapshot belongs to.
	RunID string

	// Step is the logical clock value at capture time.
	Step int

	// Dot is the graph rendered in graphviz digraph text (see package dot).
	Dot string

	// NodeCounts maps each shown node's relation id to its cumulative
	// message count at capture time.
	NodeCounts map[uint64]uint64

	// CreatedAt is set by the store on save.
	CreatedAt time.Time
}

// Capture builds a Snapshot of ec under runID. It reads only node
// metadata; no operator is flowed.
func Capture(ec *dataflow.ExecutionContext, runID string) Snapshot {
	counts := make(map[uint64]uint64)
	for _, info := range ec.Infos() {
		if info.Shown {
			counts[info.RelationID] = info.MessageCount
		}
	}
	return Snapshot{
		RunID:      runID,
		Step:       int(ec.Step()),
		Dot:        dot.Dump(ec),
		NodeCounts: counts,
	}
}

// Store persists snapshots.
//
// Implementations:
//   - MemStore: in-memory, for tests and short-lived processes.
//   - SQLiteStore: single-file database, zero-setup local persistence.
//   - MySQLStore: shared relational database for long-lived audit trails.
type Store interface {
	// Save persists snap, overwriting any earlier snapshot with the same
	// run id and step.
	Save(ctx context.Context, snap Snapshot) error

	// Load retrieves the snapshot for runID at step.
	// Returns ErrNotFound if none exists.
	Load(ctx context.Context, runID string, step int) (Snapshot, error)

	// LoadLatest retrieves the snapshot with the highest step for runID.
	// Returns ErrNotFound if the run has no snapshots.
	LoadLatest(ctx context.Context, runID string) (Snapshot, error)

	// ListSteps returns the steps with snapshots for runID, ascending.
	ListSteps(ctx context.Context, runID string) ([]int, error)

	// Close releases the store's resources. Safe to call more than once.
	Close() error
}
