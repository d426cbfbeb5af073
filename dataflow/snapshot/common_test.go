package snapshot

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// runStoreContract exercises the Store behaviors shared by every backend.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	snap1 := Snapshot{
		RunID:      "run-001",
		Step:       1,
		Dot:        "digraph flow {\n}\n",
		NodeCounts: map[uint64]uint64{0: 3, 1: 3},
	}
	if err := store.Save(ctx, snap1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "run-001", 1)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Dot != snap1.Dot {
		t.Errorf("Dot = %q, want %q", loaded.Dot, snap1.Dot)
	}
	if !reflect.DeepEqual(loaded.NodeCounts, snap1.NodeCounts) {
		t.Errorf("NodeCounts = %v, want %v", loaded.NodeCounts, snap1.NodeCounts)
	}

	// Overwrite at the same (run, step).
	snap1.NodeCounts = map[uint64]uint64{0: 5, 1: 5}
	if err := store.Save(ctx, snap1); err != nil {
		t.Fatalf("overwrite Save failed: %v", err)
	}
	loaded, err = store.Load(ctx, "run-001", 1)
	if err != nil {
		t.Fatalf("Load after overwrite failed: %v", err)
	}
	if loaded.NodeCounts[0] != 5 {
		t.Errorf("overwrite not applied: %v", loaded.NodeCounts)
	}

	// LoadLatest picks the highest step.
	for _, step := range []int{5, 3} {
		s := snap1
		s.Step = step
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save step %d failed: %v", step, err)
		}
	}
	latest, err := store.LoadLatest(ctx, "run-001")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if latest.Step != 5 {
		t.Errorf("LoadLatest step = %d, want 5", latest.Step)
	}

	steps, err := store.ListSteps(ctx, "run-001")
	if err != nil {
		t.Fatalf("ListSteps failed: %v", err)
	}
	if !reflect.DeepEqual(steps, []int{1, 3, 5}) {
		t.Errorf("ListSteps = %v, want [1 3 5]", steps)
	}

	// Missing run ids and steps report ErrNotFound.
	if _, err := store.Load(ctx, "run-001", 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load missing step: got %v, want ErrNotFound", err)
	}
	if _, err := store.LoadLatest(ctx, "no-such-run"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadLatest missing run: got %v, want ErrNotFound", err)
	}

	// Runs are isolated.
	other := snap1
	other.RunID = "run-002"
	other.Step = 9
	if err := store.Save(ctx, other); err != nil {
		t.Fatalf("Save other run failed: %v", err)
	}
	steps, _ = store.ListSteps(ctx, "run-001")
	if len(steps) != 3 {
		t.Errorf("run isolation broken: %v", steps)
	}
}
