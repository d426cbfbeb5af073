package snapshot

import (
	"context"
	"testing"

	"github.com/flowcore/differential/dataflow"
	"github.com/flowcore/differential/dataflow/ops"
)

// TestMemStore_Contract runs the shared store behaviors in memory.
func TestMemStore_Contract(t *testing.T) {
	store := NewMemStore()
	defer func() { _ = store.Close() }()
	runStoreContract(t, store)
}

// TestCapture_ReflectsGraphState verifies Capture picks up the dot dump,
// step, and per-node message counts of a live context.
func TestCapture_ReflectsGraphState(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	in, rel := dataflow.CreateInput[int, dataflow.Mult](cc)
	arr := dataflow.GetArrangement(cc, ops.Map(cc, rel, func(x int) int { return x * x }))
	ec := cc.Begin()

	for _, x := range []int{1, 2, 3} {
		_ = dataflow.Insert(ec, in, x)
	}
	ec.Commit()
	if _, err := arr.Read(ec); err != nil {
		t.Fatal(err)
	}

	snap := Capture(ec, "run-squares")
	if snap.RunID != "run-squares" || snap.Step != 1 {
		t.Errorf("snapshot identity = %q step %d, want run-squares step 1", snap.RunID, snap.Step)
	}
	if snap.Dot == "" {
		t.Error("dot dump missing")
	}
	if snap.NodeCounts[rel.Node().RelationID] != 3 {
		t.Errorf("input message count = %d, want 3", snap.NodeCounts[rel.Node().RelationID])
	}

	// A captured snapshot round-trips through a store.
	store := NewMemStore()
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.LoadLatest(context.Background(), "run-squares")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if loaded.Dot != snap.Dot {
		t.Error("dot dump did not round-trip")
	}
}
