package dataflow

import (
	"testing"

	"github.com/flowcore/differential/dataflow/emit"
)

// TestTimestamp_Ordering verifies lexicographic comparison and projection.
func TestTimestamp_Ordering(t *testing.T) {
	cases := []struct {
		a, b Timestamp
		less bool
	}{
		{Timestamp{1}, Timestamp{2}, true},
		{Timestamp{2}, Timestamp{1}, false},
		{Timestamp{1}, Timestamp{1}, false},
		{Timestamp{1}, Timestamp{1, 0}, true},
		{Timestamp{1, 5}, Timestamp{2, 1}, true},
		{Timestamp{2, 1}, Timestamp{2, 2}, true},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.less {
			t.Errorf("%v.Less(%v) = %v, want %v", c.a, c.b, got, c.less)
		}
	}

	ts := Timestamp{3}.Append(7)
	if ts.StepFor(0) != 3 || ts.StepFor(1) != 7 {
		t.Errorf("projection of %v wrong", ts)
	}
}

// TestContext_CommitAdvancesClock verifies Commit is the only clock mutator
// and that it emits an event.
func TestContext_CommitAdvancesClock(t *testing.T) {
	buf := emit.NewBufferedEmitter()
	cc, err := NewContext(WithEmitter(buf))
	if err != nil {
		t.Fatal(err)
	}
	ec := cc.Begin()
	ec.SetRunID("run-1")

	if ec.Step() != 0 {
		t.Fatalf("fresh context at step %d, want 0", ec.Step())
	}
	ec.Commit()
	ec.Commit()
	if ec.Step() != 2 {
		t.Fatalf("after two commits at step %d, want 2", ec.Step())
	}

	commits := buf.HistoryWithFilter("run-1", emit.HistoryFilter{Msg: "commit"})
	if len(commits) != 2 {
		t.Fatalf("expected 2 commit events, got %d", len(commits))
	}
	if commits[0].Step != 1 || commits[1].Step != 2 {
		t.Errorf("commit events carry steps %d, %d; want 1, 2", commits[0].Step, commits[1].Step)
	}
}

// TestContext_OptionValidation verifies option error paths.
func TestContext_OptionValidation(t *testing.T) {
	if _, err := NewContext(WithMaxFixedPointIterations(0)); err == nil {
		t.Error("expected rejection of non-positive iteration cap")
	}
	if _, err := NewContext(WithHybridMapThreshold(-1)); err == nil {
		t.Error("expected rejection of non-positive hybrid threshold")
	}
	if _, err := NewContext(WithEmitter(nil)); err == nil {
		t.Error("expected rejection of nil emitter")
	}
}

// TestContext_InfosRegistration verifies every created node is registered
// for introspection, in creation order.
func TestContext_InfosRegistration(t *testing.T) {
	cc, begin := newTestContext(t)
	_, rel := CreateInput[int, Mult](cc)
	mapped := FlatMap(cc, rel, func(x int, r Mult, send func(int, Mult)) { send(x, r) })
	_ = mapped
	ec := begin()

	infos := ec.Infos()
	if len(infos) != 2 {
		t.Fatalf("registered %d nodes, want 2", len(infos))
	}
	if infos[0].OperatorName != "input" || infos[1].OperatorName != "flat_map" {
		t.Errorf("unexpected registration order: %s, %s", infos[0].OperatorName, infos[1].OperatorName)
	}
	if infos[0].RelationID == infos[1].RelationID {
		t.Error("relation ids must be unique")
	}
}

// TestWithTempChanges_NestedScopes verifies an inner scope rolls back
// without disturbing the outer scope's tracking.
func TestWithTempChanges_NestedScopes(t *testing.T) {
	cc, begin := newTestContext(t)
	in, rel := CreateInput[string, Mult](cc)
	ec := begin()

	read := func() map[string]Mult {
		got := make(map[string]Mult)
		_ = rel.Flow(ec, func(d string, r Mult) { AddInto(got, d, r) })
		return got
	}
	accum := make(map[string]Mult)
	sync := func() {
		for d, r := range read() {
			AddInto(accum, d, r)
		}
	}

	_ = Insert(ec, in, "base")
	ec.Commit()
	sync()

	WithTempChanges(ec,
		func(c *ExecutionContext) { _ = Insert(c, in, "outer") },
		func(c *ExecutionContext) {
			sync()
			if accum["outer"] != 1 {
				t.Fatalf("outer temp change not visible: %v", accum)
			}
			WithTempChanges(c,
				func(c2 *ExecutionContext) { _ = Insert(c2, in, "inner") },
				func(c2 *ExecutionContext) {
					sync()
					if accum["inner"] != 1 {
						t.Fatalf("inner temp change not visible: %v", accum)
					}
				})
			ec.Commit()
			sync()
			if _, ok := accum["inner"]; ok {
				t.Fatalf("inner temp change leaked: %v", accum)
			}
		})
	ec.Commit()
	sync()

	if _, ok := accum["outer"]; ok {
		t.Fatalf("outer temp change leaked: %v", accum)
	}
	if accum["base"] != 1 {
		t.Fatalf("permanent record lost: %v", accum)
	}
}
