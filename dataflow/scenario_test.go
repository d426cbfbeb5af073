package dataflow_test

import (
	"reflect"
	"testing"

	"github.com/flowcore/differential/dataflow"
	"github.com/flowcore/differential/dataflow/ops"
)

func mustRead[D dataflow.Key, R dataflow.Weight[R]](t *testing.T, arr *dataflow.Arrangement[D, R], ec *dataflow.ExecutionContext) map[D]R {
	t.Helper()
	m, err := arr.Read(ec)
	if err != nil {
		t.Fatalf("arrangement read failed: %v", err)
	}
	return m
}

func wantExactly[D dataflow.Key](t *testing.T, got map[D]dataflow.Mult, want map[D]dataflow.Mult) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("arrangement = %v, want %v", got, want)
	}
}

// TestScenario_MapOverInput drives insert/commit/read/delete over a single
// mapped input.
func TestScenario_MapOverInput(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	in, rel := dataflow.CreateInput[int, dataflow.Mult](cc)
	mapped := ops.Map(cc, rel, func(x int) int { return x + 1 })
	arr := dataflow.GetArrangement(cc, mapped)
	ec := cc.Begin()

	for _, x := range []int{1, 2, 3} {
		if err := dataflow.Insert(ec, in, x); err != nil {
			t.Fatal(err)
		}
	}

	// Reads before the commit observe nothing, repeatedly.
	if got := mustRead(t, arr, ec); len(got) != 0 {
		t.Fatalf("pre-commit read = %v, want empty", got)
	}
	if got := mustRead(t, arr, ec); len(got) != 0 {
		t.Fatalf("repeated pre-commit read = %v, want empty", got)
	}

	ec.Commit()
	wantExactly(t, mustRead(t, arr, ec), map[int]dataflow.Mult{2: 1, 3: 1, 4: 1})

	if err := dataflow.Delete(ec, in, 2); err != nil {
		t.Fatal(err)
	}
	ec.Commit()
	wantExactly(t, mustRead(t, arr, ec), map[int]dataflow.Mult{2: 1, 4: 1})
}

// TestScenario_JoinConcatDistinct is the join + concat + distinct pipeline:
// two inputs, one consumed twice through a split.
func TestScenario_JoinConcatDistinct(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	aIn, a := dataflow.CreateInput[dataflow.Pair[rune, int], dataflow.Mult](cc)
	bIn, b := dataflow.CreateInput[dataflow.Pair[rune, string], dataflow.Mult](cc)

	b1 := dataflow.Split(cc, b)
	b2 := b1.Clone(cc)

	joined := dataflow.Join(cc, a, b1.Relation, func(x, y dataflow.Mult) dataflow.Mult { return x * y })
	bar := ops.Map(cc, joined, func(p dataflow.Pair[rune, dataflow.Pair[int, string]]) dataflow.Pair[rune, int] {
		return dataflow.Pair[rune, int]{A: p.A, B: p.B.A + len(p.B.B)}
	})
	baz := ops.Map(cc, b2.Relation, func(p dataflow.Pair[rune, string]) dataflow.Pair[rune, int] {
		c := 'x'
		for _, first := range p.B {
			c = first
			break
		}
		return dataflow.Pair[rune, int]{A: c, B: len(p.B)}
	})
	qux := ops.Distinct(cc, dataflow.Concat(cc, bar, baz))
	arr := dataflow.GetArrangement(cc, qux)
	ec := cc.Begin()

	_ = dataflow.Insert(ec, aIn, dataflow.Pair[rune, int]{'a', 5})
	_ = dataflow.Insert(ec, aIn, dataflow.Pair[rune, int]{'b', 6})
	_ = dataflow.Insert(ec, bIn, dataflow.Pair[rune, string]{'b', "Hello"})
	_ = dataflow.Insert(ec, bIn, dataflow.Pair[rune, string]{'b', "world"})
	ec.Commit()

	wantExactly(t, mustRead(t, arr, ec), map[dataflow.Pair[rune, int]]dataflow.Mult{
		{A: 'H', B: 5}:  1,
		{A: 'b', B: 11}: 1,
		{A: 'w', B: 5}:  1,
	})

	// Incremental follow-up: drop one join partner, add a new B record.
	_ = dataflow.Delete(ec, aIn, dataflow.Pair[rune, int]{'b', 6})
	_ = dataflow.Insert(ec, bIn, dataflow.Pair[rune, string]{'a', "Goodbye"})
	ec.Commit()

	wantExactly(t, mustRead(t, arr, ec), map[dataflow.Pair[rune, int]]dataflow.Mult{
		{A: 'G', B: 7}:  1,
		{A: 'H', B: 5}:  1,
		{A: 'a', B: 12}: 1,
		{A: 'w', B: 5}:  1,
	})
}

// TestScenario_TempChanges verifies the temp-changes round trip: cont sees
// the scoped delta, the outside never does.
func TestScenario_TempChanges(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	in, rel := dataflow.CreateInput[string, dataflow.Mult](cc)
	arr := dataflow.GetArrangement(cc, ops.Distinct(cc, rel))
	ec := cc.Begin()

	_ = dataflow.Insert(ec, in, "x")
	ec.Commit()
	wantExactly(t, mustRead(t, arr, ec), map[string]dataflow.Mult{"x": 1})

	dataflow.WithTempChanges(ec,
		func(c *dataflow.ExecutionContext) {
			_ = dataflow.Insert(c, in, "y")
		},
		func(c *dataflow.ExecutionContext) {
			wantExactly(t, mustRead(t, arr, c), map[string]dataflow.Mult{"x": 1, "y": 1})
		})

	wantExactly(t, mustRead(t, arr, ec), map[string]dataflow.Mult{"x": 1})
}

// TestProperty_JoinSymmetry checks left.join(right) against
// right.join(left) mapped through a swap: the materialized arrangements
// must be equal.
func TestProperty_JoinSymmetry(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	aIn, a := dataflow.CreateInput[dataflow.Pair[int, string], dataflow.Mult](cc)
	bIn, b := dataflow.CreateInput[dataflow.Pair[int, string], dataflow.Mult](cc)

	a1 := dataflow.Split(cc, a)
	a2 := a1.Clone(cc)
	b1 := dataflow.Split(cc, b)
	b2 := b1.Clone(cc)

	times := func(x, y dataflow.Mult) dataflow.Mult { return x * y }
	lr := dataflow.Join(cc, a1.Relation, b1.Relation, times)
	rl := dataflow.Join(cc, b2.Relation, a2.Relation, times)
	rlSwapped := ops.Map(cc, rl, func(p dataflow.Pair[int, dataflow.Pair[string, string]]) dataflow.Pair[int, dataflow.Pair[string, string]] {
		return dataflow.Pair[int, dataflow.Pair[string, string]]{A: p.A, B: dataflow.Pair[string, string]{A: p.B.B, B: p.B.A}}
	})

	arrLR := dataflow.GetArrangement(cc, lr)
	arrRL := dataflow.GetArrangement(cc, rlSwapped)
	ec := cc.Begin()

	_ = dataflow.Insert(ec, aIn, dataflow.Pair[int, string]{1, "l1"})
	_ = dataflow.Insert(ec, aIn, dataflow.Pair[int, string]{1, "l2"})
	_ = dataflow.Insert(ec, bIn, dataflow.Pair[int, string]{1, "r1"})
	_ = dataflow.Insert(ec, bIn, dataflow.Pair[int, string]{2, "lonely"})
	ec.Commit()

	gotLR := mustRead(t, arrLR, ec)
	gotRL := mustRead(t, arrRL, ec)
	if !reflect.DeepEqual(gotLR, gotRL) {
		t.Fatalf("join symmetry violated:\n lr = %v\n rl = %v", gotLR, gotRL)
	}

	_ = dataflow.Delete(ec, aIn, dataflow.Pair[int, string]{1, "l2"})
	ec.Commit()
	gotLR = mustRead(t, arrLR, ec)
	gotRL = mustRead(t, arrRL, ec)
	if !reflect.DeepEqual(gotLR, gotRL) {
		t.Fatalf("join symmetry violated after delete:\n lr = %v\n rl = %v", gotLR, gotRL)
	}
}

// TestProperty_DistinctIdempotence checks distinct(distinct(r)) equals
// distinct(r) as arrangements.
func TestProperty_DistinctIdempotence(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	in, rel := dataflow.CreateInput[string, dataflow.Mult](cc)
	s1 := dataflow.Split(cc, rel)
	s2 := s1.Clone(cc)

	once := dataflow.GetArrangement(cc, ops.Distinct(cc, s1.Relation))
	twice := dataflow.GetArrangement(cc, ops.Distinct(cc, ops.Distinct(cc, s2.Relation)))
	ec := cc.Begin()

	_ = in.Update(ec, "a", dataflow.Mult(3))
	_ = in.Update(ec, "b", dataflow.Mult(1))
	ec.Commit()

	g1 := mustRead(t, once, ec)
	g2 := mustRead(t, twice, ec)
	if !reflect.DeepEqual(g1, g2) {
		t.Fatalf("distinct idempotence violated: once = %v, twice = %v", g1, g2)
	}
	wantExactly(t, g1, map[string]dataflow.Mult{"a": 1, "b": 1})

	_ = dataflow.Delete(ec, in, "b")
	ec.Commit()
	g1 = mustRead(t, once, ec)
	g2 = mustRead(t, twice, ec)
	if !reflect.DeepEqual(g1, g2) {
		t.Fatalf("distinct idempotence violated after delete: once = %v, twice = %v", g1, g2)
	}
	wantExactly(t, g1, map[string]dataflow.Mult{"a": 1})
}

// TestProperty_NoZeroEntries walks an arrangement after churn and asserts
// the monoid invariant: no zero-valued entry survives.
func TestProperty_NoZeroEntries(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	in, rel := dataflow.CreateInput[int, dataflow.Mult](cc)
	arr := dataflow.GetArrangement(cc, rel)
	ec := cc.Begin()

	for i := 0; i < 10; i++ {
		_ = dataflow.Insert(ec, in, i)
	}
	ec.Commit()
	_ = mustRead(t, arr, ec)

	for i := 0; i < 10; i += 2 {
		_ = dataflow.Delete(ec, in, i)
	}
	ec.Commit()
	got := mustRead(t, arr, ec)
	for k, r := range got {
		if r.IsZero() {
			t.Errorf("zero-valued entry survived for key %d", k)
		}
	}
	if len(got) != 5 {
		t.Errorf("arrangement has %d entries, want 5", len(got))
	}
}
