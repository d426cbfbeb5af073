package feedback_test

import (
	"reflect"
	"testing"

	"github.com/flowcore/differential/dataflow"
	"github.com/flowcore/differential/dataflow/feedback"
	"github.com/flowcore/differential/dataflow/ops"
)

// TestController_CounterFixedPoint drives the counter loop: an arrangement
// of counter+1 (filtered below 5) fed back into the counter until nothing
// changes.
func TestController_CounterFixedPoint(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	counterIn, counter := dataflow.CreateInput[int, dataflow.Mult](cc)
	next := ops.Filter(cc, ops.Map(cc, counter, func(n int) int { return n + 1 }), func(n int) bool { return n < 5 })
	arr := dataflow.GetArrangement(cc, next)
	ec := cc.Begin()

	ctl := feedback.BeginFeedback(feedback.Leaf(feedback.Feedback(arr, counterIn)))

	if err := dataflow.Insert(ec, counterIn, 0); err != nil {
		t.Fatal(err)
	}
	ctl.Commit(ec)

	got, err := arr.Read(ec)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]dataflow.Mult{1: 1, 2: 1, 3: 1, 4: 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("terminal arrangement = %v, want %v", got, want)
	}

	// A second commit with no new input is already quiescent.
	before := ec.Step()
	ctl.Commit(ec)
	if ec.Step() != before+1 {
		t.Errorf("quiescent commit advanced %d steps, want 1", ec.Step()-before)
	}
}

// TestController_InterruptHaltsEarly verifies a non-empty sentinel
// arrangement stops the loop before the leaf connection runs again.
func TestController_InterruptHaltsEarly(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	counterIn, counter := dataflow.CreateInput[int, dataflow.Mult](cc)
	c1 := dataflow.Split(cc, counter)
	c2 := c1.Clone(cc)

	next := ops.Filter(cc, ops.Map(cc, c1.Relation, func(n int) int { return n + 1 }), func(n int) bool { return n < 100 })
	arr := dataflow.GetArrangement(cc, next)

	// Sentinel: non-empty as soon as the counter reaches 3.
	sentinel := dataflow.GetArrangement(cc, ops.Filter(cc, c2.Relation, func(n int) bool { return n >= 3 }))
	ec := cc.Begin()

	ctl := feedback.BeginFeedback(feedback.AndThen(
		feedback.Interrupt(sentinel),
		feedback.Leaf(feedback.Feedback(arr, counterIn)),
	)...)

	_ = dataflow.Insert(ec, counterIn, 0)
	ctl.Commit(ec)

	got, err := sentinel.Read(ec)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Fatal("sentinel never became non-empty")
	}
	full, _ := arr.Read(ec)
	if len(full) >= 99 {
		t.Fatalf("interrupt did not halt the loop early: %d entries", len(full))
	}
}

// TestController_OrderedFeedbackTicks verifies least-key dispatch: each
// round consumes exactly the smallest tick's bucket.
func TestController_OrderedFeedbackTicks(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	scheduleIn, schedule := dataflow.CreateInput[dataflow.Pair[string, int], dataflow.Mult](cc)
	_, orderedArr := dataflow.NewOrderedArrangement[int](cc, schedule)

	firedIn, fired := dataflow.CreateInput[string, dataflow.Mult](cc)
	firedArr := dataflow.GetArrangement(cc, fired)
	ec := cc.Begin()

	ctl := feedback.BeginFeedback(feedback.OrderedFeedback(orderedArr, firedIn))

	for _, ev := range []dataflow.Pair[string, int]{
		{A: "late", B: 3},
		{A: "early", B: 1},
		{A: "mid", B: 2},
	} {
		_ = dataflow.Insert(ec, scheduleIn, ev)
	}
	ctl.Commit(ec)

	got, err := firedArr.Read(ec)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]dataflow.Mult{"early": 1, "mid": 1, "late": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("fired events = %v, want %v", got, want)
	}
	if _, _, ok := orderedArr.MinBucket(); ok {
		t.Error("expected every tick bucket consumed")
	}
}

// TestController_TogetherWithFeedsSimultaneously verifies grouped members
// feed in the same round.
func TestController_TogetherWithFeedsSimultaneously(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	srcIn, src := dataflow.CreateInput[int, dataflow.Mult](cc)
	s1 := dataflow.Split(cc, src)
	s2 := s1.Clone(cc)
	arrA := dataflow.GetArrangement(cc, s1.Relation)
	arrB := dataflow.GetArrangement(cc, ops.Map(cc, s2.Relation, func(n int) int { return -n }))

	sinkAIn, sinkA := dataflow.CreateInput[int, dataflow.Mult](cc)
	sinkBIn, sinkB := dataflow.CreateInput[int, dataflow.Mult](cc)
	outA := dataflow.GetArrangement(cc, sinkA)
	outB := dataflow.GetArrangement(cc, sinkB)
	ec := cc.Begin()

	ctl := feedback.BeginFeedback(feedback.TogetherWith(
		feedback.Feedback(arrA, sinkAIn),
		feedback.Feedback(arrB, sinkBIn),
	))

	_ = dataflow.Insert(ec, srcIn, 7)
	ctl.Commit(ec)

	gotA, _ := outA.Read(ec)
	gotB, _ := outB.Read(ec)
	if gotA[7] != 1 || gotB[-7] != 1 {
		t.Fatalf("simultaneous feed results: A=%v B=%v", gotA, gotB)
	}
}

// TestController_TempChangesCompose runs a feedback commit inside a temp
// scope: the loop's effects on the fed input are rolled back with the
// scoped delta.
func TestController_TempChangesCompose(t *testing.T) {
	cc, err := dataflow.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	counterIn, counter := dataflow.CreateInput[int, dataflow.Mult](cc)
	next := ops.Filter(cc, ops.Map(cc, counter, func(n int) int { return n + 1 }), func(n int) bool { return n < 4 })
	arr := dataflow.GetArrangement(cc, next)
	ec := cc.Begin()

	ctl := feedback.BeginFeedback(feedback.Leaf(feedback.Feedback(arr, counterIn)))

	dataflow.WithTempChanges(ec,
		func(c *dataflow.ExecutionContext) {
			_ = dataflow.Insert(c, counterIn, 0)
		},
		func(c *dataflow.ExecutionContext) {
			ctl.Commit(c)
			got, _ := arr.Read(c)
			if len(got) != 3 {
				t.Fatalf("loop inside temp scope produced %v", got)
			}
		})

	got, _ := arr.Read(ec)
	if len(got) != 0 {
		t.Fatalf("temp-scoped feedback leaked: %v", got)
	}
}
