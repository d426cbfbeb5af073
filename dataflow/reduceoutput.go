package dataflow

// ReduceOutput reads a Reduce operator's internal per-key output maps
// directly, the same gated-freshness discipline as Arrangement but without
// Arrangement's second copy of the data.
type ReduceOutput[K Key, D2 Key, R2 Weight[R2]] struct {
	rel    Relation[Pair[K, D2], R2]
	handle *ReduceHandle[K, D2, R2]

	lastRead Step
	readOnce bool
}

// NewReduceOutput builds a ReduceOutput reader over the reduce operator
// identified by rel/handle, as returned together by Reduce.
func NewReduceOutput[K Key, D2 Key, R2 Weight[R2]](rel Relation[Pair[K, D2], R2], handle *ReduceHandle[K, D2, R2]) *ReduceOutput[K, D2, R2] {
	return &ReduceOutput[K, D2, R2]{rel: rel, handle: handle}
}

// Refresh pulls the underlying reduce operator if fresh, updating its
// internal output maps in place, and discards the emitted deltas: callers
// interested in the deltas should flow the reduce Relation itself downstream
// instead of going through a ReduceOutput.
func (ro *ReduceOutput[K, D2, R2]) Refresh(ec *ExecutionContext) error {
	upto := ec.Timestamp().StepFor(ro.rel.node.Depth)
	since := Step(0)
	if ro.readOnce {
		since = ro.lastRead
	}
	if !ro.rel.node.IsFreshAt(since, upto) {
		return nil
	}
	if err := ro.rel.Flow(ec, func(Pair[K, D2], R2) {}); err != nil {
		return err
	}
	ro.lastRead = upto
	ro.readOnce = true
	return nil
}

// Get returns the output map reduce currently holds for k, as of the last
// Refresh.
func (ro *ReduceOutput[K, D2, R2]) Get(k K) (map[D2]R2, bool) {
	m, ok := ro.handle.impl.outputMapsRef()[k]
	return m, ok
}
