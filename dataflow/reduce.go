package dataflow

// reduceOp performs per-key aggregation, diffed against the previous
// output every time a key's input changes.
type reduceOp[K Key, D Key, R Weight[R], D2 Key, R2 Weight[R2]] struct {
	upstream Op[Pair[K, D], R]

	inputMaps  map[K]map[D]R
	outputMaps map[K]map[D2]R2

	proc func(k K, input map[D]R) map[D2]R2
}

// Flow implements Op.
func (op *reduceOp[K, D, R, D2, R2]) Flow(t Timestamp, send func(Pair[K, D2], R2)) {
	changed := make(map[K]struct{})
	op.upstream.Flow(t, func(rec Pair[K, D], r R) {
		AddIntoNested(op.inputMaps, rec.A, rec.B, r)
		changed[rec.A] = struct{}{}
	})

	for k := range changed {
		input, hasInput := op.inputMaps[k]
		old := op.outputMaps[k]

		if !hasInput {
			for d2, r2 := range old {
				if !r2.IsZero() {
					send(Pair[K, D2]{A: k, B: d2}, r2.Negate())
				}
			}
			delete(op.outputMaps, k)
			continue
		}

		newMap := op.proc(k, input)
		if old == nil {
			old = make(map[D2]R2)
		}
		DiffInto(old, newMap, func(d2 D2, delta R2) {
			send(Pair[K, D2]{A: k, B: d2}, delta)
		})
		op.outputMaps[k] = newMap
	}
}

// outputMapsRef implements isReduce, giving ReduceOutput direct access to
// the operator's internal per-key output maps, bypassing the copy a
// general arrangement would make.
func (op *reduceOp[K, D, R, D2, R2]) outputMapsRef() map[K]map[D2]R2 {
	return op.outputMaps
}

// isReduce is implemented by reduceOp; ReduceOutput depends only on K, D2,
// R2, not on the upstream's D/R, so it is expressed as its own interface.
type isReduce[K Key, D2 Key, R2 Weight[R2]] interface {
	outputMapsRef() map[K]map[D2]R2
}

// ReduceHandle gives a host access to a reduce operator's internal state,
// needed to build a ReduceOutput reader without forcing a second traversal
// of the upstream relation.
type ReduceHandle[K Key, D2 Key, R2 Weight[R2]] struct {
	impl isReduce[K, D2, R2]
	node *NodeInfo
}

// Reduce aggregates upstream (K, D) records per key via proc, which must
// return a freshly allocated, complete output map for k given its complete
// current input map. The returned handle lets a host additionally
// build a ReduceOutput reader over the same internal state.
func Reduce[K Key, D Key, R Weight[R], D2 Key, R2 Weight[R2]](
	cc *CreationContext,
	upstream Relation[Pair[K, D], R],
	proc func(k K, input map[D]R) map[D2]R2,
) (Relation[Pair[K, D2], R2], *ReduceHandle[K, D2, R2]) {
	op := &reduceOp[K, D, R, D2, R2]{
		upstream:   upstream.op,
		inputMaps:  make(map[K]map[D]R),
		outputMaps: make(map[K]map[D2]R2),
		proc:       proc,
	}
	rel := NewRelation[Pair[K, D2], R2](cc, "", "reduce", []*NodeInfo{upstream.node}, false, op)
	return rel, &ReduceHandle[K, D2, R2]{impl: op, node: rel.node}
}
