package dataflow

// flatMapOp is the stateless expansion primitive: pull from upstream, and
// for each (x, r), let f emit zero or more (x', r') pairs.
type flatMapOp[D1 Key, R1 Weight[R1], D2 Key, R2 Weight[R2]] struct {
	upstream Op[D1, R1]
	f        func(D1, R1, func(D2, R2))
}

// Flow implements Op.
func (op *flatMapOp[D1, R1, D2, R2]) Flow(t Timestamp, send func(D2, R2)) {
	op.upstream.Flow(t, func(x D1, r R1) {
		op.f(x, r, send)
	})
}

// FlatMap is the core stateless fan-out primitive: filter, map, and
// flat-map combinators (package ops) are all thin wrappers over this.
func FlatMap[D1 Key, R1 Weight[R1], D2 Key, R2 Weight[R2]](cc *CreationContext, src Relation[D1, R1], f func(D1, R1, func(D2, R2))) Relation[D2, R2] {
	op := &flatMapOp[D1, R1, D2, R2]{upstream: src.op, f: f}
	return NewRelation[D2, R2](cc, "", "flat_map", []*NodeInfo{src.node}, true, op)
}
