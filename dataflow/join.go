package dataflow

// joinOp is an equi-join on the first component. State is
// two hash-maps K -> D -> R per side holding everything accumulated so
// far; flow multiplies each incoming side's deltas against the other
// side's running map (a consistent pre-add view per the step in progress)
// before folding itself in.
type joinOp[K Key, LD Key, LR Weight[LR], RD Key, RR Weight[RR], OR Weight[OR]] struct {
	left  Op[Pair[K, LD], LR]
	right Op[Pair[K, RD], RR]

	leftMap  map[K]map[LD]LR
	rightMap map[K]map[RD]RR

	combine func(LR, RR) OR
}

// Flow implements Op.
func (op *joinOp[K, LD, LR, RD, RR, OR]) Flow(t Timestamp, send func(Pair[K, Pair[LD, RD]], OR)) {
	op.left.Flow(t, func(rec Pair[K, LD], lr LR) {
		if rmap, ok := op.rightMap[rec.A]; ok {
			for rx, rr := range rmap {
				send(Pair[K, Pair[LD, RD]]{A: rec.A, B: Pair[LD, RD]{A: rec.B, B: rx}}, op.combine(lr, rr))
			}
		}
		AddIntoNested(op.leftMap, rec.A, rec.B, lr)
	})
	op.right.Flow(t, func(rec Pair[K, RD], rr RR) {
		if lmap, ok := op.leftMap[rec.A]; ok {
			for lx, lr := range lmap {
				send(Pair[K, Pair[LD, RD]]{A: rec.A, B: Pair[LD, RD]{A: lx, B: rec.B}}, op.combine(lr, rr))
			}
		}
		AddIntoNested(op.rightMap, rec.A, rec.B, rr)
	})
}

// Join equi-joins left and right on their shared key K, multiplying
// matched weights through combine. combine is explicit rather than an
// operator-overloaded `*` because Go has no ad hoc multiplication between
// arbitrary Weight types; the common case is combine = func(a, b Mult)
// Mult { return a * b }.
func Join[K Key, LD Key, LR Weight[LR], RD Key, RR Weight[RR], OR Weight[OR]](
	cc *CreationContext,
	left Relation[Pair[K, LD], LR],
	right Relation[Pair[K, RD], RR],
	combine func(LR, RR) OR,
) Relation[Pair[K, Pair[LD, RD]], OR] {
	op := &joinOp[K, LD, LR, RD, RR, OR]{
		left:     left.op,
		right:    right.op,
		leftMap:  make(map[K]map[LD]LR),
		rightMap: make(map[K]map[RD]RR),
		combine:  combine,
	}
	return NewRelation[Pair[K, Pair[LD, RD]], OR](cc, "", "join", []*NodeInfo{left.node, right.node}, false, op)
}
