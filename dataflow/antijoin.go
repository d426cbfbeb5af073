package dataflow

// antijoinOp is the left semi-difference: left
// records pass through only while their key is absent from the right side;
// when a key's right-side weight transitions across zero, every
// accumulated left record for that key is corrected retroactively.
type antijoinOp[K Key, LD Key, LR Weight[LR], RD Key, RR Weight[RR]] struct {
	left  Op[Pair[K, LD], LR]
	right Op[Pair[K, RD], RR]

	leftMap  map[K]map[LD]LR
	rightMap map[K]RR
}

// Flow implements Op.
func (op *antijoinOp[K, LD, LR, RD, RR]) Flow(t Timestamp, send func(Pair[K, LD], LR)) {
	op.left.Flow(t, func(rec Pair[K, LD], lr LR) {
		if sum, ok := op.rightMap[rec.A]; !ok || sum.IsZero() {
			send(rec, lr)
		}
		AddIntoNested(op.leftMap, rec.A, rec.B, lr)
	})
	op.right.Flow(t, func(rec Pair[K, RD], rr RR) {
		old, hadOld := op.rightMap[rec.A]
		wasZero := !hadOld || old.IsZero()

		var newVal RR
		if hadOld {
			newVal = old.Plus(rr)
		} else {
			newVal = rr
		}
		isZero := newVal.IsZero()

		AddInto(op.rightMap, rec.A, rr)

		if wasZero == isZero {
			return
		}
		negated := !isZero // becoming present
		if lmap, ok := op.leftMap[rec.A]; ok {
			for lx, lrv := range lmap {
				w := lrv
				if negated {
					w = lrv.Negate()
				}
				send(Pair[K, LD]{A: rec.A, B: lx}, w)
			}
		}
	})
}

// Antijoin keeps left records whose key has no (net non-zero) presence on
// the right.
func Antijoin[K Key, LD Key, LR Weight[LR], RD Key, RR Weight[RR]](
	cc *CreationContext,
	left Relation[Pair[K, LD], LR],
	right Relation[Pair[K, RD], RR],
) Relation[Pair[K, LD], LR] {
	op := &antijoinOp[K, LD, LR, RD, RR]{
		left:     left.op,
		right:    right.op,
		leftMap:  make(map[K]map[LD]LR),
		rightMap: make(map[K]RR),
	}
	return NewRelation[Pair[K, LD], LR](cc, "", "antijoin", []*NodeInfo{left.node, right.node}, false, op)
}
