package dataflow

// concatOp pulls both upstreams and forwards everything.
type concatOp[D Key, R Weight[R]] struct {
	left, right Op[D, R]
}

// Flow implements Op.
func (op *concatOp[D, R]) Flow(t Timestamp, send func(D, R)) {
	op.left.Flow(t, send)
	op.right.Flow(t, send)
}

// Concat merges two relations of the same type into one.
func Concat[D Key, R Weight[R]](cc *CreationContext, a, b Relation[D, R]) Relation[D, R] {
	op := &concatOp[D, R]{left: a.op, right: b.op}
	return NewRelation[D, R](cc, "", "concat", []*NodeInfo{a.node, b.node}, false, op)
}
