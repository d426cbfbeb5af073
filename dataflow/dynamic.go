package dataflow

// dynamicOp is a transparent pass-through used at explicit type-erasure
// boundaries (e.g. ops.Collect, ahead of its split fan-out). In Go an
// Op[D,R] interface value already erases its concrete type, so Dynamic's
// only real job is to give the boundary its own hidden node in the graph
// view.
type dynamicOp[D Key, R Weight[R]] struct {
	inner Op[D, R]
}

// Flow implements Op.
func (op *dynamicOp[D, R]) Flow(t Timestamp, send func(D, R)) {
	op.inner.Flow(t, send)
}

// Dynamic wraps src at a type-erasure boundary. The returned relation
// starts hidden, collapsing to src's shown ancestor in the graph view.
func Dynamic[D Key, R Weight[R]](cc *CreationContext, src Relation[D, R]) Relation[D, R] {
	op := &dynamicOp[D, R]{inner: src.op}
	rel := NewRelation[D, R](cc, "", "dynamic", []*NodeInfo{src.node}, true, op)
	_ = rel.node.Hide()
	return rel
}
