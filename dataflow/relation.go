package dataflow

// Op is the flow contract every operator implements: given the current
// timestamp, push every outstanding (record, weight) pair downstream via
// send. Pulling from upstream, if any, is the operator's own responsibility
// inside Flow; nothing flows until a reader demands it.
//
// Composition paths stay generic over Op (no type erasure) until a
// boundary — dynamic collections, split, or a subgraph leave — needs to
// store heterogeneous pipelines behind one concrete type. In Go, an
// interface value already erases its concrete type, so that boundary is
// just "store an Op[D,R] interface value".
type Op[D Key, R Weight[R]] interface {
	Flow(t Timestamp, send func(D, R))
}

// OpFunc adapts a plain function to Op.
type OpFunc[D Key, R Weight[R]] func(t Timestamp, send func(D, R))

// Flow implements Op.
func (f OpFunc[D, R]) Flow(t Timestamp, send func(D, R)) { f(t, send) }

// Relation is the host-facing handle for one operator node: it bundles the
// node's metadata, its owning context id, and the underlying Op. Cheap to
// copy: the real state lives behind the Op value and the shared *NodeInfo.
type Relation[D Key, R Weight[R]] struct {
	ctxID ContextID
	node  *NodeInfo
	op    Op[D, R]
}

// countingOp folds every emitted record into its node's cumulative message
// counter, wherever in the graph the pull comes from. The counter reads
// "since graph creation".
type countingOp[D Key, R Weight[R]] struct {
	inner Op[D, R]
	node  *NodeInfo
}

// Flow implements Op.
func (c *countingOp[D, R]) Flow(t Timestamp, send func(D, R)) {
	n := 0
	c.inner.Flow(t, func(d D, r R) {
		n++
		send(d, r)
	})
	if n > 0 {
		c.node.RecordMessages(n)
	}
}

// NewRelation registers a node for op under cc and returns its handle. Most
// callers should use the operator constructors in this package rather than
// calling NewRelation directly.
func NewRelation[D Key, R Weight[R]](cc *CreationContext, name, operatorName string, deps []*NodeInfo, hideable bool, op Op[D, R]) Relation[D, R] {
	node := cc.maker.MakeNode(name, operatorName, cc.depth, deps, hideable)
	return Relation[D, R]{ctxID: cc.id, node: node, op: &countingOp[D, R]{inner: op, node: node}}
}

// Node returns the relation's metadata.
func (r Relation[D, R]) Node() *NodeInfo { return r.node }

// ContextID returns the context this relation was created under.
func (r Relation[D, R]) ContextID() ContextID { return r.ctxID }

// Named sets the relation's display name (forwarded to its shown ancestor
// if hidden).
func (r Relation[D, R]) Named(name string) Relation[D, R] {
	r.node.Named(name)
	return r
}

// OpNamed sets the relation's operator-type name.
func (r Relation[D, R]) OpNamed(name string) Relation[D, R] {
	r.node.OpNamed(name)
	return r
}

// Hidden hides the relation in the graph view; fails unless the underlying
// operator was constructed hideable with exactly one dependency.
func (r Relation[D, R]) Hidden() (Relation[D, R], error) {
	if err := r.node.Hide(); err != nil {
		return r, err
	}
	return r, nil
}

// Flow pulls this relation's operator once at ec's current timestamp,
// checking context identity first. Message counting happens inside the
// operator wrapper, so internal pulls are counted the same as this one.
func (r Relation[D, R]) Flow(ec *ExecutionContext, send func(D, R)) error {
	if r.ctxID != ec.ID() {
		return wrapNodeErr("Flow", r.node.RelationID, ErrContextMismatch)
	}
	count := 0
	r.op.Flow(ec.Timestamp(), func(d D, w R) {
		count++
		send(d, w)
	})
	if count > 0 {
		if m := ec.Metrics(); m != nil {
			m.ObserveMessage(r.node.ShownRelationID())
		}
	}
	return nil
}
