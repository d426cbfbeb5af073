package dataflow

// Arrangement caches upstream's full accumulated add-map for random access,
// re-pulling upstream only when the freshness predicate says it must. An
// unconditional-flow variant would re-derive and re-emit the same records
// on every read regardless of whether anything upstream had changed; this
// implementation always checks IsFreshAt first and is a true no-op when
// nothing reachable upstream moved since the last read.
type Arrangement[D Key, R Weight[R]] struct {
	ctxID    ContextID
	upstream Op[D, R]
	node     *NodeInfo

	data map[D]R

	lastRead Step
	readOnce bool
}

// Flow implements Op: a pass-through of upstream's deltas, folded into the
// cached map as they go, but only pulled when fresh.
func (a *Arrangement[D, R]) Flow(t Timestamp, send func(D, R)) {
	upto := t.StepFor(a.node.Depth)
	since := Step(0)
	if a.readOnce {
		since = a.lastRead
	}
	if !a.node.IsFreshAt(since, upto) {
		return
	}
	a.upstream.Flow(t, func(d D, r R) {
		AddInto(a.data, d, r)
		send(d, r)
	})
	a.lastRead = upto
	a.readOnce = true
}

// Read brings the arrangement current with ec's step, pulling upstream
// only if any reachable input changed since the last read, and returns the
// accumulated map. The returned map is the arrangement's own cache: treat
// it as read-only, and do not hold it across a later Read.
func (a *Arrangement[D, R]) Read(ec *ExecutionContext) (map[D]R, error) {
	if a.ctxID != ec.ID() {
		return nil, wrapNodeErr("Arrangement.Read", a.node.RelationID, ErrContextMismatch)
	}
	a.Flow(ec.Timestamp(), func(D, R) {})
	if m := ec.Metrics(); m != nil {
		m.ObserveArrangementRead(a.node.ShownRelationID())
	}
	return a.data, nil
}

// Get returns the current accumulated weight for k, as of the last time this
// arrangement was flowed.
func (a *Arrangement[D, R]) Get(k D) (R, bool) {
	v, ok := a.data[k]
	return v, ok
}

// Len returns the number of keys with any recorded weight.
func (a *Arrangement[D, R]) Len() int { return len(a.data) }

// ForEach visits every cached (key, weight) pair, as of the last time this
// arrangement was flowed.
func (a *Arrangement[D, R]) ForEach(f func(D, R)) {
	for k, r := range a.data {
		f(k, r)
	}
}

// NewArrangement wraps upstream in an Arrangement, returning both the
// pass-through Relation to wire downstream and the Arrangement handle to
// read from directly.
func NewArrangement[D Key, R Weight[R]](cc *CreationContext, upstream Relation[D, R]) (Relation[D, R], *Arrangement[D, R]) {
	arr := &Arrangement[D, R]{ctxID: cc.id, upstream: upstream.op, data: make(map[D]R)}
	rel := NewRelation[D, R](cc, "", "arrangement", []*NodeInfo{upstream.node}, true, arr)
	arr.node = rel.node
	return rel, arr
}

// GetArrangement is NewArrangement returning only the reader, for the
// common case where nothing consumes the arrangement downstream.
func GetArrangement[D Key, R Weight[R]](cc *CreationContext, upstream Relation[D, R]) *Arrangement[D, R] {
	_, arr := NewArrangement(cc, upstream)
	return arr
}
