package dataflow

import "cmp"

// OrderedArrangement is Arrangement's counterpart for records that carry an
// ordering key K alongside their data D: it buckets cached weights by K so a
// feedback connection can dispatch the single smallest bucket at a time.
type OrderedArrangement[K cmp.Ordered, D Key, R Weight[R]] struct {
	ctxID    ContextID
	upstream Op[Pair[D, K], R]
	node     *NodeInfo

	buckets *OrderedMap[K, map[D]R]

	lastRead Step
	readOnce bool
}

// Flow implements Op.
func (a *OrderedArrangement[K, D, R]) Flow(t Timestamp, send func(Pair[D, K], R)) {
	upto := t.StepFor(a.node.Depth)
	since := Step(0)
	if a.readOnce {
		since = a.lastRead
	}
	if !a.node.IsFreshAt(since, upto) {
		return
	}
	a.upstream.Flow(t, func(rec Pair[D, K], r R) {
		bucket, ok := a.buckets.Get(rec.B)
		if !ok {
			bucket = make(map[D]R)
		}
		AddInto(bucket, rec.A, r)
		if len(bucket) == 0 {
			a.buckets.Delete(rec.B)
		} else {
			a.buckets.Set(rec.B, bucket)
		}
		send(rec, r)
	})
	a.lastRead = upto
	a.readOnce = true
}

// Refresh brings the buckets current with ec's step, pulling upstream only
// if any reachable input changed since the last read.
func (a *OrderedArrangement[K, D, R]) Refresh(ec *ExecutionContext) error {
	if a.ctxID != ec.ID() {
		return wrapNodeErr("OrderedArrangement.Refresh", a.node.RelationID, ErrContextMismatch)
	}
	a.Flow(ec.Timestamp(), func(Pair[D, K], R) {})
	if m := ec.Metrics(); m != nil {
		m.ObserveArrangementRead(a.node.ShownRelationID())
	}
	return nil
}

// Len reports the number of non-empty buckets.
func (a *OrderedArrangement[K, D, R]) Len() int { return a.buckets.Len() }

// MinBucket returns the smallest K currently buffered and its map, without
// consuming it.
func (a *OrderedArrangement[K, D, R]) MinBucket() (K, map[D]R, bool) {
	k, ok := a.buckets.MinKey()
	if !ok {
		var zero K
		return zero, nil, false
	}
	bucket, _ := a.buckets.Get(k)
	return k, bucket, true
}

// PopMinBucket removes and returns the smallest K's bucket, the discrete
// step-dispatch primitive ordered feedback and subgraph stepping share.
func (a *OrderedArrangement[K, D, R]) PopMinBucket() (K, map[D]R, bool) {
	return a.buckets.PopMin()
}

// NewOrderedArrangement wraps upstream, which must emit (data, order-key)
// pairs, in an OrderedArrangement.
func NewOrderedArrangement[K cmp.Ordered, D Key, R Weight[R]](cc *CreationContext, upstream Relation[Pair[D, K], R]) (Relation[Pair[D, K], R], *OrderedArrangement[K, D, R]) {
	arr := &OrderedArrangement[K, D, R]{ctxID: cc.id, upstream: upstream.op, buckets: NewOrderedMap[K, map[D]R]()}
	rel := NewRelation[Pair[D, K], R](cc, "", "ordered_arrangement", []*NodeInfo{upstream.node}, true, arr)
	arr.node = rel.node
	return rel, arr
}
