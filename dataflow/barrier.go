package dataflow

// barrierOp is a per-step idempotent gate.
// The gate compares the step value at the barrier's own depth against the
// last step it flowed at, so within one step (or one subgraph round) only
// the first pull reaches upstream. At the root depth, where input update
// steps and node steps share a unit, the freshness predicate additionally
// skips the pull when no reachable input has changed since the last flow;
// at inner depths the step value advances every fixed-point round, so the
// step gate alone decides (variable-fed paths have no reachable Input and
// must still flow each round).
type barrierOp[D Key, R Weight[R]] struct {
	upstream Op[D, R]
	node     *NodeInfo

	lastFlowed Step
	flowedOnce bool
}

// Flow implements Op.
func (op *barrierOp[D, R]) Flow(t Timestamp, send func(D, R)) {
	depth := op.node.Depth
	upto := t.StepFor(depth)
	since := Step(0)
	if op.flowedOnce {
		if upto <= op.lastFlowed {
			return
		}
		since = op.lastFlowed
	}
	if depth == 0 && !op.node.IsFreshAt(since, upto) {
		return
	}
	op.upstream.Flow(t, send)
	op.lastFlowed = upto
	op.flowedOnce = true
}

// Barrier wraps upstream so that repeated pulls at the same step cost
// nothing and emit nothing, rather than re-deriving the same records every
// time a downstream consumer happens to ask. Enter is an alias intended to
// read better at subgraph boundaries.
func Barrier[D Key, R Weight[R]](cc *CreationContext, upstream Relation[D, R]) Relation[D, R] {
	op := &barrierOp[D, R]{upstream: upstream.op}
	rel := NewRelation[D, R](cc, "", "barrier", []*NodeInfo{upstream.node}, true, op)
	op.node = rel.node
	return rel
}

// Enter gates upstream, an outer relation, for use inside the subgraph
// context cc. It is Barrier constructed at cc's depth: the gate's step is
// read at the inner depth, so the relation is pulled once per fixed-point
// round rather than once per pull.
func Enter[D Key, R Weight[R]](cc *CreationContext, upstream Relation[D, R]) Relation[D, R] {
	op := &barrierOp[D, R]{upstream: upstream.op}
	rel := NewRelation[D, R](cc, "", "enter", []*NodeInfo{upstream.node}, true, op)
	op.node = rel.node
	return rel
}
