package dataflow

import (
	"cmp"

	"github.com/flowcore/differential/dataflow/emit"
)

// Subgraph introduces a fresh depth level with its own step type S: any
// totally-ordered key used to tier recursive computation. Build inner
// relations against Inner(), wire the loop with NewVariable and Set, then
// close it with Finish and Leave.
type Subgraph[S cmp.Ordered] struct {
	inner     *CreationContext
	registrar *Registrar[S]
}

// NewSubgraph opens a subgraph one depth level below cc.
func NewSubgraph[S cmp.Ordered](cc *CreationContext) *Subgraph[S] {
	return &Subgraph[S]{inner: cc.Subgraph(), registrar: &Registrar[S]{}}
}

// Inner is the CreationContext inner relations of this subgraph must be
// built against.
func (sg *Subgraph[S]) Inner() *CreationContext { return sg.inner }

// steppable is the S-only-parameterized face of Stepper[S,D,R]: Registrar
// only ever needs to drive flow/minKey/propagate, never D or R.
type steppable[S cmp.Ordered] interface {
	flow(t Timestamp)
	minKey() (S, bool)
	propagate(minS S)
}

// Registrar is the fixed-point coordinator inside one subgraph. It owns
// every stepper registered via Set.
type Registrar[S cmp.Ordered] struct {
	steppers []steppable[S]

	ranOnce       bool
	lastOuter     Timestamp
	lastResult    Timestamp
	maxIterations int

	emitter emit.Emitter
	metrics *Metrics
	depth   int
}

// ensureQuiescent runs the fixed-point loop at outer timestamp t if it has
// not already been run for this exact t, returning the deepest inner
// timestamp reached. Re-running the loop for a t already quiesced would
// double-count every record the steppers already folded into their
// buckets, so repeats are served from cache.
func (r *Registrar[S]) ensureQuiescent(t Timestamp) Timestamp {
	if r.ranOnce && timestampEqual(r.lastOuter, t) {
		return r.lastResult
	}

	maxIter := r.maxIterations
	if maxIter <= 0 {
		maxIter = 10000
	}

	inner := Step(0)
	var final Timestamp
	for {
		inner++
		if int(inner) > maxIter {
			panic(wrapErr("subgraph fixed-point", ErrFixedPointDiverged))
		}
		ti := t.Append(inner)
		if r.emitter != nil {
			r.emitter.Emit(emit.Event{
				Step: int(t.StepFor(0)),
				Msg:  "fixedpoint_round",
				Meta: map[string]interface{}{"depth": r.depth, "round": int(inner)},
			})
		}
		for _, st := range r.steppers {
			st.flow(ti)
		}

		haveMin := false
		var minS S
		for _, st := range r.steppers {
			if k, ok := st.minKey(); ok {
				if !haveMin || cmp.Less(k, minS) {
					minS = k
					haveMin = true
				}
			}
		}
		if !haveMin {
			final = ti
			break
		}
		for _, st := range r.steppers {
			st.propagate(minS)
		}
	}

	if r.metrics != nil {
		r.metrics.ObserveFixedPointIterations(int(inner))
	}
	r.ranOnce = true
	r.lastOuter = t
	r.lastResult = final
	return final
}

// Variable is the placeholder for a recursive relation: writable exactly
// once via Set, read like any other relation. Its records
// pair a data value with the step value S that produced it, so a
// downstream reducer (e.g. group_min) can pick among competing derivations.
type Variable[S cmp.Ordered, D Key, R Weight[R]] struct {
	node *NodeInfo

	pending map[S]map[D]R

	flowedOnce bool
	lastFlowed Timestamp
	cache      []Pair[D, S]
	cacheW     []R
}

// NewVariable returns a Variable's write handle and its read relation,
// built inside sg. Variables cannot be hidden.
func NewVariable[S cmp.Ordered, D Key, R Weight[R]](sg *Subgraph[S]) (*Variable[S, D, R], Relation[Pair[D, S], R]) {
	v := &Variable[S, D, R]{pending: make(map[S]map[D]R)}
	rel := NewRelation[Pair[D, S], R](sg.inner, "", "variable", nil, false, v)
	v.node = rel.node
	return v, rel
}

// Flow implements Op: drains everything propagated into pending so far,
// memoized per timestamp since the same Variable is typically read from
// more than one point in the recursive expression that defines it.
func (v *Variable[S, D, R]) Flow(t Timestamp, send func(Pair[D, S], R)) {
	if v.flowedOnce && timestampEqual(v.lastFlowed, t) {
		for i, rec := range v.cache {
			send(rec, v.cacheW[i])
		}
		return
	}
	var cache []Pair[D, S]
	var cacheW []R
	for s, bucket := range v.pending {
		for d, r := range bucket {
			rec := Pair[D, S]{A: d, B: s}
			send(rec, r)
			cache = append(cache, rec)
			cacheW = append(cacheW, r)
		}
	}
	v.pending = make(map[S]map[D]R)
	v.cache = cache
	v.cacheW = cacheW
	v.lastFlowed = t
	v.flowedOnce = true
}

func (v *Variable[S, D, R]) addPending(s S, d D, r R) {
	bucket, ok := v.pending[s]
	if !ok {
		bucket = make(map[D]R)
		v.pending[s] = bucket
	}
	AddInto(bucket, d, r)
}

// Set registers rel — built using v's own read relation somewhere in its
// dependency graph — as the expression that drives v forward each
// registrar round.
func Set[S cmp.Ordered, D Key, R Weight[R]](sg *Subgraph[S], v *Variable[S, D, R], rel Relation[Pair[D, S], R]) {
	st := &Stepper[S, D, R]{wrapped: rel.op, variable: v, buckets: NewOrderedMap[S, map[D]R]()}
	sg.registrar.steppers = append(sg.registrar.steppers, st)
	v.node.Deps = append(v.node.Deps, rel.node)
	v.node.Inputs = unionInputs(v.node.Deps)
}

// Stepper owns the ordered bucket of not-yet-propagated (S -> D -> R)
// emissions produced by one variable's driving relation.
type Stepper[S cmp.Ordered, D Key, R Weight[R]] struct {
	wrapped  Op[Pair[D, S], R]
	variable *Variable[S, D, R]
	buckets  *OrderedMap[S, map[D]R]
}

func (st *Stepper[S, D, R]) flow(t Timestamp) {
	st.wrapped.Flow(t, func(rec Pair[D, S], r R) {
		bucket, ok := st.buckets.Get(rec.B)
		if !ok {
			bucket = make(map[D]R)
		}
		AddInto(bucket, rec.A, r)
		if len(bucket) == 0 {
			st.buckets.Delete(rec.B)
		} else {
			st.buckets.Set(rec.B, bucket)
		}
	})
}

func (st *Stepper[S, D, R]) minKey() (S, bool) {
	return st.buckets.MinKey()
}

func (st *Stepper[S, D, R]) propagate(minS S) {
	k, ok := st.buckets.MinKey()
	if !ok || k != minS {
		return
	}
	_, bucket, _ := st.buckets.PopMin()
	for d, r := range bucket {
		st.variable.addPending(k, d, r)
	}
}

// Finalizer is issued by Subgraph.Finish and turns inner relations into
// outer ones via Leave.
type Finalizer[S cmp.Ordered] struct {
	registrar *Registrar[S]
}

// Finish closes the subgraph for new variables and returns a Finalizer for
// building Leave relations out of it.
func (sg *Subgraph[S]) Finish() *Finalizer[S] {
	sg.registrar.maxIterations = sg.inner.cfg.maxFixedPointIterations
	sg.registrar.emitter = sg.inner.cfg.emitter
	sg.registrar.metrics = sg.inner.cfg.metrics
	sg.registrar.depth = sg.inner.depth
	return &Finalizer[S]{registrar: sg.registrar}
}

// leaveOp runs the registrar to quiescence at the outer timestamp, then
// pulls the wrapped inner relation at the deepest inner timestamp reached.
type leaveOp[S cmp.Ordered, D Key, R Weight[R]] struct {
	registrar *Registrar[S]
	wrapped   Op[Pair[D, S], R]
}

// Flow implements Op.
func (op *leaveOp[S, D, R]) Flow(t Timestamp, send func(Pair[D, S], R)) {
	final := op.registrar.ensureQuiescent(t)
	op.wrapped.Flow(final, send)
}

// Leave wraps inner, an inner relation of fin's subgraph, exposing it back
// at the outer depth cc creates nodes at.
func Leave[S cmp.Ordered, D Key, R Weight[R]](cc *CreationContext, fin *Finalizer[S], inner Relation[Pair[D, S], R]) Relation[Pair[D, S], R] {
	op := &leaveOp[S, D, R]{registrar: fin.registrar, wrapped: inner.op}
	return NewRelation[Pair[D, S], R](cc, "", "leave", []*NodeInfo{inner.node}, true, op)
}
