// Package ops provides the user-facing combinators layered over the core
// operators: map/filter/flat-map sugar, distinct, counts, histogram,
// group-min/max, the semijoin family, set operations, and collection
// fan-out. Everything here is expressible on the core's public contracts;
// no combinator touches operator internals.
package ops

import (
	"cmp"

	"github.com/flowcore/differential/dataflow"
)

// hmap is Map followed by Hidden: the intermediate node disappears from the
// graph view, collapsing to its upstream. Used for the internal reshaping
// steps every derived combinator needs.
func hmap[D1 dataflow.Key, R dataflow.Weight[R], D2 dataflow.Key](cc *dataflow.CreationContext, src dataflow.Relation[D1, R], f func(D1) D2) dataflow.Relation[D2, R] {
	rel := Map(cc, src, f)
	rel, _ = rel.Hidden()
	return rel
}

// Map transforms each record through f, weights unchanged.
func Map[D1 dataflow.Key, R dataflow.Weight[R], D2 dataflow.Key](cc *dataflow.CreationContext, src dataflow.Relation[D1, R], f func(D1) D2) dataflow.Relation[D2, R] {
	return dataflow.FlatMap(cc, src, func(x D1, r R, send func(D2, R)) {
		send(f(x), r)
	}).OpNamed("map")
}

// FlatMap expands each record into zero or more records, each carrying the
// original weight.
func FlatMap[D1 dataflow.Key, R dataflow.Weight[R], D2 dataflow.Key](cc *dataflow.CreationContext, src dataflow.Relation[D1, R], f func(D1) []D2) dataflow.Relation[D2, R] {
	return dataflow.FlatMap(cc, src, func(x D1, r R, send func(D2, R)) {
		for _, y := range f(x) {
			send(y, r)
		}
	}).OpNamed("flat_map")
}

// Filter keeps records satisfying pred.
func Filter[D dataflow.Key, R dataflow.Weight[R]](cc *dataflow.CreationContext, src dataflow.Relation[D, R], pred func(D) bool) dataflow.Relation[D, R] {
	return dataflow.FlatMap(cc, src, func(x D, r R, send func(D, R)) {
		if pred(x) {
			send(x, r)
		}
	}).OpNamed("filter")
}

// MapR transforms each record's weight through f, data unchanged.
func MapR[D dataflow.Key, R1 dataflow.Weight[R1], R2 dataflow.Weight[R2]](cc *dataflow.CreationContext, src dataflow.Relation[D, R1], f func(R1) R2) dataflow.Relation[D, R2] {
	return dataflow.FlatMap(cc, src, func(x D, r R1, send func(D, R2)) {
		send(x, f(r))
	}).OpNamed("map_r")
}

// Negate flips the sign of every weight.
func Negate[D dataflow.Key, R dataflow.Weight[R]](cc *dataflow.CreationContext, src dataflow.Relation[D, R]) dataflow.Relation[D, R] {
	return MapR(cc, src, func(r R) R { return r.Negate() }).OpNamed("negate")
}

// Collect type-erases src and fans it out, the boundary at which a long
// statically composed pipeline becomes a shareable collection.
func Collect[D dataflow.Key, R dataflow.Weight[R]](cc *dataflow.CreationContext, src dataflow.Relation[D, R]) dataflow.Listener[D, R] {
	return dataflow.Split(cc, dataflow.Dynamic(cc, src))
}

// Distinct reduces src to one record of weight 1 per present key,
// whatever the incoming weights.
func Distinct[D dataflow.Key, R dataflow.Weight[R]](cc *dataflow.CreationContext, src dataflow.Relation[D, R]) dataflow.Relation[D, dataflow.Mult] {
	keyed := hmap(cc, src, func(d D) dataflow.Pair[D, dataflow.UnitKey] {
		return dataflow.Pair[D, dataflow.UnitKey]{A: d}
	})
	reduced, _ := dataflow.Reduce(cc, keyed, func(D, map[dataflow.UnitKey]R) map[dataflow.UnitKey]dataflow.Mult {
		return map[dataflow.UnitKey]dataflow.Mult{{}: 1}
	})
	reduced = reduced.OpNamed("distinct")
	return hmap(cc, reduced, func(p dataflow.Pair[D, dataflow.UnitKey]) D { return p.A })
}

// keyWeight constrains weights that can double as record data, the way
// Counts carries each key's total weight in its output records.
type keyWeight[R any] interface {
	dataflow.Weight[R]
	comparable
}

// Counts emits (key, total weight) with weight 1 for every present key.
func Counts[D dataflow.Key, R keyWeight[R]](cc *dataflow.CreationContext, src dataflow.Relation[D, R]) dataflow.Relation[dataflow.Pair[D, R], dataflow.Mult] {
	keyed := hmap(cc, src, func(d D) dataflow.Pair[D, dataflow.UnitKey] {
		return dataflow.Pair[D, dataflow.UnitKey]{A: d}
	})
	reduced, _ := dataflow.Reduce(cc, keyed, func(_ D, input map[dataflow.UnitKey]R) map[R]dataflow.Mult {
		total, ok := input[dataflow.UnitKey{}]
		if !ok {
			return map[R]dataflow.Mult{}
		}
		return map[R]dataflow.Mult{total: 1}
	})
	return reduced.OpNamed("counts")
}

// HistIncluding is Counts over src concat keys, shifted down by the one
// count each key contributes to itself: keys present in keys but absent
// from src appear with count 0.
func HistIncluding[D dataflow.Key](cc *dataflow.CreationContext, src, keys dataflow.Relation[D, dataflow.Mult]) dataflow.Relation[dataflow.Pair[D, dataflow.Mult], dataflow.Mult] {
	merged := dataflow.Concat(cc, src, keys)
	counted := Counts(cc, merged)
	return hmap(cc, counted, func(p dataflow.Pair[D, dataflow.Mult]) dataflow.Pair[D, dataflow.Mult] {
		return dataflow.Pair[D, dataflow.Mult]{A: p.A, B: p.B - 1}
	})
}

// Histogram counts, for every key in keys, how many src records carry that
// key; src records whose key is not in keys are dropped, and keys with no
// src records appear with count 0. keys is consumed twice, so it must
// arrive as a split listener.
func Histogram[D dataflow.Key](cc *dataflow.CreationContext, src dataflow.Relation[D, dataflow.Mult], keys dataflow.Listener[D, dataflow.Mult]) dataflow.Relation[dataflow.Pair[D, dataflow.Mult], dataflow.Mult] {
	second := keys.Clone(cc)
	return HistIncluding(cc, Intersection(cc, src, keys.Relation), second.Relation)
}

// GroupMin keeps, per key, only the smallest value present.
func GroupMin[K dataflow.Key, V cmp.Ordered](cc *dataflow.CreationContext, src dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult]) (dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult], *dataflow.ReduceHandle[K, V, dataflow.Mult]) {
	rel, handle := dataflow.Reduce(cc, src, func(_ K, input map[V]dataflow.Mult) map[V]dataflow.Mult {
		min, ok := minKeyOf(input, cmp.Less[V])
		if !ok {
			return map[V]dataflow.Mult{}
		}
		return map[V]dataflow.Mult{min: 1}
	})
	return rel.OpNamed("group_min"), handle
}

// GroupMax keeps, per key, only the largest value present.
func GroupMax[K dataflow.Key, V cmp.Ordered](cc *dataflow.CreationContext, src dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult]) (dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult], *dataflow.ReduceHandle[K, V, dataflow.Mult]) {
	rel, handle := dataflow.Reduce(cc, src, func(_ K, input map[V]dataflow.Mult) map[V]dataflow.Mult {
		max, ok := minKeyOf(input, func(a, b V) bool { return b < a })
		if !ok {
			return map[V]dataflow.Mult{}
		}
		return map[V]dataflow.Mult{max: 1}
	})
	return rel.OpNamed("group_max"), handle
}

func minKeyOf[V comparable, R any](m map[V]R, less func(a, b V) bool) (V, bool) {
	var best V
	found := false
	for v := range m {
		if !found || less(v, best) {
			best = v
			found = true
		}
	}
	return best, found
}

// Assert1to1WithOutput asserts every key maps to exactly one value with
// weight exactly 1, panicking on violation, and returns the reduce handle
// so a ReduceOutput reader can serve point lookups without a second copy.
func Assert1to1WithOutput[K dataflow.Key, V dataflow.Key](cc *dataflow.CreationContext, src dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult]) (dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult], *dataflow.ReduceHandle[K, V, dataflow.Mult]) {
	rel, handle := dataflow.Reduce(cc, src, func(_ K, input map[V]dataflow.Mult) map[V]dataflow.Mult {
		if len(input) != 1 {
			panic(&dataflow.DataflowError{Op: "assert_1to1", Cause: dataflow.ErrReducerContractViolation})
		}
		out := make(map[V]dataflow.Mult, 1)
		for v, r := range input {
			if r != 1 {
				panic(&dataflow.DataflowError{Op: "assert_1to1", Cause: dataflow.ErrReducerContractViolation})
			}
			out[v] = 1
		}
		return out
	})
	return rel.OpNamed("assert_1to1"), handle
}

// SingletonValue reads the single value reduce currently holds for k,
// failing if the key is absent or holds anything but exactly one entry.
func SingletonValue[K dataflow.Key, V dataflow.Key, R dataflow.Weight[R]](ro *dataflow.ReduceOutput[K, V, R], k K) (V, error) {
	var zero V
	m, ok := ro.Get(k)
	if !ok || len(m) == 0 {
		return zero, &dataflow.DataflowError{Op: "SingletonValue", Cause: dataflow.ErrEmptyReducerResult}
	}
	if len(m) != 1 {
		return zero, &dataflow.DataflowError{Op: "SingletonValue", Cause: dataflow.ErrReducerContractViolation}
	}
	for v := range m {
		return v, nil
	}
	return zero, nil
}
