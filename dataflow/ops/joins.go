package ops

import "github.com/flowcore/differential/dataflow"

func multTimes(a, b dataflow.Mult) dataflow.Mult { return a * b }

// Semijoin keeps left records whose key has presence on the right,
// multiplying weights through.
func Semijoin[K dataflow.Key, V dataflow.Key](cc *dataflow.CreationContext, left dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult], right dataflow.Relation[K, dataflow.Mult]) dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult] {
	marker := hmap(cc, right, func(k K) dataflow.Pair[K, dataflow.UnitKey] {
		return dataflow.Pair[K, dataflow.UnitKey]{A: k}
	})
	joined := dataflow.Join(cc, left, marker, multTimes).OpNamed("semijoin")
	return hmap(cc, joined, func(p dataflow.Pair[K, dataflow.Pair[V, dataflow.UnitKey]]) dataflow.Pair[K, V] {
		return dataflow.Pair[K, V]{A: p.A, B: p.B.A}
	})
}

// SemijoinOn keys left records by f before semijoining against right.
func SemijoinOn[D dataflow.Key, K dataflow.Key](cc *dataflow.CreationContext, left dataflow.Relation[D, dataflow.Mult], right dataflow.Relation[K, dataflow.Mult], f func(D) K) dataflow.Relation[D, dataflow.Mult] {
	keyed := hmap(cc, left, func(d D) dataflow.Pair[K, D] {
		return dataflow.Pair[K, D]{A: f(d), B: d}
	})
	kept := Semijoin(cc, keyed, right).OpNamed("semijoin_on")
	return hmap(cc, kept, func(p dataflow.Pair[K, D]) D { return p.B })
}

// Antijoin keeps left records whose key has no presence on the right.
func Antijoin[K dataflow.Key, V dataflow.Key](cc *dataflow.CreationContext, left dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult], right dataflow.Relation[K, dataflow.Mult]) dataflow.Relation[dataflow.Pair[K, V], dataflow.Mult] {
	marker := hmap(cc, right, func(k K) dataflow.Pair[K, dataflow.UnitKey] {
		return dataflow.Pair[K, dataflow.UnitKey]{A: k}
	})
	return dataflow.Antijoin(cc, left, marker).OpNamed("antijoin")
}

// AntijoinOn keys left records by f before antijoining against right.
func AntijoinOn[D dataflow.Key, K dataflow.Key](cc *dataflow.CreationContext, left dataflow.Relation[D, dataflow.Mult], right dataflow.Relation[K, dataflow.Mult], f func(D) K) dataflow.Relation[D, dataflow.Mult] {
	keyed := hmap(cc, left, func(d D) dataflow.Pair[K, D] {
		return dataflow.Pair[K, D]{A: f(d), B: d}
	})
	kept := Antijoin(cc, keyed, right).OpNamed("antijoin_on")
	return hmap(cc, kept, func(p dataflow.Pair[K, D]) D { return p.B })
}

// Intersection keeps records of left that also occur in right, with
// product weights.
func Intersection[D dataflow.Key](cc *dataflow.CreationContext, left, right dataflow.Relation[D, dataflow.Mult]) dataflow.Relation[D, dataflow.Mult] {
	return SemijoinOn(cc, left, right, func(d D) D { return d }).OpNamed("intersection")
}

// SetMinus keeps records of left that do not occur in right.
func SetMinus[D dataflow.Key](cc *dataflow.CreationContext, left, right dataflow.Relation[D, dataflow.Mult]) dataflow.Relation[D, dataflow.Mult] {
	return AntijoinOn(cc, left, right, func(d D) D { return d }).OpNamed("set_minus")
}
