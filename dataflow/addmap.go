package dataflow

// AddInto is the one function every add path in this package goes through:
// merge r into m[k], then delete k if the merged weight is zero. Do not
// open-code this elsewhere.
func AddInto[K Key, R Weight[R]](m map[K]R, k K, r R) {
	if existing, ok := m[k]; ok {
		merged := existing.Plus(r)
		if merged.IsZero() {
			delete(m, k)
		} else {
			m[k] = merged
		}
		return
	}
	if !r.IsZero() {
		m[k] = r
	}
}

// AddIntoNested merges r into m[k1][k2], creating the inner map on demand
// and pruning both the inner entry and, when it becomes empty, the outer
// slot, so emptiness propagates upward.
func AddIntoNested[K1 Key, K2 Key, R Weight[R]](m map[K1]map[K2]R, k1 K1, k2 K2, r R) {
	inner, ok := m[k1]
	if !ok {
		if r.IsZero() {
			return
		}
		inner = make(map[K2]R, 1)
		m[k1] = inner
	}
	AddInto(inner, k2, r)
	if len(inner) == 0 {
		delete(m, k1)
	}
}

// Negated returns a copy of m with every weight negated. Used by reduce's
// old-vs-new diffing and by with_temp_changes' rollback replay.
func Negated[K Key, R Weight[R]](m map[K]R) map[K]R {
	out := make(map[K]R, len(m))
	for k, r := range m {
		out[k] = r.Negate()
	}
	return out
}

// DiffInto emits, for every key in newM not matching oldM (or present only
// in one), the delta needed to move from oldM to newM — oldM is consumed
// (entries removed as they're matched) so that whatever remains in oldM at
// the end are pure deletions. This is the reduce diffing algorithm,
// factored out so ReduceOutput and Reduce share it.
func DiffInto[K Key, R Weight[R]](oldM, newM map[K]R, emit func(K, R)) {
	for k, nr := range newM {
		or, ok := oldM[k]
		if ok {
			delete(oldM, k)
			d := Sub(nr, or)
			if !d.IsZero() {
				emit(k, d)
			}
			continue
		}
		if !nr.IsZero() {
			emit(k, nr)
		}
	}
	for k, or := range oldM {
		if !or.IsZero() {
			emit(k, or.Negate())
		}
	}
}
