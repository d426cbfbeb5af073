package dataflow

// DiscardableMap is the shared contract every map container in this package
// implements: add-or-cancel-to-zero mutation, iteration, and the
// remove-while-iterating shape reduce's diffing needs when it swaps a fresh
// output map in and consumes the old one entry by entry. Go interfaces make
// the read view and the destructible view the same type.
type DiscardableMap[K Key, R Weight[R]] interface {
	// Add merges r into the entry for k per the add-map invariant.
	Add(k K, r R)

	// ForEach visits every live (non-zero) entry. Mutating the map from
	// within fn is not supported.
	ForEach(fn func(K, R))

	// Remove deletes and returns the entry for k, if present.
	Remove(k K) (R, bool)

	// Len reports the number of live entries.
	Len() int
}

// HashMap is an add-map backed directly by a Go map. It is the default
// DiscardableMap implementation used by join, antijoin, and most reduce
// instances.
type HashMap[K Key, R Weight[R]] map[K]R

// NewHashMap returns an empty HashMap.
func NewHashMap[K Key, R Weight[R]]() HashMap[K, R] {
	return make(HashMap[K, R])
}

// Add implements DiscardableMap.
func (m HashMap[K, R]) Add(k K, r R) { AddInto(m, k, r) }

// ForEach implements DiscardableMap.
func (m HashMap[K, R]) ForEach(fn func(K, R)) {
	for k, r := range m {
		fn(k, r)
	}
}

// Remove implements DiscardableMap.
func (m HashMap[K, R]) Remove(k K) (R, bool) {
	r, ok := m[k]
	if ok {
		delete(m, k)
	}
	return r, ok
}

// Len implements DiscardableMap.
func (m HashMap[K, R]) Len() int { return len(m) }
