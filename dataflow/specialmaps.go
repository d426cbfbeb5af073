package dataflow

// UnitKey is the key type for reducers that produce at most one output
// record with no distinguishing payload (distinct's marker, the result of
// assert_1to1_with_output). Zero-size, so a map keyed by it costs nothing
// beyond the single entry.
type UnitKey struct{}

// OptionMap holds zero or one entry without allocating a Go map, for
// reducers (group_min, group_max, distinct) that produce at most one
// output record per key.
type OptionMap[K Key, R Weight[R]] struct {
	key K
	val R
	has bool
}

// NewOptionMap returns an empty OptionMap.
func NewOptionMap[K Key, R Weight[R]]() *OptionMap[K, R] {
	return &OptionMap[K, R]{}
}

// Add implements DiscardableMap. An OptionMap holds at most one live key:
// while an entry is held, an add under a different key is ignored and the
// held entry is left unchanged. Once the held entry's weight reaches zero
// it is removed, and the next add may use any key.
func (m *OptionMap[K, R]) Add(k K, r R) {
	if m.has && m.key != k {
		// Different key while an entry is held: the add is ignored.
		return
	}
	if !m.has {
		if r.IsZero() {
			return
		}
		m.key, m.val, m.has = k, r, true
		return
	}
	merged := m.val.Plus(r)
	if merged.IsZero() {
		m.has = false
		var zv R
		m.val = zv
	} else {
		m.val = merged
	}
}

// ForEach implements DiscardableMap.
func (m *OptionMap[K, R]) ForEach(fn func(K, R)) {
	if m.has {
		fn(m.key, m.val)
	}
}

// Remove implements DiscardableMap.
func (m *OptionMap[K, R]) Remove(k K) (R, bool) {
	if m.has && m.key == k {
		m.has = false
		v := m.val
		var zv R
		m.val = zv
		return v, true
	}
	var zv R
	return zv, false
}

// Len implements DiscardableMap.
func (m *OptionMap[K, R]) Len() int {
	if m.has {
		return 1
	}
	return 0
}

// SingletonMap is an OptionMap specialized to the UnitKey case — a
// singleton map and a unit map collapse to the same type in Go since both
// hold at most one weight with no distinguishing key.
type SingletonMap[R Weight[R]] struct {
	inner OptionMap[UnitKey, R]
}

// NewSingletonMap returns an empty SingletonMap.
func NewSingletonMap[R Weight[R]]() *SingletonMap[R] {
	return &SingletonMap[R]{}
}

// Add merges r into the map's single slot.
func (m *SingletonMap[R]) Add(r R) { m.inner.Add(UnitKey{}, r) }

// Get returns the current weight and whether it is present.
func (m *SingletonMap[R]) Get() (R, bool) {
	var out R
	has := false
	m.inner.ForEach(func(_ UnitKey, r R) { out, has = r, true })
	return out, has
}

// Len reports 0 or 1.
func (m *SingletonMap[R]) Len() int { return m.inner.Len() }

// HybridMap is a buffered add-map: adds land in a plain slice until
// it grows past a threshold (starting at 16), at which point the slice is
// folded into the backing hash map and the threshold doubles. Good for
// inputs that receive adds in bursts, since appending to a slice is cheaper
// than a map insert per add.
type HybridMap[K Key, R Weight[R]] struct {
	hashed    map[K]R
	pending   []hybridEntry[K, R]
	threshold int
}

type hybridEntry[K Key, R Weight[R]] struct {
	key K
	val R
}

// NewHybridMap returns an empty HybridMap with the default threshold of 16.
func NewHybridMap[K Key, R Weight[R]]() *HybridMap[K, R] {
	return NewHybridMapWithThreshold[K, R](16)
}

// NewHybridMapWithThreshold returns an empty HybridMap with the given
// initial flush threshold (see WithHybridMapThreshold).
func NewHybridMapWithThreshold[K Key, R Weight[R]](threshold int) *HybridMap[K, R] {
	if threshold <= 0 {
		threshold = 16
	}
	return &HybridMap[K, R]{hashed: make(map[K]R), threshold: threshold}
}

// Add implements DiscardableMap.
func (m *HybridMap[K, R]) Add(k K, r R) {
	m.pending = append(m.pending, hybridEntry[K, R]{k, r})
	if len(m.pending) > m.threshold {
		m.flush()
	}
}

func (m *HybridMap[K, R]) flush() {
	for _, e := range m.pending {
		AddInto(m.hashed, e.key, e.val)
	}
	m.pending = m.pending[:0]
	if len(m.hashed) > m.threshold {
		m.threshold *= 2
	}
}

// ForEach implements DiscardableMap; flushes first so pending adds are
// visible.
func (m *HybridMap[K, R]) ForEach(fn func(K, R)) {
	m.flush()
	for k, r := range m.hashed {
		fn(k, r)
	}
}

// Remove implements DiscardableMap.
func (m *HybridMap[K, R]) Remove(k K) (R, bool) {
	m.flush()
	r, ok := m.hashed[k]
	if ok {
		delete(m.hashed, k)
	}
	return r, ok
}

// Len implements DiscardableMap.
func (m *HybridMap[K, R]) Len() int {
	m.flush()
	return len(m.hashed)
}

// Steal moves every entry out of the map, leaving it empty, and returns
// them as a plain map. Used when an operator hands its accumulated state
// to a caller that will own it from then on.
func (m *HybridMap[K, R]) Steal() map[K]R {
	m.flush()
	out := m.hashed
	m.hashed = make(map[K]R)
	return out
}
