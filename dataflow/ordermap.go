package dataflow

import (
	"cmp"
	"container/heap"
)

// orderedKeyHeap is a min-heap of keys, used by OrderedMap to answer
// "smallest key present" queries in O(log n).
type orderedKeyHeap[K cmp.Ordered] []K

func (h orderedKeyHeap[K]) Len() int            { return len(h) }
func (h orderedKeyHeap[K]) Less(i, j int) bool  { return h[i] < h[j] }
func (h orderedKeyHeap[K]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *orderedKeyHeap[K]) Push(x interface{}) { *h = append(*h, x.(K)) }
func (h *orderedKeyHeap[K]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// OrderedMap is a map keyed by a totally-ordered K, supporting "what is
// the smallest key present" in addition to normal lookup. Used by the
// subgraph stepper's pending buckets and by ordered feedback's least-key
// dispatch.
//
// Deletion is lazy: removed keys are left in the heap and skipped over the
// next time the heap root is inspected, so Delete is a plain map delete
// with no heap-wide scan.
type OrderedMap[K cmp.Ordered, V any] struct {
	data map[K]V
	heap orderedKeyHeap[K]
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[K cmp.Ordered, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{data: make(map[K]V)}
}

// Set stores v under k, replacing any existing value.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if _, exists := m.data[k]; !exists {
		heap.Push(&m.heap, k)
	}
	m.data[k] = v
}

// Get looks up k.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.data[k]
	return v, ok
}

// Delete removes k, if present.
func (m *OrderedMap[K, V]) Delete(k K) {
	delete(m.data, k)
}

// Len reports the number of live entries.
func (m *OrderedMap[K, V]) Len() int {
	return len(m.data)
}

func (m *OrderedMap[K, V]) dropStale() {
	for m.heap.Len() > 0 {
		if _, ok := m.data[m.heap[0]]; ok {
			return
		}
		heap.Pop(&m.heap)
	}
}

// MinKey returns the smallest key currently present, and false if empty.
func (m *OrderedMap[K, V]) MinKey() (K, bool) {
	m.dropStale()
	if m.heap.Len() == 0 {
		var zero K
		return zero, false
	}
	return m.heap[0], true
}

// PopMin removes and returns the entry with the smallest key.
func (m *OrderedMap[K, V]) PopMin() (K, V, bool) {
	k, ok := m.MinKey()
	if !ok {
		var zk K
		var zv V
		return zk, zv, false
	}
	v := m.data[k]
	heap.Pop(&m.heap)
	delete(m.data, k)
	return k, v, true
}

// Keys returns all live keys in ascending order. Intended for dumps/tests;
// not on the hot path.
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	// simple insertion sort is fine: only used off the hot path
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
