package dataflow

// Pair is a generic two-component record, used throughout this package for
// keyed records (Pair[K, D]) and join output payloads (Pair[LD, RD]).
type Pair[A any, B any] struct {
	A A
	B B
}
