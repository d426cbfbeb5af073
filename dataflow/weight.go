// Package dataflow implements an embedded differential dataflow engine: a
// graph of relational operators over weighted multisets ("collections"),
// fed by host-writable inputs and incrementally recomputed on commit.
package dataflow

// Key is the constraint satisfied by any type used as a collection key:
// comparable so it can back a Go map, which also gives equality for free.
type Key interface {
	comparable
}

// Weight is a commutative monoid: addition, negation (hence subtraction),
// and a zero test. Every map container in this package relies on the
// add-map invariant (see AddInto): a key is present only while its weight
// is non-zero.
//
// R is self-referential so that Weight-typed values can be added to
// Weight-typed values without a separate combinator interface.
type Weight[R any] interface {
	// Plus returns the monoid sum of the receiver and other.
	Plus(other R) R

	// Negate returns the additive inverse.
	Negate() R

	// IsZero reports whether the receiver is the monoid identity.
	IsZero() bool
}

// Mult is the default weight type: signed integer multiplicity.
type Mult int64

// Plus implements Weight.
func (m Mult) Plus(other Mult) Mult { return m + other }

// Negate implements Weight.
func (m Mult) Negate() Mult { return -m }

// IsZero implements Weight.
func (m Mult) IsZero() bool { return m == 0 }

// Sub returns a minus b, derived from Plus and Negate per the monoid
// contract.
func Sub[R Weight[R]](a, b R) R {
	return a.Plus(b.Negate())
}
