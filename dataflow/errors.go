package dataflow

import "errors"

// ErrContextMismatch indicates a handle (Input, Relation, arrangement) was
// used against an ExecutionContext whose id does not match the one it was
// created under.
var ErrContextMismatch = errors.New("dataflow: handle belongs to a different context")

// ErrMonotonicityViolation indicates an input was resolved to a step less
// than its last-resolved step.
var ErrMonotonicityViolation = errors.New("dataflow: resolve called with a step before the last resolved step")

// ErrIllegalHide indicates an attempt to hide an unhideable operator, or
// one with a dependency count other than exactly one.
var ErrIllegalHide = errors.New("dataflow: node cannot be hidden")

// ErrReducerContractViolation indicates a reducer advertised as 1-to-1 (see
// ops.Assert1to1WithOutput) produced an output map without exactly one
// entry of weight 1.
var ErrReducerContractViolation = errors.New("dataflow: reducer violated its output contract")

// ErrEmptyReducerResult indicates a reducer that must return a singleton
// returned no entries.
var ErrEmptyReducerResult = errors.New("dataflow: reducer required to return a singleton returned none")

// ErrFixedPointDiverged indicates a subgraph's registrar exceeded its
// configured iteration cap without reaching quiescence: the hallmark of an
// improperly tiered subgraph, surfaced loudly rather than hanging.
var ErrFixedPointDiverged = errors.New("dataflow: subgraph fixed-point loop exceeded iteration cap; check the step-type tiering discipline")

// DataflowError wraps one of the sentinels above with the node and
// relation it was raised against, so callers get a precise location
// alongside errors.Is/errors.As support via Unwrap.
type DataflowError struct {
	// Op names the operation that failed, e.g. "Input.Update", "Hide".
	Op string

	// RelationID identifies the node involved, if any.
	RelationID uint64

	// HasRelationID reports whether RelationID is meaningful.
	HasRelationID bool

	// Cause is one of the sentinel errors above.
	Cause error
}

// Error implements error.
func (e *DataflowError) Error() string {
	if e.HasRelationID {
		return "dataflow: " + e.Op + " (relation " + uintToString(e.RelationID) + "): " + e.Cause.Error()
	}
	return "dataflow: " + e.Op + ": " + e.Cause.Error()
}

// Unwrap returns the wrapped sentinel.
func (e *DataflowError) Unwrap() error { return e.Cause }

func wrapErr(op string, cause error) error {
	return &DataflowError{Op: op, Cause: cause}
}

func wrapNodeErr(op string, relationID uint64, cause error) error {
	return &DataflowError{Op: op, RelationID: relationID, HasRelationID: true, Cause: cause}
}
