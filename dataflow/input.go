package dataflow

// Input is a host-writable collection: staged deltas committed at step
// boundaries. Updates land in `adding`; resolving a later step
// freezes `adding` into `pending` and opens a fresh `adding` buffer.
// Flow drains `pending`.
//
// `adding` is a HybridMap because input updates typically arrive in bursts
// between commits: appending to the hybrid's buffer is cheaper than a map
// insert per update, and the whole buffer is consumed at once on resolve.
type Input[D Key, R Weight[R]] struct {
	ctxID ContextID
	node  *NodeInfo

	adding  *HybridMap[D, R]
	pending map[D]R

	addingStep  Step
	pendingStep Step

	// lastInterestingStep is the step at which this input last recorded a
	// non-empty delta; LatestUpdate reports it for the freshness predicate.
	lastInterestingStep Step
	hasInterestingStep  bool

	mirrors map[TrackingID]map[D]R
}

// CreateInput returns a writable Input handle and its read Relation.
func CreateInput[D Key, R Weight[R]](cc *CreationContext) (*Input[D, R], Relation[D, R]) {
	in := &Input[D, R]{
		ctxID:   cc.id,
		adding:  NewHybridMapWithThreshold[D, R](cc.cfg.hybridMapThreshold),
		pending: make(map[D]R),
		mirrors: make(map[TrackingID]map[D]R),
	}
	rel := NewRelation[D, R](cc, "", "input", nil, false, in)
	in.node = rel.node
	in.node.Inputs = []freshnessSource{in}
	return in, rel
}

// latestUpdateUntyped implements freshnessSource.
func (in *Input[D, R]) latestUpdateUntyped(step Step) (Step, bool) {
	return in.LatestUpdate(step)
}

// Update records a delta at the current step, honoring the add-map
// invariant, and mirrors it into any active with_temp_changes scope.
// Adds staged at an earlier step are first frozen into the pending buffer.
func (in *Input[D, R]) Update(ec *ExecutionContext, x D, r R) error {
	if in.ctxID != ec.ID() {
		return wrapNodeErr("Input.Update", in.node.RelationID, ErrContextMismatch)
	}
	if err := in.resolve(ec.Step()); err != nil {
		return err
	}
	in.adding.Add(x, r)
	if id, ok := ec.activeTrackingID(); ok {
		mirror, ok := in.mirrors[id]
		if !ok {
			mirror = make(map[D]R)
			in.mirrors[id] = mirror
			ec.registerTracking(id, in)
		}
		AddInto(mirror, x, r)
	}
	return nil
}

// Insert is +1 sugar over Update, for Mult-weighted inputs.
func Insert[D Key](ec *ExecutionContext, in *Input[D, Mult], x D) error {
	return in.Update(ec, x, Mult(1))
}

// Delete is -1 sugar over Update, for Mult-weighted inputs.
func Delete[D Key](ec *ExecutionContext, in *Input[D, Mult], x D) error {
	return in.Update(ec, x, Mult(-1))
}

// resolve freezes `adding` into `pending` if step has moved past
// addingStep, rejecting any attempt to resolve backwards. A step with no
// pending adds does not count as an update for freshness purposes.
func (in *Input[D, R]) resolve(step Step) error {
	if step < in.addingStep {
		return wrapNodeErr("Input.resolve", in.node.RelationID, ErrMonotonicityViolation)
	}
	if step > in.addingStep {
		if in.adding.Len() > 0 {
			in.pendingStep = in.addingStep
			in.lastInterestingStep = in.pendingStep
			in.hasInterestingStep = true
			for k, r := range in.adding.Steal() {
				AddInto(in.pending, k, r)
			}
		}
		in.addingStep = step
	}
	return nil
}

// Flow implements Op: resolve to the current timestamp's root step, then
// drain `pending`.
func (in *Input[D, R]) Flow(t Timestamp, send func(D, R)) {
	_ = in.resolve(t.StepFor(0))
	for k, r := range in.pending {
		send(k, r)
	}
	in.pending = make(map[D]R)
}

// LatestUpdate resolves to step and returns the last step at which this
// input recorded a non-empty delta, and whether it has ever done so, used
// by the freshness predicate.
func (in *Input[D, R]) LatestUpdate(step Step) (Step, bool) {
	_ = in.resolve(step)
	return in.lastInterestingStep, in.hasInterestingStep
}

// undoChanges implements trackable: replays the negation of the tracked
// mirror map for id, then forgets it. The
// replay writes straight into the adding buffer rather than through Update
// so a still-open outer tracking scope does not mirror the rollback itself.
func (in *Input[D, R]) undoChanges(ec *ExecutionContext, id TrackingID) {
	mirror, ok := in.mirrors[id]
	if !ok {
		return
	}
	delete(in.mirrors, id)
	_ = in.resolve(ec.Step())
	for k, r := range mirror {
		in.adding.Add(k, r.Negate())
	}
}
