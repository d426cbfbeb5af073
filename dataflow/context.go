package dataflow

import (
	"sync/atomic"

	"github.com/flowcore/differential/dataflow/emit"
)

// Step is the logical clock value within one context or subgraph depth.
type Step uint64

// Timestamp is a step value extended by subgraph depth: depth-0 is the
// root step; each nested subgraph appends one more component.
// Timestamps compare lexicographically by depth-prefix.
type Timestamp []Step

// Append extends t with one more depth component, without mutating t.
func (t Timestamp) Append(inner Step) Timestamp {
	out := make(Timestamp, len(t)+1)
	copy(out, t)
	out[len(t)] = inner
	return out
}

// StepFor projects t to its value at depth d.
func (t Timestamp) StepFor(d int) Step {
	return t[d]
}

// Less reports whether t sorts before other, comparing shared depth
// prefixes left to right.
func (t Timestamp) Less(other Timestamp) bool {
	n := len(t)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if t[i] != other[i] {
			return t[i] < other[i]
		}
	}
	return len(t) < len(other)
}

// ContextID uniquely identifies one Context and every handle it issues.
// Operations that mix handles from different contexts are a programming
// error.
type ContextID uint64

var nextContextID atomic.Uint64

func allocContextID() ContextID {
	return ContextID(nextContextID.Add(1))
}

// TrackingID names one in-flight with_temp_changes scope.
type TrackingID uint64

// trackable is implemented by anything with_temp_changes needs to roll
// back: presently only Input, but kept as an interface since arbitrary
// mutable sources could register in the future.
type trackable interface {
	undoChanges(ctx *ExecutionContext, id TrackingID)
}

// config holds the tunables set via Option at Context construction; shared
// by the CreationContext and the ExecutionContext it begins into.
type config struct {
	maxFixedPointIterations int
	hybridMapThreshold      int
	emitter                 emit.Emitter
	metrics                 *Metrics
}

func defaultConfig() *config {
	return &config{
		maxFixedPointIterations: 10000,
		hybridMapThreshold:      16,
		emitter:                 emit.NewNullEmitter(),
	}
}

// NodeMaker allocates relation ids and accumulates the node metadata
// created during a context's creation phase, handing them to the
// ExecutionContext at begin() for introspection (dot dump, event emission).
type NodeMaker struct {
	nextRelationID uint64
	infos          []*NodeInfo
}

func newNodeMaker() *NodeMaker {
	return &NodeMaker{}
}

// MakeNode allocates a fresh relation id and registers a NodeInfo for it.
// The node's reachable input set is the union of its dependencies' sets.
func (nm *NodeMaker) MakeNode(name, operatorName string, depth int, deps []*NodeInfo, hideable bool) *NodeInfo {
	info := &NodeInfo{
		RelationID:   nm.nextRelationID,
		Name:         name,
		OperatorName: operatorName,
		Depth:        depth,
		Deps:         deps,
		Hideable:     hideable,
		Shown:        true,
		Inputs:       unionInputs(deps),
	}
	nm.nextRelationID++
	nm.infos = append(nm.infos, info)
	return info
}

func unionInputs(deps []*NodeInfo) []freshnessSource {
	if len(deps) == 0 {
		return nil
	}
	seen := make(map[freshnessSource]struct{})
	var out []freshnessSource
	for _, d := range deps {
		for _, src := range d.Inputs {
			if _, ok := seen[src]; !ok {
				seen[src] = struct{}{}
				out = append(out, src)
			}
		}
	}
	return out
}

// CreationContext is the creation-phase half of a Context: it hands out
// Inputs and relation handles and owns the NodeMaker. Call Begin to
// crystallize it into an ExecutionContext.
type CreationContext struct {
	id    ContextID
	depth int
	maker *NodeMaker
	cfg   *config
}

// NewContext returns a fresh CreationContext, the entry point into the
// library.
func NewContext(opts ...Option) (*CreationContext, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &CreationContext{
		id:    allocContextID(),
		maker: newNodeMaker(),
		cfg:   cfg,
	}, nil
}

// ID returns the context's identity.
func (c *CreationContext) ID() ContextID { return c.id }

// Depth returns the subgraph nesting depth this context creates nodes at.
func (c *CreationContext) Depth() int { return c.depth }

// Subgraph returns a CreationContext one depth level deeper, sharing this
// context's identity and node maker. Subgraphs may nest.
func (c *CreationContext) Subgraph() *CreationContext {
	return &CreationContext{id: c.id, depth: c.depth + 1, maker: c.maker, cfg: c.cfg}
}

// Begin crystallizes the creation context into an ExecutionContext. After
// Begin, only data (not graph structure) may change.
func (c *CreationContext) Begin() *ExecutionContext {
	return &ExecutionContext{
		id:      c.id,
		maker:   c.maker,
		cfg:     c.cfg,
		tracked: make(map[TrackingID][]trackable),
	}
}

// ExecutionContext owns the logical clock and drives commit/temp-change
// semantics.
type ExecutionContext struct {
	id       ContextID
	step     Step
	maker    *NodeMaker
	cfg      *config
	tracked  map[TrackingID][]trackable
	runID    string
	activeID *TrackingID
}

// ID returns the context's identity.
func (ec *ExecutionContext) ID() ContextID { return ec.id }

// Step returns the current logical clock value.
func (ec *ExecutionContext) Step() Step { return ec.step }

// Timestamp returns the current root timestamp.
func (ec *ExecutionContext) Timestamp() Timestamp { return Timestamp{ec.step} }

// Emitter returns the configured event sink (never nil: defaults to a
// NullEmitter).
func (ec *ExecutionContext) Emitter() emit.Emitter { return ec.cfg.emitter }

// Metrics returns the configured Prometheus metrics, or nil if none.
func (ec *ExecutionContext) Metrics() *Metrics { return ec.cfg.metrics }

// MaxFixedPointIterations bounds the subgraph registrar's fixed-point
// loop.
func (ec *ExecutionContext) MaxFixedPointIterations() int { return ec.cfg.maxFixedPointIterations }

// SetRunID tags subsequent emitted events with a run identifier. Optional;
// defaults to the empty string.
func (ec *ExecutionContext) SetRunID(id string) { ec.runID = id }

// Infos returns every node registered during the creation phase, in
// creation order. Used by the dot-dump facility and by tests.
func (ec *ExecutionContext) Infos() []*NodeInfo {
	return ec.maker.infos
}

// Commit is the sole way to advance the clock.
func (ec *ExecutionContext) Commit() {
	ec.step++
	ec.Emitter().Emit(emit.Event{RunID: ec.runID, Step: int(ec.step), Msg: "commit"})
	if m := ec.Metrics(); m != nil {
		m.ObserveCommit()
	}
}

// registerTracking marks t as touched under id, once.
func (ec *ExecutionContext) registerTracking(id TrackingID, t trackable) {
	for _, existing := range ec.tracked[id] {
		if existing == t {
			return
		}
	}
	ec.tracked[id] = append(ec.tracked[id], t)
}

// activeTrackingID reports whether a with_temp_changes scope is open and,
// if so, which id new mutations should mirror under. A nested call
// replaces the outer id until it finishes.
func (ec *ExecutionContext) activeTrackingID() (TrackingID, bool) {
	if ec.activeID == nil {
		return 0, false
	}
	return *ec.activeID, true
}

// WithTempChanges runs changes with tracking enabled, then cont with the
// changes still in effect, then rolls back every tracked delta, leaving
// arrangements as they were pre-call at the post-call step. Tracking stays
// on through cont: a feedback controller committing inside cont writes
// into its target inputs, and those writes must roll back with the scoped
// delta or the outside would observe them.
func WithTempChanges(ec *ExecutionContext, changes func(*ExecutionContext), cont func(*ExecutionContext)) {
	ec.Commit()
	id := TrackingID(ec.step)
	prev := ec.activeID
	ec.activeID = &id
	changes(ec)
	ec.Commit()
	cont(ec)
	ec.Commit()
	ec.activeID = prev

	touched := ec.tracked[id]
	delete(ec.tracked, id)
	for _, t := range touched {
		t.undoChanges(ec, id)
	}
	ec.Commit()
}
