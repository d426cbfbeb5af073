package dataflow

// NodeInfo is the per-operator metadata block shared by every handle that
// points at one operator node: relation identity, display name, hide/show
// state, dependency edges, nesting depth, and a message counter. Sharing
// is a plain pointer; nothing in this package mutates a NodeInfo from more
// than one goroutine.
type NodeInfo struct {
	RelationID   uint64
	Name         string
	OperatorName string
	Depth        int
	Deps         []*NodeInfo
	Hideable     bool
	Shown        bool
	MessageCount uint64

	// Inputs is the union of freshness sources reachable upstream of this
	// node, used by the freshness predicate to decide locally whether a
	// barrier, arrangement, or reduce-output needs to flow.
	Inputs []freshnessSource
}

// freshnessSource is implemented by Input; it is the thing whose
// LatestUpdate decides whether any downstream consumer is stale.
type freshnessSource interface {
	latestUpdateUntyped(step Step) (Step, bool)
}

// IsFreshAt reports whether any reachable input recorded an update at a
// step t with since <= t < upto.
func (n *NodeInfo) IsFreshAt(since, upto Step) bool {
	for _, src := range n.Inputs {
		t, ok := src.latestUpdateUntyped(upto)
		if ok && t >= since && t < upto {
			return true
		}
	}
	return false
}

// Named sets the node's display name, or — if the node is hidden — forwards
// the call to its single dependency.
func (n *NodeInfo) Named(name string) {
	if n.Shown {
		n.Name = name
		return
	}
	n.Deps[0].Named(name)
}

// OpNamed sets the node's operator-type name, applying the same
// apply-to-shown forwarding as Named.
func (n *NodeInfo) OpNamed(name string) {
	if n.Shown {
		n.OperatorName = name
		return
	}
	n.Deps[0].OpNamed(name)
}

// Hide marks the node hidden in the graph view. Only operators marked
// Hideable at construction, with exactly one dependency, may be hidden.
func (n *NodeInfo) Hide() error {
	if !n.Hideable || len(n.Deps) != 1 {
		return wrapNodeErr("Hide", n.RelationID, ErrIllegalHide)
	}
	n.Shown = false
	return nil
}

// ShownRelationID returns this node's relation id, or — if hidden — the
// shown relation id of its single dependency, recursively.
func (n *NodeInfo) ShownRelationID() uint64 {
	if n.Shown {
		return n.RelationID
	}
	return n.Deps[0].ShownRelationID()
}

// RecordMessages adds n to the node's cumulative message counter. The
// counter reads "since graph creation", not per-step; reading it
// concurrently with a flow is undefined outside the single-threaded model.
func (n *NodeInfo) RecordMessages(n2 int) {
	n.MessageCount += uint64(n2)
}
