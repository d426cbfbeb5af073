// Package feedback implements the feedback controller: a list of
// connections that copy arrangement contents back into inputs, iterated
// to quiescence on every Commit.
package feedback

import (
	"cmp"

	"github.com/flowcore/differential/dataflow"
	"github.com/flowcore/differential/dataflow/emit"
)

// Member is one arrangement-to-input link, fired together with any other
// members grouped into the same connection by TogetherWith.
type Member interface {
	// feed brings the target input into agreement with the source
	// arrangement, reporting whether any delta was written.
	feed(ec *dataflow.ExecutionContext) bool
}

// leafMember copies an arrangement into an input by difference: it tracks
// what it has already fed and writes only arrangement-minus-fed each round.
// Copying the full map verbatim every round would re-add weights the input
// already carries and the loop would never quiesce; feeding the difference
// makes the copy idempotent, which is what lets the controller detect a
// fixed point at all.
type leafMember[D dataflow.Key, R dataflow.Weight[R]] struct {
	source *dataflow.Arrangement[D, R]
	target *dataflow.Input[D, R]
	fed    map[D]R
}

func (m *leafMember[D, R]) feed(ec *dataflow.ExecutionContext) bool {
	data, err := m.source.Read(ec)
	if err != nil {
		return false
	}
	changed := false
	for d, r := range data {
		delta := dataflow.Sub(r, m.fed[d])
		if delta.IsZero() {
			continue
		}
		_ = m.target.Update(ec, d, delta)
		dataflow.AddInto(m.fed, d, delta)
		changed = true
	}
	var gone []D
	for d := range m.fed {
		if _, ok := data[d]; !ok {
			gone = append(gone, d)
		}
	}
	for _, d := range gone {
		_ = m.target.Update(ec, d, m.fed[d].Negate())
		delete(m.fed, d)
		changed = true
	}
	return changed
}

// Feedback builds a Member that keeps target in agreement with source.
func Feedback[D dataflow.Key, R dataflow.Weight[R]](source *dataflow.Arrangement[D, R], target *dataflow.Input[D, R]) Member {
	return &leafMember[D, R]{source: source, target: target, fed: make(map[D]R)}
}

// Connection is one entry of a feedback graph.
type Connection interface {
	// run attempts one application. changed reports whether it copied any
	// record; halt reports whether the whole controller loop must stop now.
	run(ec *dataflow.ExecutionContext) (changed bool, halt bool)
}

type simulConnection struct {
	members []Member
}

func (c *simulConnection) run(ec *dataflow.ExecutionContext) (bool, bool) {
	changed := false
	for _, m := range c.members {
		if m.feed(ec) {
			changed = true
		}
	}
	return changed, false
}

// Leaf promotes a single Member to a Connection.
func Leaf(m Member) Connection {
	return &simulConnection{members: []Member{m}}
}

// TogetherWith joins members into one Connection whose members all feed in
// the same round before the controller commits, rather than one at a time
// with a restart after each change.
func TogetherWith(members ...Member) Connection {
	return &simulConnection{members: members}
}

type orderedLeafConnection[K cmp.Ordered, D dataflow.Key, R dataflow.Weight[R]] struct {
	source *dataflow.OrderedArrangement[K, D, R]
	target *dataflow.Input[D, R]
}

func (c *orderedLeafConnection[K, D, R]) run(ec *dataflow.ExecutionContext) (bool, bool) {
	if err := c.source.Refresh(ec); err != nil {
		return false, false
	}
	_, bucket, ok := c.source.PopMinBucket()
	if !ok {
		return false, false
	}
	changed := false
	for d, r := range bucket {
		if r.IsZero() {
			continue
		}
		_ = c.target.Update(ec, d, r)
		changed = true
	}
	return changed, false
}

// OrderedFeedback copies only the entries under the smallest order key of
// an ordered arrangement, then drops that bucket — the discrete-event-tick
// primitive: each controller round consumes one simulated tick.
func OrderedFeedback[K cmp.Ordered, D dataflow.Key, R dataflow.Weight[R]](source *dataflow.OrderedArrangement[K, D, R], target *dataflow.Input[D, R]) Connection {
	return &orderedLeafConnection[K, D, R]{source: source, target: target}
}

type interruptConnection[D dataflow.Key, R dataflow.Weight[R]] struct {
	arr *dataflow.Arrangement[D, R]
}

func (c *interruptConnection[D, R]) run(ec *dataflow.ExecutionContext) (bool, bool) {
	data, err := c.arr.Read(ec)
	if err != nil {
		return false, false
	}
	return false, len(data) > 0
}

// Interrupt halts the controller's loop the moment arr is observed
// non-empty.
func Interrupt[D dataflow.Key, R dataflow.Weight[R]](arr *dataflow.Arrangement[D, R]) Connection {
	return &interruptConnection[D, R]{arr: arr}
}

// AndThen concatenates connections into the ordered list a Controller
// evaluates, mirroring how a leaf is tried only after everything before it
// reported no change.
func AndThen(conns ...Connection) []Connection {
	return conns
}

// Controller drives a feedback graph's connections to quiescence every
// Commit.
type Controller struct {
	connections []Connection
}

// BeginFeedback builds a Controller over conns, evaluated in order.
func BeginFeedback(conns ...Connection) *Controller {
	return &Controller{connections: conns}
}

// Commit performs one user commit, then iterates the connection list: an
// Interrupt that observes a non-empty arrangement halts the whole loop
// immediately; a connection that copies any record commits and restarts
// the scan from the top; the loop exits once a full pass over every
// connection copies nothing.
func (c *Controller) Commit(ec *dataflow.ExecutionContext) {
	ec.Commit()
	rounds := 0
	defer func() {
		if m := ec.Metrics(); m != nil {
			m.ObserveFeedbackRounds(rounds)
		}
	}()
outer:
	for {
		rounds++
		for _, conn := range c.connections {
			changed, halt := conn.run(ec)
			if halt {
				return
			}
			if changed {
				ec.Emitter().Emit(emit.Event{
					Step: int(ec.Step()),
					Msg:  "feedback_iteration",
					Meta: map[string]interface{}{"round": rounds},
				})
				ec.Commit()
				continue outer
			}
		}
		return
	}
}
