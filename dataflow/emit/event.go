package emit

// Event represents an observability event emitted while a dataflow graph
// is being driven: a commit, an operator's first flow at a step, a subgraph
// fixed-point round, a feedback iteration.
type Event struct {
	// RunID identifies the execution context that emitted this event.
	RunID string

	// Step is the logical clock value at the time of the event.
	Step int

	// NodeID identifies which operator node emitted this event, if any.
	// Empty for context-level events (begin, commit, feedback quiescence).
	NodeID string

	// Msg is a short machine-greppable description, e.g. "commit",
	// "flow", "fixedpoint_round", "feedback_iteration".
	Msg string

	// Meta carries event-specific structured data. Common keys:
	//   - "relation_id": the node's relation id
	//   - "message_count": cumulative messages seen by the node
	//   - "depth": subgraph nesting depth
	//   - "iterations": fixed-point or feedback round count
	Meta map[string]interface{}
}
