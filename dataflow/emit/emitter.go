// Package emit provides event emission and observability for the dataflow
// engine, decoupled from any specific logging or tracing backend.
package emit

import "context"

// Emitter receives observability events produced while driving a dataflow
// graph. Implementations enable pluggable backends: stdout logging,
// OpenTelemetry spans, in-memory buffers for tests, or a discard sink.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down the commit/flow path.
//   - Thread-safe: the core engine itself is single-threaded, but a host
//     may share one emitter across concurrently driven contexts.
//   - Resilient: a failing backend must not panic the caller.
type Emitter interface {
	// Emit sends a single event to the configured backend. Must not panic.
	Emit(event Event)

	// EmitBatch sends multiple events in event order. Returns an error only
	// on catastrophic, non-per-event failures.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures all buffered events have been sent. Safe to call more
	// than once.
	Flush(ctx context.Context) error
}
