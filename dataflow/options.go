package dataflow

import (
	"fmt"

	"github.com/flowcore/differential/dataflow/emit"
)

// Option configures a Context at construction time.
//
// Example:
//
//	ctx, err := dataflow.NewContext(
//	    dataflow.WithEmitter(emit.NewLogEmitter(os.Stdout, false)),
//	    dataflow.WithMaxFixedPointIterations(5000),
//	)
type Option func(*config) error

// WithMaxFixedPointIterations bounds how many rounds a subgraph's
// registrar will run before giving up with ErrFixedPointDiverged, so an
// improperly tiered recursion fails instead of hanging.
//
// Default: 10000.
//
// Tuning guidance: raise this for deep recursive relations over large
// inputs (e.g. shortest paths over a graph with a long diameter); lower it
// in tests to fail fast on an improperly tiered subgraph.
func WithMaxFixedPointIterations(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("dataflow: max fixed-point iterations must be positive, got %d", n)
		}
		c.maxFixedPointIterations = n
		return nil
	}
}

// WithHybridMapThreshold sets the initial buffer size at which a
// HybridMap flushes its pending adds into its backing hash map and doubles
// its own threshold.
//
// Default: 16.
func WithHybridMapThreshold(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("dataflow: hybrid map threshold must be positive, got %d", n)
		}
		c.hybridMapThreshold = n
		return nil
	}
}

// WithEmitter wires an observability sink. Every commit, every subgraph
// fixed-point round, and every feedback iteration emits an event through
// it; operator flows emit no events.
//
// Default: emit.NewNullEmitter() (events are discarded).
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) error {
		if e == nil {
			return fmt.Errorf("dataflow: emitter must not be nil")
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics wires Prometheus counters/histograms for commits, messages,
// arrangement reads, fixed-point iterations, and feedback rounds.
//
// Default: nil (metrics disabled).
func WithMetrics(m *Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}
