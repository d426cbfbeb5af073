package dataflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for dataflow execution,
// namespaced "dataflow":
//
//  1. steps_total (counter): cumulative commits across all contexts.
//  2. messages_total (counter vec, labels relation_id): host-side
//     Relation.Flow calls that emitted at least one record, one increment
//     per call regardless of how many records it emitted.
//  3. arrangement_reads_total (counter vec, labels relation_id): reads
//     served by an arrangement or reduce-output.
//  4. fixedpoint_iterations (histogram): rounds a subgraph registrar took
//     to reach quiescence, one observation per fixed-point run; a repeat
//     flow at the same outer timestamp is served from cache and not observed.
//  5. feedback_rounds (histogram): rounds a feedback controller's commit
//     loop took to reach quiescence, one observation per commit.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	m := dataflow.NewMetrics(registry)
//	ctx, _ := dataflow.NewContext(dataflow.WithMetrics(m))
type Metrics struct {
	steps                prometheus.Counter
	messages             *prometheus.CounterVec
	arrangementReads     *prometheus.CounterVec
	fixedPointIterations prometheus.Histogram
	feedbackRounds       prometheus.Histogram
}

// NewMetrics registers and returns a Metrics collector. If registry is nil,
// prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dataflow",
			Name:      "steps_total",
			Help:      "Cumulative number of commits across all execution contexts",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataflow",
			Name:      "messages_total",
			Help:      "Relation.Flow calls that emitted at least one record from an operator node",
		}, []string{"relation_id"}),
		arrangementReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataflow",
			Name:      "arrangement_reads_total",
			Help:      "Reads served by an arrangement or reduce-output",
		}, []string{"relation_id"}),
		fixedPointIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dataflow",
			Name:      "fixedpoint_iterations",
			Help:      "Rounds a subgraph registrar took to reach quiescence",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512},
		}),
		feedbackRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dataflow",
			Name:      "feedback_rounds",
			Help:      "Rounds a feedback controller's commit loop took to reach quiescence",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
	}
}

// ObserveCommit increments the commit counter.
func (m *Metrics) ObserveCommit() { m.steps.Inc() }

// ObserveMessage increments the messages counter for relationID by one.
func (m *Metrics) ObserveMessage(relationID uint64) {
	m.messages.WithLabelValues(relationIDLabel(relationID)).Inc()
}

// ObserveArrangementRead records one arrangement (or reduce-output) read
// for relationID.
func (m *Metrics) ObserveArrangementRead(relationID uint64) {
	m.arrangementReads.WithLabelValues(relationIDLabel(relationID)).Inc()
}

// ObserveFixedPointIterations records how many rounds a registrar took.
func (m *Metrics) ObserveFixedPointIterations(n int) {
	m.fixedPointIterations.Observe(float64(n))
}

// ObserveFeedbackRounds records how many rounds a feedback commit loop took.
func (m *Metrics) ObserveFeedbackRounds(n int) {
	m.feedbackRounds.Observe(float64(n))
}

func relationIDLabel(id uint64) string {
	return uintToString(id)
}
