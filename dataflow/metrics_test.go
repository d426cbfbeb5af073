package dataflow

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_CountersTrackActivity verifies the commit counter and
// per-relation message/read counters move with engine activity.
func TestMetrics_CountersTrackActivity(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	cc, err := NewContext(WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	in, rel := CreateInput[int, Mult](cc)
	arrIn, arrRel := CreateInput[int, Mult](cc)
	_, arr := NewArrangement(cc, arrRel)
	ec := cc.Begin()

	_ = Insert(ec, in, 1)
	_ = Insert(ec, in, 2)
	_ = Insert(ec, arrIn, 9)
	ec.Commit()
	ec.Commit()
	if err := rel.Flow(ec, func(int, Mult) {}); err != nil {
		t.Fatal(err)
	}
	if _, err := arr.Read(ec); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(m.steps); got != 2 {
		t.Errorf("steps_total = %v, want 2", got)
	}
	label := relationIDLabel(rel.Node().RelationID)
	if got := testutil.ToFloat64(m.messages.WithLabelValues(label)); got != 1 {
		t.Errorf("messages_total{relation_id=%s} = %v, want 1", label, got)
	}
	if rel.Node().MessageCount != 2 {
		t.Errorf("node message count = %d, want 2", rel.Node().MessageCount)
	}
	readLabel := relationIDLabel(arr.node.ShownRelationID())
	if got := testutil.ToFloat64(m.arrangementReads.WithLabelValues(readLabel)); got != 1 {
		t.Errorf("arrangement_reads_total = %v, want 1", got)
	}
}

// TestMetrics_NilRegistryUsesDefault ensures the constructor accepts nil.
func TestMetrics_NilRegistryUsesDefault(t *testing.T) {
	registry := prometheus.NewRegistry()
	orig := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = registry
	defer func() { prometheus.DefaultRegisterer = orig }()

	m := NewMetrics(nil)
	m.ObserveCommit()
	if got := testutil.ToFloat64(m.steps); got != 1 {
		t.Errorf("steps_total = %v, want 1", got)
	}
}
