package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// TestLogEmitter_TextMode verifies the human-readable line format.
func TestLogEmitter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		RunID:  "run-001",
		Step:   3,
		NodeID: "join-1",
		Msg:    "flow",
		Meta:   map[string]interface{}{"message_count": 12},
	})

	line := buf.String()
	for _, want := range []string{"[flow]", "runID=run-001", "step=3", "nodeID=join-1", `"message_count":12`} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

// TestLogEmitter_JSONMode verifies one parseable JSON object per line.
func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{RunID: "run-001", Step: 1, Msg: "commit"})
	emitter.Emit(Event{RunID: "run-001", Step: 2, Msg: "commit"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var decoded struct {
			RunID string `json:"runID"`
			Step  int    `json:"step"`
			Msg   string `json:"msg"`
		}
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %q is not valid JSON: %v", line, err)
		}
		if decoded.RunID != "run-001" || decoded.Msg != "commit" {
			t.Errorf("decoded = %+v", decoded)
		}
	}
}

// TestLogEmitter_EmitBatch verifies ordered batch output and cancellation.
func TestLogEmitter_EmitBatch(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	events := []Event{
		{RunID: "r", Step: 1, Msg: "first"},
		{RunID: "r", Step: 2, Msg: "second"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch failed: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "first") > strings.Index(out, "second") {
		t.Error("batch emitted out of order")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := emitter.EmitBatch(cancelled, events); err == nil {
		t.Error("expected cancellation error")
	}
}
