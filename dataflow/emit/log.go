package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// LogEmitter writes structured events to a writer, either as human-readable
// key=value text or as one JSON object per line.
//
// Example text output:
//
//	[commit] runID=run-001 step=3
//	[flow] runID=run-001 step=3 nodeID=join-1 meta={"message_count":12}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to w. If w is nil, os.Stdout is
// used. jsonMode selects JSON-lines output over text.
func NewLogEmitter(w io.Writer, jsonMode bool) *LogEmitter {
	if w == nil {
		w = os.Stdout
	}
	return &LogEmitter{writer: w, jsonMode: jsonMode}
}

// Emit writes a single event.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID  string                 `json:"runID"`
		Step   int                    `json:"step"`
		NodeID string                 `json:"nodeID"`
		Msg    string                 `json:"msg"`
		Meta   map[string]interface{} `json:"meta"`
	}{event.RunID, event.Step, event.NodeID, event.Msg, event.Meta})
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(l.writer, string(data))
}

func (l *LogEmitter) emitText(event Event) {
	line := fmt.Sprintf("[%s] runID=%s step=%d", event.Msg, event.RunID, event.Step)
	if event.NodeID != "" {
		line += " nodeID=" + event.NodeID
	}
	if len(event.Meta) > 0 {
		keys := make([]string, 0, len(event.Meta))
		for k := range event.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		metaJSON := make(map[string]interface{}, len(event.Meta))
		for _, k := range keys {
			metaJSON[k] = event.Meta[k]
		}
		if data, err := json.Marshal(metaJSON); err == nil {
			line += " meta=" + string(data)
		}
	}
	_, _ = fmt.Fprintln(l.writer, line)
}

// EmitBatch writes each event in order.
func (l *LogEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.Emit(e)
	}
	return nil
}

// Flush is a no-op; LogEmitter writes synchronously.
func (l *LogEmitter) Flush(context.Context) error { return nil }
