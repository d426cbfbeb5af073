package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OtelEmitter turns events into OpenTelemetry spans, one span per event,
// immediately ended since an Event describes a point in time rather than a
// duration. Name it `Msg` so span names read as commit/flow/fixedpoint_round.
type OtelEmitter struct {
	tracer trace.Tracer
}

// NewOtelEmitter returns an Emitter backed by tracer. Obtain tracer via
// otel.Tracer("your-service").
func NewOtelEmitter(tracer trace.Tracer) *OtelEmitter {
	return &OtelEmitter{tracer: tracer}
}

// Emit starts and immediately ends a span named after event.Msg.
func (o *OtelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()
	o.annotate(span, event)
}

func (o *OtelEmitter) annotate(span trace.Span, event Event) {
	attrs := []attribute.KeyValue{
		attribute.String("run_id", event.RunID),
		attribute.Int("step", event.Step),
	}
	if event.NodeID != "" {
		attrs = append(attrs, attribute.String("node_id", event.NodeID))
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String("meta."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// EmitBatch starts and ends one span per event, in order.
func (o *OtelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, span := o.tracer.Start(ctx, e.Msg)
		o.annotate(span, e)
		span.End()
	}
	return nil
}

// Flush is a no-op; span export is the configured TracerProvider's concern.
func (o *OtelEmitter) Flush(context.Context) error { return nil }
