package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*OTelEmitter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return NewOTelEmitter(provider.Tracer("test")), recorder
}

func TestOTelEmitter(t *testing.T) {
	t.Run("event becomes an ended span with attributes", func(t *testing.T) {
		em, recorder := newRecordingTracer(t)
		em.Emit(Event{BuildID: "b1", Step: 2, NodeID: "n1", Msg: "node_start",
			Meta: map[string]any{"title": "spine"}})

		spans := recorder.Ended()
		if len(spans) != 1 {
			t.Fatalf("ended spans = %d, want 1", len(spans))
		}
		span := spans[0]
		if span.Name() != "node_start" {
			t.Errorf("span name = %s, want node_start", span.Name())
		}
		attrs := map[string]any{}
		for _, kv := range span.Attributes() {
			attrs[string(kv.Key)] = kv.Value.AsInterface()
		}
		if attrs["build_id"] != "b1" || attrs["node_id"] != "n1" {
			t.Errorf("span attributes = %v", attrs)
		}
		if attrs["step"] != int64(2) {
			t.Errorf("step attribute = %v", attrs["step"])
		}
		if attrs["title"] != "spine" {
			t.Errorf("meta attribute = %v", attrs["title"])
		}
	})

	t.Run("error meta sets error status", func(t *testing.T) {
		em, recorder := newRecordingTracer(t)
		em.Emit(Event{Msg: "node_error", Meta: map[string]any{"error": "rig op failed"}})

		spans := recorder.Ended()
		if len(spans) != 1 {
			t.Fatalf("ended spans = %d, want 1", len(spans))
		}
		status := spans[0].Status()
		if status.Code != codes.Error || status.Description != "rig op failed" {
			t.Errorf("span status = %+v", status)
		}
	})

	t.Run("batch emits one span per event", func(t *testing.T) {
		em, recorder := newRecordingTracer(t)
		em.EmitBatch(context.Background(), []Event{
			{Msg: "node_start"}, {Msg: "node_end"},
		})
		if got := len(recorder.Ended()); got != 2 {
			t.Errorf("ended spans = %d, want 2", got)
		}
	})
}
