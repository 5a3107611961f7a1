package otel_test

import (
	"errors"
	"testing"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/petal-labs/petalgen"
	"github.com/petal-labs/petalgen/ir"
	petalotel "github.com/petal-labs/petalgen/otel"
)

// newTestTracer returns a tracer backed by an in-memory span exporter.
func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	return exporter, tp
}

func TestTracingHandler_ConversionSpan(t *testing.T) {
	exporter, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(petalgen.Event{
		Kind:  petalgen.EventConversionStarted,
		Graph: "agent",
		Time:  now,
	})
	h.Handle(petalgen.Event{
		Kind:    petalgen.EventConversionFinished,
		Graph:   "agent",
		Time:    now.Add(50 * time.Millisecond),
		Elapsed: 50 * time.Millisecond,
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name != "convert:agent" {
		t.Errorf("span name = %q, want convert:agent", span.Name)
	}
	if span.Status.Code != otelcodes.Ok {
		t.Errorf("status = %v, want Ok", span.Status.Code)
	}

	found := false
	for _, attr := range span.Attributes {
		if string(attr.Key) == "petalgen.graph" && attr.Value.AsString() == "agent" {
			found = true
		}
	}
	if !found {
		t.Error("expected petalgen.graph attribute on conversion span")
	}
}

func TestTracingHandler_StageEvents(t *testing.T) {
	exporter, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(petalgen.Event{Kind: petalgen.EventConversionStarted, Graph: "g", Time: now})
	h.Handle(petalgen.Event{
		Kind:    petalgen.EventStageFinished,
		Graph:   "g",
		Stage:   petalgen.StageValidate,
		Time:    now.Add(time.Millisecond),
		Elapsed: time.Millisecond,
	})
	h.Handle(petalgen.Event{
		Kind:    petalgen.EventStageFinished,
		Graph:   "g",
		Stage:   petalgen.StageEmit,
		Time:    now.Add(2 * time.Millisecond),
		Elapsed: time.Millisecond,
	})
	h.Handle(petalgen.Event{Kind: petalgen.EventConversionFinished, Graph: "g", Time: now.Add(3 * time.Millisecond)})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}

	names := make(map[string]bool)
	for _, ev := range spans[0].Events {
		names[ev.Name] = true
	}
	if !names["stage:validate"] || !names["stage:emit"] {
		t.Errorf("stage events missing, got %v", names)
	}
}

func TestTracingHandler_DiagnosticEvent(t *testing.T) {
	exporter, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(petalgen.Event{Kind: petalgen.EventConversionStarted, Graph: "g", Time: now})
	h.Handle(petalgen.Event{
		Kind:  petalgen.EventDiagnostic,
		Graph: "g",
		Time:  now,
		Diagnostic: &ir.Diagnostic{
			Code:     "TM-001",
			Severity: ir.SeverityWarning,
			Message:  "falling back to dynamic value",
		},
	})
	h.Handle(petalgen.Event{Kind: petalgen.EventConversionFinished, Graph: "g", Time: now})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}

	sawDiag := false
	for _, ev := range spans[0].Events {
		if ev.Name != "diagnostic" {
			continue
		}
		sawDiag = true
		found := false
		for _, attr := range ev.Attributes {
			if string(attr.Key) == "petalgen.diagnostic.code" && attr.Value.AsString() == "TM-001" {
				found = true
			}
		}
		if !found {
			t.Error("diagnostic event missing code attribute")
		}
	}
	if !sawDiag {
		t.Error("expected a diagnostic span event")
	}
}

func TestTracingHandler_FailedConversion(t *testing.T) {
	exporter, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	now := time.Now()
	h.Handle(petalgen.Event{Kind: petalgen.EventConversionStarted, Graph: "bad", Time: now})
	h.Handle(petalgen.Event{
		Kind:  petalgen.EventConversionFinished,
		Graph: "bad",
		Time:  now,
		Err:   errors.New("validation failed"),
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Status.Code != otelcodes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
}

func TestTracingHandler_FinishWithoutStartIsIgnored(t *testing.T) {
	exporter, tp := newTestTracer()
	h := petalotel.NewTracingHandler(tp.Tracer("test"))

	h.Handle(petalgen.Event{Kind: petalgen.EventConversionFinished, Graph: "never-started", Time: time.Now()})

	if spans := exporter.GetSpans(); len(spans) != 0 {
		t.Errorf("expected no spans, got %d", len(spans))
	}
}
