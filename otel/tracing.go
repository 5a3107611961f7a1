// Package otel provides OpenTelemetry integration for petalgen pipeline
// events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/petalgen"
)

// TracingHandler translates conversion pipeline events into OpenTelemetry
// spans: one root span per conversion, stage and diagnostic data attached
// as span events and attributes.
type TracingHandler struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span // graph name -> active conversion span
}

// NewTracingHandler creates a handler that uses the given tracer for
// conversion spans.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer: tracer,
		spans:  make(map[string]trace.Span),
	}
}

// Handle processes a pipeline event. It satisfies petalgen.EventHandler.
func (h *TracingHandler) Handle(e petalgen.Event) {
	switch e.Kind {
	case petalgen.EventConversionStarted:
		h.handleStarted(e)
	case petalgen.EventStageFinished:
		h.handleStage(e)
	case petalgen.EventDiagnostic:
		h.handleDiagnostic(e)
	case petalgen.EventConversionFinished:
		h.handleFinished(e)
	}
}

func (h *TracingHandler) handleStarted(e petalgen.Event) {
	_, span := h.tracer.Start(context.Background(), "convert:"+e.Graph,
		trace.WithAttributes(
			attribute.String("petalgen.graph", e.Graph),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.spans[e.Graph] = span
	h.mu.Unlock()
}

func (h *TracingHandler) handleStage(e petalgen.Event) {
	if span, ok := h.active(e.Graph); ok {
		span.AddEvent("stage:"+e.Stage,
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				attribute.String("petalgen.stage", e.Stage),
				attribute.String("petalgen.duration", e.Elapsed.String()),
			),
		)
	}
}

func (h *TracingHandler) handleDiagnostic(e petalgen.Event) {
	if e.Diagnostic == nil {
		return
	}
	if span, ok := h.active(e.Graph); ok {
		span.AddEvent("diagnostic",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				attribute.String("petalgen.diagnostic.code", e.Diagnostic.Code),
				attribute.String("petalgen.diagnostic.severity", e.Diagnostic.Severity),
				attribute.String("petalgen.diagnostic.message", e.Diagnostic.Message),
			),
		)
	}
}

func (h *TracingHandler) handleFinished(e petalgen.Event) {
	h.mu.Lock()
	span, ok := h.spans[e.Graph]
	if ok {
		delete(h.spans, e.Graph)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	span.SetAttributes(attribute.String("petalgen.duration", e.Elapsed.String()))
	if e.Err != nil {
		span.SetStatus(codes.Error, e.Err.Error())
		span.RecordError(e.Err, trace.WithTimestamp(e.Time))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(e.Time))
}

// active returns the conversion span for a graph, if one is open.
func (h *TracingHandler) active(graph string) (trace.Span, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	span, ok := h.spans[graph]
	return span, ok
}
