package cli

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	petalotel "github.com/petal-labs/petalgen/otel"
)

// setupTracing builds a tracer provider exporting to the given OTLP HTTP
// endpoint and returns a shutdown func alongside the tracing handler to
// register with the conversion pipeline.
func setupTracing(ctx context.Context, endpoint string) (func(context.Context), *petalotel.TracingHandler, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)

	handler := petalotel.NewTracingHandler(tp.Tracer("petalgen/convert"))
	shutdown := func(ctx context.Context) {
		_ = tp.Shutdown(ctx)
	}
	return shutdown, handler, nil
}
