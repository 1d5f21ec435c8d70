package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer wraps an otel TracerProvider, mirroring the teacher's
// internal/observability/tracing.go. With no exporter configured, spans
// are created but neither exported nor kept anywhere; an exporter can be
// attached at construction through NewTracer's options.
type Tracer struct {
	tracer oteltrace.Tracer
}

// NewTracer builds a Tracer using the given service name. Pass opts to wire
// a real span processor/exporter; with none, spans are created and
// discarded (no-export SDK provider), matching this package's ambient
// rather than domain-feature role.
func NewTracer(serviceName string, opts ...trace.TracerProviderOption) *Tracer {
	provider := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return &Tracer{tracer: provider.Tracer(serviceName)}
}

// StartSpan opens a span named name as a child of ctx's active span, if any.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, name)
}
