package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/tether/internal/core/domain"
	"go.trai.ch/tether/internal/core/ports"
)

// InstrumentationName is the tracer name spans are reported under.
const InstrumentationName = "go.trai.ch/tether"

// OTelTracer implements ports.Telemetry with OpenTelemetry spans.
type OTelTracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewOTelTracer creates a tracer from provider. shutdown, if non-nil, runs on Close.
func NewOTelTracer(provider trace.TracerProvider, shutdown func(context.Context) error) *OTelTracer {
	return &OTelTracer{
		tracer:   provider.Tracer(InstrumentationName),
		shutdown: shutdown,
	}
}

// Record starts a span named name carrying the vertex attributes.
func (t *OTelTracer) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	cfg := ports.NewVertexConfig(opts...)

	attrs := make([]attribute.KeyValue, 0, len(cfg.Attributes))
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	vertex := &OTelVertex{span: span}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// Close flushes and shuts down the exporter, if any.
func (t *OTelTracer) Close() error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(context.Background())
}

// OTelVertex implements ports.Vertex over a span.
type OTelVertex struct {
	span trace.Span
	once sync.Once
}

// Log adds a log event to the span.
func (v *OTelVertex) Log(level domain.LogLevel, msg string) {
	v.span.AddEvent("log", trace.WithAttributes(
		attribute.String("level", level.String()),
		attribute.String("message", msg),
	))
}

// Cached marks the span as served from the store.
func (v *OTelVertex) Cached() {
	v.span.SetAttributes(attribute.Bool("tether.cached", true))
}

// Complete ends the span, recording err if non-nil. Only the first call has an effect.
func (v *OTelVertex) Complete(err error) {
	v.once.Do(func() {
		if err != nil {
			v.span.RecordError(err)
			v.span.SetStatus(codes.Error, err.Error())
		}
		v.span.End()
	})
}
