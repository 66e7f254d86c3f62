package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/zerr"
)

// Setup configures a global OpenTelemetry tracer provider exporting to an OTLP gRPC endpoint and
// returns an OTelTracer using it. If endpoint is empty, spans go to the default provider.
func Setup(ctx context.Context, endpoint, service string) (*OTelTracer, error) {
	if endpoint == "" {
		return NewOTelTracer(otel.GetTracerProvider(), nil), nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create otlp exporter"), "endpoint", endpoint)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", service),
		)),
	)
	otel.SetTracerProvider(tp)

	return NewOTelTracer(tp, tp.Shutdown), nil
}
