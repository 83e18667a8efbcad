// Package trace exports OpenTelemetry spans for training runs.
package trace

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// TracerName is the instrumentation name spans are recorded under.
const TracerName = "rlloop/loop"

// NewProvider creates a tracer provider. When OTEL_EXPORTER_OTLP_ENDPOINT is
// set, spans are batched to that endpoint over OTLP/HTTP; otherwise spans
// are recorded and dropped.
func NewProvider(ctx context.Context) (*sdktrace.TracerProvider, error) {
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "rlloop"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if Enabled() {
		// The exporter reads the endpoint and headers from the environment.
		exporter, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

// Enabled reports whether spans will leave the process.
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}
