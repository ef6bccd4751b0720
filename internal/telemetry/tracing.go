package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for every span this
// module emits.
const TracerName = "github.com/danfeder/classroom-scheduler"

// TracerProviderConfig controls whether spans are exported anywhere.
// Endpoint empty means tracing is a no-op (the default tracer provider),
// matching the driver's OTELEndpoint config field being optional.
type TracerProviderConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// NewTracerProvider builds an OTLP/gRPC-exporting tracer provider when
// cfg.Endpoint is set, or the OpenTelemetry no-op provider otherwise.
// Callers must call the returned shutdown func before the process exits
// so buffered spans flush.
func NewTracerProvider(ctx context.Context, cfg TracerProviderConfig) (trace.TracerProvider, func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return otel.GetTracerProvider(), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "schedgen"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, tp.Shutdown, nil
}

// InstallTracerProvider builds a provider from cfg and installs it as the
// process-wide default, so every StartSpan call in this process (CP, GA,
// driver) starts exporting through it. Returns the shutdown func the
// caller must run before the process exits.
func InstallTracerProvider(ctx context.Context, cfg TracerProviderConfig) (func(context.Context) error, error) {
	tp, shutdown, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return shutdown, nil
}

// StartSpan starts a span named name on the process's tracer provider
// (the no-op provider until InstallTracerProvider is called), matching
// the teacher's klog.FromContext(ctx) one-liner convention for pulling
// ambient instrumentation out of ctx rather than threading it through
// every call site.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name)
}
