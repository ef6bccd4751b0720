// Package telemetry wires structured logging, Prometheus metrics and
// OpenTelemetry tracing into the solver pipeline, following the same
// klog.FromContext(ctx).WithValues(...) idiom the teacher uses throughout
// its balance-plugin control loop.
package telemetry

import (
	"context"

	"k8s.io/klog/v2"
)

// LoggerFor returns a component-scoped logger derived from ctx, matching
// klog.FromContext(ctx).WithValues("component", name).
func LoggerFor(ctx context.Context, component string) klog.Logger {
	return klog.FromContext(ctx).WithValues("component", component)
}

// WithLogger returns a context carrying logger, for handing down to
// workers or sub-calls that should keep the same component tag.
func WithLogger(ctx context.Context, logger klog.Logger) context.Context {
	return klog.NewContext(ctx, logger)
}
