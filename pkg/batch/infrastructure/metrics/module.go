package metrics

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
)

// Module is an Fx module that replaces the no-op recorder and tracer of the core metrics module.
// Metrics go to Prometheus and, when an OTLP endpoint is configured, to the OpenTelemetry meter provider.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewTracerProvider),
	fx.Provide(NewMeterProvider),
	fx.Provide(NewOpenTelemetryRecorder),
	fx.Decorate(func(_ metrics.MetricRecorder, prom *PrometheusRecorder, otelRecorder *OpenTelemetryRecorder) metrics.MetricRecorder {
		return metrics.NewCompositeRecorder(prom, otelRecorder)
	}),
	fx.Decorate(func(_ metrics.Tracer, tp trace.TracerProvider) metrics.Tracer {
		return NewOpenTelemetryTracerWithProvider(tp)
	}),
	fx.Invoke(RegisterMetricsEndpoint),
)
