package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	logger "github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/paytest"

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
// Spans go to whatever TracerProvider is installed globally; without one they are no-ops.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a new instance of OpenTelemetryTracer.
func NewOpenTelemetryTracer() *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: otel.Tracer(instrumentationName)}
}

// NewOpenTelemetryTracerWithProvider creates a tracer bound to a specific provider.
func NewOpenTelemetryTracerWithProvider(tp trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: tp.Tracer(instrumentationName)}
}

// StartJobSpan starts a new span for a test job.
func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, jobID, fileName, procedure string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "paytest.job",
		trace.WithAttributes(
			attribute.String("paytest.job.id", jobID),
			attribute.String("paytest.job.file", fileName),
			attribute.String("paytest.job.procedure", procedure),
		),
	)
	logger.Debugf("Tracer: StartJobSpan called for job '%s'", jobID)
	return ctx, func() { span.End() }
}

// StartPortionSpan starts a new span for a portion call.
func (t *OpenTelemetryTracer) StartPortionSpan(ctx context.Context, index, size int) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "paytest.portion",
		trace.WithAttributes(
			attribute.Int("paytest.portion.index", index),
			attribute.Int("paytest.portion.size", size),
		),
	)
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("paytest.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(attributes map[string]interface{}) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case int64:
			kvs = append(kvs, attribute.Int64(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		default:
			kvs = append(kvs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return kvs
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
