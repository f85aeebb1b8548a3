package metrics

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
)

// OpenTelemetryRecorder is an OpenTelemetry metrics implementation of metrics.MetricRecorder.
// Instruments mirror the PrometheusRecorder families so both backends report the same run.
type OpenTelemetryRecorder struct {
	jobsStarted     metric.Int64Counter
	jobDuration     metric.Float64Histogram
	jobThroughput   metric.Float64Gauge
	portionDuration metric.Float64Histogram
	portionErrors   metric.Int64Counter
	payments        metric.Int64Counter
	entriesSkipped  metric.Int64Counter
	rowsDropped     metric.Int64Counter
	durations       metric.Float64Histogram
}

// NewOpenTelemetryRecorder creates the instruments on a meter of mp.
func NewOpenTelemetryRecorder(mp metric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := mp.Meter(instrumentationName)
	r := &OpenTelemetryRecorder{}
	var err error

	if r.jobsStarted, err = meter.Int64Counter("paytest.jobs.started",
		metric.WithDescription("Number of test jobs started.")); err != nil {
		return nil, instrumentError("paytest.jobs.started", err)
	}
	if r.jobDuration, err = meter.Float64Histogram("paytest.job.duration",
		metric.WithDescription("Wall-clock duration of test jobs."), metric.WithUnit("s")); err != nil {
		return nil, instrumentError("paytest.job.duration", err)
	}
	if r.jobThroughput, err = meter.Float64Gauge("paytest.job.throughput",
		metric.WithDescription("Throughput of the last finished job."), metric.WithUnit("{payment}/s")); err != nil {
		return nil, instrumentError("paytest.job.throughput", err)
	}
	if r.portionDuration, err = meter.Float64Histogram("paytest.portion.duration",
		metric.WithDescription("Duration of portion calls to the remote service."), metric.WithUnit("s")); err != nil {
		return nil, instrumentError("paytest.portion.duration", err)
	}
	if r.portionErrors, err = meter.Int64Counter("paytest.portion.errors",
		metric.WithDescription("Portion calls that failed as a whole.")); err != nil {
		return nil, instrumentError("paytest.portion.errors", err)
	}
	if r.payments, err = meter.Int64Counter("paytest.payments",
		metric.WithDescription("Payments by outcome.")); err != nil {
		return nil, instrumentError("paytest.payments", err)
	}
	if r.entriesSkipped, err = meter.Int64Counter("paytest.plan.entries.skipped",
		metric.WithDescription("Plan entries that were not scheduled.")); err != nil {
		return nil, instrumentError("paytest.plan.entries.skipped", err)
	}
	if r.rowsDropped, err = meter.Int64Counter("paytest.log.rows.dropped",
		metric.WithDescription("Result log rows dropped because the queue was full or closed.")); err != nil {
		return nil, instrumentError("paytest.log.rows.dropped", err)
	}
	if r.durations, err = meter.Float64Histogram("paytest.operation.duration",
		metric.WithDescription("Duration of miscellaneous operations."), metric.WithUnit("s")); err != nil {
		return nil, instrumentError("paytest.operation.duration", err)
	}
	return r, nil
}

func instrumentError(name string, err error) error {
	return exception.NewBatchErrorf("metrics", exception.KindConfig, "failed to create instrument %s", name, err)
}

// RecordJobStart records the start of a test job.
func (r *OpenTelemetryRecorder) RecordJobStart(ctx context.Context, procedure string) {
	r.jobsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("procedure", procedure)))
}

// RecordJobEnd records the duration and throughput of a finished job.
func (r *OpenTelemetryRecorder) RecordJobEnd(ctx context.Context, summary model.JobSummary) {
	r.jobDuration.Record(ctx, summary.Finished.Sub(summary.Started).Seconds(), metric.WithAttributes(
		attribute.String("procedure", summary.Procedure),
		attribute.String("cancelled", strconv.FormatBool(summary.Cancelled)),
	))
	r.jobThroughput.Record(ctx, summary.Counters.Throughput(), metric.WithAttributes(
		attribute.String("procedure", summary.Procedure),
	))
}

// RecordPortion records one portion call.
func (r *OpenTelemetryRecorder) RecordPortion(ctx context.Context, procedure string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		r.portionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("procedure", procedure)))
	}
	r.portionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("status", status),
	))
}

// RecordOutcome records one classified payment outcome.
func (r *OpenTelemetryRecorder) RecordOutcome(ctx context.Context, procedure string, class model.OutcomeClass) {
	r.payments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("outcome", class.String()),
	))
}

// RecordEntrySkipped records a plan entry that was not scheduled.
func (r *OpenTelemetryRecorder) RecordEntrySkipped(ctx context.Context, reason string) {
	r.entriesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRowDropped records a dropped result log row.
func (r *OpenTelemetryRecorder) RecordRowDropped(ctx context.Context, stream string) {
	r.rowsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("stream", stream)))
}

// RecordDuration records the execution time of a named operation. Tags become attributes.
func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.durations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)
