package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	infraMetrics "github.com/tigerroll/paytest/pkg/batch/infrastructure/metrics"
)

func findFamily(t *testing.T, r *infraMetrics.PrometheusRecorder, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.GetRegistry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	r := infraMetrics.NewPrometheusRecorder()
	ctx := context.Background()

	r.RecordJobStart(ctx, "pay")
	r.RecordOutcome(ctx, "pay", model.OutcomeSuccess)
	r.RecordOutcome(ctx, "pay", model.OutcomeSuccess)
	r.RecordOutcome(ctx, "pay", model.OutcomeFailed)
	r.RecordPortion(ctx, "pay", 20*time.Millisecond, errors.New("boom"))
	r.RecordRowDropped(ctx, "failure")
	r.RecordEntrySkipped(ctx, "in_past")

	outcomes := findFamily(t, r, "paytest_payments_total")
	total := 0.0
	for _, m := range outcomes.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	assert.Equal(t, 3.0, total)

	assert.Equal(t, 1.0, findFamily(t, r, "paytest_portion_errors_total").GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, findFamily(t, r, "paytest_log_rows_dropped_total").GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 1.0, findFamily(t, r, "paytest_plan_entries_skipped_total").GetMetric()[0].GetCounter().GetValue())
}

func TestPrometheusRecorder_JobEnd(t *testing.T) {
	r := infraMetrics.NewPrometheusRecorder()
	start := time.Now()
	r.RecordJobEnd(context.Background(), model.JobSummary{
		JobID:     "j1",
		Procedure: "pay",
		Started:   start,
		Finished:  start.Add(2 * time.Second),
		Counters:  model.Counters{Sent: 10, OverallDuration: time.Second},
	})

	gauge := findFamily(t, r, "paytest_job_throughput_payments_per_second").GetMetric()[0]
	assert.Equal(t, 10.0, gauge.GetGauge().GetValue())
	hist := findFamily(t, r, "paytest_job_duration_seconds").GetMetric()[0]
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
}

func TestOpenTelemetryTracer_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := infraMetrics.NewOpenTelemetryTracerWithProvider(tp)

	ctx, endJob := tracer.StartJobSpan(context.Background(), "j1", "payments.csv", "pay")
	pctx, endPortion := tracer.StartPortionSpan(ctx, 1, 50)
	tracer.RecordError(pctx, "remote", errors.New("timeout"))
	endPortion()
	tracer.RecordEvent(ctx, "contract_registered", map[string]interface{}{"contract": "c-1", "n": 3})
	endJob()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	portion, job := ended[0], ended[1]
	assert.Equal(t, "paytest.portion", portion.Name())
	assert.Equal(t, codes.Error, portion.Status().Code)
	assert.Equal(t, "paytest.job", job.Name())
	assert.Equal(t, job.SpanContext().TraceID(), portion.SpanContext().TraceID())
	require.Len(t, job.Events(), 1)
	assert.Equal(t, "contract_registered", job.Events()[0].Name)
}
