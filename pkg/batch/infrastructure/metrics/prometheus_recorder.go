package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	logger "github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Job metrics
	jobsStarted        *prometheus.CounterVec
	jobDurationSeconds *prometheus.HistogramVec
	jobThroughput      *prometheus.GaugeVec

	// Portion metrics
	portionDurationSeconds *prometheus.HistogramVec
	portionErrors          *prometheus.CounterVec

	// Payment metrics
	paymentOutcomes *prometheus.CounterVec

	// Scheduling and result log metrics
	entriesSkipped *prometheus.CounterVec
	rowsDropped    *prometheus.CounterVec
	durations      *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its own registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paytest_jobs_started_total",
			Help: "Total number of test jobs started.",
		}, []string{"procedure"}),
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paytest_job_duration_seconds",
			Help:    "Wall-clock duration of test jobs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure", "cancelled"}),
		jobThroughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "paytest_job_throughput_payments_per_second",
			Help: "Throughput of the last finished job per procedure.",
		}, []string{"procedure"}),
		portionDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paytest_portion_call_duration_seconds",
			Help:    "Duration of portion calls to the remote service.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure", "status"}),
		portionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paytest_portion_errors_total",
			Help: "Total number of portion calls that failed as a whole.",
		}, []string{"procedure"}),
		paymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paytest_payments_total",
			Help: "Total payments by outcome.",
		}, []string{"procedure", "outcome"}),
		entriesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paytest_plan_entries_skipped_total",
			Help: "Total plan entries that were not scheduled, by reason.",
		}, []string{"reason"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paytest_log_rows_dropped_total",
			Help: "Total result log rows dropped because the queue was full or closed.",
		}, []string{"stream"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paytest_operation_duration_seconds",
			Help:    "Duration of miscellaneous operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(r.jobsStarted)
	registry.MustRegister(r.jobDurationSeconds)
	registry.MustRegister(r.jobThroughput)
	registry.MustRegister(r.portionDurationSeconds)
	registry.MustRegister(r.portionErrors)
	registry.MustRegister(r.paymentOutcomes)
	registry.MustRegister(r.entriesSkipped)
	registry.MustRegister(r.rowsDropped)
	registry.MustRegister(r.durations)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordJobStart records the start of a test job.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, procedure string) {
	r.jobsStarted.WithLabelValues(procedure).Inc()
}

// RecordJobEnd records the duration and throughput of a finished job.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, summary model.JobSummary) {
	cancelled := "false"
	if summary.Cancelled {
		cancelled = "true"
	}
	duration := summary.Finished.Sub(summary.Started).Seconds()
	r.jobDurationSeconds.WithLabelValues(summary.Procedure, cancelled).Observe(duration)
	r.jobThroughput.WithLabelValues(summary.Procedure).Set(summary.Counters.Throughput())
	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", summary.JobID, duration)
}

// RecordPortion records one portion call.
func (r *PrometheusRecorder) RecordPortion(ctx context.Context, procedure string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		r.portionErrors.WithLabelValues(procedure).Inc()
	}
	r.portionDurationSeconds.WithLabelValues(procedure, status).Observe(duration.Seconds())
}

// RecordOutcome records one classified payment outcome.
func (r *PrometheusRecorder) RecordOutcome(ctx context.Context, procedure string, class model.OutcomeClass) {
	r.paymentOutcomes.WithLabelValues(procedure, class.String()).Inc()
}

// RecordEntrySkipped records a plan entry that was not scheduled.
func (r *PrometheusRecorder) RecordEntrySkipped(ctx context.Context, reason string) {
	r.entriesSkipped.WithLabelValues(reason).Inc()
}

// RecordRowDropped records a dropped result log row.
func (r *PrometheusRecorder) RecordRowDropped(ctx context.Context, stream string) {
	r.rowsDropped.WithLabelValues(stream).Inc()
}

// RecordDuration records the execution time of a named operation. Tags are not used as labels.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.durations.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
