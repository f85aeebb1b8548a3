package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordJobStart does nothing.
func (r *NoOpMetricRecorder) RecordJobStart(ctx context.Context, procedure string) {}

// RecordJobEnd does nothing.
func (r *NoOpMetricRecorder) RecordJobEnd(ctx context.Context, summary model.JobSummary) {}

// RecordPortion does nothing.
func (r *NoOpMetricRecorder) RecordPortion(ctx context.Context, procedure string, duration time.Duration, err error) {
}

// RecordOutcome does nothing.
func (r *NoOpMetricRecorder) RecordOutcome(ctx context.Context, procedure string, class model.OutcomeClass) {
}

// RecordEntrySkipped does nothing.
func (r *NoOpMetricRecorder) RecordEntrySkipped(ctx context.Context, reason string) {}

// RecordRowDropped does nothing.
func (r *NoOpMetricRecorder) RecordRowDropped(ctx context.Context, stream string) {}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartJobSpan returns ctx unchanged.
func (t *NoOpTracer) StartJobSpan(ctx context.Context, jobID, fileName, procedure string) (context.Context, func()) {
	return ctx, func() {}
}

// StartPortionSpan returns ctx unchanged.
func (t *NoOpTracer) StartPortionSpan(ctx context.Context, index, size int) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)
