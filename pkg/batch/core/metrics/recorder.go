package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
)

// Span represents a single operation or unit of work in distributed tracing.
type Span interface {
	// End sets the end time of the current span and finishes the span.
	End()
}

// MetricRecorder is an abstract interface for recording metrics of a test run.
//
// This interface provides a standardized way to record job, portion and payment level events,
// so the harness can be wired to different metrics backends (e.g., Prometheus).
type MetricRecorder interface {
	// RecordJobStart records the start of a test job.
	//
	// ctx: The context for the operation.
	// procedure: The remote procedure the job submits to.
	RecordJobStart(ctx context.Context, procedure string)

	// RecordJobEnd records the end of a test job with its final counters.
	//
	// ctx: The context for the operation.
	// summary: The snapshot of the finished job.
	RecordJobEnd(ctx context.Context, summary model.JobSummary)

	// RecordPortion records one portion call.
	//
	// ctx: The context for the operation.
	// procedure: The remote procedure name.
	// duration: The elapsed time of the call.
	// err: The call error, or nil if the call succeeded.
	RecordPortion(ctx context.Context, procedure string, duration time.Duration, err error)

	// RecordOutcome records one classified payment outcome.
	RecordOutcome(ctx context.Context, procedure string, class model.OutcomeClass)

	// RecordEntrySkipped records a plan entry that was not scheduled.
	// reason is a short label such as "file_not_found" or "in_past".
	RecordEntrySkipped(ctx context.Context, reason string)

	// RecordRowDropped records a result row that could not be enqueued.
	// stream names the log, e.g. "result" or "failure".
	RecordRowDropped(ctx context.Context, stream string)

	// RecordDuration records the execution time of a specific operation.
	//
	// ctx: The context for the operation.
	// name: The name of the duration to record (e.g., "contract_register").
	// duration: The length of the duration to record.
	// tags: A map of additional tags or attributes to associate with the duration.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
