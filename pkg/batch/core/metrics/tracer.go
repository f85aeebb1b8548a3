package metrics

import (
	"context"
)

// Tracer is an abstract interface for distributed tracing.
// It lets the harness report job and portion execution to systems like OpenTelemetry.
type Tracer interface {
	// StartJobSpan starts a Span for a test job.
	//
	// ctx: The parent context.
	// jobID: The unique id of the job run.
	// fileName: The payment file of the job.
	// procedure: The remote procedure name.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	//          It is recommended to call the returned function in a defer statement.
	StartJobSpan(ctx context.Context, jobID, fileName, procedure string) (context.Context, func())

	// StartPortionSpan starts a Span for one portion call.
	//
	// ctx: The parent context (typically a context with a job Span).
	// index: The 1-based portion number.
	// size: The number of payments in the portion.
	StartPortionSpan(ctx context.Context, index, size int) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// ctx: The context with the current Span.
	// module: The name of the component where the error occurred (e.g., "job", "remote").
	// err: The error to record.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// ctx: The context with the current Span.
	// name: The name of the event (e.g., "contract_registered").
	// attributes: Additional attributes to associate with the event.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
