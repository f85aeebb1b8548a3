// Package port defines the core interfaces (ports) of the paytest harness.
// These interfaces abstract the remote transaction service and the result sinks,
// allowing for flexible implementation and testing.
package port

import (
	"context"
	"time"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
)

// Batch is one portion of payments submitted under a registered contract.
type Batch struct {
	ContractID string
	Payments   []model.PaymentRecord
}

// CallChannel executes a batch of payment requests against the remote transaction service.
type CallChannel interface {
	// Call submits the batch to the named procedure and returns one outcome per accepted payment,
	// together with the elapsed time of the call.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   batch: The contract id and the payments of one portion.
	//   procedure: The remote procedure name.
	//
	// Returns:
	//   []model.PaymentOutcome: Per-payment outcomes, in no required order.
	//   time.Duration: The elapsed time of the call.
	//   error: An error if the call as a whole failed.
	Call(ctx context.Context, batch Batch, procedure string) ([]model.PaymentOutcome, time.Duration, error)
}

// SessionRegistry registers and releases the contract id a test job submits under.
type SessionRegistry interface {
	// Register obtains a new contract id. An empty id means no contract could be registered.
	Register(ctx context.Context) (string, error)
	// Release gives the contract back. It is idempotent and never fails; problems are only logged.
	Release(ctx context.Context, contractID string)
}

// RecordLoader loads the payment records of one payment file.
type RecordLoader interface {
	Load(ctx context.Context, path string) ([]model.PaymentRecord, error)
}

// RowAppender is a sink for flat result rows. Append reports whether the row was accepted.
type RowAppender interface {
	Append(fields ...string) bool
}

// ResultLog is the sink for job result rows.
type ResultLog interface {
	RowAppender
}

// FailureLog is the sink for failed payment rows.
type FailureLog interface {
	RowAppender
}

// JobExecutionListener is notified around every test job.
// AfterJob is called on every path, including jobs aborted before their first portion.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, summary model.JobSummary)
	AfterJob(ctx context.Context, summary model.JobSummary)
}

// Notifier publishes the outcome of a finished test job.
type Notifier interface {
	NotifyJobCompletion(ctx context.Context, summary model.JobSummary)
}
