// Package exception provides the error types of the paytest harness.
// Errors are classified by the smallest unit of work they abort, so callers can
// decide whether to stop the process, skip a plan entry, abort a job or abort a portion.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a BatchError by the unit of work it aborts.
type Kind int

const (
	// KindUnknown is used for errors that were not classified.
	KindUnknown Kind = iota
	// KindConfig marks startup configuration errors. They are fatal: nothing is scheduled.
	KindConfig
	// KindEntry marks errors in a single test plan entry. Only that entry is skipped.
	KindEntry
	// KindJob marks errors that abort one test job (registration, file parsing).
	KindJob
	// KindPortion marks transport errors that abort only the current portion.
	KindPortion
	// KindBackpressure marks a log row rejected because the queue stayed full.
	KindBackpressure
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindEntry:
		return "entry"
	case KindJob:
		return "job"
	case KindPortion:
		return "portion"
	case KindBackpressure:
		return "backpressure"
	default:
		return "unknown"
	}
}

// Sentinel errors shared across packages.
var (
	// ErrNoContract is returned when the session registry yields no contract id.
	ErrNoContract = errors.New("no client contract id")
	// ErrPoolShutdown is returned when a task is submitted after submission was closed.
	ErrPoolShutdown = errors.New("worker pool is shut down")
	// ErrLoggerClosed is returned when a row is appended to a closed logger.
	ErrLoggerClosed = errors.New("logger is closed")
	// ErrMalformedEntry is returned for a plan line that cannot be split into its fields.
	ErrMalformedEntry = errors.New("malformed test plan entry")
)

// BatchError is the error type used throughout the harness.
// It holds the module where the error occurred, a message, the wrapped original error,
// and the Kind describing how much work it aborts.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "scheduler", "job", "reader", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// Kind classifies the error.
	Kind Kind
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module string, kind Kind, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// If the last argument is an error it becomes the wrapped OriginalErr and is not used for formatting.
//
// Example:
//
//	NewBatchErrorf("reader", KindJob, "failed to parse %s", path, err)
func NewBatchErrorf(module string, kind Kind, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		Kind:        kind,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is and errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsBatchError reports whether err (or anything it wraps) is a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// KindOf returns the Kind of the outermost BatchError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsFatal reports whether err must stop the process before anything is scheduled.
func IsFatal(err error) bool {
	return KindOf(err) == KindConfig
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
