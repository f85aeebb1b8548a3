package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("connection refused")
	be := exception.NewBatchError("remote", exception.KindPortion, "call failed", originalErr)

	assert.Equal(t, "remote", be.Module)
	assert.Equal(t, "call failed", be.Message)
	assert.Equal(t, exception.KindPortion, be.Kind)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.Equal(t, "[remote] call failed: connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	// Only message args
	be1 := exception.NewBatchErrorf("scheduler", exception.KindEntry, "line %d is malformed", 3)
	assert.Nil(t, be1.Unwrap())
	assert.Equal(t, "[scheduler] line 3 is malformed", be1.Error())

	// Trailing error is wrapped, not formatted
	cause := errors.New("unexpected EOF")
	be2 := exception.NewBatchErrorf("reader", exception.KindJob, "failed to parse %s", "a.csv", cause)
	assert.Equal(t, "failed to parse a.csv", be2.Message)
	assert.ErrorIs(t, be2, cause)
}

func TestKindOf(t *testing.T) {
	be := exception.NewBatchError("config", exception.KindConfig, "bad timezone", nil)
	wrapped := fmt.Errorf("startup: %w", be)

	assert.Equal(t, exception.KindConfig, exception.KindOf(wrapped))
	assert.True(t, exception.IsFatal(wrapped))
	assert.True(t, exception.IsBatchError(wrapped))

	assert.Equal(t, exception.KindUnknown, exception.KindOf(errors.New("plain")))
	assert.False(t, exception.IsFatal(nil))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	be := exception.NewBatchError("job", exception.KindJob, "registration failed", exception.ErrNoContract)
	assert.ErrorIs(t, be, exception.ErrNoContract)
	assert.Equal(t, "job", exception.KindJob.String())
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	be := exception.NewBatchError("pool", exception.KindEntry, "submission closed", exception.ErrPoolShutdown)
	assert.Equal(t, "submission closed", exception.ExtractErrorMessage(be))
}
