package test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
)

// MockCallChannel is a mock implementation of the port.CallChannel interface.
type MockCallChannel struct {
	mock.Mock
}

// Call mocks the Call method of port.CallChannel.
// It records the call and returns the predefined outcomes, duration and error.
func (m *MockCallChannel) Call(ctx context.Context, batch port.Batch, procedure string) ([]model.PaymentOutcome, time.Duration, error) {
	args := m.Called(ctx, batch, procedure)
	var outcomes []model.PaymentOutcome
	if v := args.Get(0); v != nil {
		outcomes = v.([]model.PaymentOutcome)
	}
	return outcomes, args.Get(1).(time.Duration), args.Error(2)
}

// MockSessionRegistry is a mock implementation of the port.SessionRegistry interface.
type MockSessionRegistry struct {
	mock.Mock
}

// Register mocks the Register method of port.SessionRegistry.
func (m *MockSessionRegistry) Register(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Release mocks the Release method of port.SessionRegistry.
func (m *MockSessionRegistry) Release(ctx context.Context, contractID string) {
	m.Called(ctx, contractID)
}

// MockRecordLoader is a mock implementation of the port.RecordLoader interface.
type MockRecordLoader struct {
	mock.Mock
}

// Load mocks the Load method of port.RecordLoader.
func (m *MockRecordLoader) Load(ctx context.Context, path string) ([]model.PaymentRecord, error) {
	args := m.Called(ctx, path)
	var records []model.PaymentRecord
	if v := args.Get(0); v != nil {
		records = v.([]model.PaymentRecord)
	}
	return records, args.Error(1)
}

var (
	_ port.CallChannel     = (*MockCallChannel)(nil)
	_ port.SessionRegistry = (*MockSessionRegistry)(nil)
	_ port.RecordLoader    = (*MockRecordLoader)(nil)
)
