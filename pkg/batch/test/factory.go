package test

import (
	"fmt"
	"sync"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
)

// MemoryLog is an in-memory row sink. It is safe for concurrent use.
type MemoryLog struct {
	mu     sync.Mutex
	rows   [][]string
	reject bool
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append stores a copy of fields. It returns false once Reject has been called.
func (l *MemoryLog) Append(fields ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reject {
		return false
	}
	row := make([]string, len(fields))
	copy(row, fields)
	l.rows = append(l.rows, row)
	return true
}

// Reject makes every further Append fail, like a full or closed log.
func (l *MemoryLog) Reject() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reject = true
}

// Rows returns the rows appended so far.
func (l *MemoryLog) Rows() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]string, len(l.rows))
	copy(out, l.rows)
	return out
}

var _ port.RowAppender = (*MemoryLog)(nil)

// NewPayments creates n payment records with docIds "<prefix>-1" .. "<prefix>-n".
func NewPayments(prefix string, n int) []model.PaymentRecord {
	records := make([]model.PaymentRecord, n)
	for i := range records {
		records[i] = model.PaymentRecord{
			DocID:    fmt.Sprintf("%s-%d", prefix, i+1),
			Amount:   "1.00",
			Currency: "EUR",
		}
	}
	return records
}

// OutcomesFor answers every payment with the given error code and state.
func OutcomesFor(payments []model.PaymentRecord, errno int, state model.PaymentState) []model.PaymentOutcome {
	outcomes := make([]model.PaymentOutcome, len(payments))
	for i, p := range payments {
		outcomes[i] = model.PaymentOutcome{DocID: p.DocID, ErrorCode: errno, State: state}
	}
	return outcomes
}
