// Package model holds the domain types of the paytest harness: test plan entries,
// payment records and outcomes, the per-job counters, and the rows written to the result logs.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AsapToken is the plan keyword that schedules an entry right after the plan is loaded.
const AsapToken = "ASAP"

// PlanEntry is one parsed line of the test plan. It is immutable once parsed.
type PlanEntry struct {
	// Line is the 1-based line number in the plan file.
	Line int
	// RawTime is the scheduled time exactly as written in the plan.
	RawTime string
	// Asap is true when RawTime is the ASAP keyword.
	Asap bool
	// ScheduledAt is the absolute fire time; zero for ASAP entries until resolved.
	ScheduledAt time.Time
	// SourceFile is the payment file path, after resolution against the plan directory.
	SourceFile string
	// Procedure is the remote procedure name the payments are submitted to.
	Procedure string
	// PortionSize is the raw portion size field; the job applies the default when it is not a positive integer.
	PortionSize string
}

// IsAsap reports whether raw is the ASAP keyword (case-insensitive).
func IsAsap(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), AsapToken)
}

// PlanSummary reports what the scheduler did with a plan.
type PlanSummary struct {
	Lines     int
	Scheduled int
	Skipped   int
}

// PaymentRecord is one transaction loaded from a payment file.
type PaymentRecord struct {
	DocID           string `json:"docId" xml:"docId"`
	Amount          string `json:"amount" xml:"amount"`
	Currency        string `json:"currency" xml:"currency"`
	DebtorAccount   string `json:"debtorAccount" xml:"debtorAccount"`
	CreditorAccount string `json:"creditorAccount" xml:"creditorAccount"`
	CreditorName    string `json:"creditorName" xml:"creditorName"`
	Details         string `json:"details" xml:"details"`
}

// PaymentState is the processing state reported for one payment.
type PaymentState string

const (
	// PaymentStatePending means the remote service accepted the payment but has not settled it.
	PaymentStatePending PaymentState = "PEND"
	// PaymentStateOther covers every other state; the error code decides success or failure.
	PaymentStateOther PaymentState = "OTHER"
)

// IsPending reports whether s is the pending state (case-insensitive, like the remote service).
func (s PaymentState) IsPending() bool {
	return strings.EqualFold(string(s), string(PaymentStatePending))
}

// PaymentOutcome is the remote service's answer for one submitted payment.
type PaymentOutcome struct {
	DocID     string       `json:"docId"`
	ErrorCode int          `json:"errno"`
	State     PaymentState `json:"state"`
}

// OutcomeClass is the bucket an outcome is counted in.
type OutcomeClass int

const (
	OutcomeSuccess OutcomeClass = iota
	OutcomePending
	OutcomeFailed
)

// String implements fmt.Stringer.
func (c OutcomeClass) String() string {
	switch c {
	case OutcomeSuccess:
		return "success"
	case OutcomePending:
		return "pending"
	default:
		return "failed"
	}
}

// Classify buckets an outcome. The pending state is checked before the error code.
func (o PaymentOutcome) Classify() OutcomeClass {
	if o.State.IsPending() {
		return OutcomePending
	}
	if o.ErrorCode == 0 {
		return OutcomeSuccess
	}
	return OutcomeFailed
}

// Counters are the runtime counters of one test job.
// They are mutated only by the goroutine running the job.
type Counters struct {
	Success         int
	Failed          int
	Pending         int
	Sent            int
	Portions        int
	OverallDuration time.Duration
}

// Add counts one classified outcome as sent.
func (c *Counters) Add(class OutcomeClass) {
	c.Sent++
	switch class {
	case OutcomeSuccess:
		c.Success++
	case OutcomePending:
		c.Pending++
	default:
		c.Failed++
	}
}

// Throughput returns payments per second over the summed call durations, or 0 if nothing was measured.
func (c Counters) Throughput() float64 {
	if c.Sent == 0 || c.OverallDuration <= 0 {
		return 0
	}
	return float64(c.Sent) / c.OverallDuration.Seconds()
}

// JobSummary is the immutable snapshot of a finished job, handed to metrics and tracing.
type JobSummary struct {
	JobID       string
	FileName    string
	Procedure   string
	PortionSize int
	Started     time.Time
	Finished    time.Time
	Cancelled   bool
	Counters    Counters
	// Err is set when the job was aborted before sending (no contract, unreadable file).
	Err error
}

// NewID generates a new unique ID.
func NewID() string {
	return uuid.New().String()
}

// ResultColumns is the header of the result log.
var ResultColumns = []string{
	"Payment file name",
	"Payment procedure name",
	"Start date and time",
	"Finish date and time",
	"Execution time (ms)",
	"Portion/call count",
	"Portion size",
	"Payments per second",
	"Overall payments",
	"Successful payments",
	"Failed payments",
	"Pending payments",
}

// FailureColumns is the header of the failed payment log.
var FailureColumns = []string{
	"Payment file name",
	"Payment docId",
	"Error code",
}

// ResultRow is the single row a test job writes when it completes.
type ResultRow struct {
	FileName    string
	Procedure   string
	Start       string
	Finish      string
	ExecutionMs string
	Portions    string
	PortionSize string
	Throughput  string
	Sent        string
	Success     string
	Failed      string
	Pending     string
}

// Fields returns the row in ResultColumns order.
func (r ResultRow) Fields() []string {
	return []string{
		r.FileName, r.Procedure, r.Start, r.Finish, r.ExecutionMs, r.Portions,
		r.PortionSize, r.Throughput, r.Sent, r.Success, r.Failed, r.Pending,
	}
}

// FailureRow is written once per failed payment.
type FailureRow struct {
	FileName  string
	DocID     string
	ErrorCode string
}

// Fields returns the row in FailureColumns order.
func (r FailureRow) Fields() []string {
	return []string{r.FileName, r.DocID, r.ErrorCode}
}
