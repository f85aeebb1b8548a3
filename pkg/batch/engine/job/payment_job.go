// Package job implements the test job: one scheduled run of a payment file against a remote procedure.
package job

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/engine/portion"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const moduleName = "job"

// DefaultPortionSize is used when no other default is configured.
const DefaultPortionSize = 50

// Dependencies are the collaborators shared by all test jobs of a run.
type Dependencies struct {
	Channel            port.CallChannel
	Registry           port.SessionRegistry
	Loader             port.RecordLoader
	Results            port.ResultLog
	Failures           port.FailureLog
	Recorder           metrics.MetricRecorder
	Tracer             metrics.Tracer
	Listeners          []port.JobExecutionListener
	Formatter          Formatter
	DefaultPortionSize int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// PaymentTest is one test job. Its counters are only touched by the goroutine running Run.
type PaymentTest struct {
	ID          string
	FilePath    string
	FileName    string
	Procedure   string
	PortionSize int

	deps     *Dependencies
	counters model.Counters
}

// New creates the job for a plan entry. A portion size that is not a positive integer
// falls back to the configured default.
func New(entry model.PlanEntry, deps Dependencies) *PaymentTest {
	d := deps.withDefaults()
	return &PaymentTest{
		ID:          model.NewID(),
		FilePath:    entry.SourceFile,
		FileName:    filepath.Base(entry.SourceFile),
		Procedure:   entry.Procedure,
		PortionSize: ParsePortionSize(entry.PortionSize, d.DefaultPortionSize),
		deps:        &d,
	}
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Recorder == nil {
		d.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if d.Tracer == nil {
		d.Tracer = metrics.NewNoOpTracer()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// ParsePortionSize parses raw, returning def (or DefaultPortionSize) when raw is not a positive integer.
func ParsePortionSize(raw string, def int) int {
	if def <= 0 {
		def = DefaultPortionSize
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Counters returns a copy of the job counters.
func (j *PaymentTest) Counters() model.Counters {
	return j.counters
}

// Run executes the job. It returns an error only when the job was aborted before any
// portion was sent (no contract, unreadable file); no result row is written then.
// Cancellation of ctx stops the job between portions; the running call is never cancelled.
func (j *PaymentTest) Run(ctx context.Context) (summary model.JobSummary, err error) {
	d := j.deps
	started := d.Now()
	ctx, endSpan := d.Tracer.StartJobSpan(ctx, j.ID, j.FileName, j.Procedure)
	defer endSpan()

	listenerCtx := context.WithoutCancel(ctx)
	for _, l := range d.Listeners {
		l.BeforeJob(listenerCtx, j.summary(started, false))
	}
	defer func() {
		summary.Err = err
		for _, l := range d.Listeners {
			l.AfterJob(listenerCtx, summary)
		}
	}()

	logger.Infof("Test %s started at %s", j.FileName, d.Formatter.Timestamp(started))

	contractID, err := d.Registry.Register(ctx)
	if err == nil && contractID == "" {
		err = exception.ErrNoContract
	}
	if err != nil {
		logger.Errorf("Test %s can't be executed - no client contract id! %v", j.FileName, err)
		d.Tracer.RecordError(ctx, moduleName, err)
		return j.summary(started, false), exception.NewBatchErrorf(moduleName, exception.KindJob, "test %s has no client contract", j.FileName, err)
	}
	defer d.Registry.Release(context.WithoutCancel(ctx), contractID)
	d.Tracer.RecordEvent(ctx, "contract_registered", map[string]interface{}{"contract_id": contractID})

	loadStart := time.Now()
	records, err := d.Loader.Load(ctx, j.FilePath)
	if err != nil {
		logger.Errorf("Error while performing payment test %s! %v", j.FileName, err)
		d.Tracer.RecordError(ctx, moduleName, err)
		return j.summary(started, false), err
	}
	loadDuration := time.Since(loadStart)
	d.Recorder.RecordDuration(ctx, "payment_file_load", loadDuration, map[string]string{"file": j.FileName})
	logger.Infof("File %s parsed in %sms", j.FileName, d.Formatter.Millis(loadDuration))

	cancelled := j.sendPortions(ctx, contractID, records)

	finished := d.Now()
	if !d.Results.Append(j.resultRow(started, finished).Fields()...) {
		logger.Warnf("Test %s result row was dropped.", j.FileName)
	}
	logger.Infof("Test %s finished at %s. Payment status: OK=%d, PENDING=%d, FAILED=%d",
		j.FileName, d.Formatter.Timestamp(finished), j.counters.Success, j.counters.Pending, j.counters.Failed)

	summary = j.summary(started, cancelled)
	summary.Finished = finished
	return summary, nil
}

// sendPortions submits the portions in order and reports whether the job was cancelled.
func (j *PaymentTest) sendPortions(ctx context.Context, contractID string, records []model.PaymentRecord) bool {
	d := j.deps
	portions := portion.Partition(records, j.PortionSize)
	total := len(records)
	var lastDuration time.Duration
	lastCount := 0

	for i, payments := range portions {
		if ctx.Err() != nil {
			logger.Warnf("Test %s payment execution interrupted! %v", j.FileName, ctx.Err())
			return true
		}
		j.counters.Portions++

		progress := 0
		if total > 0 {
			progress = i * j.PortionSize * 100 / total
		}
		logger.Infof("Test %s portion %d/%d started. Last call duration %sms, %strx/sec, progress %d%%",
			j.FileName, i+1, len(portions), d.Formatter.Millis(lastDuration), d.Formatter.Rate(rate(lastCount, lastDuration)), progress)

		pctx, endPortion := d.Tracer.StartPortionSpan(ctx, i+1, len(payments))
		outcomes, elapsed, err := d.Channel.Call(context.WithoutCancel(pctx), port.Batch{ContractID: contractID, Payments: payments}, j.Procedure)
		d.Recorder.RecordPortion(pctx, j.Procedure, elapsed, err)
		if err != nil {
			logger.Errorf("Test %s error while calling payment procedure! %v", j.FileName, err)
			d.Tracer.RecordError(pctx, moduleName, exception.NewBatchErrorf(moduleName, exception.KindPortion, "portion %d failed", i+1, err))
			endPortion()
			continue
		}
		j.counters.OverallDuration += elapsed
		lastDuration, lastCount = elapsed, len(payments)

		if len(outcomes) > len(payments) {
			logger.Warnf("Test %s portion %d returned %d outcomes for %d payments, extra outcomes ignored.",
				j.FileName, i+1, len(outcomes), len(payments))
			outcomes = outcomes[:len(payments)]
		}
		j.classify(pctx, outcomes)
		endPortion()
	}
	return false
}

func (j *PaymentTest) classify(ctx context.Context, outcomes []model.PaymentOutcome) {
	d := j.deps
	for _, o := range outcomes {
		class := o.Classify()
		j.counters.Add(class)
		d.Recorder.RecordOutcome(ctx, j.Procedure, class)
		if class == model.OutcomeFailed {
			row := model.FailureRow{FileName: j.FileName, DocID: o.DocID, ErrorCode: strconv.Itoa(o.ErrorCode)}
			if !d.Failures.Append(row.Fields()...) {
				logger.Warnf("Test %s failure row for %s was dropped.", j.FileName, o.DocID)
			}
		}
	}
}

func (j *PaymentTest) resultRow(started, finished time.Time) model.ResultRow {
	f := j.deps.Formatter
	c := j.counters
	return model.ResultRow{
		FileName:    j.FileName,
		Procedure:   j.Procedure,
		Start:       f.ExcelTimestamp(started),
		Finish:      f.ExcelTimestamp(finished),
		ExecutionMs: f.Millis(c.OverallDuration),
		Portions:    strconv.Itoa(c.Portions),
		PortionSize: strconv.Itoa(j.PortionSize),
		Throughput:  f.Rate(c.Throughput()),
		Sent:        strconv.Itoa(c.Sent),
		Success:     strconv.Itoa(c.Success),
		Failed:      strconv.Itoa(c.Failed),
		Pending:     strconv.Itoa(c.Pending),
	}
}

func (j *PaymentTest) summary(started time.Time, cancelled bool) model.JobSummary {
	return model.JobSummary{
		JobID:       j.ID,
		FileName:    j.FileName,
		Procedure:   j.Procedure,
		PortionSize: j.PortionSize,
		Started:     started,
		Finished:    j.deps.Now(),
		Cancelled:   cancelled,
		Counters:    j.counters,
	}
}
