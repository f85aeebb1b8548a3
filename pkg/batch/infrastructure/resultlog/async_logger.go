// Package resultlog implements the append-only result and failure log files.
// Each log has one writer goroutine fed by a bounded queue shared by all test jobs.
package resultlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const (
	// FieldSeparator joins the fields of one row.
	FieldSeparator = ";"
	// FileTimestampLayout is appended to the base path of every log file (yyyyMMddHHmmssSSS).
	FileTimestampLayout = "20060102150405.000"

	defaultCapacity     = 100
	defaultOfferTimeout = 3 * time.Second
)

// Options configures an AsyncLogger.
type Options struct {
	// Stream names the log in metrics and messages, e.g. "result".
	Stream string
	// Capacity is the queue size; 0 means 100.
	Capacity int
	// OfferTimeout bounds Append; 0 means 3s.
	OfferTimeout time.Duration
	// Recorder receives a RecordRowDropped call per dropped row. Optional.
	Recorder metrics.MetricRecorder
	// Now is used for the file name timestamp. Optional.
	Now func() time.Time
}

// Stats are the row counters of an AsyncLogger.
type Stats struct {
	Written int64
	Dropped int64
}

// AsyncLogger appends rows to a file from a single writer goroutine.
// Append may be called from any number of goroutines.
type AsyncLogger struct {
	path         string
	stream       string
	file         io.WriteCloser
	out          *bufio.Writer
	queue        chan string
	stopCh       chan struct{}
	stopped      chan struct{} // closed when the writer goroutine returns
	idle         chan struct{} // pulsed when pending drops to zero
	closeOnce    sync.Once
	closeErr     error
	offerTimeout time.Duration
	recorder     metrics.MetricRecorder
	failing      bool // owned by the writer goroutine

	written atomic.Int64
	dropped atomic.Int64
	pending atomic.Int64 // enqueued and not yet written
}

// Open creates "<basePath>-<yyyyMMddHHmmssSSS>.csv", writes the header row and starts the writer goroutine.
func Open(basePath string, header []string, opts Options) (*AsyncLogger, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.OfferTimeout <= 0 {
		opts.OfferTimeout = defaultOfferTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if opts.Stream == "" {
		opts.Stream = "result"
	}

	path := FileName(basePath, opts.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, exception.NewBatchErrorf("resultlog", exception.KindConfig, "failed to create log file %s", path, err)
	}

	l := newAsyncLogger(path, file, opts)
	if len(header) > 0 {
		if err := l.writeRow(strings.Join(header, FieldSeparator)); err != nil {
			_ = file.Close()
			return nil, exception.NewBatchErrorf("resultlog", exception.KindConfig, "failed to write header to %s", path, err)
		}
	}

	l.start()
	logger.Debugf("AsyncLogger[%s]: Writer goroutine started for %s (capacity: %d).", l.stream, path, opts.Capacity)
	return l, nil
}

func newAsyncLogger(path string, file io.WriteCloser, opts Options) *AsyncLogger {
	return &AsyncLogger{
		path:         path,
		stream:       opts.Stream,
		file:         file,
		out:          bufio.NewWriter(file),
		queue:        make(chan string, opts.Capacity),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
		idle:         make(chan struct{}, 1),
		offerTimeout: opts.OfferTimeout,
		recorder:     opts.Recorder,
	}
}

func (l *AsyncLogger) start() {
	go l.run()
}

// FileName returns the log file name for basePath at time t.
func FileName(basePath string, t time.Time) string {
	stamp := strings.Replace(t.Format(FileTimestampLayout), ".", "", 1)
	return fmt.Sprintf("%s-%s.csv", basePath, stamp)
}

// Path returns the file the logger writes to.
func (l *AsyncLogger) Path() string {
	return l.path
}

// run is the writer goroutine. Rows still queued when the logger is closed are discarded.
func (l *AsyncLogger) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.stopCh:
			logger.Debugf("AsyncLogger[%s]: Writer goroutine stopped. %d queued rows discarded.", l.stream, len(l.queue))
			return
		case row := <-l.queue:
			err := l.writeRow(row)
			if err != nil {
				l.writeFailed(err)
			} else {
				l.failing = false
				l.written.Add(1)
			}
			l.release()
		}
	}
}

// writeFailed drops the row and resets the buffer so the next row is written afresh.
// Only the first error of a run of failures is logged at error level.
func (l *AsyncLogger) writeFailed(err error) {
	l.out.Reset(l.file)
	l.dropped.Add(1)
	l.recorder.RecordRowDropped(context.Background(), l.stream)
	if l.failing {
		logger.Debugf("AsyncLogger[%s]: Failed to write row to %s: %v", l.stream, l.path, err)
		return
	}
	l.failing = true
	logger.Errorf("AsyncLogger[%s]: Failed to write row to %s: %v", l.stream, l.path, err)
}

// release marks one accepted row as settled and wakes Drain once nothing is pending.
func (l *AsyncLogger) release() {
	if l.pending.Add(-1) > 0 {
		return
	}
	select {
	case l.idle <- struct{}{}:
	default:
	}
}

func (l *AsyncLogger) writeRow(row string) error {
	if _, err := l.out.WriteString(row); err != nil {
		return err
	}
	if err := l.out.WriteByte('\n'); err != nil {
		return err
	}
	return l.out.Flush()
}

// Append joins fields with ";" and enqueues the row. It waits at most the offer timeout
// for queue space and returns false if the row was dropped or the logger is closed.
func (l *AsyncLogger) Append(fields ...string) bool {
	select {
	case <-l.stopCh:
		l.drop("logger closed")
		return false
	default:
	}

	row := strings.Join(fields, FieldSeparator)
	timer := time.NewTimer(l.offerTimeout)
	defer timer.Stop()

	l.pending.Add(1)
	select {
	case l.queue <- row:
		return true
	case <-timer.C:
		l.release()
		l.drop("queue full")
		return false
	case <-l.stopCh:
		l.release()
		l.drop("logger closed")
		return false
	}
}

// Drain waits until every accepted row has been written, ctx is done or the logger is closed.
// It reports whether the queue was fully written.
func (l *AsyncLogger) Drain(ctx context.Context) bool {
	for l.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-l.stopCh:
			return l.pending.Load() <= 0
		case <-l.idle:
		}
	}
	return true
}

func (l *AsyncLogger) drop(reason string) {
	l.dropped.Add(1)
	l.recorder.RecordRowDropped(context.Background(), l.stream)
	logger.Warnf("AsyncLogger[%s]: Row dropped (%s).", l.stream, reason)
}

// Stats returns the number of rows written and dropped so far. The header is not counted.
func (l *AsyncLogger) Stats() Stats {
	return Stats{Written: l.written.Load(), Dropped: l.dropped.Load()}
}

// Close is CloseContext bounded by the offer timeout.
func (l *AsyncLogger) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.offerTimeout)
	defer cancel()
	return l.CloseContext(ctx)
}

// CloseContext stops the writer goroutine and closes the file. The row being written
// completes unless ctx is done first; rows still queued are lost. A writer that cannot be
// joined before ctx is done is abandoned and the file is closed underneath it.
// Only the first call has an effect; later calls return its result.
func (l *AsyncLogger) CloseContext(ctx context.Context) error {
	l.closeOnce.Do(func() {
		logger.Debugf("AsyncLogger[%s]: Sending shutdown signal...", l.stream)
		close(l.stopCh)

		var result *multierror.Error
		select {
		case <-l.stopped:
		case <-ctx.Done():
			logger.Warnf("AsyncLogger[%s]: Writer goroutine did not stop, closing %s anyway.", l.stream, l.path)
			result = multierror.Append(result, exception.NewBatchErrorf("resultlog", exception.KindUnknown, "writer of %s did not stop", l.path, ctx.Err()))
		}
		if err := l.file.Close(); err != nil {
			result = multierror.Append(result, exception.NewBatchErrorf("resultlog", exception.KindUnknown, "failed to close %s", l.path, err))
		}
		l.closeErr = result.ErrorOrNil()

		stats := l.Stats()
		logger.Infof("AsyncLogger[%s]: Closed %s (%d rows written, %d dropped).", l.stream, l.path, stats.Written, stats.Dropped)
	})
	return l.closeErr
}

var _ port.RowAppender = (*AsyncLogger)(nil)
