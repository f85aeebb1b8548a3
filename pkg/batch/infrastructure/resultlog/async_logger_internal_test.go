package resultlog

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
)

// stalledSink blocks every Write until unblock is called, like a full pipe or a hung mount.
type stalledSink struct {
	entered   chan struct{}
	enterOnce sync.Once
	release   chan struct{}
	relOnce   sync.Once
	closed    atomic.Bool
}

func newStalledSink() *stalledSink {
	return &stalledSink{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *stalledSink) Write(p []byte) (int, error) {
	s.enterOnce.Do(func() { close(s.entered) })
	<-s.release
	return 0, errors.New("sink closed")
}

func (s *stalledSink) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *stalledSink) unblock() {
	s.relOnce.Do(func() { close(s.release) })
}

// flakySink fails the first n writes and records the rest.
type flakySink struct {
	failures int
	buf      bytes.Buffer
}

func (s *flakySink) Write(p []byte) (int, error) {
	if s.failures > 0 {
		s.failures--
		return 0, errors.New("disk full")
	}
	return s.buf.Write(p)
}

func (s *flakySink) Close() error { return nil }

type droppedCounter struct {
	metrics.NoOpMetricRecorder
	dropped atomic.Int32
}

func (r *droppedCounter) RecordRowDropped(ctx context.Context, stream string) {
	r.dropped.Add(1)
}

func testOptions(capacity int, offerTimeout time.Duration, recorder metrics.MetricRecorder) Options {
	return Options{Stream: "result", Capacity: capacity, OfferTimeout: offerTimeout, Recorder: recorder}
}

func waitEntered(t *testing.T, sink *stalledSink) {
	t.Helper()
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never reached the sink")
	}
}

func TestCloseContext_AbandonsStalledWriter(t *testing.T) {
	sink := newStalledSink()
	t.Cleanup(sink.unblock)
	l := newAsyncLogger("stalled.csv", sink, testOptions(4, time.Second, &droppedCounter{}))
	l.start()

	require.True(t, l.Append("row"))
	waitEntered(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.CloseContext(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not stop")
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, sink.closed.Load(), "the file is closed even though the writer is stuck")
	assert.Equal(t, err, l.CloseContext(context.Background()), "later calls return the first result")
	assert.False(t, l.Append("late"))
}

func TestClose_IsBoundedByOfferTimeout(t *testing.T) {
	sink := newStalledSink()
	t.Cleanup(sink.unblock)
	l := newAsyncLogger("stalled.csv", sink, testOptions(4, 50*time.Millisecond, &droppedCounter{}))
	l.start()

	require.True(t, l.Append("row"))
	waitEntered(t, sink)

	done := make(chan error, 1)
	go func() { done <- l.Close() }()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a stalled writer")
	}
}

func TestSetCloseContext_ClosesHealthyLogAlongsideStalledOne(t *testing.T) {
	stalled := newStalledSink()
	t.Cleanup(stalled.unblock)
	result := newAsyncLogger("result.csv", stalled, testOptions(4, time.Second, &droppedCounter{}))
	result.start()
	healthy := &flakySink{}
	failure := newAsyncLogger("failure.csv", healthy, testOptions(4, time.Second, &droppedCounter{}))
	failure.start()

	require.True(t, result.Append("row"))
	waitEntered(t, stalled)
	require.True(t, failure.Append("payments.csv", "doc-1", "7"))
	require.True(t, failure.Drain(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := (&Set{Result: result, Failure: failure}).CloseContext(ctx)

	require.Error(t, err)
	assert.Equal(t, "payments.csv;doc-1;7\n", healthy.buf.String())
	assert.False(t, failure.Append("late"))
}

func TestAppend_QueueFullDropsAfterOfferTimeout(t *testing.T) {
	recorder := &droppedCounter{}
	sink := &flakySink{}
	// the writer is not started yet, so nothing drains the queue
	l := newAsyncLogger("full.csv", sink, testOptions(1, 80*time.Millisecond, recorder))

	require.True(t, l.Append("first"))

	start := time.Now()
	accepted := l.Append("second")
	elapsed := time.Since(start)

	assert.False(t, accepted)
	assert.GreaterOrEqual(t, elapsed, 70*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, int64(1), l.Stats().Dropped)
	assert.Equal(t, int32(1), recorder.dropped.Load())

	l.start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, l.Drain(ctx), "the dropped row is not waited for")
	require.NoError(t, l.Close())
	assert.Equal(t, Stats{Written: 1, Dropped: 1}, l.Stats())
	assert.Equal(t, "first\n", sink.buf.String())
}

func TestRun_RecoversAfterWriteErrors(t *testing.T) {
	recorder := &droppedCounter{}
	sink := &flakySink{failures: 2}
	l := newAsyncLogger("flaky.csv", sink, testOptions(4, time.Second, recorder))
	l.start()

	for _, row := range []string{"a", "b", "c"} {
		require.True(t, l.Append(row))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, l.Drain(ctx))
	require.NoError(t, l.Close())

	assert.Equal(t, Stats{Written: 1, Dropped: 2}, l.Stats())
	assert.Equal(t, int32(2), recorder.dropped.Load())
	assert.Equal(t, "c\n", sink.buf.String(), "a failed write does not poison later rows")
}
