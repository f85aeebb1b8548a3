package resultlog_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	"github.com/tigerroll/paytest/pkg/batch/infrastructure/resultlog"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 45*int(time.Millisecond), time.UTC)
	assert.Equal(t, "/tmp/test-results-20240305070809045.csv", resultlog.FileName("/tmp/test-results", ts))
}

func TestOpen_WritesHeaderSynchronously(t *testing.T) {
	base := filepath.Join(t.TempDir(), "log")
	l, err := resultlog.Open(base, []string{"a", "b", "c"}, resultlog.Options{})
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, strings.HasPrefix(filepath.Base(l.Path()), "log-"))
	assert.Equal(t, []string{"a;b;c"}, readLines(t, l.Path()))
}

func TestAppend_WritesRowsInOrder(t *testing.T) {
	l, err := resultlog.Open(filepath.Join(t.TempDir(), "log"), []string{"h"}, resultlog.Options{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.True(t, l.Append("row", fmt.Sprint(i)))
	}
	assert.Eventually(t, func() bool { return l.Stats().Written == 5 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, l.Close())

	lines := readLines(t, l.Path())
	assert.Equal(t, []string{"h", "row;0", "row;1", "row;2", "row;3", "row;4"}, lines)
}

func TestAppend_ConcurrentProducers(t *testing.T) {
	l, err := resultlog.Open(filepath.Join(t.TempDir(), "log"), nil, resultlog.Options{Capacity: 4})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				l.Append(fmt.Sprintf("p%d", p), fmt.Sprint(i))
			}
		}(p)
	}
	wg.Wait()
	assert.Eventually(t, func() bool { return l.Stats().Written == 200 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, l.Close())

	lines := readLines(t, l.Path())
	assert.Len(t, lines, 200)
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ";"), 2, "rows are never interleaved")
	}
}

func TestAppend_AfterCloseIsDropped(t *testing.T) {
	l, err := resultlog.Open(filepath.Join(t.TempDir(), "log"), []string{"h"}, resultlog.Options{})
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "close is idempotent")

	start := time.Now()
	assert.False(t, l.Append("late"))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), l.Stats().Dropped)
	assert.Equal(t, []string{"h"}, readLines(t, l.Path()))
}

func TestOpen_FailsForMissingDirectory(t *testing.T) {
	_, err := resultlog.Open(filepath.Join(t.TempDir(), "missing", "log"), nil, resultlog.Options{})
	assert.Error(t, err)
}

func TestOpenSet(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig().Paytest.Results
	set, err := resultlog.OpenSet(dir, &cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(set.Result.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(set.Result.Path()), "test-results-"))
	assert.True(t, strings.HasPrefix(filepath.Base(set.Failure.Path()), "failed-payments-"))
	require.NoError(t, set.Close())

	assert.Len(t, strings.Split(readLines(t, set.Result.Path())[0], ";"), 12)
	assert.Len(t, strings.Split(readLines(t, set.Failure.Path())[0], ";"), 3)
}

func TestDrain_WritesAcceptedRowsBeforeClose(t *testing.T) {
	l, err := resultlog.Open(filepath.Join(t.TempDir(), "log"), nil, resultlog.Options{Capacity: 50})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.True(t, l.Append("row", fmt.Sprint(i)))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, l.Drain(ctx))
	require.NoError(t, l.Close())

	assert.Len(t, readLines(t, l.Path()), 50)
	assert.True(t, l.Drain(context.Background()), "a drained, closed logger has nothing pending")
}

func TestNewSet_DrainsAndClosesOnStop(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig().Paytest.Results
	lc := fxtest.NewLifecycle(t)
	set, err := resultlog.NewSet(lc, resultlog.Dir(dir), &cfg, nil)
	require.NoError(t, err)

	lc.RequireStart()
	require.True(t, set.Result.Append("payments.csv", "pay"))
	lc.RequireStop()

	assert.Equal(t, []string{"payments.csv;pay"}, readLines(t, set.Result.Path())[1:])
	assert.False(t, set.Failure.Append("late"))
}
