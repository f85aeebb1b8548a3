package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) int {
	t.Helper()
	exitCode := 0
	cmd := newRootCommand(&exitCode)
	cmd.SetArgs(args)
	cmd.SetOut(&strings.Builder{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return exitCode
}

func TestRootCommand_Arguments(t *testing.T) {
	assert.Equal(t, 0, execute(t), "no arguments prints usage")
	assert.Equal(t, 1, execute(t, "https://bank.example;u;p"), "plan file is required")
	assert.Equal(t, 1, execute(t, "https://bank.example;u;p", filepath.Join(t.TempDir(), "missing.txt")))
}

func TestRun_MissingHostFails(t *testing.T) {
	plan := filepath.Join(t.TempDir(), "plan.txt")
	require.NoError(t, os.WriteFile(plan, nil, 0o644))
	assert.Equal(t, 1, run(context.Background(), ";user;pass", plan, "", ""))
}

func TestRun_SimulatedPlan(t *testing.T) {
	dir := t.TempDir()
	payments := "docId;amount;currency\nD1;1.00;EUR\nD2;2.00;EUR\nD3;3.00;EUR\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payments.csv"), []byte(payments), 0o644))
	plan := filepath.Join(dir, "plan.txt")
	require.NoError(t, os.WriteFile(plan, []byte("ASAP;payments.csv;transfer;2\n"), 0o644))

	t.Setenv("PAYTEST_CONNECTION_MODE", "simulate")
	t.Setenv("PAYTEST_CONNECTION_SIMULATE_LATENCY", "1ms")
	t.Setenv("PAYTEST_SCHEDULER_ASAP_GRACE", "10ms")
	t.Setenv("PAYTEST_SYSTEM_TIMEZONE", "UTC")

	require.Equal(t, 0, run(context.Background(), "", plan, "", ""))

	results, err := filepath.Glob(filepath.Join(dir, "test-results-*.csv"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	body, err := os.ReadFile(results[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Payment file name;"))
	fields := strings.Split(strings.TrimSpace(lines[1]), ";")
	require.Len(t, fields, 12)
	assert.Equal(t, "payments.csv", fields[0])
	assert.Equal(t, "transfer", fields[1])
	assert.Equal(t, "2", fields[5], "portions")
	assert.Equal(t, "3", fields[8], "sent")
	assert.Equal(t, "3", fields[9], "successful")

	failures, err := filepath.Glob(filepath.Join(dir, "failed-payments-*.csv"))
	require.NoError(t, err)
	assert.Len(t, failures, 1)
}
