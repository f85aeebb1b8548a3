package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/paytest/pkg/batch/core/config"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
)

// TestNewConfig_Defaults verifies the values the harness runs with when nothing is configured.
func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()
	p := cfg.Paytest

	assert.Equal(t, "Europe/Riga", p.System.Timezone)
	assert.Equal(t, "INFO", p.System.Logging.Level)
	assert.Equal(t, 20, p.Scheduler.PoolSize)
	assert.Equal(t, 2*time.Second, p.Scheduler.AsapGrace)
	assert.Equal(t, 60*time.Second, p.Scheduler.DrainTimeout)
	assert.Equal(t, 50, p.Job.DefaultPortionSize)
	assert.Equal(t, 100, p.Results.QueueCapacity)
	assert.Equal(t, 3*time.Second, p.Results.OfferTimeout)
	assert.Equal(t, "test-results", p.Results.ResultLogName)
	assert.Equal(t, "failed-payments", p.Results.FailureLogName)
	assert.Equal(t, config.ConnectionModeHTTP, p.Connection.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAMLAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paytest.yaml")
	yamlBody := `
paytest:
  system:
    timezone: UTC
  scheduler:
    pool_size: 4
    drain_timeout: 5s
  connection:
    host: ${PAYTEST_TEST_HOST}
    mode: simulate
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	t.Setenv("PAYTEST_TEST_HOST", "https://bank.example")
	t.Setenv("PAYTEST_SCHEDULER_POOL_SIZE", "7")
	t.Setenv("PAYTEST_RESULTS_OFFER_TIMEOUT", "250ms")

	cfg, err := config.LoadConfig(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)

	p := cfg.Paytest
	assert.Equal(t, "UTC", p.System.Timezone)
	assert.Equal(t, 7, p.Scheduler.PoolSize, "environment overrides YAML")
	assert.Equal(t, 5*time.Second, p.Scheduler.DrainTimeout)
	assert.Equal(t, 250*time.Millisecond, p.Results.OfferTimeout)
	assert.Equal(t, "https://bank.example", p.Connection.Host)
	assert.Equal(t, config.ConnectionModeSimulate, p.Connection.Mode)
	// untouched keys keep their defaults
	assert.Equal(t, 50, p.Job.DefaultPortionSize)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PAYTEST_JOB_DEFAULT_PORTION_SIZE=25\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PAYTEST_JOB_DEFAULT_PORTION_SIZE") })

	cfg, err := config.LoadConfig(envFile, "")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Paytest.Job.DefaultPortionSize)
}

func TestLoadConfig_InvalidValuesAreConfigErrors(t *testing.T) {
	t.Setenv("PAYTEST_SYSTEM_TIMEZONE", "Mars/Olympus")
	_, err := config.LoadConfig("", "")
	require.Error(t, err)
	assert.Equal(t, exception.KindConfig, exception.KindOf(err))

	t.Setenv("PAYTEST_SYSTEM_TIMEZONE", "UTC")
	t.Setenv("PAYTEST_SCHEDULER_POOL_SIZE", "abc")
	_, err = config.LoadConfig("", "")
	require.Error(t, err)
	assert.True(t, exception.IsFatal(err))

	_, err = config.LoadConfig("", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, exception.IsFatal(err))
}

func TestApplyConnectionString(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.ApplyConnectionString("https://bank.example;tester;s3cret"))

	conn := cfg.Paytest.Connection
	assert.Equal(t, "https://bank.example", conn.Host)
	assert.Equal(t, "tester", conn.User)
	assert.Equal(t, "s3cret", conn.Password)
	assert.NoError(t, cfg.ValidateConnection())

	// empty parts keep configured values
	require.NoError(t, cfg.ApplyConnectionString(";other"))
	assert.Equal(t, "https://bank.example", cfg.Paytest.Connection.Host)
	assert.Equal(t, "other", cfg.Paytest.Connection.User)
}

func TestValidateConnection(t *testing.T) {
	cfg := config.NewConfig()
	err := cfg.ValidateConnection()
	require.Error(t, err)
	assert.True(t, exception.IsFatal(err))

	cfg.Paytest.Connection.Mode = config.ConnectionModeSimulate
	assert.NoError(t, cfg.ValidateConnection())
}

func TestValidate_ExportProtocols(t *testing.T) {
	cfg := config.NewConfig()
	assert.Equal(t, config.ExportProtocolHTTP, cfg.Paytest.Tracing.Protocol)
	assert.Equal(t, 10*time.Second, cfg.Paytest.Metrics.ExportInterval)

	cfg.Paytest.Tracing.Protocol = config.ExportProtocolGRPC
	assert.NoError(t, cfg.Validate())

	cfg.Paytest.Metrics.Protocol = "udp"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics.protocol")

	cfg.Paytest.Metrics.Protocol = config.ExportProtocolHTTP
	cfg.Paytest.Metrics.OTLPEndpoint = "collector:4318"
	cfg.Paytest.Metrics.ExportInterval = 0
	assert.True(t, exception.IsFatal(cfg.Validate()))
}
