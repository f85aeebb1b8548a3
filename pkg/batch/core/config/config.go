// Package config provides the configuration structures of the paytest harness
// and the loader that fills them from defaults, a YAML file and environment variables.
package config

import (
	"time"
)

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// Connection modes and OTLP export protocols.
const (
	// ConnectionModeHTTP sends portions to the remote transaction service over HTTP.
	ConnectionModeHTTP = "http"
	// ConnectionModeSimulate answers portions locally, for dry runs of a test plan.
	ConnectionModeSimulate = "simulate"

	// ExportProtocolHTTP sends OTLP data over HTTP/protobuf.
	ExportProtocolHTTP = "http"
	// ExportProtocolGRPC sends OTLP data over gRPC.
	ExportProtocolGRPC = "grpc"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is used to interpret plan date-times and to format result timestamps.
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// SchedulerConfig holds the worker pool and shutdown settings.
type SchedulerConfig struct {
	// PoolSize bounds the number of test jobs running at the same time.
	PoolSize int `yaml:"pool_size"`
	// AsapGrace is added to "now" for ASAP entries so the whole plan is parsed before the first one fires.
	AsapGrace time.Duration `yaml:"asap_grace"`
	// DrainTimeout bounds each of the two shutdown waits (cooperative, then forced).
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// JobConfig holds per-job defaults.
type JobConfig struct {
	// DefaultPortionSize is used when a plan entry's portion size is missing, unparsable or not positive.
	DefaultPortionSize int `yaml:"default_portion_size"`
}

// ResultsConfig holds the settings of the result and failure log files.
type ResultsConfig struct {
	// ResultLogName is the base file name of the result log, created next to the plan file.
	ResultLogName string `yaml:"result_log_name"`
	// FailureLogName is the base file name of the failed payment log.
	FailureLogName string `yaml:"failure_log_name"`
	// QueueCapacity is the number of rows buffered per log stream.
	QueueCapacity int `yaml:"queue_capacity"`
	// OfferTimeout bounds how long a job waits to enqueue a row before it is dropped.
	OfferTimeout time.Duration `yaml:"offer_timeout"`
	// DecimalSeparator is used for duration and throughput columns.
	DecimalSeparator string `yaml:"decimal_separator"`
}

// SimulateConfig tunes the local simulator used in "simulate" connection mode.
type SimulateConfig struct {
	// Latency is the simulated duration of one portion call.
	Latency time.Duration `yaml:"latency"`
	// FailureRate is the fraction of payments answered with a non-zero error code.
	FailureRate float64 `yaml:"failure_rate"`
	// PendingRate is the fraction of payments answered with the PENDING state.
	PendingRate float64 `yaml:"pending_rate"`
	// CallErrorRate is the fraction of portion calls that fail as a whole.
	CallErrorRate float64 `yaml:"call_error_rate"`
}

// ConnectionConfig holds the remote transaction service parameters.
// Host, User and Password are usually supplied by the "host;user;password" command-line argument.
type ConnectionConfig struct {
	Host     string         `yaml:"host"`
	User     string         `yaml:"user"`
	Password string         `yaml:"password"`
	Timeout  time.Duration  `yaml:"timeout"`
	Mode     string         `yaml:"mode"`
	Simulate SimulateConfig `yaml:"simulate"`
}

// MetricsConfig holds Prometheus exposition and OTLP metric export settings.
type MetricsConfig struct {
	// ListenAddr enables the /metrics endpoint when non-empty (e.g. ":9102").
	ListenAddr string `yaml:"listen_addr"`
	// OTLPEndpoint enables OTLP metric export when non-empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is the OTLP transport, "http" or "grpc".
	Protocol string `yaml:"protocol"`
	// ExportInterval is the period of the OTLP metric reader.
	ExportInterval time.Duration `yaml:"export_interval"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// OTLPEndpoint enables OTLP span export when non-empty (e.g. "localhost:4318").
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is the OTLP transport, "http" or "grpc".
	Protocol string `yaml:"protocol"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
}

// PaytestConfig holds all configuration under the "paytest" top-level key.
type PaytestConfig struct {
	System     SystemConfig     `yaml:"system"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Job        JobConfig        `yaml:"job"`
	Results    ResultsConfig    `yaml:"results"`
	Connection ConnectionConfig `yaml:"connection"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Paytest PaytestConfig `yaml:"paytest"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Paytest: PaytestConfig{
			System: SystemConfig{
				Timezone: "Europe/Riga",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Scheduler: SchedulerConfig{
				PoolSize:     20,
				AsapGrace:    2 * time.Second,
				DrainTimeout: 60 * time.Second,
			},
			Job: JobConfig{
				DefaultPortionSize: 50,
			},
			Results: ResultsConfig{
				ResultLogName:    "test-results",
				FailureLogName:   "failed-payments",
				QueueCapacity:    100,
				OfferTimeout:     3 * time.Second,
				DecimalSeparator: ",",
			},
			Connection: ConnectionConfig{
				Timeout: 5 * time.Minute,
				Mode:    ConnectionModeHTTP,
				Simulate: SimulateConfig{
					Latency: 50 * time.Millisecond,
				},
			},
			Metrics: MetricsConfig{
				Protocol:       ExportProtocolHTTP,
				ExportInterval: 10 * time.Second,
			},
			Tracing: TracingConfig{
				Protocol:    ExportProtocolHTTP,
				ServiceName: "paytest",
			},
		},
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Paytest.System.Timezone)
}
