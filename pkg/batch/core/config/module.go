package config

import "go.uber.org/fx"

// Module provides the configuration sections to Fx so components can depend on only what they use.
// The *Config itself is supplied by the application.
var Module = fx.Options(
	fx.Provide(
		func(cfg *Config) *SchedulerConfig { return &cfg.Paytest.Scheduler },
		func(cfg *Config) *ResultsConfig { return &cfg.Paytest.Results },
		func(cfg *Config) *ConnectionConfig { return &cfg.Paytest.Connection },
		func(cfg *Config) *MetricsConfig { return &cfg.Paytest.Metrics },
		func(cfg *Config) *TracingConfig { return &cfg.Paytest.Tracing },
	),
)
