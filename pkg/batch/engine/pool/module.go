package pool

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/paytest/pkg/batch/core/config"
)

// NewFromConfig creates the pool sized by scheduler.pool_size.
func NewFromConfig(cfg *config.SchedulerConfig) *ScheduledPool {
	return New(cfg.PoolSize)
}

// Module provides the ScheduledPool.
var Module = fx.Options(
	fx.Provide(NewFromConfig),
)
