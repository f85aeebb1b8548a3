package scheduler

import (
	"go.uber.org/fx"

	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/engine/job"
	"github.com/tigerroll/paytest/pkg/batch/engine/pool"
)

// NewFromConfig is the Fx constructor of the Scheduler.
func NewFromConfig(cfg *config.Config, p *pool.ScheduledPool, factory *job.Factory, recorder metrics.MetricRecorder) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return New(p, factory, loc, cfg.Paytest.Scheduler.AsapGrace, WithRecorder(recorder)), nil
}

// Module provides the Scheduler.
var Module = fx.Options(
	fx.Provide(NewFromConfig),
)
