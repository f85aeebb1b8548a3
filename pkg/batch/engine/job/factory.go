package job

import (
	"context"

	"go.uber.org/fx"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/engine/pool"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// Factory turns plan entries into pool tasks.
type Factory struct {
	deps Dependencies
}

// NewFactory creates a Factory sharing deps between all jobs it creates.
func NewFactory(deps Dependencies) *Factory {
	return &Factory{deps: deps.withDefaults()}
}

// NewJob creates the job of one plan entry.
func (f *Factory) NewJob(entry model.PlanEntry) *PaymentTest {
	return New(entry, f.deps)
}

// NewTask creates the job of one plan entry and wraps it as a pool task.
func (f *Factory) NewTask(entry model.PlanEntry) pool.Task {
	j := f.NewJob(entry)
	return func(ctx context.Context) {
		// listeners already saw the error through the job summary
		if _, err := j.Run(ctx); err != nil {
			logger.Debugf("Test job for %s ended with error: %v", entry.SourceFile, err)
		}
	}
}

// FactoryParams are the Fx dependencies of the Factory.
type FactoryParams struct {
	fx.In

	Config    *config.Config
	Channel   port.CallChannel
	Registry  port.SessionRegistry
	Loader    port.RecordLoader
	Results   port.ResultLog
	Failures  port.FailureLog
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	// Listeners are collected from the "jobListeners" group.
	Listeners []port.JobExecutionListener `group:"jobListeners"`
}

// NewFactoryFromParams is the Fx constructor of the Factory.
func NewFactoryFromParams(p FactoryParams) (*Factory, error) {
	loc, err := p.Config.Location()
	if err != nil {
		return nil, err
	}
	return NewFactory(Dependencies{
		Channel:   p.Channel,
		Registry:  p.Registry,
		Loader:    p.Loader,
		Results:   p.Results,
		Failures:  p.Failures,
		Recorder:  p.Recorder,
		Tracer:    p.Tracer,
		Listeners: p.Listeners,
		Formatter: Formatter{
			Location:         loc,
			DecimalSeparator: p.Config.Paytest.Results.DecimalSeparator,
		},
		DefaultPortionSize: p.Config.Paytest.Job.DefaultPortionSize,
	}), nil
}

// Module provides the job Factory.
var Module = fx.Options(
	fx.Provide(NewFactoryFromParams),
)
