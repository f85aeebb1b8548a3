package resultlog

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// Dir is the directory the log files are created in (the plan file's directory).
type Dir string

// Set holds the result log and the failed payment log of one run.
type Set struct {
	Result  *AsyncLogger
	Failure *AsyncLogger
}

// OpenSet opens both logs in dir. If the second one fails, the first one is closed again.
func OpenSet(dir string, cfg *config.ResultsConfig, recorder metrics.MetricRecorder) (*Set, error) {
	result, err := Open(filepath.Join(dir, cfg.ResultLogName), model.ResultColumns, Options{
		Stream:       "result",
		Capacity:     cfg.QueueCapacity,
		OfferTimeout: cfg.OfferTimeout,
		Recorder:     recorder,
	})
	if err != nil {
		return nil, err
	}
	failure, err := Open(filepath.Join(dir, cfg.FailureLogName), model.FailureColumns, Options{
		Stream:       "failure",
		Capacity:     cfg.QueueCapacity,
		OfferTimeout: cfg.OfferTimeout,
		Recorder:     recorder,
	})
	if err != nil {
		_ = result.Close()
		return nil, err
	}
	return &Set{Result: result, Failure: failure}, nil
}

// Drain waits for both logs to write the rows they have accepted. It reports whether both finished before ctx.
func (s *Set) Drain(ctx context.Context) bool {
	result := s.Result.Drain(ctx)
	failure := s.Failure.Drain(ctx)
	return result && failure
}

// Close closes both logs and aggregates their errors.
func (s *Set) Close() error {
	var result *multierror.Error
	if err := s.Result.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.Failure.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// CloseContext closes both logs, abandoning writers that are still busy when ctx is done.
func (s *Set) CloseContext(ctx context.Context) error {
	var result *multierror.Error
	if err := s.Result.CloseContext(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.Failure.CloseContext(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// NewSet is the Fx constructor of Set. When the application stops, both logs are given
// the stop deadline to write what they accepted and to close.
func NewSet(lc fx.Lifecycle, dir Dir, cfg *config.ResultsConfig, recorder metrics.MetricRecorder) (*Set, error) {
	set, err := OpenSet(string(dir), cfg, recorder)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if !set.Drain(ctx) {
				logger.Warnf("Result logs were closed before all queued rows were written.")
			}
			return set.CloseContext(ctx)
		},
	})
	return set, nil
}

// Module provides the log Set and exposes its two logs as ports.
// The application must supply a Dir.
var Module = fx.Options(
	fx.Provide(
		NewSet,
		func(s *Set) port.ResultLog { return s.Result },
		func(s *Set) port.FailureLog { return s.Failure },
	),
)
