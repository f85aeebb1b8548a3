package main

import (
	"path/filepath"

	"go.uber.org/fx"

	"github.com/tigerroll/paytest/pkg/batch/component/reader"
	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/engine/job"
	"github.com/tigerroll/paytest/pkg/batch/engine/pool"
	"github.com/tigerroll/paytest/pkg/batch/engine/scheduler"
	infraMetrics "github.com/tigerroll/paytest/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/paytest/pkg/batch/infrastructure/remote"
	"github.com/tigerroll/paytest/pkg/batch/infrastructure/resultlog"
	"github.com/tigerroll/paytest/pkg/batch/listener"
	logger "github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// GetApplicationOptions builds the uber-fx options of one run.
// The result and failure logs are created next to the test plan file.
func GetApplicationOptions(cfg *config.Config, planPath string) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		cfg,
		resultlog.Dir(filepath.Dir(planPath)),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, metrics.Module)
	options = append(options, infraMetrics.Module)
	options = append(options, resultlog.Module)
	options = append(options, reader.Module)
	options = append(options, remote.Module)
	options = append(options, pool.Module)
	options = append(options, listener.Module)
	options = append(options, job.Module)
	options = append(options, scheduler.Module)

	return options
}
