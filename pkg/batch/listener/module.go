// Package listener aggregates the job execution listeners of the harness.
package listener

import (
	"go.uber.org/fx"

	"github.com/tigerroll/paytest/pkg/batch/listener/logging"
	"github.com/tigerroll/paytest/pkg/batch/listener/metrics"
	"github.com/tigerroll/paytest/pkg/batch/listener/notification"
)

// Module aggregates all listener modules. Each contributes to the "jobListeners" group
// consumed by the job factory.
var Module = fx.Options(
	logging.Module,
	metrics.Module,
	notification.Module,
)
