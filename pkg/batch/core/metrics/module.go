package metrics

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides the no-op metric recorder and tracer.
// The infrastructure layer replaces them with real implementations through fx.Decorate.
var Module = fx.Options(
	fx.Provide(NewNoOpMetricRecorder),
	fx.Provide(NewNoOpTracer),
)
