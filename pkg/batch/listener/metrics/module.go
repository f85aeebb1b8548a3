package metrics

import "go.uber.org/fx"

// Module contributes the metrics job listener to the "jobListeners" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewMetricsJobListener, fx.ResultTags(`group:"jobListeners"`))),
)
