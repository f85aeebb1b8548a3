package logging

import "go.uber.org/fx"

// Module contributes the logging job listener to the "jobListeners" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingJobListener, fx.ResultTags(`group:"jobListeners"`))),
)
