package notification

import "go.uber.org/fx"

// Module provides notification-related components.
var Module = fx.Options(
	// 1. Provides a concrete implementation of Notifier.
	fx.Provide(NewLoggingNotifier),

	// 2. Contributes the listener that forwards finished jobs to the Notifier.
	fx.Provide(fx.Annotate(NewNotificationListener, fx.ResultTags(`group:"jobListeners"`))),
)
