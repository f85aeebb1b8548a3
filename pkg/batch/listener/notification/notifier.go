package notification

import (
	"context"
	"fmt"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// LoggingNotifier is a Notifier that only logs a summary line per finished job.
type LoggingNotifier struct{}

// NewLoggingNotifier creates a new instance of LoggingNotifier.
func NewLoggingNotifier() port.Notifier {
	logger.Debugf("Notification: Initializing logging notifier.")
	return &LoggingNotifier{}
}

// NotifyJobCompletion logs the outcome of a job. Aborted, interrupted and partly failed jobs are warnings.
func (n *LoggingNotifier) NotifyJobCompletion(ctx context.Context, summary model.JobSummary) {
	message := FormatSummary(summary)
	if summary.Err != nil || summary.Cancelled || summary.Counters.Failed > 0 {
		logger.Warnf("%s", message)
		return
	}
	logger.Infof("%s", message)
}

// FormatSummary renders the one-line notification text of a job.
func FormatSummary(summary model.JobSummary) string {
	c := summary.Counters
	status := "finished"
	switch {
	case summary.Err != nil:
		status = fmt.Sprintf("aborted (%v)", summary.Err)
	case summary.Cancelled:
		status = "interrupted"
	}
	return fmt.Sprintf(
		"Job Notification: Test '%s' (ID: %s) on %s %s. Duration: %s, Portions: %d, Sent: %d, OK: %d, PENDING: %d, FAILED: %d",
		summary.FileName,
		summary.JobID,
		summary.Procedure,
		status,
		summary.Finished.Sub(summary.Started),
		c.Portions, c.Sent, c.Success, c.Pending, c.Failed,
	)
}

var _ port.Notifier = (*LoggingNotifier)(nil)

// NotificationListener is a JobExecutionListener that hands every finished job to a Notifier.
type NotificationListener struct {
	notifier port.Notifier
}

// NewNotificationListener creates a new instance of NotificationListener.
func NewNotificationListener(notifier port.Notifier) port.JobExecutionListener {
	return &NotificationListener{notifier: notifier}
}

// BeforeJob exists to satisfy JobExecutionListener requirements but does nothing.
func (l *NotificationListener) BeforeJob(ctx context.Context, summary model.JobSummary) {
}

// AfterJob calls the Notifier's NotifyJobCompletion.
func (l *NotificationListener) AfterJob(ctx context.Context, summary model.JobSummary) {
	l.notifier.NotifyJobCompletion(ctx, summary)
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)
