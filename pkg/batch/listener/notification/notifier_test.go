package notification_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	"github.com/tigerroll/paytest/pkg/batch/listener/notification"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

func summary() model.JobSummary {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return model.JobSummary{
		JobID:     "j-1",
		FileName:  "payments.csv",
		Procedure: "pay_sepa",
		Started:   start,
		Finished:  start.Add(1500 * time.Millisecond),
		Counters:  model.Counters{Portions: 2, Sent: 4, Success: 3, Pending: 1},
	}
}

func TestFormatSummary(t *testing.T) {
	s := summary()
	assert.Equal(t,
		"Job Notification: Test 'payments.csv' (ID: j-1) on pay_sepa finished. Duration: 1.5s, Portions: 2, Sent: 4, OK: 3, PENDING: 1, FAILED: 0",
		notification.FormatSummary(s))

	s.Cancelled = true
	assert.Contains(t, notification.FormatSummary(s), "pay_sepa interrupted.")

	s.Err = exception.ErrNoContract
	assert.Contains(t, notification.FormatSummary(s), "aborted (")
}

func TestNotificationListener_LogsLevelByOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(nil)

	l := notification.NewNotificationListener(notification.NewLoggingNotifier())
	ctx := context.Background()

	l.BeforeJob(ctx, summary())
	assert.Empty(t, buf.String())

	l.AfterJob(ctx, summary())
	assert.Contains(t, buf.String(), "[INFO] Job Notification")

	buf.Reset()
	failed := summary()
	failed.Counters.Failed = 1
	l.AfterJob(ctx, failed)
	assert.Contains(t, buf.String(), "[WARN] Job Notification")
}
