package logging

import (
	"context"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

type LoggingJobListener struct{}

func NewLoggingJobListener() port.JobExecutionListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, summary model.JobSummary) {
	logger.Debugf("JobExecutionListener: BeforeJob - File: %s, Procedure: %s, PortionSize: %d, ID: %s",
		summary.FileName, summary.Procedure, summary.PortionSize, summary.JobID)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, summary model.JobSummary) {
	logger.Debugf("JobExecutionListener: AfterJob - File: %s, ID: %s, Portions: %d, Sent: %d, Cancelled: %t, Err: %v",
		summary.FileName, summary.JobID, summary.Counters.Portions, summary.Counters.Sent, summary.Cancelled, summary.Err)
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)
