package metrics

import (
	"context"

	port "github.com/tigerroll/paytest/pkg/batch/core/application/port"
	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	"github.com/tigerroll/paytest/pkg/batch/core/metrics"
)

// MetricsJobListener records job start and end on the MetricRecorder.
type MetricsJobListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsJobListener(recorder metrics.MetricRecorder) port.JobExecutionListener {
	return &MetricsJobListener{recorder: recorder}
}

func (l *MetricsJobListener) BeforeJob(ctx context.Context, summary model.JobSummary) {
	l.recorder.RecordJobStart(ctx, summary.Procedure)
}

func (l *MetricsJobListener) AfterJob(ctx context.Context, summary model.JobSummary) {
	l.recorder.RecordJobEnd(ctx, summary)
}

var _ port.JobExecutionListener = (*MetricsJobListener)(nil)
