package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/listener/metrics"
)

type jobRecorder struct {
	coremetrics.MetricRecorder
	started []string
	ended   []model.JobSummary
}

func (r *jobRecorder) RecordJobStart(ctx context.Context, procedure string) {
	r.started = append(r.started, procedure)
}

func (r *jobRecorder) RecordJobEnd(ctx context.Context, summary model.JobSummary) {
	r.ended = append(r.ended, summary)
}

func TestMetricsJobListener(t *testing.T) {
	rec := &jobRecorder{MetricRecorder: coremetrics.NewNoOpMetricRecorder()}
	l := metrics.NewMetricsJobListener(rec)
	s := model.JobSummary{JobID: "j-1", Procedure: "pay_sepa"}

	l.BeforeJob(context.Background(), s)
	l.AfterJob(context.Background(), s)

	assert.Equal(t, []string{"pay_sepa"}, rec.started)
	assert.Equal(t, []model.JobSummary{s}, rec.ended)
}
