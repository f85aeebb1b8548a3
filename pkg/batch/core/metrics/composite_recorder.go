package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
)

// CompositeRecorder fans every call out to a list of recorders, in order.
type CompositeRecorder struct {
	recorders []MetricRecorder
}

// NewCompositeRecorder returns a recorder that forwards to all non-nil recorders.
func NewCompositeRecorder(recorders ...MetricRecorder) *CompositeRecorder {
	c := &CompositeRecorder{}
	for _, r := range recorders {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
	return c
}

func (c *CompositeRecorder) RecordJobStart(ctx context.Context, procedure string) {
	for _, r := range c.recorders {
		r.RecordJobStart(ctx, procedure)
	}
}

func (c *CompositeRecorder) RecordJobEnd(ctx context.Context, summary model.JobSummary) {
	for _, r := range c.recorders {
		r.RecordJobEnd(ctx, summary)
	}
}

func (c *CompositeRecorder) RecordPortion(ctx context.Context, procedure string, duration time.Duration, err error) {
	for _, r := range c.recorders {
		r.RecordPortion(ctx, procedure, duration, err)
	}
}

func (c *CompositeRecorder) RecordOutcome(ctx context.Context, procedure string, class model.OutcomeClass) {
	for _, r := range c.recorders {
		r.RecordOutcome(ctx, procedure, class)
	}
}

func (c *CompositeRecorder) RecordEntrySkipped(ctx context.Context, reason string) {
	for _, r := range c.recorders {
		r.RecordEntrySkipped(ctx, reason)
	}
}

func (c *CompositeRecorder) RecordRowDropped(ctx context.Context, stream string) {
	for _, r := range c.recorders {
		r.RecordRowDropped(ctx, stream)
	}
}

func (c *CompositeRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range c.recorders {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

var _ MetricRecorder = (*CompositeRecorder)(nil)
