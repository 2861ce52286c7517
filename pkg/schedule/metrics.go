package schedule

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Instrumentation wraps the otel instruments a Scheduler reports against.
// These packages (go.opentelemetry.io/otel/metric, /sdk, /sdk/metric) are
// present in the teacher's go.mod only as unused indirect dependencies
// (nothing in nornicdb calls them); this is their first real use, wiring
// dispatch counts, failure counts, skip counts, and per-operation latency.
type Instrumentation struct {
	dispatched metric.Int64Counter
	failedCnt  metric.Int64Counter
	skippedCnt metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewInstrumentation builds an Instrumentation from a meter, e.g.
// otel.Meter("depsgraph").
func NewInstrumentation(meter metric.Meter) (*Instrumentation, error) {
	dispatched, err := meter.Int64Counter("depsgraph.schedule.dispatched",
		metric.WithDescription("operation nodes dispatched to a worker"))
	if err != nil {
		return nil, err
	}
	failedCnt, err := meter.Int64Counter("depsgraph.schedule.failed",
		metric.WithDescription("operation nodes whose callback returned an error"))
	if err != nil {
		return nil, err
	}
	skippedCnt, err := meter.Int64Counter("depsgraph.schedule.skipped",
		metric.WithDescription("operation nodes skipped (clean, cancelled, or downgraded)"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("depsgraph.schedule.latency_seconds",
		metric.WithDescription("operation callback duration"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &Instrumentation{dispatched: dispatched, failedCnt: failedCnt, skippedCnt: skippedCnt, latency: latency}, nil
}

func (m *Instrumentation) recordDispatch(ctx context.Context, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.dispatched.Add(ctx, 1)
	m.latency.Record(ctx, dur.Seconds())
	if err != nil {
		m.failedCnt.Add(ctx, 1)
	}
}

func (m *Instrumentation) recordSkip(ctx context.Context) {
	if m == nil {
		return
	}
	m.skippedCnt.Add(ctx, 1)
}
