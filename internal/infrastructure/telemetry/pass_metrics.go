package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("NewPassMetrics: meter cannot be nil")

// PassMetrics records reconciliation pass activity. A nil *PassMetrics is
// valid and records nothing.
type PassMetrics struct {
	runsTotal     *Counter
	itemsTotal    *Counter
	revenueStored *Counter
	duration      *Histogram
	lastSuccess   *Gauge
}

// NewPassMetrics registers the pass instruments on meter.
func NewPassMetrics(meter metric.Meter) (*PassMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	runs, err := NewCounter(meter, "reconciliation_runs_total", "Reconciliation passes by kind and final state", "{run}")
	if err != nil {
		return nil, err
	}
	items, err := NewCounter(meter, "reconciliation_items_total", "Items re-derived by reconciliation passes", "{item}")
	if err != nil {
		return nil, err
	}
	stored, err := NewCounter(meter, "revenue_records_stored_total", "Monthly revenue records written", "{record}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "reconciliation_run_duration_seconds",
		Description: "Wall time of reconciliation passes",
		Unit:        "s",
		Boundaries:  PassDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	last, err := NewGauge(meter, "reconciliation_last_success_timestamp", "Unix time of the last pass that finished", "s")
	if err != nil {
		return nil, err
	}

	return &PassMetrics{
		runsTotal:     runs,
		itemsTotal:    items,
		revenueStored: stored,
		duration:      duration,
		lastSuccess:   last,
	}, nil
}

// RecordRun records a finished pass.
func (m *PassMetrics) RecordRun(ctx context.Context, kind, trigger, state string, d time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.runsTotal.Inc(ctx, AttrPassKind.String(kind), AttrTrigger.String(trigger), AttrPassState.String(state))
	m.duration.RecordDuration(ctx, d, AttrPassKind.String(kind))
	if state != "Failed" {
		m.lastSuccess.Record(ctx, finishedAt.Unix(), AttrPassKind.String(kind))
	}
}

// RecordItem counts one re-derived item.
func (m *PassMetrics) RecordItem(ctx context.Context, kind, entity string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.itemsTotal.Inc(ctx, AttrPassKind.String(kind), AttrEntity.String(entity), AttrOutcome.String(outcome))
}

// RecordRevenueStored counts n stored revenue records.
func (m *PassMetrics) RecordRevenueStored(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.revenueStored.Add(ctx, int64(n))
}
