package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/estatehub/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewPassMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewPassMetrics(nil)
	require.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestPassMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.PassMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordRun(ctx, "daily", "cron", "Completed", time.Second, time.Now())
		m.RecordItem(ctx, "daily", "lease", true)
		m.RecordRevenueStored(ctx, 2)
	})
}

func TestPassMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewPassMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRun(ctx, "daily", "manual", "PartiallyFailed", 2*time.Second, time.Now())
	m.RecordItem(ctx, "daily", "invoice", true)
	m.RecordItem(ctx, "daily", "invoice", false)
	m.RecordRevenueStored(ctx, 5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			names[md.Name] = true
			if md.Name == "revenue_records_stored_total" {
				sum, ok := md.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				require.Len(t, sum.DataPoints, 1)
				assert.Equal(t, int64(5), sum.DataPoints[0].Value)
			}
		}
	}
	assert.True(t, names["reconciliation_runs_total"])
	assert.True(t, names["reconciliation_items_total"])
	assert.True(t, names["reconciliation_run_duration_seconds"])
	assert.True(t, names["reconciliation_last_success_timestamp"])
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())

	_, err = telemetry.NewPassMetrics(mp.Meter("estatehub"))
	assert.NoError(t, err)
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewCounter_Noop(t *testing.T) {
	c, err := telemetry.NewCounter(noop.NewMeterProvider().Meter("test"), "x_total", "x", "1")
	require.NoError(t, err)
	c.Inc(context.Background())
}
