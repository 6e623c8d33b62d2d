package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/kpiplatform/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newReaderProvider(t *testing.T) (*telemetry.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	require.FailNow(t, "metric not collected", name)
	return metricdata.Metrics{}
}

// sumBy totals an int64 counter keyed by the value of key
func sumBy(t *testing.T, rm metricdata.ResourceMetrics, name string, key attribute.Key) map[string]int64 {
	t.Helper()
	sum, ok := findMetric(t, rm, name).Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		label := ""
		if v, ok := dp.Attributes.Value(key); ok {
			label = v.Emit()
		}
		out[label] += dp.Value
	}
	return out
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		CollectorEndpoint: "localhost:4317",
		ExportInterval:    time.Minute,
		ServiceName:       "kpi-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"), "falls back to the global provider")
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestMeterProvider_NilSafe(t *testing.T) {
	var mp *telemetry.MeterProvider
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
}

func TestInstruments(t *testing.T) {
	ctx := context.Background()
	mp, reader := newReaderProvider(t)
	require.True(t, mp.IsEnabled())
	meter := mp.Meter("test")

	counter, err := telemetry.NewCounter(meter, "things_total", "Things", "{thing}")
	require.NoError(t, err)
	counter.Inc(ctx, telemetry.AttrOutcome.String("ok"))
	counter.Add(ctx, 4, telemetry.AttrOutcome.String("ok"))
	counter.Inc(ctx, telemetry.AttrOutcome.String("failed"))

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "wait_seconds",
		Unit:       "s",
		Boundaries: []float64{1, 10},
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 2*time.Second)
	hist.Record(ctx, 20)

	gauge, err := telemetry.NewGauge(meter, "level", "Level", "1")
	require.NoError(t, err)
	gauge.Record(ctx, 3)
	gauge.Record(ctx, 7)

	rm := collect(t, reader)
	assert.Equal(t, map[string]int64{"ok": 5, "failed": 1},
		sumBy(t, rm, "things_total", telemetry.AttrOutcome))

	h, ok := findMetric(t, rm, "wait_seconds").Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(2), h.DataPoints[0].Count)
	assert.Equal(t, []float64{1, 10}, h.DataPoints[0].Bounds)
	assert.Equal(t, []uint64{0, 1, 1}, h.DataPoints[0].BucketCounts)

	g, ok := findMetric(t, rm, "level").Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(7), g.DataPoints[0].Value)
}

func TestBusinessMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("nil meter is rejected", func(t *testing.T) {
		_, err := telemetry.NewBusinessMetrics(nil)
		assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	})

	t.Run("nil metrics record nothing", func(t *testing.T) {
		var bm *telemetry.BusinessMetrics
		assert.NotPanics(t, func() {
			bm.RecordUpload(ctx, "pnl", telemetry.UploadStored)
			bm.RecordUploadRows(ctx, "pnl", 10)
			bm.RecordBonusFinalized(ctx, telemetry.FinalizeManual, false)
			bm.RecordMonthClosed(ctx)
			bm.RecordJobRun(ctx, "close_month", "SUCCESS", time.Second)
		})
	})

	t.Run("events are counted", func(t *testing.T) {
		mp, reader := newReaderProvider(t)
		bm, err := telemetry.NewBusinessMetrics(mp.Meter("kpi.business"))
		require.NoError(t, err)

		bm.RecordUpload(ctx, "pnl", telemetry.UploadStored)
		bm.RecordUpload(ctx, "osv", telemetry.UploadRejected)
		bm.RecordUpload(ctx, "pnl", telemetry.UploadStored)
		bm.RecordUploadRows(ctx, "pnl", 12)
		bm.RecordUploadRows(ctx, "osv", 0)
		bm.RecordBonusFinalized(ctx, telemetry.FinalizeMonthClose, true)
		bm.RecordBonusFinalized(ctx, telemetry.FinalizeApproval, false)
		bm.RecordMonthClosed(ctx)
		bm.RecordJobRun(ctx, "close_month", "FAILED", 3*time.Second)

		rm := collect(t, reader)
		assert.Equal(t, map[string]int64{"stored": 2, "rejected": 1},
			sumBy(t, rm, "kpi_upload_total", telemetry.AttrOutcome))
		assert.Equal(t, map[string]int64{"pnl": 12},
			sumBy(t, rm, "kpi_upload_rows_total", telemetry.AttrDocumentKind), "zero rows are skipped")
		assert.Equal(t, map[string]int64{"true": 1, "false": 1},
			sumBy(t, rm, "kpi_bonus_finalized_total", telemetry.AttrForced))
		assert.Equal(t, map[string]int64{"": 1},
			sumBy(t, rm, "kpi_month_closed_total", telemetry.AttrTrigger))
		assert.Equal(t, map[string]int64{"FAILED": 1},
			sumBy(t, rm, "kpi_job_run_total", telemetry.AttrJobStatus))
	})
}
