package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/janhq/chat-api/internal/infrastructure/observability"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestInstrumentJobRecordsThroughMeterProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := observability.NewMeterProvider(resource.Empty(), reader)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	inst, err := NewInstrumenter(tracenoop.NewTracerProvider().Tracer("test"), mp.Meter("test"), "chat_api")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, inst.InstrumentJob(ctx, "reconcile_orphans", func(context.Context) error { return nil }))
	require.Error(t, inst.InstrumentJob(ctx, "reconcile_orphans", func(context.Context) error { return errors.New("boom") }))

	got := collect(t, reader)

	total, ok := got["jan_chat_api_jobs_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var sum int64
	for _, dp := range total.DataPoints {
		sum += dp.Value
	}
	assert.Equal(t, int64(2), sum)
	assert.Len(t, total.DataPoints, 2, "success and error are separate series")

	duration, ok := got["jan_chat_api_job_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, duration.DataPoints, 2)

	active, ok := got["jan_chat_api_jobs_active"].(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}
}
