package observability

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/janhq/chat-api/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), &config.Config{EnableTracing: true}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupInstallsMeterProvider(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(metricnoop.NewMeterProvider()) })

	cfg := &config.Config{
		ServiceName:       "chat-api",
		EnableOTelMetrics: true,
		OTLPEndpoint:      "127.0.0.1:1",
		MetricInterval:    time.Hour,
	}
	shutdown, err := Setup(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	_, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, ok)

	// Nothing is listening; the flush on shutdown may fail and is bounded by the context.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestMetricIntervalDefault(t *testing.T) {
	assert.Equal(t, 30*time.Second, metricInterval(0))
	assert.Equal(t, time.Minute, metricInterval(time.Minute))
}
