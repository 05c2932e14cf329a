package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/davidleathers/deterministic-dispatch/internal/metrics"
)

func TestNewRegistry(t *testing.T) {
	r, err := metrics.NewRegistry("test-meter")
	require.NoError(t, err)
	require.NotNil(t, r)

	// recording against the default (no-op) meter provider must not panic
	r.RecordEnqueue(1)
	r.RecordDispatch(3, 0)
	r.RecordAutoDispatchSession(3)
}

func TestRegistry_NilReceiverIsNoop(t *testing.T) {
	var r *metrics.Registry

	assert.NotPanics(t, func() {
		r.RecordEnqueue(1)
		r.RecordDispatch(2, 0)
		r.RecordAutoDispatchSession(2)
	})
}

func TestRegistry_QueueDepthTracksDrains(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	r, err := metrics.NewRegistry("queue-depth-test")
	require.NoError(t, err)

	r.RecordEnqueue(2)
	r.RecordEnqueue(3)
	assert.Equal(t, int64(3), collectQueueDepth(t, reader))

	// a drain that leaves one message pending must pull the gauge down
	r.RecordDispatch(2, 1)
	assert.Equal(t, int64(1), collectQueueDepth(t, reader))

	r.RecordDispatch(1, 0)
	assert.Equal(t, int64(0), collectQueueDepth(t, reader))
}

func collectQueueDepth(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "dispatch.queue_depth" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok, "queue depth should be an int64 gauge")
			require.Len(t, gauge.DataPoints, 1)
			return gauge.DataPoints[0].Value
		}
	}
	t.Fatal("dispatch.queue_depth was not collected")
	return 0
}
