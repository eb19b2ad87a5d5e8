package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/gitscm/pkg/observability"
)

func TestInitNoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	providers, err := observability.InitWithWriter(observability.DefaultConfig(), &buf)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()

	providers.Logger.Info("hello")
	assert.Contains(t, buf.String(), "service=gitscm")
	assert.Contains(t, buf.String(), "mode=cli")

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestTracingHandlerAddsSpanContext(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Mode = observability.ModeLibrary

	var buf bytes.Buffer

	logger := observability.NewLogger(cfg, &buf)

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.WithGroup("blame").InfoContext(ctx, "traced", "file", "a.go")
	span.End()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, span.SpanContext().TraceID().String(), record["blame"].(map[string]any)["trace_id"])
	assert.Equal(t, "gitscm", record["service"])
	assert.Equal(t, "library", record["mode"])
}

func TestTracingHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	var buf bytes.Buffer

	logger := observability.NewLogger(cfg, &buf)
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestSCMMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	metrics, err := observability.NewSCMMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordOperation(ctx, "blame", observability.StatusOK, time.Second)
	metrics.RecordOperation(ctx, "changed_files", observability.StatusError, time.Millisecond)
	metrics.RecordBlame(ctx, 3, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["gitscm.operations.total"])
	assert.Equal(t, int64(1), sums["gitscm.errors.total"])
	assert.Equal(t, int64(3), sums["gitscm.blame.files.total"])
	assert.Equal(t, int64(1), sums["gitscm.blame.missing.total"])
}

func TestSCMMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var metrics *observability.SCMMetrics

	assert.NotPanics(t, func() {
		metrics.RecordOperation(context.Background(), "blame", observability.StatusOK, time.Second)
		metrics.RecordBlame(context.Background(), 1, 0)
	})

	noop, err := observability.NewSCMMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, noop)
}
