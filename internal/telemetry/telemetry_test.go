package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.Nil(t, tel.LoggerProvider())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	degraded, _ := tel.Degraded()
	assert.False(t, degraded)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Protocol = "carrier-pigeon"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_EnabledLocalCollector(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "127.0.0.1:1"

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, tel.Enabled())
	assert.NotNil(t, tel.LoggerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tel.Shutdown(ctx)
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.Nil(t, tel.LoggerProvider())
	assert.False(t, tel.Enabled())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NotPanics(t, func() { tel.SetLoggerProvider(noop.NewLoggerProvider()) })
}

func TestTelemetry_SetLoggerProvider(t *testing.T) {
	tel := NewTestTelemetry()
	lp := noop.NewLoggerProvider()

	tel.SetLoggerProvider(lp)
	assert.Equal(t, lp, tel.LoggerProvider())
}

func TestTestTelemetry_SpanRecording(t *testing.T) {
	tel := NewTestTelemetry()

	_, span := tel.Tracer("vectorctl/pipeline").Start(context.Background(), "pipeline.Provision")
	span.SetAttributes(
		attribute.String("index.name", "docs-test"),
		attribute.Int64("index.dimension", 1536),
		attribute.Bool("index.created", false),
	)
	span.End()

	tel.AssertSpanExists(t, "pipeline.Provision")
	tel.AssertSpanAttribute(t, "pipeline.Provision", "index.name", "docs-test")
	tel.AssertSpanAttribute(t, "pipeline.Provision", "index.dimension", int64(1536))
	tel.AssertSpanAttribute(t, "pipeline.Provision", "index.created", false)
	assert.Nil(t, tel.SpanByName("pipeline.Ingest"))
}

func TestTestTelemetry_SpanOrder(t *testing.T) {
	tel := NewTestTelemetry()
	tracer := tel.Tracer("test")

	for _, name := range []string{"pipeline.Provision", "pipeline.Ingest"} {
		_, span := tracer.Start(context.Background(), name)
		span.End()
	}

	assert.Equal(t, []string{"pipeline.Provision", "pipeline.Ingest"}, tel.SpanNames())
}

func TestTestTelemetry_Metrics(t *testing.T) {
	tel := NewTestTelemetry()
	ctx := context.Background()

	counter, err := tel.Meter("test").Int64Counter("vectorctl.chunks")
	require.NoError(t, err)
	counter.Add(ctx, 3)
	counter.Add(ctx, 2)

	m, ok := tel.FindMetric(t, "vectorctl.chunks")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)

	_, ok = tel.FindMetric(t, "missing")
	assert.False(t, ok)
}

func TestTelemetry_ShutdownWithProviders(t *testing.T) {
	tel := NewTestTelemetry()
	assert.NoError(t, tel.Shutdown(context.Background()))
}
