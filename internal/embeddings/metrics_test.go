package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestInstrument_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics := NewMetrics(mp.Meter(instrumentationName), nil)

	calls := 0
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("rate limited")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, 0}
		}
		return out, nil
	})
	base, err := embeddings.NewEmbedder(client)
	require.NoError(t, err)

	logger := logging.NewTestLogger()
	p := Instrument(Wrap(base, 2), "test-model", metrics, logger.Logger)
	ctx := context.Background()

	_, err = p.EmbedDocuments(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	_, err = p.EmbedQuery(ctx, "q")
	require.NoError(t, err)
	_, err = p.EmbedQuery(ctx, "q2")
	require.Error(t, err)

	got := collect(t, reader)

	hist, ok := got["vectorctl.embedding.generation_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(3), total)

	batch, ok := got["vectorctl.embedding.batch_size"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	var sum int64
	for _, dp := range batch.DataPoints {
		sum += dp.Sum
	}
	assert.Equal(t, int64(5), sum)

	errs, ok := got["vectorctl.embedding.errors_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)

	logger.AssertLogged(t, logging.TraceLevel, "embedded documents")
	logger.AssertField(t, "embedded documents", "texts", int64(3))
	assert.Equal(t, 2, p.Dimension())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGeneration(context.Background(), "m", "embed_query", 0, 1, nil)
	})
	assert.NotNil(t, NewMetrics(nil, nil))
}
