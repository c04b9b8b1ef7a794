package embeddings

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/vectorctl/internal/embeddings"

// Metrics holds the embedding instruments.
type Metrics struct {
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewMetrics creates the instruments on meter, or on the global meter
// provider when meter is nil. Instrument creation failures are logged and
// the affected instrument is skipped.
func NewMetrics(meter metric.Meter, logger *logging.Logger) *Metrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx := context.Background()
	m := &Metrics{}

	var err error
	m.duration, err = meter.Float64Histogram(
		"vectorctl.embedding.generation_duration_seconds",
		metric.WithDescription("Duration of embedding calls, labeled by model and operation (embed_documents, embed_query)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create duration histogram", zap.Error(err))
	}

	m.batchSize, err = meter.Int64Histogram(
		"vectorctl.embedding.batch_size",
		metric.WithDescription("Number of texts per embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create batch size histogram", zap.Error(err))
	}

	m.errors, err = meter.Int64Counter(
		"vectorctl.embedding.errors_total",
		metric.WithDescription("Embedding calls that returned an error, by model and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create errors counter", zap.Error(err))
	}
	return m
}

// RecordGeneration records one embedding call.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, d time.Duration, batchSize int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
	if batchSize > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batchSize), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// Instrument wraps p so every call is timed, counted and trace-logged.
// A nil metrics value only adds logging.
func Instrument(p Provider, model string, m *Metrics, logger *logging.Logger) Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &instrumented{Provider: p, model: model, metrics: m, logger: logger.Named("embeddings")}
}

type instrumented struct {
	Provider
	model   string
	metrics *Metrics
	logger  *logging.Logger
}

func (i *instrumented) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := i.Provider.EmbedDocuments(ctx, texts)
	i.metrics.RecordGeneration(ctx, i.model, "embed_documents", time.Since(start), len(texts), err)
	i.logger.Trace(ctx, "embedded documents",
		zap.String("model", i.model),
		zap.Int("texts", len(texts)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return vectors, err
}

func (i *instrumented) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := i.Provider.EmbedQuery(ctx, text)
	i.metrics.RecordGeneration(ctx, i.model, "embed_query", time.Since(start), 1, err)
	i.logger.Trace(ctx, "embedded query",
		zap.String("model", i.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return vector, err
}
