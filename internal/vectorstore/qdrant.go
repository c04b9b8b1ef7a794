package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
)

// qdrantTracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("vectorctl.vectorstore.qdrant")

// maxMessageSize bounds gRPC messages in both directions. One batched upsert
// of a large document can exceed the 4MB gRPC default.
const maxMessageSize = 50 * 1024 * 1024

// QdrantOptions configures a QdrantStore beyond the connection settings.
type QdrantOptions struct {
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Logger       *logging.Logger
}

// QdrantStore implements IndexStore on Qdrant collections over gRPC.
type QdrantStore struct {
	client *qdrant.Client
	opts   QdrantOptions
	logger *logging.Logger
}

// NewQdrantStore connects to Qdrant and verifies the server is healthy.
//
// Returns error if:
//   - host or port are not set
//   - the client cannot be created
//   - the health check fails
func NewQdrantStore(ctx context.Context, cfg config.QdrantConfig, opts QdrantOptions) (*QdrantStore, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, fmt.Errorf("%w: qdrant host and port are required", ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if !cfg.UseTLS {
		logger.Debug(ctx, "qdrant gRPC using plaintext", zap.String("host", cfg.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey.Value(),
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: true,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	s := &QdrantStore{client: client, opts: opts, logger: logger}
	if err := s.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return s, nil
}

func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reply, err := s.client.HealthCheck(ctx)
	if err != nil {
		return recordError(span, err)
	}
	span.SetAttributes(attribute.String("qdrant.version", reply.GetVersion()))
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// Provider implements IndexStore.
func (s *QdrantStore) Provider() string {
	return config.ProviderQdrant
}

// ListIndexes implements IndexStore.
func (s *QdrantStore) ListIndexes(ctx context.Context) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.ListIndexes")
	defer span.End()

	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("listing collections: %w", err))
	}
	span.SetAttributes(attribute.Int("indexes", len(names)))
	return names, nil
}

// CreateIndex implements IndexStore and waits for the collection to turn green.
func (s *QdrantStore) CreateIndex(ctx context.Context, spec IndexSpec) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.CreateIndex")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", spec.Name),
		attribute.Int("dimension", spec.Dimension),
		attribute.String("metric", spec.Metric),
	)

	if err := spec.Validate(); err != nil {
		return recordError(span, err)
	}
	distance, err := qdrantDistance(spec.Metric)
	if err != nil {
		return recordError(span, err)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: distance,
		}),
	})
	if err != nil {
		return recordError(span, fmt.Errorf("creating collection %s: %w", spec.Name, err))
	}
	s.logger.Info(ctx, "created qdrant collection",
		zap.String("index", spec.Name),
		zap.Int("dimension", spec.Dimension),
	)

	err = waitReady(ctx, spec.Name, s.opts.ReadyTimeout, s.opts.PollInterval, func(ctx context.Context) (bool, error) {
		info, err := s.DescribeIndex(ctx, spec.Name)
		return info.Ready, err
	})
	if err != nil {
		return recordError(span, err)
	}
	span.SetStatus(codes.Ok, "created")
	return nil
}

// DescribeIndex implements IndexStore.
func (s *QdrantStore) DescribeIndex(ctx context.Context, name string) (IndexInfo, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DescribeIndex")
	defer span.End()
	span.SetAttributes(attribute.String("index", name))

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return IndexInfo{}, recordError(span, fmt.Errorf("checking collection %s: %w", name, err))
	}
	if !exists {
		return IndexInfo{}, recordError(span, fmt.Errorf("%w: %s", ErrIndexNotFound, name))
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return IndexInfo{}, recordError(span, fmt.Errorf("describing collection %s: %w", name, err))
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()

	return IndexInfo{
		Name:        name,
		Dimension:   int(params.GetSize()),
		Metric:      metricFromQdrant(params.GetDistance()),
		VectorCount: int64(info.GetPointsCount()),
		Ready:       info.GetStatus() == qdrant.CollectionStatus_Green,
	}, nil
}

// Open implements IndexStore.
func (s *QdrantStore) Open(ctx context.Context, name string, embedder embeddings.Embedder) (Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	info, err := s.DescribeIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	return &qdrantIndex{store: s, name: name, dimension: info.Dimension, embedder: embedder}, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// qdrantIndex is the data-plane handle for one Qdrant collection.
type qdrantIndex struct {
	store     *QdrantStore
	name      string
	dimension int
	embedder  embeddings.Embedder
}

var _ Index = (*qdrantIndex)(nil)

func (i *qdrantIndex) Name() string {
	return i.name
}

// AddDocuments embeds all documents and upserts them in one request.
func (i *qdrantIndex) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.AddDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", i.name),
		attribute.Int("document_count", len(docs)),
	)

	if len(docs) == 0 {
		return nil, nil
	}
	opts := resolveOptions(options)
	embedder := i.embedder
	if opts.Embedder != nil {
		embedder = opts.Embedder
	}

	texts := make([]string, len(docs))
	for n, doc := range docs {
		texts[n] = doc.PageContent
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("embedding documents: %w", err))
	}
	if err := checkVectors(vectors, len(docs), i.dimension); err != nil {
		return nil, recordError(span, err)
	}

	ids := make([]string, len(docs))
	points := make([]*qdrant.PointStruct, len(docs))
	for n, doc := range docs {
		payload, err := qdrantPayload(doc)
		if err != nil {
			return nil, recordError(span, err)
		}
		ids[n] = uuid.New().String()
		points[n] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(ids[n]),
			Vectors: qdrant.NewVectorsDense(vectors[n]),
			Payload: payload,
		}
	}

	_, err = i.store.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.name,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, recordError(span, fmt.Errorf("upserting into %s: %w", i.name, err))
	}

	span.SetAttributes(attribute.Int("points_added", len(ids)))
	span.SetStatus(codes.Ok, "success")
	return ids, nil
}

// SimilaritySearch queries the nearest points and restores their text and
// metadata from the payload.
func (i *qdrantIndex) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.SimilaritySearch")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", i.name),
		attribute.Int("k", numDocuments),
	)

	if numDocuments <= 0 {
		return nil, recordError(span, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, numDocuments))
	}
	opts := resolveOptions(options)
	embedder := i.embedder
	if opts.Embedder != nil {
		embedder = opts.Embedder
	}

	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("embedding query: %w", err))
	}

	request := &qdrant.QueryPoints{
		CollectionName: i.name,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(uint64(numDocuments)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if opts.ScoreThreshold > 0 {
		request.ScoreThreshold = qdrant.PtrOf(opts.ScoreThreshold)
	}
	if filter, ok := opts.Filters.(*qdrant.Filter); ok {
		request.Filter = filter
	}

	points, err := i.store.client.Query(ctx, request)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("querying %s: %w", i.name, err))
	}

	docs := make([]schema.Document, 0, len(points))
	for _, p := range points {
		text, metadata := splitText(payloadToMap(p.GetPayload()))
		docs = append(docs, schema.Document{
			PageContent: text,
			Metadata:    metadata,
			Score:       p.GetScore(),
		})
	}

	span.SetAttributes(attribute.Int("results_count", len(docs)))
	span.SetStatus(codes.Ok, "success")
	return docs, nil
}

// DeleteAll removes every point with an empty filter.
func (i *qdrantIndex) DeleteAll(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.DeleteAll")
	defer span.End()
	span.SetAttributes(attribute.String("index", i.name))

	_, err := i.store.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.name,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return recordError(span, fmt.Errorf("deleting points from %s: %w", i.name, err))
	}

	i.store.logger.Info(ctx, "deleted all vectors", zap.String("index", i.name))
	span.SetStatus(codes.Ok, "success")
	return nil
}

func (i *qdrantIndex) Stats(ctx context.Context) (IndexInfo, error) {
	info, err := i.store.DescribeIndex(ctx, i.name)
	if err != nil {
		return IndexInfo{}, err
	}
	count, err := i.store.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: i.name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return IndexInfo{}, fmt.Errorf("counting points in %s: %w", i.name, err)
	}
	info.VectorCount = int64(count)
	return info, nil
}

func qdrantDistance(metric string) (qdrant.Distance, error) {
	switch metric {
	case MetricCosine:
		return qdrant.Distance_Cosine, nil
	case MetricDotProduct:
		return qdrant.Distance_Dot, nil
	case MetricEuclidean:
		return qdrant.Distance_Euclid, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("%w: %q", ErrUnsupportedMetric, metric)
	}
}

func metricFromQdrant(d qdrant.Distance) string {
	switch d {
	case qdrant.Distance_Cosine:
		return MetricCosine
	case qdrant.Distance_Dot:
		return MetricDotProduct
	case qdrant.Distance_Euclid:
		return MetricEuclidean
	default:
		return d.String()
	}
}

// qdrantPayload builds the point payload: normalized metadata plus the text.
func qdrantPayload(doc schema.Document) (map[string]*qdrant.Value, error) {
	values := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		values[k] = normalizeValue(v)
	}
	payload, err := qdrant.TryValueMap(withText(values, doc.PageContent))
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return payload, nil
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for n, item := range items {
			out[n] = valueToAny(item)
		}
		return out
	case *qdrant.Value_StructValue:
		return payloadToMap(kind.StructValue.GetFields())
	default:
		return nil
	}
}
