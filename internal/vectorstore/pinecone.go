package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	lcpinecone "github.com/tmc/langchaingo/vectorstores/pinecone"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
)

// pineconeTracer for OpenTelemetry instrumentation.
var pineconeTracer = otel.Tracer("vectorctl.vectorstore.pinecone")

// pineconeControl is the slice of the Pinecone control plane the store uses.
// *pinecone.Client satisfies it.
type pineconeControl interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	CreatePodIndex(ctx context.Context, in *pinecone.CreatePodIndexRequest) (*pinecone.Index, error)
	CreateServerlessIndex(ctx context.Context, in *pinecone.CreateServerlessIndexRequest) (*pinecone.Index, error)
	DescribeIndex(ctx context.Context, idxName string) (*pinecone.Index, error)
}

// pineconeConnection is the slice of a data-plane connection the store uses.
// *pinecone.IndexConnection satisfies it.
type pineconeConnection interface {
	DeleteAllVectorsInNamespace(ctx *context.Context) error
	DescribeIndexStats(ctx *context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// PineconeOptions configures a PineconeStore beyond the account settings.
type PineconeOptions struct {
	ReadyTimeout time.Duration
	PollInterval time.Duration
	Logger       *logging.Logger
}

// PineconeStore implements IndexStore on the managed Pinecone service.
//
// Index management goes through the go-pinecone control plane. Upserts and
// queries go through langchaingo's Pinecone vector store, bound to the host
// the control plane reports for the index.
type PineconeStore struct {
	control pineconeControl
	connect func(host, namespace string) (pineconeConnection, error)
	cfg     config.PineconeConfig
	opts    PineconeOptions
	logger  *logging.Logger
}

// NewPineconeStore creates a client for the configured account. No request
// is made until the first call.
func NewPineconeStore(cfg config.PineconeConfig, opts PineconeOptions) (*PineconeStore, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: pinecone api key is required", ErrInvalidConfig)
	}
	if cfg.Env == "" && !cfg.Serverless() {
		return nil, fmt.Errorf("%w: pinecone environment or region is required", ErrInvalidConfig)
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey.Value()})
	if err != nil {
		return nil, fmt.Errorf("creating pinecone client: %w", err)
	}

	return newPineconeStore(client, func(host, namespace string) (pineconeConnection, error) {
		return client.IndexWithNamespace(host, namespace)
	}, cfg, opts), nil
}

func newPineconeStore(control pineconeControl, connect func(string, string) (pineconeConnection, error), cfg config.PineconeConfig, opts PineconeOptions) *PineconeStore {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PineconeStore{
		control: control,
		connect: connect,
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
	}
}

// Provider implements IndexStore.
func (s *PineconeStore) Provider() string {
	return config.ProviderPinecone
}

// ListIndexes implements IndexStore.
func (s *PineconeStore) ListIndexes(ctx context.Context) ([]string, error) {
	ctx, span := pineconeTracer.Start(ctx, "PineconeStore.ListIndexes")
	defer span.End()

	indexes, err := s.control.ListIndexes(ctx)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("listing pinecone indexes: %w", err))
	}

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if idx != nil {
			names = append(names, idx.Name)
		}
	}
	span.SetAttributes(attribute.Int("indexes", len(names)))
	return names, nil
}

// CreateIndex implements IndexStore. A pod index is created in the configured
// environment unless a serverless region is set. It returns once the index
// reports ready or ReadyTimeout elapses.
func (s *PineconeStore) CreateIndex(ctx context.Context, spec IndexSpec) error {
	ctx, span := pineconeTracer.Start(ctx, "PineconeStore.CreateIndex")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", spec.Name),
		attribute.Int("dimension", spec.Dimension),
		attribute.String("metric", spec.Metric),
		attribute.Bool("serverless", s.cfg.Serverless()),
	)

	if err := spec.Validate(); err != nil {
		return recordError(span, err)
	}

	var err error
	if s.cfg.Serverless() {
		_, err = s.control.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
			Name:      spec.Name,
			Dimension: int32(spec.Dimension),
			Metric:    pinecone.IndexMetric(spec.Metric),
			Cloud:     pinecone.Cloud(s.cfg.Cloud),
			Region:    s.cfg.Region,
		})
	} else {
		_, err = s.control.CreatePodIndex(ctx, &pinecone.CreatePodIndexRequest{
			Name:        spec.Name,
			Dimension:   int32(spec.Dimension),
			Metric:      pinecone.IndexMetric(spec.Metric),
			Environment: s.cfg.Env,
			PodType:     s.cfg.PodType,
			Shards:      1,
			Replicas:    1,
		})
	}
	if err != nil {
		return recordError(span, fmt.Errorf("creating pinecone index %s: %w", spec.Name, err))
	}
	s.logger.Info(ctx, "created pinecone index",
		zap.String("index", spec.Name),
		zap.Int("dimension", spec.Dimension),
		zap.String("metric", spec.Metric),
	)

	err = waitReady(ctx, spec.Name, s.opts.ReadyTimeout, s.opts.PollInterval, func(ctx context.Context) (bool, error) {
		info, err := s.DescribeIndex(ctx, spec.Name)
		if err != nil {
			return false, err
		}
		s.logger.Debug(ctx, "waiting for pinecone index", zap.String("index", spec.Name), zap.Bool("ready", info.Ready))
		return info.Ready, nil
	})
	if err != nil {
		return recordError(span, err)
	}
	span.SetStatus(codes.Ok, "created")
	return nil
}

// DescribeIndex implements IndexStore. VectorCount is not reported by the
// control plane; use Index.Stats for it.
func (s *PineconeStore) DescribeIndex(ctx context.Context, name string) (IndexInfo, error) {
	idx, err := s.describe(ctx, name)
	if err != nil {
		return IndexInfo{}, err
	}
	return pineconeInfo(idx), nil
}

func (s *PineconeStore) describe(ctx context.Context, name string) (*pinecone.Index, error) {
	ctx, span := pineconeTracer.Start(ctx, "PineconeStore.DescribeIndex")
	defer span.End()
	span.SetAttributes(attribute.String("index", name))

	// The list response is the source of truth for existence.
	names, err := s.ListIndexes(ctx)
	if err != nil {
		return nil, recordError(span, err)
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return nil, recordError(span, fmt.Errorf("%w: %s", ErrIndexNotFound, name))
	}

	idx, err := s.control.DescribeIndex(ctx, name)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("describing pinecone index %s: %w", name, err))
	}
	return idx, nil
}

// Open implements IndexStore.
func (s *PineconeStore) Open(ctx context.Context, name string, embedder embeddings.Embedder) (Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	idx, err := s.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if idx.Host == "" {
		return nil, fmt.Errorf("%w: %s has no host yet", ErrIndexNotReady, name)
	}

	opts := []lcpinecone.Option{
		lcpinecone.WithHost(idx.Host),
		lcpinecone.WithAPIKey(s.cfg.APIKey.Value()),
		lcpinecone.WithEmbedder(embedder),
		lcpinecone.WithTextKey(TextKey),
	}
	if s.cfg.Namespace != "" {
		opts = append(opts, lcpinecone.WithNameSpace(s.cfg.Namespace))
	}
	store, err := lcpinecone.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pinecone vector store for %s: %w", name, err)
	}

	return &pineconeIndex{
		Store: store,
		owner: s,
		name:  name,
		host:  idx.Host,
		info:  pineconeInfo(idx),
	}, nil
}

// Close implements IndexStore. Data-plane connections are closed per call.
func (s *PineconeStore) Close() error {
	return nil
}

func pineconeInfo(idx *pinecone.Index) IndexInfo {
	info := IndexInfo{
		Name:      idx.Name,
		Dimension: int(idx.Dimension),
		Metric:    string(idx.Metric),
	}
	if idx.Status != nil {
		info.Ready = idx.Status.Ready
	}
	return info
}

// pineconeIndex embeds langchaingo's Pinecone store for AddDocuments and
// SimilaritySearch and adds the operations that store lacks.
type pineconeIndex struct {
	lcpinecone.Store

	owner *PineconeStore
	name  string
	host  string
	info  IndexInfo
}

var _ Index = (*pineconeIndex)(nil)

func (i *pineconeIndex) Name() string {
	return i.name
}

// DeleteAll clears the configured namespace, which is the default namespace
// when none is set.
func (i *pineconeIndex) DeleteAll(ctx context.Context) error {
	ctx, span := pineconeTracer.Start(ctx, "PineconeIndex.DeleteAll")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", i.name),
		attribute.String("namespace", i.owner.cfg.Namespace),
	)

	conn, err := i.owner.connect(i.host, i.owner.cfg.Namespace)
	if err != nil {
		return recordError(span, fmt.Errorf("connecting to %s: %w", i.name, err))
	}
	defer conn.Close()

	if err := conn.DeleteAllVectorsInNamespace(&ctx); err != nil {
		return recordError(span, fmt.Errorf("deleting vectors from %s: %w", i.name, err))
	}

	i.owner.logger.Info(ctx, "deleted all vectors", zap.String("index", i.name))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Stats reports the vector count of the configured namespace, or of the
// whole index when no namespace is set.
func (i *pineconeIndex) Stats(ctx context.Context) (IndexInfo, error) {
	ctx, span := pineconeTracer.Start(ctx, "PineconeIndex.Stats")
	defer span.End()
	span.SetAttributes(attribute.String("index", i.name))

	info, err := i.owner.DescribeIndex(ctx, i.name)
	if err != nil {
		return IndexInfo{}, recordError(span, err)
	}

	conn, err := i.owner.connect(i.host, i.owner.cfg.Namespace)
	if err != nil {
		return IndexInfo{}, recordError(span, fmt.Errorf("connecting to %s: %w", i.name, err))
	}
	defer conn.Close()

	stats, err := conn.DescribeIndexStats(&ctx)
	if err != nil {
		return IndexInfo{}, recordError(span, fmt.Errorf("describing stats of %s: %w", i.name, err))
	}

	info.VectorCount = int64(stats.TotalVectorCount)
	if ns := i.owner.cfg.Namespace; ns != "" {
		info.VectorCount = 0
		if summary, ok := stats.Namespaces[ns]; ok && summary != nil {
			info.VectorCount = int64(summary.VectorCount)
		}
	}
	return info, nil
}
