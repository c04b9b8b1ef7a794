package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("vectorctl.vectorstore.chromem")

// specsFile sits next to the collection directories. chromem-go ignores
// plain files in its persistence root.
const specsFile = "indexes.json"

// errNoEmbedFunc is returned if chromem-go ever tries to embed on its own.
// Index handles always pass precomputed vectors.
var errNoEmbedFunc = errors.New("chromem embedding function not used: vectors are precomputed")

func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedFunc
}

// ChromemStore implements IndexStore on chromem-go.
//
// chromem-go does not expose collection metadata once written, so the
// dimension and metric of each index are tracked by the store and, for a
// persistent database, saved to indexes.json in the database directory.
type ChromemStore struct {
	db       *chromem.DB
	path     string
	provider string
	logger   *logging.Logger

	mu    sync.Mutex
	specs map[string]IndexSpec
}

// NewChromemStore opens (or creates) a persistent chromem-go database.
func NewChromemStore(cfg config.ChromemConfig, logger *logging.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: chromem path is required", ErrInvalidConfig)
	}

	path := config.ExpandPath(cfg.Path)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	s := &ChromemStore{
		db:       db,
		path:     path,
		provider: config.ProviderChromem,
		logger:   logger,
		specs:    make(map[string]IndexSpec),
	}
	if err := s.loadSpecs(); err != nil {
		return nil, err
	}

	logger.Debug(context.Background(), "chromem store initialized",
		zap.String("path", path),
		zap.Bool("compress", cfg.Compress),
		zap.Int("indexes", len(s.specs)),
	)
	return s, nil
}

// NewMemoryStore returns an in-process store. Nothing survives the process.
func NewMemoryStore(logger *logging.Logger) *ChromemStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChromemStore{
		db:       chromem.NewDB(),
		provider: config.ProviderMemory,
		logger:   logger,
		specs:    make(map[string]IndexSpec),
	}
}

// Provider implements IndexStore.
func (s *ChromemStore) Provider() string {
	return s.provider
}

// ListIndexes implements IndexStore.
func (s *ChromemStore) ListIndexes(ctx context.Context) ([]string, error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.ListIndexes")
	defer span.End()

	collections := s.db.ListCollections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	span.SetAttributes(attribute.Int("indexes", len(names)))
	return names, nil
}

// CreateIndex implements IndexStore. chromem-go ranks by cosine similarity
// only, so any other metric is rejected.
func (s *ChromemStore) CreateIndex(ctx context.Context, spec IndexSpec) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.CreateIndex")
	defer span.End()
	span.SetAttributes(
		attribute.String("index", spec.Name),
		attribute.Int("dimension", spec.Dimension),
		attribute.String("metric", spec.Metric),
	)

	if err := spec.Validate(); err != nil {
		return recordError(span, err)
	}
	if spec.Metric != MetricCosine {
		return recordError(span, fmt.Errorf("%w: chromem supports cosine only, got %q", ErrUnsupportedMetric, spec.Metric))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(spec.Name, noEmbed) != nil {
		return recordError(span, fmt.Errorf("%w: %s", ErrIndexExists, spec.Name))
	}
	if _, err := s.db.CreateCollection(spec.Name, specMetadata(spec), noEmbed); err != nil {
		return recordError(span, fmt.Errorf("creating collection %s: %w", spec.Name, err))
	}
	s.specs[spec.Name] = spec
	if err := s.saveSpecs(); err != nil {
		return recordError(span, err)
	}

	s.logger.Info(ctx, "created chromem collection",
		zap.String("index", spec.Name),
		zap.Int("dimension", spec.Dimension),
	)
	span.SetStatus(codes.Ok, "created")
	return nil
}

// DescribeIndex implements IndexStore. Dimension is zero for collections
// created outside vectorctl.
func (s *ChromemStore) DescribeIndex(ctx context.Context, name string) (IndexInfo, error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.DescribeIndex")
	defer span.End()
	span.SetAttributes(attribute.String("index", name))

	c := s.db.GetCollection(name, noEmbed)
	if c == nil {
		return IndexInfo{}, recordError(span, fmt.Errorf("%w: %s", ErrIndexNotFound, name))
	}

	s.mu.Lock()
	spec, ok := s.specs[name]
	s.mu.Unlock()
	if !ok {
		spec = IndexSpec{Name: name, Metric: MetricCosine}
	}

	return IndexInfo{
		Name:        name,
		Dimension:   spec.Dimension,
		Metric:      spec.Metric,
		VectorCount: int64(c.Count()),
		Ready:       true,
	}, nil
}

// Open implements IndexStore.
func (s *ChromemStore) Open(ctx context.Context, name string, embedder embeddings.Embedder) (Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	info, err := s.DescribeIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	return &chromemIndex{
		store:     s,
		name:      name,
		dimension: info.Dimension,
		embedder:  embedder,
	}, nil
}

// Close implements IndexStore. chromem-go writes through on every change.
func (s *ChromemStore) Close() error {
	return nil
}

// recreate drops and recreates a collection with the same spec.
func (s *ChromemStore) recreate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, ok := s.specs[name]
	if !ok {
		spec = IndexSpec{Name: name, Metric: MetricCosine}
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	if _, err := s.db.CreateCollection(name, specMetadata(spec), noEmbed); err != nil {
		return fmt.Errorf("recreating collection %s: %w", name, err)
	}
	return nil
}

func (s *ChromemStore) loadSpecs() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.path, specsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index specs: %w", err)
	}

	var specs []IndexSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("parsing index specs: %w", err)
	}
	for _, spec := range specs {
		s.specs[spec.Name] = spec
	}
	return nil
}

// saveSpecs must be called with s.mu held.
func (s *ChromemStore) saveSpecs() error {
	if s.path == "" {
		return nil
	}
	specs := make([]IndexSpec, 0, len(s.specs))
	for _, spec := range s.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index specs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.path, specsFile), data, 0o600); err != nil {
		return fmt.Errorf("writing index specs: %w", err)
	}
	return nil
}

func specMetadata(spec IndexSpec) map[string]string {
	return map[string]string{
		"dimension": strconv.Itoa(spec.Dimension),
		"metric":    spec.Metric,
	}
}

// chromemIndex is the data-plane handle for one chromem-go collection.
type chromemIndex struct {
	store     *ChromemStore
	name      string
	dimension int
	embedder  embeddings.Embedder
}

var _ Index = (*chromemIndex)(nil)

func (i *chromemIndex) Name() string {
	return i.name
}

func (i *chromemIndex) collection() (*chromem.Collection, error) {
	c := i.store.db.GetCollection(i.name, noEmbed)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, i.name)
	}
	return c, nil
}

// AddDocuments embeds every document in one call and stores them together.
func (i *chromemIndex) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.AddDocuments")
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

	c, err := i.collection()
	if err != nil {
		return nil, recordError(span, err)
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
	chromemDocs := make([]chromem.Document, len(docs))
	for n, doc := range docs {
		ids[n] = uuid.New().String()
		chromemDocs[n] = chromem.Document{
			ID:        ids[n],
			Metadata:  stringifyMetadata(doc.Metadata),
			Embedding: vectors[n],
			Content:   doc.PageContent,
		}
	}

	if err := c.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return nil, recordError(span, fmt.Errorf("adding documents to %s: %w", i.name, err))
	}

	span.SetAttributes(attribute.Int("vectors_added", len(ids)))
	span.SetStatus(codes.Ok, "success")
	return ids, nil
}

// SimilaritySearch returns up to numDocuments chunks ranked by cosine
// similarity. An empty index yields no results rather than an error.
func (i *chromemIndex) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.SimilaritySearch")
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

	c, err := i.collection()
	if err != nil {
		return nil, recordError(span, err)
	}
	count := c.Count()
	if count == 0 {
		return []schema.Document{}, nil
	}
	numDocuments = min(numDocuments, count)

	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("embedding query: %w", err))
	}

	where, _ := opts.Filters.(map[string]string)
	results, err := c.QueryEmbedding(ctx, vector, numDocuments, where, nil)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("querying %s: %w", i.name, err))
	}

	docs := make([]schema.Document, 0, len(results))
	for _, r := range results {
		if opts.ScoreThreshold > 0 && r.Similarity < opts.ScoreThreshold {
			continue
		}
		docs = append(docs, schema.Document{
			PageContent: r.Content,
			Metadata:    parseMetadata(r.Metadata),
			Score:       r.Similarity,
		})
	}

	span.SetAttributes(attribute.Int("results_count", len(docs)))
	span.SetStatus(codes.Ok, "success")
	return docs, nil
}

// DeleteAll drops and recreates the collection, keeping its spec.
func (i *chromemIndex) DeleteAll(ctx context.Context) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.DeleteAll")
	defer span.End()
	span.SetAttributes(attribute.String("index", i.name))

	if _, err := i.collection(); err != nil {
		return recordError(span, err)
	}
	if err := i.store.recreate(i.name); err != nil {
		return recordError(span, err)
	}

	i.store.logger.Info(ctx, "deleted all vectors", zap.String("index", i.name))
	span.SetStatus(codes.Ok, "success")
	return nil
}

func (i *chromemIndex) Stats(ctx context.Context) (IndexInfo, error) {
	return i.store.DescribeIndex(ctx, i.name)
}

func resolveOptions(options []vectorstores.Option) vectorstores.Options {
	var opts vectorstores.Options
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// checkVectors verifies the embedder returned one vector per document, each
// of the index dimension. A zero dimension skips the size check.
func checkVectors(vectors [][]float32, want, dimension int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w: got %d vectors for %d documents", ErrEmbeddingFailed, len(vectors), want)
	}
	if dimension == 0 {
		return nil
	}
	for n, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", ErrEmbeddingFailed, n, len(v), dimension)
		}
	}
	return nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
