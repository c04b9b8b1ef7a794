package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/vectorstores"
)

// Sentinel errors for vector store operations.
var (
	// ErrIndexNotFound is returned when a named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexExists is returned when creating an index that already exists.
	ErrIndexExists = errors.New("index already exists")

	// ErrIndexNotReady is returned when an index does not become ready in time.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidIndexName indicates index name validation failure.
	ErrInvalidIndexName = errors.New("invalid index name")

	// ErrUnsupportedMetric is returned when a backend cannot serve a metric.
	ErrUnsupportedMetric = errors.New("unsupported metric")

	// ErrEmbeddingFailed indicates the embedder returned an unusable result.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// TextKey is the metadata key under which chunk text is stored.
const TextKey = "text"

// Similarity metrics.
const (
	MetricCosine     = "cosine"
	MetricDotProduct = "dotproduct"
	MetricEuclidean  = "euclidean"
)

// indexNamePattern accepts names valid for every backend.
var indexNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,44}$`)

// IndexSpec describes an index to create.
type IndexSpec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

// Validate checks the name, dimension and metric.
func (s IndexSpec) Validate() error {
	if err := ValidateIndexName(s.Name); err != nil {
		return err
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, s.Dimension)
	}
	switch s.Metric {
	case MetricCosine, MetricDotProduct, MetricEuclidean:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMetric, s.Metric)
	}
}

// ValidateIndexName validates an index name.
// Pattern: ^[a-z0-9][a-z0-9_-]{0,44}$
func ValidateIndexName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: index name cannot be empty", ErrInvalidIndexName)
	}
	if !indexNamePattern.MatchString(name) {
		return fmt.Errorf("%w: index name must match ^[a-z0-9][a-z0-9_-]{0,44}$, got %q", ErrInvalidIndexName, name)
	}
	return nil
}

// IndexInfo is what a backend reports about an index.
type IndexInfo struct {
	Name        string `json:"name"`
	Dimension   int    `json:"dimension"`
	Metric      string `json:"metric"`
	VectorCount int64  `json:"vector_count"`
	Ready       bool   `json:"ready"`
}

// IndexStore is the control plane of a vector database.
//
// Implementations exist for Pinecone, Qdrant and chromem-go (persistent or
// in-memory). The remote service is the source of truth: nothing about an
// index is cached between calls except where a backend cannot report it.
type IndexStore interface {
	// Provider returns the backend name, e.g. "pinecone".
	Provider() string

	// ListIndexes returns the names of all existing indexes.
	ListIndexes(ctx context.Context) ([]string, error)

	// CreateIndex creates an index. For remote backends it returns once the
	// index reports ready or the configured timeout elapses.
	CreateIndex(ctx context.Context, spec IndexSpec) error

	// DescribeIndex reports the dimension, metric and readiness of an index.
	// Returns ErrIndexNotFound if it does not exist.
	DescribeIndex(ctx context.Context, name string) (IndexInfo, error)

	// Open returns a data-plane handle bound to the named index. Chunk text
	// is kept under TextKey and vectors are produced by embedder.
	Open(ctx context.Context, name string, embedder embeddings.Embedder) (Index, error)

	// Close releases connections held by the store.
	Close() error
}

// Index is a handle to one index. It satisfies langchaingo's VectorStore so
// it can be used with vectorstores.ToRetriever.
type Index interface {
	vectorstores.VectorStore

	// Name returns the index name.
	Name() string

	// DeleteAll removes every vector. The index and its configuration survive.
	DeleteAll(ctx context.Context) error

	// Stats reports the current vector count along with the index shape.
	Stats(ctx context.Context) (IndexInfo, error)
}
