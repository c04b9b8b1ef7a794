package vectorstore

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// Operation names counted by Recorder.
const (
	OpListIndexes      = "ListIndexes"
	OpCreateIndex      = "CreateIndex"
	OpDescribeIndex    = "DescribeIndex"
	OpOpen             = "Open"
	OpAddDocuments     = "AddDocuments"
	OpSimilaritySearch = "SimilaritySearch"
	OpDeleteAll        = "DeleteAll"
	OpStats            = "Stats"
)

// Recorder wraps an IndexStore, counting every call made through it and
// through the Index handles it opens. Errors registered with FailOn are
// returned instead of calling the wrapped store.
type Recorder struct {
	IndexStore

	mu       sync.Mutex
	calls    map[string]int
	created  []IndexSpec
	upserted [][]schema.Document
	failures map[string]error
}

// NewRecorder wraps store.
func NewRecorder(store IndexStore) *Recorder {
	return &Recorder{
		IndexStore: store,
		calls:      make(map[string]int),
		failures:   make(map[string]error),
	}
}

// FailOn makes every later call to op return err.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

// Calls returns how many times op was called.
func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Created returns the specs passed to CreateIndex.
func (r *Recorder) Created() []IndexSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]IndexSpec(nil), r.created...)
}

// Upserted returns the document batches passed to AddDocuments.
func (r *Recorder) Upserted() [][]schema.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]schema.Document(nil), r.upserted...)
}

// Writes returns the number of calls that modify remote state.
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[OpCreateIndex] + r.calls[OpAddDocuments] + r.calls[OpDeleteAll]
}

func (r *Recorder) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.failures[op]
}

// ListIndexes implements IndexStore.
func (r *Recorder) ListIndexes(ctx context.Context) ([]string, error) {
	if err := r.record(OpListIndexes); err != nil {
		return nil, err
	}
	return r.IndexStore.ListIndexes(ctx)
}

// CreateIndex implements IndexStore.
func (r *Recorder) CreateIndex(ctx context.Context, spec IndexSpec) error {
	if err := r.record(OpCreateIndex); err != nil {
		return err
	}
	r.mu.Lock()
	r.created = append(r.created, spec)
	r.mu.Unlock()
	return r.IndexStore.CreateIndex(ctx, spec)
}

// DescribeIndex implements IndexStore.
func (r *Recorder) DescribeIndex(ctx context.Context, name string) (IndexInfo, error) {
	if err := r.record(OpDescribeIndex); err != nil {
		return IndexInfo{}, err
	}
	return r.IndexStore.DescribeIndex(ctx, name)
}

// Open implements IndexStore. The returned handle is recorded too.
func (r *Recorder) Open(ctx context.Context, name string, embedder embeddings.Embedder) (Index, error) {
	if err := r.record(OpOpen); err != nil {
		return nil, err
	}
	index, err := r.IndexStore.Open(ctx, name, embedder)
	if err != nil {
		return nil, err
	}
	return &recordedIndex{Index: index, recorder: r}, nil
}

type recordedIndex struct {
	Index
	recorder *Recorder
}

func (i *recordedIndex) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	if err := i.recorder.record(OpAddDocuments); err != nil {
		return nil, err
	}
	i.recorder.mu.Lock()
	i.recorder.upserted = append(i.recorder.upserted, docs)
	i.recorder.mu.Unlock()
	return i.Index.AddDocuments(ctx, docs, options...)
}

func (i *recordedIndex) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	if err := i.recorder.record(OpSimilaritySearch); err != nil {
		return nil, err
	}
	return i.Index.SimilaritySearch(ctx, query, numDocuments, options...)
}

func (i *recordedIndex) DeleteAll(ctx context.Context) error {
	if err := i.recorder.record(OpDeleteAll); err != nil {
		return err
	}
	return i.Index.DeleteAll(ctx)
}

func (i *recordedIndex) Stats(ctx context.Context) (IndexInfo, error) {
	if err := i.recorder.record(OpStats); err != nil {
		return IndexInfo{}, err
	}
	return i.Index.Stats(ctx)
}
