package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// Fake is a deterministic bag-of-words embedder for tests. Each word is
// hashed into one of Dim buckets, so texts sharing words score as similar.
// It counts calls and can be made to fail.
type Fake struct {
	Dim int
	Err error

	mu            sync.Mutex
	documentCalls int
	queryCalls    int
	texts         int
}

// NewFake returns a Fake producing vectors of size dim.
func NewFake(dim int) *Fake {
	return &Fake{Dim: dim}
}

// EmbedDocuments implements embeddings.Embedder.
func (f *Fake) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.documentCalls++
	f.texts += len(texts)
	err := f.Err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

// EmbedQuery implements embeddings.Embedder.
func (f *Fake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queryCalls++
	err := f.Err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.vector(text), nil
}

// Dimension implements Provider.
func (f *Fake) Dimension() int {
	return f.Dim
}

// Close implements Provider.
func (f *Fake) Close() error {
	return nil
}

// DocumentCalls returns the number of EmbedDocuments calls.
func (f *Fake) DocumentCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.documentCalls
}

// QueryCalls returns the number of EmbedQuery calls.
func (f *Fake) QueryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

// Texts returns the total number of texts passed to EmbedDocuments.
func (f *Fake) Texts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts
}

func (f *Fake) vector(text string) []float32 {
	v := make([]float32, f.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(f.Dim)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		// Keep empty text off the zero vector so cosine stays defined.
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

var _ Provider = (*Fake)(nil)
