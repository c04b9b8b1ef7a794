// Package splitter cuts documents into overlapping chunks for embedding.
package splitter

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// Defaults match the chunking the index was originally built with.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// ErrInvalidParams is returned for a non-positive size or an overlap outside
// [0, size).
var ErrInvalidParams = errors.New("invalid splitter parameters")

// Splitter wraps a recursive character splitter. Separators are tried in the
// order "\n\n", "\n", " ", "". No chunk is longer than the chunk size.
type Splitter struct {
	rc textsplitter.RecursiveCharacter
	// strict re-splits oversize chunks without overlap.
	strict textsplitter.RecursiveCharacter
}

var _ textsplitter.TextSplitter = (*Splitter)(nil)

// New creates a Splitter from cfg. Zero values fall back to the defaults.
func New(cfg config.SplitterConfig) (*Splitter, error) {
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if size == 0 {
		size = DefaultChunkSize
	}
	if size < 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", ErrInvalidParams, size, overlap)
	}
	return &Splitter{
		rc: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
		strict: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(0),
		),
	}, nil
}

// Default returns a Splitter with a 500 character chunk and 50 overlap.
func Default() *Splitter {
	s, _ := New(config.SplitterConfig{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap})
	return s
}

// SplitText splits one text.
func (s *Splitter) SplitText(text string) ([]string, error) {
	chunks, err := s.rc.SplitText(text)
	if err != nil {
		return nil, err
	}
	return s.fit(chunks)
}

// fit re-splits chunks longer than the chunk size. The merge step can go one
// separator over when a single piece is carried into the next chunk as
// overlap. Without overlap every merged chunk stays within the size.
func (s *Splitter) fit(chunks []string) ([]string, error) {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if s.rc.LenFunc(c) <= s.rc.ChunkSize {
			out = append(out, c)
			continue
		}
		parts, err := s.strict.SplitText(c)
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}
	return out, nil
}

// Split splits every document. Each chunk carries a copy of its parent's
// metadata.
func (s *Splitter) Split(docs []schema.Document) ([]schema.Document, error) {
	chunks, err := textsplitter.SplitDocuments(s, docs)
	if err != nil {
		return nil, fmt.Errorf("splitting documents: %w", err)
	}
	return chunks, nil
}

// ChunkSize returns the configured maximum chunk length in characters.
func (s *Splitter) ChunkSize() int {
	return s.rc.ChunkSize
}

// ChunkOverlap returns the configured overlap in characters.
func (s *Splitter) ChunkOverlap() int {
	return s.rc.ChunkOverlap
}
