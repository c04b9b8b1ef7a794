package embeddings

import "errors"

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmbeddingFailed indicates the provider could not produce vectors.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)
