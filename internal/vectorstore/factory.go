package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
)

// StoreOption configures store construction.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger *logging.Logger
}

// WithLogger sets the logger handed to the store.
func WithLogger(l *logging.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = l
	}
}

// NewStore creates the IndexStore selected by cfg.VectorStore.Provider:
//   - "pinecone" (default): the managed Pinecone service
//   - "qdrant": a Qdrant server over gRPC
//   - "chromem": an embedded chromem-go database persisted at cfg.Chromem.Path
//   - "memory": an in-process chromem-go database, gone on exit
//
// Example usage:
//
//	store, err := vectorstore.NewStore(ctx, cfg, vectorstore.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg config.Config, opts ...StoreOption) (IndexStore, error) {
	o := storeOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("vectorstore")
	readyTimeout := cfg.Index.ReadyTimeout.Duration()

	switch cfg.VectorStore.Provider {
	case config.ProviderPinecone, "":
		store, err := NewPineconeStore(cfg.Pinecone, PineconeOptions{
			ReadyTimeout: readyTimeout,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.ProviderQdrant:
		store, err := NewQdrantStore(ctx, cfg.Qdrant, QdrantOptions{
			ReadyTimeout: readyTimeout,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.ProviderChromem:
		store, err := NewChromemStore(cfg.Chromem, logger)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.ProviderMemory:
		return NewMemoryStore(logger), nil

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider %q (supported: pinecone, qdrant, chromem, memory)",
			ErrInvalidConfig, cfg.VectorStore.Provider)
	}
}
