package embeddings

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/fyrsmithlabs/vectorctl/internal/logging"
	"github.com/tmc/langchaingo/embeddings"
)

// Provider is a langchaingo Embedder that knows its output size.
type Provider interface {
	embeddings.Embedder
	// Dimension returns the length of every vector the provider produces.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// Option configures NewProvider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	metrics    *Metrics
	logger     *logging.Logger
}

// WithHTTPClient sets the HTTP client used by remote providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics records OTEL metrics for every embedding call.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger for per-batch trace output.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewProvider creates the provider selected by cfg.Provider.
func NewProvider(cfg config.EmbeddingsConfig, opts ...Option) (Provider, error) {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		p     Provider
		model string
		err   error
	)
	switch cfg.Provider {
	case config.EmbeddingsOpenAI, "":
		model = cfg.Model
		p, err = NewOpenAIProvider(OpenAIConfig{
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey.Value(),
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
			HTTPClient: o.httpClient,
		})
	case config.EmbeddingsFastEmbed:
		model = fastEmbedModelName(cfg.Model)
		p, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    model,
			CacheDir: cfg.CacheDir,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(p, model, o.metrics, o.logger), nil
}

// Wrap adapts any Embedder with a known output size into a Provider.
func Wrap(e embeddings.Embedder, dimension int) Provider {
	return &wrapped{Embedder: e, dimension: dimension}
}

type wrapped struct {
	embeddings.Embedder
	dimension int
}

func (w *wrapped) Dimension() int { return w.dimension }

func (w *wrapped) Close() error { return nil }

// Probe embeds a short text and returns the observed vector length.
func Probe(ctx context.Context, e embeddings.Embedder) (int, error) {
	vec, err := e.EmbedQuery(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("probing embedder: %w", err)
	}
	return len(vec), nil
}
