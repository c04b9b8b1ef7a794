package embeddings

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel is the model the original ingestion used.
const DefaultOpenAIModel = "text-embedding-ada-002"

var openAIDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	Model     string
	BaseURL   string // empty for api.openai.com
	APIKey    string
	BatchSize int
	// Dimensions overrides the model's output size (text-embedding-3-*).
	Dimensions int
	HTTPClient *http.Client
}

// OpenAIProvider embeds through the OpenAI embeddings API.
type OpenAIProvider struct {
	*embeddings.EmbedderImpl
	model     string
	dimension int
}

// NewOpenAIProvider creates an OpenAI embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	dim := cfg.Dimensions
	if dim == 0 {
		known, ok := openAIDimensions[cfg.Model]
		if !ok {
			return nil, fmt.Errorf("%w: unknown dimension for model %q; set embeddings.dimensions", ErrInvalidConfig, cfg.Model)
		}
		dim = known
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: api key required for api.openai.com", ErrInvalidConfig)
		}
		// Compatible local servers ignore the token but the client requires one.
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Dimensions > 0 {
		opts = append(opts, openai.WithEmbeddingDimensions(cfg.Dimensions))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embOpts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if cfg.BatchSize > 0 {
		embOpts = append(embOpts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(llm, embOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIProvider{EmbedderImpl: embedder, model: cfg.Model, dimension: dim}, nil
}

// Dimension returns the configured or model-default output size.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Model returns the embedding model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Close is a no-op; the client holds no resources beyond its HTTP transport.
func (p *OpenAIProvider) Close() error {
	return nil
}
