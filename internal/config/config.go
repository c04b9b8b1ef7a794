// Package config provides configuration loading for vectorctl.
//
// Configuration is assembled once at startup from defaults, an optional YAML
// file, an optional .env file and the process environment. The resulting
// Config value is immutable and handed to every component explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Vector store providers.
const (
	ProviderPinecone = "pinecone"
	ProviderQdrant   = "qdrant"
	ProviderChromem  = "chromem"
	ProviderMemory   = "memory"
)

// Embedding providers.
const (
	EmbeddingsOpenAI    = "openai"
	EmbeddingsFastEmbed = "fastembed"
)

// Config holds the complete vectorctl configuration.
type Config struct {
	Pinecone    PineconeConfig    `koanf:"pinecone"`
	Index       IndexConfig       `koanf:"index"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Qdrant      QdrantConfig      `koanf:"qdrant"`
	Chromem     ChromemConfig     `koanf:"chromem"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Splitter    SplitterConfig    `koanf:"splitter"`
	Log         LogConfig         `koanf:"log"`
	OTEL        OTELConfig        `koanf:"otel"`
}

// PineconeConfig holds the managed Pinecone service settings.
type PineconeConfig struct {
	APIKey    Secret `koanf:"api_key"`
	Env       string `koanf:"env"`
	Namespace string `koanf:"namespace"`
	// Cloud and Region select a serverless index. With Region empty the index
	// is created as a pod index in Env.
	Cloud   string `koanf:"cloud"`
	Region  string `koanf:"region"`
	PodType string `koanf:"pod_type"`
}

// Serverless reports whether indexes should be created as serverless.
func (p PineconeConfig) Serverless() bool {
	return p.Region != ""
}

// IndexConfig describes the target index.
type IndexConfig struct {
	Name         string   `koanf:"name"`
	Dimension    int      `koanf:"dimension"`
	Metric       string   `koanf:"metric"`
	ReadyTimeout Duration `koanf:"ready_timeout"`
}

// VectorStoreConfig selects the backend.
type VectorStoreConfig struct {
	Provider string `koanf:"provider"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey Secret `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// ChromemConfig holds the embedded chromem-go database settings.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	BatchSize int    `koanf:"batch_size"`
	// Dimensions requests a reduced output size from models that support it.
	// Zero keeps the model default.
	Dimensions     int    `koanf:"dimensions"`
	CacheDir       string `koanf:"cache_dir"`
	ProbeDimension bool   `koanf:"probe_dimension"`
}

// SplitterConfig holds chunking parameters.
type SplitterConfig struct {
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// LogConfig holds the user-facing logging knobs.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// OTELConfig holds OpenTelemetry export settings.
type OTELConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"`
	Protocol     string  `koanf:"protocol"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		Pinecone: PineconeConfig{
			Cloud:   "aws",
			PodType: "p1.x1",
		},
		Index: IndexConfig{
			Dimension:    1536,
			Metric:       "cosine",
			ReadyTimeout: Duration(2 * time.Minute),
		},
		VectorStore: VectorStoreConfig{
			Provider: ProviderPinecone,
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Chromem: ChromemConfig{
			Path:     "~/.local/share/vectorctl/chromem",
			Compress: false,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  EmbeddingsOpenAI,
			Model:     "text-embedding-ada-002",
			BatchSize: 512,
		},
		Splitter: SplitterConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		OTEL: OTELConfig{
			Enabled:      false,
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "vectorctl",
			SamplingRate: 1.0,
		},
	}
}

// Validate checks the configuration for the selected providers.
//
// Returns an error wrapping ErrInvalidConfig if:
//   - the index name is empty
//   - the vector store or embedding provider is unknown
//   - required credentials for the selected provider are missing
//   - chunking or dimension parameters are out of range
func (c Config) Validate() error {
	var problems []string

	if c.Index.Name == "" {
		problems = append(problems, "index name is required (PINECODE_INDEX or INDEX_NAME)")
	}
	if c.Index.Dimension <= 0 {
		problems = append(problems, fmt.Sprintf("index dimension must be positive, got %d", c.Index.Dimension))
	}
	switch c.Index.Metric {
	case "cosine", "dotproduct", "euclidean":
	default:
		problems = append(problems, fmt.Sprintf("index metric must be cosine, dotproduct or euclidean, got %q", c.Index.Metric))
	}

	switch c.VectorStore.Provider {
	case ProviderPinecone:
		if !c.Pinecone.APIKey.IsSet() {
			problems = append(problems, "pinecone api key is required (PINECONE_API_KEY)")
		}
		if c.Pinecone.Env == "" && c.Pinecone.Region == "" {
			problems = append(problems, "pinecone environment or region is required (PINECONE_ENV or PINECONE_REGION)")
		}
	case ProviderQdrant:
		if c.Qdrant.Host == "" {
			problems = append(problems, "qdrant host is required")
		}
		if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid qdrant port: %d", c.Qdrant.Port))
		}
	case ProviderChromem:
		if c.Chromem.Path == "" {
			problems = append(problems, "chromem path is required")
		}
	case ProviderMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown vector store provider %q", c.VectorStore.Provider))
	}

	switch c.Embeddings.Provider {
	case EmbeddingsOpenAI:
		if !c.Embeddings.APIKey.IsSet() && c.Embeddings.BaseURL == "" {
			problems = append(problems, "openai api key is required (OPENAI_API_KEY) unless embeddings base url is set")
		}
	case EmbeddingsFastEmbed:
	default:
		problems = append(problems, fmt.Sprintf("unknown embeddings provider %q", c.Embeddings.Provider))
	}
	if c.Embeddings.BatchSize <= 0 {
		problems = append(problems, "embeddings batch size must be positive")
	}

	if c.Splitter.ChunkSize <= 0 {
		problems = append(problems, "splitter chunk size must be positive")
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		problems = append(problems, fmt.Sprintf("splitter chunk overlap must be in [0, chunk size), got %d", c.Splitter.ChunkOverlap))
	}

	if c.OTEL.Enabled && c.OTEL.Endpoint == "" {
		problems = append(problems, "otel endpoint is required when telemetry is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
