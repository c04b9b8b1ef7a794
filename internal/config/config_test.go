package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validPineconeConfig() Config {
	cfg := Default()
	cfg.Index.Name = "docs-test"
	cfg.Pinecone.APIKey = Secret("pc-key")
	cfg.Pinecone.Env = "us-west1-gcp"
	cfg.Embeddings.APIKey = Secret("sk-test")
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Index.Dimension != 1536 {
		t.Errorf("Index.Dimension = %d, want 1536", cfg.Index.Dimension)
	}
	if cfg.Index.Metric != "cosine" {
		t.Errorf("Index.Metric = %q, want cosine", cfg.Index.Metric)
	}
	if cfg.Splitter.ChunkSize != 500 || cfg.Splitter.ChunkOverlap != 50 {
		t.Errorf("Splitter = %+v, want 500/50", cfg.Splitter)
	}
	if cfg.VectorStore.Provider != ProviderPinecone {
		t.Errorf("VectorStore.Provider = %q, want pinecone", cfg.VectorStore.Provider)
	}
	if cfg.Embeddings.Model != "text-embedding-ada-002" {
		t.Errorf("Embeddings.Model = %q", cfg.Embeddings.Model)
	}
	if cfg.Index.ReadyTimeout.Duration() != 2*time.Minute {
		t.Errorf("Index.ReadyTimeout = %v, want 2m", cfg.Index.ReadyTimeout.Duration())
	}
	if cfg.OTEL.Enabled {
		t.Error("OTEL.Enabled = true, want false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid pinecone pod config",
			mutate: func(*Config) {},
		},
		{
			name: "valid pinecone serverless config",
			mutate: func(c *Config) {
				c.Pinecone.Env = ""
				c.Pinecone.Region = "us-east-1"
			},
		},
		{
			name:    "missing index name",
			mutate:  func(c *Config) { c.Index.Name = "" },
			wantErr: "index name is required",
		},
		{
			name:    "missing pinecone api key",
			mutate:  func(c *Config) { c.Pinecone.APIKey = "" },
			wantErr: "PINECONE_API_KEY",
		},
		{
			name:    "missing pinecone environment",
			mutate:  func(c *Config) { c.Pinecone.Env = "" },
			wantErr: "PINECONE_ENV",
		},
		{
			name:    "unknown metric",
			mutate:  func(c *Config) { c.Index.Metric = "manhattan" },
			wantErr: "index metric",
		},
		{
			name:    "non-positive dimension",
			mutate:  func(c *Config) { c.Index.Dimension = 0 },
			wantErr: "dimension must be positive",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.VectorStore.Provider = "milvus" },
			wantErr: `unknown vector store provider "milvus"`,
		},
		{
			name: "memory provider needs no credentials",
			mutate: func(c *Config) {
				c.VectorStore.Provider = ProviderMemory
				c.Pinecone = PineconeConfig{}
			},
		},
		{
			name: "qdrant port out of range",
			mutate: func(c *Config) {
				c.VectorStore.Provider = ProviderQdrant
				c.Qdrant.Port = 70000
			},
			wantErr: "invalid qdrant port",
		},
		{
			name:    "openai without key or base url",
			mutate:  func(c *Config) { c.Embeddings.APIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "openai-compatible base url without key",
			mutate: func(c *Config) {
				c.Embeddings.APIKey = ""
				c.Embeddings.BaseURL = "http://localhost:8080/v1"
			},
		},
		{
			name:    "overlap not smaller than chunk size",
			mutate:  func(c *Config) { c.Splitter.ChunkOverlap = 500 },
			wantErr: "chunk overlap",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.OTEL.Enabled = true
				c.OTEL.Endpoint = ""
			},
			wantErr: "otel endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validPineconeConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("pc-super-secret")

	if s.String() != "[REDACTED]" {
		t.Errorf("String() = %q", s.String())
	}
	if got, _ := s.MarshalJSON(); string(got) != `"[REDACTED]"` {
		t.Errorf("MarshalJSON() = %s", got)
	}
	if s.Value() != "pc-super-secret" {
		t.Errorf("Value() = %q", s.Value())
	}
	if Secret("").String() != "" || Secret("").IsSet() {
		t.Error("empty secret should render empty and report unset")
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", d.Duration())
	}
	if err := d.UnmarshalText([]byte("-1s")); err == nil {
		t.Error("negative duration should be rejected")
	}
}
