package logging

import (
	"testing"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.WarnLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Output.Stderr)
	assert.False(t, cfg.Output.OTEL)
	assert.True(t, cfg.Redaction.Enabled)
	assert.Contains(t, cfg.Redaction.Fields, "api_key")
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "format must be"},
		{"no outputs", func(c *Config) { c.Output = OutputConfig{} }, "at least one output"},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"("} }, "invalid redaction pattern"},
		{"empty field key", func(c *Config) { c.Fields = map[string]string{"": "x"} }, "field key cannot be empty"},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"k": ""} }, `field "k" has empty value`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(config.LogConfig{Level: "debug", Format: "json"}, true)
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Output.OTEL)
	assert.True(t, cfg.Caller)

	cfg, err = FromAppConfig(config.LogConfig{Level: "TRACE"}, false)
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)

	_, err = FromAppConfig(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)
}
