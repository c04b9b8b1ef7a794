package logging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encodeWith(t *testing.T, fields ...zap.Field) string {
	t.Helper()
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, NewDefaultConfig().Redaction)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Unix(0, 0), Message: "msg"}, fields)
	require.NoError(t, err)
	defer buf.Free()
	return buf.String()
}

func TestRedactingEncoder_SensitiveKeys(t *testing.T) {
	out := encodeWith(t, zap.String("api_key", "pc-123456"), zap.String("index", "docs"))

	assert.NotContains(t, out, "pc-123456")
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)
	assert.Contains(t, out, `"index":"docs"`)
}

func TestRedactingEncoder_ValuePatterns(t *testing.T) {
	out := encodeWith(t,
		zap.String("header", "Bearer abc.def.ghi"),
		zap.String("note", "using sk-abcdefghijklmnopqrstu"),
	)

	assert.NotContains(t, out, "abc.def.ghi")
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstu")
	assert.Equal(t, 2, strings.Count(out, "[REDACTED:pattern]"))
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, NewDefaultConfig().Redaction)
	require.NoError(t, err)

	clone := enc.Clone()
	clone.AddString("token", "t-1")
	buf, err := clone.EncodeEntry(zapcore.Entry{Message: "m"}, nil)
	require.NoError(t, err)
	defer buf.Free()

	assert.NotContains(t, buf.String(), "t-1")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, RedactionConfig{Enabled: false})
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m"}, []zapcore.Field{zap.String("api_key", "visible")})
	require.NoError(t, err)
	defer buf.Free()
	assert.Contains(t, buf.String(), "visible")
}

func TestSecretField(t *testing.T) {
	logger := NewTestLogger()
	logger.Info(context.Background(), "connecting", Secret("credential", config.Secret("pc-abcdef")))

	logger.AssertField(t, "connecting", "credential", "[REDACTED:9]")
	logger.AssertNoSecrets(t, "pc-abcdef")
}
