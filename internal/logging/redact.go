package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/vectorctl/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	redactedValue   = "[REDACTED]"
	redactedPattern = "[REDACTED:pattern]"
)

// Secret logs a config.Secret as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// RedactedString logs val as a redaction marker carrying its length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// redactor decides what must not reach the output.
type redactor struct {
	keys     map[string]bool
	patterns []*regexp.Regexp
}

func (r *redactor) key(k string) bool {
	return r.keys[strings.ToLower(k)]
}

func (r *redactor) value(v string) bool {
	for _, re := range r.patterns {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// RedactingEncoder wraps a zapcore.Encoder and masks sensitive fields by key
// name and string values by pattern.
type RedactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

// NewRedactingEncoder wraps base with the rules in cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	r := &redactor{keys: map[string]bool{}}
	if cfg.Enabled {
		for _, f := range cfg.Fields {
			r.keys[strings.ToLower(f)] = true
		}
		for _, p := range cfg.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
			}
			r.patterns = append(r.patterns, re)
		}
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

func (e *RedactingEncoder) AddString(key, val string) {
	switch {
	case e.r.key(key):
		e.Encoder.AddString(key, redactedValue)
	case e.r.value(val):
		e.Encoder.AddString(key, redactedPattern)
	default:
		e.Encoder.AddString(key, val)
	}
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	e.AddString(key, string(val))
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.r.key(key) {
		e.Encoder.AddString(key, redactedValue)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected masks the whole value when the key is sensitive.
func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, redactedValue)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// EncodeEntry masks per-entry fields. The wrapped encoder writes those fields
// on its own clone, bypassing the Add* overrides above.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	masked := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		switch {
		case e.r.key(f.Key):
			masked[i] = zap.String(f.Key, redactedValue)
		case f.Type == zapcore.StringType && e.r.value(f.String):
			masked[i] = zap.String(f.Key, redactedPattern)
		default:
			masked[i] = f
		}
	}
	return e.Encoder.EncodeEntry(ent, masked)
}

// Clone creates a copy of the encoder.
func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
