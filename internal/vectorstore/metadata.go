package vectorstore

import (
	"fmt"
	"maps"
	"strconv"
)

// withText returns a copy of metadata with the chunk text stored under TextKey.
func withText(metadata map[string]any, text string) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	maps.Copy(out, metadata)
	out[TextKey] = text
	return out
}

// splitText removes TextKey from metadata and returns it separately.
func splitText(metadata map[string]any) (string, map[string]any) {
	out := make(map[string]any, len(metadata))
	var text string
	for k, v := range metadata {
		if k == TextKey {
			text, _ = v.(string)
			continue
		}
		out[k] = v
	}
	return text, out
}

// normalizeValue maps loader metadata onto the scalar types every backend
// can store: string, int64, float64 and bool.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool, int64, float64:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// stringifyMetadata converts metadata to the string map chromem-go stores.
func stringifyMetadata(metadata map[string]any) map[string]string {
	if metadata == nil {
		return nil
	}

	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := normalizeValue(v).(type) {
		case nil:
			continue
		case string:
			result[k] = val
		case int64:
			result[k] = strconv.FormatInt(val, 10)
		case float64:
			result[k] = strconv.FormatFloat(val, 'g', -1, 64)
		case bool:
			result[k] = strconv.FormatBool(val)
		}
	}
	return result
}

// parseMetadata converts chromem-go string metadata back into typed values.
// Integers are restored as int so loader metadata such as "page" round-trips.
func parseMetadata(metadata map[string]string) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}

	result := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if n, err := strconv.Atoi(v); err == nil && strconv.Itoa(n) == v {
			result[k] = n
			continue
		}
		result[k] = v
	}
	return result
}
