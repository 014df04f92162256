package testutil

import (
	"encoding/json"
	"strings"
	"testing"
)

// volatileFields differ between otherwise identical runs.
var volatileFields = map[string]bool{
	"runId":         true,
	"generatedAt":   true,
	"startedAt":     true,
	"durationMs":    true,
	"referenceTime": true,
	"buildDate":     true,
	"commit":        true,
}

// NormalizeJSON decodes data, drops volatile fields and replaces root with "<repo>".
func NormalizeJSON(t *testing.T, data []byte, root string) any {
	t.Helper()

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode JSON: %v\n%s", err, data)
	}
	return normalizeValue(decoded, root)
}

// SameJSON reports whether two JSON documents are equal after normalization.
func SameJSON(t *testing.T, a, b []byte, root string) bool {
	t.Helper()

	na, err := json.Marshal(NormalizeJSON(t, a, root))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	nb, err := json.Marshal(NormalizeJSON(t, b, root))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	return string(na) == string(nb)
}

func normalizeValue(v any, root string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if volatileFields[k] {
				continue
			}
			out[k] = normalizeValue(inner, root)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner, root)
		}
		return out
	case string:
		if root != "" {
			val = strings.ReplaceAll(val, root, "<repo>")
		}
		return strings.ReplaceAll(val, "\\", "/")
	default:
		return v
	}
}
