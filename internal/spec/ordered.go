package spec

import (
	"iter"

	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Entries iterates m in insertion order. A nil map yields nothing.
func Entries[V any](m *sequencedmap.Map[string, V]) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for k, v := range m.All() {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Lookup returns the value stored under key.
func Lookup[V any](m *sequencedmap.Map[string, V], key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	return m.Get(key)
}

// Plain converts an ordered value tree into plain maps and slices.
func Plain(v any) any {
	switch t := v.(type) {
	case *sequencedmap.Map[string, any]:
		out := make(map[string]any)
		for k, val := range Entries(t) {
			out[k] = Plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Plain(val)
		}
		return out
	default:
		return v
	}
}
