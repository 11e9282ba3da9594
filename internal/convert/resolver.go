package convert

import (
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Resolver looks up local references ("#/<table>/<key>") in a document.
// Lookups never fail hard: a miss reports false.
type Resolver struct {
	doc   *spec.Document
	diags *diagnostics
}

func NewResolver(doc *spec.Document) *Resolver {
	return &Resolver{doc: doc}
}

// parseRef splits a local reference into its table and unescaped key.
func parseRef(ref string) (table, key string, ok bool) {
	if !strings.HasPrefix(ref, "#/") {
		return "", "", false
	}
	parts := strings.SplitN(ref[2:], "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	key = strings.ReplaceAll(parts[1], "~1", "/")
	key = strings.ReplaceAll(key, "~0", "~")
	return parts[0], key, true
}

func (r *Resolver) miss(ref string) {
	r.diags.add(DiagDanglingRef, "", "unresolved reference %s", ref)
}

// ResolveSchema looks up a definition. Misses are not recorded here; callers
// report dangling schema references with a location through
// CollectTransitiveRefs.
func (r *Resolver) ResolveSchema(ref string) (*spec.Schema, bool) {
	table, key, ok := parseRef(ref)
	if !ok || table != "definitions" {
		return nil, false
	}
	s, ok := spec.Lookup(r.doc.Definitions, key)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

func (r *Resolver) ResolveParameter(ref string) (*spec.Parameter, bool) {
	table, key, ok := parseRef(ref)
	if !ok || table != "parameters" {
		r.miss(ref)
		return nil, false
	}
	p, ok := spec.Lookup(r.doc.Parameters, key)
	if !ok || p == nil {
		r.miss(ref)
		return nil, false
	}
	return p, true
}

func (r *Resolver) ResolveResponse(ref string) (*spec.Response, bool) {
	table, key, ok := parseRef(ref)
	if !ok || table != "responses" {
		r.miss(ref)
		return nil, false
	}
	resp, ok := spec.Lookup(r.doc.Responses, key)
	if !ok || resp == nil {
		r.miss(ref)
		return nil, false
	}
	return resp, true
}

// CollectTransitiveRefs returns every definition key reachable from s,
// in first-seen order. Each key is entered once, which also breaks cycles.
func (r *Resolver) CollectTransitiveRefs(s *spec.Schema) []string {
	seen := map[string]struct{}{}
	var keys []string
	var walk func(*spec.Schema)
	walk = func(s *spec.Schema) {
		if s == nil {
			return
		}
		if s.Ref != "" {
			_, key, ok := parseRef(s.Ref)
			if !ok {
				return
			}
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
			if target, ok := spec.Lookup(r.doc.Definitions, key); ok {
				walk(target)
			}
			return
		}
		for _, p := range spec.Entries(s.Properties) {
			walk(p)
		}
		walk(s.Items)
		walk(s.AdditionalProperties)
	}
	walk(s)
	return keys
}

// ResolvedValue returns the source value of s with resolvable references
// inlined. A reference already being inlined further up is left as is.
func (r *Resolver) ResolvedValue(s *spec.Schema) any {
	return r.inline(s.RawValue(), map[string]bool{})
}

func (r *Resolver) inline(v any, onPath map[string]bool) any {
	switch t := v.(type) {
	case *sequencedmap.Map[string, any]:
		if ref, ok := refOf(t); ok {
			_, key, parsed := parseRef(ref)
			if !parsed {
				return t
			}
			if onPath[key] {
				r.diags.add(DiagCyclicRef, "", "reference %s is recursive; left unexpanded", ref)
				return t
			}
			target, found := spec.Lookup(r.doc.Definitions, key)
			if !found || target == nil {
				return t
			}
			onPath[key] = true
			out := r.inline(target.RawValue(), onPath)
			delete(onPath, key)
			return out
		}
		out := sequencedmap.New[string, any]()
		for k, val := range spec.Entries(t) {
			out.Set(k, r.inline(val, onPath))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = r.inline(val, onPath)
		}
		return out
	default:
		return v
	}
}

func refOf(m *sequencedmap.Map[string, any]) (string, bool) {
	v, ok := m.Get("$ref")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
