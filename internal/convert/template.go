package convert

import (
	"encoding/json"

	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// MaxTemplateDepth bounds how deep nested objects and arrays are rendered.
const MaxTemplateDepth = 32

const emptyTemplate = "{}"

// RenderTemplate produces an example JSON body for s, indented with four
// spaces. Recursive references and anything nested deeper than
// MaxTemplateDepth render as {}.
func (r *Resolver) RenderTemplate(s *spec.Schema, depth int) string {
	t := &templater{r: r, onPath: map[string]bool{}}
	text, err := prettyJSON(t.value(s, depth))
	if t.truncated {
		r.diags.add(DiagTemplateDepth, "", "body template truncated below depth %d", MaxTemplateDepth)
	}
	if err != nil {
		return emptyTemplate
	}
	return text
}

type templater struct {
	r         *Resolver
	onPath    map[string]bool
	truncated bool
}

func emptyObject() *sequencedmap.Map[string, any] {
	return sequencedmap.New[string, any]()
}

func (t *templater) value(s *spec.Schema, depth int) any {
	if s == nil {
		return emptyObject()
	}
	if depth > MaxTemplateDepth {
		t.truncated = true
		return emptyObject()
	}
	if s.HasExample && s.Example != nil {
		return s.Example
	}
	switch s.Kind() {
	case spec.KindReference:
		_, key, ok := parseRef(s.Ref)
		if !ok || t.onPath[key] {
			return emptyObject()
		}
		target, found := t.r.ResolveSchema(s.Ref)
		if !found {
			return emptyObject()
		}
		t.onPath[key] = true
		defer delete(t.onPath, key)
		return t.value(target, depth)
	case spec.KindObject:
		obj := emptyObject()
		for name, prop := range spec.Entries(s.Properties) {
			if prop == nil || t.readOnly(prop) {
				continue
			}
			obj.Set(name, t.value(prop, depth+1))
		}
		return obj
	case spec.KindArray:
		if s.Items == nil {
			return []any{}
		}
		return []any{t.value(s.Items, depth+1)}
	default:
		return scalarDefault(s.Type)
	}
}

// readOnly checks the property itself, or its target when it is a reference.
func (t *templater) readOnly(s *spec.Schema) bool {
	if s.ReadOnly {
		return true
	}
	if s.Ref != "" {
		if target, ok := t.r.ResolveSchema(s.Ref); ok {
			return target.ReadOnly
		}
	}
	return false
}

func scalarDefault(typ string) any {
	switch typ {
	case "integer":
		return 0
	case "number":
		return json.Number("0.0")
	case "boolean":
		return true
	case "string":
		return ""
	default:
		return emptyObject()
	}
}
