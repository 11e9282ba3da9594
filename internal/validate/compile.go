package validate

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

// compile turns the published schema into a resolved validator. The Postman
// schemas are draft-04, which jsonschema-go does not read, so the few
// draft-04 spellings they use are rewritten to their draft-07 equivalents.
func compile(data []byte) (*jsonschema.Resolved, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("schema not json: %w", err)
	}
	normalizeDraft04(root)
	root["$schema"] = draft07
	cleaned, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("schema not json: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(cleaned, &s); err != nil {
		return nil, fmt.Errorf("schema not usable: %w", err)
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return rs, nil
}

// normalizeDraft04 walks the schema tree in place:
//   - string-valued "id" and "$schema" keywords are dropped;
//   - boolean exclusiveMinimum/exclusiveMaximum are folded into numbers.
func normalizeDraft04(v any) {
	switch t := v.(type) {
	case map[string]any:
		for _, kw := range []string{"id", "$schema"} {
			if _, isString := t[kw].(string); isString {
				delete(t, kw)
			}
		}
		foldExclusive(t, "exclusiveMinimum", "minimum")
		foldExclusive(t, "exclusiveMaximum", "maximum")
		for _, child := range t {
			normalizeDraft04(child)
		}
	case []any:
		for _, child := range t {
			normalizeDraft04(child)
		}
	}
}

func foldExclusive(m map[string]any, exclusive, bound string) {
	flag, ok := m[exclusive].(bool)
	if !ok {
		return
	}
	delete(m, exclusive)
	if !flag {
		return
	}
	if limit, ok := m[bound]; ok {
		m[exclusive] = limit
		delete(m, bound)
	}
}
