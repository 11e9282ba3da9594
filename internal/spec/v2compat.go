package spec

import "strings"

// preprocessV2ForCompatibility rewrites operations that Swagger 2 tooling
// tolerates but kin-openapi refuses to convert, so that semantic validation
// can run on the rest of the document. The decoded model is never built from
// this tree; only validation sees it.
//   - Several body parameters are merged into one object-typed body.
//   - Body parameters mixed with formData become formData fields, and the
//     operation is marked as consuming multipart/form-data.
//
// The tree is modified in place. It reports whether anything changed.
func preprocessV2ForCompatibility(doc map[string]any) bool {
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return false
	}
	modified := false

	for _, pim := range paths {
		pi, ok := pim.(map[string]any)
		if !ok {
			continue
		}
		for method, opm := range pi {
			if _, known := pathItemMethods[strings.ToLower(method)]; !known {
				continue
			}
			op, ok := opm.(map[string]any)
			if !ok {
				continue
			}
			params, ok := op["parameters"].([]any)
			if !ok || len(params) == 0 {
				continue
			}

			bodyCount := 0
			hasFormData := false
			for _, p := range params {
				pm, _ := p.(map[string]any)
				switch {
				case pm == nil:
				case strings.EqualFold(asString(pm["in"]), InBody):
					bodyCount++
				case strings.EqualFold(asString(pm["in"]), InFormData):
					hasFormData = true
				}
			}
			if bodyCount == 0 {
				continue
			}

			if hasFormData {
				newParams := make([]any, 0, len(params))
				for _, p := range params {
					pm, _ := p.(map[string]any)
					if pm == nil {
						continue
					}
					if strings.EqualFold(asString(pm["in"]), InBody) {
						newParams = append(newParams, formDataFromBodyParam(pm))
						continue
					}
					newParams = append(newParams, pm)
				}
				op["parameters"] = newParams
				consumes, _ := op["consumes"].([]any)
				if !containsString(consumes, "multipart/form-data") {
					op["consumes"] = append(consumes, "multipart/form-data")
				}
				modified = true
				continue
			}

			if bodyCount > 1 {
				props := map[string]any{}
				required := make([]any, 0)
				newParams := make([]any, 0, len(params))
				for _, p := range params {
					pm, _ := p.(map[string]any)
					if pm == nil {
						continue
					}
					if !strings.EqualFold(asString(pm["in"]), InBody) {
						newParams = append(newParams, p)
						continue
					}
					name := asString(pm["name"])
					if name == "" {
						name = "field"
					}
					schema := extractSchemaFromParam(pm)
					if schema == nil {
						schema = map[string]any{"type": "string"}
					}
					props[name] = schema
					if rb, _ := pm["required"].(bool); rb {
						required = append(required, name)
					}
				}
				bodySchema := map[string]any{"type": "object", "properties": props}
				if len(required) > 0 {
					bodySchema["required"] = required
				}
				merged := map[string]any{"in": InBody, "name": "body", "schema": bodySchema}
				op["parameters"] = append([]any{merged}, newParams...)
				modified = true
			}
		}
	}
	return modified
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

func extractSchemaFromParam(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t, _ := pm["type"].(string)
	if t == "" {
		return nil
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f, ok := pm["format"].(string); ok && f != "" {
		m["format"] = f
	}
	return m
}

func formDataFromBodyParam(pm map[string]any) map[string]any {
	name := asString(pm["name"])
	if name == "" {
		name = "field"
	}
	out := map[string]any{"in": InFormData, "name": name}
	if desc := asString(pm["description"]); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}
	var typ, format string
	var items any
	if sch, ok := pm["schema"].(map[string]any); ok {
		typ = asString(sch["type"])
		format = asString(sch["format"])
		if it, ok := sch["items"].(map[string]any); ok {
			items = it
		}
		// formData cannot carry a referenced object.
		if typ == "" && sch["$ref"] != nil {
			typ = "string"
		}
	}
	if typ == "" {
		typ = asString(pm["type"])
		format = asString(pm["format"])
		if it, ok := pm["items"].(map[string]any); ok {
			items = it
		}
	}
	if typ == "" || typ == "object" {
		typ = "string"
	}
	out["type"] = typ
	if items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}
