package spec

import (
	"fmt"
	"iter"
	"strings"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

const metaKey = "x-postman-meta"

// decodeError reports a structurally invalid node.
type decodeError struct {
	Pointer string
	Line    int
	Msg     string
}

func (e *decodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Pointer, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Pointer, e.Msg)
}

// decodeDocument builds a Document from raw YAML or JSON bytes. Mapping order
// is preserved for paths, properties and every other keyed table.
func decodeDocument(raw []byte) (*Document, error) {
	root, err := parseNode(raw)
	if err != nil {
		return nil, err
	}
	if root.Kind != yaml.MappingNode {
		return nil, &decodeError{Pointer: "#", Line: root.Line, Msg: "document root must be a mapping"}
	}
	d := &decoder{}
	doc := d.document(root)
	if d.err != nil {
		return nil, d.err
	}
	return doc, nil
}

func parseNode(raw []byte) (*yaml.Node, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	root := deref(&n)
	if root == nil {
		return nil, fmt.Errorf("parse spec: empty document")
	}
	return root, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// pairs iterates the key/value pairs of a mapping node.
func pairs(n *yaml.Node) iter.Seq2[string, *yaml.Node] {
	return func(yield func(string, *yaml.Node) bool) {
		n = deref(n)
		if n == nil || n.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if !yield(n.Content[i].Value, deref(n.Content[i+1])) {
				return
			}
		}
	}
}

type decoder struct {
	err error
}

func (d *decoder) fail(pointer string, n *yaml.Node, format string, args ...any) {
	if d.err != nil {
		return
	}
	line := 0
	if n != nil {
		line = n.Line
	}
	d.err = &decodeError{Pointer: pointer, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) mapping(pointer string, n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.MappingNode {
		d.fail(pointer, n, "expected a mapping")
		return false
	}
	return true
}

func (d *decoder) document(n *yaml.Node) *Document {
	doc := &Document{
		SecurityDefinitions: sequencedmap.New[string, *SecurityScheme](),
		Parameters:          sequencedmap.New[string, *Parameter](),
		Definitions:         sequencedmap.New[string, *Schema](),
		Responses:           sequencedmap.New[string, *Response](),
	}
	for key, v := range pairs(n) {
		ptr := "#/" + escapePointer(key)
		switch key {
		case "swagger":
			doc.Swagger = scalar(v)
		case "info":
			if d.mapping(ptr, v) {
				for k, iv := range pairs(v) {
					switch k {
					case "title":
						doc.Info.Title = scalar(iv)
					case "description":
						doc.Info.Description = scalar(iv)
					case "version":
						doc.Info.Version = scalar(iv)
					}
				}
			}
		case "host":
			doc.Host = scalar(v)
		case "basePath":
			doc.BasePath = scalar(v)
		case "schemes":
			doc.Schemes = d.stringList(ptr, v)
		case "consumes":
			doc.Consumes = d.stringList(ptr, v)
		case "produces":
			doc.Produces = d.stringList(ptr, v)
		case "security":
			doc.Security = d.security(ptr, v)
		case "securityDefinitions":
			if d.mapping(ptr, v) {
				for name, sv := range pairs(v) {
					doc.SecurityDefinitions.Set(name, d.securityScheme(ptr+"/"+escapePointer(name), sv))
				}
			}
		case "parameters":
			if d.mapping(ptr, v) {
				for name, pv := range pairs(v) {
					doc.Parameters.Set(name, d.parameter(ptr+"/"+escapePointer(name), pv))
				}
			}
		case "definitions":
			if d.mapping(ptr, v) {
				for name, sv := range pairs(v) {
					doc.Definitions.Set(name, d.schema(ptr+"/"+escapePointer(name), sv))
				}
			}
		case "responses":
			if d.mapping(ptr, v) {
				for name, rv := range pairs(v) {
					doc.Responses.Set(name, d.response(ptr+"/"+escapePointer(name), rv))
				}
			}
		case "paths":
			if d.mapping(ptr, v) {
				doc.Paths = sequencedmap.New[string, *PathItem]()
				for path, pv := range pairs(v) {
					if strings.HasPrefix(path, "x-") {
						continue
					}
					doc.Paths.Set(path, d.pathItem(ptr+"/"+escapePointer(path), pv))
				}
			}
		}
	}
	return doc
}

var pathItemMethods = map[string]HttpMethod{
	"get":     GET,
	"put":     PUT,
	"post":    POST,
	"patch":   PATCH,
	"delete":  DELETE,
	"head":    HEAD,
	"options": OPTIONS,
	"trace":   TRACE,
}

func (d *decoder) pathItem(ptr string, n *yaml.Node) *PathItem {
	item := &PathItem{Operations: map[HttpMethod]*Operation{}}
	if !d.mapping(ptr, n) {
		return item
	}
	for key, v := range pairs(n) {
		if key == "parameters" {
			item.Parameters = d.parameters(ptr+"/parameters", v)
			continue
		}
		if m, ok := pathItemMethods[strings.ToLower(key)]; ok {
			item.Operations[m] = d.operation(ptr+"/"+key, v)
		}
	}
	return item
}

func (d *decoder) operation(ptr string, n *yaml.Node) *Operation {
	op := &Operation{}
	if !d.mapping(ptr, n) {
		return op
	}
	for key, v := range pairs(n) {
		switch key {
		case "summary":
			op.Summary = scalar(v)
		case "description":
			op.Description = scalar(v)
		case "operationId":
			op.OperationID = scalar(v)
		case "tags":
			op.Tags = d.stringList(ptr+"/tags", v)
		case "parameters":
			op.Parameters = d.parameters(ptr+"/parameters", v)
		case "consumes":
			op.Consumes = nonNil(d.stringList(ptr+"/consumes", v))
		case "produces":
			op.Produces = nonNil(d.stringList(ptr+"/produces", v))
		case "security":
			reqs := d.security(ptr+"/security", v)
			if reqs == nil {
				reqs = []SecurityRequirement{}
			}
			op.Security = &reqs
		case "responses":
			if d.mapping(ptr+"/responses", v) {
				op.Responses = sequencedmap.New[string, *Response]()
				for code, rv := range pairs(v) {
					if strings.HasPrefix(code, "x-") {
						continue
					}
					op.Responses.Set(code, d.response(ptr+"/responses/"+escapePointer(code), rv))
				}
			}
		case metaKey:
			op.Meta = d.meta(ptr+"/"+metaKey, v)
		}
	}
	return op
}

func (d *decoder) meta(ptr string, n *yaml.Node) *PostmanMeta {
	if !d.mapping(ptr, n) {
		return nil
	}
	meta := &PostmanMeta{}
	for key, v := range pairs(n) {
		switch key {
		case "auth":
			meta.Auth = orderedValue(v)
		case "tests":
			switch v.Kind {
			case yaml.SequenceNode:
				meta.Tests = nonNil(d.stringList(ptr+"/tests", v))
			case yaml.ScalarNode:
				meta.Tests = strings.Split(v.Value, "\n")
			default:
				d.fail(ptr+"/tests", v, "expected a list of script lines")
			}
		}
	}
	return meta
}

func (d *decoder) parameters(ptr string, n *yaml.Node) []*Parameter {
	if n.Kind != yaml.SequenceNode {
		d.fail(ptr, n, "expected a list")
		return nil
	}
	out := make([]*Parameter, 0, len(n.Content))
	for i, pv := range n.Content {
		out = append(out, d.parameter(fmt.Sprintf("%s/%d", ptr, i), deref(pv)))
	}
	return out
}

func (d *decoder) parameter(ptr string, n *yaml.Node) *Parameter {
	p := &Parameter{}
	if !d.mapping(ptr, n) {
		return p
	}
	for key, v := range pairs(n) {
		switch key {
		case "$ref":
			p.Ref = scalar(v)
		case "name":
			p.Name = scalar(v)
		case "in":
			p.In = scalar(v)
		case "required":
			p.Required = boolean(v)
		case "description":
			p.Description = scalar(v)
		case "type":
			p.Type = scalar(v)
		case "format":
			p.Format = scalar(v)
		case "schema":
			p.Schema = d.schema(ptr+"/schema", v)
		}
	}
	if p.Ref == "" && (p.Name == "" || p.In == "") {
		d.fail(ptr, n, "parameter requires name and in")
	}
	return p
}

func (d *decoder) response(ptr string, n *yaml.Node) *Response {
	r := &Response{}
	if !d.mapping(ptr, n) {
		return r
	}
	for key, v := range pairs(n) {
		switch key {
		case "$ref":
			r.Ref = scalar(v)
		case "description":
			r.Description = scalar(v)
		case "schema":
			r.Schema = d.schema(ptr+"/schema", v)
		}
	}
	return r
}

func (d *decoder) schema(ptr string, n *yaml.Node) *Schema {
	s := &Schema{}
	if !d.mapping(ptr, n) {
		return s
	}
	s.Raw = orderedValue(n)
	for key, v := range pairs(n) {
		switch key {
		case "$ref":
			s.Ref = scalar(v)
		case "type":
			// Some documents declare a list of types; the first one wins.
			if v.Kind == yaml.SequenceNode && len(v.Content) > 0 {
				s.Type = scalar(deref(v.Content[0]))
			} else {
				s.Type = scalar(v)
			}
		case "format":
			s.Format = scalar(v)
		case "description":
			s.Description = scalar(v)
		case "readOnly":
			s.ReadOnly = boolean(v)
		case "example":
			s.Example = orderedValue(v)
			s.HasExample = true
		case "properties":
			if d.mapping(ptr+"/properties", v) {
				s.Properties = sequencedmap.New[string, *Schema]()
				for name, pv := range pairs(v) {
					s.Properties.Set(name, d.schema(ptr+"/properties/"+escapePointer(name), pv))
				}
			}
		case "items":
			switch v.Kind {
			case yaml.MappingNode:
				s.Items = d.schema(ptr+"/items", v)
			case yaml.SequenceNode:
				if len(v.Content) > 0 {
					s.Items = d.schema(ptr+"/items/0", deref(v.Content[0]))
				}
			}
		case "additionalProperties":
			if v.Kind == yaml.MappingNode {
				s.AdditionalProperties = d.schema(ptr+"/additionalProperties", v)
			}
		}
	}
	return s
}

func (d *decoder) securityScheme(ptr string, n *yaml.Node) *SecurityScheme {
	s := &SecurityScheme{}
	if !d.mapping(ptr, n) {
		return s
	}
	for key, v := range pairs(n) {
		switch key {
		case "type":
			s.Type = scalar(v)
		case "name":
			s.Name = scalar(v)
		case "in":
			s.In = scalar(v)
		case "description":
			s.Description = scalar(v)
		}
	}
	return s
}

func (d *decoder) security(ptr string, n *yaml.Node) []SecurityRequirement {
	if n.Kind != yaml.SequenceNode {
		d.fail(ptr, n, "expected a list of security requirements")
		return nil
	}
	out := make([]SecurityRequirement, 0, len(n.Content))
	for i, rv := range n.Content {
		rv = deref(rv)
		rptr := fmt.Sprintf("%s/%d", ptr, i)
		if !d.mapping(rptr, rv) {
			return out
		}
		req := SecurityRequirement{}
		for name, scopes := range pairs(rv) {
			req = append(req, RequiredScheme{Name: name, Scopes: d.stringList(rptr+"/"+escapePointer(name), scopes)})
		}
		out = append(out, req)
	}
	return out
}

func (d *decoder) stringList(ptr string, n *yaml.Node) []string {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		d.fail(ptr, n, "expected a list of strings")
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		out = append(out, scalar(deref(c)))
	}
	return out
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

func boolean(n *yaml.Node) bool {
	var b bool
	if n == nil || n.Decode(&b) != nil {
		return false
	}
	return b
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// orderedValue converts a node into a generic value. Mappings become
// ordered maps so the source key order survives re-encoding.
func orderedValue(n *yaml.Node) any {
	n = deref(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		m := sequencedmap.New[string, any]()
		for k, v := range pairs(n) {
			m.Set(k, orderedValue(v))
		}
		return m
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, orderedValue(c))
		}
		return out
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return n.Value
		}
		return v
	}
}

// plainValue converts a node into JSON-compatible maps and slices. Mapping
// keys are always strings, unlike a direct yaml decode into any.
func plainValue(n *yaml.Node) any {
	n = deref(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for k, v := range pairs(n) {
			m[k] = plainValue(v)
		}
		return m
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, plainValue(c))
		}
		return out
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return n.Value
		}
		return v
	}
}

func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}
