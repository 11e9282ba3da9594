package spec

import "github.com/speakeasy-api/openapi/sequencedmap"

// In-memory model of a Swagger 2.0 document as seen by the converter.
// Everything here is read-only once Load returns.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	PUT     HttpMethod = "put"
	POST    HttpMethod = "post"
	PATCH   HttpMethod = "patch"
	DELETE  HttpMethod = "delete"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// Parameter locations.
const (
	InQuery    = "query"
	InHeader   = "header"
	InPath     = "path"
	InBody     = "body"
	InFormData = "formData"
)

// Document is the root of a loaded API description.
type Document struct {
	Swagger  string
	Info     Info
	Host     string
	BasePath string
	Schemes  []string
	// Consumes and Produces are nil when the document does not declare them.
	Consumes []string
	Produces []string
	Security []SecurityRequirement

	SecurityDefinitions *sequencedmap.Map[string, *SecurityScheme]
	Parameters          *sequencedmap.Map[string, *Parameter]
	Definitions         *sequencedmap.Map[string, *Schema]
	Responses           *sequencedmap.Map[string, *Response]
	// Paths keeps the order in which paths appear in the source document.
	Paths *sequencedmap.Map[string, *PathItem]
}

type Info struct {
	Title       string
	Description string
	Version     string
}

type PathItem struct {
	Parameters []*Parameter
	Operations map[HttpMethod]*Operation
}

// Operation returns the operation bound to m, or nil.
func (p *PathItem) Operation(m HttpMethod) *Operation {
	if p == nil || p.Operations == nil {
		return nil
	}
	return p.Operations[m]
}

type Operation struct {
	Summary     string
	Description string
	OperationID string
	Tags        []string
	Parameters  []*Parameter
	// Consumes/Produces are nil when absent and non-nil (possibly empty)
	// when the operation overrides the document defaults.
	Consumes []string
	Produces []string
	// Security is nil when the operation inherits the document requirements.
	// A non-nil empty slice means the operation requires no authentication.
	Security  *[]SecurityRequirement
	Responses *sequencedmap.Map[string, *Response]
	Meta      *PostmanMeta
}

// PostmanMeta carries the x-postman-meta vendor extension of an operation.
type PostmanMeta struct {
	// Auth is the literal auth block as an ordered value, nil when absent.
	Auth any
	// Tests holds literal test script lines; nil when not provided.
	Tests []string
}

type Parameter struct {
	Ref         string
	Name        string
	In          string
	Required    bool
	Description string
	Type        string
	Format      string
	Schema      *Schema
}

type Response struct {
	Ref         string
	Description string
	Schema      *Schema
}

// RequiredScheme names a security scheme together with the scopes requested.
type RequiredScheme struct {
	Name   string
	Scopes []string
}

// SecurityRequirement is one alternative of an operation's security list:
// all of its schemes apply together.
type SecurityRequirement []RequiredScheme

// Has reports whether the requirement references the named scheme.
func (r SecurityRequirement) Has(name string) bool {
	for _, s := range r {
		if s.Name == name {
			return true
		}
	}
	return false
}

type SecurityScheme struct {
	Type        string
	Name        string
	In          string
	Description string
}

type SchemaKind int

const (
	KindScalar SchemaKind = iota
	KindReference
	KindObject
	KindArray
)

func (k SchemaKind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// Schema is a JSON schema node. When Ref is set every other field is
// ignored until the reference has been resolved.
type Schema struct {
	Ref                  string
	Type                 string
	Format               string
	Description          string
	Properties           *sequencedmap.Map[string, *Schema]
	Items                *Schema
	AdditionalProperties *Schema
	Example              any
	HasExample           bool
	ReadOnly             bool
	// Raw is the node as it appeared in the source, with mapping order kept.
	Raw any
}

// Kind classifies the node for rendering.
func (s *Schema) Kind() SchemaKind {
	switch {
	case s == nil:
		return KindScalar
	case s.Ref != "":
		return KindReference
	case s.Type == "object" || s.Properties != nil:
		return KindObject
	case s.Type == "array":
		return KindArray
	default:
		return KindScalar
	}
}

// RawValue returns the source representation of the schema. Schemas built
// in code have no Raw value, so one is synthesized from the typed fields.
func (s *Schema) RawValue() any {
	if s == nil {
		return nil
	}
	if s.Raw != nil {
		return s.Raw
	}
	m := sequencedmap.New[string, any]()
	if s.Ref != "" {
		m.Set("$ref", s.Ref)
		return m
	}
	if s.Type != "" {
		m.Set("type", s.Type)
	}
	if s.Format != "" {
		m.Set("format", s.Format)
	}
	if s.Description != "" {
		m.Set("description", s.Description)
	}
	if s.ReadOnly {
		m.Set("readOnly", true)
	}
	if s.Properties != nil {
		props := sequencedmap.New[string, any]()
		for name, p := range Entries(s.Properties) {
			props.Set(name, p.RawValue())
		}
		m.Set("properties", props)
	}
	if s.Items != nil {
		m.Set("items", s.Items.RawValue())
	}
	if s.AdditionalProperties != nil {
		m.Set("additionalProperties", s.AdditionalProperties.RawValue())
	}
	if s.HasExample {
		m.Set("example", s.Example)
	}
	return m
}
