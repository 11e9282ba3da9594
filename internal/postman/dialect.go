package postman

import (
	"fmt"
	"slices"
	"strings"
)

const (
	SchemaV200 = "https://schema.getpostman.com/json/collection/v2.0.0/collection.json"
	SchemaV210 = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
)

// AuthStyle selects how auth attributes are laid out in the output.
type AuthStyle int

const (
	// AuthStyleObject writes {"type": "basic", "basic": {"username": ...}}.
	AuthStyleObject AuthStyle = iota
	// AuthStyleList writes {"type": "basic", "basic": [{"key": ..., "value": ..., "type": "string"}]}.
	AuthStyleList
)

// Dialect describes one supported collection format version.
type Dialect struct {
	Version   string
	SchemaURL string
	AuthStyle AuthStyle
	// Methods lists the operation verbs emitted, in output order.
	Methods []string
	// AuthTypes lists the auth block types the schema accepts.
	AuthTypes []string
}

var baseMethods = []string{"get", "put", "post", "patch", "delete", "head", "options"}

var baseAuthTypes = []string{AuthAWSv4, AuthBasic, AuthBearer, AuthDigest, AuthHawk, AuthNoAuth, AuthOAuth1, AuthOAuth2, AuthNTLM}

var (
	DialectV200 = Dialect{
		Version:   "2.0.0",
		SchemaURL: SchemaV200,
		AuthStyle: AuthStyleObject,
		Methods:   baseMethods,
		AuthTypes: baseAuthTypes,
	}
	DialectV210 = Dialect{
		Version:   "2.1.0",
		SchemaURL: SchemaV210,
		AuthStyle: AuthStyleList,
		Methods:   append(slices.Clone(baseMethods), "trace"),
		AuthTypes: append(slices.Clone(baseAuthTypes), AuthAPIKey, AuthEdgeGrid),
	}
)

// DialectFor resolves a version string such as "2.1.0", "v2.1" or "2.1".
// An empty version selects 2.0.0.
func DialectFor(version string) (Dialect, error) {
	v := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(version)), "v")
	switch v {
	case "", "2", "2.0", "2.0.0":
		return DialectV200, nil
	case "2.1", "2.1.0":
		return DialectV210, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported collection version %q (want 2.0.0 or 2.1.0)", version)
	}
}

// DialectForSchema resolves a dialect from the info.schema URL of a collection.
func DialectForSchema(schemaURL string) (Dialect, bool) {
	switch {
	case strings.Contains(schemaURL, "/v2.1.0/"):
		return DialectV210, true
	case strings.Contains(schemaURL, "/v2.0.0/"):
		return DialectV200, true
	default:
		return Dialect{}, false
	}
}

// SupportsAuth reports whether typ is a valid auth type in this dialect.
func (d Dialect) SupportsAuth(typ string) bool {
	return slices.Contains(d.AuthTypes, typ)
}
