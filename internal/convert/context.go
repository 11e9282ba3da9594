package convert

import (
	"slices"
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/rs/zerolog"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

type baseURL struct {
	protocol string
	host     string
	path     []string
}

// runContext holds everything derived for a single conversion. It is
// created per Convert call and never shared.
type runContext struct {
	doc      *spec.Document
	opts     Options
	dialect  postman.Dialect
	log      zerolog.Logger
	resolver *Resolver
	binder   *SecurityBinder
	base     baseURL
	consumes []string
	produces []string
	security []spec.SecurityRequirement
	diags    *diagnostics
	env      *envCollector
}

func newRunContext(doc *spec.Document, opts Options, dialect postman.Dialect) *runContext {
	diags := &diagnostics{}
	rc := &runContext{
		doc:      doc,
		opts:     opts,
		dialect:  dialect,
		log:      opts.Logger,
		resolver: &Resolver{doc: doc, diags: diags},
		consumes: doc.Consumes,
		produces: doc.Produces,
		security: doc.Security,
		diags:    diags,
		env:      newEnvCollector(opts.EnvironmentName != ""),
	}
	rc.binder = NewSecurityBinder(doc.SecurityDefinitions, dialect.AuthStyle, rc.log)
	rc.binder.onVariable = rc.env.add
	rc.base = baseURL{
		protocol: "http",
		host:     firstNonEmpty(opts.HostOverride, doc.Host, "localhost"),
	}
	if slices.Contains(doc.Schemes, "https") {
		rc.base.protocol = "https"
	}
	for _, seg := range strings.Split(doc.BasePath, "/") {
		if seg != "" {
			rc.base.path = append(rc.base.path, seg)
		}
	}
	return rc
}

// metaAuth turns the literal auth block of an x-postman-meta extension into
// an auth value for the active dialect. An unusable block is reported and
// ignored so the regular security mapping applies.
func (rc *runContext) metaAuth(meta *spec.PostmanMeta, location string) (*postman.Auth, bool) {
	if meta == nil || meta.Auth == nil {
		return nil, false
	}
	block, ok := meta.Auth.(*sequencedmap.Map[string, any])
	if !ok {
		rc.diags.add(DiagInvalidMeta, location, "x-postman-meta auth must be a mapping")
		return nil, false
	}
	rawType, _ := block.Get("type")
	typ, _ := rawType.(string)
	if typ == "" {
		rc.diags.add(DiagInvalidMeta, location, "x-postman-meta auth has no type")
		return nil, false
	}
	if !rc.dialect.SupportsAuth(typ) {
		rc.diags.add(DiagInvalidMeta, location, "x-postman-meta auth type %q is not valid in collection %s", typ, rc.dialect.Version)
		return nil, false
	}
	auth := postman.NewAuth(typ, rc.dialect.AuthStyle)
	switch attrs := lookupValue(block, typ).(type) {
	case nil:
	case *sequencedmap.Map[string, any]:
		for k, v := range spec.Entries(attrs) {
			auth.Attributes = append(auth.Attributes, postman.AuthAttribute{Key: k, Value: spec.Plain(v)})
		}
	case []any:
		for _, entry := range attrs {
			kv, ok := entry.(*sequencedmap.Map[string, any])
			if !ok {
				continue
			}
			key, _ := lookupValue(kv, "key").(string)
			if key == "" {
				continue
			}
			auth.Attributes = append(auth.Attributes, postman.AuthAttribute{Key: key, Value: spec.Plain(lookupValue(kv, "value"))})
		}
	default:
		rc.diags.add(DiagInvalidMeta, location, "x-postman-meta auth.%s must be a mapping or a list", typ)
		return nil, false
	}
	rc.log.Debug().Str("operation", location).Str("type", typ).Msg("using auth from x-postman-meta")
	return auth, true
}

func lookupValue(m *sequencedmap.Map[string, any], key string) any {
	v, _ := m.Get(key)
	return v
}
