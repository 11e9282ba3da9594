package convert

import (
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/rs/zerolog"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// SelectRequirement picks the security alternative to apply: the first one
// naming preferred when set, otherwise the first one.
func SelectRequirement(reqs []spec.SecurityRequirement, preferred string) (spec.SecurityRequirement, bool) {
	if len(reqs) == 0 {
		return nil, false
	}
	if preferred != "" {
		for _, r := range reqs {
			if r.Has(preferred) {
				return r, true
			}
		}
	}
	return reqs[0], true
}

// SecurityBinder maps security requirements onto requests using
// placeholder variables named after the scheme.
type SecurityBinder struct {
	schemes *sequencedmap.Map[string, *spec.SecurityScheme]
	style   postman.AuthStyle
	log     zerolog.Logger
	// onVariable is told about every placeholder variable introduced.
	onVariable func(string)
}

func NewSecurityBinder(schemes *sequencedmap.Map[string, *spec.SecurityScheme], style postman.AuthStyle, log zerolog.Logger) *SecurityBinder {
	return &SecurityBinder{schemes: schemes, style: style, log: log}
}

func (b *SecurityBinder) variable(name string) string {
	if b.onVariable != nil {
		b.onVariable(name)
	}
	return placeholder(name)
}

// Apply adds headers, query entries or an auth block to req for every scheme
// of requirement that is defined in the document.
func (b *SecurityBinder) Apply(requirement spec.SecurityRequirement, req *postman.Request) {
	for _, rs := range requirement {
		scheme, ok := spec.Lookup(b.schemes, rs.Name)
		if !ok || scheme == nil {
			b.log.Debug().Str("scheme", rs.Name).Msg("security scheme not defined; skipping")
			continue
		}
		switch scheme.Type {
		case "oauth2":
			req.Header = append(req.Header, postman.Header{
				Key:         "Authorization",
				Value:       "Bearer " + b.variable(rs.Name+"_access_token"),
				Description: scheme.Description,
			})
			if len(rs.Scopes) > 0 {
				req.Auth = postman.NewAuth(postman.AuthOAuth2, b.style,
					postman.AuthAttribute{Key: "scope", Value: strings.Join(rs.Scopes, " ")})
			}
		case "basic":
			req.Auth = postman.NewAuth(postman.AuthBasic, b.style,
				postman.AuthAttribute{Key: "username", Value: b.variable(rs.Name + "_username")},
				postman.AuthAttribute{Key: "password", Value: b.variable(rs.Name + "_password")})
		case "apiKey":
			value := b.variable(rs.Name + "_apikey")
			if scheme.In == spec.InHeader {
				req.Header = append(req.Header, postman.Header{Key: scheme.Name, Value: value, Description: scheme.Description})
			} else {
				req.URL.Query = append(req.URL.Query, postman.QueryParam{Key: scheme.Name, Value: value, Description: scheme.Description})
			}
		default:
			b.log.Debug().Str("scheme", rs.Name).Str("type", scheme.Type).Msg("unsupported security type; ignoring")
		}
	}
}

func placeholder(name string) string {
	return "{{" + name + "}}"
}
