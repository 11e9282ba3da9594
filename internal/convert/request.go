package convert

import (
	"regexp"
	"slices"
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
)

const (
	mimeURLEncoded = "application/x-www-form-urlencoded"
	mimeMultipart  = "multipart/form-data"
)

var pathVariableRe = regexp.MustCompile(`\{([^/}]+)\}`)

// rewritePathVariables turns {id} into the :id form Postman expects.
func rewritePathVariables(path string) string {
	return pathVariableRe.ReplaceAllString(path, ":$1")
}

// itemName picks summary, then operationId, then "METHOD path".
func itemName(op *spec.Operation, method, path string) string {
	switch {
	case strings.TrimSpace(op.Summary) != "":
		return op.Summary
	case op.OperationID != "":
		return op.OperationID
	default:
		return strings.ToUpper(method) + " " + path
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// BuildItem turns one operation into a request item. It reports false when
// the operation is filtered out.
func (rc *runContext) BuildItem(path, method string, op *spec.Operation, inherited []*spec.Parameter) (*postman.Item, bool) {
	location := strings.ToUpper(method) + " " + path
	if tag := rc.opts.TagFilter; tag != "" && !slices.Contains(op.Tags, tag) {
		rc.log.Debug().Str("operation", location).Str("tag", tag).Msg("excluding operation due to tag filter")
		return nil, false
	}

	req := &postman.Request{
		URL:         rc.newURL(rewritePathVariables(path)),
		Method:      strings.ToUpper(method),
		Description: firstNonEmpty(op.Description, op.Summary),
	}
	item := &postman.Item{Name: itemName(op, method, path), Request: req}

	consumes := rc.consumes
	if op.Consumes != nil {
		consumes = op.Consumes
	}
	produces := rc.produces
	if op.Produces != nil {
		produces = op.Produces
	}
	security := rc.security
	if op.Security != nil {
		security = *op.Security
	}

	if len(produces) > 0 {
		accept := produces[0]
		if pref := rc.opts.PreferredProducesType; pref != "" && slices.Contains(produces, pref) {
			accept = pref
		}
		req.Header = append(req.Header, postman.Header{Key: "Accept", Value: accept})
	}

	metaAuth, hasMetaAuth := rc.metaAuth(op.Meta, location)
	if !hasMetaAuth {
		if requirement, ok := SelectRequirement(security, rc.opts.PreferredSecurityScheme); ok {
			rc.binder.Apply(requirement, req)
		}
	}

	params := MergeParameters(rc.resolver, inherited, op.Parameters)
	for name, p := range spec.Entries(params) {
		rc.log.Debug().Str("operation", location).Str("param", name).Str("in", p.In).Msg("adding parameter")
		rc.applyParameter(p, consumes, req, location)
	}

	if req.Body == nil {
		req.Body = defaultBody(consumes)
	}
	req.Header = uniqueHeaders(req.Header)
	req.URL.Raw = req.URL.String()

	if !rc.opts.ExcludeTests {
		var exec []string
		if op.Meta != nil && op.Meta.Tests != nil {
			exec = op.Meta.Tests
		} else {
			rc.reportDangling(location, responseSchemas(rc.resolver, op)...)
			exec = GenerateTests(rc.resolver, op.Responses)
		}
		item.Event = []postman.Event{postman.TestEvent(exec)}
	}

	if hasMetaAuth {
		req.Auth = metaAuth
	}
	return item, true
}

func (rc *runContext) newURL(path string) *postman.URL {
	u := &postman.URL{
		Protocol: rc.base.protocol,
		Host:     rc.base.host,
		Path:     slices.Clone(rc.base.path),
	}
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			u.Path = append(u.Path, seg)
		}
	}
	return u
}

func (rc *runContext) applyParameter(p *spec.Parameter, consumes []string, req *postman.Request, location string) {
	switch p.In {
	case spec.InQuery:
		if rc.opts.ExcludeQueryParams || (!p.Required && rc.opts.ExcludeOptionalQueryParams) {
			return
		}
		rc.env.add(p.Name)
		req.URL.Query = append(req.URL.Query, postman.QueryParam{Key: p.Name, Value: placeholder(p.Name), Description: p.Description})

	case spec.InHeader:
		rc.env.add(p.Name)
		req.Header = append(req.Header, postman.Header{Key: p.Name, Value: placeholder(p.Name), Description: p.Description})

	case spec.InBody:
		body := ensureBody(req)
		body.Mode = postman.BodyModeRaw
		contentType := jsonContentType(consumes)
		if !rc.opts.ExcludeBodyTemplate && p.Schema != nil && contentType != "" {
			req.Header = append(req.Header, postman.Header{Key: "Content-Type", Value: contentType})
			rc.reportDangling(location, p.Schema)
			body.Raw = rc.resolver.RenderTemplate(p.Schema, 0)
		}
		if body.Raw == "" {
			body.Raw = p.Description
		}

	case spec.InFormData:
		body := ensureBody(req)
		rc.env.add(p.Name)
		field := postman.FormParam{Key: p.Name, Value: placeholder(p.Name)}
		if p.Description != "" {
			field.Description = postman.Markdown(p.Description)
		}
		if slices.Contains(consumes, mimeURLEncoded) {
			body.Mode = postman.BodyModeURLEncoded
			body.URLEncoded = append(body.URLEncoded, field)
			req.Header = append(req.Header, postman.Header{Key: "Content-Type", Value: mimeURLEncoded})
			return
		}
		field.Type = "text"
		if p.Type == "file" {
			field.Type = "file"
			field.Value = ""
		}
		body.Mode = postman.BodyModeFormData
		body.FormData = append(body.FormData, field)

	case spec.InPath:
		rc.env.add(p.Name)
		req.URL.Variable = append(req.URL.Variable, postman.Variable{Key: p.Name, Value: placeholder(p.Name), Description: p.Description})

	default:
		rc.log.Debug().Str("operation", location).Str("param", p.Name).Str("in", p.In).Msg("unsupported parameter location; ignoring")
	}
}

func ensureBody(req *postman.Request) *postman.Body {
	if req.Body == nil {
		req.Body = &postman.Body{}
	}
	return req.Body
}

// defaultBody is used when no parameter produced a body.
func defaultBody(consumes []string) *postman.Body {
	switch {
	case slices.Contains(consumes, mimeURLEncoded):
		return &postman.Body{Mode: postman.BodyModeURLEncoded, URLEncoded: []postman.FormParam{}}
	case slices.Contains(consumes, mimeMultipart):
		return &postman.Body{Mode: postman.BodyModeFormData, FormData: []postman.FormParam{}}
	default:
		return &postman.Body{Mode: postman.BodyModeRaw}
	}
}

// jsonContentType returns the first consumes entry mentioning json.
func jsonContentType(consumes []string) string {
	for _, c := range consumes {
		if strings.Contains(strings.ToLower(c), "json") {
			return c
		}
	}
	return ""
}

// uniqueHeaders drops headers whose key was already seen. The first wins.
func uniqueHeaders(headers []postman.Header) []postman.Header {
	seen := make(map[string]struct{}, len(headers))
	out := headers[:0]
	for _, h := range headers {
		if _, dup := seen[h.Key]; dup {
			continue
		}
		seen[h.Key] = struct{}{}
		out = append(out, h)
	}
	return out
}

func responseSchemas(r *Resolver, op *spec.Operation) []*spec.Schema {
	var out []*spec.Schema
	for _, resp := range spec.Entries(op.Responses) {
		if resp == nil {
			continue
		}
		if resp.Ref != "" {
			resolved, ok := r.ResolveResponse(resp.Ref)
			if !ok {
				continue
			}
			resp = resolved
		}
		if resp.Schema != nil {
			out = append(out, resp.Schema)
		}
	}
	return out
}

// reportDangling records every definition reachable from schemas that the
// document does not define.
func (rc *runContext) reportDangling(location string, schemas ...*spec.Schema) {
	for _, s := range schemas {
		for _, key := range rc.resolver.CollectTransitiveRefs(s) {
			if _, ok := spec.Lookup(rc.doc.Definitions, key); !ok {
				rc.diags.add(DiagDanglingRef, location, "definition %q is not defined", key)
			}
		}
	}
}
