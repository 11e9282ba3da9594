package convert

import (
	"fmt"
	"strings"
	"testing"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/rs/zerolog"
	"github.com/speakeasy-api/openapi/sequencedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/", "", false},
		{"", "", false},
		{"/pets", "pets", true},
		{"/pets/{id}/toys", "pets", true},
		{"//double/slash", "double", true},
	}
	for _, tt := range tests {
		got, ok := FolderName(tt.path)
		assert.Equal(t, tt.want, got, tt.path)
		assert.Equal(t, tt.wantOK, ok, tt.path)
	}
}

func TestRewritePathVariables(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/pets/:petId/toys/:toy_id", rewritePathVariables("/pets/{petId}/toys/{toy_id}"))
	assert.Equal(t, "/plain", rewritePathVariables("/plain"))
}

func TestAssembler_SortIsCaseInsensitiveAndStable(t *testing.T) {
	t.Parallel()
	asm := NewAssembler(zerolog.Nop())
	asm.Add("/zoo", []*postman.Item{{Name: "z1"}})
	asm.Add("/", []*postman.Item{{Name: "beta"}, {Name: "Alpha"}})
	asm.Add("/Apple", []*postman.Item{{Name: "a1"}})
	asm.Add("/zoo/{id}", []*postman.Item{{Name: "z2"}})
	asm.Add("/empty", nil)

	top := asm.Items()
	assert.Equal(t, []string{"Alpha", "Apple", "beta", "zoo"}, names(top))
	assert.Equal(t, []string{"z1", "z2"}, names(top[3].Item))
}

func TestSelectRequirement(t *testing.T) {
	t.Parallel()
	reqs := []spec.SecurityRequirement{
		{{Name: "a"}},
		{{Name: "b"}, {Name: "c"}},
	}
	_, ok := SelectRequirement(nil, "a")
	assert.False(t, ok)

	got, ok := SelectRequirement(reqs, "")
	require.True(t, ok)
	assert.Equal(t, reqs[0], got)

	got, _ = SelectRequirement(reqs, "c")
	assert.Equal(t, reqs[1], got)

	got, _ = SelectRequirement(reqs, "missing")
	assert.Equal(t, reqs[0], got)
}

func TestSecurityBinder_ListStyleAndVariables(t *testing.T) {
	t.Parallel()
	schemes := sequencedmap.New[string, *spec.SecurityScheme]()
	schemes.Set("creds", &spec.SecurityScheme{Type: "basic"})
	schemes.Set("token", &spec.SecurityScheme{Type: "apiKey", Name: "token", In: spec.InQuery})

	var vars []string
	b := NewSecurityBinder(schemes, postman.AuthStyleList, zerolog.Nop())
	b.onVariable = func(name string) { vars = append(vars, name) }

	req := &postman.Request{URL: &postman.URL{}}
	b.Apply(spec.SecurityRequirement{{Name: "creds"}, {Name: "token"}, {Name: "undefined"}}, req)

	require.NotNil(t, req.Auth)
	assert.Equal(t, postman.AuthStyleList, req.Auth.Style)
	assert.Equal(t, []postman.QueryParam{{Key: "token", Value: "{{token_apikey}}"}}, req.URL.Query)
	assert.Equal(t, []string{"creds_username", "creds_password", "token_apikey"}, vars)
}

func TestMergeParameters(t *testing.T) {
	t.Parallel()
	params := sequencedmap.New[string, *spec.Parameter]()
	params.Set("shared", &spec.Parameter{Name: "shared", In: spec.InHeader})
	r := NewResolver(&spec.Document{Parameters: params})

	inherited := []*spec.Parameter{
		{Name: "id", In: spec.InPath},
		{Name: "q", In: spec.InQuery},
	}
	own := []*spec.Parameter{
		{Name: "q", In: spec.InHeader},
		{Ref: "#/parameters/shared"},
		{Ref: "#/parameters/unknown"},
		nil,
	}
	merged := MergeParameters(r, inherited, own)

	var got []string
	for name, p := range spec.Entries(merged) {
		got = append(got, name+":"+p.In)
	}
	assert.Equal(t, []string{"id:path", "q:header", "shared:header"}, got)
}

func TestResolver_ParseRef(t *testing.T) {
	t.Parallel()
	table, key, ok := parseRef("#/definitions/a~1b~0c")
	require.True(t, ok)
	assert.Equal(t, "definitions", table)
	assert.Equal(t, "a/b~c", key)

	for _, bad := range []string{"", "other.yaml#/definitions/X", "#/definitions", "#/definitions/"} {
		_, _, ok := parseRef(bad)
		assert.False(t, ok, bad)
	}
}

func TestResolver_CollectTransitiveRefs(t *testing.T) {
	t.Parallel()
	defs := sequencedmap.New[string, *spec.Schema]()
	aProps := sequencedmap.New[string, *spec.Schema]()
	aProps.Set("b", &spec.Schema{Ref: "#/definitions/B"})
	defs.Set("A", &spec.Schema{Type: "object", Properties: aProps})
	defs.Set("B", &spec.Schema{Type: "array", Items: &spec.Schema{Ref: "#/definitions/A"}, AdditionalProperties: &spec.Schema{Ref: "#/definitions/Gone"}})

	r := NewResolver(&spec.Document{Definitions: defs})
	assert.Equal(t, []string{"A", "B", "Gone"}, r.CollectTransitiveRefs(&spec.Schema{Ref: "#/definitions/A"}))
	assert.Empty(t, r.CollectTransitiveRefs(nil))
}

func TestRenderTemplate_Scalars(t *testing.T) {
	t.Parallel()
	r := NewResolver(&spec.Document{})
	tests := []struct {
		schema *spec.Schema
		want   string
	}{
		{&spec.Schema{Type: "integer"}, "0"},
		{&spec.Schema{Type: "number"}, "0.0"},
		{&spec.Schema{Type: "boolean"}, "true"},
		{&spec.Schema{Type: "string"}, `""`},
		{&spec.Schema{Type: "array"}, "[]"},
		{&spec.Schema{Type: "array", Items: &spec.Schema{Type: "string"}}, "[\n    \"\"\n]"},
		{&spec.Schema{}, "{}"},
		{&spec.Schema{Type: "string", Example: "<b>&</b>", HasExample: true}, `"<b>&</b>"`},
		{&spec.Schema{Type: "integer", Example: 0, HasExample: true}, "0"},
		{&spec.Schema{Ref: "#/definitions/Missing"}, "{}"},
		{nil, "{}"},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.want, r.RenderTemplate(tt.schema, 0), "case %d", i)
	}
}

func TestRenderTemplate_DepthGuard(t *testing.T) {
	t.Parallel()
	defs := sequencedmap.New[string, *spec.Schema]()
	const levels = MaxTemplateDepth + 8
	for i := 0; i < levels; i++ {
		props := sequencedmap.New[string, *spec.Schema]()
		props.Set("child", &spec.Schema{Ref: fmt.Sprintf("#/definitions/L%d", i+1)})
		defs.Set(fmt.Sprintf("L%d", i), &spec.Schema{Type: "object", Properties: props})
	}
	defs.Set(fmt.Sprintf("L%d", levels), &spec.Schema{Type: "string"})

	diags := &diagnostics{}
	r := &Resolver{doc: &spec.Document{Definitions: defs}, diags: diags}
	out := r.RenderTemplate(&spec.Schema{Ref: "#/definitions/L0"}, 0)

	assert.Equal(t, MaxTemplateDepth+1, strings.Count(out, `"child"`))
	require.Len(t, diags.all(), 1)
	assert.Equal(t, DiagTemplateDepth, diags.all()[0].Code)
}

func TestDiagnostics_DeduplicatedAndNilSafe(t *testing.T) {
	t.Parallel()
	var none *diagnostics
	none.add(DiagCyclicRef, "", "ignored")
	assert.Nil(t, none.all())

	d := &diagnostics{}
	d.add(DiagDanglingRef, "GET /a", "missing %s", "X")
	d.add(DiagDanglingRef, "GET /a", "missing %s", "X")
	d.add(DiagDanglingRef, "GET /b", "missing %s", "X")
	require.Len(t, d.all(), 2)
	assert.Equal(t, `[dangling-ref] GET /a: missing X`, d.all()[0].String())
	assert.Equal(t, `[cyclic-ref] loop`, Diagnostic{Code: DiagCyclicRef, Message: "loop"}.String())
}

func TestEnvironmentName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "staging", EnvironmentName("/tmp/envs/staging.json"))
	assert.Equal(t, "staging.env", EnvironmentName("staging.env"))
}
