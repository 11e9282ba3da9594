package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
)

const minimalSpecYAML = "" +
	"swagger: '2.0'\n" +
	"info:\n" +
	"  title: Test API\n" +
	"  version: '1.0.0'\n" +
	"host: api.example.com\n" +
	"basePath: /v1\n" +
	"schemes: [https]\n" +
	"securityDefinitions:\n" +
	"  api_key:\n" +
	"    type: apiKey\n" +
	"    name: X-API-Key\n" +
	"    in: header\n" +
	"paths:\n" +
	"  /hello/{name}:\n" +
	"    get:\n" +
	"      tags: [greetings]\n" +
	"      summary: Hello\n" +
	"      security:\n" +
	"        - api_key: []\n" +
	"      parameters:\n" +
	"        - name: name\n" +
	"          in: path\n" +
	"          required: true\n" +
	"          type: string\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n"

const collectionSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "object",
  "required": ["info", "item"],
  "properties": {
    "info": {"type": "object", "required": ["name", "schema"]},
    "item": {"type": "array"}
  }
}`

func TestConvertPipeline_WritesCollectionAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	specPath := writeFile(t, dir, "spec.yaml", minimalSpecYAML)
	outPath := filepath.Join(dir, "out", "collection.json")
	envPath := filepath.Join(dir, "out", "test.env.json")

	args := []string{"convert", "-i", specPath, "-o", outPath, "--envfile", envPath, "--disable-validation"}
	if err := executeRoot(args...); err != nil {
		t.Fatalf("execute: %v", err)
	}

	coll, err := postman.ReadCollection(outPath)
	if err != nil {
		t.Fatalf("read collection: %v", err)
	}
	if coll.Info.Name != "Test API" || coll.Info.Schema != postman.SchemaV200 {
		t.Fatalf("unexpected info: %+v", coll.Info)
	}
	if len(coll.Item) != 1 || coll.Item[0].Name != "greetings" {
		t.Fatalf("expected one greetings folder, got %+v", coll.Item)
	}
	reqs := coll.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	if got := reqs[0].Request.URL.Raw; got != "https://api.example.com/v1/hello/:name" {
		t.Fatalf("unexpected url: %s", got)
	}
	if v, ok := reqs[0].Request.HeaderValue("X-API-Key"); !ok || v != "{{api_key_apikey}}" {
		t.Fatalf("expected api key header, got %q (present=%v)", v, ok)
	}

	raw, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatalf("read environment: %v", err)
	}
	var env postman.Environment
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode environment: %v", err)
	}
	if env.Name != "test.env" {
		t.Fatalf("unexpected environment name %q", env.Name)
	}
	if keys := strings.Join(env.Keys(), ","); keys != "api_key_apikey,name" {
		t.Fatalf("unexpected environment keys: %s", keys)
	}

	// A second run refuses to clobber the output unless -w is given.
	err = executeRoot(args...)
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "exists") {
		t.Fatalf("expected usage error for existing output, got %v", err)
	}
	if err := executeRoot(append(args, "-w")...); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
}

func TestConvertPipeline_CompactAndVersion(t *testing.T) {
	dir := t.TempDir()
	specPath := writeFile(t, dir, "spec.yaml", minimalSpecYAML)
	outPath := filepath.Join(dir, "collection.json")

	if err := executeRoot("convert", "-i", specPath, "-o", outPath, "-c", "--collection-version", "2.1.0", "--disable-validation"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if bytes.Contains(bytes.TrimSpace(raw), []byte("\n")) {
		t.Fatalf("expected compact output")
	}
	if !bytes.Contains(raw, []byte(postman.SchemaV210)) {
		t.Fatalf("expected v2.1.0 schema url in output")
	}
}

func TestConvertPipeline_SpecErrorIsUsageError(t *testing.T) {
	dir := t.TempDir()
	specPath := writeFile(t, dir, "spec.yaml", "swagger: '2.0'\ninfo: [not, an, object]\n")

	err := executeRoot("convert", "-i", specPath, "-o", filepath.Join(dir, "out.json"), "--disable-validation")
	if err == nil {
		t.Fatalf("expected error for malformed spec")
	}
	if !errors.Is(err, ErrUsage) || !strings.HasPrefix(err.Error(), "spec: ") {
		t.Fatalf("expected spec usage error, got %T: %v", err, err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.json")); statErr == nil {
		t.Fatalf("no output should be written for a bad spec")
	}
}

func TestValidateCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(collectionSchema))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	good := writeFile(t, dir, "good.json",
		`{"info": {"name": "x", "schema": "`+postman.SchemaV200+`"}, "item": []}`)
	bad := writeFile(t, dir, "bad.json",
		`{"info": {"name": "x", "schema": "`+postman.SchemaV210+`"}}`)

	run := func(args ...string) (string, string, error) {
		var stdout, stderr bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs(args)
		err := root.Execute()
		return stdout.String(), stderr.String(), err
	}

	out, _, err := run("validate", good, "--schema", srv.URL, "--no-cache")
	if err != nil {
		t.Fatalf("validate good: %v", err)
	}
	if strings.TrimSpace(out) != "No issues found." {
		t.Fatalf("unexpected output: %q", out)
	}

	_, errOut, err := run("validate", bad, "--schema", srv.URL, "--no-cache")
	if err == nil {
		t.Fatalf("expected error for invalid collection")
	}
	if ExitCode(err) != 1 {
		t.Fatalf("expected exit code 1, got %d", ExitCode(err))
	}
	if !strings.Contains(errOut, "item") {
		t.Fatalf("expected schema errors on stderr, got %q", errOut)
	}

	_, _, err = run("validate", filepath.Join(dir, "missing.json"))
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Fatalf("expected read error, got %v", err)
	}

	_, _, err = run("validate")
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error without a file, got %v", err)
	}
}

func TestValidateCommand_SchemaUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path := writeFile(t, dir, "c.json", `{"info": {"name": "x", "schema": "s"}, "item": []}`)

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"validate", path, "--schema", srv.URL, "--no-cache"})
	if err := root.Execute(); err != nil {
		t.Fatalf("schema load failures are reported, not returned: %v", err)
	}
	if !strings.Contains(stderr.String(), "failed to load schema") {
		t.Fatalf("expected schema load error in log, got %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no verdict, got %q", stdout.String())
	}
}
