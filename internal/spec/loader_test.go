package spec

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const petstoreV2 = `swagger: "2.0"
info:
  title: Petstore
  version: "1.0.0"
host: petstore.example.com
basePath: /v1
schemes: [http, https]
consumes: [application/json]
produces: [application/json]
paths:
  /pets:
    get:
      summary: List pets
      parameters:
      - name: limit
        in: query
        type: integer
      responses:
        "200":
          description: ok
          schema:
            type: array
            items:
              $ref: "#/definitions/Pet"
    post:
      summary: Create pet
      parameters:
      - name: body
        in: body
        required: true
        schema:
          $ref: "#/definitions/Pet"
      responses:
        "201":
          description: created
  /pets/{petId}:
    get:
      summary: Get pet
      parameters:
      - name: petId
        in: path
        required: true
        type: string
      responses:
        "200":
          description: ok
definitions:
  Pet:
    type: object
    properties:
      id:
        type: integer
      name:
        type: string
`

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad_BlocksFileURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := Load(ctx, "file:///etc/hosts")
	if err == nil {
		t.Fatalf("expected error for file:// URL")
	}
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != InputError {
		t.Fatalf("expected InputError, got %v", se.Code)
	}
}

func TestLoad_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, err := Load(ctx, "ftp://example.com/spec.yaml")
	if err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "  ")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	// Unused port to provoke a quick network failure.
	url := "http://127.0.0.1:1/spec.yaml"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Load(ctx, url, WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(time.Millisecond))
	if err == nil {
		t.Fatalf("expected network error")
	}
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
}

func TestLoad_URL_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(petstoreV2))
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL+"/swagger.yaml", WithBackoffBase(time.Millisecond), WithSemanticValidation(false))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
	if doc.Info.Title != "Petstore" {
		t.Fatalf("unexpected title %q", doc.Info.Title)
	}
}

func TestLoad_URL_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/missing.yaml", WithBackoffBase(time.Millisecond))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
}

func TestLoad_V3_InvalidSpec(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, "bad.yaml", `openapi: 3.0.0
info:
  title: Bad
  version: "1.0.0"
paths:
  "/pet":
    get:
      responses: {}
`)

	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatalf("expected validation error for incomplete responses")
	}
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != ValidationError && se.Code != ParseError {
		t.Fatalf("expected ValidationError/ParseError, got %v", se.Code)
	}
	if se.Location == "" {
		t.Fatalf("expected location to be set")
	}
}

func TestLoad_V3_DownConverted(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, "openapi.yaml", `openapi: 3.0.0
info:
  title: Modern
  version: "1.0.0"
paths:
  /hello:
    get:
      summary: Say hello
      responses:
        "200":
          description: ok
`)

	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(doc.Swagger, "2") {
		t.Fatalf("expected a Swagger 2 document, got %q", doc.Swagger)
	}
	item, ok := Lookup(doc.Paths, "/hello")
	if !ok || item.Operation(GET) == nil {
		t.Fatalf("expected GET /hello to survive down-conversion")
	}
	if got := item.Operation(GET).Summary; got != "Say hello" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestLoad_V2_Success(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, "swagger.yaml", petstoreV2)

	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Host != "petstore.example.com" || doc.BasePath != "/v1" {
		t.Fatalf("unexpected host/basePath %q %q", doc.Host, doc.BasePath)
	}
	var paths []string
	for p := range Entries(doc.Paths) {
		paths = append(paths, p)
	}
	if strings.Join(paths, ",") != "/pets,/pets/{petId}" {
		t.Fatalf("path order not preserved: %v", paths)
	}
}

func TestLoadBytes_V3WithoutComponents(t *testing.T) {
	t.Parallel()
	src := "openapi: 3.0.3\ninfo: {title: Modern, version: \"1\"}\npaths: {/hello: {get: {responses: {\"200\": {description: ok}}}}}"

	doc, err := LoadBytes(context.Background(), []byte(src), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	item, ok := Lookup(doc.Paths, "/hello")
	if !ok || item.Operation(GET) == nil {
		t.Fatalf("expected GET /hello after down-conversion")
	}
}

func TestLoadBytes_UnresolvedRefIsLogged(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	doc, err := LoadBytes(context.Background(), []byte(`swagger: "2.0"
info: {title: Dangling, version: "1"}
paths:
  /things:
    get:
      responses:
        "200":
          description: ok
          schema:
            $ref: "#/definitions/Missing"
`), "mem", WithLogger(log))
	if err != nil {
		t.Fatalf("unresolved refs must not be fatal: %v", err)
	}
	if _, ok := Lookup(doc.Paths, "/things"); !ok {
		t.Fatalf("expected /things to be decoded")
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "Missing") {
		t.Fatalf("expected a warning naming the missing definition, got %q", buf.String())
	}
}

func TestLoad_V2_MissingInfo(t *testing.T) {
	t.Parallel()
	path := writeSpec(t, "swagger-bad.yaml", `swagger: "2.0"
paths: {}
`)

	_, err := Load(context.Background(), path)
	if err == nil {
		t.Fatalf("expected an error")
	}
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != ConversionError && se.Code != ValidationError && se.Code != ParseError {
		t.Fatalf("expected ConversionError/ValidationError/ParseError, got %v", se.Code)
	}
}

func TestLoadBytes_MissingPaths(t *testing.T) {
	t.Parallel()
	_, err := LoadBytes(context.Background(), []byte(`swagger: "2.0"
info: {title: t, version: "1"}
`), "", WithSemanticValidation(false))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != ValidationError {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if se.JSONPointer != "#/paths" {
		t.Fatalf("expected pointer #/paths, got %q", se.JSONPointer)
	}
}

func TestLoadBytes_UnknownVersion(t *testing.T) {
	t.Parallel()
	_, err := LoadBytes(context.Background(), []byte("info: {title: t}\npaths: {}\n"), "mem")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != ParseError {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestDetectSpecVersion_UnquotedSwagger(t *testing.T) {
	t.Parallel()
	v, err := detectSpecVersion([]byte("swagger: 2.0\n"))
	if err != nil || v != 2 {
		t.Fatalf("expected version 2, got %d (%v)", v, err)
	}
}
