package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// miniSchema is a cut-down draft-04 collection schema using the same
// keywords as the published one.
const miniSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "id": "https://schema.example.com/collection.json",
  "type": "object",
  "required": ["info", "item"],
  "properties": {
    "info": {"$ref": "#/definitions/info"},
    "item": {"type": "array", "items": {"$ref": "#/definitions/item"}},
    "count": {"type": "number", "minimum": 0, "exclusiveMinimum": true}
  },
  "definitions": {
    "info": {
      "id": "#/definitions/info",
      "type": "object",
      "required": ["name", "schema"],
      "properties": {
        "name": {"type": "string"},
        "schema": {"type": "string"}
      }
    },
    "item": {
      "id": "#/definitions/item",
      "type": "object",
      "required": ["name"],
      "properties": {"name": {"type": "string"}}
    }
  }
}`

func schemaServer(t *testing.T, status int, contentType, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestValidator(url string, opts ...Option) *Validator {
	base := []Option{WithURL(url), WithCacheDir(""), WithBackoffBase(time.Millisecond), WithMaxRetries(2)}
	return New(append(base, opts...)...)
}

func TestValidate_ValidAndInvalid(t *testing.T) {
	t.Parallel()
	srv := schemaServer(t, http.StatusOK, "application/json; charset=utf-8", miniSchema, nil)
	v := newTestValidator(srv.URL)
	ctx := context.Background()

	report, err := v.Validate(ctx, map[string]any{
		"info": map[string]any{"name": "n", "schema": "s"},
		"item": []any{map[string]any{"name": "a"}},
	})
	require.NoError(t, err)
	assert.True(t, report.Valid, "errors: %v", report.Errors)

	report, err = v.ValidateBytes(ctx, []byte(`{"info": {"name": "n"}, "item": [{}], "count": 0}`))
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Errors)
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := schemaServer(t, http.StatusNotFound, "application/json", `{}`, &calls)
	err := newTestValidator(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "load schema request failed: 404", err.Error())
	assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
}

func TestLoad_ServerErrorRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := schemaServer(t, http.StatusBadGateway, "application/json", `{}`, &calls)
	err := newTestValidator(srv.URL, WithMaxRetries(3)).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "load schema request failed: 502", err.Error())
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoad_WrongContentType(t *testing.T) {
	t.Parallel()
	srv := schemaServer(t, http.StatusOK, "text/html", "<html></html>", nil)
	err := newTestValidator(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "load schema request failed: Expected application/json but received text/html", err.Error())
}

func TestLoad_BadJSON(t *testing.T) {
	t.Parallel()
	srv := schemaServer(t, http.StatusOK, "application/json", "{nope", nil)
	err := newTestValidator(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema not json")
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	err := newTestValidator("http://127.0.0.1:1/schema.json", WithHTTPTimeout(200*time.Millisecond)).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load schema request failed")
}

func TestLoad_UsesDiskCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var calls atomic.Int32
	srv := schemaServer(t, http.StatusOK, "application/json", miniSchema, &calls)

	require.NoError(t, newTestValidator(srv.URL, WithCacheDir(dir)).Load(context.Background()))
	require.NoError(t, newTestValidator(srv.URL, WithCacheDir(dir)).Load(context.Background()))
	assert.Equal(t, int32(1), calls.Load(), "second load must come from the cache")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_ExpiredCacheRefetched(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var calls atomic.Int32
	srv := schemaServer(t, http.StatusOK, "application/json", miniSchema, &calls)

	require.NoError(t, newTestValidator(srv.URL, WithCacheDir(dir)).Load(context.Background()))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(cachePath(dir, srv.URL), past, past))
	require.NoError(t, newTestValidator(srv.URL, WithCacheDir(dir)).Load(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoad_CorruptCacheRefetched(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var calls atomic.Int32
	srv := schemaServer(t, http.StatusOK, "application/json", miniSchema, &calls)

	require.NoError(t, writeCache(dir, srv.URL, []byte("{not json")))
	v := newTestValidator(srv.URL, WithCacheDir(dir))
	require.NoError(t, v.Load(context.Background()))
	assert.Equal(t, int32(1), calls.Load(), "an unusable cache entry must trigger a download")

	cached, err := os.ReadFile(cachePath(dir, srv.URL))
	require.NoError(t, err)
	assert.JSONEq(t, miniSchema, string(cached), "the cache entry is replaced with the fresh schema")

	report, err := v.Validate(context.Background(), map[string]any{"info": map[string]any{"name": "n", "schema": "s"}, "item": []any{}})
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestNormalizeDraft04(t *testing.T) {
	t.Parallel()
	schema := map[string]any{
		"id":         "x",
		"$schema":    "y",
		"properties": map[string]any{"id": map[string]any{"type": "string"}},
		"minimum":    1.0,
		"exclusiveMinimum": true,
		"maximum":          5.0,
		"exclusiveMaximum": false,
	}
	normalizeDraft04(schema)
	assert.NotContains(t, schema, "id")
	assert.NotContains(t, schema, "$schema")
	assert.Contains(t, schema["properties"], "id", "property names are not keywords")
	assert.Equal(t, 1.0, schema["exclusiveMinimum"])
	assert.NotContains(t, schema, "minimum")
	assert.NotContains(t, schema, "exclusiveMaximum")
	assert.Equal(t, 5.0, schema["maximum"])
}
