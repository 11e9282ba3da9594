package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs controls whether file:// refs are allowed for external references.
	// Automatically allowed when the root input is a local file.
	AllowFileRefs bool
	// SemanticValidation runs the document through kin-openapi validation
	// before decoding. Structural checks always run.
	SemanticValidation bool
	// Logger receives warnings for findings tolerated in permissive mode.
	Logger zerolog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout:        10 * time.Second,
		MaxRetries:         3,
		BackoffBase:        200 * time.Millisecond,
		AllowFileRefs:      false,
		SemanticValidation: true,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithSemanticValidation(on bool) Option  { return func(s *Settings) { s.SemanticValidation = on } }
func WithLogger(l zerolog.Logger) Option     { return func(s *Settings) { s.Logger = l } }

// Load reads, validates, and decodes a Swagger 2.0 document. OpenAPI 3.x
// input is accepted and down-converted through kin-openapi first.
//
// input may be a filesystem path or an http/https URL. file:// URLs are blocked.
func Load(ctx context.Context, input string, opts ...Option) (*Document, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	// Classify input as URL or file path.
	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""
	if uerr == nil && strings.EqualFold(u.Scheme, "file") {
		isURL = true
	}

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, fetchErr := fetchWithRetry(ctx, input, settings)
		if fetchErr != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, fetchErr), Location: input, Cause: fetchErr}
		}
		return load(ctx, raw, input, settings, false)
	}

	// Treat as local filesystem path.
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, rerr := os.ReadFile(abs)
	if rerr != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, rerr), Location: abs, Cause: rerr}
	}
	return load(ctx, raw, abs, settings, true)
}

// LoadBytes decodes an in-memory document. location is only used in errors
// and may be empty.
func LoadBytes(ctx context.Context, raw []byte, location string, opts ...Option) (*Document, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty", Location: location}
	}
	return load(ctx, raw, location, settings, false)
}

func load(ctx context.Context, raw []byte, location string, settings Settings, rootIsFile bool) (*Document, error) {
	version, derr := detectSpecVersion(raw)
	if derr != nil {
		return nil, &SpecError{Code: ParseError, Message: derr.Error(), Location: location, Cause: derr}
	}

	switch version {
	case 3:
		v2raw, err := downConvertV3(ctx, raw, location, settings, rootIsFile)
		if err != nil {
			return nil, err
		}
		raw = v2raw
	case 2:
		if settings.SemanticValidation {
			if err := validateV2(ctx, raw, location, settings, rootIsFile); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: location}
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		se := &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
		var de *decodeError
		if errors.As(err, &de) {
			se.Code = ValidationError
			se.JSONPointer = de.Pointer
		}
		return nil, se
	}
	if err := checkStructure(doc, location); err != nil {
		return nil, err
	}
	return doc, nil
}

// checkStructure enforces the fields the converter cannot work without.
func checkStructure(doc *Document, location string) error {
	switch {
	case strings.TrimSpace(doc.Info.Title) == "":
		return &SpecError{Code: ValidationError, Message: "spec: info.title is required", Location: location, JSONPointer: "#/info/title"}
	case doc.Paths == nil:
		return &SpecError{Code: ValidationError, Message: "spec: paths is required", Location: location, JSONPointer: "#/paths"}
	}
	for path := range Entries(doc.Paths) {
		if !strings.HasPrefix(path, "/") {
			return &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: path %q must begin with /", path), Location: location, JSONPointer: "#/paths/" + escapePointer(path)}
		}
	}
	return nil
}

// validateV2 converts the document to v3 in memory and runs kin-openapi
// validation on the result. Unresolved refs are tolerated.
func validateV2(ctx context.Context, raw []byte, location string, settings Settings, rootIsFile bool) error {
	v3doc, err := convertV2ToV3(raw)
	if err != nil {
		return &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: location, Cause: err}
	}
	loader := newLoader(settings, rootIsFile)
	if err := loader.ResolveRefsIn(v3doc, nil); err != nil {
		settings.Logger.Warn().Err(err).Str("location", location).Msg("reference resolution failed; continuing")
	}
	if err := v3doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		if !canProceedDespiteValidation(err) {
			return mapValidateOrParseErr(err, location)
		}
		settings.Logger.Warn().Err(err).Str("location", location).Msg("proceeding despite unresolved references")
	}
	return nil
}

// downConvertV3 loads an OpenAPI 3 document and returns it re-encoded as
// Swagger 2.0 JSON.
func downConvertV3(ctx context.Context, raw []byte, location string, settings Settings, rootIsFile bool) ([]byte, error) {
	loader := newLoader(settings, rootIsFile)
	var (
		doc *openapi3.T
		err error
	)
	switch {
	case rootIsFile:
		doc, err = loader.LoadFromFile(location)
	case location != "":
		u, perr := url.Parse(location)
		if perr != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("parse location: %v", perr), Location: location, Cause: perr}
		}
		doc, err = loader.LoadFromDataWithPath(raw, u)
	default:
		doc, err = loader.LoadFromData(raw)
	}
	if err != nil {
		return nil, mapValidateOrParseErr(err, location)
	}
	if settings.SemanticValidation {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			if !canProceedDespiteValidation(err) {
				return nil, mapValidateOrParseErr(err, location)
			}
			settings.Logger.Warn().Err(err).Str("location", location).Msg("proceeding despite unresolved references")
		}
	}
	// FromV3 dereferences Components unconditionally.
	if doc.Components == nil {
		doc.Components = &openapi3.Components{}
	}
	v2doc, err := openapi2conv.FromV3(doc)
	if err != nil {
		return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v3→v2: %v", err), Location: location, Cause: err}
	}
	out, err := json.Marshal(v2doc)
	if err != nil {
		return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("encode v2: %v", err), Location: location, Cause: err}
	}
	return out, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	// Allow file refs only when configured or when loading from a local file root.
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if strings.HasPrefix(strings.TrimSpace(fmt.Sprint(v)), "3.") {
			return 3, nil
		}
	}
	// swagger: 2.0 without quotes decodes as a float.
	if v, ok := root["swagger"]; ok {
		if strings.HasPrefix(strings.TrimSpace(fmt.Sprint(v)), "2") {
			return 2, nil
		}
	}
	return 0, fmt.Errorf("spec: missing or unknown version (expected 'swagger: 2.0' or 'openapi: 3.x')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	root, err := parseNode(data)
	if err != nil {
		return nil, err
	}
	tree, ok := plainValue(root).(map[string]any)
	if !ok {
		return nil, errors.New("document root must be a mapping")
	}
	preprocessV2ForCompatibility(tree)
	js, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(js, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < 300 {
			body, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			return body, rerr
		}
		if err != nil {
			lastErr = err
		} else {
			status := resp.StatusCode
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			if status >= 500 || status == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("transient http error %d", status)
			} else {
				return nil, fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(body)))
			}
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Heuristics: some loader errors are parse errors.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	// Unwrap MultiError and take the first for brevity.
	if me, ok := err.(openapi3.MultiError); ok {
		if len(me) > 0 {
			return extractJSONPointer(me[0])
		}
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	// Fallback: parse from error message if a pointer literal appears.
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors where
// conversion can still proceed (unresolved $ref entries).
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unresolved ref") || strings.Contains(s, "found unresolved ref")
}
