// Package validate checks generated collections against the published
// Postman collection schema.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog"
)

const DefaultSchemaURL = "https://schema.getpostman.com/json/collection/v2.0.0/collection.json"

// Report is the outcome of validating one document.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type Settings struct {
	URL         string
	HTTPTimeout time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	// CacheDir holds downloaded schemas. Empty disables caching.
	CacheDir string
	CacheTTL time.Duration
	Client   *http.Client
	Logger   zerolog.Logger
}

func DefaultSettings() Settings {
	s := Settings{
		URL:         DefaultSchemaURL,
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		CacheTTL:    24 * time.Hour,
	}
	if dir, err := os.UserCacheDir(); err == nil {
		s.CacheDir = filepath.Join(dir, "swag2post")
	}
	return s
}

type Option func(*Settings)

func WithURL(u string) Option                 { return func(s *Settings) { s.URL = u } }
func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option             { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option  { return func(s *Settings) { s.BackoffBase = d } }
func WithCacheDir(dir string) Option          { return func(s *Settings) { s.CacheDir = dir } }
func WithCacheTTL(d time.Duration) Option     { return func(s *Settings) { s.CacheTTL = d } }
func WithHTTPClient(c *http.Client) Option    { return func(s *Settings) { s.Client = c } }
func WithLogger(l zerolog.Logger) Option      { return func(s *Settings) { s.Logger = l } }

// Validator lazily loads and compiles the schema on first use. It is safe
// for concurrent use.
type Validator struct {
	settings Settings

	mu       sync.Mutex
	resolved *jsonschema.Resolved
}

func New(opts ...Option) *Validator {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.Client == nil {
		s.Client = &http.Client{Timeout: s.HTTPTimeout}
	}
	return &Validator{settings: s}
}

// ForSchema returns a validator for the given schema URL that shares v's
// transport and cache settings.
func (v *Validator) ForSchema(url string) *Validator {
	s := v.settings
	s.URL = url
	return &Validator{settings: s}
}

func (v *Validator) URL() string { return v.settings.URL }

// Load fetches and compiles the schema. Later calls are no-ops once it
// succeeded; failures are retried on the next call.
func (v *Validator) Load(ctx context.Context) error {
	_, err := v.schema(ctx)
	return err
}

func (v *Validator) schema(ctx context.Context) (*jsonschema.Resolved, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.resolved != nil {
		return v.resolved, nil
	}
	log := v.settings.Logger
	data, cached := readCache(v.settings.CacheDir, v.settings.URL, v.settings.CacheTTL)
	if cached {
		log.Debug().Str("url", v.settings.URL).Msg("using cached collection schema")
		resolved, err := compile(data)
		if err == nil {
			v.resolved = resolved
			return resolved, nil
		}
		log.Debug().Err(err).Str("url", v.settings.URL).Msg("discarding unusable cached collection schema")
		dropCache(v.settings.CacheDir, v.settings.URL)
	}
	data, err := fetchSchema(ctx, v.settings)
	if err != nil {
		return nil, err
	}
	resolved, err := compile(data)
	if err != nil {
		return nil, err
	}
	if err := writeCache(v.settings.CacheDir, v.settings.URL, data); err != nil {
		log.Debug().Err(err).Msg("could not cache collection schema")
	}
	v.resolved = resolved
	return resolved, nil
}

// Validate checks doc, which may be any value that marshals to JSON. An
// error is returned only when the schema could not be loaded.
func (v *Validator) Validate(ctx context.Context, doc any) (*Report, error) {
	rs, err := v.schema(ctx)
	if err != nil {
		return nil, err
	}
	instance, err := toInstance(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if verr := rs.Validate(instance); verr != nil {
		return &Report{Valid: false, Errors: splitErrors(verr)}, nil
	}
	return &Report{Valid: true}, nil
}

// ValidateBytes checks a raw JSON document.
func (v *Validator) ValidateBytes(ctx context.Context, data []byte) (*Report, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return &Report{Valid: false, Errors: []string{fmt.Sprintf("not valid JSON: %v", err)}}, nil
	}
	return v.Validate(ctx, instance)
}

func toInstance(doc any) (any, error) {
	data, ok := doc.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return nil, err
		}
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func splitErrors(err error) []string {
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		out = []string{err.Error()}
	}
	return out
}
