// Package convert turns a Swagger 2.0 document into a Postman collection.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/irbuch/swagger2-to-postman/internal/validate"
	"github.com/rs/zerolog"
)

// ErrInvalidInput marks documents missing fields the walk depends on.
var ErrInvalidInput = errors.New("invalid input document")

// InputError names the missing or malformed part of the input.
type InputError struct {
	Field string
	Msg   string
}

func (e *InputError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// ValidationFailedError is returned in strict mode when the collection does
// not satisfy the output schema. The result is still returned alongside.
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("collection failed schema validation: %s", strings.Join(e.Errors, "; "))
}

// CollectionValidator checks a generated document against the Postman schema.
type CollectionValidator interface {
	Validate(ctx context.Context, doc any) (*validate.Report, error)
}

type Options struct {
	ExcludeQueryParams         bool
	ExcludeOptionalQueryParams bool
	ExcludeBodyTemplate        bool
	ExcludeTests               bool
	// TagFilter keeps only operations carrying this tag.
	TagFilter               string
	HostOverride            string
	PreferredSecurityScheme string
	PreferredProducesType   string
	DisableOutputValidation bool
	Strict                  bool
	// Dialect defaults to postman.DialectV200.
	Dialect *postman.Dialect
	// EnvironmentName enables environment output; typically the envfile path.
	EnvironmentName string
	Validator       CollectionValidator
	Logger          zerolog.Logger
	// NewID generates collection and environment ids. Defaults to uuid.NewString.
	NewID func() string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result is the outcome of a conversion.
type Result struct {
	Collection  *postman.Collection
	Environment *postman.Environment
	Diagnostics []Diagnostic
	// Validation is nil when output validation did not run.
	Validation *validate.Report
}

type Converter struct {
	opts    Options
	dialect postman.Dialect
}

// New returns a converter. The zero Logger discards everything.
func New(opts Options) *Converter {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	dialect := postman.DialectV200
	if opts.Dialect != nil {
		dialect = *opts.Dialect
	}
	return &Converter{opts: opts, dialect: dialect}
}

// checkInput rejects documents the walk cannot handle.
func checkInput(doc *spec.Document) error {
	switch {
	case doc == nil:
		return &InputError{Field: "document", Msg: "is nil"}
	case strings.TrimSpace(doc.Info.Title) == "":
		return &InputError{Field: "info.title", Msg: "is required"}
	case doc.Paths == nil:
		return &InputError{Field: "paths", Msg: "is required"}
	}
	return nil
}

// Convert walks every path and operation of doc and assembles the
// collection. When a validator is configured the output is checked against
// the Postman schema; failing to load the schema only yields a diagnostic.
func (c *Converter) Convert(ctx context.Context, doc *spec.Document) (*Result, error) {
	if err := checkInput(doc); err != nil {
		return nil, err
	}
	rc := newRunContext(doc, c.opts, c.dialect)
	rc.log.Debug().
		Str("dialect", c.dialect.Version).
		Str("host", rc.base.host).
		Str("tag_filter", c.opts.TagFilter).
		Msg("starting conversion")

	coll := &postman.Collection{
		Info: postman.Info{
			PostmanID: c.opts.NewID(),
			Name:      doc.Info.Title,
			Schema:    c.dialect.SchemaURL,
		},
	}
	if doc.Info.Description != "" {
		coll.Info.Description = postman.Markdown(doc.Info.Description)
	}

	asm := NewAssembler(rc.log)
	for path, item := range spec.Entries(doc.Paths) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var items []*postman.Item
		for _, method := range c.dialect.Methods {
			op := item.Operation(spec.HttpMethod(method))
			if op == nil {
				continue
			}
			rc.log.Debug().Msgf("Processing operation %s %s", strings.ToUpper(method), path)
			if it, ok := rc.BuildItem(path, method, op, item.Parameters); ok {
				items = append(items, it)
			}
		}
		asm.Add(path, items)
	}
	coll.Item = asm.Items()
	if coll.Item == nil {
		coll.Item = []*postman.Item{}
	}

	res := &Result{
		Collection:  coll,
		Environment: rc.env.environment(c.opts.EnvironmentName, c.opts.NewID(), c.opts.Now()),
	}

	var strictErr error
	if !c.opts.DisableOutputValidation && c.opts.Validator != nil {
		report, err := c.opts.Validator.Validate(ctx, coll)
		switch {
		case err != nil:
			rc.log.Warn().Err(err).Msg("failed to load schema; validation disabled")
			rc.diags.add(DiagValidationUnavailable, "", "%v", err)
		case !report.Valid:
			res.Validation = report
			rc.log.Warn().Strs("errors", report.Errors).Msg("generated collection does not match the Postman schema")
			rc.diags.add(DiagCollectionInvalid, "", "%s", strings.Join(report.Errors, "; "))
			if c.opts.Strict {
				strictErr = &ValidationFailedError{Errors: report.Errors}
			}
		default:
			res.Validation = report
		}
	}
	res.Diagnostics = rc.diags.all()
	return res, strictErr
}
