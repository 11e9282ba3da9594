package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/irbuch/swagger2-to-postman/internal/convert"
	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type convertInput struct {
	Spec                       sourceInput `json:"spec"                                    jsonschema:"The Swagger or OpenAPI document to convert"`
	CollectionVersion          string      `json:"collection_version,omitempty"            jsonschema:"Postman collection format: 2.0.0 (default) or 2.1.0"`
	TagFilter                  string      `json:"tag_filter,omitempty"                    jsonschema:"Only convert operations carrying this tag"`
	Host                       string      `json:"host,omitempty"                          jsonschema:"Host to use instead of the document host"`
	DefaultSecurity            string      `json:"default_security,omitempty"              jsonschema:"Security scheme to prefer when an operation allows several"`
	DefaultProducesType        string      `json:"default_produces_type,omitempty"         jsonschema:"Media type to send in Accept when the operation produces it"`
	ExcludeQueryParams         bool        `json:"exclude_query_params,omitempty"          jsonschema:"Leave all query parameters out of request URLs"`
	ExcludeOptionalQueryParams bool        `json:"exclude_optional_query_params,omitempty" jsonschema:"Leave optional query parameters out of request URLs"`
	ExcludeBodyTemplate        bool        `json:"exclude_body_template,omitempty"         jsonschema:"Do not render example JSON request bodies"`
	ExcludeTests               bool        `json:"exclude_tests,omitempty"                 jsonschema:"Do not generate test scripts"`
	Environment                string      `json:"environment,omitempty"                   jsonschema:"Also build a Postman environment with this name"`
	Validate                   bool        `json:"validate,omitempty"                      jsonschema:"Check the collection against the Postman schema"`
	Output                     string      `json:"output,omitempty"                        jsonschema:"File path to write the collection to. If omitted the collection is returned inline."`
	Overwrite                  bool        `json:"overwrite,omitempty"                     jsonschema:"Replace output if it already exists"`
}

type diagnosticOutput struct {
	Code     string `json:"code"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

type convertOutput struct {
	Name             string             `json:"name"`
	Schema           string             `json:"schema"`
	RequestCount     int                `json:"request_count"`
	FolderCount      int                `json:"folder_count"`
	Diagnostics      []diagnosticOutput `json:"diagnostics,omitempty"`
	Validated        bool               `json:"validated"`
	Valid            bool               `json:"valid"`
	ValidationErrors []string           `json:"validation_errors,omitempty"`
	WrittenTo        string             `json:"written_to,omitempty"`
	Collection       string             `json:"collection,omitempty"`
	Environment      string             `json:"environment,omitempty"`
}

func (ts *toolset) handleConvert(ctx context.Context, _ *mcp.CallToolRequest, input convertInput) (*mcp.CallToolResult, convertOutput, error) {
	doc, err := loadSpec(ctx, input.Spec, spec.WithLogger(ts.log))
	if err != nil {
		return errResult(err), convertOutput{}, nil
	}
	dialect, err := postman.DialectFor(input.CollectionVersion)
	if err != nil {
		return errResult(err), convertOutput{}, nil
	}

	opts := convert.Options{
		ExcludeQueryParams:         input.ExcludeQueryParams,
		ExcludeOptionalQueryParams: input.ExcludeOptionalQueryParams,
		ExcludeBodyTemplate:        input.ExcludeBodyTemplate,
		ExcludeTests:               input.ExcludeTests,
		TagFilter:                  input.TagFilter,
		HostOverride:               input.Host,
		PreferredSecurityScheme:    input.DefaultSecurity,
		PreferredProducesType:      input.DefaultProducesType,
		DisableOutputValidation:    !input.Validate,
		Dialect:                    &dialect,
		EnvironmentName:            input.Environment,
		Logger:                     ts.log,
	}
	if input.Validate {
		opts.Validator = ts.validatorFor(dialect.SchemaURL)
	}

	res, err := convert.New(opts).Convert(ctx, doc)
	if err != nil {
		return errResult(err), convertOutput{}, nil
	}

	out := convertOutput{
		Name:         res.Collection.Info.Name,
		Schema:       res.Collection.Info.Schema,
		RequestCount: len(res.Collection.Requests()),
		Validated:    res.Validation != nil,
	}
	for _, it := range res.Collection.Item {
		if it.IsFolder() {
			out.FolderCount++
		}
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticOutput{Code: string(d.Code), Location: d.Location, Message: d.Message})
	}
	if res.Validation != nil {
		out.Valid = res.Validation.Valid
		out.ValidationErrors = res.Validation.Errors
	}

	data, err := postman.Marshal(res.Collection, false)
	if err != nil {
		return errResult(err), convertOutput{}, nil
	}
	if input.Output != "" {
		if err := postman.WriteFile(input.Output, data, input.Overwrite); err != nil {
			if errors.Is(err, postman.ErrExists) {
				err = fmt.Errorf("output already exists; set overwrite=true to replace it")
			}
			return errResult(err), convertOutput{}, nil
		}
		out.WrittenTo = input.Output
	} else {
		out.Collection = string(data)
	}
	if res.Environment != nil {
		envData, err := postman.Marshal(res.Environment, false)
		if err != nil {
			return errResult(err), convertOutput{}, nil
		}
		out.Environment = string(envData)
	}
	return nil, out, nil
}

func loadSpec(ctx context.Context, in sourceInput, opts ...spec.Option) (*spec.Document, error) {
	switch {
	case in.File != "":
		return spec.Load(ctx, in.File, opts...)
	case in.URL != "":
		return spec.Load(ctx, in.URL, opts...)
	case in.Content != "":
		return spec.LoadBytes(ctx, []byte(in.Content), "inline", opts...)
	default:
		return nil, fmt.Errorf("exactly one of file, url, or content must be provided")
	}
}
