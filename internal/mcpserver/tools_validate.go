package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type validateInput struct {
	Collection sourceInput `json:"collection" jsonschema:"The Postman collection to validate (file or content)"`
}

type validateOutput struct {
	Schema     string   `json:"schema"`
	Valid      bool     `json:"valid"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors,omitempty"`
}

func (ts *toolset) handleValidateCollection(ctx context.Context, _ *mcp.CallToolRequest, input validateInput) (*mcp.CallToolResult, validateOutput, error) {
	var data []byte
	switch {
	case input.Collection.File != "":
		raw, err := os.ReadFile(input.Collection.File)
		if err != nil {
			return errResult(fmt.Errorf("read collection: %w", err)), validateOutput{}, nil
		}
		data = raw
	case input.Collection.Content != "":
		data = []byte(input.Collection.Content)
	case input.Collection.URL != "":
		return errResult(fmt.Errorf("collections can only be passed as file or content")), validateOutput{}, nil
	default:
		return errResult(fmt.Errorf("exactly one of file or content must be provided")), validateOutput{}, nil
	}

	coll, err := postman.Unmarshal(data)
	if err != nil {
		return errResult(fmt.Errorf("collection is not valid JSON: %w", err)), validateOutput{}, nil
	}
	schemaURL := postman.SchemaV200
	if d, ok := postman.DialectForSchema(coll.Info.Schema); ok {
		schemaURL = d.SchemaURL
	}

	// The raw bytes are validated so fields the model drops are checked too.
	report, err := ts.validatorFor(schemaURL).Validate(ctx, data)
	if err != nil {
		return errResult(err), validateOutput{}, nil
	}
	return nil, validateOutput{
		Schema:     schemaURL,
		Valid:      report.Valid,
		ErrorCount: len(report.Errors),
		Errors:     report.Errors,
	}, nil
}
