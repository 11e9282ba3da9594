// Package mcpserver exposes the converter as MCP (Model Context Protocol)
// tools over stdio.
package mcpserver

import (
	"context"
	"regexp"

	"github.com/irbuch/swagger2-to-postman/internal/convert"
	"github.com/irbuch/swagger2-to-postman/internal/validate"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const serverInstructions = `swag2post MCP server: converts Swagger 2.0 (and OpenAPI 3.x, down-converted) documents into Postman collections and validates collections against the published Postman schema.

Specs can be passed as a file path, an http/https URL, or inline content. Conversion returns the collection inline unless an output path is given. Schema validation downloads the Postman schema once and caches it on disk.`

// toolset carries what the tool handlers share for one server.
type toolset struct {
	log zerolog.Logger
	// validatorFor returns the validator for a collection schema URL.
	validatorFor func(schemaURL string) convert.CollectionValidator
}

func newToolset(log zerolog.Logger, base *validate.Validator) *toolset {
	return &toolset{
		log: log,
		validatorFor: func(schemaURL string) convert.CollectionValidator {
			if schemaURL == "" || schemaURL == base.URL() {
				return base
			}
			return base.ForSchema(schemaURL)
		},
	}
}

// Run serves the tools over stdio until the client disconnects or ctx is
// cancelled.
func Run(ctx context.Context, version string, log zerolog.Logger, validator *validate.Validator) error {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "swag2post", Version: version},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)
	newToolset(log, validator).register(server)
	log.Debug().Str("version", version).Msg("serving MCP over stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (ts *toolset) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert",
		Description: "Convert a Swagger 2.0 document (OpenAPI 3.x is down-converted first) into a Postman collection. Requests are grouped into folders by first path segment. Options mirror the CLI: tag filter, host override, preferred security scheme and produces type, query/body/test exclusions, and collection version 2.0.0 or 2.1.0. Set validate=true to check the result against the Postman schema. Use output to write to a file instead of returning inline.",
	}, ts.handleConvert)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_collection",
		Description: "Validate a Postman collection against the published collection schema matching its info.schema URL. Returns the list of schema errors.",
	}, ts.handleValidateCollection)
}

// sourceInput is one of three ways to pass a document to a tool. Exactly
// one field must be set.
type sourceInput struct {
	File    string `json:"file,omitempty"    jsonschema:"Path to a document on disk"`
	URL     string `json:"url,omitempty"     jsonschema:"http or https URL to fetch the document from"`
	Content string `json:"content,omitempty" jsonschema:"Inline document content (JSON or YAML)"`
}

var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run|snap|nix)[a-zA-Z0-9._/-]*)`)

// sanitizeError strips absolute paths from messages sent to clients.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}
