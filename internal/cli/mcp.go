package cli

import (
	"context"
	"os"

	"github.com/irbuch/swagger2-to-postman/internal/mcpserver"
	"github.com/irbuch/swagger2-to-postman/internal/validate"
	"github.com/spf13/cobra"
)

var mcpRunner = func(ctx context.Context, verbose bool) error {
	// stdout carries the protocol, so logs go to stderr only.
	log := newLogger(os.Stderr, verbose)
	return mcpserver.Run(ctx, Version, log, validate.New(validate.WithLogger(log)))
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the converter as MCP tools over stdio",
		Long:  "Start a Model Context Protocol server on stdin/stdout exposing the convert and validate_collection tools.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return mcpRunner(cmd.Context(), verbose)
		},
	}
}
