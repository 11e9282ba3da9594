package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

const defaultConfigName = "swag2post.yaml"

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample swag2post configuration file",
		Long:  "Scaffold a commented swag2post configuration file that documents the convert options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultConfigName, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigName
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := postman.WriteFile(absPath, []byte(content), cfg.Force); err != nil {
		if errors.Is(err, postman.ErrExists) {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting the convert options.
const sampleConfigYAML = `# swag2post configuration (YAML)
# All fields are optional. Environment variables (SWAG2POST_<FLAG_NAME>, e.g.
# SWAG2POST_TAG_FILTER) override the file; command-line flags override both.

# URL or file path of the Swagger specification (http/https or local file).
# input: ./swagger.yaml

# Target file path for the Postman collection.
# output: ./collection.json

# Overwrite the output (and environment) file if it exists.
# overwrite: false

# Write compact JSON instead of four-space indented output.
# compact: false

# Leave query parameters out of request URLs, all of them or only optional ones.
# excludeQueryParams: false
# excludeOptionalQueryParams: false

# Do not render example JSON request bodies.
# excludeBodyTemplate: false

# Do not generate response test scripts.
# excludeTests: false

# Only include operations carrying this tag.
# tagFilter: pets

# API host to use instead of the one in the specification.
# hostOverride: localhost:8080

# Security scheme to use when an operation allows several. Default: first listed.
# preferredSecurityScheme: api_key

# Produces type to send in Accept. Default: first listed.
# preferredProducesType: application/json

# Target file path for a Postman environment holding every placeholder variable.
# envfile: ./environment.json

# Postman collection format: 2.0.0 or 2.1.0.
# collectionVersion: 2.0.0

# Skip validating the collection against the Postman schema.
# disableOutputValidation: false

# Fail when the collection does not match the Postman schema.
# strict: false

# Enable verbose logging.
# verbose: false
`
