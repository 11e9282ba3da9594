package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/validate"
	"github.com/spf13/cobra"
)

// ValidateConfig captures the options for the validate command.
type ValidateConfig struct {
	File      string
	SchemaURL string
	NoCache   bool
	Verbose   bool

	stdout io.Writer
	stderr io.Writer
}

var validateRunner = runValidate

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <collection.json>",
		Short: "Validate a Postman collection against the published schema",
		Long: "Validate a Postman collection against the collection schema named by its info.schema URL. " +
			"Prints \"No issues found.\" or the list of schema errors.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return newUsageError(fmt.Sprintf("validate: expected exactly one collection file, got %d\n\n%s", len(args), cmd.UsageString()))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaURL, err := cmd.Flags().GetString("schema")
			if err != nil {
				return err
			}
			noCache, err := cmd.Flags().GetBool("no-cache")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return validateRunner(cmd.Context(), &ValidateConfig{
				File:      strings.TrimSpace(args[0]),
				SchemaURL: strings.TrimSpace(schemaURL),
				NoCache:   noCache,
				Verbose:   verbose,
				stdout:    cmd.OutOrStdout(),
				stderr:    cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().String("schema", "", "Schema URL to validate against (default: derived from info.schema)")
	cmd.Flags().Bool("no-cache", false, "Always download the schema instead of using the on-disk cache")

	return cmd
}

func runValidate(ctx context.Context, cfg *ValidateConfig) error {
	stdout := cfg.stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	log := newLogger(writerOr(cfg.stderr), cfg.Verbose)

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	coll, err := postman.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("failed to read file: %s: %w", cfg.File, err)
	}

	schemaURL := cfg.SchemaURL
	if schemaURL == "" {
		schemaURL = postman.SchemaV200
		if d, ok := postman.DialectForSchema(coll.Info.Schema); ok {
			schemaURL = d.SchemaURL
		}
	}
	opts := []validate.Option{validate.WithURL(schemaURL), validate.WithLogger(log)}
	if cfg.NoCache {
		opts = append(opts, validate.WithCacheDir(""))
	}
	v := validate.New(opts...)

	started := time.Now()
	if err := v.Load(ctx); err != nil {
		// A schema that cannot be fetched is reported, not fatal.
		log.Error().Err(err).Msg("failed to load schema")
		return nil
	}
	log.Debug().Dur("elapsed", time.Since(started)).Str("url", schemaURL).Msg("postman schema loaded")

	report, err := v.ValidateBytes(ctx, data)
	if err != nil {
		return err
	}
	if report.Valid {
		fmt.Fprintln(stdout, "No issues found.")
		return nil
	}
	out, _ := json.MarshalIndent(report.Errors, "", "  ")
	fmt.Fprintln(writerOr(cfg.stderr), string(out))
	return fmt.Errorf("%s: %d schema issue(s) found", cfg.File, len(report.Errors))
}
