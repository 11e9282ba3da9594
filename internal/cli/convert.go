package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/irbuch/swagger2-to-postman/internal/convert"
	"github.com/irbuch/swagger2-to-postman/internal/postman"
	"github.com/irbuch/swagger2-to-postman/internal/spec"
	"github.com/irbuch/swagger2-to-postman/internal/validate"
	"github.com/spf13/cobra"
)

// ConvertConfig captures all inputs that influence the convert command after
// merging defaults, config file values, environment, and CLI overrides.
type ConvertConfig struct {
	Input                      string `koanf:"input"`
	Output                     string `koanf:"output"`
	Overwrite                  bool   `koanf:"overwrite"`
	Compact                    bool   `koanf:"compact"`
	ExcludeQueryParams         bool   `koanf:"excludeQueryParams"`
	ExcludeOptionalQueryParams bool   `koanf:"excludeOptionalQueryParams"`
	ExcludeBodyTemplate        bool   `koanf:"excludeBodyTemplate"`
	ExcludeTests               bool   `koanf:"excludeTests"`
	TagFilter                  string `koanf:"tagFilter"`
	HostOverride               string `koanf:"hostOverride"`
	PreferredSecurityScheme    string `koanf:"preferredSecurityScheme"`
	PreferredProducesType      string `koanf:"preferredProducesType"`
	Envfile                    string `koanf:"envfile"`
	CollectionVersion          string `koanf:"collectionVersion"`
	DisableOutputValidation    bool   `koanf:"disableOutputValidation"`
	Strict                     bool   `koanf:"strict"`
	Verbose                    bool   `koanf:"verbose"`
	ConfigPath                 string `koanf:"-"`

	stderr io.Writer
}

func defaultConvertConfig() ConvertConfig {
	return ConvertConfig{CollectionVersion: postman.DialectV200.Version}
}

var convertRunner = runConvert

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a Swagger 2.0 document into a Postman collection",
		Long: "Convert a Swagger 2.0 document (or an OpenAPI 3.x document, down-converted first) into a Postman collection. " +
			"Options can be provided via flags, SWAG2POST_* environment variables, config files, or defaults.",
		Example: strings.TrimSpace(`  swag2post convert -i petstore.yaml -o petstore.postman.json
  swag2post convert -i https://example.com/swagger.json -o out.json -w --collection-version 2.1.0
  swag2post --config swag2post.yaml convert --tag-filter pets --envfile petstore.env.json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConvertConfig(cmd)
			if err != nil {
				return err
			}
			return convertRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "(required) URL or file path of the Swagger specification")
	flags.StringP("output", "o", "", "(required) Target file path for the Postman collection")
	flags.BoolP("overwrite", "w", false, "Overwrite the output file if it exists")
	flags.BoolP("compact", "c", false, "Compact the output")
	flags.Bool("exclude-query-params", false, "Exclude query parameters")
	flags.Bool("exclude-optional-query-params", false, "Exclude optional query parameters")
	flags.Bool("exclude-body-template", false, "Exclude body templates")
	flags.Bool("exclude-tests", false, "Exclude response tests")
	flags.StringP("tag-filter", "t", "", "Only include operations with this tag")
	flags.String("host", "", "API host to use instead of the one in the specification")
	flags.String("default-security", "", "Security scheme to use when several are allowed (default: first listed)")
	flags.String("default-produces-type", "", "Produces type to send in Accept (default: first listed)")
	flags.String("envfile", "", "Target file path for a Postman environment")
	flags.String("collection-version", postman.DialectV200.Version, "Postman collection format (2.0.0 or 2.1.0)")
	flags.Bool("disable-validation", false, "Skip validating the collection against the Postman schema")
	flags.Bool("strict", false, "Fail when the collection does not match the Postman schema")

	return cmd
}

func resolveConvertConfig(cmd *cobra.Command) (*ConvertConfig, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)

	k, err := loadLayered(cmd.Flags(), configPath)
	if err != nil {
		return nil, err
	}
	cfg := defaultConvertConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, newUsageError(fmt.Sprintf("convert: invalid configuration: %v", err))
	}
	cfg.ConfigPath = configPath
	cfg.stderr = cmd.ErrOrStderr()

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ConvertConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Output = strings.TrimSpace(c.Output)
	c.TagFilter = strings.TrimSpace(c.TagFilter)
	c.HostOverride = strings.TrimSpace(c.HostOverride)
	c.PreferredSecurityScheme = strings.TrimSpace(c.PreferredSecurityScheme)
	c.PreferredProducesType = strings.TrimSpace(c.PreferredProducesType)
	c.Envfile = strings.TrimSpace(c.Envfile)
	c.CollectionVersion = strings.TrimSpace(c.CollectionVersion)
}

func (c *ConvertConfig) validate() error {
	if c.Input == "" {
		return newUsageError("convert: --input is required (set via flag or config file)")
	}
	if c.Output == "" {
		return newUsageError("convert: --output is required (set via flag or config file)")
	}
	if _, err := postman.DialectFor(c.CollectionVersion); err != nil {
		return newUsageError(fmt.Sprintf("convert: %v", err))
	}
	return nil
}

func (c *ConvertConfig) options(dialect postman.Dialect) convert.Options {
	return convert.Options{
		ExcludeQueryParams:         c.ExcludeQueryParams,
		ExcludeOptionalQueryParams: c.ExcludeOptionalQueryParams,
		ExcludeBodyTemplate:        c.ExcludeBodyTemplate,
		ExcludeTests:               c.ExcludeTests,
		TagFilter:                  c.TagFilter,
		HostOverride:               c.HostOverride,
		PreferredSecurityScheme:    c.PreferredSecurityScheme,
		PreferredProducesType:      c.PreferredProducesType,
		DisableOutputValidation:    c.DisableOutputValidation,
		Strict:                     c.Strict,
		Dialect:                    &dialect,
		EnvironmentName:            c.Envfile,
	}
}

func runConvert(ctx context.Context, cfg *ConvertConfig) error {
	started := time.Now()
	log := newLogger(writerOr(cfg.stderr), cfg.Verbose)

	dialect, err := postman.DialectFor(cfg.CollectionVersion)
	if err != nil {
		return newUsageError(fmt.Sprintf("convert: %v", err))
	}

	// 1) Load the spec (file or http/https URL) with validation and conversion
	doc, err := spec.Load(ctx, cfg.Input, spec.WithLogger(log))
	if err != nil {
		return specUsageError(err)
	}

	// 2) Walk it into a collection, validating the result unless disabled
	opts := cfg.options(dialect)
	opts.Logger = log
	if !cfg.DisableOutputValidation {
		opts.Validator = validate.New(validate.WithURL(dialect.SchemaURL), validate.WithLogger(log))
	}
	res, err := convert.New(opts).Convert(ctx, doc)
	for _, d := range diagnosticsOf(res) {
		log.Warn().Str("code", string(d.Code)).Str("location", d.Location).Msg(d.Message)
	}
	if err != nil {
		return fmt.Errorf("unable to convert specification: %w", err)
	}

	// 3) Store the collection and, when requested, the environment
	log.Info().Msg("writing collection...")
	if err := writeDocument(cfg.Output, res.Collection, cfg.Compact, cfg.Overwrite); err != nil {
		return err
	}
	log.Info().Str("path", cfg.Output).Int("requests", len(res.Collection.Requests())).Msg("collection stored")

	if cfg.Envfile != "" && res.Environment != nil {
		if err := writeDocument(cfg.Envfile, res.Environment, cfg.Compact, cfg.Overwrite); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Envfile).Int("variables", len(res.Environment.Values)).Msg("environment stored")
	}
	log.Info().Dur("elapsed", time.Since(started)).Msg("conversion completed")
	return nil
}

func diagnosticsOf(res *convert.Result) []convert.Diagnostic {
	if res == nil {
		return nil
	}
	return res.Diagnostics
}

func writeDocument(path string, v any, compact, overwrite bool) error {
	data, err := postman.Marshal(v, compact)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := postman.WriteFile(path, data, overwrite); err != nil {
		if errors.Is(err, postman.ErrExists) {
			return newUsageError(fmt.Sprintf("output error: %v", err))
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// specUsageError maps structured spec errors into friendly messages.
func specUsageError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}
