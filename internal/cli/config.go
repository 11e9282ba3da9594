package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix selects environment variables such as SWAG2POST_TAG_FILTER.
const envPrefix = "SWAG2POST_"

// configKey binds a command-line flag to its key in config files.
type configKey struct {
	flag string
	key  string
}

// convertKeys lists every setting of the convert command. Config files use
// the key column; environment variables use the flag column upper-cased
// with dashes turned into underscores.
var convertKeys = []configKey{
	{"input", "input"},
	{"output", "output"},
	{"overwrite", "overwrite"},
	{"compact", "compact"},
	{"exclude-query-params", "excludeQueryParams"},
	{"exclude-optional-query-params", "excludeOptionalQueryParams"},
	{"exclude-body-template", "excludeBodyTemplate"},
	{"exclude-tests", "excludeTests"},
	{"tag-filter", "tagFilter"},
	{"host", "hostOverride"},
	{"default-security", "preferredSecurityScheme"},
	{"default-produces-type", "preferredProducesType"},
	{"envfile", "envfile"},
	{"collection-version", "collectionVersion"},
	{"disable-validation", "disableOutputValidation"},
	{"strict", "strict"},
	{"verbose", "verbose"},
}

func keyForFlag(name string) string {
	for _, k := range convertKeys {
		if k.flag == name {
			return k.key
		}
	}
	return ""
}

// keyForConfigField accepts any spelling that normalizes to a known key or
// flag, so excludeTests, exclude_tests and exclude-tests are the same field.
func keyForConfigField(field string) (string, bool) {
	norm := normalizeKey(field)
	for _, k := range convertKeys {
		if normalizeKey(k.key) == norm || normalizeKey(k.flag) == norm {
			return k.key, true
		}
	}
	return "", false
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

// loadLayered merges, lowest precedence first: flag defaults, the config
// file, SWAG2POST_* environment variables, and flags set on the command line.
func loadLayered(flags *pflag.FlagSet, configPath string) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadConfigFile(k, configPath); err != nil {
			return nil, err
		}
	}

	envKeys := env.Provider(envPrefix, ".", func(name string) string {
		flag := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "_", "-")
		return keyForFlag(flag)
	})
	if err := k.Load(envKeys, nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	flagKeys := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key := keyForFlag(f.Name)
		if key == "" {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(flagKeys, nil); err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}
	return k, nil
}

// loadConfigFile reads a YAML or JSON file (chosen by extension, YAML when
// unknown) and copies its fields into k. Unknown fields are usage errors.
func loadConfigFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}
	var parser koanf.Parser = kyaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = kjson.Parser()
	}

	fk := koanf.New(".")
	if err := fk.Load(file.Provider(path), parser); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}
	for field, value := range fk.Raw() {
		key, ok := keyForConfigField(field)
		if !ok {
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, field))
		}
		if err := k.Set(key, value); err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", field, err))
		}
	}
	return nil
}
