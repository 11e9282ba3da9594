package convert

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/irbuch/swagger2-to-postman/internal/postman"
)

// envCollector records placeholder variable names for the environment file.
type envCollector struct {
	enabled bool
	keys    []string
	seen    map[string]struct{}
}

func newEnvCollector(enabled bool) *envCollector {
	return &envCollector{enabled: enabled, seen: map[string]struct{}{}}
}

func (e *envCollector) add(name string) {
	if !e.enabled || name == "" {
		return
	}
	if _, dup := e.seen[name]; dup {
		return
	}
	e.seen[name] = struct{}{}
	e.keys = append(e.keys, name)
}

// environment builds the environment document, or nil when disabled.
func (e *envCollector) environment(name, id string, now time.Time) *postman.Environment {
	if !e.enabled {
		return nil
	}
	env := &postman.Environment{
		ID:        id,
		Name:      EnvironmentName(name),
		Values:    make([]postman.EnvValue, 0, len(e.keys)),
		Timestamp: now.UnixMilli(),
		Scope:     "environment",
	}
	for _, k := range e.keys {
		env.Values = append(env.Values, postman.EnvValue{Key: k, Value: "", Type: "text", Enabled: true})
	}
	return env
}

// EnvironmentName derives the environment name from its file path.
func EnvironmentName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}
