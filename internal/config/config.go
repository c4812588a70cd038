package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
	goyaml "gopkg.in/yaml.v3"
)

// Config is the hierarchical configuration tree for a pipeline run, loaded
// once at startup and read-only afterwards. Keys are addressed with dotted
// paths ("modeling.random_forest.max_depth").
type Config struct {
	tree *gabs.Container

	// Dir is the absolute directory containing the config file. Local step
	// units are resolved relative to it (src/<step>).
	Dir string
}

// MissingKeyError reports a required configuration key that is absent.
// Resolving any step parameter against a missing key is fatal.
type MissingKeyError struct {
	Path string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required config key: %s", e.Path)
}

// Load reads the YAML config file, applies command-line overrides
// ("path.to.key=value", values typed as YAML scalars) and resolves ${...}
// interpolations. The returned tree is immutable for the rest of the run.
func Load(path string, overrides []string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %q: %w", absPath, err)
	}

	var raw map[string]any
	if err := goyaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", absPath, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// Round-trip through JSON so every branch of the tree uses the types
	// gabs navigates (map[string]any / []any).
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}

	tree, err := gabs.ParseJSON(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build config tree: %w", err)
	}

	for _, o := range overrides {
		if err := applyOverride(tree, o); err != nil {
			return nil, err
		}
	}

	if err := interpolate(tree); err != nil {
		return nil, err
	}

	return &Config{
		tree: tree,
		Dir:  filepath.Dir(absPath),
	}, nil
}

// applyOverride sets a single "path=value" override on the tree, creating
// intermediate objects as needed. The value is parsed as a YAML scalar so
// "42" becomes an int and "true" a bool, matching file-supplied values.
func applyOverride(tree *gabs.Container, override string) error {
	key, value, ok := strings.Cut(override, "=")
	if !ok || key == "" {
		return fmt.Errorf("invalid override %q: expected path=value", override)
	}

	var typed any
	if err := goyaml.Unmarshal([]byte(value), &typed); err != nil {
		return fmt.Errorf("invalid override value in %q: %w", override, err)
	}

	if _, err := tree.SetP(typed, key); err != nil {
		return fmt.Errorf("failed to apply override %q: %w", override, err)
	}

	return nil
}

// Exists reports whether the dotted path is present in the tree.
func (c *Config) Exists(path string) bool {
	return c.tree.ExistsP(path)
}

// Value returns the value at the dotted path, or a MissingKeyError.
func (c *Config) Value(path string) (any, error) {
	if !c.tree.ExistsP(path) {
		return nil, &MissingKeyError{Path: path}
	}
	return c.tree.Path(path).Data(), nil
}

// Subtree returns the mapping at the dotted path. It fails with a
// MissingKeyError when absent and a plain error when the value is a scalar.
func (c *Config) Subtree(path string) (map[string]any, error) {
	v, err := c.Value(path)
	if err != nil {
		return nil, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config key %s is not a mapping (got %T)", path, v)
	}
	return m, nil
}

// Stringify renders a scalar config value the way it is handed to external
// units: booleans as true/false, whole floats without a trailing ".0".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
