package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/expr-lang/expr"
)

// placeholderPattern matches a single ${...} occurrence inside a value.
var placeholderPattern = regexp.MustCompile(`\$\{([^{}]+)\}`)

// maxResolveDepth caps chained references (a -> b -> c); deeper chains are
// treated as cycles.
const maxResolveDepth = 10

// Custom expression functions available inside ${...} placeholders.
var exprFunctions = []expr.Option{
	expr.Function("env", func(params ...any) (any, error) {
		name, ok := params[0].(string)
		if !ok {
			return nil, fmt.Errorf("env() expects a string variable name, got %T", params[0])
		}
		if value, exists := os.LookupEnv(name); exists {
			return value, nil
		}
		if len(params) > 1 {
			return params[1], nil
		}
		return nil, fmt.Errorf("required environment variable not set: %s", name)
	},
		new(func(string) string),
		new(func(string, string) string),
	),
}

// interpolate resolves every ${...} placeholder in the tree in place.
// A placeholder holds an expression evaluated against the whole tree, so
// values can reference other keys ("${main.project_name}-clean") or the OS
// environment ("${env('WANDB_ENTITY', 'team')}"). A value that is exactly
// one placeholder keeps the referenced value's type; anything else is
// spliced as a string.
func interpolate(tree *gabs.Container) error {
	root, ok := tree.Data().(map[string]any)
	if !ok {
		return nil
	}
	return interpolateMap(root, root)
}

func interpolateMap(root, m map[string]any) error {
	for k, v := range m {
		resolved, err := interpolateValue(root, v)
		if err != nil {
			return err
		}
		m[k] = resolved
	}
	return nil
}

func interpolateSlice(root map[string]any, s []any) error {
	for i, v := range s {
		resolved, err := interpolateValue(root, v)
		if err != nil {
			return err
		}
		s[i] = resolved
	}
	return nil
}

func interpolateValue(root map[string]any, v any) (any, error) {
	switch value := v.(type) {
	case string:
		if !strings.Contains(value, "${") {
			return value, nil
		}
		return resolveString(root, value, 0)
	case map[string]any:
		return value, interpolateMap(root, value)
	case []any:
		return value, interpolateSlice(root, value)
	default:
		return v, nil
	}
}

// resolveString resolves the placeholders of one string value. The depth
// counter guards against self-referential configs.
func resolveString(root map[string]any, s string, depth int) (any, error) {
	if depth >= maxResolveDepth {
		return nil, fmt.Errorf("interpolation depth exceeded resolving %q (reference cycle?)", s)
	}

	// Whole-value reference: preserve the referenced type.
	if m := placeholderPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		result, err := evalPlaceholder(root, m[1])
		if err != nil {
			return nil, err
		}
		if nested, ok := result.(string); ok && strings.Contains(nested, "${") {
			return resolveString(root, nested, depth+1)
		}
		return result, nil
	}

	// Embedded references: splice each one as a string.
	var out strings.Builder
	last := 0
	for _, idx := range placeholderPattern.FindAllStringSubmatchIndex(s, -1) {
		out.WriteString(s[last:idx[0]])

		result, err := evalPlaceholder(root, s[idx[2]:idx[3]])
		if err != nil {
			return nil, err
		}
		if nested, ok := result.(string); ok && strings.Contains(nested, "${") {
			result, err = resolveString(root, nested, depth+1)
			if err != nil {
				return nil, err
			}
		}

		out.WriteString(Stringify(result))
		last = idx[1]
	}
	out.WriteString(s[last:])

	return out.String(), nil
}

// evalPlaceholder evaluates one placeholder expression against the tree.
// Unknown top-level names fail at compile time; a reference that resolves
// to nothing is an error rather than a silent empty value.
func evalPlaceholder(root map[string]any, expression string) (any, error) {
	opts := append([]expr.Option{expr.Env(root)}, exprFunctions...)

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve ${%s}: %w", expression, err)
	}

	result, err := expr.Run(program, root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve ${%s}: %w", expression, err)
	}
	if result == nil {
		return nil, fmt.Errorf("cannot resolve ${%s}: reference has no value", expression)
	}

	return result, nil
}
