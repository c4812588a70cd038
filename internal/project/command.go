package project

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mlpipe/internal/config"
)

var safeArgPattern = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// BuildCommand renders the entry point command for the given parameter
// values. Declared parameters fall back to their manifest defaults, and a
// declared parameter with neither a value nor a default is an error. Values
// for parameters the manifest does not declare are appended as --name value
// flags in name order.
func (ep EntryPoint) BuildCommand(values map[string]string) (string, error) {
	resolved := make(map[string]string, len(ep.Parameters))
	for name, spec := range ep.Parameters {
		if v, ok := values[name]; ok {
			resolved[name] = v
			continue
		}
		if spec.Default != nil {
			resolved[name] = config.Stringify(spec.Default)
			continue
		}
		return "", fmt.Errorf("no value for required parameter %q", name)
	}

	command := ep.Command
	for name, v := range resolved {
		command = strings.ReplaceAll(command, "{"+name+"}", shellQuote(v))
	}

	var extra []string
	for name := range values {
		if _, declared := ep.Parameters[name]; !declared {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		command += fmt.Sprintf(" --%s %s", name, shellQuote(values[name]))
	}

	return command, nil
}

// shellQuote wraps v in single quotes unless it consists solely of
// characters the shell passes through untouched.
func shellQuote(v string) string {
	if v == "" {
		return "''"
	}
	if safeArgPattern.MatchString(v) {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
