// Package project reads MLproject unit manifests and renders their entry
// point commands. Every pipeline step is an independently packaged unit
// carrying such a manifest; the driver never looks past it.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	goyaml "gopkg.in/yaml.v3"
)

// ManifestName is the fixed manifest file name inside a unit directory.
const ManifestName = "MLproject"

// Manifest is a unit's MLproject file.
type Manifest struct {
	Name        string                `yaml:"name"`
	CondaEnv    string                `yaml:"conda_env"`
	EntryPoints map[string]EntryPoint `yaml:"entry_points"`
}

// EntryPoint describes one runnable command of a unit.
type EntryPoint struct {
	Parameters map[string]Parameter `yaml:"parameters"`
	Command    string               `yaml:"command"`
}

// Parameter is a declared entry point parameter. Manifests use either the
// full mapping form (type/default/description) or a scalar shorthand that
// carries just the type.
type Parameter struct {
	Type        string `yaml:"type"`
	Default     any    `yaml:"default"`
	Description string `yaml:"description"`
}

func (p *Parameter) UnmarshalYAML(node *goyaml.Node) error {
	switch node.Kind {
	case goyaml.ScalarNode:
		// Shorthand: "sample: string"
		p.Type = node.Value
		return nil
	case goyaml.MappingNode:
		type plain Parameter
		var raw plain
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*p = Parameter(raw)
		return nil
	default:
		return fmt.Errorf("invalid parameter specification at line %d", node.Line)
	}
}

// Load reads the manifest of the unit rooted at dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit manifest at %q: %w", path, err)
	}

	var m Manifest
	if err := goyaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse unit manifest %q: %w", path, err)
	}

	if len(m.EntryPoints) == 0 {
		return nil, fmt.Errorf("unit manifest %q declares no entry points", path)
	}

	return &m, nil
}

// EntryPoint returns the named entry point.
func (m *Manifest) EntryPoint(name string) (EntryPoint, error) {
	ep, ok := m.EntryPoints[name]
	if !ok {
		return EntryPoint{}, fmt.Errorf("unit %q has no entry point %q", m.Name, name)
	}
	return ep, nil
}
