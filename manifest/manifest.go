// Package manifest handles pylink.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a pylink.toml project configuration.
type Manifest struct {
	Project  Project                 `toml:"project"`
	Bindings Bindings                `toml:"bindings"`
	Classes  map[string]ClassOptions `toml:"classes"`

	// Dir is the directory containing the pylink.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Bindings configures which Go packages get extension bindings generated.
type Bindings struct {
	Packages []string `toml:"packages"`
	Output   string   `toml:"output"`
}

// ClassOptions overrides layout and checker behavior for one bound class,
// keyed by the Go type name.
type ClassOptions struct {
	// Dict and Weakref opt the class into the respective instance slots.
	Dict    bool `toml:"dict"`
	Weakref bool `toml:"weakref"`

	// Frozen makes the class immutable: no exclusive borrows.
	Frozen bool `toml:"frozen"`

	// Unsendable binds each instance to the thread that first touches it.
	Unsendable bool `toml:"unsendable"`

	// Extends names the bound class this one inherits from, empty for a
	// chain root.
	Extends string `toml:"extends"`
}

// Load parses a pylink.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "pylink.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if m.Project.Name == "" {
		return nil, fmt.Errorf("%s: project.name is required", path)
	}

	// Defaults
	if m.Bindings.Output == "" {
		m.Bindings.Output = "pylink_bindings.go"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a pylink.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "pylink.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// OutputPath returns the absolute path the generated bindings are written to.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Bindings.Output) {
		return m.Bindings.Output
	}
	return filepath.Join(m.Dir, m.Bindings.Output)
}

// Options returns the layout options for a bound class, zero-valued when
// the manifest does not mention it.
func (m *Manifest) Options(className string) ClassOptions {
	return m.Classes[className]
}
