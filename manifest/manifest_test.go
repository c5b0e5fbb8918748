package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "pylink.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "imaging"
version = "0.3.0"

[bindings]
packages = ["example.com/imaging/filters", "example.com/imaging/codecs"]
output = "bindings/pylink_bindings.go"

[classes.Histogram]
dict = true
weakref = true

[classes.Decoder]
frozen = true
unsendable = true
extends = "Codec"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "imaging" {
		t.Errorf("project name = %q, want imaging", m.Project.Name)
	}
	if m.Project.Version != "0.3.0" {
		t.Errorf("project version = %q, want 0.3.0", m.Project.Version)
	}
	if len(m.Bindings.Packages) != 2 {
		t.Errorf("packages count = %d, want 2", len(m.Bindings.Packages))
	}
	if m.Bindings.Output != "bindings/pylink_bindings.go" {
		t.Errorf("output = %q", m.Bindings.Output)
	}

	hist := m.Options("Histogram")
	if !hist.Dict || !hist.Weakref {
		t.Errorf("Histogram options = %+v, want dict and weakref", hist)
	}
	dec := m.Options("Decoder")
	if !dec.Frozen || !dec.Unsendable || dec.Extends != "Codec" {
		t.Errorf("Decoder options = %+v", dec)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Bindings.Output != "pylink_bindings.go" {
		t.Errorf("default output = %q, want pylink_bindings.go", m.Bindings.Output)
	}
	if opts := m.Options("Anything"); opts != (ClassOptions{}) {
		t.Errorf("unmentioned class options = %+v, want zero value", opts)
	}
	want := filepath.Join(m.Dir, "pylink_bindings.go")
	if m.OutputPath() != want {
		t.Errorf("OutputPath = %q, want %q", m.OutputPath(), want)
	}
}

func TestLoadManifestRequiresName(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[bindings]
packages = ["example.com/pkg"]
`)
	if _, err := Load(dir); err == nil {
		t.Error("a manifest without project.name should fail to load")
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load should fail when pylink.toml does not exist")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "nested"
`)
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "nested" {
		t.Errorf("FindAndLoad = %+v, want the manifest at the root", m)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("FindAndLoad = %+v, want nil when no manifest exists", m)
	}
}
