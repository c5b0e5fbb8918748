package buildcfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pylink-config.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveFromConfigFile(t *testing.T) {
	path := writeConfigFile(t, "implementation=CPython\nversion=3.8\nshared=true\nlib_name=python3.8\n")
	withEnv(t, map[string]string{"PYLINK_CONFIG_FILE": path})

	cfg, err := Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != (Version{3, 8}) {
		t.Errorf("version = %s", cfg.Version)
	}
	if cfg.LibName != "python3.8" {
		t.Errorf("lib name = %q", cfg.LibName)
	}
	if cfg.ABI3 {
		t.Error("abi3 should be false without a selection")
	}
}

func TestResolveConfigFileHonorsABI3Selection(t *testing.T) {
	path := writeConfigFile(t, "version=3.9\n")
	withEnv(t, map[string]string{
		"PYLINK_CONFIG_FILE": path,
		"PYLINK_ABI3_PY37":   "1",
	})

	cfg, err := Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ABI3 {
		t.Error("abi3 selection should apply to override files")
	}
	// The version clamps down to the selected minimum.
	if cfg.Version != (Version{3, 7}) {
		t.Errorf("version = %s, want the clamped 3.7", cfg.Version)
	}
}

func TestResolveClampAboveResolvedVersionFails(t *testing.T) {
	path := writeConfigFile(t, "version=3.6\n")
	withEnv(t, map[string]string{
		"PYLINK_CONFIG_FILE": path,
		"PYLINK_ABI3_PY37":   "1",
	})

	_, err := Resolve()
	if err == nil {
		t.Fatal("requesting a minimum above the resolved version should fail")
	}
	if !strings.Contains(err.Error(), "3.7") || !strings.Contains(err.Error(), "3.6") {
		t.Errorf("error should contain both versions, got: %v", err)
	}
}

func TestResolveRejectsUnsupportedVersion(t *testing.T) {
	path := writeConfigFile(t, "version=3.5\n")
	withEnv(t, map[string]string{"PYLINK_CONFIG_FILE": path})

	_, err := Resolve()
	if err == nil || !strings.Contains(err.Error(), "3.5") {
		t.Errorf("a pre-3.6 version should be rejected, got: %v", err)
	}
}

func TestResolveNoPythonRequiresABI3(t *testing.T) {
	withEnv(t, map[string]string{"PYLINK_NO_PYTHON": "1"})
	if _, err := Resolve(); err == nil {
		t.Error("PYLINK_NO_PYTHON without an abi3 selection should fail")
	}
}

func TestResolveNoPythonDefaultConfig(t *testing.T) {
	withEnv(t, map[string]string{
		"PYLINK_NO_PYTHON": "1",
		"PYLINK_ABI3_PY39": "1",
	})
	cfg, err := Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Implementation != CPython {
		t.Errorf("implementation = %v", cfg.Implementation)
	}
	if cfg.Version != (Version{3, 9}) {
		t.Errorf("version = %s, want 3.9", cfg.Version)
	}
	if !cfg.ABI3 || !cfg.Shared {
		t.Errorf("default abi3 config should be abi3 and shared: %+v", cfg)
	}
	if !cfg.BuildFlags.Equal(abi3BuildFlags()) {
		t.Errorf("flags = %v, want the abi3 default set", cfg.BuildFlags)
	}
}

func TestDefaultABI3ConfigWindowsLibName(t *testing.T) {
	win := Triple{Arch: "x86_64", Vendor: "pc", OS: "windows", Env: "msvc"}
	cfg := defaultABI3Config(win, Version{3, 8})
	if cfg.LibName != "python3" {
		t.Errorf("lib name = %q, want python3", cfg.LibName)
	}

	linux := Triple{Arch: "x86_64", Vendor: "unknown", OS: "linux", Env: "gnu"}
	if cfg := defaultABI3Config(linux, Version{3, 8}); cfg.LibName != "" {
		t.Errorf("unix abi3 default should not pin a lib name, got %q", cfg.LibName)
	}
}
