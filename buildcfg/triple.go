package buildcfg

import (
	"fmt"
	"runtime"
	"strings"
)

// Triple is a target descriptor in arch-vendor-os[-env] form, e.g.
// "aarch64-unknown-linux-gnu". Only the fields the probe consults are kept.
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	Env    string
}

// ParseTriple parses an LLVM-style target triple.
func ParseTriple(s string) (Triple, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return Triple{}, fmt.Errorf("unrecognized target triple %q", s)
	}
	t := Triple{Arch: parts[0], Vendor: parts[1], OS: parts[2]}
	if len(parts) > 3 {
		t.Env = strings.Join(parts[3:], "-")
	}
	return t, nil
}

func (t Triple) String() string {
	s := t.Arch + "-" + t.Vendor + "-" + t.OS
	if t.Env != "" {
		s += "-" + t.Env
	}
	return s
}

// goarchTriple maps GOARCH values to triple architecture names.
var goarchTriple = map[string]string{
	"amd64": "x86_64",
	"386":   "i686",
	"arm64": "aarch64",
	"arm":   "arm",
	"wasm":  "wasm32",
}

// HostTriple derives the build machine's triple from the Go runtime.
func HostTriple() Triple {
	arch := goarchTriple[runtime.GOARCH]
	if arch == "" {
		arch = runtime.GOARCH
	}
	switch runtime.GOOS {
	case "darwin":
		return Triple{Arch: arch, Vendor: "apple", OS: "darwin"}
	case "windows":
		return Triple{Arch: arch, Vendor: "pc", OS: "windows", Env: "msvc"}
	default:
		return Triple{Arch: arch, Vendor: "unknown", OS: runtime.GOOS, Env: "gnu"}
	}
}

// TargetTriple returns the compilation target, honoring the PYLINK_TARGET
// override and defaulting to the host.
func TargetTriple() (Triple, error) {
	if raw, ok := envVar("PYLINK_TARGET"); ok {
		return ParseTriple(raw)
	}
	return HostTriple(), nil
}

// BuildTriple returns the build machine's triple, honoring the PYLINK_HOST
// override for builds driven from inside an emulated environment.
func BuildTriple() (Triple, error) {
	if raw, ok := envVar("PYLINK_HOST"); ok {
		return ParseTriple(raw)
	}
	return HostTriple(), nil
}

// osAlias maps triple OS names to the names Python's build system uses in
// lib.<platform> directory names.
func osAlias(os string) string {
	if os == "darwin" {
		return "macosx"
	}
	return os
}
