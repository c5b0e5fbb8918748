package buildcfg

import "testing"

func TestDefaultLibNameWindows(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		impl    Implementation
		abi3    bool
		mingw   bool
		want    string
	}{
		{"msvc versioned", Version{3, 6}, CPython, false, false, "python36"},
		{"msvc abi3", Version{3, 7}, CPython, true, false, "python3"},
		{"mingw dotted", Version{3, 6}, CPython, false, true, "python3.6"},
		{"pypy ignores abi3", Version{3, 9}, PyPy, true, false, "python39"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultLibNameWindows(tt.version, tt.impl, tt.abi3, tt.mingw)
			if got != tt.want {
				t.Errorf("defaultLibNameWindows(%s, %s, abi3=%t, mingw=%t) = %q, want %q",
					tt.version, tt.impl, tt.abi3, tt.mingw, got, tt.want)
			}
		})
	}
}

func TestDefaultLibNameUnix(t *testing.T) {
	tests := []struct {
		name      string
		version   Version
		impl      Implementation
		ldVersion string
		want      string
	}{
		{"cpython dotted", Version{3, 9}, CPython, "", "python3.9"},
		{"cpython ld version", Version{3, 7}, CPython, "3.7md", "python3.7md"},
		{"pypy pre-3.9", Version{3, 7}, PyPy, "3.7", "pypy3-c"},
		{"pypy versioned", Version{3, 9}, PyPy, "3.9d", "pypy3.9d-c"},
		{"pypy no ld version", Version{3, 10}, PyPy, "", "pypy3-c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultLibNameUnix(tt.version, tt.impl, tt.ldVersion)
			if got != tt.want {
				t.Errorf("defaultLibNameUnix(%s, %s, %q) = %q, want %q",
					tt.version, tt.impl, tt.ldVersion, got, tt.want)
			}
		})
	}
}

func TestDefaultLibNameForTarget(t *testing.T) {
	linux := Triple{Arch: "x86_64", Vendor: "unknown", OS: "linux", Env: "gnu"}
	windowsMSVC := Triple{Arch: "x86_64", Vendor: "pc", OS: "windows", Env: "msvc"}
	windowsGNU := Triple{Arch: "x86_64", Vendor: "pc", OS: "windows", Env: "gnu"}

	if got := defaultLibNameForTarget(Version{3, 8}, CPython, false, linux); got != "python3.8" {
		t.Errorf("linux lib name = %q", got)
	}
	if got := defaultLibNameForTarget(Version{3, 8}, CPython, false, windowsMSVC); got != "python38" {
		t.Errorf("windows msvc lib name = %q", got)
	}
	if got := defaultLibNameForTarget(Version{3, 8}, CPython, false, windowsGNU); got != "python3.8" {
		t.Errorf("windows gnu lib name = %q", got)
	}
	if got := defaultLibNameForTarget(Version{3, 8}, CPython, true, windowsMSVC); got != "python3" {
		t.Errorf("windows abi3 lib name = %q", got)
	}
}
