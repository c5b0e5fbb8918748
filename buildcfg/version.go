// Package buildcfg locates a host Python installation at build time and
// resolves the canonical interpreter configuration consumed by the pylink
// code generator and the pyclass layout engine.
package buildcfg

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a Python major.minor version, e.g. 3.9.
type Version struct {
	Major uint8
	Minor uint8
}

// MinimumSupportedVersion is the oldest Python version pylink can bind.
var MinimumSupportedVersion = Version{Major: 3, Minor: 6}

// ABI3MaxMinor is the highest minor version selectable as an abi3 minimum.
const ABI3MaxMinor = 14

// ParseVersion parses a "major.minor" version string.
func ParseVersion(s string) (Version, error) {
	major, minor, found := strings.Cut(s, ".")
	if !found {
		return Version{}, fmt.Errorf("expected major.minor version, got %q", s)
	}
	maj, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("failed to parse major version from %q: %w", s, err)
	}
	min, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("failed to parse minor version from %q: %w", s, err)
	}
	return Version{Major: uint8(maj), Minor: uint8(min)}, nil
}

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	return 0
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Implementation is the Python implementation flavor.
type Implementation int

const (
	// CPython is the reference implementation.
	CPython Implementation = iota
	// PyPy is the alternate implementation with its own cpyext ABI.
	PyPy
)

func (i Implementation) String() string {
	switch i {
	case CPython:
		return "CPython"
	case PyPy:
		return "PyPy"
	}
	return fmt.Sprintf("Implementation(%d)", int(i))
}

// ParseImplementation parses the name reported by platform.python_implementation().
func ParseImplementation(s string) (Implementation, error) {
	switch s {
	case "CPython":
		return CPython, nil
	case "PyPy":
		return PyPy, nil
	}
	return 0, fmt.Errorf("unknown interpreter implementation: %q", s)
}
