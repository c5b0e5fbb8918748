package buildcfg

import (
	"fmt"
	"sort"
	"strings"
)

// BuildFlag is a single compile-time switch of the host interpreter.
// The set of flags is open-ended: the interpreter's build system may define
// ad hoc flags, which pass through as-is rather than failing the parse.
type BuildFlag string

const (
	PyDebug     BuildFlag = "Py_DEBUG"
	PyRefDebug  BuildFlag = "Py_REF_DEBUG"
	PyTraceRefs BuildFlag = "Py_TRACE_REFS"
	CountAllocs BuildFlag = "COUNT_ALLOCS"
	WithThread  BuildFlag = "WITH_THREAD"
)

// knownFlags is the fixed, ordered list queried from the interpreter's
// sysconfig. The probe script prints one line per entry, in this order.
var knownFlags = []BuildFlag{PyDebug, PyRefDebug, PyTraceRefs, CountAllocs, WithThread}

// BuildFlags is a set of interpreter build flags.
type BuildFlags map[BuildFlag]struct{}

// NewBuildFlags returns an empty flag set.
func NewBuildFlags(flags ...BuildFlag) BuildFlags {
	set := make(BuildFlags, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}
	return set
}

// abi3BuildFlags is the default flag set for limited-API builds.
// The limited API is never a debug build.
func abi3BuildFlags() BuildFlags {
	return NewBuildFlags(WithThread)
}

// Has reports whether the flag is in the set.
func (b BuildFlags) Has(flag BuildFlag) bool {
	_, ok := b[flag]
	return ok
}

// Insert adds the flag to the set.
func (b BuildFlags) Insert(flag BuildFlag) {
	b[flag] = struct{}{}
}

// Equal reports set equality.
func (b BuildFlags) Equal(other BuildFlags) bool {
	if len(b) != len(other) {
		return false
	}
	for f := range b {
		if !other.Has(f) {
			return false
		}
	}
	return true
}

// sorted returns the flags in lexical order for deterministic rendering.
func (b BuildFlags) sorted() []BuildFlag {
	flags := make([]BuildFlag, 0, len(b))
	for f := range b {
		flags = append(flags, f)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return flags
}

// String renders the set as a comma-joined token list.
func (b BuildFlags) String() string {
	var sb strings.Builder
	for i, f := range b.sorted() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(f))
	}
	return sb.String()
}

// ParseBuildFlags parses a comma-joined token list. Unknown tokens are kept
// verbatim; a trailing separator yields no empty flag.
func ParseBuildFlags(s string) BuildFlags {
	set := NewBuildFlags()
	for _, tok := range strings.Split(s, ",") {
		if tok == "" {
			continue
		}
		set.Insert(BuildFlag(tok))
	}
	return set
}

// buildFlagsFromProbeLines collects the flag subset from the probe script's
// output, one "0"/"1" line per known flag in order.
func buildFlagsFromProbeLines(lines []string) (BuildFlags, error) {
	if len(lines) != len(knownFlags) {
		return nil, fmt.Errorf("interpreter build flag query returned %d lines, expected %d", len(lines), len(knownFlags))
	}
	set := NewBuildFlags()
	for i, flag := range knownFlags {
		if strings.TrimSpace(lines[i]) == "1" {
			set.Insert(flag)
		}
	}
	return set, nil
}

// Fixup enforces the transitive flag implications for the given interpreter
// version and implementation. Applying it twice yields the same set as once.
//
// Py_DEBUG implies Py_REF_DEBUG, and additionally Py_TRACE_REFS up to and
// including Python 3.7. WITH_THREAD is unconditional for Python >= 3.7 and
// for PyPy at any version.
func (b BuildFlags) Fixup(version Version, impl Implementation) BuildFlags {
	out := NewBuildFlags()
	for f := range b {
		out.Insert(f)
	}
	py37 := Version{Major: 3, Minor: 7}
	if out.Has(PyDebug) {
		out.Insert(PyRefDebug)
		if version.Compare(py37) <= 0 {
			out.Insert(PyTraceRefs)
		}
	}
	if impl == PyPy || version.AtLeast(py37) {
		out.Insert(WithThread)
	}
	return out
}
