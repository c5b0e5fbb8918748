package buildcfg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// InterpreterConfig is the canonical resolved build configuration. It is
// produced by exactly one of: probing a live interpreter, reading an override
// config file, cross-compile resolution, or the hard-coded abi3 default.
type InterpreterConfig struct {
	// Implementation is the interpreter flavor. Serialized to "implementation".
	Implementation Implementation

	// Version is the X.Y interpreter version. Serialized to "version".
	Version Version

	// Shared reports whether the link library is a shared library.
	// Serialized to "shared".
	Shared bool

	// ABI3 reports whether linking against the stable/limited API.
	// Serialized to "abi3".
	ABI3 bool

	// LibName is the link library name, without any "lib" prefix.
	// Serialized to "lib_name" when present.
	LibName string

	// LibDir is an additional library search directory for the linker.
	// Serialized to "lib_dir" when present.
	LibDir string

	// Executable is the path of the host interpreter binary, when a
	// configuration was derived by invoking one. Serialized to "executable".
	Executable string

	// PointerWidth is the target pointer width in bits, zero when unknown.
	// Serialized to "pointer_width" when present.
	PointerWidth uint32

	// BuildFlags are the interpreter's compile-time switches.
	// Serialized to "build_flags".
	BuildFlags BuildFlags

	// SuppressBuildScriptLinkLines disables the default link directive
	// output in favor of ExtraBuildScriptLines.
	SuppressBuildScriptLinkLines bool

	// ExtraBuildScriptLines are opaque passthrough directives emitted
	// verbatim by the build tool, in order. Serialized to one
	// "extra_build_script_line" entry each.
	ExtraBuildScriptLines []string
}

// Equal reports field-for-field equality.
func (c *InterpreterConfig) Equal(other *InterpreterConfig) bool {
	if c.Implementation != other.Implementation ||
		c.Version != other.Version ||
		c.Shared != other.Shared ||
		c.ABI3 != other.ABI3 ||
		c.LibName != other.LibName ||
		c.LibDir != other.LibDir ||
		c.Executable != other.Executable ||
		c.PointerWidth != other.PointerWidth ||
		c.SuppressBuildScriptLinkLines != other.SuppressBuildScriptLinkLines ||
		!c.BuildFlags.Equal(other.BuildFlags) ||
		len(c.ExtraBuildScriptLines) != len(other.ExtraBuildScriptLines) {
		return false
	}
	for i, line := range c.ExtraBuildScriptLines {
		if other.ExtraBuildScriptLines[i] != line {
			return false
		}
	}
	return true
}

// WriteTo serializes the config in the line-oriented key=value format.
// Required fields are written unconditionally, optional fields only when
// present, and extra build script lines in order.
func (c *InterpreterConfig) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "implementation=%s\n", c.Implementation)
	fmt.Fprintf(bw, "version=%s\n", c.Version)
	fmt.Fprintf(bw, "shared=%t\n", c.Shared)
	fmt.Fprintf(bw, "abi3=%t\n", c.ABI3)
	if c.LibName != "" {
		fmt.Fprintf(bw, "lib_name=%s\n", c.LibName)
	}
	if c.LibDir != "" {
		fmt.Fprintf(bw, "lib_dir=%s\n", c.LibDir)
	}
	if c.Executable != "" {
		fmt.Fprintf(bw, "executable=%s\n", c.Executable)
	}
	if c.PointerWidth != 0 {
		fmt.Fprintf(bw, "pointer_width=%d\n", c.PointerWidth)
	}
	fmt.Fprintf(bw, "build_flags=%s\n", c.BuildFlags)
	fmt.Fprintf(bw, "suppress_build_script_link_lines=%t\n", c.SuppressBuildScriptLinkLines)
	for _, line := range c.ExtraBuildScriptLines {
		fmt.Fprintf(bw, "extra_build_script_line=%s\n", line)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ReadConfig deserializes a config previously produced by WriteTo (or an
// operator-written override file). The version key is mandatory; all other
// keys are optional with documented defaults. Unknown keys are a hard error.
func ReadConfig(r io.Reader) (*InterpreterConfig, error) {
	cfg := &InterpreterConfig{Shared: true}
	var (
		haveVersion bool
		haveImpl    bool
		haveFlags   bool
	)

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("expected key=value pair on line %d", lineno)
		}
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "implementation":
			cfg.Implementation, err = ParseImplementation(value)
			haveImpl = true
		case "version":
			cfg.Version, err = ParseVersion(value)
			haveVersion = true
		case "shared":
			cfg.Shared, err = strconv.ParseBool(value)
		case "abi3":
			cfg.ABI3, err = strconv.ParseBool(value)
		case "lib_name":
			cfg.LibName = value
		case "lib_dir":
			cfg.LibDir = value
		case "executable":
			cfg.Executable = value
		case "pointer_width":
			var width uint64
			width, err = strconv.ParseUint(value, 10, 32)
			cfg.PointerWidth = uint32(width)
		case "build_flags":
			cfg.BuildFlags = ParseBuildFlags(value)
			haveFlags = true
		case "suppress_build_script_link_lines":
			cfg.SuppressBuildScriptLinkLines, err = strconv.ParseBool(value)
		case "extra_build_script_line":
			cfg.ExtraBuildScriptLines = append(cfg.ExtraBuildScriptLines, value)
		default:
			return nil, fmt.Errorf("unknown config key %q on line %d", key, lineno)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s from config value %q on line %d: %w", key, value, lineno, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if !haveVersion {
		return nil, fmt.Errorf("missing value for version")
	}
	if !haveImpl {
		cfg.Implementation = CPython
	}
	if !haveFlags {
		cfg.BuildFlags = defaultBuildFlags(cfg.ABI3, cfg.Version, cfg.Implementation)
	}
	return cfg, nil
}

// defaultBuildFlags is the flag set assumed when a config source does not
// report one.
func defaultBuildFlags(abi3 bool, version Version, impl Implementation) BuildFlags {
	if abi3 {
		return abi3BuildFlags()
	}
	return NewBuildFlags().Fixup(version, impl)
}

// ReadConfigFile reads a config from a file path.
func ReadConfigFile(path string) (*InterpreterConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pylink config file at %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contents of %s: %w", path, err)
	}
	return cfg, nil
}

// fixupForABI3Version clamps the configured version down to the requested
// abi3 minimum. The requested version must not exceed the resolved one.
// PyPy does not support abi3, so the version there is left untouched.
//
// This runs exactly once, after strategy selection, never inside an
// individual strategy.
func (c *InterpreterConfig) fixupForABI3Version(abi3Version *Version) error {
	if c.Implementation == PyPy {
		return nil
	}
	if abi3Version == nil {
		return nil
	}
	if abi3Version.Compare(c.Version) > 0 {
		return fmt.Errorf(
			"cannot set a minimum Python version %s higher than the interpreter version %s (the minimum version is implied by the PYLINK_ABI3_PY3%d selection)",
			abi3Version, c.Version, abi3Version.Minor)
	}
	c.Version = *abi3Version
	return nil
}

// BuildSymbols returns the conditional-compilation symbols derived from the
// config: one per supported minor version up to the resolved version, the
// limited-API and alternate-implementation markers, and one per build flag.
func (c *InterpreterConfig) BuildSymbols() []string {
	var out []string
	for i := MinimumSupportedVersion.Minor; i <= c.Version.Minor; i++ {
		out = append(out, fmt.Sprintf("Py_3_%d", i))
	}
	if c.Implementation == PyPy {
		out = append(out, "PyPy")
	}
	if c.ABI3 {
		out = append(out, "Py_LIMITED_API")
	}
	for _, flag := range c.BuildFlags.sorted() {
		out = append(out, fmt.Sprintf("py_sys_config_%s", flag))
	}
	return out
}

// ToEnvValue hex-encodes the serialized config so it can travel through a
// single environment variable without newline mangling.
func (c *InterpreterConfig) ToEnvValue() (string, error) {
	var sb strings.Builder
	if err := c.WriteTo(&sb); err != nil {
		return "", err
	}
	return hexEscape([]byte(sb.String())), nil
}

// FromEnvValue reverses ToEnvValue.
func FromEnvValue(s string) (*InterpreterConfig, error) {
	raw, err := hexUnescape(s)
	if err != nil {
		return nil, err
	}
	return ReadConfig(strings.NewReader(string(raw)))
}

const hexDigits = "0123456789abcdef"

func hexEscape(data []byte) string {
	out := make([]byte, 0, 2*len(data))
	for _, b := range data {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(out)
}

func hexUnescape(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid hex encoding: odd length %d", len(s))
	}
	unhex := func(c byte) (byte, error) {
		switch {
		case c >= '0' && c <= '9':
			return c - '0', nil
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, nil
		}
		return 0, fmt.Errorf("invalid hex encoding: byte %q", c)
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		hi, err := unhex(s[i])
		if err != nil {
			return nil, err
		}
		lo, err := unhex(s[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, hi<<4|lo)
	}
	return out, nil
}
