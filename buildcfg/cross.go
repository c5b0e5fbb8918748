package buildcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CrossCompileConfig describes a build targeting a machine that cannot run
// the target interpreter on the build host.
type CrossCompileConfig struct {
	// LibDir is the directory containing the target's Python library and
	// sysconfigdata file. Required for unix-family targets.
	LibDir string

	// Version is the explicit target interpreter version, when supplied.
	Version *Version

	// Target is the compilation target triple.
	Target Triple
}

// crossCompilingFromTo reports whether building on host for target requires
// real cross compilation, i.e. the target interpreter cannot run on the host.
func crossCompilingFromTo(host, target Triple) bool {
	// Same arch-vendor-os is never a cross compile, e.g. a musl target on a
	// gnu host.
	compatible := host.Arch == target.Arch &&
		host.Vendor == target.Vendor &&
		host.OS == target.OS

	// 32-bit Python builds fine from 64-bit Windows.
	compatible = compatible || (target.OS == "windows" && host.OS == "windows" &&
		strings.HasPrefix(target.Arch, "i") && host.Arch == "x86_64")

	// Intel and ARM macOS can run each other's interpreters.
	compatible = compatible || (target.OS == "darwin" && host.OS == "darwin")

	return !compatible
}

// DetectCrossCompile assembles a CrossCompileConfig when the environment or
// triple pair indicates cross compilation. Returns nil when not crossing.
func DetectCrossCompile(host, target Triple) (*CrossCompileConfig, error) {
	crossRequested := envVarSet("PYLINK_CROSS")
	libDir, haveLibDir := envVar("PYLINK_CROSS_LIB_DIR")
	rawVersion, haveVersion := envVar("PYLINK_CROSS_PYTHON_VERSION")

	if !crossRequested && !haveLibDir && !haveVersion && !crossCompilingFromTo(host, target) {
		return nil, nil
	}

	cfg := &CrossCompileConfig{LibDir: libDir, Target: target}
	if haveVersion {
		version, err := ParseVersion(rawVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PYLINK_CROSS_PYTHON_VERSION: %w", err)
		}
		cfg.Version = &version
	}
	return cfg, nil
}

// Sysconfigdata is the parsed key/value content of a sysconfigdata file:
// every build-time variable of the target interpreter.
type Sysconfigdata map[string]string

// Get returns the value for a key, empty when absent.
func (s Sysconfigdata) Get(key string) string {
	return s[key]
}

// sysconfigdataScript dumps the target's build_time_vars dict, patching the
// conda static-link lie the same way the interpreter's own tooling does.
const sysconfigdataScript = `
for key, val in build_time_vars.items():
    if key == "Py_ENABLE_SHARED" and "_h_env_placehold" in build_time_vars.get("prefix", ""):
        val = 1
    print(key, val)
`

// ParseSysconfigdata evaluates a sysconfigdata file using a host
// interpreter and collects its variables.
func ParseSysconfigdata(path string) (Sysconfigdata, error) {
	script, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	host, err := FindInterpreter()
	if err != nil {
		return nil, err
	}
	output, err := runPythonScript(host, string(script)+sysconfigdataScript)
	if err != nil {
		return nil, err
	}
	return Sysconfigdata(parseScriptOutput(output)), nil
}

// FromSysconfigdata derives an InterpreterConfig from parsed target
// sysconfigdata.
func FromSysconfigdata(data Sysconfigdata) (*InterpreterConfig, error) {
	version, err := ParseVersion(data.Get("VERSION"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse VERSION from sysconfigdata: %w", err)
	}
	impl := CPython
	if strings.HasPrefix(data.Get("SOABI"), "pypy") {
		impl = PyPy
	}

	var shared bool
	switch data.Get("Py_ENABLE_SHARED") {
	case "1", "true", "True":
		shared = true
	case "0", "false", "False", "":
		shared = false
	default:
		return nil, fmt.Errorf("expected a bool (1/true/True or 0/false/False) for Py_ENABLE_SHARED, got %q", data.Get("Py_ENABLE_SHARED"))
	}
	// Framework builds are shared even though Py_ENABLE_SHARED says otherwise.
	if data.Get("PYTHONFRAMEWORK") != "" {
		shared = true
	}

	flags := NewBuildFlags()
	for _, flag := range knownFlags {
		if data.Get(string(flag)) == "1" {
			flags.Insert(flag)
		}
	}

	var pointerWidth uint32
	switch data.Get("SIZEOF_VOID_P") {
	case "4":
		pointerWidth = 32
	case "8":
		pointerWidth = 64
	}

	return &InterpreterConfig{
		Implementation: impl,
		Version:        version,
		Shared:         shared,
		ABI3:           isABI3(),
		LibName:        defaultLibNameUnix(version, impl, data.Get("LDVERSION")),
		LibDir:         data.Get("LIBDIR"),
		PointerWidth:   pointerWidth,
		BuildFlags:     flags.Fixup(version, impl),
	}, nil
}

// FindSysconfigdata locates the single sysconfigdata file for the cross
// target, narrowing ambiguous candidate sets by target architecture and
// failing with the full candidate list when still ambiguous.
func FindSysconfigdata(cross *CrossCompileConfig) (string, error) {
	candidates, err := searchLibDir(cross.LibDir, cross)
	if err != nil {
		return "", fmt.Errorf("failed to search the lib dir at PYLINK_CROSS_LIB_DIR=%s: %w", cross.LibDir, err)
	}

	if name, ok := envVar("PYLINK_SYSCONFIGDATA_NAME"); ok {
		var filtered []string
		for _, path := range candidates {
			if strings.TrimSuffix(filepath.Base(path), ".py") == name {
				filtered = append(filtered, path)
			}
		}
		candidates = filtered
	}

	// Canonicalize and dedupe: symlinked installs surface the same file
	// through several directory entries.
	seen := make(map[string]bool)
	var unique []string
	for _, path := range candidates {
		canonical, err := filepath.EvalSymlinks(path)
		if err != nil {
			continue
		}
		if !seen[canonical] {
			seen[canonical] = true
			unique = append(unique, canonical)
		}
	}
	sort.Strings(unique)

	if len(unique) > 1 {
		// Multi-arch installs keep one sysconfigdata per architecture side
		// by side; the target arch substring disambiguates.
		var narrowed []string
		for _, path := range unique {
			if strings.Contains(path, cross.Target.Arch) {
				narrowed = append(narrowed, path)
			}
		}
		if len(narrowed) > 0 {
			unique = narrowed
		}
	}

	switch len(unique) {
	case 0:
		return "", fmt.Errorf("could not find _sysconfigdata*.py in %s", cross.LibDir)
	case 1:
		return unique[0], nil
	default:
		var sb strings.Builder
		sb.WriteString("detected multiple possible Python versions. Please set either the PYLINK_CROSS_PYTHON_VERSION variable to the wanted version or the PYLINK_SYSCONFIGDATA_NAME variable to the wanted sysconfigdata file name.\n\nsysconfigdata files found:")
		for _, path := range unique {
			sb.WriteString("\n\t")
			sb.WriteString(path)
		}
		return "", fmt.Errorf("%s", sb.String())
	}
}

// searchLibDir recursively collects sysconfigdata candidates, descending
// only into directories that look like build output or version-specific
// install locations for the target.
func searchLibDir(dir string, cross *CrossCompileConfig) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list the entries in %s: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)
		if !entry.IsDir() {
			if name == "_sysconfigdata.py" ||
				(strings.HasPrefix(name, "_sysconfigdata_") && strings.HasSuffix(name, ".py")) {
				out = append(out, path)
			}
			continue
		}

		descend := false
		switch {
		case name == "build" || name == "lib":
			descend = true
		case strings.HasPrefix(name, "lib."):
			// Source-tree build outputs are named lib.<platform>-<arch>-X.Y;
			// only descend when the platform matches the target.
			descend = strings.Contains(name, osAlias(cross.Target.OS)) &&
				strings.Contains(name, cross.Target.Arch)
		case strings.HasPrefix(name, "python3."), name == "lib_pypy":
			descend = true
		case strings.HasPrefix(name, "pypy3"):
			descend = true
		}
		if !descend {
			continue
		}
		sub, err := searchLibDir(path, cross)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// crossCompileFromSysconfigdata resolves the target config from its
// sysconfigdata file. The cross lib dir overrides the recorded LIBDIR,
// which points at the target's own filesystem.
func crossCompileFromSysconfigdata(cross *CrossCompileConfig) (*InterpreterConfig, error) {
	path, err := FindSysconfigdata(cross)
	if err != nil {
		return nil, err
	}
	data, err := ParseSysconfigdata(path)
	if err != nil {
		return nil, err
	}
	cfg, err := FromSysconfigdata(data)
	if err != nil {
		return nil, err
	}
	if cross.LibDir != "" {
		cfg.LibDir = cross.LibDir
	}
	return cfg, nil
}

// defaultCrossCompile is the fully hard-coded fallback for targets where no
// metadata-extraction script can run (Windows targets in particular). The
// version must come from an explicit override or the abi3 selection.
func defaultCrossCompile(cross *CrossCompileConfig) (*InterpreterConfig, error) {
	version := cross.Version
	if version == nil {
		version = abi3Version()
	}
	if version == nil {
		return nil, fmt.Errorf("PYLINK_CROSS_PYTHON_VERSION or a PYLINK_ABI3_PY3* selection must be specified when cross-compiling and PYLINK_CROSS_LIB_DIR is not set")
	}

	return &InterpreterConfig{
		Implementation: CPython,
		Version:        *version,
		Shared:         true,
		ABI3:           isABI3(),
		LibName:        defaultLibNameForTarget(*version, CPython, isABI3(), cross.Target),
		LibDir:         cross.LibDir,
		BuildFlags:     defaultBuildFlags(isABI3(), *version, CPython),
	}, nil
}

// loadCrossCompileConfig dispatches on the target OS family: Windows cannot
// execute a metadata-extraction script at all, unix/wasm families resolve
// via the sysconfigdata search when a lib dir is available.
func loadCrossCompileConfig(cross *CrossCompileConfig) (*InterpreterConfig, error) {
	if cross.Target.OS == "windows" || envVarSet("PYLINK_NO_PYTHON") {
		return defaultCrossCompile(cross)
	}
	if cross.LibDir == "" {
		return nil, fmt.Errorf("PYLINK_CROSS_LIB_DIR must be set when cross-compiling for %s", cross.Target)
	}
	cfg, err := crossCompileFromSysconfigdata(cross)
	if err != nil {
		return nil, err
	}
	if cross.Version != nil && *cross.Version != cfg.Version {
		return nil, fmt.Errorf("PYLINK_CROSS_PYTHON_VERSION=%s does not match the sysconfigdata version %s", cross.Version, cfg.Version)
	}
	return cfg, nil
}
