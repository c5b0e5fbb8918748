package buildcfg

import (
	"fmt"
)

// Resolve produces the single InterpreterConfig for this build via exactly
// one of four strategies, in priority order: an explicit override file,
// cross-compile resolution, probing a live interpreter, or the hard-coded
// abi3 default. The restricted-ABI version clamp runs exactly once, here,
// after strategy selection, so the failure message is uniform regardless of
// how the config was produced.
func Resolve() (*InterpreterConfig, error) {
	cfg, err := resolveStrategy()
	if err != nil {
		return nil, err
	}

	if err := cfg.fixupForABI3Version(abi3Version()); err != nil {
		return nil, err
	}
	if !cfg.Version.AtLeast(MinimumSupportedVersion) {
		return nil, fmt.Errorf("pylink requires Python >= %s, configuration resolved to %s", MinimumSupportedVersion, cfg.Version)
	}
	return cfg, nil
}

func resolveStrategy() (*InterpreterConfig, error) {
	if path, ok := envVar("PYLINK_CONFIG_FILE"); ok {
		cfg, err := ReadConfigFile(path)
		if err != nil {
			return nil, err
		}
		// The abi3 selection applies to override files too.
		cfg.ABI3 = cfg.ABI3 || isABI3()
		return cfg, nil
	}

	host, err := BuildTriple()
	if err != nil {
		return nil, err
	}
	target, err := TargetTriple()
	if err != nil {
		return nil, err
	}
	if cross, err := DetectCrossCompile(host, target); err != nil {
		return nil, err
	} else if cross != nil {
		return loadCrossCompileConfig(cross)
	}

	if !envVarSet("PYLINK_NO_PYTHON") {
		interpreter, err := FindInterpreter()
		if err != nil {
			return nil, err
		}
		return fromInterpreterCached(interpreter)
	}

	// No interpreter available at all: only the restricted ABI can be
	// targeted blind.
	version := abi3Version()
	if version == nil {
		return nil, fmt.Errorf("a PYLINK_ABI3_PY3* selection must be specified when compiling without a Python interpreter (PYLINK_NO_PYTHON is set)")
	}
	return defaultABI3Config(host, *version), nil
}

// defaultABI3Config is the hard-coded per-platform default used when no
// interpreter is present. PyPy does not support the stable ABI, so the
// implementation is always the reference one.
func defaultABI3Config(host Triple, version Version) *InterpreterConfig {
	var libName string
	if host.OS == "windows" {
		libName = defaultLibNameWindows(version, CPython, true, false)
	}
	return &InterpreterConfig{
		Implementation: CPython,
		Version:        version,
		Shared:         true,
		ABI3:           true,
		LibName:        libName,
		BuildFlags:     abi3BuildFlags(),
	}
}
