package buildcfg

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"
)

// introspectScript is piped into the located interpreter to extract the
// values InterpreterConfig is derived from, one "key value" pair per line.
const introspectScript = `
import os.path
import platform
import struct
import sys
from sysconfig import get_config_var, get_platform

PYPY = platform.python_implementation() == "PyPy"

base_prefix = getattr(sys, "base_prefix", None)

if base_prefix:
    # Anaconda pythons have a static executable but ship the shared library.
    ANACONDA = os.path.exists(os.path.join(base_prefix, "conda-meta"))
else:
    ANACONDA = False

def print_if_set(varname, value):
    if value is not None:
        print(varname, value)

WINDOWS = platform.system() == "Windows"
FRAMEWORK = bool(get_config_var("PYTHONFRAMEWORK"))
SHARED = bool(get_config_var("Py_ENABLE_SHARED"))

print("implementation", platform.python_implementation())
print("version_major", sys.version_info[0])
print("version_minor", sys.version_info[1])
print("shared", PYPY or ANACONDA or WINDOWS or FRAMEWORK or SHARED)
print_if_set("ld_version", get_config_var("LDVERSION"))
print_if_set("libdir", get_config_var("LIBDIR"))
print_if_set("base_prefix", base_prefix)
print("executable", sys.executable)
print("calcsize_pointer", struct.calcsize("P"))
print("mingw", get_platform().startswith("mingw"))
`

// runPythonScript pipes a script into the interpreter and blocks on its
// output. The interpreter's stderr is inherited so operators see the
// underlying diagnostics directly; there is no timeout.
func runPythonScript(interpreter, script string) (string, error) {
	cmd := exec.Command(interpreter)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	cmd.Stdin = strings.NewReader(script)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("python script failed")
		}
		return "", fmt.Errorf("failed to run the Python interpreter at %s: %w", interpreter, err)
	}
	if !utf8.Valid(stdout.Bytes()) {
		return "", fmt.Errorf("failed to parse Python script output as utf-8")
	}
	return stdout.String(), nil
}

// parseScriptOutput splits "key value" lines into a map. Lines without a
// separator are skipped.
func parseScriptOutput(output string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		key, value, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		out[key] = value
	}
	return out
}

func venvInterpreter(root string, windows bool) string {
	if windows {
		return filepath.Join(root, "Scripts", "python.exe")
	}
	return filepath.Join(root, "bin", "python")
}

func condaInterpreter(root string, windows bool) string {
	if windows {
		return filepath.Join(root, "python.exe")
	}
	return filepath.Join(root, "bin", "python")
}

// envInterpreter derives the interpreter path from an active virtual
// environment, if exactly one of the two indicator variables is set. When
// both are set the situation is ambiguous: warn and treat as neither.
func envInterpreter(windows bool) (string, bool) {
	venv, haveVenv := envVar("VIRTUAL_ENV")
	conda, haveConda := envVar("CONDA_PREFIX")
	switch {
	case haveVenv && !haveConda:
		return venvInterpreter(venv, windows), true
	case haveConda && !haveVenv:
		return condaInterpreter(conda, windows), true
	case haveVenv && haveConda:
		log.Warning("Both VIRTUAL_ENV and CONDA_PREFIX are set. pylink will ignore both for locating the Python interpreter until you unset one of them.")
	}
	return "", false
}

// probeCommand is swapped out by tests to avoid spawning real interpreters
// during the discovery fallback.
var probeCommand = func(bin string, args ...string) (stdout, stderr []byte, err error) {
	cmd := exec.Command(bin, args...)
	var out, serr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &serr
	err = cmd.Run()
	return out.Bytes(), serr.Bytes(), err
}

// FindInterpreter locates a usable host interpreter, in strict priority
// order:
//
//  1. PYLINK_PYTHON, used unconditionally when set.
//  2. An active virtual environment (VIRTUAL_ENV or CONDA_PREFIX).
//  3. "python" then "python3" on PATH, accepting the first whose version
//     banner starts with "Python 3".
func FindInterpreter() (string, error) {
	if exe, ok := envVar("PYLINK_PYTHON"); ok {
		return exe, nil
	}
	if exe, ok := envInterpreter(runtime.GOOS == "windows"); ok {
		return exe, nil
	}
	fmt.Fprintf(RerunWriter, "pylink:rerun-if-env-changed=PATH\n")
	for _, bin := range []string{"python", "python3"} {
		stdout, stderr, err := probeCommand(bin, "--version")
		if err != nil {
			continue
		}
		if bytes.HasPrefix(stdout, []byte("Python 3")) || bytes.HasPrefix(stderr, []byte("Python 3")) {
			return bin, nil
		}
	}
	return "", fmt.Errorf("no Python 3.x interpreter found")
}

// FromInterpreter builds an InterpreterConfig by introspecting a live
// interpreter executable.
func FromInterpreter(interpreter string) (*InterpreterConfig, error) {
	output, err := runPythonScript(interpreter, introspectScript)
	if err != nil {
		return nil, err
	}
	probed := parseScriptOutput(output)
	if len(probed) == 0 {
		return nil, fmt.Errorf("broken Python interpreter: %s", interpreter)
	}

	flags, err := buildFlagsFromInterpreter(interpreter)
	if err != nil {
		return nil, err
	}
	return configFromProbeMap(probed, flags, runtime.GOOS == "windows")
}

// configFromProbeMap derives every config field from the introspection
// output plus platform defaults. Split from FromInterpreter for testing.
func configFromProbeMap(probed map[string]string, flags BuildFlags, hostWindows bool) (*InterpreterConfig, error) {
	version, err := ParseVersion(probed["version_major"] + "." + probed["version_minor"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse probed interpreter version: %w", err)
	}
	impl, err := ParseImplementation(probed["implementation"])
	if err != nil {
		return nil, err
	}
	abi3 := isABI3()

	var libName, libDir string
	if hostWindows {
		libName = defaultLibNameWindows(version, impl, abi3, probed["mingw"] == "True")
		if basePrefix, ok := probed["base_prefix"]; ok {
			libDir = basePrefix + `\libs`
		}
	} else {
		libName = defaultLibNameUnix(version, impl, probed["ld_version"])
		libDir = probed["libdir"]
	}

	var pointerWidth uint32
	if raw, ok := probed["calcsize_pointer"]; ok {
		size, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse calcsize_pointer %q: %w", raw, err)
		}
		pointerWidth = uint32(size) * 8
	}

	return &InterpreterConfig{
		Implementation: impl,
		Version:        version,
		Shared:         probed["shared"] == "True",
		ABI3:           abi3,
		LibName:        libName,
		LibDir:         libDir,
		Executable:     probed["executable"],
		PointerWidth:   pointerWidth,
		BuildFlags:     flags.Fixup(version, impl),
	}, nil
}

// buildFlagsFromInterpreter queries sysconfig for each known flag, one
// 0/1 line per flag.
func buildFlagsFromInterpreter(interpreter string) (BuildFlags, error) {
	var script strings.Builder
	script.WriteString("import sysconfig\nconfig = sysconfig.get_config_vars()\n")
	for _, flag := range knownFlags {
		fmt.Fprintf(&script, "print(config.get('%s', '0'))\n", flag)
	}
	stdout, err := runPythonScript(interpreter, script.String())
	if err != nil {
		return nil, err
	}
	return buildFlagsFromProbeLines(strings.Split(strings.TrimRight(stdout, "\n"), "\n"))
}

// isABI3 reports whether a restricted-ABI build was requested, either via
// the blanket flag or any per-minor selection.
func isABI3() bool {
	if envVarSet("PYLINK_ABI3") {
		return true
	}
	return abi3Version() != nil
}

// abi3Version returns the minimum version implied by the per-minor
// restricted-ABI selection variables, or nil when none is set.
func abi3Version() *Version {
	for minor := MinimumSupportedVersion.Minor; minor <= ABI3MaxMinor; minor++ {
		if envVarSet(fmt.Sprintf("PYLINK_ABI3_PY3%d", minor)) {
			return &Version{Major: 3, Minor: minor}
		}
	}
	return nil
}
