package buildcfg

import "fmt"

// Limited-ABI import libraries on Windows carry no version in the name.
const windowsABI3LibName = "python3"

// defaultLibNameWindows derives the link library name for Windows targets.
func defaultLibNameWindows(version Version, impl Implementation, abi3, mingw bool) string {
	switch {
	case abi3 && impl != PyPy:
		return windowsABI3LibName
	case mingw:
		// MSYS2 mingw-w64 packages use the unix-style dotted name.
		return fmt.Sprintf("python%d.%d", version.Major, version.Minor)
	default:
		return fmt.Sprintf("python%d%d", version.Major, version.Minor)
	}
}

// defaultLibNameUnix derives the link library name for unix targets.
// ldVersion is sysconfig's LDVERSION value ("3.7md" style) when known.
func defaultLibNameUnix(version Version, impl Implementation, ldVersion string) string {
	switch impl {
	case PyPy:
		// PyPy used an unversioned library name before 3.9.
		if ldVersion != "" && version.AtLeast(Version{Major: 3, Minor: 9}) {
			return fmt.Sprintf("pypy%s-c", ldVersion)
		}
		return "pypy3-c"
	default:
		if ldVersion != "" {
			return fmt.Sprintf("python%s", ldVersion)
		}
		return fmt.Sprintf("python%d.%d", version.Major, version.Minor)
	}
}

// defaultLibNameForTarget picks the platform-appropriate derivation.
func defaultLibNameForTarget(version Version, impl Implementation, abi3 bool, target Triple) string {
	if target.OS == "windows" {
		return defaultLibNameWindows(version, impl, abi3, target.Env == "gnu")
	}
	return defaultLibNameUnix(version, impl, "")
}
