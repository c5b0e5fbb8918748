package gen

import (
	"strings"
	"unicode"
)

// GoNameToPythonName converts a Go PascalCase name to the host runtime's
// snake_case convention.
// e.g., "ReadAll" → "read_all", "HTTPServer" → "http_server"
func GoNameToPythonName(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Break before an upper rune unless it continues an acronym
			// that the next rune also belongs to.
			if i > 0 && (!unicode.IsUpper(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GoPackageToModuleName converts a Go import path to an extension module
// name.
// e.g., "example.com/imaging/filters" → "filters"
func GoPackageToModuleName(importPath string) string {
	parts := strings.Split(importPath, "/")
	last := parts[len(parts)-1]
	var b strings.Builder
	for _, r := range last {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_' || r == '.':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// trampolineName is the Go identifier of a generated method trampoline.
// e.g., class "Histogram", method "Add" → "pylinkHistogramAdd"
func trampolineName(className, methodName string) string {
	return "pylink" + className + methodName
}

// classVarName is the Go identifier of a generated class variable.
// e.g., "Histogram" → "pylinkClassHistogram"
func classVarName(className string) string {
	return "pylinkClass" + className
}
