// Package gen introspects Go packages and generates extension binding
// registration code.
package gen

import (
	"fmt"
	"go/types"

	"github.com/chazu/pylink/manifest"
)

// ClassModel is the in-memory representation of one Go struct type bound as
// an extension class.
type ClassModel struct {
	// Name is the exported Go type name, which doubles as the extension
	// class name.
	Name string

	// ImportPath is the package the type lives in.
	ImportPath string

	// PkgName is the short package name (e.g. "filters").
	PkgName string

	GoType types.Type

	// Methods are the pointer-receiver methods with supported signatures.
	Methods []MethodModel

	// Options carries the manifest's per-class layout overrides.
	Options manifest.ClassOptions
}

// MethodModel represents one exported method with a translatable signature.
type MethodModel struct {
	Name    string
	Params  []ParamModel
	Results []ParamModel

	// ReturnsErr is true when the last result is error; the error is
	// propagated rather than translated.
	ReturnsErr bool
}

// ParamModel represents a method parameter or result.
type ParamModel struct {
	Name    string
	GoType  types.Type
	TypeStr string
}

// SkippedMethod records a method whose signature could not be translated.
type SkippedMethod struct {
	Class  string
	Method string
	Reason string
}

// UnsupportedTypeError reports a type outside the translatable surface
// (integers, floats, strings, bools, and a trailing error result).
type UnsupportedTypeError struct {
	Type  string
	Where string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type %s in %s", e.Type, e.Where)
}
