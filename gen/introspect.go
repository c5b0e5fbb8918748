package gen

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"

	"github.com/chazu/pylink/manifest"
)

// IntrospectPackage loads a Go package by import path and returns the class
// models for its exported struct types, with manifest options applied.
// Methods whose signatures fall outside the translatable surface are
// collected as skipped, not errors: one untranslatable method must not sink
// the whole package.
func IntrospectPackage(importPath string, m *manifest.Manifest) ([]ClassModel, []SkippedMethod, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax,
	}
	if m != nil {
		cfg.Dir = m.Dir
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return nil, nil, fmt.Errorf("no packages found for %s", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, nil, fmt.Errorf("package errors in %s: %v", importPath, pkgs[0].Errors)
	}
	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, nil, fmt.Errorf("type information not available for %s", importPath)
	}

	var classes []ClassModel
	var skipped []SkippedMethod
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		tn, ok := obj.(*types.TypeName)
		if !ok || !tn.Exported() {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		if _, ok := named.Underlying().(*types.Struct); !ok {
			continue
		}

		cm := ClassModel{
			Name:       tn.Name(),
			ImportPath: importPath,
			PkgName:    pkg.Name,
			GoType:     tn.Type(),
		}
		if m != nil {
			cm.Options = m.Options(tn.Name())
		}

		methods, skippedHere := extractMethods(named, tn.Name())
		cm.Methods = methods
		skipped = append(skipped, skippedHere...)
		classes = append(classes, cm)
	}
	return classes, skipped, nil
}

// extractMethods collects the pointer-receiver methods defined directly on
// the type, splitting them into translatable models and skipped records.
func extractMethods(named *types.Named, className string) ([]MethodModel, []SkippedMethod) {
	var methods []MethodModel
	var skipped []SkippedMethod

	mset := types.NewMethodSet(types.NewPointer(named))
	for i := 0; i < mset.Len(); i++ {
		sel := mset.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		// Only methods defined on this type, not promoted ones.
		if len(sel.Index()) > 1 {
			continue
		}
		sig := fn.Type().(*types.Signature)
		mm, err := methodModel(fn.Name(), sig, className)
		if err != nil {
			skipped = append(skipped, SkippedMethod{
				Class:  className,
				Method: fn.Name(),
				Reason: err.Error(),
			})
			continue
		}
		methods = append(methods, mm)
	}
	return methods, skipped
}

// methodModel validates a signature against the translatable surface and
// builds the model. An untranslatable parameter or result produces an
// UnsupportedTypeError naming the offender.
func methodModel(name string, sig *types.Signature, className string) (MethodModel, error) {
	where := className + "." + name
	mm := MethodModel{Name: name}

	params := sig.Params()
	if sig.Variadic() {
		return mm, &UnsupportedTypeError{Type: "variadic parameters", Where: where}
	}
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		if !translatable(p.Type()) {
			return mm, &UnsupportedTypeError{Type: p.Type().String(), Where: where}
		}
		mm.Params = append(mm.Params, ParamModel{
			Name:    p.Name(),
			GoType:  p.Type(),
			TypeStr: p.Type().String(),
		})
	}

	results := sig.Results()
	for i := 0; i < results.Len(); i++ {
		r := results.At(i)
		if i == results.Len()-1 && isErrorType(r.Type()) {
			mm.ReturnsErr = true
			break
		}
		if !translatable(r.Type()) {
			return mm, &UnsupportedTypeError{Type: r.Type().String(), Where: where}
		}
		mm.Results = append(mm.Results, ParamModel{
			Name:    r.Name(),
			GoType:  r.Type(),
			TypeStr: r.Type().String(),
		})
	}
	return mm, nil
}

// translatable reports whether a type is inside the supported translation
// surface: plain (unnamed) integers, floats, strings and bools. Named basic
// types would need a conversion layer the trampolines do not carry.
func translatable(t types.Type) bool {
	basic, ok := t.(*types.Basic)
	if !ok {
		return false
	}
	switch basic.Kind() {
	case types.Bool, types.String,
		types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64,
		types.Float32, types.Float64:
		return true
	}
	return false
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	return named.Obj().Name() == "error" && named.Obj().Pkg() == nil
}
