package gen

import (
	"fmt"

	"github.com/dave/jennifer/jen"
)

const pyclassPath = "github.com/chazu/pylink/pyclass"

// Result contains the generated source and any skipped methods.
type Result struct {
	Code    string
	Skipped []SkippedMethod
}

// Generate renders the binding registration source for a set of class
// models: one class variable and one registration call per class, plus one
// trampoline per translatable method. pkgName is the package the generated
// file belongs to.
func Generate(pkgName string, classes []ClassModel, skipped []SkippedMethod) (*Result, error) {
	ordered, err := sortByExtends(classes)
	if err != nil {
		return nil, err
	}

	f := jen.NewFile(pkgName)
	f.HeaderComment("Code generated by pylink-gen. DO NOT EDIT.")

	f.Var().Id("pylinkNativeBase").Op("=").Op("&").Qual(pyclassPath, "NativeBase").Values(jen.Dict{
		jen.Id("Name"):      jen.Lit("object"),
		jen.Id("Basicsize"): jen.Lit(16),
		jen.Id("Kind"):      jen.Qual(pyclassPath, "RootBase"),
	})

	for _, c := range ordered {
		f.Var().Id(classVarName(c.Name)).Op("*").Qual(pyclassPath, "Class")
	}

	f.Add(registerFunc(ordered))

	for _, c := range ordered {
		for _, m := range c.Methods {
			f.Add(trampoline(c, m))
		}
	}

	return &Result{Code: f.GoString(), Skipped: skipped}, nil
}

// registerFunc renders PylinkRegister, registering every class in
// parents-before-children order.
func registerFunc(classes []ClassModel) *jen.Statement {
	var body []jen.Code
	body = append(body, jen.Var().Err().Error())
	for _, c := range classes {
		spec := jen.Dict{
			jen.Id("Name"): jen.Lit(c.Name),
		}
		if c.Options.Extends != "" {
			spec[jen.Id("Base")] = jen.Id(classVarName(c.Options.Extends))
		} else {
			spec[jen.Id("NativeBase")] = jen.Id("pylinkNativeBase")
		}
		if c.Options.Dict {
			spec[jen.Id("HasDict")] = jen.True()
		}
		if c.Options.Weakref {
			spec[jen.Id("HasWeakref")] = jen.True()
		}
		if !c.Options.Frozen {
			spec[jen.Id("Mutability")] = jen.Qual(pyclassPath, "Mutable")
		}
		if c.Options.Unsendable {
			spec[jen.Id("ThreadPolicy")] = jen.Qual(pyclassPath, "ThreadAffine")
		}
		body = append(body,
			jen.List(jen.Id(classVarName(c.Name)), jen.Err()).Op("=").
				Id("r").Dot("Register").Call(jen.Qual(pyclassPath, "ClassSpec").Values(spec)),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		)
	}
	body = append(body, jen.Return(jen.Nil()))

	return jen.Comment("PylinkRegister registers every bound class with the runtime registry.").
		Line().
		Func().Id("PylinkRegister").Params(
		jen.Id("r").Op("*").Qual(pyclassPath, "Registry"),
	).Error().Block(body...)
}

// trampoline renders the Go-side entry point for one method: thread/borrow
// checks, contents access, delegation to the user method.
func trampoline(c ClassModel, m MethodModel) *jen.Statement {
	classVar := c.Name
	params := []jen.Code{
		jen.Id("att").Qual(pyclassPath, "Attachment"),
		jen.Id("obj").Op("*").Qual(pyclassPath, "Object"),
	}
	var args []jen.Code
	for i, p := range m.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("a%d", i)
		}
		params = append(params, jen.Id(name).Id(p.TypeStr))
		args = append(args, jen.Id(name))
	}

	var results []jen.Code
	for _, r := range m.Results {
		results = append(results, jen.Id(r.TypeStr))
	}
	results = append(results, jen.Error())

	zeroes := func() []jen.Code {
		var z []jen.Code
		for _, r := range m.Results {
			z = append(z, zeroValue(r.TypeStr))
		}
		return z
	}

	borrow, release := "TryBorrowMut", "ReleaseBorrowMut"
	if c.Options.Frozen {
		borrow, release = "TryBorrow", "ReleaseBorrow"
	}

	var body []jen.Code
	body = append(body,
		jen.If(
			jen.Err().Op(":=").Id("obj").Dot(borrow).Call(jen.Id(classVarName(classVar))),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(append(zeroes(), jen.Err())...)),
		jen.Defer().Id("obj").Dot(release).Call(jen.Id(classVarName(classVar))),
		jen.Id("self").Op(":=").Qual(pyclassPath, "ContentsPtr").Call(
			jen.Id("obj"),
			jen.Id(classVarName(classVar)),
			jen.Qual(pyclassPath, "Lazy").Call(jen.Id("att")),
		).Dot("Value").Call().Assert(jen.Op("*").Qual(c.ImportPath, c.Name)),
	)

	call := jen.Id("self").Dot(m.Name).Call(args...)
	switch {
	case m.ReturnsErr && len(m.Results) == 0:
		body = append(body, jen.Return(call))
	case m.ReturnsErr:
		var rets, names []jen.Code
		for i := range m.Results {
			names = append(names, jen.Id(fmt.Sprintf("r%d", i)))
			rets = append(rets, jen.Id(fmt.Sprintf("r%d", i)))
		}
		names = append(names, jen.Err())
		body = append(body,
			jen.List(names...).Op(":=").Add(call),
			jen.Return(append(rets, jen.Err())...),
		)
	case len(m.Results) == 0:
		body = append(body, call, jen.Return(jen.Nil()))
	default:
		var rets, names []jen.Code
		for i := range m.Results {
			names = append(names, jen.Id(fmt.Sprintf("r%d", i)))
			rets = append(rets, jen.Id(fmt.Sprintf("r%d", i)))
		}
		body = append(body,
			jen.List(names...).Op(":=").Add(call),
			jen.Return(append(rets, jen.Nil())...),
		)
	}

	return jen.Func().Id(trampolineName(c.Name, m.Name)).
		Params(params...).Params(results...).Block(body...)
}

// zeroValue renders the zero literal for a translatable basic type.
func zeroValue(typeStr string) *jen.Statement {
	switch typeStr {
	case "string":
		return jen.Lit("")
	case "bool":
		return jen.False()
	default:
		return jen.Lit(0)
	}
}

// sortByExtends orders classes so every parent named by an Extends option
// precedes its children. Unknown parents and cycles are hard errors.
func sortByExtends(classes []ClassModel) ([]ClassModel, error) {
	byName := make(map[string]*ClassModel, len(classes))
	for i := range classes {
		byName[classes[i].Name] = &classes[i]
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(classes))
	var ordered []ClassModel

	var visit func(c *ClassModel) error
	visit = func(c *ClassModel) error {
		switch state[c.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("class %s participates in an extends cycle", c.Name)
		}
		state[c.Name] = visiting
		if parent := c.Options.Extends; parent != "" {
			p, ok := byName[parent]
			if !ok {
				return fmt.Errorf("class %s extends unknown class %s", c.Name, parent)
			}
			if err := visit(p); err != nil {
				return err
			}
		}
		state[c.Name] = done
		ordered = append(ordered, *c)
		return nil
	}

	for i := range classes {
		if err := visit(&classes[i]); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
