package gen

import (
	"strings"
	"testing"

	"github.com/chazu/pylink/manifest"
)

func histogramModel() ClassModel {
	return ClassModel{
		Name:       "Histogram",
		ImportPath: "example.com/imaging/filters",
		PkgName:    "filters",
		Methods: []MethodModel{
			{
				Name:    "Add",
				Params:  []ParamModel{{Name: "v", TypeStr: "int64"}},
				Results: []ParamModel{{TypeStr: "int64"}},
			},
			{
				Name:       "Save",
				Params:     []ParamModel{{Name: "path", TypeStr: "string"}},
				ReturnsErr: true,
			},
		},
		Options: manifest.ClassOptions{Dict: true},
	}
}

func TestGenerateRegistration(t *testing.T) {
	res, err := Generate("bindings", []ClassModel{histogramModel()}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"package bindings",
		"Code generated by pylink-gen. DO NOT EDIT.",
		"var pylinkClassHistogram *pyclass.Class",
		"func PylinkRegister(r *pyclass.Registry) error",
		`Name:       "Histogram"`,
		"HasDict:    true",
		"NativeBase: pylinkNativeBase",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("generated code missing %q\n%s", want, res.Code)
		}
	}
}

func TestGenerateTrampolines(t *testing.T) {
	res, err := Generate("bindings", []ClassModel{histogramModel()}, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"func pylinkHistogramAdd(att pyclass.Attachment, obj *pyclass.Object, v int64) (int64, error)",
		"func pylinkHistogramSave(att pyclass.Attachment, obj *pyclass.Object, path string) error",
		"obj.TryBorrowMut(pylinkClassHistogram)",
		"defer obj.ReleaseBorrowMut(pylinkClassHistogram)",
		".Value().(*filters.Histogram)",
		"return self.Save(path)",
	} {
		if !strings.Contains(res.Code, want) {
			t.Errorf("generated code missing %q\n%s", want, res.Code)
		}
	}
}

func TestGenerateFrozenClassUsesSharedBorrows(t *testing.T) {
	frozen := ClassModel{
		Name:       "Snapshot",
		ImportPath: "example.com/imaging/filters",
		PkgName:    "filters",
		Methods: []MethodModel{
			{Name: "Size", Results: []ParamModel{{TypeStr: "int"}}},
		},
		Options: manifest.ClassOptions{Frozen: true},
	}
	res, err := Generate("bindings", []ClassModel{frozen}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Code, "obj.TryBorrow(pylinkClassSnapshot)") {
		t.Errorf("frozen class should use shared borrows\n%s", res.Code)
	}
	if strings.Contains(res.Code, "TryBorrowMut(pylinkClassSnapshot)") {
		t.Errorf("frozen class must not take exclusive borrows\n%s", res.Code)
	}
}

func TestGenerateOrdersParentsFirst(t *testing.T) {
	parent := ClassModel{Name: "Codec", ImportPath: "example.com/c", PkgName: "c"}
	child := ClassModel{
		Name:       "Decoder",
		ImportPath: "example.com/c",
		PkgName:    "c",
		Options:    manifest.ClassOptions{Extends: "Codec"},
	}

	res, err := Generate("bindings", []ClassModel{child, parent}, nil)
	if err != nil {
		t.Fatal(err)
	}
	codecAt := strings.Index(res.Code, `Name:       "Codec"`)
	decoderAt := strings.Index(res.Code, `Name:       "Decoder"`)
	if codecAt < 0 || decoderAt < 0 {
		t.Fatalf("both registrations should be present\n%s", res.Code)
	}
	if codecAt > decoderAt {
		t.Error("the parent class must register before its child")
	}
	if !strings.Contains(res.Code, "pylinkClassCodec,") {
		t.Errorf("child should register with its parent as base\n%s", res.Code)
	}
}

func TestGenerateRejectsBadExtends(t *testing.T) {
	orphan := ClassModel{
		Name:    "Orphan",
		Options: manifest.ClassOptions{Extends: "Missing"},
	}
	if _, err := Generate("bindings", []ClassModel{orphan}, nil); err == nil {
		t.Error("extending an unknown class should fail")
	}

	a := ClassModel{Name: "A", Options: manifest.ClassOptions{Extends: "B"}}
	b := ClassModel{Name: "B", Options: manifest.ClassOptions{Extends: "A"}}
	if _, err := Generate("bindings", []ClassModel{a, b}, nil); err == nil {
		t.Error("an extends cycle should fail")
	}
}

func TestUnsupportedTypeErrorMessage(t *testing.T) {
	err := &UnsupportedTypeError{Type: "[]byte", Where: "Builder.Write"}
	msg := err.Error()
	if !strings.Contains(msg, "[]byte") || !strings.Contains(msg, "Builder.Write") {
		t.Errorf("error should name the type and location: %q", msg)
	}
}
