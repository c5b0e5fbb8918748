package pyclass

import (
	"fmt"

	"github.com/chazu/pylink/buildcfg"
)

// fakeABI records every host-runtime call in order, for asserting the
// deallocation protocol.
type fakeABI struct {
	version  buildcfg.Version
	typeData int
	calls    []string
}

func newFakeABI(major, minor uint8) *fakeABI {
	return &fakeABI{version: buildcfg.Version{Major: major, Minor: minor}}
}

func (f *fakeABI) Version() buildcfg.Version { return f.version }

func (f *fakeABI) TypeDataOffset(obj *Object, class *Class) int { return f.typeData }

func (f *fakeABI) TpFree(obj *Object) {
	f.calls = append(f.calls, "TpFree")
}

func (f *fakeABI) TpDealloc(base *NativeBase, obj *Object) {
	f.calls = append(f.calls, "TpDealloc:"+base.Name)
}

func (f *fakeABI) GCTrack(obj *Object) {
	f.calls = append(f.calls, "GCTrack")
}

func (f *fakeABI) GCUntrack(obj *Object) {
	f.calls = append(f.calls, "GCUntrack")
}

func (f *fakeABI) IsBaseExceptionSubclass(base *NativeBase) bool {
	return base.BaseExceptionSubclass
}

func (f *fakeABI) WriteUnraisable(context string, err error) {
	f.calls = append(f.calls, fmt.Sprintf("WriteUnraisable:%s", context))
}

// rootBase is a fresh plain native base for tests.
func rootBase() *NativeBase {
	return &NativeBase{Name: "object", Basicsize: 16, Kind: RootBase}
}

// mustRegister registers a class or panics; for test fixtures whose specs
// are known to be valid.
func mustRegister(r *Registry, spec ClassSpec) *Class {
	c, err := r.Register(spec)
	if err != nil {
		panic(err)
	}
	return c
}
