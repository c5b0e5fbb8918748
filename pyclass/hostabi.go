package pyclass

import (
	"github.com/chazu/pylink/buildcfg"
)

// ---------------------------------------------------------------------------
// HostABI: The runtime surface the layout engine binds against
// ---------------------------------------------------------------------------

// HostABI is the slice of the host runtime's C ABI the layout engine needs.
// The raw declaration tables live behind this interface; tests substitute an
// in-package fake that records call order.
type HostABI interface {
	// Version is the ABI version of the host runtime build.
	Version() buildcfg.Version

	// TypeDataOffset queries where the runtime placed a class's extra data
	// region for an instance, in bytes from the object header. Only
	// meaningful for opaque-layout classes on runtimes that size extension
	// data themselves.
	TypeDataOffset(obj *Object, class *Class) int

	// TpFree releases the object's memory directly. Terminal step for
	// chains rooted at the ultimate base.
	TpFree(obj *Object)

	// TpDealloc invokes a native base's own destructor slot.
	TpDealloc(base *NativeBase, obj *Object)

	// GCTrack re-registers the object with the runtime's cycle collector.
	GCTrack(obj *Object)

	// GCUntrack removes the object from the cycle collector.
	GCUntrack(obj *Object)

	// IsBaseExceptionSubclass reports whether a native base descends from
	// the runtime's root exception type.
	IsBaseExceptionSubclass(base *NativeBase) bool

	// WriteUnraisable reports an error that has no caller to propagate to,
	// such as a skipped drop during deallocation.
	WriteUnraisable(context string, err error)
}
