package pyclass

import (
	"fmt"

	"github.com/chazu/pylink/buildcfg"
)

// ---------------------------------------------------------------------------
// Deallocation: Ordered teardown across the inheritance chain
// ---------------------------------------------------------------------------

// excSubclassRetrackFixedVersion is the first ABI where destructors of
// exception-derived native bases keep track state balanced themselves.
// Earlier ABIs untrack without re-tracking, forcing the engine to re-track
// before dispatching into them.
var excSubclassRetrackFixedVersion = buildcfg.Version{Major: 3, Minor: 11}

// Deallocate tears down an instance, strictly most derived layer first. A
// derived layer's drop logic may reference base layer data, so the reverse
// order would be a use-after-free; the ordering is load-bearing.
//
// Per layer: the user value is dropped only when the thread checker says
// dropping on the current thread is safe, otherwise the drop is skipped and
// reported as unraisable (a deliberate leak-over-corruption tradeoff,
// because deallocation must not panic). Then the dict slot is cleared and
// every weak reference invalidated. The chain terminates by dispatching
// into the native base.
func (r *Registry) Deallocate(att Attachment, obj *Object) {
	att.assertValid()
	for _, ct := range obj.contents {
		if ct.checkThread() {
			ct.dispose()
		} else {
			err := fmt.Errorf("cannot drop value of class %s: instance is bound to another thread", ct.class.name)
			log.Warningf("%s; leaking the value", err.Error())
			r.abi.WriteUnraisable("deallocating "+ct.class.name, err)
			ct.disposed = true
			ct.value = nil
		}
		ct.clearDict()
		ct.clearWeakrefs()
	}
	r.deallocNativeBase(obj)
}

// DeallocateWithGC untracks the object from the cycle collector before
// tearing it down; the collector must never traverse a half-dead object.
func (r *Registry) DeallocateWithGC(att Attachment, obj *Object) {
	att.assertValid()
	if obj.tracked {
		r.abi.GCUntrack(obj)
		obj.tracked = false
	}
	r.Deallocate(att, obj)
}

// deallocNativeBase dispatches the terminal deallocation step over the
// three native base cases.
func (r *Registry) deallocNativeBase(obj *Object) {
	base := obj.class.nativeBase
	switch base.Kind {
	case RootBase:
		r.abi.TpFree(obj)
	case Metaclass:
		// The metaclass destructor unconditionally untracks, so the object
		// must be tracked when the slot runs.
		r.abi.GCTrack(obj)
		obj.tracked = true
		r.abi.TpDealloc(base, obj)
	default:
		if r.abi.IsBaseExceptionSubclass(base) &&
			!r.abi.Version().AtLeast(excSubclassRetrackFixedVersion) &&
			!obj.tracked {
			// Exception-derived destructors on old ABIs untrack again; hand
			// them a tracked object so the double untrack stays balanced.
			r.abi.GCTrack(obj)
			obj.tracked = true
		}
		r.abi.TpDealloc(base, obj)
	}
}
