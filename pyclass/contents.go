package pyclass

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Contents: The per-class record inside an instance
// ---------------------------------------------------------------------------

// Contents is one class's block inside an instance: the user value, the
// borrow and thread checker state, and the optional dict and weak reference
// slots.
type Contents struct {
	class *Class

	// value is exclusively owned by the object and dropped manually by
	// deallocation so drop ordering stays under the engine's control.
	value    any
	disposed bool

	// borrow is the three-state borrow word: 0 unborrowed, MaxUint64
	// exclusively borrowed, anything else a shared count.
	borrow atomic.Uint64

	// thread is the bound OS thread id, 0 while unbound.
	thread atomic.Uint64

	dictMu sync.Mutex
	dict   map[string]any

	weakMu   sync.Mutex
	weakrefs []*WeakRef
}

// Class returns the class this record belongs to.
func (ct *Contents) Class() *Class { return ct.class }

// Value returns the user value. The caller must hold a borrow.
func (ct *Contents) Value() any { return ct.value }

// SetValue replaces the user value. The caller must hold an exclusive
// borrow.
func (ct *Contents) SetValue(v any) { ct.value = v }

// DictGet reads an attribute from the dict slot. Panics when the class did
// not opt into a dict.
func (ct *Contents) DictGet(key string) (any, bool) {
	ct.assertDict()
	ct.dictMu.Lock()
	defer ct.dictMu.Unlock()
	v, ok := ct.dict[key]
	return v, ok
}

// DictSet writes an attribute into the dict slot.
func (ct *Contents) DictSet(key string, value any) {
	ct.assertDict()
	ct.dictMu.Lock()
	defer ct.dictMu.Unlock()
	if ct.dict == nil {
		ct.dict = make(map[string]any)
	}
	ct.dict[key] = value
}

func (ct *Contents) assertDict() {
	if !ct.class.hasDict {
		panic("pyclass: class " + ct.class.name + " has no dict slot")
	}
}

// clearDict empties the dict slot during deallocation.
func (ct *Contents) clearDict() {
	ct.dictMu.Lock()
	defer ct.dictMu.Unlock()
	ct.dict = nil
}

// dispose drops the record's value exactly once, through the class's drop
// hook when one is set. A second dispose is a lifecycle bug.
func (ct *Contents) dispose() {
	if ct.disposed {
		panic("pyclass: contents record for class " + ct.class.name + " disposed twice")
	}
	ct.disposed = true
	if ct.class.drop != nil {
		ct.class.drop(ct.value)
	}
	ct.value = nil
}

// ---------------------------------------------------------------------------
// WeakRef: An entry in the weak reference slot
// ---------------------------------------------------------------------------

// WeakRef is a reference that does not keep its target alive. Deallocation
// clears every weak reference registered on the dying instance.
type WeakRef struct {
	mu     sync.Mutex
	target *Object
}

// Get returns the target object, nil once the target was deallocated.
func (w *WeakRef) Get() *Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

func (w *WeakRef) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.target = nil
}

// NewWeakRef registers a weak reference to obj in the given class layer's
// weak reference slot. Panics when the class did not opt in.
func NewWeakRef(obj *Object, class *Class) *WeakRef {
	ct := obj.contentsFor(class)
	if !class.hasWeakref {
		panic("pyclass: class " + class.name + " has no weak reference slot")
	}
	w := &WeakRef{target: obj}
	ct.weakMu.Lock()
	defer ct.weakMu.Unlock()
	ct.weakrefs = append(ct.weakrefs, w)
	return w
}

// clearWeakrefs invalidates every weak reference during deallocation.
func (ct *Contents) clearWeakrefs() {
	ct.weakMu.Lock()
	refs := ct.weakrefs
	ct.weakrefs = nil
	ct.weakMu.Unlock()
	for _, w := range refs {
		w.clear()
	}
}
