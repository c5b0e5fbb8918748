package pyclass

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/pylink/buildcfg"
)

var log = commonlog.GetLogger("pylink.pyclass")

// ---------------------------------------------------------------------------
// NativeBase: A host-runtime-defined base class
// ---------------------------------------------------------------------------

// NativeBaseKind distinguishes the three deallocation dispatch cases for a
// native base.
type NativeBaseKind int

const (
	// RootBase is the runtime's ultimate object base; deallocation frees
	// the memory directly.
	RootBase NativeBaseKind = iota

	// Metaclass is the runtime's own type-of-types; its destructor
	// unconditionally untracks, so the object must be re-tracked with the
	// collector before the destructor slot runs.
	Metaclass

	// OtherBase is any other native base; deallocation goes through its
	// destructor slot.
	OtherBase
)

func (k NativeBaseKind) String() string {
	switch k {
	case RootBase:
		return "RootBase"
	case Metaclass:
		return "Metaclass"
	default:
		return "OtherBase"
	}
}

// NativeBase describes a host-runtime-defined class that a user class chain
// ultimately extends.
type NativeBase struct {
	// Name is the runtime-side type name, for diagnostics.
	Name string

	// Basicsize is the native header size in bytes.
	Basicsize int

	// Opaque marks a base whose instance size is only known to the runtime.
	// Chains rooted at an opaque base use the opaque layout and require a
	// runtime ABI of at least 3.12.
	Opaque bool

	// Kind selects the deallocation dispatch case.
	Kind NativeBaseKind

	// BaseExceptionSubclass marks bases descending from the runtime's root
	// exception type. Before ABI 3.11 their destructors untrack without
	// re-tracking, which deallocation has to compensate for.
	BaseExceptionSubclass bool
}

// ---------------------------------------------------------------------------
// Class: A registered user extension class
// ---------------------------------------------------------------------------

// LayoutKind is the physical layout strategy of a class, fixed at
// registration.
type LayoutKind int

const (
	// StaticLayout places every ancestor's contents record at a
	// registration-time-known offset in one contiguous allocation.
	StaticLayout LayoutKind = iota

	// OpaqueLayout lets the runtime allocate each class's extra region at
	// an offset only discoverable through a runtime query.
	OpaqueLayout
)

func (k LayoutKind) String() string {
	if k == OpaqueLayout {
		return "Opaque"
	}
	return "Static"
}

// Mutability is the per-class borrow policy.
type Mutability int

const (
	// Immutable classes never hand out exclusive access to their value.
	Immutable Mutability = iota

	// Mutable classes own a borrow flag; their descendants share it.
	Mutable
)

// ThreadPolicy is the per-class thread affinity policy.
type ThreadPolicy int

const (
	// Sendable instances may be touched from any thread.
	Sendable ThreadPolicy = iota

	// ThreadAffine instances bind to the first thread that touches them
	// and reject access from any other.
	ThreadAffine
)

// ClassSpec describes a class to register. Exactly one of Base and
// NativeBase must be set.
type ClassSpec struct {
	Name string

	// Base is the immediate user-defined ancestor, nil for a chain root.
	Base *Class

	// NativeBase is the host-runtime base a chain root extends.
	NativeBase *NativeBase

	// ValueSize and ValueAlign describe the user data field. ValueAlign
	// defaults to the word size when zero.
	ValueSize  int
	ValueAlign int

	// HasDict and HasWeakref opt the class into the respective slots.
	HasDict    bool
	HasWeakref bool

	Mutability   Mutability
	ThreadPolicy ThreadPolicy

	// Drop releases the class's value during deallocation. Optional.
	Drop func(value any)
}

// Class is a registered extension class. Immutable after registration.
type Class struct {
	name       string
	base       *Class
	nativeBase *NativeBase
	layout     LayoutKind

	valueSize  int
	valueAlign int
	hasDict    bool
	hasWeakref bool

	mutability   Mutability
	threadPolicy ThreadPolicy
	drop         func(value any)

	// chain is the ancestor list, most derived first, ending at the chain
	// root. Fixed at registration.
	chain []*Class

	typeObject LazyTypeObject
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Base returns the immediate user-defined ancestor, nil for a chain root.
func (c *Class) Base() *Class { return c.base }

// NativeBase returns the host-runtime base the chain roots at.
func (c *Class) NativeBase() *NativeBase { return c.nativeBase }

// Layout returns the class's layout strategy.
func (c *Class) Layout() LayoutKind { return c.layout }

// Ancestors returns the ancestor chain, most derived first. The returned
// slice must not be modified.
func (c *Class) Ancestors() []*Class { return c.chain }

// IsSubclassOf reports whether c is other or a descendant of it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for _, ancestor := range c.chain {
		if ancestor == other {
			return true
		}
	}
	return false
}

// TypeObject returns the class's lazily-resolved runtime type object handle.
func (c *Class) TypeObject() *LazyTypeObject { return &c.typeObject }

// borrowOwner returns the class whose contents record holds the borrow flag
// consulted for accesses through c: the least derived mutable class in the
// chain. Nil when the whole chain is immutable.
func (c *Class) borrowOwner() *Class {
	var owner *Class
	for _, ancestor := range c.chain {
		if ancestor.mutability == Mutable {
			owner = ancestor
		}
	}
	return owner
}

// ---------------------------------------------------------------------------
// Registry: Class registration and instance lifecycle
// ---------------------------------------------------------------------------

// opaqueLayoutMinVersion is the first runtime ABI where the runtime can size
// and place extension data itself.
var opaqueLayoutMinVersion = buildcfg.Version{Major: 3, Minor: 12}

// Registry holds the registered classes for one host runtime and mediates
// every operation that touches runtime state.
type Registry struct {
	abi HostABI

	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry creates a registry bound to a host ABI.
func NewRegistry(abi HostABI) *Registry {
	return &Registry{
		abi:     abi,
		classes: make(map[string]*Class),
	}
}

// ABI returns the host ABI the registry is bound to.
func (r *Registry) ABI() HostABI { return r.abi }

// Register validates a class spec and adds the class to the registry. The
// layout strategy is derived from the chain root's native base: an opaque
// base makes the whole chain opaque.
func (r *Registry) Register(spec ClassSpec) (*Class, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("class name must not be empty")
	}
	if (spec.Base == nil) == (spec.NativeBase == nil) {
		return nil, fmt.Errorf("class %s must have exactly one of a user base or a native base", spec.Name)
	}
	if spec.ValueSize < 0 {
		return nil, fmt.Errorf("class %s has negative value size %d", spec.Name, spec.ValueSize)
	}
	align := spec.ValueAlign
	if align == 0 {
		align = wordSize
	}
	if align&(align-1) != 0 {
		return nil, fmt.Errorf("class %s value alignment %d is not a power of two", spec.Name, align)
	}

	c := &Class{
		name:         spec.Name,
		base:         spec.Base,
		nativeBase:   spec.NativeBase,
		valueSize:    spec.ValueSize,
		valueAlign:   align,
		hasDict:      spec.HasDict,
		hasWeakref:   spec.HasWeakref,
		mutability:   spec.Mutability,
		threadPolicy: spec.ThreadPolicy,
		drop:         spec.Drop,
	}
	if spec.Base != nil {
		c.nativeBase = spec.Base.nativeBase
		c.chain = append([]*Class{c}, spec.Base.chain...)
	} else {
		c.chain = []*Class{c}
	}

	if c.nativeBase.Opaque {
		if !r.abi.Version().AtLeast(opaqueLayoutMinVersion) {
			return nil, fmt.Errorf("class %s requires the opaque layout (native base %s is runtime-sized), which needs runtime ABI >= %s, have %s",
				spec.Name, c.nativeBase.Name, opaqueLayoutMinVersion, r.abi.Version())
		}
		c.layout = OpaqueLayout
	} else {
		c.layout = StaticLayout
	}

	c.typeObject = newLazyTypeObject(func(att Attachment) (*TypeObject, error) {
		return resolveTypeObject(att, c)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.classes[spec.Name]; exists {
		return nil, fmt.Errorf("class %s is already registered", spec.Name)
	}
	r.classes[spec.Name] = c
	return c, nil
}

// Lookup returns a registered class by name, nil when absent.
func (r *Registry) Lookup(name string) *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[name]
}
