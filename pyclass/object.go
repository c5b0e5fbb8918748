package pyclass

import "fmt"

// ---------------------------------------------------------------------------
// Object: An instance of a registered class
// ---------------------------------------------------------------------------

// Object is an instance of a registered class: one contents record per user
// class in the ancestor chain, plus the native header modeled by the host
// ABI.
type Object struct {
	class *Class

	// contents is parallel to class.chain: most derived layer first.
	contents []*Contents

	// tracked mirrors whether the cycle collector currently tracks the
	// object.
	tracked bool
}

// NewObject instantiates a class. values supplies each layer's user value,
// most derived first, and must match the chain length.
func (r *Registry) NewObject(att Attachment, class *Class, values ...any) (*Object, error) {
	att.assertValid()
	if len(values) != len(class.chain) {
		return nil, fmt.Errorf("class %s has %d layers, got %d values", class.name, len(class.chain), len(values))
	}
	// Instantiation requires the resolved type object; resolve it up front
	// so post-detachment cleanup never needs to.
	if _, err := class.typeObject.Get(att); err != nil {
		return nil, err
	}

	obj := &Object{
		class:    class,
		contents: make([]*Contents, len(class.chain)),
	}
	for i, layer := range class.chain {
		ct := &Contents{class: layer, value: values[i]}
		obj.contents[i] = ct
	}
	obj.tracked = true
	return obj, nil
}

// Class returns the object's most derived class.
func (o *Object) Class() *Class { return o.class }

// contentsFor returns the record for a class layer without any checking.
func (o *Object) contentsFor(class *Class) *Contents {
	for i, layer := range o.class.chain {
		if layer == class {
			return o.contents[i]
		}
	}
	return nil
}

// ContentsPtr returns the contents record for one class layer of an
// instance known to be of that class or a subtype. The type object for the
// class is resolved per the strategy first; a nil resolved type object or a
// runtime class that is not a subtype of the requested class panics with a
// diagnostic naming both classes. The returned record is the caller's to
// use under the borrow discipline.
func ContentsPtr(obj *Object, class *Class, strategy TypeObjectStrategy) *Contents {
	t := strategy.typeObject(class)
	if t == nil {
		panic(fmt.Sprintf("pyclass: nil type object for class %s", class.name))
	}
	if !obj.class.IsSubclassOf(class) {
		panic(fmt.Sprintf("pyclass: object of class %s is not an instance of %s", obj.class.name, class.name))
	}
	return obj.contentsFor(class)
}

// ---------------------------------------------------------------------------
// Recursive chain operations
// ---------------------------------------------------------------------------

// EnsureThreadSafe runs the thread check for every layer of the chain,
// binding unbound affine layers to the current thread. Panics on a
// cross-thread access to any affine layer.
func (o *Object) EnsureThreadSafe() {
	for _, ct := range o.contents {
		ct.ensureThread()
	}
}

// CheckThreadSafe reports whether every layer of the chain may be touched
// from the current thread, without binding anything.
func (o *Object) CheckThreadSafe() bool {
	for _, ct := range o.contents {
		if !ct.checkThread() {
			return false
		}
	}
	return true
}
