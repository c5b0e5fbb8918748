package pyclass

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Attachment: Proof of being attached to the host runtime
// ---------------------------------------------------------------------------

// Attachment is the token proving the calling thread is attached to the
// host runtime (the global-lock analogue). Every operation that may touch
// runtime state takes one. Only Registry.Attach produces valid tokens; the
// zero value is rejected.
type Attachment struct {
	registry *Registry
}

// Attach produces an attachment token for the calling thread. The actual
// runtime attachment is an external precondition this package does not
// manage; the token only threads the proof through call chains.
func (r *Registry) Attach() Attachment {
	return Attachment{registry: r}
}

func (att Attachment) assertValid() {
	if att.registry == nil {
		panic("pyclass: operation requires a runtime attachment; use Registry.Attach")
	}
}

// ---------------------------------------------------------------------------
// TypeObject: The resolved runtime-side type
// ---------------------------------------------------------------------------

// TypeObject is the handle to a class's resolved runtime type object,
// carrying the layout values the runtime was told at type creation.
type TypeObject struct {
	Class     *Class
	Basicsize int
	Dict      Offset
	Weaklist  Offset
}

// resolveTypeObject builds the runtime type object for a class. Base
// classes resolve first so the runtime sees the chain bottom-up.
func resolveTypeObject(att Attachment, c *Class) (*TypeObject, error) {
	if c.base != nil {
		if _, err := c.base.typeObject.Get(att); err != nil {
			return nil, fmt.Errorf("failed to resolve base type object for %s: %w", c.name, err)
		}
	}
	return &TypeObject{
		Class:     c,
		Basicsize: Basicsize(c),
		Dict:      DictOffset(c),
		Weaklist:  WeaklistOffset(c),
	}, nil
}

// ---------------------------------------------------------------------------
// LazyTypeObject: Once-gated, attachment-gated resolution
// ---------------------------------------------------------------------------

// LazyTypeObject resolves a class's runtime type object at most once, on
// first attached access.
type LazyTypeObject struct {
	once     sync.Once
	resolved atomic.Pointer[TypeObject]
	err      error
	build    func(Attachment) (*TypeObject, error)
}

func newLazyTypeObject(build func(Attachment) (*TypeObject, error)) LazyTypeObject {
	return LazyTypeObject{build: build}
}

// Get resolves the type object, running the builder on first call. Requires
// an attachment because type creation touches runtime state.
func (l *LazyTypeObject) Get(att Attachment) (*TypeObject, error) {
	att.assertValid()
	l.once.Do(func() {
		t, err := l.build(att)
		if err != nil {
			l.err = err
			return
		}
		l.resolved.Store(t)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.resolved.Load(), nil
}

// TryGet returns the already-resolved type object without resolving, nil
// when resolution has not happened yet. Safe without an attachment.
func (l *LazyTypeObject) TryGet() *TypeObject {
	return l.resolved.Load()
}

// ---------------------------------------------------------------------------
// TypeObjectStrategy: How an accessor may obtain the type object
// ---------------------------------------------------------------------------

// TypeObjectStrategy selects how contents access resolves the runtime type
// object it needs.
type TypeObjectStrategy struct {
	att      Attachment
	mayBuild bool
}

// Lazy permits on-demand type object resolution under the given attachment.
func Lazy(att Attachment) TypeObjectStrategy {
	att.assertValid()
	return TypeObjectStrategy{att: att, mayBuild: true}
}

// AssumeInit asserts that every needed type object was resolved earlier in
// the object's lifetime. Used where re-resolving would be unsafe, such as
// post-detachment cleanup. The engine cannot verify the assertion; it panics
// naming the class when it turns out to be false.
func AssumeInit() TypeObjectStrategy {
	return TypeObjectStrategy{}
}

// typeObject obtains a class's type object under the strategy.
func (s TypeObjectStrategy) typeObject(c *Class) *TypeObject {
	if s.mayBuild {
		t, err := c.typeObject.Get(s.att)
		if err != nil {
			panic(fmt.Sprintf("pyclass: failed to resolve type object for class %s: %v", c.name, err))
		}
		return t
	}
	t := c.typeObject.TryGet()
	if t == nil {
		panic(fmt.Sprintf("pyclass: type object for class %s was assumed initialized but never resolved", c.name))
	}
	return t
}
