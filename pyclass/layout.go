package pyclass

// ---------------------------------------------------------------------------
// Layout: Byte-exact offset computation over the ancestor chain
// ---------------------------------------------------------------------------

// wordSize is the modeled pointer/word size in bytes. Borrow and thread
// state, dict and weakref slots are all one word.
const wordSize = 8

// OffsetKind distinguishes the two address bases an offset can be measured
// from.
type OffsetKind int

const (
	// Absolute offsets are measured from the start of the object header.
	// Produced by the static layout.
	Absolute OffsetKind = iota

	// Relative offsets are measured from the start of the runtime-allocated
	// extra region. Produced by the opaque layout.
	Relative
)

func (k OffsetKind) String() string {
	if k == Relative {
		return "relative"
	}
	return "absolute"
}

// Offset is a byte offset tagged with the base it is measured from.
type Offset struct {
	Kind  OffsetKind
	Bytes int
}

// alignUp rounds n up to the next multiple of align. align must be a power
// of two.
func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// contentsAlign is the alignment requirement of a class's contents record:
// the word-sized checker and slot fields never need more than the word size,
// the value field may.
func contentsAlign(c *Class) int {
	if c.valueAlign > wordSize {
		return c.valueAlign
	}
	return wordSize
}

// contentsLayout computes the within-record field offsets and the record
// size for one class, folding fields in declaration order: value, borrow
// word, thread word, dict slot, weakref slot. Absent opt-in slots are
// zero-sized fields, so their offsets still exist and coincide.
type contentsLayout struct {
	value   int
	borrow  int
	thread  int
	dict    int
	weakref int
	size    int
}

func layoutContents(c *Class) contentsLayout {
	var l contentsLayout
	off := 0

	l.value = off
	off += c.valueSize
	off = alignUp(off, wordSize)

	l.borrow = off
	off += wordSize
	l.thread = off
	off += wordSize

	l.dict = off
	if c.hasDict {
		off += wordSize
	}
	l.weakref = off
	if c.hasWeakref {
		off += wordSize
	}

	l.size = alignUp(off, contentsAlign(c))
	return l
}

// contentsBase returns the byte offset of c's contents record measured from
// the layout base: the object header for the static layout, the extra region
// for the opaque layout. Ancestor records are folded least derived first, so
// a base class's record always precedes its subclasses'.
func contentsBase(c *Class) int {
	off := 0
	if c.layout == StaticLayout {
		off = c.nativeBase.Basicsize
	}
	// chain is most derived first; walk it backwards.
	for i := len(c.chain) - 1; i >= 0; i-- {
		ancestor := c.chain[i]
		off = alignUp(off, contentsAlign(ancestor))
		if ancestor == c {
			return off
		}
		off += layoutContents(ancestor).size
	}
	panic("pyclass: class not present in its own ancestor chain")
}

func (c *Class) offsetKind() OffsetKind {
	if c.layout == OpaqueLayout {
		return Relative
	}
	return Absolute
}

// ContentsOffset returns the offset of a class's contents record: absolute
// from the object header for static layouts, relative to the runtime extra
// region for opaque layouts. A pure function of the class, never of any
// instance.
func ContentsOffset(c *Class) Offset {
	return Offset{Kind: c.offsetKind(), Bytes: contentsBase(c)}
}

// DictOffset returns the offset of the class's dict slot. When the class
// did not opt in, the offset still computes (to a zero-sized field) and
// equals WeaklistOffset.
func DictOffset(c *Class) Offset {
	return Offset{Kind: c.offsetKind(), Bytes: contentsBase(c) + layoutContents(c).dict}
}

// WeaklistOffset returns the offset of the class's weak reference slot.
func WeaklistOffset(c *Class) Offset {
	return Offset{Kind: c.offsetKind(), Bytes: contentsBase(c) + layoutContents(c).weakref}
}

// ResolveOffset rebases off to an absolute byte offset from obj's header.
// Absolute offsets pass through unchanged. Relative offsets are measured
// from the runtime-placed extra region, whose position is only known per
// instance, so the host is queried for it.
func (r *Registry) ResolveOffset(obj *Object, class *Class, off Offset) Offset {
	if off.Kind == Absolute {
		return off
	}
	return Offset{Kind: Absolute, Bytes: r.abi.TypeDataOffset(obj, class) + off.Bytes}
}

// Basicsize returns the allocation size the runtime type object advertises
// for the class. Static layouts report the full object size. Opaque layouts
// report the negative of the chain's extra size, a sign convention the
// runtime reads as "allocate this much beyond the base".
func Basicsize(c *Class) int {
	end := contentsBase(c) + layoutContents(c).size
	if c.layout == OpaqueLayout {
		return -end
	}
	maxAlign := wordSize
	for _, ancestor := range c.chain {
		if a := contentsAlign(ancestor); a > maxAlign {
			maxAlign = a
		}
	}
	return alignUp(end, maxAlign)
}
