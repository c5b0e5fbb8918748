package pyclass

import (
	"errors"
	"math"
)

// ---------------------------------------------------------------------------
// Borrow checker: Shared/exclusive discipline over an atomic word
// ---------------------------------------------------------------------------

// Borrow conflicts are expected, recoverable conditions; they are reported
// as errors, never as panics and never by blocking.
var (
	// ErrAlreadyBorrowed is returned when an exclusive borrow is requested
	// while any borrow is outstanding.
	ErrAlreadyBorrowed = errors.New("already borrowed")

	// ErrAlreadyBorrowedMut is returned when a shared borrow is requested
	// while an exclusive borrow is outstanding.
	ErrAlreadyBorrowedMut = errors.New("already mutably borrowed")

	// ErrImmutable is returned when an exclusive borrow is requested on a
	// class whose whole chain is immutable.
	ErrImmutable = errors.New("class is immutable")
)

// exclusiveBorrow is the borrow word value marking an outstanding exclusive
// borrow. Any other non-zero value is a shared count.
const exclusiveBorrow = math.MaxUint64

// borrowContents returns the record holding the borrow flag consulted for
// accesses through class: the least derived mutable layer's. Nil when the
// chain is fully immutable.
func (o *Object) borrowContents(class *Class) *Contents {
	owner := class.borrowOwner()
	if owner == nil {
		return nil
	}
	return o.contentsFor(owner)
}

// TryBorrow acquires a shared borrow on the instance through the given
// class layer. Fails with ErrAlreadyBorrowedMut when an exclusive borrow is
// outstanding. Fully immutable chains always succeed without state.
func (o *Object) TryBorrow(class *Class) error {
	o.EnsureThreadSafe()
	ct := o.borrowContents(class)
	if ct == nil {
		return nil
	}
	for {
		current := ct.borrow.Load()
		if current == exclusiveBorrow {
			return ErrAlreadyBorrowedMut
		}
		if ct.borrow.CompareAndSwap(current, current+1) {
			return nil
		}
	}
}

// ReleaseBorrow releases one shared borrow.
func (o *Object) ReleaseBorrow(class *Class) {
	ct := o.borrowContents(class)
	if ct == nil {
		return
	}
	for {
		current := ct.borrow.Load()
		if current == 0 || current == exclusiveBorrow {
			panic("pyclass: shared borrow released on class " + class.name + " without an outstanding shared borrow")
		}
		if ct.borrow.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// TryBorrowMut acquires the exclusive borrow. Fails with ErrAlreadyBorrowed
// when any borrow is outstanding, and with ErrImmutable when the chain has
// no mutable layer at all.
func (o *Object) TryBorrowMut(class *Class) error {
	o.EnsureThreadSafe()
	ct := o.borrowContents(class)
	if ct == nil {
		return ErrImmutable
	}
	if !ct.borrow.CompareAndSwap(0, exclusiveBorrow) {
		return ErrAlreadyBorrowed
	}
	return nil
}

// ReleaseBorrowMut releases the exclusive borrow.
func (o *Object) ReleaseBorrowMut(class *Class) {
	ct := o.borrowContents(class)
	if ct == nil {
		return
	}
	if !ct.borrow.CompareAndSwap(exclusiveBorrow, 0) {
		panic("pyclass: exclusive borrow released on class " + class.name + " without an outstanding exclusive borrow")
	}
}
