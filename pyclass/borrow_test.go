package pyclass

import (
	"errors"
	"testing"
)

func newBorrowFixture(t *testing.T) (*Registry, *Class, *Object) {
	t.Helper()
	r := NewRegistry(newFakeABI(3, 9))
	c := mustRegister(r, ClassSpec{Name: "Cell", NativeBase: rootBase(), Mutability: Mutable})
	obj, err := r.NewObject(r.Attach(), c, 0)
	if err != nil {
		t.Fatal(err)
	}
	return r, c, obj
}

func TestSharedBorrowsStack(t *testing.T) {
	_, c, obj := newBorrowFixture(t)

	for i := 0; i < 3; i++ {
		if err := obj.TryBorrow(c); err != nil {
			t.Fatalf("shared borrow %d failed: %v", i, err)
		}
	}
	// Exclusive access is rejected while shared borrows are outstanding.
	if err := obj.TryBorrowMut(c); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Errorf("TryBorrowMut with shared borrows = %v, want ErrAlreadyBorrowed", err)
	}
	for i := 0; i < 3; i++ {
		obj.ReleaseBorrow(c)
	}
	if err := obj.TryBorrowMut(c); err != nil {
		t.Errorf("TryBorrowMut after releases failed: %v", err)
	}
}

func TestExclusiveBorrowExcludesEverything(t *testing.T) {
	_, c, obj := newBorrowFixture(t)

	if err := obj.TryBorrowMut(c); err != nil {
		t.Fatal(err)
	}
	if err := obj.TryBorrow(c); !errors.Is(err, ErrAlreadyBorrowedMut) {
		t.Errorf("TryBorrow during exclusive = %v, want ErrAlreadyBorrowedMut", err)
	}
	if err := obj.TryBorrowMut(c); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Errorf("second TryBorrowMut = %v, want ErrAlreadyBorrowed", err)
	}
	obj.ReleaseBorrowMut(c)
	if err := obj.TryBorrow(c); err != nil {
		t.Errorf("shared borrow after exclusive release failed: %v", err)
	}
}

func TestImmutableChainBorrows(t *testing.T) {
	r := NewRegistry(newFakeABI(3, 9))
	c := mustRegister(r, ClassSpec{Name: "Frozen", NativeBase: rootBase(), Mutability: Immutable})
	obj, err := r.NewObject(r.Attach(), c, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Shared access needs no state on a fully immutable chain.
	if err := obj.TryBorrow(c); err != nil {
		t.Errorf("shared borrow on an immutable chain failed: %v", err)
	}
	if err := obj.TryBorrowMut(c); !errors.Is(err, ErrImmutable) {
		t.Errorf("TryBorrowMut on an immutable chain = %v, want ErrImmutable", err)
	}
}

func TestFrozenChildSharesMutableAncestorFlag(t *testing.T) {
	r := NewRegistry(newFakeABI(3, 9))
	att := r.Attach()
	base := mustRegister(r, ClassSpec{Name: "MutBase", NativeBase: rootBase(), Mutability: Mutable})
	leaf := mustRegister(r, ClassSpec{Name: "FrozenChild", Base: base, Mutability: Immutable})
	obj, err := r.NewObject(att, leaf, "leaf", "base")
	if err != nil {
		t.Fatal(err)
	}

	// An exclusive borrow through the base layer blocks borrows through the
	// frozen child, because the child reuses the ancestor's flag.
	if err := obj.TryBorrowMut(base); err != nil {
		t.Fatal(err)
	}
	if err := obj.TryBorrow(leaf); !errors.Is(err, ErrAlreadyBorrowedMut) {
		t.Errorf("borrow through the frozen child = %v, want ErrAlreadyBorrowedMut", err)
	}
	obj.ReleaseBorrowMut(base)
	if err := obj.TryBorrow(leaf); err != nil {
		t.Errorf("borrow after ancestor release failed: %v", err)
	}
}

func TestUnbalancedReleasePanics(t *testing.T) {
	_, c, obj := newBorrowFixture(t)
	defer func() {
		if recover() == nil {
			t.Error("releasing a borrow that was never taken should panic")
		}
	}()
	obj.ReleaseBorrow(c)
}
