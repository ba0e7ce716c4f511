// Package checked provides Handle, a shared, reference-counted pointer
// that tracks borrows of its value at run time.
//
// Any number of shared borrows may be live at once, or a single mutable
// one. A borrow that would break this rule is refused with
// ErrBorrowConflict instead of being handed out. Handle is meant for a
// single goroutine; borrow tracking is not synchronized.
package checked

import (
	"github.com/pkg/errors"

	"github.com/martinjungblut/imp/internal/rc"
	"github.com/martinjungblut/imp/observe"
)

var (
	// ErrBorrowConflict is returned when a borrow overlaps a live
	// mutable borrow, or when a mutable borrow overlaps any live borrow.
	ErrBorrowConflict = errors.New("checked: borrow conflict")

	// ErrDropped is returned when a dropped handle is used.
	ErrDropped = errors.New("checked: handle was dropped")

	// ErrInvalid is returned when a zero-value handle is used.
	ErrInvalid = errors.New("checked: zero-value handle")
)

type cell[T any] struct {
	value T

	// readers counts live shared borrows; writing is true while the
	// mutable borrow is live.
	readers int
	writing bool
}

type config[T any] struct {
	options  rc.Options[cell[T]]
	teardown func(*T) error
}

// Option configures a new Handle.
type Option[T any] func(*config[T])

// OnRelease sets the function run once, when the last handle to the
// storage is dropped or released. By default a value implementing
// io.Closer is closed.
func OnRelease[T any](teardown func(*T)) Option[T] {
	return func(c *config[T]) {
		c.teardown = func(value *T) error {
			teardown(value)
			return nil
		}
	}
}

// Named sets the name reported in lifecycle events and errors.
func Named[T any](name string) Option[T] {
	return func(c *config[T]) {
		c.options.Name = name
	}
}

// Observed sets an observer for the storage's lifecycle events and
// borrow conflicts.
func Observed[T any](observer observe.Observer) Option[T] {
	return func(c *config[T]) {
		c.options.Observer = observe.Chain(c.options.Observer, observer)
	}
}

// Handle is a shared handle with checked borrows. Assigning a Handle
// copies the handle itself; Clone creates a new handle to the same
// storage.
type Handle[T any] struct {
	ref rc.Ref[cell[T]]
}

// New wraps value in new storage shared by a single handle.
func New[T any](value T, opts ...Option[T]) Handle[T] {
	config := config[T]{}
	for _, opt := range opts {
		opt(&config)
	}

	teardown := config.teardown
	if teardown == nil {
		teardown = rc.CloseTeardown[T]
	}
	config.options.Teardown = func(c *cell[T]) error {
		return teardown(&c.value)
	}

	return Handle[T]{ref: rc.New(cell[T]{value: value}, config.options)}
}

func (this Handle[T]) box() (*rc.Box[cell[T]], error) {
	box, err := this.ref.Box()
	switch {
	case errors.Is(err, rc.ErrDropped):
		return nil, ErrDropped
	case err != nil:
		return nil, ErrInvalid
	}

	return box, nil
}

func (this Handle[T]) conflict(box *rc.Box[cell[T]], reason string) error {
	err := errors.Wrapf(ErrBorrowConflict, "handle %q is %s", box.Name(), reason)
	box.Emit(observe.Conflict, err)

	return err
}

// Clone returns a new handle to the same storage. The value is not
// copied.
func (this Handle[T]) Clone() (Handle[T], error) {
	if _, err := this.box(); err != nil {
		return Handle[T]{}, err
	}

	ref, err := this.ref.Clone()
	if err != nil {
		return Handle[T]{}, err
	}

	return Handle[T]{ref: ref}, nil
}

// Same returns true if a and b refer to the same storage.
func Same[T any](a, b Handle[T]) bool {
	return rc.Same(a.ref, b.ref)
}

// Is returns true if this and other refer to the same storage.
func (this Handle[T]) Is(other Handle[T]) bool {
	return Same(this, other)
}

// Borrow returns a shared view of the value. It fails with
// ErrBorrowConflict while a mutable borrow is live.
func (this Handle[T]) Borrow() (Ref[T], error) {
	box, err := this.box()
	if err != nil {
		return Ref[T]{}, err
	}

	cell := box.Pointer()
	if cell.writing {
		return Ref[T]{}, this.conflict(box, "mutably borrowed")
	}

	share, err := this.ref.Retain()
	if err != nil {
		return Ref[T]{}, err
	}

	cell.readers++
	return Ref[T]{cell: cell, share: share, released: new(bool)}, nil
}

// BorrowMut returns the mutable view of the value. It fails with
// ErrBorrowConflict while any other borrow is live.
func (this Handle[T]) BorrowMut() (RefMut[T], error) {
	box, err := this.box()
	if err != nil {
		return RefMut[T]{}, err
	}

	cell := box.Pointer()
	if cell.writing {
		return RefMut[T]{}, this.conflict(box, "mutably borrowed")
	}
	if cell.readers > 0 {
		return RefMut[T]{}, this.conflict(box, "borrowed")
	}

	share, err := this.ref.Retain()
	if err != nil {
		return RefMut[T]{}, err
	}

	cell.writing = true
	return RefMut[T]{cell: cell, share: share, released: new(bool)}, nil
}

// Read passes a copy of the value to handler, holding a shared borrow
// while handler runs.
func (this Handle[T]) Read(handler func(T)) error {
	ref, err := this.Borrow()
	if err != nil {
		return err
	}
	defer ref.Release()

	handler(ref.Get())
	return nil
}

// Use passes the mutable view of the value to handler, holding the
// mutable borrow while handler runs.
func (this Handle[T]) Use(handler func(*T)) error {
	ref, err := this.BorrowMut()
	if err != nil {
		return err
	}
	defer ref.Release()

	handler(ref.Value())
	return nil
}

// Swap replaces the value with the one returned by handler.
func (this Handle[T]) Swap(handler func(T) T) error {
	return this.Use(func(value *T) {
		*value = handler(*value)
	})
}

// Get returns a copy of the value.
func (this Handle[T]) Get() (T, error) {
	var value T
	err := this.Read(func(current T) {
		value = current
	})

	return value, err
}

// Set replaces the value.
func (this Handle[T]) Set(value T) error {
	return this.Use(func(current *T) {
		*current = value
	})
}

// IsBorrowed returns true while any borrow of the value is live.
func (this Handle[T]) IsBorrowed() bool {
	box, err := this.box()
	if err != nil {
		return false
	}

	cell := box.Pointer()
	return cell.writing || cell.readers > 0
}

// IsMutablyBorrowed returns true while the mutable borrow is live.
func (this Handle[T]) IsMutablyBorrowed() bool {
	box, err := this.box()
	if err != nil {
		return false
	}

	return box.Pointer().writing
}

// Drop gives this handle's share back; dropping an already dropped
// handle does nothing. Every live borrow holds a share of its own, so
// the storage is not torn down before its borrows are released.
func (this Handle[T]) Drop() {
	this.ref.Drop()
}

// IsDropped returns true once Drop was called on this handle.
func (this Handle[T]) IsDropped() bool {
	return this.ref.IsDropped()
}

// Shares returns how many handles and live borrows currently share the
// storage.
func (this Handle[T]) Shares() int64 {
	return this.ref.Shares()
}

// Name returns the handle's name, or an empty string if it has none or
// is unusable.
func (this Handle[T]) Name() string {
	box, err := this.box()
	if err != nil {
		return ""
	}

	return box.Name()
}
