// Package imp provides Imp, a shared, reference-counted pointer that
// lets every holder read and write the same value.
//
// Imp does not keep track of who is mutating the value. Two handles,
// or two calls on the same handle, may hold mutable views of the value
// at the same time, and nothing stops them from stepping on each
// other. This is why constructing an Imp and every mutable access
// through it take Unchecked: the caller acknowledges that keeping
// mutation exclusive is its own job. Package checked provides a handle
// that refuses overlapping borrows instead.
//
// Imp is meant for a single goroutine. It performs no synchronization.
package imp

import (
	"github.com/martinjungblut/imp/internal/rc"
	"github.com/martinjungblut/imp/observe"
)

// Ack is the caller's acknowledgment that no two mutable views of an
// Imp's value will be used in an overlapping way. Unchecked is its
// only valid value; the zero Ack causes a panic.
type Ack struct {
	acknowledged bool
}

// Unchecked acknowledges that exclusivity of mutation is enforced by
// the caller, not by Imp.
var Unchecked = Ack{acknowledged: true}

func (this Ack) require(operation string) {
	if !this.acknowledged {
		panic("imp: " + operation + " requires imp.Unchecked")
	}
}

type config[T any] struct {
	options rc.Options[T]
}

// Option configures a new Imp.
type Option[T any] func(*config[T])

// OnRelease sets the function run once, when the last handle to the
// storage is dropped or released. By default a value implementing
// io.Closer is closed.
func OnRelease[T any](teardown func(*T)) Option[T] {
	return func(c *config[T]) {
		c.options.Teardown = func(value *T) error {
			teardown(value)
			return nil
		}
	}
}

// Named sets the name reported in lifecycle events.
func Named[T any](name string) Option[T] {
	return func(c *config[T]) {
		c.options.Name = name
	}
}

// Observed sets an observer for the storage's lifecycle events.
func Observed[T any](observer observe.Observer) Option[T] {
	return func(c *config[T]) {
		c.options.Observer = observe.Chain(c.options.Observer, observer)
	}
}

// Imp is a shared mutable handle. Assigning an Imp copies the handle
// itself, not the storage behind it: both copies are the same handle.
// Clone creates a new handle to the same storage.
type Imp[T any] struct {
	ref rc.Ref[T]
}

// New wraps value in new storage shared by a single handle.
func New[T any](ack Ack, value T, opts ...Option[T]) Imp[T] {
	ack.require("New")

	config := config[T]{}
	for _, opt := range opts {
		opt(&config)
	}

	return Imp[T]{ref: rc.New(value, config.options)}
}

// box *panics* if:
// 1: the Imp was never constructed (zero value);
// 2: the Imp was dropped.
func (this Imp[T]) box() *rc.Box[T] {
	box, err := this.ref.Box()
	if err != nil {
		invalid(err)
	}

	return box
}

func invalid(err error) {
	panic("imp: invalid handle: " + err.Error())
}

// Clone returns a new handle to the same storage. The value is not
// copied.
// Clone *panics* on a dropped or zero-value handle.
func (this Imp[T]) Clone() Imp[T] {
	ref, err := this.ref.Clone()
	if err != nil {
		invalid(err)
	}

	return Imp[T]{ref: ref}
}

// Same returns true if a and b refer to the same storage, regardless
// of whether other storage holds an equal value.
func Same[T any](a, b Imp[T]) bool {
	return rc.Same(a.ref, b.ref)
}

// Is returns true if this and other refer to the same storage.
func (this Imp[T]) Is(other Imp[T]) bool {
	return Same(this, other)
}

// Get returns a copy of the current value.
func (this Imp[T]) Get() T {
	defer this.ref.KeepAlive()

	return *this.box().Pointer()
}

// Read passes a copy of the current value to handler.
func (this Imp[T]) Read(handler func(T)) {
	defer this.ref.KeepAlive()

	handler(this.Get())
}

// DerefMut returns a mutable view of the value. Every handle to the
// same storage returns the same pointer, and nothing tracks how many
// such views are alive.
//
// The pointer does not hold a share: once every handle to the storage
// is dropped or unreachable, the value is torn down even if the
// pointer is still in use. Keep a handle alive for as long as the
// pointer is used, or prefer Use.
func (this Imp[T]) DerefMut(ack Ack) *T {
	ack.require("DerefMut")

	return this.box().Pointer()
}

// Use passes a mutable view of the value to handler.
func (this Imp[T]) Use(ack Ack, handler func(*T)) {
	ack.require("Use")
	defer this.ref.KeepAlive()

	handler(this.box().Pointer())
}

// Set replaces the value.
func (this Imp[T]) Set(ack Ack, value T) {
	ack.require("Set")
	defer this.ref.KeepAlive()

	*this.box().Pointer() = value
}

// Swap replaces the value with the one returned by handler.
func (this Imp[T]) Swap(ack Ack, handler func(T) T) {
	ack.require("Swap")
	defer this.ref.KeepAlive()

	pointer := this.box().Pointer()
	*pointer = handler(*pointer)
}

// Drop gives this handle's share back; dropping an already dropped
// handle does nothing. The storage is torn down once every handle to it
// was dropped, or became unreachable.
func (this Imp[T]) Drop() {
	this.ref.Drop()
}

// IsDropped returns true once Drop was called on this handle.
func (this Imp[T]) IsDropped() bool {
	return this.ref.IsDropped()
}

// Shares returns how many handles currently share the storage.
func (this Imp[T]) Shares() int64 {
	return this.ref.Shares()
}

// Name returns the name the handle was created with, if any.
func (this Imp[T]) Name() string {
	return this.box().Name()
}
