// Package rc implements the reference-counted storage shared by every
// handle kind: a share count, a teardown that runs exactly once when the
// count reaches zero, and automatic release of handles that became
// unreachable without being dropped.
package rc

import (
	"io"
	"reflect"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/martinjungblut/imp/observe"
)

var (
	// ErrInvalid is returned when a zero-value Ref is used.
	ErrInvalid = errors.New("rc: zero-value reference")

	// ErrDropped is returned when a dropped Ref is used.
	ErrDropped = errors.New("rc: reference was dropped")
)

// Options configures new storage.
type Options[T any] struct {
	Group    string
	Name     string
	Observer observe.Observer

	// Teardown runs once, when the last share is dropped. A nil Teardown
	// falls back to CloseTeardown.
	Teardown func(*T) error
}

// Box is shared storage for exactly one value of type T.
type Box[T any] struct {
	value T

	// Atomic because automatic release runs on the runtime's cleanup
	// goroutine.
	shares   atomic.Int64
	released atomic.Bool

	group    string
	name     string
	observer observe.Observer
	teardown func(*T) error
}

// Pointer returns the address of the stored value. Every caller gets
// the same address.
func (this *Box[T]) Pointer() *T {
	return &this.value
}

func (this *Box[T]) Shares() int64 {
	return this.shares.Load()
}

func (this *Box[T]) IsReleased() bool {
	return this.released.Load()
}

func (this *Box[T]) Group() string {
	return this.group
}

func (this *Box[T]) Name() string {
	return this.name
}

// Emit reports an event about this storage to its observer, if any.
func (this *Box[T]) Emit(kind observe.Kind, err error) {
	this.emit(kind, this.shares.Load(), err)
}

func (this *Box[T]) emit(kind observe.Kind, shares int64, err error) {
	if this.observer != nil {
		this.observer(observe.Event{
			Group:  this.group,
			Handle: this.name,
			Kind:   kind,
			Shares: shares,
			Err:    err,
		})
	}
}

// release gives one share back. Quiet shares, held internally by
// borrows, are not reported as drops.
func (this *Box[T]) release(quiet bool) {
	shares := this.shares.Add(-1)
	if !quiet {
		this.emit(observe.Drop, shares, nil)
	}

	if shares == 0 && this.released.CompareAndSwap(false, true) {
		err := this.teardown(&this.value)
		this.emit(observe.Release, 0, err)
	}
}

// Ref is one counted share of a Box. Copies of a Ref are the same
// share; Clone creates a new one.
type Ref[T any] struct {
	state *state[T]
}

type state[T any] struct {
	box     *Box[T]
	quiet   bool
	dropped atomic.Bool
	cleanup runtime.Cleanup
}

// New creates storage holding value, with a single share.
func New[T any](value T, options Options[T]) Ref[T] {
	box := &Box[T]{
		value:    value,
		group:    options.Group,
		name:     options.Name,
		observer: options.Observer,
		teardown: options.Teardown,
	}
	if box.teardown == nil {
		box.teardown = CloseTeardown[T]
	}

	box.shares.Store(1)
	box.emit(observe.Construct, 1, nil)

	return attach(box, false)
}

// attach creates a new share of box. The share is given back
// automatically once it becomes unreachable, unless it was dropped.
func attach[T any](box *Box[T], quiet bool) Ref[T] {
	state := &state[T]{box: box, quiet: quiet}
	if quiet {
		state.cleanup = runtime.AddCleanup(state, releaseQuiet[T], box)
	} else {
		state.cleanup = runtime.AddCleanup(state, releaseBox[T], box)
	}

	return Ref[T]{state: state}
}

func releaseBox[T any](box *Box[T]) {
	box.release(false)
}

func releaseQuiet[T any](box *Box[T]) {
	box.release(true)
}

// Box returns the storage behind this share.
func (this Ref[T]) Box() (*Box[T], error) {
	if this.state == nil {
		return nil, ErrInvalid
	}
	if this.state.dropped.Load() {
		return nil, ErrDropped
	}

	return this.state.box, nil
}

// Clone creates a new share of the same storage. The value itself is
// never copied.
func (this Ref[T]) Clone() (Ref[T], error) {
	box, err := this.Box()
	if err != nil {
		return Ref[T]{}, err
	}

	shares := box.shares.Add(1)
	box.emit(observe.Clone, shares, nil)

	return attach(box, false), nil
}

// Retain creates a share that keeps the storage alive without being
// reported as a clone, or as a drop once given back. Borrows use it so
// that storage outlives them.
func (this Ref[T]) Retain() (Ref[T], error) {
	box, err := this.Box()
	if err != nil {
		return Ref[T]{}, err
	}

	box.shares.Add(1)
	return attach(box, true), nil
}

// KeepAlive marks this share as in use up to the point of the call, so
// it cannot be released automatically before then. Accessors call it
// after they are done with the storage.
func (this Ref[T]) KeepAlive() {
	runtime.KeepAlive(this.state)
}

// Drop gives this share back. It returns false if the share was
// already dropped, or if this is a zero-value Ref.
func (this Ref[T]) Drop() bool {
	if this.state == nil || !this.state.dropped.CompareAndSwap(false, true) {
		return false
	}

	this.state.cleanup.Stop()
	this.state.box.release(this.state.quiet)

	return true
}

func (this Ref[T]) IsDropped() bool {
	return this.state != nil && this.state.dropped.Load()
}

// IsValid returns false for a zero-value Ref.
func (this Ref[T]) IsValid() bool {
	return this.state != nil
}

// Shares returns the number of live shares of the storage, or zero for
// a zero-value Ref.
func (this Ref[T]) Shares() int64 {
	if this.state == nil {
		return 0
	}

	return this.state.box.Shares()
}

// Same reports whether a and b share the same storage. Zero-value Refs
// have no storage and are never the same as anything.
func Same[T any](a, b Ref[T]) bool {
	if a.state == nil || b.state == nil {
		return false
	}

	return a.state.box == b.state.box
}

// CloseTeardown closes value if *T or T implements io.Closer. Nil
// pointers are left alone.
func CloseTeardown[T any](value *T) error {
	if closer, ok := any(value).(io.Closer); ok {
		return closer.Close()
	}

	// Prevent calling Close on nil pointers during runtime.
	rvalue := reflect.ValueOf(*value)
	if !rvalue.IsValid() {
		return nil
	}
	switch rvalue.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rvalue.IsNil() {
			return nil
		}
	}

	if closer, ok := any(*value).(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
