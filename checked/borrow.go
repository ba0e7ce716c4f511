package checked

import (
	"github.com/martinjungblut/imp/internal/rc"
)

// Ref is a shared borrow. Copies of a Ref are the same borrow. A live
// borrow keeps the storage alive; a borrow that becomes unreachable
// without Release gives its share back but stays counted as borrowed.
type Ref[T any] struct {
	cell     *cell[T]
	share    rc.Ref[cell[T]]
	released *bool
}

// Get returns a copy of the borrowed value.
// Get *panics* if the borrow was released, or never granted.
func (this Ref[T]) Get() T {
	if this.cell == nil || *this.released {
		panic("checked: use of a released borrow")
	}

	return this.cell.value
}

// Release ends the borrow. Releasing twice does nothing.
func (this Ref[T]) Release() {
	if this.cell == nil || *this.released {
		return
	}

	*this.released = true
	this.cell.readers--
	this.share.Drop()
}

// RefMut is the mutable borrow. Copies of a RefMut are the same borrow.
type RefMut[T any] struct {
	cell     *cell[T]
	share    rc.Ref[cell[T]]
	released *bool
}

// Value returns the mutable view of the borrowed value. The pointer
// must not be kept past Release.
// Value *panics* if the borrow was released, or never granted.
func (this RefMut[T]) Value() *T {
	if this.cell == nil || *this.released {
		panic("checked: use of a released borrow")
	}

	return &this.cell.value
}

// Release ends the borrow. Releasing twice does nothing.
func (this RefMut[T]) Release() {
	if this.cell == nil || *this.released {
		return
	}

	*this.released = true
	this.cell.writing = false
	this.share.Drop()
}
