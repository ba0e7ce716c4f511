package imp

// View is a read-only projection of an Imp. Every read hands out a copy
// of the value, so a View can never be used to mutate it.
//
// A View does not hold a share of its own; it becomes unusable once the
// handle it was taken from is dropped.
type View[T any] struct {
	handle Imp[T]
}

// View returns a read-only projection of this handle.
func (this Imp[T]) View() View[T] {
	return View[T]{handle: this}
}

// Get returns a copy of the current value.
func (this View[T]) Get() T {
	return this.handle.Get()
}

// Use passes a copy of the value to handler.
func (this View[T]) Use(handler func(T)) {
	defer this.handle.ref.KeepAlive()

	handler(this.handle.Get())
}

// Is returns true if this and other project the same storage.
func (this View[T]) Is(other View[T]) bool {
	return Same(this.handle, other.handle)
}
