package checked

import (
	"github.com/martinjungblut/imp/observe"
)

// Group represents a collection of named Handle instances whose
// lifecycle events and borrow conflicts are reported under the group's
// name.
type Group[T any] struct {
	name     string
	observer observe.Observer
}

func NewGroup[T any](name string) Group[T] {
	return Group[T]{
		name: name,
	}
}

// OnEvent sets the observer for handles created afterwards by this
// group.
func (this *Group[T]) OnEvent(observer observe.Observer) {
	this.observer = observer
}

func (this *Group[T]) New(name string, value T, opts ...Option[T]) Handle[T] {
	grouped := func(c *config[T]) {
		c.options.Group = this.name
		c.options.Name = name
		c.options.Observer = observe.Chain(this.observer, c.options.Observer)
	}

	return New(value, append(opts, grouped)...)
}
