// Package observe reports the lifecycle of shared storage: construction,
// cloning, dropping and release of handles, and borrow conflicts.
package observe

import "fmt"

// Kind identifies what happened to a handle or to its storage.
type Kind int

const (
	// Construct is emitted once, when new storage is created.
	Construct Kind = iota
	// Clone is emitted every time a handle is cloned.
	Clone
	// Drop is emitted every time a handle gives up its share.
	Drop
	// Release is emitted once, after the last share was dropped and the
	// storage's teardown ran.
	Release
	// Conflict is emitted when a checked borrow was refused.
	Conflict
)

func (this Kind) String() string {
	switch this {
	case Construct:
		return "construct"
	case Clone:
		return "clone"
	case Drop:
		return "drop"
	case Release:
		return "release"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("kind(%d)", int(this))
	}
}

// Event represents the information associated with a lifecycle event;
// it includes the group name, the handle name, the kind of event, and
// the number of shares left on the storage once the event happened.
// Err is set for a Release whose teardown failed, and for a Conflict.
type Event struct {
	Group  string
	Handle string
	Kind   Kind
	Shares int64
	Err    error
}

// Observer receives lifecycle events. Observers may be invoked from the
// runtime's cleanup goroutine when a handle is released automatically.
type Observer func(Event)

// Chain returns an Observer invoking every non-nil observer, in order.
func Chain(observers ...Observer) Observer {
	filtered := make([]Observer, 0, len(observers))
	for _, observer := range observers {
		if observer != nil {
			filtered = append(filtered, observer)
		}
	}

	return func(event Event) {
		for _, observer := range filtered {
			observer(event)
		}
	}
}
