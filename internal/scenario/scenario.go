// Package scenario runs the behaviours of shared mutable handles that
// are worth showing: shared mutation, identity, lifetime, and the
// hazard of aliased mutable views next to its checked counterpart.
package scenario

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/martinjungblut/imp"
	"github.com/martinjungblut/imp/checked"
	"github.com/martinjungblut/imp/observe"
)

// ErrUnknown is returned by Find for a name no scenario has.
var ErrUnknown = errors.New("scenario: unknown scenario")

// Report is the outcome of running a scenario. Passed is true when the
// scenario behaved as documented, which for Hazard means the hazard
// did show up.
type Report struct {
	Name    string
	Passed  bool
	Details []string
}

func (this *Report) detailf(format string, args ...any) {
	this.Details = append(this.Details, fmt.Sprintf(format, args...))
}

// Scenario is a named, runnable scenario.
type Scenario struct {
	Name        string
	Description string
	Run         func(observer observe.Observer) Report
}

// All lists every scenario, in the order they are best read in.
var All = []Scenario{
	{"share", "a write through one handle is read through its clone", Share},
	{"identity", "clones are identical, equal values in distinct storage are not", Identity},
	{"lifetime", "teardown runs once, after the last handle is dropped", Lifetime},
	{"clone-no-copy", "cloning a handle never copies the value", CloneNoCopy},
	{"hazard", "interleaved writes through two mutable views lose data", Hazard},
	{"conflict", "the checked handle refuses the same interleaving", Conflict},
}

// Find returns the scenario called name.
func Find(name string) (Scenario, error) {
	for _, scenario := range All {
		if scenario.Name == name {
			return scenario, nil
		}
	}

	return Scenario{}, errors.Wrapf(ErrUnknown, "%q", name)
}

func Share(observer observe.Observer) Report {
	report := Report{Name: "share"}

	group := imp.NewGroup[string]("share")
	group.OnEvent(observer)

	h1 := group.New(imp.Unchecked, "h1", "")
	h2 := h1.Clone()
	defer h1.Drop()
	defer h2.Drop()

	*h1.DerefMut(imp.Unchecked) += "yoo"
	report.detailf("appended %q through h1", "yoo")
	report.detailf("h2 reads %q", h2.Get())

	report.Passed = h2.Get() == "yoo"
	return report
}

func Identity(observer observe.Observer) Report {
	report := Report{Name: "identity"}

	group := imp.NewGroup[int]("identity")
	group.OnEvent(observer)

	h1 := group.New(imp.Unchecked, "h1", 0)
	h2 := h1.Clone()
	h3 := group.New(imp.Unchecked, "h3", 0)
	defer h1.Drop()
	defer h2.Drop()
	defer h3.Drop()

	cloned := imp.Same(h1, h2)
	distinct := imp.Same(h1, h3)
	report.detailf("Same(h1, Clone(h1)) = %t", cloned)
	report.detailf("Same(h1, New(0)) = %t, values equal: %t", distinct, h1.Get() == h3.Get())

	report.Passed = cloned && !distinct
	return report
}

func Lifetime(observer observe.Observer) Report {
	report := Report{Name: "lifetime"}
	report.Passed = true

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	for _, order := range orders {
		teardowns := 0
		early := false

		group := imp.NewGroup[int]("lifetime")
		group.OnEvent(observer)

		h1 := group.New(imp.Unchecked, "h1", 0, imp.OnRelease(func(*int) {
			teardowns++
		}))
		handles := []imp.Imp[int]{h1, h1.Clone(), h1.Clone()}

		for index, position := range order {
			handles[position].Drop()
			if index < len(order)-1 && teardowns != 0 {
				early = true
			}
		}

		report.detailf("drop order %v: %d teardown(s), early: %t", order, teardowns, early)
		report.Passed = report.Passed && teardowns == 1 && !early
	}

	return report
}

// tracked counts how many times it was deep-copied.
type tracked struct {
	copies *int
}

func (this tracked) Clone() tracked {
	*this.copies++
	return tracked{copies: this.copies}
}

func CloneNoCopy(observer observe.Observer) Report {
	report := Report{Name: "clone-no-copy"}

	group := imp.NewGroup[tracked]("clone-no-copy")
	group.OnEvent(observer)

	copies := 0
	handle := group.New(imp.Unchecked, "h1", tracked{copies: &copies})
	defer handle.Drop()

	clone := handle.Clone()
	defer clone.Drop()

	samePointer := handle.DerefMut(imp.Unchecked) == clone.DerefMut(imp.Unchecked)
	report.detailf("value copies made by Clone: %d", copies)
	report.detailf("clone points at the same storage: %t", samePointer)

	report.Passed = copies == 0 && samePointer
	return report
}

// vec caches its backing array across 'during', like containers that
// assume they are not reentered.
type vec struct {
	items []int
}

func (this *vec) push(value int, during func()) {
	items := this.items
	if len(items) == cap(items) {
		grown := make([]int, len(items), 2*cap(items)+1)
		copy(grown, items)
		items = grown
	}
	items = items[:len(items)+1]

	during()

	items[len(items)-1] = value
	this.items = items
}

func Hazard(observer observe.Observer) Report {
	report := Report{Name: "hazard"}

	group := imp.NewGroup[vec]("hazard")
	group.OnEvent(observer)

	h1 := group.New(imp.Unchecked, "h1", vec{})
	h2 := h1.Clone()
	defer h1.Drop()
	defer h2.Drop()

	h1.DerefMut(imp.Unchecked).push(1, func() {
		h2.DerefMut(imp.Unchecked).push(2, func() {})
	})

	items := h2.Get().items
	report.detailf("pushed 1 through h1, and 2 through h2 while h1's push was live")
	report.detailf("vector holds %v (%d of 2 pushes survived)", items, len(items))

	report.Passed = len(items) != 2
	return report
}

func Conflict(observer observe.Observer) Report {
	report := Report{Name: "conflict"}

	group := checked.NewGroup[vec]("conflict")
	group.OnEvent(observer)

	h1 := group.New("h1", vec{})
	defer h1.Drop()

	h2, err := h1.Clone()
	if err != nil {
		report.detailf("clone failed: %v", err)
		return report
	}
	defer h2.Drop()

	var inner error
	outer := h1.Use(func(v *vec) {
		v.push(1, func() {
			inner = h2.Use(func(v *vec) {
				v.push(2, func() {})
			})
		})
	})

	value, _ := h2.Get()
	report.detailf("outer borrow: %v", outer)
	report.detailf("inner borrow: %v", inner)
	report.detailf("vector holds %v", value.items)

	report.Passed = outer == nil && errors.Is(inner, checked.ErrBorrowConflict) && len(value.items) == 1
	return report
}
