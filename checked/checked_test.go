package checked

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/martinjungblut/imp/observe"
)

func AssertPanic(body func(), message string, t *testing.T) {
	t.Helper()
	panicked := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
			}
		}()

		body()
	}()

	if !panicked {
		t.Fatal(message)
	}
}

func AssertConflict(err error, t *testing.T) {
	t.Helper()

	if !errors.Is(err, ErrBorrowConflict) {
		t.Fatalf("Expected a borrow conflict, got: '%v'.", err)
	}
}

// Counter is used by the test suite to observe state mutations.
type Counter struct {
	Value int
}

func (this *Counter) IncByReference() {
	this.Value++
}

// Vec caches its backing array while 'during' runs; see Push.
type Vec struct {
	Items []int
}

func (this *Vec) Push(value int, during func()) {
	items := this.Items
	if len(items) == cap(items) {
		grown := make([]int, len(items), 2*cap(items)+1)
		copy(grown, items)
		items = grown
	}
	items = items[:len(items)+1]

	during()

	items[len(items)-1] = value
	this.Items = items
}

func Test_Handle_New_Get(t *testing.T) {
	handle := New(Counter{Value: 3})

	value, err := handle.Get()
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(Counter{Value: 3}, value); diff != "" {
		t.Error(diff)
	}
}

func Test_Handle_Clone_Shares_Mutation(t *testing.T) {
	h1 := New("")
	h2, err := h1.Clone()
	if err != nil {
		t.Fatal(err)
	}

	if err := h1.Use(func(value *string) { *value += "yoo" }); err != nil {
		t.Fatal(err)
	}

	value, _ := h2.Get()
	if value != "yoo" {
		t.Errorf("Value should be 'yoo', but instead it was: '%s'.", value)
	}
}

func Test_Handle_Same(t *testing.T) {
	h1 := New(0)
	h2, _ := h1.Clone()
	h3 := New(0)

	if !Same(h1, h2) || !h1.Is(h2) {
		t.Error("A clone should be identical to its original.")
	}

	if Same(h1, h3) {
		t.Error("Equal values in distinct storage should not be identical.")
	}
}

func Test_Handle_Shared_Borrows_Coexist(t *testing.T) {
	handle := New(1)
	clone, _ := handle.Clone()

	a, err := handle.Borrow()
	if err != nil {
		t.Fatal(err)
	}
	b, err := clone.Borrow()
	if err != nil {
		t.Fatal(err)
	}

	if a.Get() != 1 || b.Get() != 1 {
		t.Error("Both borrows should read the value.")
	}

	a.Release()
	b.Release()

	if handle.IsBorrowed() {
		t.Error("No borrow should be live.")
	}
}

func Test_Handle_BorrowMut_Is_Exclusive(t *testing.T) {
	handle := New(0)
	clone, _ := handle.Clone()

	ref, err := handle.BorrowMut()
	if err != nil {
		t.Fatal(err)
	}

	if !clone.IsMutablyBorrowed() {
		t.Error("The clone should observe the mutable borrow.")
	}

	_, err = clone.BorrowMut()
	AssertConflict(err, t)

	_, err = clone.Borrow()
	AssertConflict(err, t)

	*ref.Value() = 5
	ref.Release()
	ref.Release()

	mut, err := clone.BorrowMut()
	if err != nil {
		t.Fatalf("Borrowing after release should succeed: '%v'.", err)
	}
	if *mut.Value() != 5 {
		t.Error("The write should be visible through the clone.")
	}
	mut.Release()
}

func Test_Handle_BorrowMut_While_Borrowed(t *testing.T) {
	handle := New(0)

	ref, _ := handle.Borrow()
	_, err := handle.BorrowMut()
	AssertConflict(err, t)

	ref.Release()
	if _, err := handle.BorrowMut(); err != nil {
		t.Errorf("Borrowing after release should succeed: '%v'.", err)
	}
}

func Test_Handle_Released_Borrow_Panics(t *testing.T) {
	handle := New(0)

	ref, _ := handle.Borrow()
	ref.Release()
	AssertPanic(func() {
		ref.Get()
	}, "Get() on a released borrow should have caused a panic.", t)

	mut, _ := handle.BorrowMut()
	mut.Release()
	AssertPanic(func() {
		mut.Value()
	}, "Value() on a released borrow should have caused a panic.", t)

	AssertPanic(func() {
		RefMut[int]{}.Value()
	}, "Value() on a zero-value borrow should have caused a panic.", t)
}

func Test_Handle_Use_Inside_Use_Conflicts(t *testing.T) {
	handle := New(Counter{})
	var inner error

	outer := handle.Use(func(counter *Counter) {
		inner = handle.Use(func(counter *Counter) {
			counter.IncByReference()
		})
		counter.IncByReference()
	})

	if outer != nil {
		t.Fatal(outer)
	}
	AssertConflict(inner, t)

	value, _ := handle.Get()
	if value.Value != 1 {
		t.Errorf("Only the outer Use() should have mutated, value: '%d'.", value.Value)
	}
}

func Test_Handle_Read_Inside_Read_Allowed(t *testing.T) {
	handle := New(0)
	var inner error

	outer := handle.Read(func(int) {
		inner = handle.Read(func(int) {})
	})

	if outer != nil || inner != nil {
		t.Error("Read() should be allowed inside Read().")
	}
}

func Test_Handle_Use_Releases_On_Panic(t *testing.T) {
	handle := New(0)

	AssertPanic(func() {
		handle.Use(func(*int) {
			panic("boom")
		})
	}, "The handler's panic should propagate.", t)

	if handle.IsBorrowed() {
		t.Error("Use() should release its borrow on every exit path.")
	}
}

func Test_Handle_Interleaved_Mutation_Is_Refused(t *testing.T) {
	h1 := New(Vec{})
	h2, _ := h1.Clone()
	var inner error

	err := h1.Use(func(vec *Vec) {
		vec.Push(1, func() {
			inner = h2.Use(func(vec *Vec) {
				vec.Push(2, func() {})
			})
		})
	})
	if err != nil {
		t.Fatal(err)
	}

	AssertConflict(inner, t)

	value, _ := h2.Get()
	if diff := cmp.Diff([]int{1}, value.Items); diff != "" {
		t.Error(diff)
	}
}

func Test_Handle_Swap_Set(t *testing.T) {
	handle := New(10)

	if err := handle.Swap(func(i int) int { return i * 2 }); err != nil {
		t.Fatal(err)
	}
	if value, _ := handle.Get(); value != 20 {
		t.Errorf("Value should be 20, but instead it was: '%d'.", value)
	}

	if err := handle.Set(1); err != nil {
		t.Fatal(err)
	}
	if value, _ := handle.Get(); value != 1 {
		t.Errorf("Value should be 1, but instead it was: '%d'.", value)
	}
}

func Test_Handle_Dropped(t *testing.T) {
	handle := New(0)
	clone, _ := handle.Clone()
	handle.Drop()

	if _, err := handle.Get(); !errors.Is(err, ErrDropped) {
		t.Errorf("Expected ErrDropped, got: '%v'.", err)
	}

	if _, err := handle.Clone(); !errors.Is(err, ErrDropped) {
		t.Errorf("Expected ErrDropped, got: '%v'.", err)
	}

	if value, err := clone.Get(); err != nil || value != 0 {
		t.Error("The clone should still be usable.")
	}
}

func Test_Handle_Zero_Value(t *testing.T) {
	var handle Handle[int]

	if _, err := handle.BorrowMut(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got: '%v'.", err)
	}

	if handle.IsBorrowed() || handle.Name() != "" {
		t.Error("A zero-value handle has no state.")
	}
}

func Test_Handle_Teardown_Runs_Once(t *testing.T) {
	teardowns := 0
	h1 := New(0, OnRelease(func(*int) {
		teardowns++
	}))
	h2, _ := h1.Clone()

	h1.Drop()
	if teardowns != 0 {
		t.Fatal("Teardown ran before the last handle was dropped.")
	}

	h2.Drop()
	h2.Drop()
	if teardowns != 1 {
		t.Errorf("Teardown should run exactly once, but ran %d times.", teardowns)
	}
}

func Test_Group_Conflict_Event(t *testing.T) {
	events := []observe.Event{}

	group := NewGroup[int]("group-1")
	group.OnEvent(func(event observe.Event) {
		events = append(events, event)
	})

	handle := group.New("checked-1", 0)
	handle.Use(func(*int) {
		handle.Read(func(int) {})
	})

	kinds := []observe.Kind{}
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}

	if diff := cmp.Diff([]observe.Kind{observe.Construct, observe.Conflict}, kinds); diff != "" {
		t.Fatal(diff)
	}

	conflict := events[1]
	if conflict.Group != "group-1" || conflict.Handle != "checked-1" {
		t.Errorf("Unexpected conflict event: '%+v'.", conflict)
	}
	AssertConflict(conflict.Err, t)

	if handle.Name() != "checked-1" {
		t.Errorf("Name should be 'checked-1', but instead it was: '%s'.", handle.Name())
	}

	handle.Drop()
}

func Test_Named_Error_Message(t *testing.T) {
	handle := New(0, Named[int]("config"))

	mut, _ := handle.BorrowMut()
	defer mut.Release()

	_, err := handle.Borrow()
	if err == nil || err.Error() != `handle "config" is mutably borrowed: checked: borrow conflict` {
		t.Errorf("Unexpected error message: '%v'.", err)
	}
}
