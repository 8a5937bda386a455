package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(TypeView, "text")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "text" {
		t.Fatalf("Expected 'text', got %v", val)
	}

	if _, ok = table.GetTyped(h, TypeView); !ok {
		t.Fatal("GetTyped with correct type failed")
	}

	if _, ok = table.GetTyped(h, TypeRoot); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	if _, ok = table.RemoveTyped(h, TypeRoot); ok {
		t.Fatal("RemoveTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "text" {
		t.Fatalf("Expected 'text', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(TypeRoot, "root")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Fatalf("unexpected event %+v", obs.events[0])
	}

	table.Borrow(h)
	table.ReturnBorrow(h)
	if len(obs.events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventBorrowed || obs.events[2].Type != EventBorrowReturned {
		t.Fatal("Expected borrow events")
	}

	table.Remove(h)
	if len(obs.events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(obs.events))
	}
	if obs.events[3].Type != EventDropped || obs.events[3].TypeID != TypeRoot {
		t.Fatal("Expected EventDropped for root")
	}

	table.Unsubscribe(obs)
	table.Insert(TypeRoot, "again")
	if len(obs.events) != 4 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestUnifiedTable_ClearReverseOrder(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}

	a := table.Insert(TypeView, "a")
	b := table.Insert(TypeView, "b")
	c := table.Insert(TypeView, "c")
	table.Subscribe(obs)

	table.Clear()

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
	want := []Handle{c, b, a}
	if len(obs.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(obs.events), len(want))
	}
	for i, h := range want {
		if obs.events[i].Handle != h {
			t.Errorf("event %d dropped %d, want %d", i, obs.events[i].Handle, h)
		}
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()

	table.Insert(TypeView, "a")
	table.Insert(TypeView, "b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if h := table.Insert(TypeView, "c"); h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestUnifiedTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h := table.Insert(TypeView, d)
	table.Remove(h)
	table.Remove(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestUnifiedTable_BorrowBlocksRemove(t *testing.T) {
	table := NewTable()
	h := table.Insert(TypeRoot, "root")

	if !table.Borrow(h) {
		t.Fatal("Borrow failed")
	}
	if !table.Borrowed(h) {
		t.Fatal("Borrowed should be true")
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("Remove must fail while borrowed")
	}
	table.ReturnBorrow(h)
	if _, ok := table.Remove(h); !ok {
		t.Fatal("Remove should succeed after ReturnBorrow")
	}
}

func TestTypedTable(t *testing.T) {
	table := NewTable()
	roots := NewTyped[*string](table, TypeRoot)
	views := NewTyped[*string](table, TypeView)

	r, v := "root", "view"
	rh := roots.Insert(&r)
	vh := views.Insert(&v)

	if got, ok := roots.Get(rh); !ok || *got != "root" {
		t.Fatalf("roots.Get = %v, %v", got, ok)
	}
	if _, ok := roots.Get(vh); ok {
		t.Fatal("typed table must reject handles of another type")
	}
	if roots.Len() != 1 || views.Len() != 1 {
		t.Fatalf("Len roots=%d views=%d", roots.Len(), views.Len())
	}

	var seen []Handle
	views.Each(func(h Handle, s *string) bool {
		seen = append(seen, h)
		return true
	})
	if len(seen) != 1 || seen[0] != vh {
		t.Fatalf("Each = %v", seen)
	}

	if _, ok := views.Remove(rh); ok {
		t.Fatal("Remove across types must fail")
	}
	if _, ok := views.Remove(vh); !ok {
		t.Fatal("Remove failed")
	}
}

func TestCounter(t *testing.T) {
	table := NewTable()
	c := NewCounter()
	table.Subscribe(c)

	h1 := table.Insert(TypeView, "a")
	table.Insert(TypeView, "b")
	table.Insert(TypeRoot, "r")
	table.Remove(h1)

	if c.Created(TypeView) != 2 || c.Dropped(TypeView) != 1 || c.Live(TypeView) != 1 {
		t.Fatalf("view counts created=%d dropped=%d live=%d",
			c.Created(TypeView), c.Dropped(TypeView), c.Live(TypeView))
	}
	if c.Live(TypeRoot) != 1 {
		t.Fatalf("root live = %d", c.Live(TypeRoot))
	}
}
