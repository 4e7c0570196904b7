package resource

import (
	"errors"
	"testing"

	everr "github.com/wippyai/evemu/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type testValue struct {
	name  string
	log   *[]string
	err   error
	drops int
}

func (v *testValue) Drop() error {
	v.drops++
	if v.log != nil {
		*v.log = append(*v.log, v.name)
	}
	return v.err
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()
	v := &testValue{name: "a"}

	h, err := table.Insert(KindDevice, v)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	got, ok := table.Get(h)
	if !ok || got != v {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	if _, ok := table.GetKind(h, KindDevice); !ok {
		t.Fatal("GetKind with correct kind failed")
	}
	if _, ok := table.GetKind(h, KindStream); ok {
		t.Fatal("GetKind with wrong kind should fail")
	}

	removed, err := table.Remove(h)
	if !removed || err != nil {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if v.drops != 1 {
		t.Fatalf("Expected one Drop, got %d", v.drops)
	}

	removed, _ = table.Remove(h)
	if removed {
		t.Fatal("Second Remove should report false")
	}
	if v.drops != 1 {
		t.Fatal("Second Remove must not drop again")
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if _, ok := table.Get(0); ok {
		t.Fatal("Handle 0 must be invalid")
	}
}

func TestTable_HandleReuse(t *testing.T) {
	table := NewTable()
	h1, _ := table.Insert(KindDevice, &testValue{})
	table.Remove(h1)
	h2, _ := table.Insert(KindDevice, &testValue{})
	if h1 != h2 {
		t.Fatalf("Expected freed handle %d to be reused, got %d", h1, h2)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	dropErr := errors.New("destroy failed")
	h, _ := table.Insert(KindVirtualDevice, &testValue{err: dropErr})
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated {
		t.Fatalf("Expected EventCreated, got %+v", obs.events)
	}
	if obs.events[0].Handle != h || obs.events[0].Kind != KindVirtualDevice {
		t.Fatal("Wrong handle or kind in event")
	}

	_, err := table.Remove(h)
	if !errors.Is(err, dropErr) {
		t.Fatalf("Remove should return drop error, got %v", err)
	}
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped {
		t.Fatal("Expected EventDropped")
	}
	if !errors.Is(obs.events[1].Err, dropErr) {
		t.Fatal("Dropped event should carry the drop error")
	}

	table.Unsubscribe(obs)
	table.Insert(KindDevice, &testValue{})
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestTable_ClearNewestFirst(t *testing.T) {
	table := NewTable()
	var order []string

	table.Insert(KindDevice, &testValue{name: "a", log: &order})
	table.Insert(KindVirtualDevice, &testValue{name: "b", log: &order})
	table.Insert(KindStream, &testValue{name: "c", log: &order})

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	var seen []Kind
	table.Each(func(h Handle, k Kind, v Dropper) bool {
		seen = append(seen, k)
		return true
	})
	if len(seen) != 3 || seen[0] != KindStream || seen[2] != KindDevice {
		t.Fatalf("Each order = %v", seen)
	}

	if err := table.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
	want := []string{"c", "b", "a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drop order = %v, want %v", order, want)
		}
	}
}

func TestTable_ClearJoinsErrors(t *testing.T) {
	table := NewTable()
	e1 := errors.New("one")
	e2 := errors.New("two")
	table.Insert(KindDevice, &testValue{err: e1})
	table.Insert(KindDevice, &testValue{})
	table.Insert(KindDevice, &testValue{err: e2})

	err := table.Clear()
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("Clear should join drop errors, got %v", err)
	}
}

func TestTable_Forget(t *testing.T) {
	table := NewTable()
	v := &testValue{}
	h, _ := table.Insert(KindDevice, v)

	got, ok := table.Forget(h)
	if !ok || got != v {
		t.Fatal("Forget should return the value")
	}
	if v.drops != 0 {
		t.Fatal("Forget must not drop")
	}
	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if v.drops != 0 {
		t.Fatal("Close must not drop a forgotten value")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	a := &testValue{}
	table.Insert(KindDevice, a)

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.drops != 1 {
		t.Fatal("Close should drop tracked values")
	}

	late := &testValue{}
	h, err := table.Insert(KindDevice, late)
	if h != 0 {
		t.Fatal("Insert after Close should return handle 0")
	}
	if !errors.Is(err, everr.ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if late.drops != 1 {
		t.Fatal("Insert after Close should drop the rejected value")
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindDevice:        "device",
		KindVirtualDevice: "virtual-device",
		KindStream:        "stream",
		Kind(0):           "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
