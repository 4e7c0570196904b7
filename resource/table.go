package resource

import (
	"sync"

	"github.com/wippyai/evemu/errors"
)

// Table tracks live native allocations so that every one of them is released
// exactly once, whichever path the owner exits through.
type Table struct {
	slots     *slots
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		slots: newSlots(),
	}
}

// Insert tracks value and returns its handle. A closed table drops value
// immediately and returns 0 with ErrClosed.
func (t *Table) Insert(kind Kind, value Dropper) (Handle, error) {
	t.closeMu.RLock()
	closed := t.closed
	t.closeMu.RUnlock()
	if closed {
		return 0, errors.Join(errors.Closed("resource table"), value.Drop())
	}

	handle := t.slots.create(kind, value)

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (Dropper, bool) {
	e, ok := t.slots.get(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetKind retrieves a value only if it was inserted with kind.
func (t *Table) GetKind(handle Handle, kind Kind) (Dropper, bool) {
	e, ok := t.slots.get(handle)
	if !ok || e.kind != kind {
		return nil, false
	}
	return e.value, true
}

// Remove stops tracking handle and drops its value. Unknown handles are a
// no-op and report false.
func (t *Table) Remove(handle Handle) (bool, error) {
	e, ok := t.slots.take(handle)
	if !ok {
		return false, nil
	}

	err := e.value.Drop()

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Kind:   e.kind,
		Value:  e.value,
		Err:    err,
	})

	return true, err
}

// Forget stops tracking handle without dropping its value; ownership passes
// back to the caller.
func (t *Table) Forget(handle Handle) (Dropper, bool) {
	e, ok := t.slots.take(handle)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of tracked values.
func (t *Table) Len() int {
	return t.slots.len()
}

// Each visits tracked values, newest first, until fn returns false.
func (t *Table) Each(fn func(Handle, Kind, Dropper) bool) {
	for _, h := range t.slots.newestFirst() {
		e, ok := t.slots.get(h)
		if !ok {
			continue
		}
		if !fn(h, e.kind, e.value) {
			return
		}
	}
}

// Clear drops every tracked value, newest first, and returns the joined
// drop errors.
func (t *Table) Clear() error {
	var errs []error
	for _, h := range t.slots.newestFirst() {
		if _, err := t.Remove(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close drops everything and stops accepting new values.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.Clear()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
