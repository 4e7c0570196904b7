// Package resource tracks native allocations owned by a facade.
//
// Device pointers, uinput devices and long-lived FILE streams must be released
// with their matching native destructor on every exit path. The Table maps
// integer handles to values implementing Dropper and guarantees each value is
// dropped exactly once: through Remove, or through Clear/Close, which drop
// everything still tracked, newest first.
//
//	table := resource.NewTable()
//	defer table.Close()
//
//	h, err := table.Insert(resource.KindDevice, wrapper)
//	...
//	table.Remove(h) // runs wrapper.Drop()
//
// # Observers
//
// Observers see every creation and drop, including the error a Drop returned:
//
//	table.Subscribe(leakLogger)
//
// # Ownership hand-back
//
// Forget stops tracking a handle without dropping it, for values whose
// ownership moves to the caller.
package resource
