// Package device owns libevemu device pointers.
//
// Wrapper is the owning handle. It starts Unbound, becomes Bound after a
// successful New and returns to Unbound on Close. Calls that need a device
// fail with errors.ErrUnbound before touching native code:
//
//	w := device.NewWrapper(lib)
//	defer w.Close()
//
//	if err := w.New("touchpad"); err != nil {
//	    return err
//	}
//	if err := w.Extract("/dev/input/event5"); err != nil {
//	    return err
//	}
//	w.WriteTo(os.Stdout)
//
// Attributes is a borrowed, read-only view over a pointer for the
// evemu_get_* and evemu_has_* getters. Info gathers all of them at once and
// names axes and properties with the kernel's identifiers.
//
// File arguments are handed to native code as libc FILE streams opened on a
// duplicate descriptor, so the caller's *os.File stays valid afterwards.
package device
