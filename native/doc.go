// Package native binds the libevemu shared library.
//
// Load opens the library by explicit path and resolves its entry points with
// purego, so no cgo toolchain is required:
//
//	lib, err := native.Load("/usr/lib/x86_64-linux-gnu/libevemu.so.3")
//	if err != nil {
//	    log.Fatal(err) // *errors.MissingSymbolsError lists every absent entry point
//	}
//	defer lib.Close()
//
//	dev := lib.New("My Special Device")
//	defer lib.Delete(dev)
//
// The Evemu interface mirrors the native functions one to one and returns
// status values untranslated. Translating statuses into errors and owning
// device pointers is the job of package device.
//
// Streams are libc FILE pointers created with fdopen on a descriptor the
// caller hands over; the stream owns that descriptor and CloseStream closes it.
package native
