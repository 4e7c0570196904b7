// Package evemu is a Go binding for libevemu, the kernel input device
// emulation library.
//
// libevemu does the real work: it describes evdev devices, records their
// events, creates virtual devices through uinput and replays recordings into
// them. This module loads the library, owns the device pointers it hands out
// and turns its status codes into errors.
//
// # Architecture Overview
//
//	evemu/          EvEmu facade: describe, create, record, play
//	├── native/     purego binding of libevemu and libc stdio
//	├── device/     Wrapper (owning device handle) and Attributes
//	├── session/    multi-device recording file format
//	├── inputdev/   /dev/input discovery with go-evdev
//	├── config/     library location and record options
//	├── resource/   table of live native allocations
//	├── errors/     structured error types
//	└── cmd/evemu/  command line tool
//
// # Quick Start
//
// The library path is always explicit:
//
//	cfg := config.FromEnv().WithLibrary("/usr/lib/x86_64-linux-gnu/libevemu.so.3")
//	emu, err := evemu.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emu.Close()
//
//	// Print a device description.
//	emu.Describe("/dev/input/event5", os.Stdout)
//
//	// Create a virtual copy and replay a recording into it.
//	if _, err := emu.CreateDevice("touchpad.desc"); err != nil {
//	    log.Fatal(err)
//	}
//	emu.Play("touchpad.events")
//
// # Ownership
//
// Every device pointer belongs to exactly one device.Wrapper and is freed
// when the wrapper is closed or bound again. EvEmu tracks its wrappers and
// virtual devices in a resource.Table, so Close releases all of them, the
// newest first.
//
// # Errors
//
// Misuse, such as calling a device method before New, fails before any
// native call with a usage error (see errors.IsUsage). Native failures carry
// the entry point name, the status code and, where the status encodes one,
// the errno as the cause.
package evemu
