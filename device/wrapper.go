package device

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/native"
)

// Wrapper owns at most one native device pointer and routes device-scoped
// calls to the native library with it.
//
// A Wrapper starts Unbound. New binds it; Close releases the pointer and
// returns it to Unbound. Every device-scoped method fails with an
// errors.ErrUnbound usage error, before any native call, while Unbound.
//
// A Wrapper is not safe for concurrent use.
type Wrapper struct {
	api  native.API
	dev  native.Device
	name string
}

// NewWrapper returns an Unbound wrapper over api.
func NewWrapper(api native.API) *Wrapper {
	return &Wrapper{api: api}
}

// New allocates a native device named name and binds it. A pointer already
// held is released first, but only once the new allocation has succeeded: a
// rejected New leaves the wrapper exactly as it was.
func (w *Wrapper) New(name string) error {
	dev := w.api.New(name)
	if dev == 0 {
		return errors.New(errors.PhaseNative, errors.KindNullPointer).
			Op("evemu_new").
			Value(name).
			Detail("cannot allocate device %q", name).
			Build()
	}

	if w.dev != 0 {
		Logger().Debug("releasing previous device on rebind",
			zap.String("name", w.name),
			zap.Uintptr("ptr", uintptr(w.dev)))
		w.api.Delete(w.dev)
	}

	w.dev = dev
	w.name = name
	Logger().Debug("device bound",
		zap.String("name", name),
		zap.Uintptr("ptr", uintptr(dev)))
	return nil
}

// Bound reports whether a device pointer is held.
func (w *Wrapper) Bound() bool { return w.dev != 0 }

// Pointer returns the held device pointer, or 0 while Unbound.
func (w *Wrapper) Pointer() native.Device { return w.dev }

// Name returns the name passed to the last successful New.
func (w *Wrapper) Name() string { return w.name }

// API returns the native entry points the wrapper calls.
func (w *Wrapper) API() native.API { return w.api }

func (w *Wrapper) require(op string) error {
	if w.dev == 0 {
		return errors.Unbound(op)
	}
	return nil
}

// Read loads a device description file into the bound device.
func (w *Wrapper) Read(path string) error {
	if err := w.require("read"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.IO("read", path, err)
	}
	defer f.Close()

	return withStream(w.api, f, "r", func(fp native.Stream) error {
		if ret := w.api.Read(w.dev, fp); ret <= 0 {
			return errors.NativeStatus("evemu_read", path, ret)
		}
		return nil
	})
}

// Extract fills the bound device from the kernel device node at path.
func (w *Wrapper) Extract(path string) error {
	if err := w.require("extract"); err != nil {
		return err
	}

	fd, err := openNode("extract", path, unix.O_RDONLY|unix.O_NONBLOCK)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if ret := w.api.Extract(w.dev, uintptr(fd)); ret != 0 {
		return errors.NativeStatus("evemu_extract", path, ret)
	}
	return nil
}

// Write stores the bound device's description in the file at path,
// replacing its contents.
func (w *Wrapper) Write(path string) error {
	if err := w.require("write"); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.IO("write", path, err)
	}
	defer f.Close()

	return withStream(w.api, f, "w", func(fp native.Stream) error {
		if ret := w.api.Write(w.dev, fp); ret != 0 {
			return errors.NativeStatus("evemu_write", path, ret)
		}
		return nil
	})
}

// WriteTo writes the bound device's description to out.
func (w *Wrapper) WriteTo(out io.Writer) (int64, error) {
	if err := w.require("write"); err != nil {
		return 0, err
	}

	return spool(w.api, out, func(fp native.Stream) error {
		if ret := w.api.Write(w.dev, fp); ret != 0 {
			return errors.NativeStatus("evemu_write", "", ret)
		}
		return nil
	})
}

// Record copies events arriving on the device node src to out until no
// event has arrived for idle. A negative idle records until the process
// ends; out is line buffered so nothing written is lost.
func (w *Wrapper) Record(src string, out io.Writer, idle time.Duration) error {
	if err := w.require("record"); err != nil {
		return err
	}

	fd, err := openNode("record", src, unix.O_RDONLY|unix.O_NONBLOCK)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if err := useMonotonicClock(fd); err != nil {
		Logger().Debug("monotonic clock unavailable", zap.String("path", src), zap.Error(err))
	}

	ms := int32(-1)
	if idle >= 0 {
		ms = int32(idle.Milliseconds())
	}

	_, err = spool(w.api, out, func(fp native.Stream) error {
		if ret := w.api.LineBuffer(fp); ret != 0 {
			Logger().Debug("setvbuf failed", zap.Int32("status", ret))
		}
		if ret := w.api.Record(fp, uintptr(fd), ms); ret != 0 {
			return errors.NativeStatus("evemu_record", src, ret)
		}
		return nil
	})
	return err
}

// Play replays the events file at path into the device behind targetFD,
// normally a uinput descriptor returned with Create.
func (w *Wrapper) Play(path string, targetFD int) error {
	if err := w.require("play"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.IO("play", path, err)
	}
	defer f.Close()

	return withStream(w.api, f, "r", func(fp native.Stream) error {
		if ret := w.api.Play(fp, uintptr(targetFD)); ret != 0 {
			return errors.NativeStatus("evemu_play", path, ret)
		}
		return nil
	})
}

// Create registers the bound device with the kernel through the open
// uinput descriptor uinputFD.
func (w *Wrapper) Create(uinputFD int) error {
	if err := w.require("create"); err != nil {
		return err
	}
	if ret := w.api.Create(w.dev, uintptr(uinputFD)); ret != 0 {
		return errors.NativeStatus("evemu_create", "", ret)
	}
	return nil
}

// Destroy removes the kernel device previously made with Create.
func (w *Wrapper) Destroy(uinputFD int) error {
	if err := w.require("destroy"); err != nil {
		return err
	}
	w.api.Destroy(w.dev, uintptr(uinputFD))
	return nil
}

// ReadEvents calls fn for each event in the events file at path until the
// file ends or fn returns false.
func (w *Wrapper) ReadEvents(path string, fn func(native.InputEvent) bool) error {
	if err := w.require("read_event"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.IO("read_event", path, err)
	}
	defer f.Close()

	return withStream(w.api, f, "r", func(fp native.Stream) error {
		for {
			var ev native.InputEvent
			ret := w.api.ReadEvent(fp, &ev)
			switch {
			case ret < 0:
				return errors.NativeStatus("evemu_read_event", path, ret)
			case ret == 0:
				return nil
			}
			if !fn(ev) {
				return nil
			}
		}
	})
}

// AppendEvents writes events to the end of the file at path, creating it
// if needed.
func (w *Wrapper) AppendEvents(path string, events []native.InputEvent) error {
	if err := w.require("write_event"); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return errors.IO("write_event", path, err)
	}
	defer f.Close()

	return withStream(w.api, f, "a", func(fp native.Stream) error {
		for i := range events {
			if ret := w.api.WriteEvent(fp, &events[i]); ret < 0 {
				return errors.NativeStatus("evemu_write_event", path, ret)
			}
		}
		return nil
	})
}

// Attributes returns a read-only accessor over the bound device.
func (w *Wrapper) Attributes() (*Attributes, error) {
	if err := w.require("attributes"); err != nil {
		return nil, err
	}
	return NewAttributes(w.api, w.dev)
}

// Close releases the bound device and returns the wrapper to Unbound.
// Closing an Unbound wrapper is a no-op.
func (w *Wrapper) Close() error {
	if w.dev == 0 {
		return nil
	}
	w.api.Delete(w.dev)
	Logger().Debug("device released",
		zap.String("name", w.name),
		zap.Uintptr("ptr", uintptr(w.dev)))
	w.dev = 0
	w.name = ""
	return nil
}

// Drop implements resource.Dropper.
func (w *Wrapper) Drop() error { return w.Close() }
