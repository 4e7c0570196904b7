package device

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/native"
)

// EVIOCSCLOCKID, _IOW('E', 0xa0, int).
const eviocsclockid = 0x400445a0

// openStream wraps a duplicate of fd in a FILE stream. The caller keeps fd;
// closing the stream closes only the duplicate.
func openStream(api native.Stdio, fd int, mode string) (native.Stream, error) {
	dup, err := unix.Dup(fd)
	if err != nil {
		return 0, errors.IO("dup", "", err)
	}
	fp := api.OpenStream(uintptr(dup), mode)
	if fp == 0 {
		_ = unix.Close(dup)
		return 0, errors.New(errors.PhaseNative, errors.KindNullPointer).
			Op("fdopen").
			Detail("cannot open %q stream", mode).
			Build()
	}
	return fp, nil
}

func closeStream(api native.Stdio, fp native.Stream) error {
	if ret := api.CloseStream(fp); ret != 0 {
		return errors.NativeStatus("fclose", "", ret)
	}
	return nil
}

// withStream runs fn with a stream over f and always closes the stream.
func withStream(api native.Stdio, f *os.File, mode string, fn func(native.Stream) error) error {
	fp, err := openStream(api, int(f.Fd()), mode)
	if err != nil {
		return err
	}
	err = fn(fp)
	return errors.Join(err, closeStream(api, fp))
}

// spool runs fn against a write stream and delivers the output to out.
// An *os.File receives the output directly, which keeps long recordings on
// disk as they happen; any other writer is fed from a temporary file.
func spool(api native.Stdio, out io.Writer, fn func(native.Stream) error) (int64, error) {
	if f, ok := out.(*os.File); ok {
		start, serr := f.Seek(0, io.SeekCurrent)
		err := withStream(api, f, "a", fn)
		if serr != nil {
			return 0, err
		}
		end, eerr := f.Seek(0, io.SeekEnd)
		if eerr != nil {
			return 0, err
		}
		return end - start, err
	}

	tmp, err := os.CreateTemp("", "evemu-spool-*")
	if err != nil {
		return 0, errors.IO("spool", "", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := withStream(api, tmp, "w", fn); err != nil {
		return 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, errors.IO("spool", tmp.Name(), err)
	}
	n, err := io.Copy(out, tmp)
	if err != nil {
		return n, errors.IO("spool", tmp.Name(), err)
	}
	return n, nil
}

// openNode opens an evdev or uinput node without the Go poller so the raw
// descriptor can be handed to native code.
func openNode(op, path string, flags int) (int, error) {
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, errors.IO(op, path, err)
	}
	return fd, nil
}

// useMonotonicClock asks evdev to timestamp events on fd with
// CLOCK_MONOTONIC, as recordings expect. Older kernels lack the ioctl.
func useMonotonicClock(fd int) error {
	return unix.IoctlSetPointerInt(fd, eviocsclockid, unix.CLOCK_MONOTONIC)
}
