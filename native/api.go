package native

import "golang.org/x/sys/unix"

// Device is an opaque struct evemu_device pointer. Zero is NULL.
type Device uintptr

// Stream is an opaque libc FILE pointer. Zero is NULL.
type Stream uintptr

// InputEvent mirrors the kernel's struct input_event.
type InputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Evemu is the libevemu entry point table. Each method maps to exactly one
// native function; status values are returned untranslated.
type Evemu interface {
	New(name string) Device
	Delete(dev Device)
	Extract(dev Device, fd uintptr) int32
	Write(dev Device, fp Stream) int32
	Read(dev Device, fp Stream) int32
	WriteEvent(fp Stream, ev *InputEvent) int32
	Record(fp Stream, fd uintptr, ms int32) int32
	ReadEvent(fp Stream, ev *InputEvent) int32
	Play(fp Stream, fd uintptr) int32
	Create(dev Device, fd uintptr) int32
	Destroy(dev Device, fd uintptr)

	Version(dev Device) uint32
	Name(dev Device) string
	IDBustype(dev Device) uint32
	IDVendor(dev Device) uint32
	IDProduct(dev Device) uint32
	IDVersion(dev Device) uint32
	AbsMinimum(dev Device, code int32) int32
	AbsMaximum(dev Device, code int32) int32
	AbsFuzz(dev Device, code int32) int32
	AbsFlat(dev Device, code int32) int32
	AbsResolution(dev Device, code int32) int32
	HasProp(dev Device, code int32) int32
	HasEvent(dev Device, typ, code int32) int32
}

// Stdio is the subset of libc stdio needed to hand FILE pointers to libevemu.
type Stdio interface {
	// OpenStream wraps fd with fdopen. The stream owns fd afterwards.
	OpenStream(fd uintptr, mode string) Stream
	CloseStream(fp Stream) int32
	FlushStream(fp Stream) int32
	// LineBuffer switches fp to line buffering so every recorded event
	// reaches the file as soon as it is written.
	LineBuffer(fp Stream) int32
}

// API is everything the device layer needs from the native side.
type API interface {
	Evemu
	Stdio
}

// Symbols lists the libevemu entry points that must resolve for Load to succeed.
func Symbols() []string {
	names := make([]string, len(evemuSymbols))
	copy(names, evemuSymbols)
	return names
}

var evemuSymbols = []string{
	"evemu_new",
	"evemu_delete",
	"evemu_extract",
	"evemu_write",
	"evemu_read",
	"evemu_write_event",
	"evemu_record",
	"evemu_read_event",
	"evemu_play",
	"evemu_create",
	"evemu_destroy",
	// device attribute getters
	"evemu_get_version",
	"evemu_get_name",
	"evemu_get_id_bustype",
	"evemu_get_id_vendor",
	"evemu_get_id_product",
	"evemu_get_id_version",
	"evemu_get_abs_minimum",
	"evemu_get_abs_maximum",
	"evemu_get_abs_fuzz",
	"evemu_get_abs_flat",
	"evemu_get_abs_resolution",
	"evemu_has_prop",
	"evemu_has_event",
}

var stdioSymbols = []string{
	"fdopen",
	"fclose",
	"fflush",
	"setvbuf",
}

// Event types and codes used when synthesizing events.
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03

	SynReport = 0x00
	RelX      = 0x00
	RelY      = 0x01

	AbsMax       = 0x3f
	InputPropMax = 0x1f
)
