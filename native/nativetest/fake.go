// Package nativetest provides an in-memory implementation of native.API for
// tests that must run without libevemu installed.
//
// The fake speaks a small subset of the evemu text format: descriptions are
// "N:" and "I:" lines, events are "E:" lines.
package nativetest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wippyai/evemu/native"
)

// Abs is one absolute axis of a fake device.
type Abs struct {
	Minimum, Maximum, Fuzz, Flat, Resolution int32
}

// DeviceState is the content behind a fake device pointer.
type DeviceState struct {
	Abs       map[int32]Abs
	Props     map[int32]bool
	Events    map[[2]int32]bool
	Name      string
	Version   uint32
	Bustype   uint32
	Vendor    uint32
	Product   uint32
	IDVersion uint32
	Created   bool
	Destroyed bool
	Deleted   bool
}

type stream struct {
	file   *os.File
	reader *bufio.Reader
	mode   string
}

// Fake implements native.API. Configure the exported fields before use.
type Fake struct {
	// Template is copied into a device by Extract.
	Template DeviceState

	// RecordLines are written by Record, one "E:" line each.
	RecordLines []string

	// Status overrides the status returned by the named entry point.
	Status map[string]int32

	// RejectNew makes New return NULL.
	RejectNew bool

	devices map[native.Device]*DeviceState
	streams map[native.Stream]*stream

	// Played collects the event lines consumed by Play, per target fd.
	Played map[uintptr][]string

	calls    []string
	nextDev  native.Device
	nextFile native.Stream
	mu       sync.Mutex
}

var _ native.API = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Status:   make(map[string]int32),
		devices:  make(map[native.Device]*DeviceState),
		streams:  make(map[native.Stream]*stream),
		Played:   make(map[uintptr][]string),
		nextDev:  0x1000,
		nextFile: 0x9000,
	}
}

// Calls returns the entry points invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Called reports whether the named entry point was invoked.
func (f *Fake) Called(name string) bool {
	for _, c := range f.Calls() {
		if c == name {
			return true
		}
	}
	return false
}

// Device returns the state behind ptr, including deleted devices.
func (f *Fake) Device(ptr native.Device) (*DeviceState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[ptr]
	return d, ok
}

// Live returns the number of devices not yet deleted.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.devices {
		if !d.Deleted {
			n++
		}
	}
	return n
}

// OpenStreams returns the number of streams not yet closed.
func (f *Fake) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *Fake) record(name string) (int32, bool) {
	f.calls = append(f.calls, name)
	st, ok := f.Status[name]
	return st, ok
}

func (f *Fake) dev(ptr native.Device) *DeviceState {
	d, ok := f.devices[ptr]
	if !ok || d.Deleted {
		panic(fmt.Sprintf("nativetest: use of invalid device pointer %#x", uintptr(ptr)))
	}
	return d
}

func (f *Fake) New(name string) native.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "evemu_new")
	if f.RejectNew {
		return 0
	}
	f.nextDev += 0x100
	f.devices[f.nextDev] = &DeviceState{Name: name}
	return f.nextDev
}

func (f *Fake) Delete(dev native.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "evemu_delete")
	f.dev(dev).Deleted = true
}

func (f *Fake) Extract(dev native.Device, fd uintptr) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_extract"); ok {
		return st
	}
	d := f.dev(dev)
	*d = f.Template
	return 0
}

func (f *Fake) Write(dev native.Device, fp native.Stream) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_write"); ok {
		return st
	}
	d := f.dev(dev)
	s := f.streams[fp]
	_, err := fmt.Fprintf(s.file, "N: %s\nI: %04x %04x %04x %04x\n",
		d.Name, d.Bustype, d.Vendor, d.Product, d.IDVersion)
	if err != nil {
		return -5
	}
	return 0
}

func (f *Fake) Read(dev native.Device, fp native.Stream) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_read"); ok {
		return st
	}
	d := f.dev(dev)
	s := f.streams[fp]
	parsed := int32(0)
	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "N: "):
			d.Name = strings.TrimPrefix(line, "N: ")
			parsed++
		case strings.HasPrefix(line, "I: "):
			var bus, vendor, product, version uint32
			if _, serr := fmt.Sscanf(line, "I: %x %x %x %x", &bus, &vendor, &product, &version); serr == nil {
				d.Bustype, d.Vendor, d.Product, d.IDVersion = bus, vendor, product, version
				parsed++
			}
		}
		if err != nil {
			break
		}
	}
	return parsed
}

func (f *Fake) WriteEvent(fp native.Stream, ev *native.InputEvent) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_write_event"); ok {
		return st
	}
	s := f.streams[fp]
	n, err := fmt.Fprintln(s.file, FormatEvent(*ev))
	if err != nil {
		return -5
	}
	return int32(n)
}

func (f *Fake) Record(fp native.Stream, fd uintptr, ms int32) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_record"); ok {
		return st
	}
	s := f.streams[fp]
	for _, line := range f.RecordLines {
		if _, err := fmt.Fprintln(s.file, line); err != nil {
			return -5
		}
	}
	return 0
}

func (f *Fake) ReadEvent(fp native.Stream, ev *native.InputEvent) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_read_event"); ok {
		return st
	}
	s := f.streams[fp]
	for {
		line, err := s.reader.ReadString('\n')
		if parsed, ok := ParseEvent(strings.TrimSpace(line)); ok {
			*ev = parsed
			return 1
		}
		if err != nil {
			return 0
		}
	}
}

func (f *Fake) Play(fp native.Stream, fd uintptr) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_play"); ok {
		return st
	}
	s := f.streams[fp]
	for {
		line, err := s.reader.ReadString('\n')
		if _, ok := ParseEvent(strings.TrimSpace(line)); ok {
			f.Played[fd] = append(f.Played[fd], strings.TrimSpace(line))
		}
		if err != nil {
			return 0
		}
	}
}

func (f *Fake) Create(dev native.Device, fd uintptr) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("evemu_create"); ok {
		return st
	}
	f.dev(dev).Created = true
	return 0
}

func (f *Fake) Destroy(dev native.Device, fd uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "evemu_destroy")
	f.dev(dev).Destroyed = true
}

func (f *Fake) getter(name string, dev native.Device) *DeviceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.dev(dev)
}

func (f *Fake) Version(dev native.Device) uint32 {
	return f.getter("evemu_get_version", dev).Version
}

func (f *Fake) Name(dev native.Device) string {
	return f.getter("evemu_get_name", dev).Name
}

func (f *Fake) IDBustype(dev native.Device) uint32 {
	return f.getter("evemu_get_id_bustype", dev).Bustype
}

func (f *Fake) IDVendor(dev native.Device) uint32 {
	return f.getter("evemu_get_id_vendor", dev).Vendor
}

func (f *Fake) IDProduct(dev native.Device) uint32 {
	return f.getter("evemu_get_id_product", dev).Product
}

func (f *Fake) IDVersion(dev native.Device) uint32 {
	return f.getter("evemu_get_id_version", dev).IDVersion
}

func (f *Fake) AbsMinimum(dev native.Device, code int32) int32 {
	return f.getter("evemu_get_abs_minimum", dev).Abs[code].Minimum
}

func (f *Fake) AbsMaximum(dev native.Device, code int32) int32 {
	return f.getter("evemu_get_abs_maximum", dev).Abs[code].Maximum
}

func (f *Fake) AbsFuzz(dev native.Device, code int32) int32 {
	return f.getter("evemu_get_abs_fuzz", dev).Abs[code].Fuzz
}

func (f *Fake) AbsFlat(dev native.Device, code int32) int32 {
	return f.getter("evemu_get_abs_flat", dev).Abs[code].Flat
}

func (f *Fake) AbsResolution(dev native.Device, code int32) int32 {
	return f.getter("evemu_get_abs_resolution", dev).Abs[code].Resolution
}

func (f *Fake) HasProp(dev native.Device, code int32) int32 {
	if f.getter("evemu_has_prop", dev).Props[code] {
		return 1
	}
	return 0
}

func (f *Fake) HasEvent(dev native.Device, typ, code int32) int32 {
	d := f.getter("evemu_has_event", dev)
	if d.Events[[2]int32{typ, code}] {
		return 1
	}
	if typ == native.EvAbs {
		if _, ok := d.Abs[code]; ok {
			return 1
		}
	}
	return 0
}

func (f *Fake) OpenStream(fd uintptr, mode string) native.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.record("fdopen"); ok && st != 0 {
		return 0
	}
	file := os.NewFile(fd, "fake-stream")
	if file == nil {
		return 0
	}
	f.nextFile += 0x10
	f.streams[f.nextFile] = &stream{file: file, reader: bufio.NewReader(file), mode: mode}
	return f.nextFile
}

func (f *Fake) CloseStream(fp native.Stream) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "fclose")
	s, ok := f.streams[fp]
	if !ok {
		return -1
	}
	delete(f.streams, fp)
	if err := s.file.Close(); err != nil {
		return -1
	}
	return 0
}

func (f *Fake) FlushStream(fp native.Stream) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "fflush")
	if _, ok := f.streams[fp]; !ok {
		return -1
	}
	return 0
}

func (f *Fake) LineBuffer(fp native.Stream) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "setvbuf")
	return 0
}

// FormatEvent renders ev the way evemu writes "E:" lines.
func FormatEvent(ev native.InputEvent) string {
	return fmt.Sprintf("E: %d.%06d %04x %04x %d",
		ev.Time.Sec, ev.Time.Usec, ev.Type, ev.Code, ev.Value)
}

// ParseEvent parses one "E:" line.
func ParseEvent(line string) (native.InputEvent, bool) {
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != "E:" {
		return native.InputEvent{}, false
	}
	sec, usec, ok := strings.Cut(fields[1], ".")
	if !ok {
		return native.InputEvent{}, false
	}
	var ev native.InputEvent
	s, err1 := strconv.ParseInt(sec, 10, 64)
	u, err2 := strconv.ParseInt(usec, 10, 64)
	typ, err3 := strconv.ParseUint(fields[2], 16, 16)
	code, err4 := strconv.ParseUint(fields[3], 16, 16)
	val, err5 := strconv.ParseInt(fields[4], 10, 32)
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return native.InputEvent{}, false
		}
	}
	ev.Time = unix.NsecToTimeval(s*1e9 + u*1e3)
	ev.Type = uint16(typ)
	ev.Code = uint16(code)
	ev.Value = int32(val)
	return ev, true
}
