package native

import (
	"sync"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	"github.com/wippyai/evemu/errors"
)

// LibcName is the shared object the stdio entry points are resolved from.
var LibcName = "libc.so.6"

// glibc setvbuf mode for line buffering.
const ioLineBuffered = 1

// Library is a loaded libevemu together with the libc stdio functions used to
// build FILE streams. It implements API.
//
// A Library is immutable after Load and safe to share; the native calls
// themselves are only as thread-safe as libevemu is for distinct devices.
type Library struct {
	addrs map[string]uintptr
	path  string

	handle uintptr
	libc   uintptr

	closeOnce sync.Once

	evemuNew         func(name string) uintptr
	evemuDelete      func(dev uintptr)
	evemuExtract     func(dev uintptr, fd int32) int32
	evemuWrite       func(dev uintptr, fp uintptr) int32
	evemuRead        func(dev uintptr, fp uintptr) int32
	evemuWriteEvent  func(fp uintptr, ev *InputEvent) int32
	evemuRecord      func(fp uintptr, fd int32, ms int32) int32
	evemuReadEvent   func(fp uintptr, ev *InputEvent) int32
	evemuPlay        func(fp uintptr, fd int32) int32
	evemuCreate      func(dev uintptr, fd int32) int32
	evemuDestroy     func(dev uintptr, fd int32)
	getVersion       func(dev uintptr) uint32
	getName          func(dev uintptr) string
	getIDBustype     func(dev uintptr) uint32
	getIDVendor      func(dev uintptr) uint32
	getIDProduct     func(dev uintptr) uint32
	getIDVersion     func(dev uintptr) uint32
	getAbsMinimum    func(dev uintptr, code int32) int32
	getAbsMaximum    func(dev uintptr, code int32) int32
	getAbsFuzz       func(dev uintptr, code int32) int32
	getAbsFlat       func(dev uintptr, code int32) int32
	getAbsResolution func(dev uintptr, code int32) int32
	hasProp          func(dev uintptr, code int32) int32
	hasEvent         func(dev uintptr, typ, code int32) int32

	fdopen  func(fd int32, mode string) uintptr
	fclose  func(fp uintptr) int32
	fflush  func(fp uintptr) int32
	setvbuf func(fp uintptr, buf uintptr, mode int32, size uintptr) int32
}

var _ API = (*Library)(nil)

// Load opens the shared library at path and resolves every libevemu entry
// point listed by Symbols plus the libc stdio functions. It fails fast: a
// library that cannot be opened yields a load error, and any unresolved entry
// point yields a *errors.MissingSymbolsError naming all of them.
func Load(path string) (*Library, error) {
	if path == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "library path is empty")
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, errors.Load(path, err)
	}

	libc, err := purego.Dlopen(LibcName, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		_ = purego.Dlclose(handle)
		return nil, errors.Load(LibcName, err)
	}

	l := &Library{
		addrs:  make(map[string]uintptr, len(evemuSymbols)+len(stdioSymbols)),
		path:   path,
		handle: handle,
		libc:   libc,
	}

	var missing *errors.MissingSymbolsError
	if names := l.resolve(handle, l.evemuTable()); len(names) > 0 {
		missing = errors.NewMissingSymbolsError(path, names)
	}
	if names := l.resolve(libc, l.stdioTable()); len(names) > 0 {
		if missing == nil {
			missing = errors.NewMissingSymbolsError(LibcName, names)
		} else {
			missing.Add(LibcName, names...)
		}
	}
	if missing != nil {
		_ = purego.Dlclose(libc)
		_ = purego.Dlclose(handle)
		Logger().Debug("entry point resolution failed",
			zap.String("path", path),
			zap.Strings("missing", missing.Names()))
		return nil, missing
	}

	Logger().Debug("library loaded",
		zap.String("path", path),
		zap.Int("entry_points", len(l.addrs)))
	return l, nil
}

type symbol struct {
	name string
	fptr any
}

// resolve binds each symbol it can find and returns the names it could not.
func (l *Library) resolve(handle uintptr, table []symbol) []string {
	var missing []string
	for _, s := range table {
		addr, err := purego.Dlsym(handle, s.name)
		if err != nil || addr == 0 {
			missing = append(missing, s.name)
			continue
		}
		purego.RegisterFunc(s.fptr, addr)
		l.addrs[s.name] = addr
	}
	return missing
}

func (l *Library) evemuTable() []symbol {
	return []symbol{
		{"evemu_new", &l.evemuNew},
		{"evemu_delete", &l.evemuDelete},
		{"evemu_extract", &l.evemuExtract},
		{"evemu_write", &l.evemuWrite},
		{"evemu_read", &l.evemuRead},
		{"evemu_write_event", &l.evemuWriteEvent},
		{"evemu_record", &l.evemuRecord},
		{"evemu_read_event", &l.evemuReadEvent},
		{"evemu_play", &l.evemuPlay},
		{"evemu_create", &l.evemuCreate},
		{"evemu_destroy", &l.evemuDestroy},
		{"evemu_get_version", &l.getVersion},
		{"evemu_get_name", &l.getName},
		{"evemu_get_id_bustype", &l.getIDBustype},
		{"evemu_get_id_vendor", &l.getIDVendor},
		{"evemu_get_id_product", &l.getIDProduct},
		{"evemu_get_id_version", &l.getIDVersion},
		{"evemu_get_abs_minimum", &l.getAbsMinimum},
		{"evemu_get_abs_maximum", &l.getAbsMaximum},
		{"evemu_get_abs_fuzz", &l.getAbsFuzz},
		{"evemu_get_abs_flat", &l.getAbsFlat},
		{"evemu_get_abs_resolution", &l.getAbsResolution},
		{"evemu_has_prop", &l.hasProp},
		{"evemu_has_event", &l.hasEvent},
	}
}

func (l *Library) stdioTable() []symbol {
	return []symbol{
		{"fdopen", &l.fdopen},
		{"fclose", &l.fclose},
		{"fflush", &l.fflush},
		{"setvbuf", &l.setvbuf},
	}
}

// Path returns the path the library was loaded from.
func (l *Library) Path() string { return l.path }

// Resolved reports whether the named entry point was bound.
func (l *Library) Resolved(name string) bool {
	return l.addrs[name] != 0
}

// Close unloads both shared objects. Every Device and Stream obtained from
// the library must be released first; calling any entry point afterwards is
// undefined.
func (l *Library) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = errors.Join(purego.Dlclose(l.libc), purego.Dlclose(l.handle))
		Logger().Debug("library closed", zap.String("path", l.path))
	})
	return err
}

func (l *Library) New(name string) Device { return Device(l.evemuNew(name)) }

func (l *Library) Delete(dev Device) { l.evemuDelete(uintptr(dev)) }

func (l *Library) Extract(dev Device, fd uintptr) int32 {
	return l.evemuExtract(uintptr(dev), int32(fd))
}

func (l *Library) Write(dev Device, fp Stream) int32 {
	return l.evemuWrite(uintptr(dev), uintptr(fp))
}

func (l *Library) Read(dev Device, fp Stream) int32 {
	return l.evemuRead(uintptr(dev), uintptr(fp))
}

func (l *Library) WriteEvent(fp Stream, ev *InputEvent) int32 {
	return l.evemuWriteEvent(uintptr(fp), ev)
}

func (l *Library) Record(fp Stream, fd uintptr, ms int32) int32 {
	return l.evemuRecord(uintptr(fp), int32(fd), ms)
}

func (l *Library) ReadEvent(fp Stream, ev *InputEvent) int32 {
	return l.evemuReadEvent(uintptr(fp), ev)
}

func (l *Library) Play(fp Stream, fd uintptr) int32 {
	return l.evemuPlay(uintptr(fp), int32(fd))
}

func (l *Library) Create(dev Device, fd uintptr) int32 {
	return l.evemuCreate(uintptr(dev), int32(fd))
}

func (l *Library) Destroy(dev Device, fd uintptr) {
	l.evemuDestroy(uintptr(dev), int32(fd))
}

func (l *Library) Version(dev Device) uint32   { return l.getVersion(uintptr(dev)) }
func (l *Library) Name(dev Device) string      { return l.getName(uintptr(dev)) }
func (l *Library) IDBustype(dev Device) uint32 { return l.getIDBustype(uintptr(dev)) }
func (l *Library) IDVendor(dev Device) uint32  { return l.getIDVendor(uintptr(dev)) }
func (l *Library) IDProduct(dev Device) uint32 { return l.getIDProduct(uintptr(dev)) }
func (l *Library) IDVersion(dev Device) uint32 { return l.getIDVersion(uintptr(dev)) }

func (l *Library) AbsMinimum(dev Device, code int32) int32 {
	return l.getAbsMinimum(uintptr(dev), code)
}

func (l *Library) AbsMaximum(dev Device, code int32) int32 {
	return l.getAbsMaximum(uintptr(dev), code)
}

func (l *Library) AbsFuzz(dev Device, code int32) int32 {
	return l.getAbsFuzz(uintptr(dev), code)
}

func (l *Library) AbsFlat(dev Device, code int32) int32 {
	return l.getAbsFlat(uintptr(dev), code)
}

func (l *Library) AbsResolution(dev Device, code int32) int32 {
	return l.getAbsResolution(uintptr(dev), code)
}

func (l *Library) HasProp(dev Device, code int32) int32 {
	return l.hasProp(uintptr(dev), code)
}

func (l *Library) HasEvent(dev Device, typ, code int32) int32 {
	return l.hasEvent(uintptr(dev), typ, code)
}

func (l *Library) OpenStream(fd uintptr, mode string) Stream {
	return Stream(l.fdopen(int32(fd), mode))
}

func (l *Library) CloseStream(fp Stream) int32 { return l.fclose(uintptr(fp)) }

func (l *Library) FlushStream(fp Stream) int32 { return l.fflush(uintptr(fp)) }

func (l *Library) LineBuffer(fp Stream) int32 {
	return l.setvbuf(uintptr(fp), 0, ioLineBuffered, 0)
}
