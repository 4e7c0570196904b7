package evemu

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/evemu/config"
	"github.com/wippyai/evemu/device"
	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/inputdev"
	"github.com/wippyai/evemu/native"
	"github.com/wippyai/evemu/resource"
)

// RecordBanner separates the device description from its events in a
// recording.
const RecordBanner = "################################\n" +
	"#      Waiting for events      #\n" +
	"################################\n"

// EvEmu describes, creates, records and replays input devices on top of a
// loaded libevemu.
//
// It keeps one device wrapper for describe and record, and at most one
// virtual device made with CreateDevice. Every native allocation is tracked
// and released by Close.
type EvEmu struct {
	api     native.API
	lib     io.Closer
	cfg     config.Config
	wrapper *device.Wrapper
	virtual *VirtualDevice
	table   *resource.Table

	probe  func(path string) error
	lookup func(name string) (inputdev.Node, error)

	virtualHandle resource.Handle
	mu            sync.Mutex
	closed        bool
}

// Option customizes an EvEmu.
type Option func(*EvEmu)

// WithGrabProbe replaces the check that a source device is not grabbed by
// another process before recording.
func WithGrabProbe(probe func(path string) error) Option {
	return func(e *EvEmu) { e.probe = probe }
}

// WithNodeLookup replaces how the event node of a virtual device is found.
func WithNodeLookup(lookup func(name string) (inputdev.Node, error)) Option {
	return func(e *EvEmu) { e.lookup = lookup }
}

// New loads the library named by cfg and returns a facade that owns it.
func New(cfg config.Config, opts ...Option) (*EvEmu, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lib, err := native.Load(cfg.LibraryPath)
	if err != nil {
		return nil, err
	}
	e := NewWithAPI(lib, cfg, opts...)
	e.lib = lib
	return e, nil
}

// NewWithAPI returns a facade over an already loaded API. The API is not
// closed by Close.
func NewWithAPI(api native.API, cfg config.Config, opts ...Option) *EvEmu {
	if cfg.UinputPath == "" {
		cfg.UinputPath = config.DefaultUinputPath
	}
	e := &EvEmu{
		api:     api,
		cfg:     cfg,
		wrapper: device.NewWrapper(api),
		table:   resource.NewTable(),
		probe:   inputdev.ProbeGrab,
		lookup:  inputdev.FindByName,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.table.Subscribe(resourceLogger{})
	// Cannot fail on a fresh table.
	_, _ = e.table.Insert(resource.KindDevice, e.wrapper)
	return e
}

// Wrapper returns the facade's own device wrapper.
func (e *EvEmu) Wrapper() *device.Wrapper { return e.wrapper }

// VirtualDevice returns the device made with CreateDevice, or nil.
func (e *EvEmu) VirtualDevice() *VirtualDevice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.virtual
}

// Resources returns the table of live native allocations. Observers
// subscribed to it see every wrapper and virtual device the facade creates.
func (e *EvEmu) Resources() *resource.Table { return e.table }

func (e *EvEmu) checkOpen() error {
	if e.closed {
		return errors.ErrClosed
	}
	return nil
}

// Describe writes the evemu description of the kernel device at devicePath
// to w.
func (e *EvEmu) Describe(devicePath string, w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if devicePath == "" {
		return errors.Precondition("describe", "a device node is required")
	}
	return e.describe(devicePath, w)
}

func (e *EvEmu) describe(devicePath string, w io.Writer) error {
	if err := e.wrapper.New(""); err != nil {
		return err
	}
	if err := e.wrapper.Extract(devicePath); err != nil {
		return err
	}
	_, err := e.wrapper.WriteTo(w)
	return err
}

// CreateDevice creates a virtual device from the description file at
// descriptionPath. Only one virtual device may exist at a time.
func (e *EvEmu) CreateDevice(descriptionPath string) (*VirtualDevice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if e.virtual != nil {
		return nil, errors.Precondition("create device", "a virtual device already exists")
	}
	if descriptionPath == "" {
		return nil, errors.Precondition("create device", "a description file is required")
	}

	v, err := newVirtualDevice(e.api, descriptionPath, e.cfg.UinputPath, e.lookup)
	if err != nil {
		return nil, err
	}
	h, err := e.table.Insert(resource.KindVirtualDevice, v)
	if err != nil {
		return nil, err
	}
	e.virtual = v
	e.virtualHandle = h
	return v, nil
}

// DestroyDevice removes the virtual device, if any.
func (e *EvEmu) DestroyDevice() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.virtual == nil {
		return nil
	}
	_, err := e.table.Remove(e.virtualHandle)
	e.virtual = nil
	e.virtualHandle = 0
	return err
}

// Record writes the description of source followed by every event it
// produces to w, until no event arrives for idle. A negative idle records
// until the process is interrupted. An empty source records the virtual
// device.
func (e *EvEmu) Record(source string, w io.Writer, idle time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}

	if source == "" {
		if e.virtual == nil {
			return errors.Precondition("record", "no source device and no virtual device")
		}
		node, err := e.virtual.Node()
		if err != nil {
			return err
		}
		source = node
	}

	if err := e.probe(source); err != nil {
		return err
	}
	if err := e.describe(source, w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, RecordBanner); err != nil {
		return errors.IO("record", "", err)
	}

	Logger().Info("recording", zap.String("source", source), zap.Duration("idle", idle))
	return e.wrapper.Record(source, w, idle)
}

// Play replays the events file at eventsPath into the virtual device.
func (e *EvEmu) Play(eventsPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if e.virtual == nil {
		return errors.Precondition("play", "create a virtual device first")
	}
	return e.virtual.Play(eventsPath)
}

// Close destroys the virtual device, releases every native allocation and
// closes the library when New loaded it. Close is idempotent.
func (e *EvEmu) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.virtual = nil
	e.virtualHandle = 0

	err := e.table.Close()
	if e.lib != nil {
		err = errors.Join(err, e.lib.Close())
	}
	return err
}
