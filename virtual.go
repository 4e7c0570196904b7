package evemu

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wippyai/evemu/device"
	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/inputdev"
	"github.com/wippyai/evemu/native"
)

const (
	nodeLookupAttempts = 20
	nodeLookupInterval = 50 * time.Millisecond
)

// VirtualDevice is a kernel input device created through uinput from an
// evemu description. It owns its device wrapper and the uinput descriptor.
type VirtualDevice struct {
	wrapper *device.Wrapper
	lookup  func(name string) (inputdev.Node, error)
	name    string
	node    string
	fd      int
}

func newVirtualDevice(api native.API, descriptionPath, uinputPath string, lookup func(string) (inputdev.Node, error)) (*VirtualDevice, error) {
	w := device.NewWrapper(api)
	if err := w.New(""); err != nil {
		return nil, err
	}
	if err := w.Read(descriptionPath); err != nil {
		w.Close()
		return nil, err
	}

	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		w.Close()
		return nil, errors.IO("open uinput", uinputPath, err)
	}

	if err := w.Create(fd); err != nil {
		unix.Close(fd)
		w.Close()
		return nil, err
	}

	v := &VirtualDevice{
		wrapper: w,
		lookup:  lookup,
		fd:      fd,
	}
	if attrs, err := w.Attributes(); err == nil {
		v.name = attrs.Name()
	}

	Logger().Info("virtual device created",
		zap.String("name", v.name),
		zap.String("description", descriptionPath))
	return v, nil
}

// Name returns the device name from its description.
func (v *VirtualDevice) Name() string { return v.name }

// Node returns the /dev/input/eventN node the kernel assigned. The node
// appears shortly after creation, so the lookup is retried for a while.
func (v *VirtualDevice) Node() (string, error) {
	if v.fd < 0 {
		return "", errors.Closed("virtual device")
	}
	if v.node != "" {
		return v.node, nil
	}

	var err error
	for i := 0; i < nodeLookupAttempts; i++ {
		var n inputdev.Node
		if n, err = v.lookup(v.name); err == nil {
			v.node = n.Path
			return v.node, nil
		}
		time.Sleep(nodeLookupInterval)
	}
	return "", err
}

// Attributes returns a read-only view of the device.
func (v *VirtualDevice) Attributes() (*device.Attributes, error) {
	if v.fd < 0 {
		return nil, errors.Closed("virtual device")
	}
	return v.wrapper.Attributes()
}

// Play injects the events recorded in eventsPath into the device.
func (v *VirtualDevice) Play(eventsPath string) error {
	if v.fd < 0 {
		return errors.Closed("virtual device")
	}
	return v.wrapper.Play(eventsPath, v.fd)
}

// Close removes the kernel device and releases the native device pointer.
// It is idempotent.
func (v *VirtualDevice) Close() error {
	if v.fd < 0 {
		return nil
	}
	err := v.wrapper.Destroy(v.fd)
	if cerr := unix.Close(v.fd); cerr != nil {
		err = errors.Join(err, errors.IO("close uinput", "", cerr))
	}
	v.fd = -1
	v.node = ""
	Logger().Info("virtual device destroyed", zap.String("name", v.name))
	return errors.Join(err, v.wrapper.Close())
}

// Drop implements resource.Dropper.
func (v *VirtualDevice) Drop() error { return v.Close() }
