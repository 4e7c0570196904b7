package device

import (
	"fmt"
	"strings"

	"github.com/holoplot/go-evdev"

	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/native"
)

// Attributes reads properties of a device pointer it does not own. Every
// getter is a single native call and never changes the device.
type Attributes struct {
	api native.Evemu
	dev native.Device
}

// NewAttributes returns an accessor over dev. A NULL dev is rejected.
func NewAttributes(api native.Evemu, dev native.Device) (*Attributes, error) {
	if dev == 0 {
		return nil, errors.NullPointer("attributes")
	}
	return &Attributes{api: api, dev: dev}, nil
}

func (a *Attributes) Name() string { return a.api.Name(a.dev) }
func (a *Attributes) Version() uint32 { return a.api.Version(a.dev) }
func (a *Attributes) IDBustype() uint32 { return a.api.IDBustype(a.dev) }
func (a *Attributes) IDVendor() uint32 { return a.api.IDVendor(a.dev) }
func (a *Attributes) IDProduct() uint32 { return a.api.IDProduct(a.dev) }
func (a *Attributes) IDVersion() uint32 { return a.api.IDVersion(a.dev) }

func (a *Attributes) AbsMinimum(code int) int32 {
	return a.api.AbsMinimum(a.dev, int32(code))
}

func (a *Attributes) AbsMaximum(code int) int32 {
	return a.api.AbsMaximum(a.dev, int32(code))
}

func (a *Attributes) AbsFuzz(code int) int32 {
	return a.api.AbsFuzz(a.dev, int32(code))
}

func (a *Attributes) AbsFlat(code int) int32 {
	return a.api.AbsFlat(a.dev, int32(code))
}

func (a *Attributes) AbsResolution(code int) int32 {
	return a.api.AbsResolution(a.dev, int32(code))
}

// HasProp reports whether input property code is set.
func (a *Attributes) HasProp(code int) bool {
	return a.api.HasProp(a.dev, int32(code)) != 0
}

// HasEvent reports whether the device emits event type typ with code.
func (a *Attributes) HasEvent(typ, code int) bool {
	return a.api.HasEvent(a.dev, int32(typ), int32(code)) != 0
}

// Axis describes one absolute axis.
type Axis struct {
	Name       string
	Code       int
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// Info is a snapshot of everything the getters expose.
type Info struct {
	Name      string
	Axes      []Axis
	Props     []int
	Version   uint32
	Bustype   uint32
	Vendor    uint32
	Product   uint32
	IDVersion uint32
}

// Info collects a snapshot of the device by scanning every absolute axis
// and input property code.
func (a *Attributes) Info() Info {
	info := Info{
		Name:      a.Name(),
		Version:   a.Version(),
		Bustype:   a.IDBustype(),
		Vendor:    a.IDVendor(),
		Product:   a.IDProduct(),
		IDVersion: a.IDVersion(),
	}

	for code := 0; code <= native.AbsMax; code++ {
		if !a.HasEvent(native.EvAbs, code) {
			continue
		}
		info.Axes = append(info.Axes, Axis{
			Code:       code,
			Name:       evdev.CodeName(evdev.EV_ABS, evdev.EvCode(code)),
			Minimum:    a.AbsMinimum(code),
			Maximum:    a.AbsMaximum(code),
			Fuzz:       a.AbsFuzz(code),
			Flat:       a.AbsFlat(code),
			Resolution: a.AbsResolution(code),
		})
	}

	for code := 0; code <= native.InputPropMax; code++ {
		if a.HasProp(code) {
			info.Props = append(info.Props, code)
		}
	}

	return info
}

// PropNames returns the kernel names of the set input properties.
func (i Info) PropNames() []string {
	names := make([]string, len(i.Props))
	for n, p := range i.Props {
		names[n] = evdev.PropName(evdev.EvProp(p))
	}
	return names
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:    %s\n", i.Name)
	fmt.Fprintf(&b, "ID:      bus %#04x vendor %#04x product %#04x version %#04x\n",
		i.Bustype, i.Vendor, i.Product, i.IDVersion)
	fmt.Fprintf(&b, "Version: %#x\n", i.Version)
	for _, ax := range i.Axes {
		fmt.Fprintf(&b, "  %-20s min %d max %d fuzz %d flat %d res %d\n",
			ax.Name, ax.Minimum, ax.Maximum, ax.Fuzz, ax.Flat, ax.Resolution)
	}
	if len(i.Props) > 0 {
		fmt.Fprintf(&b, "Props:   %s\n", strings.Join(i.PropNames(), ", "))
	}
	return b.String()
}
