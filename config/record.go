package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/evemu/errors"
)

// MaxDevices bounds the devices in one recording session, mouse included.
const MaxDevices = 10

// RecordOptions selects the devices of a multi-device recording.
type RecordOptions struct {
	Mouse   string
	Devices []string
	MouseX  int
	MouseY  int

	mouseSet  bool
	mouseXSet bool
	mouseYSet bool
}

// Source is one device to record, in session order.
type Source struct {
	Path  string
	X, Y  int
	Mouse bool
}

type onceString struct {
	dst  *string
	set  *bool
	name string
}

func (o onceString) String() string {
	if o.dst == nil {
		return ""
	}
	return *o.dst
}

func (o onceString) Set(v string) error {
	if *o.set {
		return fmt.Errorf("%s already specified as %q", o.name, *o.dst)
	}
	*o.dst = v
	*o.set = true
	return nil
}

type onceInt struct {
	dst  *int
	set  *bool
	name string
}

func (o onceInt) String() string {
	if o.dst == nil {
		return "0"
	}
	return strconv.Itoa(*o.dst)
}

func (o onceInt) Set(v string) error {
	if *o.set {
		return fmt.Errorf("%s already specified as %d", o.name, *o.dst)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", o.name, v)
	}
	*o.dst = n
	*o.set = true
	return nil
}

type deviceList struct {
	dst *[]string
}

func (d deviceList) String() string {
	if d.dst == nil {
		return ""
	}
	return strings.Join(*d.dst, ",")
}

func (d deviceList) Set(v string) error {
	if len(*d.dst) >= MaxDevices {
		return fmt.Errorf("more than %d devices", MaxDevices)
	}
	*d.dst = append(*d.dst, v)
	return nil
}

// RegisterFlags adds -mouse/-m, -mouse-x/-x, -mouse-y/-y and the repeatable
// -device/-d to fs.
func (o *RecordOptions) RegisterFlags(fs *flag.FlagSet) {
	mouse := onceString{dst: &o.Mouse, set: &o.mouseSet, name: "mouse"}
	mx := onceInt{dst: &o.MouseX, set: &o.mouseXSet, name: "mouse X"}
	my := onceInt{dst: &o.MouseY, set: &o.mouseYSet, name: "mouse Y"}
	devs := deviceList{dst: &o.Devices}

	for _, name := range []string{"mouse", "m"} {
		fs.Var(mouse, name, "mouse input device node, e.g. /dev/input/event12")
	}
	for _, name := range []string{"mouse-x", "x"} {
		fs.Var(mx, name, "initial mouse X offset, e.g. 100 or -100")
	}
	for _, name := range []string{"mouse-y", "y"} {
		fs.Var(my, name, "initial mouse Y offset, e.g. 100 or -100")
	}
	for _, name := range []string{"device", "d"} {
		fs.Var(devs, name, "other input device node, repeatable")
	}
}

// ParseRecordFlags parses args that contain only record options.
func ParseRecordFlags(args []string) (*RecordOptions, error) {
	opts := &RecordOptions{}
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "record options")
	}
	if fs.NArg() > 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Empty reports whether no device was selected.
func (o *RecordOptions) Empty() bool {
	return o.Mouse == "" && len(o.Devices) == 0
}

// Validate checks the combination of options.
func (o *RecordOptions) Validate() error {
	if o.Mouse == "" && (o.MouseX != 0 || o.MouseY != 0) {
		return errors.InvalidInput(errors.PhaseConfig, "mouse offsets given without -mouse")
	}

	total := len(o.Devices)
	if o.Mouse != "" {
		total++
	}
	if total > MaxDevices {
		return errors.OutOfBounds(errors.PhaseConfig, "device count", total, MaxDevices)
	}

	seen := make(map[string]bool, total)
	for _, s := range o.Sources() {
		if seen[s.Path] {
			return errors.New(errors.PhaseConfig, errors.KindDuplicate).
				Path(s.Path).
				Detail("device listed more than once").
				Build()
		}
		seen[s.Path] = true
	}
	return nil
}

// Sources lists the selected devices, mouse first.
func (o *RecordOptions) Sources() []Source {
	var out []Source
	if o.Mouse != "" {
		out = append(out, Source{Path: o.Mouse, Mouse: true, X: o.MouseX, Y: o.MouseY})
	}
	for _, d := range o.Devices {
		out = append(out, Source{Path: d})
	}
	return out
}
