package inputdev

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	"go.uber.org/zap"

	"github.com/wippyai/evemu/errors"
)

// Node is one /dev/input/event* device.
type Node struct {
	Path string
	Name string
	// Pointer is set for devices reporting relative X and Y motion.
	Pointer bool
}

// List returns the event nodes the caller can open, in version order so
// that event2 sorts before event10.
func List() ([]Node, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, errors.IO("list devices", "/dev/input", err)
	}

	nodes := make([]Node, 0, len(paths))
	for _, p := range paths {
		node, err := Inspect(p.Path)
		if err != nil {
			Logger().Debug("skipping device", zap.String("path", p.Path), zap.Error(err))
			continue
		}
		if node.Name == "" {
			node.Name = p.Name
		}
		nodes = append(nodes, node)
	}

	SortNodes(nodes)
	return nodes, nil
}

// Inspect opens path read-only and reports its name and pointer capability.
func Inspect(path string) (Node, error) {
	dev, err := evdev.OpenWithFlags(path, os.O_RDONLY)
	if err != nil {
		return Node{}, errors.IO("open device", path, err)
	}
	defer dev.Close()

	node := Node{Path: path}
	if name, err := dev.Name(); err == nil {
		node.Name = name
	}

	var relX, relY bool
	for _, code := range dev.CapableEvents(evdev.EV_REL) {
		switch code {
		case evdev.REL_X:
			relX = true
		case evdev.REL_Y:
			relY = true
		}
	}
	node.Pointer = relX && relY
	return node, nil
}

// ProbeGrab checks that no other client holds an exclusive grab on path,
// which would starve a recording. The probe grab is released immediately.
func ProbeGrab(path string) error {
	dev, err := evdev.OpenWithFlags(path, os.O_RDONLY)
	if err != nil {
		return errors.IO("open device", path, err)
	}
	defer dev.Close()

	if err := dev.Grab(); err != nil {
		return errors.New(errors.PhaseDevice, errors.KindPrecondition).
			Op("grab").
			Path(path).
			Cause(err).
			Detail("device is grabbed by another process and cannot be recorded").
			Build()
	}
	return dev.Ungrab()
}

// FindByName returns the node whose kernel name is name. When several
// match, the one created last (highest event number) wins.
func FindByName(name string) (Node, error) {
	nodes, err := List()
	if err != nil {
		return Node{}, err
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Name == name {
			return nodes[i], nil
		}
	}
	return Node{}, errors.New(errors.PhaseDevice, errors.KindNotFound).
		Value(name).
		Detail("no input device named %q", name).
		Build()
}

// SortNodes orders nodes by path, comparing digit runs numerically.
func SortNodes(nodes []Node) {
	slices.SortStableFunc(nodes, func(a, b Node) int {
		return VersionCompare(filepath.Base(a.Path), filepath.Base(b.Path))
	})
}

// VersionCompare compares a and b like versionsort(3): runs of digits are
// compared by numeric value, everything else byte by byte.
func VersionCompare(a, b string) int {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := digits(a)
			nb, rb := digits(b)
			if c := compareNumeric(na, nb); c != 0 {
				return c
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digits(s string) (run, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}
