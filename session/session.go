package session

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/evemu/errors"
)

// MaxDevices is the largest device count a session may declare.
const MaxDevices = 10

// Section markers.
const (
	DevicesBegin = "[Devices Begin]"
	DevicesEnd   = "[Devices End]"
	DeviceBegin  = "[Device Begin]"
	DeviceEnd    = "[Device End]"
)

// DeviceType tells replay how to treat a recorded device.
type DeviceType string

const (
	TypeUnknown DeviceType = "unknown"
	TypeMouse   DeviceType = "mouse"
)

// Device is one [Device Begin] section.
type Device struct {
	Type DeviceType
	// Body holds the evemu description and event lines in file order.
	Body []string
	ID   int
	// X and Y are the initial pointer offset of a mouse.
	X, Y int
}

// Description returns the body lines that describe the device, one per
// line, in the form evemu_read accepts.
func (d *Device) Description() string {
	return d.join(false)
}

// Events returns the recorded "E:" lines in the form evemu_play accepts.
func (d *Device) Events() string {
	return d.join(true)
}

func (d *Device) join(events bool) string {
	var b strings.Builder
	for _, line := range d.Body {
		if isEvent(line) == events {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func isEvent(line string) bool {
	return strings.HasPrefix(line, "E:")
}

// Session is a multi-device recording. Devices[i].ID == i.
type Session struct {
	Devices []*Device
}

// Mouse returns the mouse section, or nil.
func (s *Session) Mouse() *Device {
	for _, d := range s.Devices {
		if d.Type == TypeMouse {
			return d
		}
	}
	return nil
}

// Validate checks the invariants Parse enforces on a session built in code.
func (s *Session) Validate() error {
	if n := len(s.Devices); n < 1 || n > MaxDevices {
		return errors.OutOfBounds(errors.PhaseSession, "device count", n, MaxDevices)
	}
	mice := 0
	for i, d := range s.Devices {
		if d == nil || d.ID != i {
			return errors.InvalidInput(errors.PhaseSession,
				fmt.Sprintf("device %d is missing or out of order", i))
		}
		switch d.Type {
		case TypeMouse:
			mice++
		case TypeUnknown:
			if d.X != 0 || d.Y != 0 {
				return errors.InvalidInput(errors.PhaseSession,
					fmt.Sprintf("device %d: offsets are only valid for a mouse", i))
			}
		default:
			return errors.InvalidInput(errors.PhaseSession,
				fmt.Sprintf("device %d: unknown type %q", i, d.Type))
		}
	}
	if mice > 1 {
		return errors.New(errors.PhaseSession, errors.KindDuplicate).
			Detail("%d mouse sections, at most one allowed", mice).
			Build()
	}
	return nil
}

// WriteTo renders the session in the format Parse reads.
func (s *Session) WriteTo(w io.Writer) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}

	fmt.Fprintf(cw, "%s\ncount = %d\n%s\n", DevicesBegin, len(s.Devices), DevicesEnd)
	for _, d := range s.Devices {
		fmt.Fprintf(cw, "%s\nid = %d\ntype = %s\n", DeviceBegin, d.ID, d.Type)
		if d.Type == TypeMouse {
			fmt.Fprintf(cw, "X = %d\nY = %d\n", d.X, d.Y)
		}
		for _, line := range d.Body {
			fmt.Fprintf(cw, "%s\n", line)
		}
		fmt.Fprintf(cw, "%s\n", DeviceEnd)
	}

	if cw.err != nil {
		return cw.n, errors.IO("write session", "", cw.err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, errors.IO("write session", "", err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w   io.Writer
	err error
	n   int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

type parseState int

const (
	stateStart parseState = iota
	stateHeader
	stateBetween
	stateDevice
)

type parser struct {
	session *Session
	current *Device
	seen    map[int]bool
	state   parseState
	count   int
	line    int
	hasID   bool
	hasType bool
	hasBody bool
	mouse   bool
}

// Parse reads a session file. Blank lines and lines whose first non-blank
// character is '#' are skipped everywhere.
func Parse(r io.Reader) (*Session, error) {
	p := &parser{session: &Session{}, seen: make(map[int]bool)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.feed(line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.IO("parse session", "", err)
	}

	switch p.state {
	case stateStart:
		return nil, errors.ParseFailed(p.line, "missing %s section", DevicesBegin)
	case stateHeader:
		return nil, errors.ParseFailed(p.line, "missing %s", DevicesEnd)
	case stateDevice:
		return nil, errors.ParseFailed(p.line, "missing %s for device section", DeviceEnd)
	}
	if got := len(p.session.Devices); got != p.count {
		return nil, errors.ParseFailed(p.line, "declared %d devices, found %d", p.count, got)
	}

	slices.SortFunc(p.session.Devices, func(a, b *Device) int { return cmp.Compare(a.ID, b.ID) })
	Logger().Debug("parsed session",
		zap.Int("devices", p.count),
		zap.Bool("mouse", p.mouse))
	return p.session, nil
}

func (p *parser) feed(line string) error {
	switch p.state {
	case stateStart:
		if line != DevicesBegin {
			return errors.ParseFailed(p.line, "expected %s, got %q", DevicesBegin, line)
		}
		p.state = stateHeader

	case stateHeader:
		if line == DevicesEnd {
			if p.count < 1 || p.count > MaxDevices {
				return p.bounds("device count", p.count, MaxDevices)
			}
			p.state = stateBetween
			return nil
		}
		if isMarker(line) {
			return errors.ParseFailed(p.line, "unexpected %s inside %s", line, DevicesBegin)
		}
		key, value, ok := pair(line)
		if !ok || key != "count" {
			return errors.ParseFailed(p.line, "expected count = N, got %q", line)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.ParseFailed(p.line, "count %q is not a number", value)
		}
		p.count = n

	case stateBetween:
		if line != DeviceBegin {
			return errors.ParseFailed(p.line, "content outside a section: %q", line)
		}
		if len(p.session.Devices) == p.count {
			return errors.ParseFailed(p.line, "more device sections than the declared %d", p.count)
		}
		p.current = &Device{Type: TypeUnknown}
		p.hasID, p.hasType, p.hasBody = false, false, false
		p.state = stateDevice

	case stateDevice:
		return p.deviceLine(line)
	}
	return nil
}

func (p *parser) deviceLine(line string) error {
	if line == DeviceEnd {
		if !p.hasID || !p.hasType {
			return errors.ParseFailed(p.line, "device section needs both id and type")
		}
		p.session.Devices = append(p.session.Devices, p.current)
		p.current = nil
		p.state = stateBetween
		return nil
	}
	if isMarker(line) {
		return errors.ParseFailed(p.line, "unexpected %s inside a device section", line)
	}

	key, value, ok := pair(line)
	if !ok || !isField(key) {
		if !p.hasID || !p.hasType {
			return errors.ParseFailed(p.line, "device content before id and type")
		}
		p.current.Body = append(p.current.Body, line)
		p.hasBody = true
		return nil
	}
	if p.hasBody {
		return errors.ParseFailed(p.line, "%s after device content", key)
	}

	switch key {
	case "id":
		if p.hasID {
			return errors.ParseFailed(p.line, "id given twice in one section")
		}
		id, err := strconv.Atoi(value)
		if err != nil {
			return errors.ParseFailed(p.line, "id %q is not a number", value)
		}
		if id < 0 || id >= p.count {
			return p.bounds("device id", id, p.count-1)
		}
		if p.seen[id] {
			return p.duplicate("device id %d already used", id)
		}
		p.seen[id] = true
		p.current.ID = id
		p.hasID = true

	case "type":
		if p.hasType {
			return errors.ParseFailed(p.line, "type given twice in one section")
		}
		switch DeviceType(value) {
		case TypeMouse:
			if p.mouse {
				return p.duplicate("only one mouse section is allowed")
			}
			p.mouse = true
		case TypeUnknown:
		default:
			return errors.ParseFailed(p.line, "type must be mouse or unknown, got %q", value)
		}
		p.current.Type = DeviceType(value)
		p.hasType = true

	case "X", "Y":
		if !p.hasType || p.current.Type != TypeMouse {
			return errors.ParseFailed(p.line, "%s is only valid after type = mouse", key)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.ParseFailed(p.line, "%s %q is not a number", key, value)
		}
		if key == "X" {
			p.current.X = n
		} else {
			p.current.Y = n
		}
	}
	return nil
}

func (p *parser) bounds(what string, value, limit int) error {
	return errors.New(errors.PhaseParse, errors.KindOutOfBounds).
		Line(p.line).
		Value(value).
		Detail("%s %d out of range (limit %d)", what, value, limit).
		Build()
}

func (p *parser) duplicate(format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindDuplicate).
		Line(p.line).
		Detail(format, args...).
		Build()
}

func isMarker(line string) bool {
	switch line {
	case DevicesBegin, DevicesEnd, DeviceBegin, DeviceEnd:
		return true
	}
	return false
}

func isField(key string) bool {
	switch key {
	case "id", "type", "X", "Y":
		return true
	}
	return false
}

// pair splits "key = value".
func pair(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, value, true
}
