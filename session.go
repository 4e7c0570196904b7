package evemu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/evemu/config"
	"github.com/wippyai/evemu/device"
	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/native"
	"github.com/wippyai/evemu/resource"
	"github.com/wippyai/evemu/session"
)

// RecordSession records every device selected by opts at the same time and
// writes them to w as one session. Each device stops after idle without
// events, so idle must not be negative.
func (e *EvEmu) RecordSession(opts *config.RecordOptions, w io.Writer, idle time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if opts == nil || opts.Empty() {
		return errors.Precondition("record session", "no devices selected")
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if idle < 0 {
		return errors.InvalidInput(errors.PhaseSession, "a session recording needs a finite idle timeout")
	}

	sources := opts.Sources()
	for _, src := range sources {
		if err := e.probe(src.Path); err != nil {
			return err
		}
	}

	dir, err := os.MkdirTemp("", "evemu-session-*")
	if err != nil {
		return errors.IO("record session", "", err)
	}
	defer os.RemoveAll(dir)

	s := &session.Session{Devices: make([]*session.Device, len(sources))}
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := e.recordOne(src.Path, filepath.Join(dir, fmt.Sprintf("device%d", i)), idle)
			if err != nil {
				errs[i] = sessionError(i, src.Path, err)
				return
			}
			d := &session.Device{ID: i, Type: session.TypeUnknown, Body: body}
			if src.Mouse {
				d.Type = session.TypeMouse
				d.X, d.Y = src.X, src.Y
			}
			s.Devices[i] = d
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	_, err = s.WriteTo(w)
	return err
}

// recordOne describes and records path into a scratch file and returns
// its content lines.
func (e *EvEmu) recordOne(path, scratch string, idle time.Duration) ([]string, error) {
	w := device.NewWrapper(e.api)
	h, err := e.table.Insert(resource.KindDevice, w)
	if err != nil {
		return nil, err
	}
	defer e.table.Remove(h)

	f, err := os.Create(scratch)
	if err != nil {
		return nil, errors.IO("record session", scratch, err)
	}
	defer f.Close()

	if err := w.New(""); err != nil {
		return nil, err
	}
	if err := w.Extract(path); err != nil {
		return nil, err
	}
	if _, err := w.WriteTo(f); err != nil {
		return nil, err
	}
	Logger().Debug("recording session device", zap.String("path", path))
	if err := w.Record(path, f, idle); err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.IO("record session", scratch, err)
	}
	return readBody(f)
}

func readBody(r io.Reader) ([]string, error) {
	var body []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		body = append(body, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.IO("record session", "", err)
	}
	return body, nil
}

// ReplaySession creates one virtual device per section of s, moves the
// mouse to its recorded offset and plays every device's events at the same
// time. The virtual devices are removed once all playback has finished.
func (e *EvEmu) ReplaySession(s *session.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if s == nil {
		return errors.Precondition("replay session", "no session")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "evemu-replay-*")
	if err != nil {
		return errors.IO("replay session", "", err)
	}
	defer os.RemoveAll(dir)

	type replay struct {
		vd     *VirtualDevice
		events string
		handle resource.Handle
	}
	replays := make([]replay, 0, len(s.Devices))
	defer func() {
		for i := len(replays) - 1; i >= 0; i-- {
			e.table.Remove(replays[i].handle)
		}
	}()

	for _, d := range s.Devices {
		desc := filepath.Join(dir, fmt.Sprintf("device%d.desc", d.ID))
		events := filepath.Join(dir, fmt.Sprintf("device%d.events", d.ID))
		if err := os.WriteFile(desc, []byte(d.Description()), 0o600); err != nil {
			return errors.IO("replay session", desc, err)
		}
		if err := os.WriteFile(events, []byte(d.Events()), 0o600); err != nil {
			return errors.IO("replay session", events, err)
		}

		vd, err := newVirtualDevice(e.api, desc, e.cfg.UinputPath, e.lookup)
		if err != nil {
			return sessionError(d.ID, desc, err)
		}
		h, err := e.table.Insert(resource.KindVirtualDevice, vd)
		if err != nil {
			return err
		}
		replays = append(replays, replay{vd: vd, events: events, handle: h})

		if d.Type == session.TypeMouse && (d.X != 0 || d.Y != 0) {
			moved, err := prependOffset(vd.wrapper, events, d.X, d.Y)
			if err != nil {
				return sessionError(d.ID, events, err)
			}
			replays[len(replays)-1].events = moved
		}
	}

	errs := make([]error, len(replays))
	var wg sync.WaitGroup
	for i, r := range replays {
		i, r := i, r
		wg.Add(1)
		go func() {
			defer wg.Done()
			Logger().Debug("replaying session device", zap.Int("id", i), zap.String("name", r.vd.Name()))
			if err := r.vd.Play(r.events); err != nil {
				errs[i] = sessionError(i, r.events, err)
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// prependOffset writes a new events file that starts with a relative move
// of (x, y), stamped with the time of the first recorded event so playback
// applies it immediately, followed by the original events.
func prependOffset(w *device.Wrapper, eventsPath string, x, y int) (string, error) {
	var first native.InputEvent
	err := w.ReadEvents(eventsPath, func(ev native.InputEvent) bool {
		first = ev
		return false
	})
	if err != nil {
		return "", err
	}

	moved := eventsPath + ".offset"
	offset := []native.InputEvent{
		{Time: first.Time, Type: native.EvRel, Code: native.RelX, Value: int32(x)},
		{Time: first.Time, Type: native.EvRel, Code: native.RelY, Value: int32(y)},
		{Time: first.Time, Type: native.EvSyn, Code: native.SynReport},
	}
	if err := w.AppendEvents(moved, offset); err != nil {
		return "", err
	}

	src, err := os.Open(eventsPath)
	if err != nil {
		return "", errors.IO("replay session", eventsPath, err)
	}
	defer src.Close()
	dst, err := os.OpenFile(moved, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return "", errors.IO("replay session", moved, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.IO("replay session", moved, err)
	}
	return moved, nil
}

// sessionError names the device a failure belongs to and keeps the kind
// of the underlying error.
func sessionError(id int, path string, cause error) error {
	kind := errors.KindNativeFailure
	var e *errors.Error
	if errors.As(cause, &e) {
		kind = e.Kind
	}
	return errors.New(errors.PhaseSession, kind).
		Op(fmt.Sprintf("device %d", id)).
		Path(path).
		Cause(cause).
		Build()
}
