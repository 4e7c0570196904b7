package device

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wippyai/evemu/errors"
	"github.com/wippyai/evemu/native"
	"github.com/wippyai/evemu/native/nativetest"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func boundWrapper(t *testing.T, fake *nativetest.Fake) *Wrapper {
	t.Helper()
	w := NewWrapper(fake)
	if err := w.New("test device"); err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWrapper_UnboundCallsFailBeforeNative(t *testing.T) {
	fake := nativetest.New()
	w := NewWrapper(fake)
	path := writeFile(t, "N: x\n")

	calls := map[string]func() error{
		"Read":    func() error { return w.Read(path) },
		"Extract": func() error { return w.Extract(path) },
		"Write":   func() error { return w.Write(filepath.Join(t.TempDir(), "out")) },
		"WriteTo": func() error { _, err := w.WriteTo(&bytes.Buffer{}); return err },
		"Record":  func() error { return w.Record(path, &bytes.Buffer{}, time.Second) },
		"Play":    func() error { return w.Play(path, 3) },
		"Create":  func() error { return w.Create(3) },
		"Destroy": func() error { return w.Destroy(3) },
		"ReadEvents": func() error {
			return w.ReadEvents(path, func(native.InputEvent) bool { return true })
		},
		"AppendEvents": func() error { return w.AppendEvents(path, nil) },
		"Attributes":   func() error { _, err := w.Attributes(); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, errors.ErrUnbound) {
				t.Fatalf("expected ErrUnbound, got %v", err)
			}
			if !errors.IsUsage(err) {
				t.Fatal("unbound error should be a usage error")
			}
		})
	}

	if got := fake.Calls(); len(got) != 0 {
		t.Fatalf("no native call expected while unbound, got %v", got)
	}
}

func TestWrapper_NewBinds(t *testing.T) {
	fake := nativetest.New()
	w := NewWrapper(fake)

	if w.Bound() || w.Pointer() != 0 {
		t.Fatal("new wrapper should be unbound")
	}
	if err := w.New("My Special Device"); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !w.Bound() || w.Pointer() == 0 {
		t.Fatal("wrapper should be bound after New")
	}
	if w.Name() != "My Special Device" {
		t.Errorf("Name() = %q", w.Name())
	}
	state, _ := fake.Device(w.Pointer())
	if state.Name != "My Special Device" {
		t.Errorf("native name = %q", state.Name)
	}
}

func TestWrapper_RejectedNewKeepsState(t *testing.T) {
	fake := nativetest.New()
	w := NewWrapper(fake)

	fake.RejectNew = true
	err := w.New("a")
	if err == nil {
		t.Fatal("expected error for NULL device")
	}
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindNullPointer {
		t.Fatalf("expected null pointer error, got %v", err)
	}
	if w.Bound() {
		t.Fatal("rejected New must leave an unbound wrapper unbound")
	}

	fake.RejectNew = false
	if err := w.New("a"); err != nil {
		t.Fatal(err)
	}
	ptr := w.Pointer()

	fake.RejectNew = true
	if err := w.New("b"); err == nil {
		t.Fatal("expected error for NULL device")
	}
	if w.Pointer() != ptr || w.Name() != "a" {
		t.Fatal("rejected New must keep the previous device")
	}
	if state, _ := fake.Device(ptr); state.Deleted {
		t.Fatal("rejected New must not release the previous device")
	}
	w.Close()
}

func TestWrapper_RebindReleasesPrevious(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)
	first := w.Pointer()

	if err := w.New("second"); err != nil {
		t.Fatal(err)
	}
	if w.Pointer() == first {
		t.Fatal("expected a new pointer")
	}
	if state, _ := fake.Device(first); !state.Deleted {
		t.Fatal("previous device should be deleted on rebind")
	}
	if fake.Live() != 1 {
		t.Fatalf("Live() = %d, want 1", fake.Live())
	}
}

func TestWrapper_CloseIdempotent(t *testing.T) {
	fake := nativetest.New()
	w := NewWrapper(fake)
	if err := w.Close(); err != nil {
		t.Fatalf("Close on unbound: %v", err)
	}

	w.New("x")
	if err := w.Drop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if w.Bound() {
		t.Fatal("wrapper should be unbound after Close")
	}
	if fake.Live() != 0 {
		t.Fatal("device should be released")
	}

	deletes := 0
	for _, c := range fake.Calls() {
		if c == "evemu_delete" {
			deletes++
		}
	}
	if deletes != 1 {
		t.Fatalf("evemu_delete called %d times, want 1", deletes)
	}
}

func TestWrapper_ReadAndWrite(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)

	path := writeFile(t, "# comment\nN: Logitech Mouse\nI: 0003 046d c52b 0111\n")
	if err := w.Read(path); err != nil {
		t.Fatalf("Read: %v", err)
	}

	attrs, err := w.Attributes()
	if err != nil {
		t.Fatal(err)
	}
	if attrs.Name() != "Logitech Mouse" || attrs.IDVendor() != 0x046d || attrs.IDProduct() != 0xc52b {
		t.Fatalf("unexpected attributes %q %#x %#x", attrs.Name(), attrs.IDVendor(), attrs.IDProduct())
	}

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) || !strings.Contains(buf.String(), "N: Logitech Mouse") {
		t.Fatalf("WriteTo wrote %d bytes: %q", n, buf.String())
	}

	out := filepath.Join(t.TempDir(), "desc")
	if err := w.Write(out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != buf.String() {
		t.Fatalf("Write and WriteTo differ: %q vs %q", data, buf.String())
	}

	if fake.OpenStreams() != 0 {
		t.Fatal("streams should be closed")
	}
}

func TestWrapper_WriteToFile(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	f.WriteString("# header\n")

	n, err := w.WriteTo(f)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(f.Name())
	if int(n)+len("# header\n") != len(data) {
		t.Fatalf("WriteTo reported %d bytes, file holds %d", n, len(data))
	}
	if !strings.HasPrefix(string(data), "# header\nN: test device") {
		t.Fatalf("unexpected file content %q", data)
	}
	if _, err := f.WriteString("# tail\n"); err != nil {
		t.Fatal("file should stay usable after WriteTo")
	}
}

func TestWrapper_ReadFailures(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)

	err := w.Read(filepath.Join(t.TempDir(), "missing"))
	var e *errors.Error
	if !errors.As(err, &e) || e.Phase != errors.PhaseIO {
		t.Fatalf("expected io error, got %v", err)
	}

	err = w.Read(writeFile(t, "nothing useful\n"))
	if !errors.As(err, &e) || e.Kind != errors.KindNativeFailure || e.Op != "evemu_read" {
		t.Fatalf("expected native failure, got %v", err)
	}

	fake.Status["evemu_read"] = -22
	err = w.Read(writeFile(t, "N: x\n"))
	if !errors.Is(err, unix.EINVAL) {
		t.Fatalf("expected EINVAL cause, got %v", err)
	}
}

func TestWrapper_StreamOpenFailure(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)
	fake.Status["fdopen"] = 1

	err := w.Read(writeFile(t, "N: x\n"))
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindNullPointer || e.Op != "fdopen" {
		t.Fatalf("expected fdopen null pointer, got %v", err)
	}
	if fake.Called("evemu_read") {
		t.Fatal("evemu_read must not run without a stream")
	}
}

func TestWrapper_Extract(t *testing.T) {
	fake := nativetest.New()
	fake.Template = nativetest.DeviceState{Name: "Touchpad", Vendor: 0x06cb}
	w := boundWrapper(t, fake)

	if err := w.Extract(writeFile(t, "")); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	attrs, _ := w.Attributes()
	if attrs.Name() != "Touchpad" || attrs.IDVendor() != 0x06cb {
		t.Fatal("Extract should fill the device")
	}

	err := w.Extract("/nonexistent/event99")
	var e *errors.Error
	if !errors.As(err, &e) || e.Phase != errors.PhaseIO || e.Path != "/nonexistent/event99" {
		t.Fatalf("expected io error naming the node, got %v", err)
	}

	fake.Status["evemu_extract"] = -13
	if err := w.Extract(writeFile(t, "")); !errors.Is(err, unix.EACCES) {
		t.Fatalf("expected EACCES cause, got %v", err)
	}
}

func TestWrapper_Record(t *testing.T) {
	fake := nativetest.New()
	fake.RecordLines = []string{
		"E: 0.000000 0002 0000 5",
		"E: 0.000000 0000 0000 0",
	}
	w := boundWrapper(t, fake)

	var buf bytes.Buffer
	if err := w.Record(writeFile(t, ""), &buf, 100*time.Millisecond); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if buf.String() != strings.Join(fake.RecordLines, "\n")+"\n" {
		t.Fatalf("recorded %q", buf.String())
	}
	if !fake.Called("setvbuf") {
		t.Fatal("recording stream should be line buffered")
	}
}

func TestWrapper_EventsRoundTrip(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)
	path := filepath.Join(t.TempDir(), "events")

	events := []native.InputEvent{
		{Time: unix.NsecToTimeval(1_500_000_000), Type: native.EvRel, Code: native.RelX, Value: 10},
		{Time: unix.NsecToTimeval(1_500_000_000), Type: native.EvSyn, Code: native.SynReport},
	}
	if err := w.AppendEvents(path, events); err != nil {
		t.Fatalf("AppendEvents: %v", err)
	}

	var got []native.InputEvent
	err := w.ReadEvents(path, func(ev native.InputEvent) bool {
		got = append(got, ev)
		return true
	})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != 2 || got[0] != events[0] || got[1] != events[1] {
		t.Fatalf("ReadEvents = %+v", got)
	}

	count := 0
	w.ReadEvents(path, func(native.InputEvent) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatal("ReadEvents should stop when fn returns false")
	}
}

func TestWrapper_PlayCreateDestroy(t *testing.T) {
	fake := nativetest.New()
	w := boundWrapper(t, fake)

	if err := w.Create(7); err != nil {
		t.Fatalf("Create: %v", err)
	}
	state, _ := fake.Device(w.Pointer())
	if !state.Created {
		t.Fatal("device should be created")
	}

	path := writeFile(t, "E: 0.000001 0002 0000 1\nE: 0.000001 0000 0000 0\n")
	if err := w.Play(path, 7); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(fake.Played[7]) != 2 {
		t.Fatalf("played %v", fake.Played[7])
	}

	if err := w.Destroy(7); err != nil {
		t.Fatal(err)
	}
	if !state.Destroyed {
		t.Fatal("device should be destroyed")
	}

	fake.Status["evemu_create"] = -1
	err := w.Create(7)
	var e *errors.Error
	if !errors.As(err, &e) || e.Cause != nil {
		t.Fatalf("status -1 should carry no errno cause, got %v", err)
	}
}
