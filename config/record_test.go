package config

import (
	"fmt"
	"testing"

	"github.com/wippyai/evemu/errors"
)

func TestParseRecordFlags(t *testing.T) {
	opts, err := ParseRecordFlags([]string{
		"-mouse", "/dev/input/event12",
		"-x", "100", "-mouse-y", "-50",
		"-device", "/dev/input/event3",
		"-d", "/dev/input/event4",
	})
	if err != nil {
		t.Fatalf("ParseRecordFlags: %v", err)
	}
	if opts.Mouse != "/dev/input/event12" || opts.MouseX != 100 || opts.MouseY != -50 {
		t.Errorf("mouse options = %+v", opts)
	}

	sources := opts.Sources()
	if len(sources) != 3 {
		t.Fatalf("Sources() = %+v", sources)
	}
	if !sources[0].Mouse || sources[0].X != 100 || sources[0].Y != -50 {
		t.Errorf("mouse should come first with offsets, got %+v", sources[0])
	}
	if sources[1].Path != "/dev/input/event3" || sources[2].Path != "/dev/input/event4" {
		t.Errorf("device order = %+v", sources[1:])
	}
}

func TestParseRecordFlags_Errors(t *testing.T) {
	tooMany := make([]string, 0, 2*(MaxDevices+1))
	for i := 0; i <= MaxDevices; i++ {
		tooMany = append(tooMany, "-device", fmt.Sprintf("/dev/input/event%d", i))
	}
	mouseAndMax := []string{"-mouse", "/dev/input/event99"}
	for i := 0; i < MaxDevices; i++ {
		mouseAndMax = append(mouseAndMax, "-d", fmt.Sprintf("/dev/input/event%d", i))
	}

	tests := []struct {
		name string
		args []string
		kind errors.Kind
	}{
		{"second mouse", []string{"-mouse", "a", "-m", "b"}, errors.KindInvalidInput},
		{"second mouse x", []string{"-mouse", "a", "-x", "1", "-mouse-x", "2"}, errors.KindInvalidInput},
		{"bad offset", []string{"-mouse", "a", "-y", "up"}, errors.KindInvalidInput},
		{"too many devices", tooMany, errors.KindInvalidInput},
		{"mouse plus ten devices", mouseAndMax, errors.KindOutOfBounds},
		{"offset without mouse", []string{"-x", "5"}, errors.KindInvalidInput},
		{"duplicate device", []string{"-d", "a", "-d", "a"}, errors.KindDuplicate},
		{"mouse also device", []string{"-m", "a", "-d", "a"}, errors.KindDuplicate},
		{"trailing argument", []string{"-d", "a", "extra"}, errors.KindInvalidInput},
		{"unknown flag", []string{"-z"}, errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecordFlags(tt.args)
			var e *errors.Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *errors.Error, got %v", err)
			}
			if e.Phase != errors.PhaseConfig || e.Kind != tt.kind {
				t.Errorf("got [%s] %s, want [config] %s", e.Phase, e.Kind, tt.kind)
			}
		})
	}
}

func TestRecordOptions_Empty(t *testing.T) {
	opts, err := ParseRecordFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Empty() || len(opts.Sources()) != 0 {
		t.Error("no flags should select no devices")
	}
}
