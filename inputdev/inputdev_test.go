package inputdev

import (
	"os"
	"testing"

	"github.com/wippyai/evemu/errors"
)

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"event2", "event10", -1},
		{"event10", "event2", 1},
		{"event3", "event3", 0},
		{"event03", "event3", 0},
		{"event", "event0", -1},
		{"event9", "mouse0", -1},
		{"event1a", "event1b", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := VersionCompare(tt.a, tt.b)
			if sign(got) != tt.want {
				t.Errorf("VersionCompare(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestSortNodes(t *testing.T) {
	nodes := []Node{
		{Path: "/dev/input/event10"},
		{Path: "/dev/input/event2"},
		{Path: "/dev/input/event1"},
		{Path: "/dev/input/event21"},
	}
	SortNodes(nodes)

	want := []string{"/dev/input/event1", "/dev/input/event2", "/dev/input/event10", "/dev/input/event21"}
	for i, w := range want {
		if nodes[i].Path != w {
			t.Fatalf("order = %v, want %v", nodes, want)
		}
	}
}

func TestInspect_Missing(t *testing.T) {
	_, err := Inspect("/nonexistent/event0")
	var e *errors.Error
	if !errors.As(err, &e) || e.Phase != errors.PhaseIO {
		t.Fatalf("expected io error, got %v", err)
	}
	if err := ProbeGrab("/nonexistent/event0"); !errors.As(err, &e) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestList(t *testing.T) {
	if _, err := os.Stat("/dev/input"); err != nil {
		t.Skipf("no /dev/input: %v", err)
	}
	nodes, err := List()
	if err != nil {
		t.Skipf("cannot list input devices: %v", err)
	}
	for i := 1; i < len(nodes); i++ {
		if VersionCompare(nodes[i-1].Path, nodes[i].Path) > 0 {
			t.Errorf("nodes not in version order: %s before %s", nodes[i-1].Path, nodes[i].Path)
		}
	}
	if len(nodes) == 0 {
		t.Skip("no readable input devices")
	}

	_, err = FindByName("evemu test device that does not exist")
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseDevice, Kind: errors.KindNotFound}) {
		t.Errorf("expected not_found, got %v", err)
	}
}
