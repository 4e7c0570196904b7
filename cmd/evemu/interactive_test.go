package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/evemu/inputdev"
)

func testNodes() []inputdev.Node {
	return []inputdev.Node{
		{Path: "/dev/input/event2", Name: "AT Translated Set 2 keyboard"},
		{Path: "/dev/input/event5", Name: "Logitech USB Optical Mouse", Pointer: true},
		{Path: "/dev/input/event11", Name: "SynPS/2 Synaptics TouchPad", Pointer: true},
	}
}

func press(m *pickerModel, keys ...tea.KeyMsg) {
	for _, k := range keys {
		m.Update(k)
	}
}

func TestPickerSelect(t *testing.T) {
	m := newPickerModel("record", testNodes())
	if len(m.visible) != 3 {
		t.Fatalf("visible = %d, want 3", len(m.visible))
	}

	press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 2 {
		t.Errorf("selected = %d, want 2 (clamped)", m.selected)
	}
	press(m, tea.KeyMsg{Type: tea.KeyUp})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.chosen != "/dev/input/event5" {
		t.Errorf("chosen = %q", m.chosen)
	}
}

func TestPickerFilter(t *testing.T) {
	m := newPickerModel("describe", testNodes())
	press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})

	for _, r := range "touch" {
		press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(m.visible) != 1 {
		t.Fatalf("visible = %d, want 1", len(m.visible))
	}
	if m.selected != 0 {
		t.Errorf("selected = %d, want 0", m.selected)
	}
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.chosen != "/dev/input/event11" {
		t.Errorf("chosen = %q", m.chosen)
	}
}

func TestPickerNoMatch(t *testing.T) {
	m := newPickerModel("describe", testNodes())
	for _, r := range "joystick" {
		press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(m.visible) != 0 {
		t.Fatalf("visible = %d, want 0", len(m.visible))
	}
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.chosen != "" {
		t.Errorf("chosen = %q, want none", m.chosen)
	}
	if view := m.View(); view == "" {
		t.Error("empty view")
	}
}

func TestPickerCancel(t *testing.T) {
	m := newPickerModel("record", testNodes())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should quit")
	}
	if m.chosen != "" {
		t.Errorf("chosen = %q, want none", m.chosen)
	}
}
