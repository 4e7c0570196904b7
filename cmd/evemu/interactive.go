package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/evemu/inputdev"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	pointerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type pickerModel struct {
	title    string
	chosen   string
	nodes    []inputdev.Node
	visible  []inputdev.Node
	filter   textinput.Model
	selected int
}

func newPickerModel(title string, nodes []inputdev.Node) *pickerModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "device name or path"
	ti.Width = 40
	ti.Focus()

	m := &pickerModel{
		title:  title,
		nodes:  nodes,
		filter: ti,
	}
	m.applyFilter()
	return m
}

func (m *pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up", "ctrl+p":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "ctrl+n":
			if m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if len(m.visible) > 0 {
				m.chosen = m.visible[m.selected].Path
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.applyFilter()
	}
	return m, cmd
}

func (m *pickerModel) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = m.visible[:0]
	for _, n := range m.nodes {
		if needle == "" ||
			strings.Contains(strings.ToLower(n.Name), needle) ||
			strings.Contains(n.Path, needle) {
			m.visible = append(m.visible, n)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *pickerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("evemu " + m.title))
	b.WriteString("\n\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString("No matching devices.\n")
	}
	for i, n := range m.visible {
		line := fmt.Sprintf("%-20s %s", n.Path, n.Name)
		if n.Pointer {
			line += " " + pointerStyle.Render("pointer")
		}
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + pathStyle.Render(n.Path) + strings.TrimPrefix(line, n.Path))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • type to filter • enter choose • esc cancel"))
	return b.String()
}

// runPicker lets the user choose one of nodes and returns its path.
func runPicker(title string, nodes []inputdev.Node) (string, error) {
	m := newPickerModel(title, nodes)
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	if _, err := p.Run(); err != nil {
		return "", err
	}
	if m.chosen == "" {
		return "", fmt.Errorf("no device selected")
	}
	return m.chosen, nil
}
