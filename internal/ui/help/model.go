package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/theme"
)

// Model is the help page: key bindings, the status legend and the palette
// commands, scrollable when the terminal is short.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	viewport viewport.Model
	width    int
	height   int
}

// New creates a new help view model.
func New(k *keys.KeyMap, width, height int) Model {
	m := Model{
		keys:     k,
		help:     help.New(),
		viewport: viewport.New(width, height),
	}
	m.help.ShowAll = true
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update scrolls the page.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the help page.
func (m Model) View() string {
	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(m.viewport.View())
}

func (m Model) render() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections := []string{
		heading.Render("Keys"),
		m.help.View(m.keys),
		"",
		heading.Render("Status"),
		legend(),
		"",
		heading.Render("Commands (press :)"),
		theme.DimmedStyle.Render(commands()),
	}
	return strings.Join(sections, "\n")
}

func legend() string {
	rows := []struct {
		status model.TaskStatus
		desc   string
	}{
		{model.StatusTodo, "nothing checked yet, or no items"},
		{model.StatusDoing, "some items checked"},
		{model.StatusDone, "every item checked"},
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "  %s  %s\n", theme.StatusStyle(r.status).Render(fmt.Sprintf("%-5s", r.status)), r.desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func commands() string {
	sortKeys := make([]string, len(status.SortKeys))
	for i, k := range status.SortKeys {
		sortKeys[i] = string(k)
	}
	lines := []string{
		"  sort " + strings.Join(sortKeys, " | "),
		"  export [file]      write a JSON snapshot",
		"  import <file>      merge a JSON snapshot",
		"  categories         manage categories",
		"  quit",
	}
	return strings.Join(lines, "\n")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-8, 0)
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-6, 0)
	m.viewport.SetContent(m.render())
}
