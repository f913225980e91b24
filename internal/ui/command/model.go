package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg string

// Name identifies a palette command.
type Name string

const (
	Sort       Name = "sort"
	Export     Name = "export"
	Import     Name = "import"
	Categories Name = "categories"
	Quit       Name = "quit"
)

// Command is a parsed palette line.
type Command struct {
	Name Name
	Arg  string
}

// Parse reads a palette line such as "sort status" or "export ~/out.json".
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	name := Name(strings.ToLower(fields[0]))
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch name {
	case Sort:
		if _, err := status.ParseSortKey(arg); err != nil {
			return Command{}, err
		}
	case Import:
		if arg == "" {
			return Command{}, fmt.Errorf("import needs a file path")
		}
	case Export:
	case Categories, Quit, "q":
		if arg != "" {
			return Command{}, fmt.Errorf("%s takes no arguments", name)
		}
		if name == "q" {
			name = Quit
		}
	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	return Command{Name: name, Arg: arg}, nil
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "sort status, export, import FILE, categories, quit"
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			cmd := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd != "" {
				return m, func() tea.Msg {
					return CommandMsg(cmd)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()

	content := lipgloss.JoinVertical(lipgloss.Left, title, input)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
