package detail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/dates"
	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// ToggleCheckMsg asks the parent to flip one check.
type ToggleCheckMsg struct {
	CheckID string
}

// AddItemMsg asks the parent to add an ad-hoc line to a task.
type AddItemMsg struct {
	TaskID string
	Name   string
}

// RemoveItemMsg asks the parent to delete an ad-hoc line.
type RemoveItemMsg struct {
	ItemID string
}

// EditTaskMsg asks the parent to open the task form.
type EditTaskMsg struct {
	TaskID string
}

// Line is one checklist row: a check and the template it instantiates.
type Line struct {
	Check model.TaskCheck
	Item  model.CheckItem
}

// Lines returns the checklist of a task in position order. Checks whose
// template is missing from snap are skipped.
func Lines(snap model.Snapshot, taskID string) []Line {
	var out []Line
	for _, tc := range snap.ChecksForTask(taskID) {
		item, ok := snap.CheckItemByID(tc.CheckItemID)
		if !ok {
			continue
		}
		out = append(out, Line{Check: tc, Item: item})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Check.SortPosition < out[j].Check.SortPosition
	})
	return out
}

// headerLines is the number of rendered lines above the first checklist row.
const headerLines = 6

// Model is the checklist view of one task.
type Model struct {
	keys     *keys.KeyMap
	snap     model.Snapshot
	taskID   string
	task     *model.Task
	lines    []Line
	cursor   int
	adding   bool
	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
}

// New creates a new checklist view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.Placeholder = "new checklist item"
	ti.Prompt = "+ "
	ti.CharLimit = 200
	ti.Width = width - 6

	return Model{
		keys:     k,
		input:    ti,
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the checklist view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Open shows the checklist of taskID with the cursor on the first line.
func (m *Model) Open(snap model.Snapshot, taskID string) {
	m.taskID = taskID
	m.cursor = 0
	m.adding = false
	m.input.Reset()
	m.SetState(snap)
	m.viewport.GotoTop()
}

// SetState refreshes the view from a new snapshot. The cursor stays on the
// same check when it still exists.
func (m *Model) SetState(snap model.Snapshot) {
	var current string
	if m.cursor < len(m.lines) {
		current = m.lines[m.cursor].Check.ID
	}

	m.snap = snap
	m.task = nil
	for _, t := range snap.Tasks {
		if t.ID == m.taskID {
			task := t
			m.task = &task
			break
		}
	}
	m.lines = Lines(snap, m.taskID)

	for i, l := range m.lines {
		if l.Check.ID == current {
			m.cursor = i
		}
	}
	if m.cursor >= len(m.lines) {
		m.cursor = max(len(m.lines)-1, 0)
	}
	m.render()
}

// TaskID returns the task being shown.
func (m Model) TaskID() string {
	return m.taskID
}

// Adding reports whether the new-item input has focus.
func (m Model) Adding() bool {
	return m.adding
}

// Update handles messages for the checklist view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.adding {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	if m.adding {
		return m.updateInput(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.lines)-1 {
			m.cursor++
			m.render()
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.render()
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Toggle):
		if len(m.lines) == 0 {
			return m, nil
		}
		id := m.lines[m.cursor].Check.ID
		return m, func() tea.Msg { return ToggleCheckMsg{CheckID: id} }

	case key.Matches(keyMsg, m.keys.AddItem):
		if m.task == nil {
			return m, nil
		}
		m.adding = true
		m.input.Reset()
		m.render()
		return m, m.input.Focus()

	case key.Matches(keyMsg, m.keys.Delete):
		if len(m.lines) == 0 || !m.lines[m.cursor].Item.IsAdHoc() {
			return m, nil
		}
		id := m.lines[m.cursor].Item.ID
		return m, func() tea.Msg { return RemoveItemMsg{ItemID: id} }

	case key.Matches(keyMsg, m.keys.Edit):
		if m.task == nil {
			return m, nil
		}
		id := m.taskID
		return m, func() tea.Msg { return EditTaskMsg{TaskID: id} }
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		name := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		m.render()
		if name == "" {
			return m, nil
		}
		id := m.taskID
		return m, func() tea.Msg { return AddItemMsg{TaskID: id, Name: name} }

	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		m.render()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the checklist view.
func (m Model) View() string {
	if m.task == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("This task no longer exists.\n\nPress esc to go back.")
	}

	if m.adding {
		return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), "  "+m.input.View())
	}
	return m.viewport.View()
}

func (m *Model) render() {
	m.viewport.SetContent(m.renderContent())

	row := headerLines + m.cursor
	switch {
	case row < m.viewport.YOffset:
		m.viewport.SetYOffset(row)
	case row >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(row - m.viewport.Height + 1)
	}
}

// renderContent builds the header and checklist for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}
	task := m.task
	checks := make([]model.TaskCheck, len(m.lines))
	for i, l := range m.lines {
		checks[i] = l.Check
	}
	st := status.Compute(checks)
	done, total := status.Progress(checks)

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	badges := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.StatusStyle(st).Render(string(st)),
		metaStyle.Render(fmt.Sprintf(" %d/%d  %s", done, total, m.snap.CategoryName(task.CategoryID))),
	)

	due := metaStyle.Render("Due: ") + "-"
	if task.DueTo != nil {
		due = metaStyle.Render("Due: ") + theme.DueDateStyle.Render(dates.Format(task.DueTo))
	}

	note := task.Note
	if note == "" {
		note = metaStyle.Italic(true).Render("No note")
	} else {
		note = strings.ReplaceAll(note, "\n", " ")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))

	sections := []string{
		titleStyle.Render(task.Name),
		badges,
		due,
		note,
		sep,
		"",
	}

	if len(m.lines) == 0 {
		sections = append(sections, metaStyle.Italic(true).Render("No checklist items. Press a to add one."))
	}
	for i, l := range m.lines {
		sections = append(sections, renderLine(l, i == m.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderLine(l Line, selected bool) string {
	box := "[ ]"
	if l.Check.IsDone {
		box = "[x]"
	}
	text := box + " " + l.Item.Name
	if l.Item.IsAdHoc() {
		text += theme.DimmedStyle.Render(" (this task only)")
	}
	if l.Check.IsDone {
		text = theme.DimmedStyle.Render(text)
	}
	if selected {
		return theme.SelectedItemStyle.Render(text)
	}
	return theme.ListItemStyle.Render(text)
}

// SetSize updates the checklist view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.input.Width = width - 6
	m.render()
}
