package tasklist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/theme"
)

// AllCategories is the label of the unfiltered tab.
const AllCategories = "All"

// SelectedTaskMsg is sent when a user opens a task's checklist.
type SelectedTaskMsg struct {
	TaskID string
}

// Model is the task board: tasks of the current category tab with their
// derived status.
type Model struct {
	list       list.Model
	keys       *keys.KeyMap
	snap       model.Snapshot
	categoryID string
	sortKey    status.SortKey
	width      int
	height     int
}

// New creates a new task board ordered by sortKey.
func New(k *keys.KeyMap, sortKey status.SortKey, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{ShowCategory: true}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		list:    l,
		keys:    k,
		sortKey: sortKey,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetState replaces the data behind the board. The category tab and the
// selected task survive the refresh when they still exist.
func (m *Model) SetState(snap model.Snapshot) {
	m.snap = snap
	if m.categoryID != "" && snap.CategoryName(m.categoryID) == "" {
		m.categoryID = ""
	}
	m.refresh()
}

func (m *Model) refresh() {
	selected, hasSelected := m.SelectedTask()

	rows := Rows(m.snap, m.categoryID, m.sortKey)
	items := make([]list.Item, len(rows))
	index := 0
	for i, r := range rows {
		items[i] = r
		if hasSelected && r.Task.ID == selected.ID {
			index = i
		}
	}
	m.list.SetDelegate(ItemDelegate{ShowCategory: m.categoryID == ""})
	m.list.SetItems(items)
	m.list.Select(index)
}

// Update handles messages for the task board.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			task, ok := m.SelectedTask()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return SelectedTaskMsg{TaskID: task.ID}
			}

		case key.Matches(msg, m.keys.NextCategory):
			m.shiftCategory(1)
			return m, nil

		case key.Matches(msg, m.keys.PrevCategory):
			m.shiftCategory(-1)
			return m, nil

		case key.Matches(msg, m.keys.CycleSort):
			m.SetSortKey(m.sortKey.Next())
			return m, nil
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// shiftCategory moves the tab by delta, wrapping around. Tab 0 is the
// unfiltered board.
func (m *Model) shiftCategory(delta int) {
	n := len(m.snap.Categories) + 1
	next := (m.TabIndex() + delta + n) % n
	if next == 0 {
		m.categoryID = ""
	} else {
		m.categoryID = m.snap.Categories[next-1].ID
	}
	m.list.Select(0)
	m.refresh()
}

// SetSortKey changes the ordering.
func (m *Model) SetSortKey(k status.SortKey) {
	m.sortKey = k
	m.refresh()
}

// SetCategory filters the board to one category; empty shows all.
func (m *Model) SetCategory(id string) {
	m.categoryID = id
	m.refresh()
}

// SortKey returns the current ordering.
func (m Model) SortKey() status.SortKey {
	return m.sortKey
}

// CategoryID returns the filtered category, or empty for all.
func (m Model) CategoryID() string {
	return m.categoryID
}

// TabNames returns the tab labels, the unfiltered tab first.
func (m Model) TabNames() []string {
	names := []string{AllCategories}
	for _, c := range m.snap.Categories {
		names = append(names, c.Name)
	}
	return names
}

// TabIndex returns the position of the current tab in TabNames.
func (m Model) TabIndex() int {
	for i, c := range m.snap.Categories {
		if c.ID == m.categoryID {
			return i + 1
		}
	}
	return 0
}

// SelectedTask returns the highlighted task, if any.
func (m Model) SelectedTask() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return it.Task, true
}

// View renders the task board.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when the board has no rows.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if len(m.snap.Categories) == 0 {
		return style.Render("No categories yet.\n\nPress c to create one.")
	}
	if m.categoryID != "" {
		return style.Render("No tasks in this category.\n\nPress n to add one.")
	}
	return style.Render("No tasks yet.\n\nPress n to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
