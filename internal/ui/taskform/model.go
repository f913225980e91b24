package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/dates"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/theme"
)

// TaskCreatedMsg is dispatched when a new task is submitted via the form.
type TaskCreatedMsg struct {
	Task model.Task
}

// TaskUpdatedMsg is dispatched when an existing task is submitted via the
// form. A nil Task.DueTo means the due date was cleared.
type TaskUpdatedMsg struct {
	Task model.Task
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name       string
	categoryID string
	note       string
	due        string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form       *huh.Form
	fb         *formBindings
	editMode   bool
	editID     string
	categories []model.Category
	now        func() time.Time
	width      int
	height     int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// SetCategories sets the options of the category selector.
func (m *Model) SetCategories(categories []model.Category) {
	m.categories = categories
}

// StartCreate initializes the form for a new task, preselecting
// categoryID when it is not empty.
func (m *Model) StartCreate(categoryID string) tea.Cmd {
	m.editMode = false
	m.editID = ""
	m.fb.name = ""
	m.fb.note = ""
	m.fb.due = ""
	m.fb.categoryID = categoryID
	if m.fb.categoryID == "" && len(m.categories) > 0 {
		m.fb.categoryID = m.categories[0].ID
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing an existing task. The category
// of a task is fixed once created.
func (m *Model) StartEdit(task model.Task) tea.Cmd {
	m.editMode = true
	m.editID = task.ID
	m.fb.name = task.Name
	m.fb.note = task.Note
	m.fb.categoryID = task.CategoryID
	m.fb.due = ""
	if task.DueTo != nil {
		m.fb.due = dates.Format(task.DueTo)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Placeholder("What are you checking off?").
			Value(&m.fb.name).
			Validate(validateRequired("Name")),
	}
	if !m.editMode {
		fields = append(fields, m.categoryField())
	}
	fields = append(fields,
		huh.NewText().
			Title("Note").
			Placeholder("Optional details...").
			Value(&m.fb.note),
		huh.NewInput().
			Title("Due").
			Placeholder("2026-10-20 09:00, tomorrow 9am, next friday (optional)").
			Value(&m.fb.due).
			Validate(m.validateOptionalDue),
	)

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) categoryField() huh.Field {
	opts := make([]huh.Option[string], len(m.categories))
	for i, c := range m.categories {
		opts[i] = huh.NewOption(c.Name, c.ID)
	}
	return huh.NewSelect[string]().
		Title("Category").
		Options(opts...).
		Value(&m.fb.categoryID).
		Validate(func(id string) error {
			if id == "" {
				return fmt.Errorf("create a category first")
			}
			return nil
		})
}

func (m Model) handleSubmit() tea.Cmd {
	task := model.Task{
		Name:       strings.TrimSpace(m.fb.name),
		CategoryID: m.fb.categoryID,
		Note:       m.fb.note,
	}
	if due, ok := m.parseDue(); ok {
		task.DueTo = &due
	}

	if m.editMode {
		task.ID = m.editID
		return func() tea.Msg { return TaskUpdatedMsg{Task: task} }
	}
	return func() tea.Msg { return TaskCreatedMsg{Task: task} }
}

func (m Model) parseDue() (time.Time, bool) {
	if strings.TrimSpace(m.fb.due) == "" {
		return time.Time{}, false
	}
	due, err := dates.ParseDue(m.fb.due, m.now())
	if err != nil {
		return time.Time{}, false
	}
	return due, true
}

func (m Model) validateOptionalDue(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := dates.ParseDue(s, m.now()); err != nil {
		return err
	}
	return nil
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
