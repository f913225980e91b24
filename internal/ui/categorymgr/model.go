package categorymgr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/theme"
)

// CloseMsg signals the parent to close the category manager.
type CloseMsg struct{}

// Writer is the subset of the store the manager writes through.
type Writer interface {
	CreateCategory(ctx context.Context, name string, itemNames []string) (*model.Category, error)
	UpdateCategory(ctx context.Context, id, name string, itemNames []string) error
	DeleteCategory(ctx context.Context, id string) error
}

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	name    string
	items   string
	confirm bool
}

// writtenMsg reports the outcome of a save or delete; notice is shown on
// success.
type writtenMsg struct {
	notice string
	err    error
}

// Model is the Bubble Tea model for category management. The list is fed
// from live state; writes go through the store and come back the same way.
type Model struct {
	mode        mode
	store       Writer
	keys        *keys.KeyMap
	snap        model.Snapshot
	selectedIdx int
	editingID   string
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a new category manager model.
func New(s Writer, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:  modeList,
		store: s,
		keys:  k,
		fb:    &formBindings{},
		width: width, height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetState refreshes the category list.
func (m *Model) SetState(snap model.Snapshot) {
	m.snap = snap
	if m.selectedIdx >= len(snap.Categories) {
		m.selectedIdx = max(len(snap.Categories)-1, 0)
	}
}

// Editing reports whether a form or confirmation has focus.
func (m Model) Editing() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case writtenMsg:
		m.statusMsg = msg.notice
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		}
		m.mode = modeList
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	cats := m.snap.Categories

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(cats) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(cats)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(cats) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(cats) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.isNew = true
		m.editingID = ""
		m.fb.name = ""
		m.fb.items = ""
		m.statusMsg = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(cats) == 0 {
			return m, nil
		}
		c := cats[m.selectedIdx]
		m.isNew = false
		m.editingID = c.ID
		m.fb.name = c.Name
		m.fb.items = strings.Join(TemplateNames(m.snap, c.ID), "\n")
		m.statusMsg = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if len(cats) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.statusMsg = ""
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

// TemplateNames returns the names of a category's templates in order.
func TemplateNames(snap model.Snapshot, categoryID string) []string {
	var items []model.CheckItem
	for _, ci := range snap.CheckItems {
		if ci.CategoryID != nil && *ci.CategoryID == categoryID {
			items = append(items, ci)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortPosition < items[j].SortPosition
	})
	names := make([]string, len(items))
	for i, ci := range items {
		names[i] = ci.Name
	}
	return names
}

// SplitItems turns the one-per-line items field into item names.
func SplitItems(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (m Model) taskCount(categoryID string) int {
	n := 0
	for _, t := range m.snap.Tasks {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n
}

func (m Model) buildForm() *huh.Form {
	itemsDesc := "One per line. Every task in the category gets these checks."
	if !m.isNew {
		itemsDesc = "One per line. Saving restarts these checks as not done on existing tasks."
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Category name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Checklist items").
				Description(itemsDesc).
				Value(&m.fb.items).
				Validate(func(s string) error {
					seen := make(map[string]bool)
					for _, n := range SplitItems(s) {
						if seen[n] {
							return fmt.Errorf("%q is listed twice", n)
						}
						seen[n] = true
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	c := m.snap.Categories[m.selectedIdx]
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete category %q?", c.Name)).
				Description(fmt.Sprintf("Its %d task(s) and their checklists will be deleted too.", m.taskCount(c.ID))).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// advance forwards msg to a huh form.
func advance(f *huh.Form, msg tea.Msg) (*huh.Form, tea.Cmd) {
	next, cmd := f.Update(msg)
	if nf, ok := next.(*huh.Form); ok {
		f = nf
	}
	return f, cmd
}

// settle reacts to a form's state: on completion onDone supplies the
// follow-up command, and an aborted form returns to the list.
func (m Model) settle(state huh.FormState, cmd tea.Cmd, onDone func() tea.Cmd) (Model, tea.Cmd) {
	switch state {
	case huh.StateCompleted:
		if done := onDone(); done != nil {
			return m, done
		}
		m.mode = modeList
		return m, nil
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = advance(m.form, msg)
	return m.settle(m.form.State, cmd, m.saveCategory)
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.confirmForm, cmd = advance(m.confirmForm, msg)
	return m.settle(m.confirmForm.State, cmd, func() tea.Cmd {
		if !m.fb.confirm || m.selectedIdx >= len(m.snap.Categories) {
			return nil
		}
		return m.deleteCategory(m.snap.Categories[m.selectedIdx].ID)
	})
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the category manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Categories"))
	b.WriteString("\n\n")

	if len(m.snap.Categories) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No categories yet. Press 'n' to create one."))
	} else {
		countStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
		for i, c := range m.snap.Categories {
			label := c.Name + countStyle.Render(fmt.Sprintf("  %d items, %d tasks",
				len(TemplateNames(m.snap, c.ID)), m.taskCount(c.ID)))

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"n new | e edit | d delete | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func (m Model) saveCategory() tea.Cmd {
	s := m.store
	name := m.fb.name
	items := SplitItems(m.fb.items)
	editID := m.editingID
	isNew := m.isNew
	return func() tea.Msg {
		var err error
		if isNew {
			_, err = s.CreateCategory(context.Background(), name, items)
		} else {
			err = s.UpdateCategory(context.Background(), editID, name, items)
		}
		return writtenMsg{notice: "Category saved", err: err}
	}
}

func (m Model) deleteCategory(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return writtenMsg{notice: "Category deleted", err: s.DeleteCategory(context.Background(), id)}
	}
}
