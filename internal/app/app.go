package app

import (
	"fmt"
	"log"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/store"
	appsync "github.com/nhle/taskcheck/internal/sync"
	"github.com/nhle/taskcheck/internal/transfer"
	"github.com/nhle/taskcheck/internal/ui"
	"github.com/nhle/taskcheck/internal/ui/categorymgr"
	"github.com/nhle/taskcheck/internal/ui/command"
	"github.com/nhle/taskcheck/internal/ui/detail"
	helpview "github.com/nhle/taskcheck/internal/ui/help"
	"github.com/nhle/taskcheck/internal/ui/taskform"
	"github.com/nhle/taskcheck/internal/ui/tasklist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskCreate
	ViewTaskEdit
	ViewCategories
)

// Options configures the root model.
type Options struct {
	// Sort is the initial board ordering.
	Sort status.SortKey

	// ExportDir receives exports started from the command palette.
	ExportDir string

	// Logger receives sync and import logs. Nil logs to stderr.
	Logger *log.Logger
}

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the persistence layer.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        store.Store
	importer     *transfer.Importer
	syncer       *appsync.Syncer
	session      *appsync.Session
	snap         model.Snapshot
	keys         *keys.KeyMap
	exportDir    string
	taskList     tasklist.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	categoryView categorymgr.Model
	ready        bool
	notice       string
}

// New creates a new root application model backed by s.
func New(s store.Store, opts Options) Model {
	k := keys.DefaultKeyMap()
	if opts.Sort == "" {
		opts.Sort = status.SortByDue
	}

	return Model{
		currentView:  ViewList,
		store:        s,
		importer:     transfer.NewImporter(s, opts.Logger),
		syncer:       appsync.New(s, opts.Logger),
		keys:         k,
		exportDir:    opts.ExportDir,
		taskList:     tasklist.New(k, opts.Sort, 80, 24),
		detail:       detail.New(k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
		taskForm:     taskform.New(80, 24),
		categoryView: categorymgr.New(s, k, 80, 24),
	}
}

// Init loads the initial state; live syncing starts once it arrives.
func (m Model) Init() tea.Cmd {
	return m.loadInitialState()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.taskList.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.taskForm.SetSize(contentWidth, contentHeight)
		m.categoryView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case initialStateMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.applyState(msg.snap)
		return m, m.startSession()

	case appsync.StateMsg:
		if m.session == nil || msg.SessionID != m.session.ID() {
			return m, nil
		}
		m.applyState(msg.State)
		return m, m.session.WaitForUpdate()

	case actionResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.notice = msg.notice
		}
		return m, nil

	case tasklist.SelectedTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.Open(m.snap, msg.TaskID)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ToggleCheckMsg:
		return m, m.toggleCheck(msg.CheckID)

	case detail.AddItemMsg:
		return m, m.addItem(msg.TaskID, msg.Name)

	case detail.RemoveItemMsg:
		return m, m.removeItem(msg.ItemID)

	case detail.EditTaskMsg:
		return m, m.startEdit(msg.TaskID)

	case taskform.TaskCreatedMsg:
		m.currentView = ViewList
		return m, m.createTask(msg.Task)

	case taskform.TaskUpdatedMsg:
		m.currentView = m.previousView
		return m, m.updateTask(msg.Task)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case categorymgr.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		m.notice = ""
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturingInput reports whether the active view is consuming raw text, in
// which case single-letter shortcuts must reach it untouched.
func (m Model) capturingInput() bool {
	switch m.currentView {
	case ViewCommand, ViewTaskCreate, ViewTaskEdit:
		return true
	case ViewDetail:
		return m.detail.Adding()
	case ViewCategories:
		return m.categoryView.Editing()
	}
	return false
}

// handleGlobalKey handles keys that work across views. It reports whether
// the key was consumed.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}
	if m.capturingInput() {
		if m.currentView == ViewCommand && msg.Type == tea.KeyEsc {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	}

	if m.currentView == ViewHelp && key.Matches(msg, m.keys.Back) {
		m.currentView = m.previousView
		return nil, true
	}
	if m.currentView != ViewList {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.New):
		if len(m.snap.Categories) == 0 {
			m.notice = "Create a category first (press c)"
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewTaskCreate
		return m.taskForm.StartCreate(m.taskList.CategoryID()), true

	case key.Matches(msg, m.keys.Edit):
		task, ok := m.taskList.SelectedTask()
		if !ok {
			return nil, true
		}
		return m.startEdit(task.ID), true

	case key.Matches(msg, m.keys.Delete):
		task, ok := m.taskList.SelectedTask()
		if !ok {
			return nil, true
		}
		return m.deleteTask(task.ID, task.Name), true

	case key.Matches(msg, m.keys.Categories):
		m.previousView = m.currentView
		m.currentView = ViewCategories
		return nil, true
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewCategories:
		m.categoryView, cmd = m.categoryView.Update(msg)
	}

	return m, cmd
}

// applyState pushes a new snapshot into every view.
func (m *Model) applyState(snap model.Snapshot) {
	m.snap = snap
	m.taskList.SetState(snap)
	m.detail.SetState(snap)
	m.categoryView.SetState(snap)
	m.taskForm.SetCategories(snap.Categories)
}

// startEdit opens the task form on a task from the current state.
func (m *Model) startEdit(taskID string) tea.Cmd {
	for _, t := range m.snap.Tasks {
		if t.ID == taskID {
			m.previousView = m.currentView
			m.currentView = ViewTaskEdit
			return m.taskForm.StartEdit(t)
		}
	}
	return nil
}

// quit ends live syncing and exits the program.
func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}

// Close ends live syncing. It is safe to call more than once.
func (m Model) Close() {
	if m.session != nil {
		m.session.Stop()
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("taskcheck", m.summary())
	tabs := m.layout.RenderTabs(m.taskList.TabNames(), m.taskList.TabIndex())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, tabs, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.taskForm.View()
	case ViewCategories:
		return m.categoryView.View()
	default:
		return ""
	}
}

// summary returns the task counts per status for the header.
func (m Model) summary() string {
	counts := status.Counts(status.Index(m.snap.Tasks, m.snap.TaskChecks))
	return fmt.Sprintf("todo %d | doing %d | done %d",
		counts[model.StatusTodo], counts[model.StatusDoing], counts[model.StatusDone])
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.notice != "" {
		return m.notice
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		if m.detail.Adding() {
			return "enter add | esc cancel"
		}
		return "space toggle | a add item | d remove item | e edit | esc back"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter submit | esc cancel"
	case ViewCategories:
		return "n new | e edit | d delete | esc back"
	default:
		return fmt.Sprintf("q quit | ? help | n new | c categories | h/l category | tab sort: %s", m.taskList.SortKey())
	}
}
