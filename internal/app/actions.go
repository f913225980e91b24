package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/store"
	"github.com/nhle/taskcheck/internal/transfer"
	"github.com/nhle/taskcheck/internal/ui/command"
)

// actionResultMsg is sent after a write finishes. The new state arrives
// separately through the sync session.
type actionResultMsg struct {
	notice string
	err    error
}

func result(notice string, err error) tea.Msg {
	return actionResultMsg{notice: notice, err: err}
}

// createTask persists a new task; its checklist is copied from the
// category's templates.
func (m *Model) createTask(task model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		created, err := s.CreateTask(context.Background(), task)
		if err != nil {
			return result("", err)
		}
		return result(fmt.Sprintf("Created %q", created.Name), nil)
	}
}

// updateTask saves the editable fields of a task.
func (m *Model) updateTask(task model.Task) tea.Cmd {
	s := m.store
	patch := store.TaskPatch{
		Name:     &task.Name,
		Note:     &task.Note,
		DueTo:    task.DueTo,
		ClearDue: task.DueTo == nil,
	}
	return func() tea.Msg {
		err := s.UpdateTask(context.Background(), task.ID, patch)
		return result(fmt.Sprintf("Saved %q", task.Name), err)
	}
}

// deleteTask removes a task with its checklist.
func (m *Model) deleteTask(id, name string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		err := s.DeleteTask(context.Background(), id)
		return result(fmt.Sprintf("Deleted %q", name), err)
	}
}

// toggleCheck flips one checklist line.
func (m *Model) toggleCheck(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return result("", s.ToggleTaskCheck(context.Background(), id))
	}
}

// addItem adds an ad-hoc checklist line to one task.
func (m *Model) addItem(taskID, name string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		_, err := s.AddTaskCheckItem(context.Background(), taskID, name)
		return result("", err)
	}
}

// removeItem deletes an ad-hoc checklist line.
func (m *Model) removeItem(itemID string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return result("", s.DeleteCheckItem(context.Background(), itemID))
	}
}

// exportTo writes a JSON snapshot to path, or to a timestamped file in the
// export directory when path is empty.
func (m *Model) exportTo(path string) tea.Cmd {
	s := m.store
	if path == "" {
		path = filepath.Join(m.exportDir, transfer.BackupFileName(time.Now()))
	}
	return func() tea.Msg {
		err := transfer.ExportFile(context.Background(), s, path)
		return result("Exported to "+path, err)
	}
}

// importFrom merges a JSON snapshot file into the store.
func (m *Model) importFrom(path string) tea.Cmd {
	im := m.importer
	return func() tea.Msg {
		report, err := im.ImportFile(context.Background(), path)
		if err != nil {
			return result("", err)
		}
		return result("Imported: "+report.Summary(), nil)
	}
}

// executeCommand handles a line from the command palette.
func (m *Model) executeCommand(line string) tea.Cmd {
	c, err := command.Parse(line)
	if err != nil {
		m.notice = fmt.Sprintf("Error: %v", err)
		return nil
	}

	switch c.Name {
	case command.Sort:
		k, _ := status.ParseSortKey(c.Arg)
		m.taskList.SetSortKey(k)
		return nil
	case command.Export:
		return m.exportTo(c.Arg)
	case command.Import:
		return m.importFrom(c.Arg)
	case command.Categories:
		m.previousView = m.currentView
		m.currentView = ViewCategories
		return nil
	case command.Quit:
		return m.quit()
	}
	return nil
}
