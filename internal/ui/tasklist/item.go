package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskcheck/internal/dates"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/theme"
)

// TaskItem is one board row: a task with its derived status and progress.
type TaskItem struct {
	Task     model.Task
	Category string
	Status   model.TaskStatus
	Done     int
	Total    int
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Name }

// Title returns the task name for the list.
func (i TaskItem) Title() string { return i.Task.Name }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	return fmt.Sprintf("%s | %d/%d", i.Status, i.Done, i.Total)
}

// Rows builds the board rows for one category, or for every category when
// categoryID is empty, ordered by key.
func Rows(snap model.Snapshot, categoryID string, key status.SortKey) []TaskItem {
	var tasks []model.Task
	for _, t := range snap.Tasks {
		if categoryID == "" || t.CategoryID == categoryID {
			tasks = append(tasks, t)
		}
	}

	statuses := status.Index(tasks, snap.TaskChecks)
	sorted := status.Sort(tasks, key, func(t model.Task) model.TaskStatus {
		return statuses[t.ID]
	})

	rows := make([]TaskItem, len(sorted))
	for i, t := range sorted {
		done, total := status.Progress(snap.ChecksForTask(t.ID))
		rows[i] = TaskItem{
			Task:     t,
			Category: snap.CategoryName(t.CategoryID),
			Status:   statuses[t.ID],
			Done:     done,
			Total:    total,
		}
	}
	return rows
}

// ItemDelegate implements list.ItemDelegate for rendering board rows.
type ItemDelegate struct {
	// ShowCategory adds the category name to each row when the board is
	// not filtered to one category.
	ShowCategory bool

	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single board row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(TaskItem)
	if !ok {
		return
	}
	now := time.Now
	if d.now != nil {
		now = d.now
	}

	fmt.Fprint(w, renderRow(it, d.ShowCategory, index == m.Index(), now()))
}

func renderRow(it TaskItem, showCategory, selected bool, now time.Time) string {
	prefix := "○"
	if it.Status == model.StatusDone {
		prefix = "✓"
	}

	badge := theme.StatusStyle(it.Status).Render(fmt.Sprintf("%-5s", it.Status))
	progress := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(fmt.Sprintf("%d/%d", it.Done, it.Total))

	category := ""
	if showCategory && it.Category != "" {
		category = lipgloss.NewStyle().
			Foreground(theme.ColorBlue).
			Render(" [" + it.Category + "]")
	}

	due := ""
	if it.Task.DueTo != nil {
		due = theme.DueDateStyle.Render(" " + dates.Format(it.Task.DueTo))
		if it.Status != model.StatusDone && dates.Overdue(it.Task.DueTo, now) {
			due += theme.OverdueStyle.Render(" OVERDUE")
		}
	}

	line := fmt.Sprintf("%s %s %s %s%s%s", prefix, badge, progress, it.Task.Name, category, due)

	if it.Status == model.StatusDone {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}
