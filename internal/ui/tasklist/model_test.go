package tasklist

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/keys"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
)

func boardSnapshot() model.Snapshot {
	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	due := t0.Add(48 * time.Hour)
	return model.Snapshot{
		Categories: []model.Category{
			{ID: "c1", Name: "朝の準備"},
			{ID: "c2", Name: "出張"},
		},
		Tasks: []model.Task{
			{ID: "t1", CategoryID: "c1", Name: "月曜", CreatedAt: t0, DueTo: &due},
			{ID: "t2", CategoryID: "c1", Name: "火曜", CreatedAt: t0.Add(time.Hour)},
			{ID: "t3", CategoryID: "c2", Name: "大阪", CreatedAt: t0.Add(2 * time.Hour)},
		},
		TaskChecks: []model.TaskCheck{
			{ID: "k1", TaskID: "t1", IsDone: true},
			{ID: "k2", TaskID: "t1"},
			{ID: "k3", TaskID: "t3", IsDone: true},
		},
	}
}

func names(rows []TaskItem) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Task.Name
	}
	return out
}

func TestRows(t *testing.T) {
	snap := boardSnapshot()

	all := Rows(snap, "", status.SortByStatus)
	assert.Equal(t, []string{"火曜", "月曜", "大阪"}, names(all))
	assert.Equal(t, model.StatusTodo, all[0].Status)
	assert.Equal(t, model.StatusDoing, all[1].Status)
	assert.Equal(t, 1, all[1].Done)
	assert.Equal(t, 2, all[1].Total)
	assert.Equal(t, "朝の準備", all[1].Category)
	assert.Equal(t, model.StatusDone, all[2].Status)

	byCreated := Rows(snap, "", status.SortByCreated)
	assert.Equal(t, []string{"大阪", "火曜", "月曜"}, names(byCreated))

	byDue := Rows(snap, "c1", status.SortByDue)
	assert.Equal(t, []string{"月曜", "火曜"}, names(byDue))

	assert.Empty(t, Rows(snap, "missing", status.SortByDue))
}

func TestRenderRowFlagsOverdue(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)

	open := TaskItem{Task: model.Task{Name: "請求書", DueTo: &past}, Status: model.StatusDoing, Done: 1, Total: 3}
	assert.Contains(t, renderRow(open, false, false, now), "OVERDUE")
	assert.Contains(t, renderRow(open, false, false, now), "1/3")

	finished := open
	finished.Status = model.StatusDone
	assert.NotContains(t, renderRow(finished, false, false, now), "OVERDUE")

	withCategory := open
	withCategory.Category = "経理"
	assert.Contains(t, renderRow(withCategory, true, false, now), "[経理]")
	assert.NotContains(t, renderRow(withCategory, false, false, now), "[経理]")
}

func TestCategoryTabsWrap(t *testing.T) {
	m := New(keys.DefaultKeyMap(), status.SortByStatus, 80, 20)
	m.SetState(boardSnapshot())

	assert.Equal(t, []string{AllCategories, "朝の準備", "出張"}, m.TabNames())
	assert.Equal(t, 0, m.TabIndex())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "c1", m.CategoryID())
	assert.Equal(t, 1, m.TabIndex())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, "c2", m.CategoryID())

	task, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "t3", task.ID)
}

func TestDeletedCategoryFallsBackToAll(t *testing.T) {
	m := New(keys.DefaultKeyMap(), status.SortByStatus, 80, 20)
	snap := boardSnapshot()
	m.SetState(snap)
	m.SetCategory("c2")

	snap.Categories = snap.Categories[:1]
	snap.Tasks = snap.Tasks[:2]
	m.SetState(snap)

	assert.Empty(t, m.CategoryID())
}

func TestSelectionSurvivesRefresh(t *testing.T) {
	m := New(keys.DefaultKeyMap(), status.SortByStatus, 80, 20)
	m.SetState(boardSnapshot())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	task, ok := m.SelectedTask()
	require.True(t, ok)
	require.Equal(t, "t1", task.ID)

	// t1 finishes and moves to the end of the status ordering.
	snap := boardSnapshot()
	snap.TaskChecks[1].IsDone = true
	m.SetState(snap)

	task, ok = m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
}

func TestCycleSortAndSelect(t *testing.T) {
	m := New(keys.DefaultKeyMap(), status.SortByDue, 80, 20)
	m.SetState(boardSnapshot())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, status.SortByStatus, m.SortKey())

	// The highlighted task stays selected across the reorder.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedTaskMsg{TaskID: "t1"}, cmd())
}
