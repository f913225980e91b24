package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/status"
	"github.com/nhle/taskcheck/internal/store"
	"github.com/nhle/taskcheck/tests/testutil"
)

func TestCreateTaskMaterializesChecks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, task := testutil.SeedCategory(t, s, "朝の準備", []string{"着替え", "朝食"}, "月曜")

	checks, err := s.GetTaskChecks(ctx, store.TaskCheckFilter{TaskID: &task.ID})
	require.NoError(t, err)
	require.Len(t, checks, 2)
	for i, c := range checks {
		assert.False(t, c.IsDone)
		assert.Equal(t, i, c.SortPosition)
	}
	assert.Equal(t, model.StatusTodo, status.Compute(checks))

	require.NoError(t, s.ToggleTaskCheck(ctx, checks[0].ID))
	checks, err = s.GetTaskChecks(ctx, store.TaskCheckFilter{TaskID: &task.ID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDoing, status.Compute(checks))

	require.NoError(t, s.ToggleTaskCheck(ctx, checks[1].ID))
	checks, err = s.GetTaskChecks(ctx, store.TaskCheckFilter{TaskID: &task.ID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, status.Compute(checks))
}

func TestCreateTaskUnknownCategory(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.CreateTask(context.Background(), model.Task{CategoryID: "nope", Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, [4]int{0, 0, 0, 0}, testutil.Counts(t, s))
}

func TestCreateTaskRequiresName(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, "A", nil)
	require.NoError(t, err)

	_, err = s.CreateTask(ctx, model.Task{CategoryID: cat.ID, Name: "  "})
	assert.Error(t, err)
}

func TestUpdateTaskPatch(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, task := testutil.SeedCategory(t, s, "Trip", []string{"Passport"}, "Lisbon")

	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	note := "window seat"
	require.NoError(t, s.UpdateTask(ctx, task.ID, store.TaskPatch{Note: &note, DueTo: &due}))

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", got.Name)
	assert.Equal(t, "window seat", got.Note)
	require.NotNil(t, got.DueTo)
	assert.True(t, due.Equal(*got.DueTo))
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	name := "Porto"
	require.NoError(t, s.UpdateTask(ctx, task.ID, store.TaskPatch{Name: &name, ClearDue: true}))
	got, err = s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Porto", got.Name)
	assert.Nil(t, got.DueTo)

	assert.ErrorIs(t, s.UpdateTask(ctx, "missing", store.TaskPatch{}), store.ErrNotFound)
}

func TestDeleteTaskCascades(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, task := testutil.SeedCategory(t, s, "Trip", []string{"Passport", "Tickets"}, "Lisbon")
	_, err := s.AddTaskCheckItem(ctx, task.ID, "Adapter")
	require.NoError(t, err)
	assert.Equal(t, [4]int{1, 1, 3, 3}, testutil.Counts(t, s))

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	assert.Equal(t, [4]int{1, 0, 2, 0}, testutil.Counts(t, s))

	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), store.ErrNotFound)
}

func TestGetTasksFilterByCategory(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	a, _ := testutil.SeedCategory(t, s, "A", nil, "a1")
	testutil.SeedCategory(t, s, "B", nil, "b1")

	all, err := s.GetTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyA, err := s.GetTasks(ctx, store.TaskFilter{CategoryID: &a.ID})
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "a1", onlyA[0].Name)
}
