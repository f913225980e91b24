package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/model"
)

func checks(doneFlags ...bool) []model.TaskCheck {
	out := make([]model.TaskCheck, len(doneFlags))
	for i, d := range doneFlags {
		out[i] = model.TaskCheck{TaskID: "t", IsDone: d}
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		checks []model.TaskCheck
		want   model.TaskStatus
	}{
		{"no checks", nil, model.StatusTodo},
		{"none done", checks(false, false, false), model.StatusTodo},
		{"all done", checks(true, true, true), model.StatusDone},
		{"one of three", checks(true, false, false), model.StatusDoing},
		{"two of three", checks(false, true, true), model.StatusDoing},
		{"single done", checks(true), model.StatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.checks))
		})
	}
}

func TestIndexAndCounts(t *testing.T) {
	tasks := []model.Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	all := []model.TaskCheck{
		{TaskID: "a", IsDone: true},
		{TaskID: "a", IsDone: true},
		{TaskID: "b", IsDone: true},
		{TaskID: "b", IsDone: false},
	}

	idx := Index(tasks, all)
	assert.Equal(t, model.StatusDone, idx["a"])
	assert.Equal(t, model.StatusDoing, idx["b"])
	assert.Equal(t, model.StatusTodo, idx["c"])

	counts := Counts(idx)
	assert.Equal(t, 1, counts[model.StatusTodo])
	assert.Equal(t, 1, counts[model.StatusDoing])
	assert.Equal(t, 1, counts[model.StatusDone])

	done, total := Progress(all[2:])
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total)
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSortByDue(t *testing.T) {
	d := func(day int) *time.Time {
		v := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
		return &v
	}
	tasks := []model.Task{
		{ID: "none1"},
		{ID: "late", DueTo: d(20)},
		{ID: "tie1", DueTo: d(10)},
		{ID: "none2"},
		{ID: "tie2", DueTo: d(10)},
		{ID: "early", DueTo: d(1)},
	}

	got := Sort(tasks, SortByDue, nil)
	assert.Equal(t, []string{"early", "tie1", "tie2", "late", "none1", "none2"}, ids(got))
	assert.Equal(t, "none1", tasks[0].ID, "input is not reordered")
}

func TestSortByStatusIsStable(t *testing.T) {
	st := map[string]model.TaskStatus{
		"d1": model.StatusDone, "t1": model.StatusTodo, "g1": model.StatusDoing,
		"t2": model.StatusTodo, "d2": model.StatusDone,
	}
	tasks := []model.Task{{ID: "d1"}, {ID: "t1"}, {ID: "g1"}, {ID: "t2"}, {ID: "d2"}}

	got := Sort(tasks, SortByStatus, func(t model.Task) model.TaskStatus { return st[t.ID] })
	assert.Equal(t, []string{"t1", "t2", "g1", "d1", "d2"}, ids(got))
}

func TestSortByCreatedNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(time.Hour)},
	}

	got := Sort(tasks, SortByCreated, nil)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(got))
}

func TestParseSortKeyAndNext(t *testing.T) {
	k, err := ParseSortKey("status")
	require.NoError(t, err)
	assert.Equal(t, SortByStatus, k)

	_, err = ParseSortKey("priority")
	assert.Error(t, err)

	assert.Equal(t, SortByStatus, SortByDue.Next())
	assert.Equal(t, SortByDue, SortByCreated.Next())
}
