// Package status derives task progress from check state and orders task
// lists. Everything here is pure.
package status

import (
	"fmt"
	"sort"

	"github.com/nhle/taskcheck/internal/model"
)

// SortKey selects a task ordering.
type SortKey string

const (
	SortByDue     SortKey = "due_to"
	SortByStatus  SortKey = "status"
	SortByCreated SortKey = "created_at"
)

// SortKeys lists the keys in the order the UI cycles through them.
var SortKeys = []SortKey{SortByDue, SortByStatus, SortByCreated}

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Next returns the key after k in SortKeys, wrapping around.
func (k SortKey) Next() SortKey {
	for i, key := range SortKeys {
		if key == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortKeys[0]
}

// Compute derives a task's status from its checks. A task with no checks
// is todo, not vacuously done.
func Compute(checks []model.TaskCheck) model.TaskStatus {
	done := 0
	for _, c := range checks {
		if c.IsDone {
			done++
		}
	}
	switch {
	case len(checks) == 0 || done == 0:
		return model.StatusTodo
	case done == len(checks):
		return model.StatusDone
	default:
		return model.StatusDoing
	}
}

// Index computes the status of every task in one pass over the checks.
// Tasks without checks are reported as todo.
func Index(tasks []model.Task, checks []model.TaskCheck) map[string]model.TaskStatus {
	byTask := make(map[string][]model.TaskCheck, len(tasks))
	for _, c := range checks {
		byTask[c.TaskID] = append(byTask[c.TaskID], c)
	}
	out := make(map[string]model.TaskStatus, len(tasks))
	for _, t := range tasks {
		out[t.ID] = Compute(byTask[t.ID])
	}
	return out
}

// Progress returns the done and total check counts.
func Progress(checks []model.TaskCheck) (done, total int) {
	for _, c := range checks {
		if c.IsDone {
			done++
		}
	}
	return done, len(checks)
}

// Counts tallies statuses.
func Counts(statuses map[string]model.TaskStatus) map[model.TaskStatus]int {
	out := map[model.TaskStatus]int{
		model.StatusTodo:  0,
		model.StatusDoing: 0,
		model.StatusDone:  0,
	}
	for _, st := range statuses {
		out[st]++
	}
	return out
}

func rank(s model.TaskStatus) int {
	switch s {
	case model.StatusTodo:
		return 0
	case model.StatusDoing:
		return 1
	case model.StatusDone:
		return 2
	}
	return 3
}

// Sort returns a sorted copy of tasks. The sort is stable, so ties keep
// their input order.
//
//	due_to:     ascending, tasks without a due date last
//	status:     todo < doing < done
//	created_at: newest first
func Sort(tasks []model.Task, key SortKey, statusOf func(model.Task) model.TaskStatus) []model.Task {
	out := append([]model.Task(nil), tasks...)

	var less func(a, b model.Task) bool
	switch key {
	case SortByDue:
		less = func(a, b model.Task) bool {
			switch {
			case a.DueTo == nil:
				return false
			case b.DueTo == nil:
				return true
			default:
				return a.DueTo.Before(*b.DueTo)
			}
		}
	case SortByStatus:
		less = func(a, b model.Task) bool {
			return rank(statusOf(a)) < rank(statusOf(b))
		}
	case SortByCreated:
		less = func(a, b model.Task) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
