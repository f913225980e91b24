package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskcheck/internal/model"
)

// CreateTask inserts a task and snapshots its category's current templates
// into not-done checks. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	if task.Name == "" {
		return nil, fmt.Errorf("task name must not be empty")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	err := s.update(ctx, func(t *sqliteTx) error {
		if _, err := t.CategoryByID(ctx, task.CategoryID); err != nil {
			return err
		}
		if err := t.InsertTask(ctx, task); err != nil {
			return err
		}
		_, err := t.MaterializeChecks(ctx, task.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

// UpdateTask applies a partial update to a task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	return s.update(ctx, func(t *sqliteTx) error {
		task, err := t.TaskByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			task.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Note != nil {
			task.Note = *patch.Note
		}
		if patch.ClearDue {
			task.DueTo = nil
		} else if patch.DueTo != nil {
			due := *patch.DueTo
			task.DueTo = &due
		}
		task.UpdatedAt = time.Now().UTC()
		return t.UpdateTaskRow(ctx, *task)
	})
}

// DeleteTask removes a task by ID. Cascades to its checks and ad-hoc items.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	return s.update(ctx, func(t *sqliteTx) error {
		result, err := t.tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting task %s: %w", id, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		t.mark(TableTasks, TableCheckItems, TableTaskChecks)
		return nil
	})
}

// GetTaskByID retrieves a single task by ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	return getRow[model.Task](ctx, s.db, "task "+id,
		"SELECT * FROM tasks WHERE id = ?", id)
}

// GetTasks retrieves tasks matching the filter in creation order.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	return selectTasks(ctx, s.db, filter)
}
