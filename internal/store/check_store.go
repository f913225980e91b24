package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskcheck/internal/model"
)

// AddTaskCheckItem adds an ad-hoc checklist line to one task, placed after
// its existing lines, and creates the matching check.
func (s *SQLiteStore) AddTaskCheckItem(
	ctx context.Context,
	taskID, name string,
) (*model.CheckItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("check item name must not be empty")
	}

	now := time.Now().UTC()
	item := model.CheckItem{
		ID:        uuid.New().String(),
		TaskID:    &taskID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.update(ctx, func(t *sqliteTx) error {
		if _, err := t.TaskByID(ctx, taskID); err != nil {
			return err
		}
		_, err := t.TaskCheckItemByName(ctx, taskID, name)
		if err == nil {
			return fmt.Errorf("check item %q already exists on task %s", name, taskID)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := t.tx.GetContext(ctx, &item.SortPosition,
			"SELECT COUNT(*) FROM check_items WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("counting items of task %s: %w", taskID, err)
		}
		if err := t.InsertCheckItem(ctx, item); err != nil {
			return err
		}
		_, err = t.MaterializeChecks(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adding check item: %w", err)
	}
	return &item, nil
}

// DeleteCheckItem removes a template and its checks, then closes the gap in
// its parent's positions.
func (s *SQLiteStore) DeleteCheckItem(ctx context.Context, id string) error {
	return s.update(ctx, func(t *sqliteTx) error {
		item, err := t.CheckItemByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM check_items WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting check item %s: %w", id, err)
		}
		t.mark(TableCheckItems, TableTaskChecks)

		if item.IsAdHoc() {
			return t.Renumber(ctx, nil, []string{*item.TaskID})
		}
		return t.Renumber(ctx, []string{*item.CategoryID}, nil)
	})
}

// GetCheckItems returns templates matching the filter ordered by position.
func (s *SQLiteStore) GetCheckItems(ctx context.Context, filter CheckItemFilter) ([]model.CheckItem, error) {
	return selectCheckItems(ctx, s.db, filter)
}

// GetTaskChecks returns task checks matching the filter ordered by position.
func (s *SQLiteStore) GetTaskChecks(ctx context.Context, filter TaskCheckFilter) ([]model.TaskCheck, error) {
	return selectTaskChecks(ctx, s.db, filter)
}

// SetTaskCheckDone sets the completion state of one check.
func (s *SQLiteStore) SetTaskCheckDone(ctx context.Context, id string, done bool) error {
	return s.update(ctx, func(t *sqliteTx) error {
		return t.UpdateTaskCheckRow(ctx, model.TaskCheck{
			ID:        id,
			IsDone:    done,
			UpdatedAt: time.Now().UTC(),
		})
	})
}

// ToggleTaskCheck flips the completion state of one check.
func (s *SQLiteStore) ToggleTaskCheck(ctx context.Context, id string) error {
	return s.update(ctx, func(t *sqliteTx) error {
		result, err := t.tx.ExecContext(ctx,
			"UPDATE task_checks SET is_done = CASE WHEN is_done = 0 THEN 1 ELSE 0 END, updated_at = ? WHERE id = ?",
			time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("toggling task check %s: %w", id, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("task check %s: %w", id, ErrNotFound)
		}
		t.mark(TableTaskChecks)
		return nil
	})
}
