package model

import (
	"errors"
	"time"
)

// Template validation errors.
var (
	ErrCheckItemNoParent   = errors.New("check item must belong to a category or a task")
	ErrCheckItemTwoParents = errors.New("check item cannot belong to both a category and a task")
)

// CheckItem is a checklist template line. It belongs either to a category,
// in which case it appears on every task of that category, or to a single
// task as an ad-hoc item. Never both, never neither.
type CheckItem struct {
	ID           string    `json:"id" db:"id"`
	CategoryID   *string   `json:"category_id" db:"category_id"`
	TaskID       *string   `json:"task_id" db:"task_id"`
	Name         string    `json:"name" db:"name"`
	SortPosition int       `json:"sort_position" db:"sort_position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the parent exclusivity invariant.
func (c CheckItem) Validate() error {
	hasCategory := c.CategoryID != nil && *c.CategoryID != ""
	hasTask := c.TaskID != nil && *c.TaskID != ""
	switch {
	case hasCategory && hasTask:
		return ErrCheckItemTwoParents
	case !hasCategory && !hasTask:
		return ErrCheckItemNoParent
	}
	return nil
}

// IsAdHoc reports whether the item belongs to a single task.
func (c CheckItem) IsAdHoc() bool {
	return c.TaskID != nil && *c.TaskID != ""
}

// TaskCheck is one checklist line on one task: the materialized instance of
// a CheckItem carrying completion state.
type TaskCheck struct {
	ID           string    `json:"id" db:"id"`
	TaskID       string    `json:"task_id" db:"task_id"`
	CheckItemID  string    `json:"check_item_id" db:"check_item_id"`
	IsDone       bool      `json:"is_done" db:"is_done"`
	SortPosition int       `json:"sort_position" db:"sort_position"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
