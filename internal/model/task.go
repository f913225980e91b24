package model

import "time"

// TaskStatus is the derived progress of a task.
type TaskStatus string

// Task status constants, in display order.
const (
	StatusTodo  TaskStatus = "todo"
	StatusDoing TaskStatus = "doing"
	StatusDone  TaskStatus = "done"
)

// Task is a trackable unit of work under one category.
// Deleting the category cascades to its tasks.
type Task struct {
	ID         string     `json:"id" db:"id"`
	CategoryID string     `json:"category_id" db:"category_id"`
	Name       string     `json:"name" db:"name"`
	Note       string     `json:"note" db:"note"`
	DueTo      *time.Time `json:"due_to" db:"due_to"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
