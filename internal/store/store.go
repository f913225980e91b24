package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/taskcheck/internal/model"
)

// ErrNotFound is returned (wrapped) when a row addressed by id or natural
// key does not exist.
var ErrNotFound = errors.New("not found")

// Table names a watched table.
type Table string

const (
	TableCategories Table = "categories"
	TableTasks      Table = "tasks"
	TableCheckItems Table = "check_items"
	TableTaskChecks Table = "task_checks"
)

// UnsubscribeFunc tears down a watch. It is safe to call more than once and
// returns only after the watch will deliver no further callbacks. It must not
// be called from inside that watch's own callback.
type UnsubscribeFunc func()

// TaskFilter controls filtering for task queries.
type TaskFilter struct {
	CategoryID *string
}

// CheckItemFilter controls filtering for template queries.
// With no fields set every template is returned.
type CheckItemFilter struct {
	CategoryID *string
	TaskID     *string
}

// TaskCheckFilter controls filtering for task-check queries.
type TaskCheckFilter struct {
	TaskID *string
}

// TaskPatch is a partial task update. Nil fields are left untouched;
// ClearDue removes the due date.
type TaskPatch struct {
	Name     *string
	Note     *string
	DueTo    *time.Time
	ClearDue bool
}

// Store defines the persistence interface for categories, their checklist
// templates, tasks and per-task check state.
type Store interface {
	// === Categories ===

	CreateCategory(ctx context.Context, name string, itemNames []string) (*model.Category, error)
	UpdateCategory(ctx context.Context, id, name string, itemNames []string) error
	RenameCategory(ctx context.Context, id, name string) error
	DeleteCategory(ctx context.Context, id string) error
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// === Check items ===

	AddTaskCheckItem(ctx context.Context, taskID, name string) (*model.CheckItem, error)
	DeleteCheckItem(ctx context.Context, id string) error
	GetCheckItems(ctx context.Context, filter CheckItemFilter) ([]model.CheckItem, error)

	// === Task checks ===

	GetTaskChecks(ctx context.Context, filter TaskCheckFilter) ([]model.TaskCheck, error)
	SetTaskCheckDone(ctx context.Context, id string, done bool) error
	ToggleTaskCheck(ctx context.Context, id string) error

	// === Bulk ===

	Snapshot(ctx context.Context) (*model.Snapshot, error)
	WithTx(ctx context.Context, fn func(Tx) error) error

	// === Subscriptions ===

	WatchCategories(ctx context.Context, fn func([]model.Category)) (UnsubscribeFunc, error)
	WatchTasks(ctx context.Context, fn func([]model.Task)) (UnsubscribeFunc, error)
	WatchCheckItems(ctx context.Context, fn func([]model.CheckItem)) (UnsubscribeFunc, error)
	WatchTaskChecks(ctx context.Context, fn func([]model.TaskCheck)) (UnsubscribeFunc, error)

	Close() error
}

// Tx is the unit of work handed to WithTx. Every write made through it
// commits together or not at all, and rows written earlier in the same
// transaction are visible to later lookups. Lookups report ErrNotFound.
type Tx interface {
	CategoryByID(ctx context.Context, id string) (*model.Category, error)
	CategoryByName(ctx context.Context, name string) (*model.Category, error)
	InsertCategory(ctx context.Context, c model.Category) error

	TaskByID(ctx context.Context, id string) (*model.Task, error)
	TaskByName(ctx context.Context, categoryID, name string) (*model.Task, error)
	TasksInCategory(ctx context.Context, categoryID string) ([]model.Task, error)
	InsertTask(ctx context.Context, t model.Task) error
	UpdateTaskRow(ctx context.Context, t model.Task) error

	CheckItemByID(ctx context.Context, id string) (*model.CheckItem, error)
	CategoryCheckItemByName(ctx context.Context, categoryID, name string) (*model.CheckItem, error)
	TaskCheckItemByName(ctx context.Context, taskID, name string) (*model.CheckItem, error)
	InsertCheckItem(ctx context.Context, c model.CheckItem) error
	UpdateCheckItemRow(ctx context.Context, c model.CheckItem) error

	TaskCheckByID(ctx context.Context, id string) (*model.TaskCheck, error)
	TaskCheckByPair(ctx context.Context, taskID, checkItemID string) (*model.TaskCheck, error)
	InsertTaskCheck(ctx context.Context, tc model.TaskCheck) error
	UpdateTaskCheckRow(ctx context.Context, tc model.TaskCheck) error

	// MaterializeChecks creates the missing TaskChecks for every template in
	// the task's scope and returns how many were created.
	MaterializeChecks(ctx context.Context, taskID string) (int, error)

	// Renumber makes template positions dense within each given category and
	// task, then recomputes TaskCheck positions for every affected task.
	Renumber(ctx context.Context, categoryIDs, taskIDs []string) error
}
