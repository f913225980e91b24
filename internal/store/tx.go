package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskcheck/internal/model"
)

// sqliteTx implements Tx on top of a *sqlx.Tx and records which tables were
// written so the store can notify watchers after commit.
type sqliteTx struct {
	tx      *sqlx.Tx
	touched map[Table]bool
}

func (t *sqliteTx) mark(tables ...Table) {
	for _, tbl := range tables {
		t.touched[tbl] = true
	}
}

// getRow runs a single-row query, translating sql.ErrNoRows to ErrNotFound.
func getRow[T any](ctx context.Context, q sqlx.QueryerContext, what, query string, args ...interface{}) (*T, error) {
	var row T
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("getting %s: %w", what, err)
	}
	return &row, nil
}

// === Row set queries shared by the store, its transactions and watches ===

func selectCategories(ctx context.Context, q sqlx.QueryerContext) ([]model.Category, error) {
	out := []model.Category{}
	if err := sqlx.SelectContext(ctx, q, &out,
		"SELECT * FROM categories ORDER BY created_at, rowid"); err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return out, nil
}

func selectTasks(ctx context.Context, q sqlx.QueryerContext, filter TaskFilter) ([]model.Task, error) {
	query := "SELECT * FROM tasks"
	var args []interface{}
	if filter.CategoryID != nil {
		query += " WHERE category_id = ?"
		args = append(args, *filter.CategoryID)
	}
	query += " ORDER BY created_at, rowid"

	out := []model.Task{}
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return out, nil
}

func selectCheckItems(ctx context.Context, q sqlx.QueryerContext, filter CheckItemFilter) ([]model.CheckItem, error) {
	var conditions []string
	var args []interface{}
	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.TaskID != nil {
		conditions = append(conditions, "task_id = ?")
		args = append(args, *filter.TaskID)
	}

	query := "SELECT * FROM check_items"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY category_id IS NULL, sort_position, rowid"

	out := []model.CheckItem{}
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("querying check items: %w", err)
	}
	return out, nil
}

func selectTaskChecks(ctx context.Context, q sqlx.QueryerContext, filter TaskCheckFilter) ([]model.TaskCheck, error) {
	query := "SELECT * FROM task_checks"
	var args []interface{}
	if filter.TaskID != nil {
		query += " WHERE task_id = ?"
		args = append(args, *filter.TaskID)
	}
	query += " ORDER BY task_id, sort_position, rowid"

	out := []model.TaskCheck{}
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("querying task checks: %w", err)
	}
	return out, nil
}

// === Categories ===

func (t *sqliteTx) CategoryByID(ctx context.Context, id string) (*model.Category, error) {
	return getRow[model.Category](ctx, t.tx, "category "+id,
		"SELECT * FROM categories WHERE id = ?", id)
}

func (t *sqliteTx) CategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return getRow[model.Category](ctx, t.tx, fmt.Sprintf("category %q", name),
		"SELECT * FROM categories WHERE name = ?", name)
}

func (t *sqliteTx) InsertCategory(ctx context.Context, c model.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category name must not be empty")
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting category %q: %w", c.Name, err)
	}
	t.mark(TableCategories)
	return nil
}

func (t *sqliteTx) renameCategory(ctx context.Context, id, name string, now time.Time) error {
	result, err := t.tx.ExecContext(ctx,
		"UPDATE categories SET name = ?, updated_at = ? WHERE id = ?",
		name, now, id,
	)
	if err != nil {
		return fmt.Errorf("renaming category %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	t.mark(TableCategories)
	return nil
}

// === Tasks ===

func (t *sqliteTx) TaskByID(ctx context.Context, id string) (*model.Task, error) {
	return getRow[model.Task](ctx, t.tx, "task "+id,
		"SELECT * FROM tasks WHERE id = ?", id)
}

func (t *sqliteTx) TaskByName(ctx context.Context, categoryID, name string) (*model.Task, error) {
	return getRow[model.Task](ctx, t.tx, fmt.Sprintf("task %q", name),
		"SELECT * FROM tasks WHERE category_id = ? AND name = ? ORDER BY created_at, rowid LIMIT 1",
		categoryID, name)
}

func (t *sqliteTx) TasksInCategory(ctx context.Context, categoryID string) ([]model.Task, error) {
	return selectTasks(ctx, t.tx, TaskFilter{CategoryID: &categoryID})
}

func (t *sqliteTx) InsertTask(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return fmt.Errorf("task name must not be empty")
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tasks (id, category_id, name, note, due_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.CategoryID, task.Name, task.Note, utcPtr(task.DueTo),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting task %q: %w", task.Name, err)
	}
	t.mark(TableTasks)
	return nil
}

// UpdateTaskRow writes the task's mutable fields (name, note, due_to,
// updated_at).
func (t *sqliteTx) UpdateTaskRow(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return fmt.Errorf("task name must not be empty")
	}
	result, err := t.tx.ExecContext(ctx, `
		UPDATE tasks SET name = ?, note = ?, due_to = ?, updated_at = ?
		WHERE id = ?`,
		task.Name, task.Note, utcPtr(task.DueTo), task.UpdatedAt.UTC(), task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	t.mark(TableTasks)
	return nil
}

// === Check items ===

func (t *sqliteTx) CheckItemByID(ctx context.Context, id string) (*model.CheckItem, error) {
	return getRow[model.CheckItem](ctx, t.tx, "check item "+id,
		"SELECT * FROM check_items WHERE id = ?", id)
}

func (t *sqliteTx) CategoryCheckItemByName(ctx context.Context, categoryID, name string) (*model.CheckItem, error) {
	return getRow[model.CheckItem](ctx, t.tx, fmt.Sprintf("check item %q", name),
		"SELECT * FROM check_items WHERE category_id = ? AND name = ? ORDER BY sort_position, rowid LIMIT 1",
		categoryID, name)
}

func (t *sqliteTx) TaskCheckItemByName(ctx context.Context, taskID, name string) (*model.CheckItem, error) {
	return getRow[model.CheckItem](ctx, t.tx, fmt.Sprintf("check item %q", name),
		"SELECT * FROM check_items WHERE task_id = ? AND name = ? ORDER BY sort_position, rowid LIMIT 1",
		taskID, name)
}

func (t *sqliteTx) InsertCheckItem(ctx context.Context, c model.CheckItem) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("inserting check item %q: %w", c.Name, err)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("check item name must not be empty")
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO check_items (id, category_id, task_id, name, sort_position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CategoryID, c.TaskID, c.Name, c.SortPosition,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting check item %q: %w", c.Name, err)
	}
	t.mark(TableCheckItems)
	return nil
}

// UpdateCheckItemRow writes the template's mutable fields (name,
// sort_position, updated_at). The parent never changes.
func (t *sqliteTx) UpdateCheckItemRow(ctx context.Context, c model.CheckItem) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE check_items SET name = ?, sort_position = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.SortPosition, c.UpdatedAt.UTC(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating check item %s: %w", c.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("check item %s: %w", c.ID, ErrNotFound)
	}
	t.mark(TableCheckItems)
	return nil
}

func (t *sqliteTx) deleteCategoryItems(ctx context.Context, categoryID string) error {
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM check_items WHERE category_id = ?", categoryID); err != nil {
		return fmt.Errorf("deleting templates of category %s: %w", categoryID, err)
	}
	t.mark(TableCheckItems, TableTaskChecks)
	return nil
}

// === Task checks ===

func (t *sqliteTx) TaskCheckByID(ctx context.Context, id string) (*model.TaskCheck, error) {
	return getRow[model.TaskCheck](ctx, t.tx, "task check "+id,
		"SELECT * FROM task_checks WHERE id = ?", id)
}

func (t *sqliteTx) TaskCheckByPair(ctx context.Context, taskID, checkItemID string) (*model.TaskCheck, error) {
	return getRow[model.TaskCheck](ctx, t.tx, fmt.Sprintf("task check %s/%s", taskID, checkItemID),
		"SELECT * FROM task_checks WHERE task_id = ? AND check_item_id = ?",
		taskID, checkItemID)
}

func (t *sqliteTx) InsertTaskCheck(ctx context.Context, tc model.TaskCheck) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO task_checks (id, task_id, check_item_id, is_done, sort_position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tc.ID, tc.TaskID, tc.CheckItemID, boolToInt(tc.IsDone), tc.SortPosition,
		tc.CreatedAt.UTC(), tc.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting task check %s: %w", tc.ID, err)
	}
	t.mark(TableTaskChecks)
	return nil
}

// UpdateTaskCheckRow writes is_done and updated_at. Positions are owned by
// Renumber.
func (t *sqliteTx) UpdateTaskCheckRow(ctx context.Context, tc model.TaskCheck) error {
	result, err := t.tx.ExecContext(ctx,
		"UPDATE task_checks SET is_done = ?, updated_at = ? WHERE id = ?",
		boolToInt(tc.IsDone), tc.UpdatedAt.UTC(), tc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task check %s: %w", tc.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task check %s: %w", tc.ID, ErrNotFound)
	}
	t.mark(TableTaskChecks)
	return nil
}

func (t *sqliteTx) MaterializeChecks(ctx context.Context, taskID string) (int, error) {
	missing := []model.CheckItem{}
	err := sqlx.SelectContext(ctx, t.tx, &missing, `
		SELECT ci.* FROM check_items ci
		JOIN tasks t ON ci.category_id = t.category_id OR ci.task_id = t.id
		WHERE t.id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM task_checks tc
			WHERE tc.task_id = t.id AND tc.check_item_id = ci.id)
		ORDER BY ci.task_id IS NOT NULL, ci.sort_position, ci.rowid`,
		taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("finding missing checks for task %s: %w", taskID, err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for _, item := range missing {
		err := t.InsertTaskCheck(ctx, model.TaskCheck{
			ID:          uuid.New().String(),
			TaskID:      taskID,
			CheckItemID: item.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return 0, err
		}
	}

	if err := t.recomputeCheckPositions(ctx, taskID); err != nil {
		return 0, err
	}
	return len(missing), nil
}

func (t *sqliteTx) Renumber(ctx context.Context, categoryIDs, taskIDs []string) error {
	affected := make(map[string]bool)

	for _, id := range taskIDs {
		if err := t.renumberItems(ctx, "task_id", id); err != nil {
			return err
		}
		affected[id] = true
	}

	for _, id := range categoryIDs {
		if err := t.renumberItems(ctx, "category_id", id); err != nil {
			return err
		}
		tasks, err := t.TasksInCategory(ctx, id)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			affected[task.ID] = true
		}
	}

	for id := range affected {
		if err := t.recomputeCheckPositions(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// renumberItems rewrites sort_position to 0..n-1 for the templates whose
// parentColumn equals id, keeping their current relative order.
func (t *sqliteTx) renumberItems(ctx context.Context, parentColumn, id string) error {
	var ids []string
	err := t.tx.SelectContext(ctx, &ids,
		"SELECT id FROM check_items WHERE "+parentColumn+" = ? ORDER BY sort_position, created_at, rowid",
		id)
	if err != nil {
		return fmt.Errorf("listing templates for %s %s: %w", parentColumn, id, err)
	}

	for i, itemID := range ids {
		result, err := t.tx.ExecContext(ctx,
			"UPDATE check_items SET sort_position = ? WHERE id = ? AND sort_position != ?",
			i, itemID, i)
		if err != nil {
			return fmt.Errorf("renumbering check item %s: %w", itemID, err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			t.mark(TableCheckItems)
		}
	}
	return nil
}

// checkPositionExpr is the position a task check should hold: its
// category-level template's position, or for ad-hoc templates the number of
// category templates plus the ad-hoc position.
const checkPositionExpr = `(
	SELECT CASE WHEN ci.category_id IS NOT NULL THEN ci.sort_position
	ELSE ci.sort_position + (
		SELECT COUNT(*) FROM check_items cc
		JOIN tasks tk ON cc.category_id = tk.category_id
		WHERE tk.id = task_checks.task_id)
	END
	FROM check_items ci WHERE ci.id = task_checks.check_item_id)`

func (t *sqliteTx) recomputeCheckPositions(ctx context.Context, taskID string) error {
	result, err := t.tx.ExecContext(ctx,
		"UPDATE task_checks SET sort_position = "+checkPositionExpr+
			" WHERE task_id = ? AND sort_position != "+checkPositionExpr,
		taskID)
	if err != nil {
		return fmt.Errorf("recomputing check positions for task %s: %w", taskID, err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		t.mark(TableTaskChecks)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
