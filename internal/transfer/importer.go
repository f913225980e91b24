package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/store"
)

// TxRunner is the part of the store the importer needs.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(store.Tx) error) error
}

// Counts tallies what happened to the rows of one collection.
type Counts struct {
	Seen    int `json:"seen"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Report summarizes one import.
type Report struct {
	Categories Counts `json:"categories"`
	Tasks      Counts `json:"tasks"`
	CheckItems Counts `json:"check_items"`
	TaskChecks Counts `json:"task_checks"`

	// Materialized counts checks created for templates the payload did not
	// link to their tasks.
	Materialized int `json:"materialized"`
}

// Summary renders the report on one line.
func (r Report) Summary() string {
	line := func(name string, c Counts) string {
		return fmt.Sprintf("%s %d new/%d updated/%d unchanged", name, c.Created, c.Updated, c.Skipped)
	}
	return fmt.Sprintf("%s, %s, %s, %s, %d checks materialized",
		line("categories", r.Categories),
		line("tasks", r.Tasks),
		line("items", r.CheckItems),
		line("checks", r.TaskChecks),
		r.Materialized,
	)
}

// Importer merges snapshots into a store by natural key. Categories match by
// name, tasks by (name, category), templates by (name, parent) and checks by
// (task, template). Matched rows are updated only when the incoming
// updated_at is newer. Rows absent from the payload are never touched.
type Importer struct {
	db     TxRunner
	logger *log.Logger
}

// NewImporter creates an importer. A nil logger logs to stderr.
func NewImporter(db TxRunner, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(os.Stderr, "[import] ", log.LstdFlags)
	}
	return &Importer{db: db, logger: logger}
}

// ImportFile decodes and imports an export file.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return im.ImportReader(ctx, f)
}

// ImportReader decodes and imports export data.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader) (*Report, error) {
	snap, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, snap)
}

// ImportLegacy decodes data in the older category-with-items format and
// imports it.
func (im *Importer) ImportLegacy(ctx context.Context, r io.Reader) (*Report, error) {
	cats, err := DecodeLegacy(r)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, ConvertLegacy(cats, time.Now().UTC()))
}

// Import validates snap and merges it in a single transaction. Either the
// whole snapshot is applied or nothing is. Validation problems, including
// references that resolve neither inside the payload nor to a local row, are
// returned as *ValidationError.
func (im *Importer) Import(ctx context.Context, snap model.Snapshot) (*Report, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}

	var report *Report
	err := im.db.WithTx(ctx, func(tx store.Tx) error {
		r := newReconciler(ctx, tx)
		if err := r.run(snap); err != nil {
			return err
		}
		report = &r.report
		return nil
	})
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return nil, vErr
		}
		return nil, fmt.Errorf("import failed: %w", err)
	}

	im.logger.Printf("imported %s", report.Summary())
	return report, nil
}

// reconciler carries the id maps of one import. Every map goes from the
// payload's id to the local id the row resolved to.
type reconciler struct {
	ctx    context.Context
	tx     store.Tx
	now    time.Time
	report Report

	categories map[string]string
	tasks      map[string]string
	items      map[string]string

	touchedCategories map[string]bool
	touchedTasks      map[string]bool
}

func newReconciler(ctx context.Context, tx store.Tx) *reconciler {
	return &reconciler{
		ctx:               ctx,
		tx:                tx,
		now:               time.Now().UTC(),
		categories:        make(map[string]string),
		tasks:             make(map[string]string),
		items:             make(map[string]string),
		touchedCategories: make(map[string]bool),
		touchedTasks:      make(map[string]bool),
	}
}

// run applies the payload in dependency order. Errors carry their own row
// position, so they are returned unwrapped.
func (r *reconciler) run(snap model.Snapshot) error {
	for _, c := range snap.Categories {
		if err := r.category(c); err != nil {
			return err
		}
	}
	for i, t := range snap.Tasks {
		if err := r.task(i, t); err != nil {
			return err
		}
	}
	for i, ci := range snap.CheckItems {
		if err := r.checkItem(i, ci); err != nil {
			return err
		}
	}
	for i, tc := range snap.TaskChecks {
		if err := r.taskCheck(i, tc); err != nil {
			return err
		}
	}
	return r.finish()
}

func (r *reconciler) category(c model.Category) error {
	r.report.Categories.Seen++

	local, err := r.tx.CategoryByName(r.ctx, c.Name)
	switch {
	case err == nil:
		// The name is the key and the only mutable field.
		r.categories[c.ID] = local.ID
		r.report.Categories.Skipped++
	case errors.Is(err, store.ErrNotFound):
		id, err := freeID(r.ctx, c.ID, r.tx.CategoryByID)
		if err != nil {
			return err
		}
		row := c
		row.ID = id
		r.stamp(&row.CreatedAt, &row.UpdatedAt)
		if err := r.tx.InsertCategory(r.ctx, row); err != nil {
			return err
		}
		r.categories[c.ID] = id
		r.report.Categories.Created++
	default:
		return err
	}

	r.touchedCategories[r.categories[c.ID]] = true
	return nil
}

func (r *reconciler) task(i int, t model.Task) error {
	r.report.Tasks.Seen++

	catID, err := r.resolveCategory(entityTasks, i, t.CategoryID)
	if err != nil {
		return err
	}

	local, err := r.tx.TaskByName(r.ctx, catID, t.Name)
	switch {
	case err == nil:
		r.tasks[t.ID] = local.ID
		if t.UpdatedAt.After(local.UpdatedAt) {
			local.Note = t.Note
			local.DueTo = t.DueTo
			local.UpdatedAt = t.UpdatedAt
			if err := r.tx.UpdateTaskRow(r.ctx, *local); err != nil {
				return err
			}
			r.report.Tasks.Updated++
		} else {
			r.report.Tasks.Skipped++
		}
	case errors.Is(err, store.ErrNotFound):
		id, err := freeID(r.ctx, t.ID, r.tx.TaskByID)
		if err != nil {
			return err
		}
		row := t
		row.ID = id
		row.CategoryID = catID
		r.stamp(&row.CreatedAt, &row.UpdatedAt)
		if err := r.tx.InsertTask(r.ctx, row); err != nil {
			return err
		}
		r.tasks[t.ID] = id
		r.report.Tasks.Created++
	default:
		return err
	}

	r.touchedTasks[r.tasks[t.ID]] = true
	return nil
}

func (r *reconciler) checkItem(i int, ci model.CheckItem) error {
	r.report.CheckItems.Seen++

	var (
		local *model.CheckItem
		err   error
		row   = ci
	)
	if !ci.IsAdHoc() {
		catID, rerr := r.resolveCategory(entityCheckItems, i, *ci.CategoryID)
		if rerr != nil {
			return rerr
		}
		row.CategoryID = &catID
		row.TaskID = nil
		r.touchedCategories[catID] = true
		local, err = r.tx.CategoryCheckItemByName(r.ctx, catID, ci.Name)
	} else {
		taskID, rerr := r.resolveTask(entityCheckItems, i, "task_id", *ci.TaskID)
		if rerr != nil {
			return rerr
		}
		row.TaskID = &taskID
		row.CategoryID = nil
		r.touchedTasks[taskID] = true
		local, err = r.tx.TaskCheckItemByName(r.ctx, taskID, ci.Name)
	}

	switch {
	case err == nil:
		r.items[ci.ID] = local.ID
		if ci.UpdatedAt.After(local.UpdatedAt) {
			local.SortPosition = ci.SortPosition
			local.UpdatedAt = ci.UpdatedAt
			if err := r.tx.UpdateCheckItemRow(r.ctx, *local); err != nil {
				return err
			}
			r.report.CheckItems.Updated++
		} else {
			r.report.CheckItems.Skipped++
		}
	case errors.Is(err, store.ErrNotFound):
		id, err := freeID(r.ctx, ci.ID, r.tx.CheckItemByID)
		if err != nil {
			return err
		}
		row.ID = id
		r.stamp(&row.CreatedAt, &row.UpdatedAt)
		if err := r.tx.InsertCheckItem(r.ctx, row); err != nil {
			return err
		}
		r.items[ci.ID] = id
		r.report.CheckItems.Created++
	default:
		return err
	}
	return nil
}

func (r *reconciler) taskCheck(i int, tc model.TaskCheck) error {
	r.report.TaskChecks.Seen++

	taskID, err := r.resolveTask(entityTaskChecks, i, "task_id", tc.TaskID)
	if err != nil {
		return err
	}
	itemID, err := r.resolveItem(entityTaskChecks, i, tc.CheckItemID)
	if err != nil {
		return err
	}
	if err := r.ensureInScope(i, taskID, itemID); err != nil {
		return err
	}

	local, err := r.tx.TaskCheckByPair(r.ctx, taskID, itemID)
	switch {
	case err == nil:
		if tc.UpdatedAt.After(local.UpdatedAt) {
			local.IsDone = tc.IsDone
			local.UpdatedAt = tc.UpdatedAt
			if err := r.tx.UpdateTaskCheckRow(r.ctx, *local); err != nil {
				return err
			}
			r.report.TaskChecks.Updated++
		} else {
			r.report.TaskChecks.Skipped++
		}
	case errors.Is(err, store.ErrNotFound):
		id, err := freeID(r.ctx, tc.ID, r.tx.TaskCheckByID)
		if err != nil {
			return err
		}
		row := tc
		row.ID = id
		row.TaskID = taskID
		row.CheckItemID = itemID
		r.stamp(&row.CreatedAt, &row.UpdatedAt)
		if err := r.tx.InsertTaskCheck(r.ctx, row); err != nil {
			return err
		}
		r.report.TaskChecks.Created++
	default:
		return err
	}

	r.touchedTasks[taskID] = true
	return nil
}

// finish materializes checks the payload left out and makes positions dense
// in every scope the import touched.
func (r *reconciler) finish() error {
	for _, catID := range sortedKeys(r.touchedCategories) {
		tasks, err := r.tx.TasksInCategory(r.ctx, catID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			r.touchedTasks[t.ID] = true
		}
	}

	taskIDs := sortedKeys(r.touchedTasks)
	for _, id := range taskIDs {
		n, err := r.tx.MaterializeChecks(r.ctx, id)
		if err != nil {
			return err
		}
		r.report.Materialized += n
	}

	return r.tx.Renumber(r.ctx, sortedKeys(r.touchedCategories), taskIDs)
}

func (r *reconciler) resolveCategory(entity string, i int, ref string) (string, error) {
	if id, ok := r.categories[ref]; ok {
		return id, nil
	}
	_, err := r.tx.CategoryByID(r.ctx, ref)
	if err == nil {
		r.categories[ref] = ref
		return ref, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", invalid(entity, i, "category_id", "references unknown category %q", ref)
	}
	return "", err
}

func (r *reconciler) resolveTask(entity string, i int, field, ref string) (string, error) {
	if id, ok := r.tasks[ref]; ok {
		return id, nil
	}
	_, err := r.tx.TaskByID(r.ctx, ref)
	if err == nil {
		r.tasks[ref] = ref
		return ref, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", invalid(entity, i, field, "references unknown task %q", ref)
	}
	return "", err
}

func (r *reconciler) resolveItem(entity string, i int, ref string) (string, error) {
	if id, ok := r.items[ref]; ok {
		return id, nil
	}
	_, err := r.tx.CheckItemByID(r.ctx, ref)
	if err == nil {
		r.items[ref] = ref
		return ref, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", invalid(entity, i, "check_item_id", "references unknown check item %q", ref)
	}
	return "", err
}

// ensureInScope rejects links between a task and a template that belongs to
// another category or another task.
func (r *reconciler) ensureInScope(i int, taskID, itemID string) error {
	task, err := r.tx.TaskByID(r.ctx, taskID)
	if err != nil {
		return err
	}
	item, err := r.tx.CheckItemByID(r.ctx, itemID)
	if err != nil {
		return err
	}
	if item.CategoryID != nil && *item.CategoryID == task.CategoryID {
		return nil
	}
	if item.TaskID != nil && *item.TaskID == task.ID {
		return nil
	}
	return invalid(entityTaskChecks, i, "check_item_id", "check item %q is not part of task %q's checklist", item.Name, task.Name)
}

// stamp fills zero timestamps on inserted rows. Files may omit them.
func (r *reconciler) stamp(created, updated *time.Time) {
	if created.IsZero() {
		*created = r.now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

// freeID keeps the incoming id unless a local row already owns it.
func freeID[T any](
	ctx context.Context,
	id string,
	lookup func(context.Context, string) (*T, error),
) (string, error) {
	_, err := lookup(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return id, nil
	}
	if err != nil {
		return "", err
	}
	return uuid.New().String(), nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
