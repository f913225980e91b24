package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nhle/taskcheck/internal/model"
)

// Collection names as they appear in the export file.
const (
	entityCategories = "categories"
	entityTasks      = "tasks"
	entityCheckItems = "check_items"
	entityTaskChecks = "task_checks"
)

// Pointer fields tell "absent or null" apart from zero values.
type rawCategory struct {
	ID        *string `json:"id"`
	Name      *string `json:"name"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

type rawTask struct {
	ID         *string `json:"id"`
	CategoryID *string `json:"category_id"`
	Name       *string `json:"name"`
	Note       *string `json:"note"`
	DueTo      *string `json:"due_to"`
	CreatedAt  *string `json:"created_at"`
	UpdatedAt  *string `json:"updated_at"`
}

type rawCheckItem struct {
	ID           *string `json:"id"`
	CategoryID   *string `json:"category_id"`
	TaskID       *string `json:"task_id"`
	Name         *string `json:"name"`
	SortPosition *int    `json:"sort_position"`
	CreatedAt    *string `json:"created_at"`
	UpdatedAt    *string `json:"updated_at"`
}

type rawTaskCheck struct {
	ID           *string `json:"id"`
	TaskID       *string `json:"task_id"`
	CheckItemID  *string `json:"check_item_id"`
	IsDone       *bool   `json:"is_done"`
	SortPosition *int    `json:"sort_position"`
	CreatedAt    *string `json:"created_at"`
	UpdatedAt    *string `json:"updated_at"`
}

// timeLayouts are tried in order when parsing timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Decode reads an export file and returns the snapshot it describes.
// Any syntax, type or invariant problem yields a *ValidationError.
// Missing created_at/updated_at values decode as the zero time: such a row
// never wins a last-write-wins comparison and is stamped when inserted.
func Decode(r io.Reader) (model.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("reading import data: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return model.Snapshot{}, fileError(err)
	}
	if top == nil {
		return model.Snapshot{}, invalid("", -1, "", "expected a JSON object")
	}

	var d decoder
	snap := model.Snapshot{}

	rows, err := collection(top, entityCategories)
	if err != nil {
		return model.Snapshot{}, err
	}
	for i, raw := range rows {
		c, err := d.category(i, raw)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Categories = append(snap.Categories, c)
	}

	if rows, err = collection(top, entityTasks); err != nil {
		return model.Snapshot{}, err
	}
	for i, raw := range rows {
		t, err := d.task(i, raw)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Tasks = append(snap.Tasks, t)
	}

	if rows, err = collection(top, entityCheckItems); err != nil {
		return model.Snapshot{}, err
	}
	for i, raw := range rows {
		ci, err := d.checkItem(i, raw)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.CheckItems = append(snap.CheckItems, ci)
	}

	if rows, err = collection(top, entityTaskChecks); err != nil {
		return model.Snapshot{}, err
	}
	for i, raw := range rows {
		tc, err := d.taskCheck(i, raw)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.TaskChecks = append(snap.TaskChecks, tc)
	}

	snap = snap.Clone()
	if err := Validate(snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

func fileError(err error) *ValidationError {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return invalid("", -1, "", "malformed JSON at byte %d: %v", syntaxErr.Offset, err)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return invalid("", -1, "", "expected a JSON object, got %s", typeErr.Value)
	}
	return invalid("", -1, "", "malformed JSON: %v", err)
}

// collection extracts one required top-level array.
func collection(top map[string]json.RawMessage, name string) ([]json.RawMessage, error) {
	raw, ok := top[name]
	if !ok {
		return nil, invalid(name, -1, "", "is required")
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, invalid(name, -1, "", "must be an array, got null")
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, invalid(name, -1, "", "must be an array")
	}
	return rows, nil
}

type decoder struct{}

func (d decoder) unmarshalRow(entity string, index int, raw json.RawMessage, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return invalid(entity, index, "", "must be an object")
			}
			return invalid(entity, index, typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return invalid(entity, index, "", "%v", err)
	}
	return nil
}

func (d decoder) timestamp(entity string, index int, field string, v *string) (time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return time.Time{}, nil
	}
	t, ok := parseTime(*v)
	if !ok {
		return time.Time{}, invalid(entity, index, field, "invalid timestamp %q", *v)
	}
	return t, nil
}

func (d decoder) category(i int, raw json.RawMessage) (model.Category, error) {
	var r rawCategory
	if err := d.unmarshalRow(entityCategories, i, raw, &r); err != nil {
		return model.Category{}, err
	}
	created, err := d.timestamp(entityCategories, i, "created_at", r.CreatedAt)
	if err != nil {
		return model.Category{}, err
	}
	updated, err := d.timestamp(entityCategories, i, "updated_at", r.UpdatedAt)
	if err != nil {
		return model.Category{}, err
	}
	return model.Category{
		ID:        str(r.ID),
		Name:      strings.TrimSpace(str(r.Name)),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func (d decoder) task(i int, raw json.RawMessage) (model.Task, error) {
	var r rawTask
	if err := d.unmarshalRow(entityTasks, i, raw, &r); err != nil {
		return model.Task{}, err
	}
	created, err := d.timestamp(entityTasks, i, "created_at", r.CreatedAt)
	if err != nil {
		return model.Task{}, err
	}
	updated, err := d.timestamp(entityTasks, i, "updated_at", r.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}

	var due *time.Time
	if r.DueTo != nil && strings.TrimSpace(*r.DueTo) != "" {
		t, ok := parseTime(*r.DueTo)
		if !ok {
			return model.Task{}, invalid(entityTasks, i, "due_to", "invalid timestamp %q", *r.DueTo)
		}
		due = &t
	}

	return model.Task{
		ID:         str(r.ID),
		CategoryID: str(r.CategoryID),
		Name:       strings.TrimSpace(str(r.Name)),
		Note:       str(r.Note),
		DueTo:      due,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

func (d decoder) checkItem(i int, raw json.RawMessage) (model.CheckItem, error) {
	var r rawCheckItem
	if err := d.unmarshalRow(entityCheckItems, i, raw, &r); err != nil {
		return model.CheckItem{}, err
	}
	created, err := d.timestamp(entityCheckItems, i, "created_at", r.CreatedAt)
	if err != nil {
		return model.CheckItem{}, err
	}
	updated, err := d.timestamp(entityCheckItems, i, "updated_at", r.UpdatedAt)
	if err != nil {
		return model.CheckItem{}, err
	}

	if r.SortPosition == nil {
		return model.CheckItem{}, invalid(entityCheckItems, i, "sort_position", "is required")
	}
	return model.CheckItem{
		ID:           str(r.ID),
		CategoryID:   optional(r.CategoryID),
		TaskID:       optional(r.TaskID),
		Name:         strings.TrimSpace(str(r.Name)),
		SortPosition: *r.SortPosition,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func (d decoder) taskCheck(i int, raw json.RawMessage) (model.TaskCheck, error) {
	var r rawTaskCheck
	if err := d.unmarshalRow(entityTaskChecks, i, raw, &r); err != nil {
		return model.TaskCheck{}, err
	}
	created, err := d.timestamp(entityTaskChecks, i, "created_at", r.CreatedAt)
	if err != nil {
		return model.TaskCheck{}, err
	}
	updated, err := d.timestamp(entityTaskChecks, i, "updated_at", r.UpdatedAt)
	if err != nil {
		return model.TaskCheck{}, err
	}

	if r.SortPosition == nil {
		return model.TaskCheck{}, invalid(entityTaskChecks, i, "sort_position", "is required")
	}

	tc := model.TaskCheck{
		ID:           str(r.ID),
		TaskID:       str(r.TaskID),
		CheckItemID:  str(r.CheckItemID),
		SortPosition: *r.SortPosition,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
	if r.IsDone != nil {
		tc.IsDone = *r.IsDone
	}
	return tc, nil
}

// Validate checks the structural invariants of a snapshot: required fields,
// template parent exclusivity, non-negative positions, unique ids per
// collection and unique template names within a category or task. References between rows are resolved at import time.
func Validate(snap model.Snapshot) error {
	ids := make(map[string]bool)
	for i, c := range snap.Categories {
		if err := requireFields(entityCategories, i, "id", c.ID, "name", c.Name); err != nil {
			return err
		}
		if err := unique(ids, entityCategories, i, c.ID); err != nil {
			return err
		}
	}

	ids = make(map[string]bool)
	for i, t := range snap.Tasks {
		if err := requireFields(entityTasks, i, "id", t.ID, "category_id", t.CategoryID, "name", t.Name); err != nil {
			return err
		}
		if err := unique(ids, entityTasks, i, t.ID); err != nil {
			return err
		}
	}

	ids = make(map[string]bool)
	names := make(map[string]bool)
	for i, ci := range snap.CheckItems {
		if err := requireFields(entityCheckItems, i, "id", ci.ID, "name", ci.Name); err != nil {
			return err
		}
		if err := ci.Validate(); err != nil {
			return invalid(entityCheckItems, i, "", "%v", err)
		}
		if ci.SortPosition < 0 {
			return invalid(entityCheckItems, i, "sort_position", "must not be negative")
		}
		if err := unique(ids, entityCheckItems, i, ci.ID); err != nil {
			return err
		}
		key := templateScope(ci) + "\x00" + ci.Name
		if names[key] {
			return invalid(entityCheckItems, i, "name", "duplicate check item %q in the same category or task", ci.Name)
		}
		names[key] = true
	}

	ids = make(map[string]bool)
	for i, tc := range snap.TaskChecks {
		if err := requireFields(entityTaskChecks, i,
			"id", tc.ID, "task_id", tc.TaskID, "check_item_id", tc.CheckItemID); err != nil {
			return err
		}
		if tc.SortPosition < 0 {
			return invalid(entityTaskChecks, i, "sort_position", "must not be negative")
		}
		if err := unique(ids, entityTaskChecks, i, tc.ID); err != nil {
			return err
		}
	}

	return nil
}

// requireFields takes (name, value) pairs and reports the first blank one.
func requireFields(entity string, index int, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return invalid(entity, index, pairs[i], "is required")
		}
	}
	return nil
}

func unique(seen map[string]bool, entity string, index int, id string) error {
	if seen[id] {
		return invalid(entity, index, "id", "duplicate id %q", id)
	}
	seen[id] = true
	return nil
}

// templateScope names the parent a template belongs to.
func templateScope(ci model.CheckItem) string {
	if ci.IsAdHoc() {
		return "task:" + *ci.TaskID
	}
	return "category:" + str(ci.CategoryID)
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// optional maps null and "" to nil.
func optional(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := *p
	return &v
}
