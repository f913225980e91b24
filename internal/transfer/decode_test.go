package transfer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
  "categories": [
    {"id": "c1", "name": "Morning", "created_at": "2026-01-01T08:00:00.000Z", "updated_at": "2026-01-01T08:00:00.000Z"}
  ],
  "tasks": [
    {"id": "t1", "category_id": "c1", "name": "Monday", "note": null, "due_to": "2026-01-05", "created_at": "2026-01-01T08:00:00Z", "updated_at": "2026-01-01T08:00:00Z"}
  ],
  "check_items": [
    {"id": "i1", "category_id": "c1", "task_id": null, "name": "Dress", "sort_position": 0, "created_at": "2026-01-01T08:00:00Z", "updated_at": "2026-01-01T08:00:00Z"},
    {"id": "i2", "category_id": null, "task_id": "t1", "name": "Water plants", "sort_position": 0}
  ],
  "task_checks": [
    {"id": "k1", "task_id": "t1", "check_item_id": "i1", "is_done": true, "sort_position": 0, "created_at": "2026-01-01T08:00:00Z", "updated_at": "2026-01-01T09:00:00Z"}
  ],
  "extra": "ignored"
}`

func TestDecodeValidPayload(t *testing.T) {
	snap, err := Decode(strings.NewReader(validPayload))
	require.NoError(t, err)

	require.Len(t, snap.Categories, 1)
	require.Len(t, snap.Tasks, 1)
	require.Len(t, snap.CheckItems, 2)
	require.Len(t, snap.TaskChecks, 1)

	task := snap.Tasks[0]
	assert.Equal(t, "", task.Note)
	require.NotNil(t, task.DueTo)
	assert.Equal(t, 5, task.DueTo.Day())

	assert.Nil(t, snap.CheckItems[0].TaskID)
	require.NotNil(t, snap.CheckItems[1].TaskID)
	assert.Equal(t, "t1", *snap.CheckItems[1].TaskID)
	assert.True(t, snap.CheckItems[1].CreatedAt.IsZero(), "missing timestamps stay unset")
	assert.True(t, snap.CheckItems[1].UpdatedAt.IsZero())

	assert.True(t, snap.TaskChecks[0].IsDone)
	assert.Equal(t, 9, snap.TaskChecks[0].UpdatedAt.Hour())
}

func TestDecodeRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		entity  string
		index   int
		field   string
		reason  string
	}{
		{
			name:    "malformed json",
			payload: `{"categories": [`,
			entity:  "", index: -1, reason: "malformed JSON",
		},
		{
			name:    "not an object",
			payload: `[1, 2]`,
			entity:  "", index: -1, reason: "expected a JSON object",
		},
		{
			name:    "missing collection",
			payload: `{"categories": [], "tasks": [], "check_items": []}`,
			entity:  "task_checks", index: -1, reason: "is required",
		},
		{
			name:    "null collection",
			payload: `{"categories": null, "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: -1, reason: "must be an array",
		},
		{
			name:    "collection is not an array",
			payload: `{"categories": {}, "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: -1, reason: "must be an array",
		},
		{
			name:    "row is not an object",
			payload: `{"categories": ["x"], "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: 0, reason: "must be an object",
		},
		{
			name:    "wrong field type",
			payload: `{"categories": [{"id": "c1", "name": 5}], "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: 0, field: "name", reason: "expected string",
		},
		{
			name:    "missing required field",
			payload: `{"categories": [{"id": "c1"}], "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: 0, field: "name", reason: "is required",
		},
		{
			name:    "bad timestamp",
			payload: `{"categories": [{"id": "c1", "name": "A", "created_at": "yesterday"}], "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: 0, field: "created_at", reason: "invalid timestamp",
		},
		{
			name:    "bad due date",
			payload: `{"categories": [], "tasks": [{"id": "t1", "category_id": "c1", "name": "x", "due_to": "soon"}], "check_items": [], "task_checks": []}`,
			entity:  "tasks", index: 0, field: "due_to", reason: "invalid timestamp",
		},
		{
			name:    "template with both parents",
			payload: `{"categories": [], "tasks": [], "check_items": [{"id": "i1", "category_id": "c1", "task_id": "t1", "name": "x", "sort_position": 0}], "task_checks": []}`,
			entity:  "check_items", index: 0, reason: "both",
		},
		{
			name:    "template with no parent",
			payload: `{"categories": [], "tasks": [], "check_items": [{"id": "i1", "name": "x", "sort_position": 0}], "task_checks": []}`,
			entity:  "check_items", index: 0, reason: "must belong",
		},
		{
			name:    "negative position",
			payload: `{"categories": [], "tasks": [], "check_items": [{"id": "i1", "category_id": "c1", "name": "x", "sort_position": -1}], "task_checks": []}`,
			entity:  "check_items", index: 0, field: "sort_position", reason: "negative",
		},
		{
			name:    "fractional position",
			payload: `{"categories": [], "tasks": [], "check_items": [{"id": "i1", "category_id": "c1", "name": "x", "sort_position": 1.5}], "task_checks": []}`,
			entity:  "check_items", index: 0, field: "sort_position", reason: "expected int",
		},
		{
			name:    "duplicate id",
			payload: `{"categories": [{"id": "c1", "name": "A"}, {"id": "c1", "name": "B"}], "tasks": [], "check_items": [], "task_checks": []}`,
			entity:  "categories", index: 1, field: "id", reason: "duplicate id",
		},
		{
			name:    "template without position",
			payload: `{"categories": [], "tasks": [], "check_items": [{"id": "i1", "category_id": "c1", "name": "x"}], "task_checks": []}`,
			entity:  "check_items", index: 0, field: "sort_position", reason: "is required",
		},
		{
			name:    "check without position",
			payload: `{"categories": [], "tasks": [], "check_items": [], "task_checks": [{"id": "k1", "task_id": "t1", "check_item_id": "i1", "is_done": false}]}`,
			entity:  "task_checks", index: 0, field: "sort_position", reason: "is required",
		},
		{
			name:    "duplicate template name in one category",
			payload: `{"categories": [], "tasks": [], "check_items": [{"id": "i1", "category_id": "c1", "name": "Dress", "sort_position": 0}, {"id": "i2", "category_id": "c1", "name": "Dress", "sort_position": 1}], "task_checks": []}`,
			entity:  "check_items", index: 1, field: "name", reason: "duplicate check item",
		},
		{
			name:    "is_done wrong type",
			payload: `{"categories": [], "tasks": [], "check_items": [], "task_checks": [{"id": "k1", "task_id": "t1", "check_item_id": "i1", "is_done": "yes"}]}`,
			entity:  "task_checks", index: 0, field: "is_done", reason: "expected bool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.payload))
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %T: %v", err, err)
			assert.Equal(t, tt.entity, vErr.Entity)
			assert.Equal(t, tt.index, vErr.Index)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Contains(t, vErr.Reason, tt.reason)
		})
	}
}

func TestValidateAllowsSameNameAcrossScopes(t *testing.T) {
	payload := `{"categories": [], "tasks": [], "check_items": [
		{"id": "i1", "category_id": "c1", "name": "Dress", "sort_position": 0},
		{"id": "i2", "category_id": "c2", "name": "Dress", "sort_position": 0},
		{"id": "i3", "task_id": "t1", "name": "Dress", "sort_position": 0}
	], "task_checks": []}`

	snap, err := Decode(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Len(t, snap.CheckItems, 3)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Entity: "task_checks", Index: 2, Field: "task_id", Reason: "is required"}
	assert.Equal(t, "invalid import data: task_checks[2].task_id: is required", err.Error())

	err = &ValidationError{Index: -1, Reason: "malformed JSON"}
	assert.Equal(t, "invalid import data: malformed JSON", err.Error())
}
