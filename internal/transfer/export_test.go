package transfer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/transfer"
	"github.com/nhle/taskcheck/tests/testutil"
)

func TestWriteJSONEmptyStore(t *testing.T) {
	s := testutil.NewTestStore(t)

	snap, err := transfer.Export(context.Background(), s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, transfer.WriteJSON(&buf, snap))

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &top))
	for _, key := range []string{"categories", "tasks", "check_items", "task_checks"} {
		assert.JSONEq(t, `[]`, string(top[key]), key)
	}
}

func TestWriteJSONFieldNames(t *testing.T) {
	due := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	snap := morningSnapshot()
	snap.Tasks[0].DueTo = &due

	var buf bytes.Buffer
	require.NoError(t, transfer.WriteJSON(&buf, snap))
	out := buf.String()

	assert.Contains(t, out, `"due_to": "2026-03-02T09:30:00Z"`)
	assert.Contains(t, out, `"created_at": "2026-01-01T08:00:00Z"`)
	assert.Contains(t, out, `"category_id": null`, "ad-hoc items carry an explicit null parent")
	assert.Contains(t, out, `"is_done": true`)
	assert.Contains(t, out, `"sort_position": 2`)

	back, err := transfer.Decode(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, snap.Tasks[0].Name, back.Tasks[0].Name)
	require.NotNil(t, back.Tasks[0].DueTo)
	assert.True(t, due.Equal(*back.Tasks[0].DueTo))
	assert.True(t, back.CheckItems[2].IsAdHoc())
}

func TestBackupFileName(t *testing.T) {
	at := time.Date(2026, 10, 18, 7, 5, 9, 0, time.FixedZone("JST", 9*3600))
	assert.Equal(t, "taskcheck-backup-20261017-220509.json", transfer.BackupFileName(at))
}

func TestExportFile(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.SeedCategory(t, s, "Trip", []string{"Passport"}, "Lisbon")

	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, transfer.ExportFile(context.Background(), s, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	snap, err := transfer.Decode(f)
	require.NoError(t, err)
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Tasks, 1)
	assert.Len(t, snap.CheckItems, 1)
	assert.Len(t, snap.TaskChecks, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestConvertLegacy(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cats := []model.LegacyCategory{{
		ID:   "a",
		Name: " Morning ",
		Items: []model.LegacyItem{
			{ID: "a1", Title: "Dress", Completed: false},
			{ID: "a2", Title: "Breakfast"},
			{ID: "a3", Title: "Dress", Completed: true},
		},
	}}

	snap := transfer.ConvertLegacy(cats, now)
	require.NoError(t, transfer.Validate(snap))

	require.Len(t, snap.Categories, 1)
	assert.Equal(t, "Morning", snap.Categories[0].Name)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "a", snap.Tasks[0].CategoryID)
	require.Len(t, snap.CheckItems, 2)
	assert.Equal(t, []string{"Dress", "Breakfast"}, []string{snap.CheckItems[0].Name, snap.CheckItems[1].Name})
	require.Len(t, snap.TaskChecks, 2)
	assert.True(t, snap.TaskChecks[0].IsDone, "duplicate titles merge as done")

	again := transfer.ConvertLegacy(cats, now)
	assert.Equal(t, snap.Tasks[0].ID, again.Tasks[0].ID)
}

func TestDecodeLegacyRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{name: "object", payload: `{"name": "x"}`},
		{name: "null", payload: `null`},
		{name: "missing name", payload: `[{"id": "a", "items": []}]`, field: "name"},
		{name: "missing title", payload: `[{"name": "a", "items": [{"id": "1"}]}]`, field: "items[0].title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transfer.DecodeLegacy(strings.NewReader(tt.payload))
			var vErr *transfer.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "legacy", vErr.Entity)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
