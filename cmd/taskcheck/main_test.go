package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/ui/detail"
)

// run executes the CLI against the database in dir and returns its output.
func run(t *testing.T, dir string, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", filepath.Join(dir, "taskcheck.db"),
	}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, nil, args...)
	require.NoError(t, err, "taskcheck %s\n%s", strings.Join(args, " "), out)
	return out
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// on the package-level commands between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestChecklistLifecycle(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "category", "add", "Morning", "-i", "Wash", "-i", "Dress")
	assert.Contains(t, out, `"Morning"`)

	mustRun(t, dir, "task", "add", "Monday", "-c", "Morning")
	out = mustRun(t, dir, "task", "ls")
	assert.Contains(t, out, "todo")
	assert.Contains(t, out, "0/2")
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "Morning")

	out = mustRun(t, dir, "check", "toggle", "Monday", "1")
	assert.Contains(t, out, `"Wash" is now done`)
	out = mustRun(t, dir, "task", "ls")
	assert.Contains(t, out, "doing")
	assert.Contains(t, out, "1/2")

	mustRun(t, dir, "check", "add", "Monday", "Snack")
	out = mustRun(t, dir, "task", "show", "Monday")
	assert.Contains(t, out, "[x] Wash")
	assert.Contains(t, out, "[ ] Dress")
	assert.Contains(t, out, "Snack  (this task only)")

	_, err := run(t, dir, nil, "check", "rm", "Monday", "Wash")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category edit")

	mustRun(t, dir, "check", "rm", "Monday", "snack")
	mustRun(t, dir, "check", "toggle", "Monday", "Dress")
	out = mustRun(t, dir, "task", "ls")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "2/2")
}

func TestCategoryEditKeepsTasks(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "category", "add", "Travel", "-i", "Passport")
	mustRun(t, dir, "task", "add", "Osaka", "-c", "Travel")
	mustRun(t, dir, "check", "toggle", "Osaka", "Passport")

	mustRun(t, dir, "category", "edit", "Travel", "--name", "Trips")
	out := mustRun(t, dir, "task", "show", "Osaka")
	assert.Contains(t, out, "category: Trips")
	assert.Contains(t, out, "[x] Passport")

	mustRun(t, dir, "category", "edit", "Trips", "-i", "Passport", "-i", "Tickets")
	out = mustRun(t, dir, "task", "show", "Osaka")
	assert.Contains(t, out, "[ ] Passport")
	assert.Contains(t, out, "[ ] Tickets")

	mustRun(t, dir, "category", "rm", "Trips")
	out = mustRun(t, dir, "task", "ls")
	assert.Contains(t, out, "No tasks.")
}

func TestTaskEdit(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "category", "add", "Home")
	mustRun(t, dir, "task", "add", "Laundry", "-c", "Home", "--due", "2026-10-20")

	out := mustRun(t, dir, "task", "show", "Laundry")
	assert.Contains(t, out, "due:      2026-10-20")
	assert.Contains(t, out, "(no checklist items)")

	mustRun(t, dir, "task", "edit", "Laundry", "--name", "Wash clothes", "--clear-due")
	out = mustRun(t, dir, "task", "show", "Wash clothes")
	assert.NotContains(t, out, "due:")

	_, err := run(t, dir, nil, "task", "edit", "Wash clothes")
	assert.ErrorContains(t, err, "nothing to change")

	_, err = run(t, dir, nil, "task", "edit", "Wash clothes", "--due", "tomorrow", "--clear-due")
	assert.Error(t, err)

	_, err = run(t, dir, nil, "task", "add", "Orphan", "-c", "Nowhere")
	assert.ErrorContains(t, err, "no category")
}

func TestExportImportBetweenDatabases(t *testing.T) {
	src := t.TempDir()
	mustRun(t, src, "category", "add", "Morning", "-i", "Wash")
	mustRun(t, src, "task", "add", "Monday", "-c", "Morning")
	mustRun(t, src, "check", "toggle", "Monday", "Wash")

	file := filepath.Join(src, "export.json")
	mustRun(t, src, "export", "-o", file)
	_, err := os.Stat(file)
	require.NoError(t, err)

	dst := t.TempDir()
	out := mustRun(t, dst, "import", file)
	assert.Contains(t, out, "categories 1 new")

	out = mustRun(t, dst, "task", "show", "Monday")
	assert.Contains(t, out, "[x] Wash")

	// Importing the same file again changes nothing.
	out = mustRun(t, dst, "import", file)
	assert.Contains(t, out, "categories 0 new/0 updated/1 unchanged")
}

func TestExportToStdout(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "category", "add", "Empty")

	out := mustRun(t, dir, "export")
	assert.Contains(t, out, `"categories"`)
	assert.Contains(t, out, `"Empty"`)
	assert.Contains(t, out, `"tasks": []`)
}

func TestImportLegacyFromStdin(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"id":"","name":"Trip","isOpen":true,"items":[
		{"id":"","title":"Passport","completed":true},
		{"id":"","title":"Charger","completed":false}]}]`

	out, err := run(t, dir, strings.NewReader(legacy), "import", "-", "--legacy")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported:")

	out = mustRun(t, dir, "task", "show", "Trip")
	assert.Contains(t, out, "[x] Passport")
	assert.Contains(t, out, "[ ] Charger")
}

func TestFailedImportChangesNothing(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "category", "add", "Keep")

	out, err := run(t, dir, strings.NewReader(`{"categories": [{"name": ""}]}`), "import", "-")
	require.Error(t, err, out)
	assert.Contains(t, err.Error(), "nothing was changed")

	out = mustRun(t, dir, "category", "ls")
	assert.Contains(t, out, "Keep")
}

func TestFindLine(t *testing.T) {
	lines := []detail.Line{
		{Item: model.CheckItem{ID: "a", Name: "Wash"}},
		{Item: model.CheckItem{ID: "b", Name: "Dress"}},
	}

	l, err := findLine(lines, "2")
	require.NoError(t, err)
	assert.Equal(t, "b", l.Item.ID)

	l, err = findLine(lines, "wash")
	require.NoError(t, err)
	assert.Equal(t, "a", l.Item.ID)

	_, err = findLine(lines, "3")
	assert.ErrorContains(t, err, "out of range")

	_, err = findLine(lines, "Shave")
	assert.Error(t, err)
}

func TestShortIDResolvesTask(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "category", "add", "Home")
	out := mustRun(t, dir, "task", "add", "Dishes", "-c", "Home")

	start := strings.Index(out, "(") + 1
	id := out[start : start+8]
	out = mustRun(t, dir, "task", "show", id)
	assert.Contains(t, out, "Dishes")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "config", "init")
	assert.Contains(t, out, "config.yaml")
	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	_, err = run(t, dir, nil, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	out = mustRun(t, dir, "config", "show")
	assert.Contains(t, out, "display.sort:    due_to")
	assert.Contains(t, out, filepath.Join(dir, "taskcheck.db"))
	assert.Contains(t, out, "backup.schedule: (off)")
}
