package inbox

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskcheck/internal/transfer"
	"github.com/nhle/taskcheck/tests/testutil"
)

const validFile = `{
  "categories": [{"id": "c1", "name": "Trip", "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}],
  "tasks": [{"id": "t1", "category_id": "c1", "name": "Lisbon", "note": "", "due_to": null, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}],
  "check_items": [{"id": "i1", "category_id": "c1", "task_id": null, "name": "Passport", "sort_position": 0, "created_at": "2026-01-01T00:00:00Z", "updated_at": "2026-01-01T00:00:00Z"}],
  "task_checks": []
}`

func startWatcher(t *testing.T, dir string) *transfer.Importer {
	t.Helper()

	s := testutil.NewTestStore(t)
	quiet := log.New(io.Discard, "", 0)
	importer := transfer.NewImporter(s, quiet)

	w, err := New(importer, dir, &Config{DebounceInterval: 50 * time.Millisecond, Logger: quiet})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return importer
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewCreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	w, err := New(transfer.NewImporter(testutil.NewTestStore(t), nil), dir, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.DirExists(t, filepath.Join(dir, ImportedDir))
	assert.DirExists(t, filepath.Join(dir, RejectedDir))
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, t.TempDir(), nil)
	assert.Error(t, err)

	_, err = New(transfer.NewImporter(testutil.NewTestStore(t), nil), "", nil)
	assert.Error(t, err)
}

func TestImportsWaitingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trip.json"), []byte(validFile), 0o644))

	startWatcher(t, dir)

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ImportedDir, "trip.json"))
	}, 5*time.Second, 20*time.Millisecond)
	assert.False(t, exists(filepath.Join(dir, "trip.json")))
}

func TestImportsNewFile(t *testing.T) {
	dir := t.TempDir()
	startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "trip.json"), []byte(validFile), 0o644))

	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ImportedDir, "trip.json"))
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"categories": [`), 0o644))

	note := filepath.Join(dir, RejectedDir, "broken.json.err")
	require.Eventually(t, func() bool { return exists(note) }, 5*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(note)
	require.NoError(t, err)
	assert.Contains(t, string(data), "invalid import data")
	assert.True(t, exists(filepath.Join(dir, RejectedDir, "broken.json")))
}

func TestIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial.json"), []byte(validFile), 0o644))
	startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "trip.json"), []byte(validFile), 0o644))
	require.Eventually(t, func() bool {
		return exists(filepath.Join(dir, ImportedDir, "trip.json"))
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, exists(filepath.Join(dir, "notes.txt")))
	assert.True(t, exists(filepath.Join(dir, ".partial.json")))
}

func TestMoveIntoAvoidsOverwrite(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.json"), []byte("old"), 0o644))

	src := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))

	moved, err := moveInto(src, dest)
	require.NoError(t, err)
	assert.NotEqual(t, filepath.Join(dest, "a.json"), moved)

	old, err := os.ReadFile(filepath.Join(dest, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestSettledWaitsForQuietPeriod(t *testing.T) {
	w := &Watcher{config: &Config{DebounceInterval: time.Second}, queue: make(map[string]time.Time)}
	now := time.Now()
	w.queue["/in/a.json"] = now.Add(-2 * time.Second)
	w.queue["/in/b.json"] = now.Add(-100 * time.Millisecond)

	assert.Equal(t, []string{"/in/a.json"}, w.settled(now))
	assert.Len(t, w.queue, 1)
}
