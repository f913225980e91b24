package testutil

import (
	"context"
	"testing"

	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedCategory creates a category with the given templates and one task
// under it, failing the test on any error.
func SeedCategory(
	t *testing.T,
	s store.Store,
	name string,
	items []string,
	taskName string,
) (*model.Category, *model.Task) {
	t.Helper()
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, name, items)
	if err != nil {
		t.Fatalf("creating category %q: %v", name, err)
	}

	task, err := s.CreateTask(ctx, model.Task{CategoryID: cat.ID, Name: taskName})
	if err != nil {
		t.Fatalf("creating task %q: %v", taskName, err)
	}

	return cat, task
}

// Counts returns the number of rows in each of the four tables.
func Counts(t *testing.T, s store.Store) [4]int {
	t.Helper()

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	return [4]int{len(snap.Categories), len(snap.Tasks), len(snap.CheckItems), len(snap.TaskChecks)}
}
