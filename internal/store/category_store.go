package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskcheck/internal/model"
)

// CreateCategory inserts a category with one template per item name,
// positioned 0..n-1 in the given order.
func (s *SQLiteStore) CreateCategory(
	ctx context.Context,
	name string,
	itemNames []string,
) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name must not be empty")
	}
	items, err := cleanItemNames(itemNames)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cat := model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.update(ctx, func(t *sqliteTx) error {
		if err := t.ensureCategoryNameFree(ctx, name, ""); err != nil {
			return err
		}
		if err := t.InsertCategory(ctx, cat); err != nil {
			return err
		}
		return t.insertCategoryItems(ctx, cat.ID, items, now)
	})
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return &cat, nil
}

// UpdateCategory renames a category and replaces its template list. Every
// category-level template is deleted and recreated, so the matching checks
// on existing tasks restart as not done. Ad-hoc items are kept and moved
// after the new templates.
func (s *SQLiteStore) UpdateCategory(
	ctx context.Context,
	id, name string,
	itemNames []string,
) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category name must not be empty")
	}
	items, err := cleanItemNames(itemNames)
	if err != nil {
		return err
	}

	return s.update(ctx, func(t *sqliteTx) error {
		now := time.Now().UTC()
		if err := t.ensureCategoryNameFree(ctx, name, id); err != nil {
			return err
		}
		if err := t.renameCategory(ctx, id, name, now); err != nil {
			return err
		}
		if err := t.deleteCategoryItems(ctx, id); err != nil {
			return err
		}
		if err := t.insertCategoryItems(ctx, id, items, now); err != nil {
			return err
		}

		tasks, err := t.TasksInCategory(ctx, id)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if _, err := t.MaterializeChecks(ctx, task.ID); err != nil {
				return err
			}
		}
		return t.Renumber(ctx, []string{id}, nil)
	})
}

// RenameCategory changes only the category name.
func (s *SQLiteStore) RenameCategory(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category name must not be empty")
	}
	return s.update(ctx, func(t *sqliteTx) error {
		if err := t.ensureCategoryNameFree(ctx, name, id); err != nil {
			return err
		}
		return t.renameCategory(ctx, id, name, time.Now().UTC())
	})
}

// DeleteCategory removes a category. Cascades to its tasks, their checks,
// its templates and the tasks' ad-hoc templates.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	return s.update(ctx, func(t *sqliteTx) error {
		result, err := t.tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting category %s: %w", id, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("category %s: %w", id, ErrNotFound)
		}
		t.mark(TableCategories, TableTasks, TableCheckItems, TableTaskChecks)
		return nil
	})
}

// GetCategoryByID retrieves a single category by ID.
func (s *SQLiteStore) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	return getRow[model.Category](ctx, s.db, "category "+id,
		"SELECT * FROM categories WHERE id = ?", id)
}

// GetCategoryByName retrieves a single category by its unique name.
func (s *SQLiteStore) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	return getRow[model.Category](ctx, s.db, fmt.Sprintf("category %q", name),
		"SELECT * FROM categories WHERE name = ?", strings.TrimSpace(name))
}

// GetCategories returns all categories in creation order.
func (s *SQLiteStore) GetCategories(ctx context.Context) ([]model.Category, error) {
	return selectCategories(ctx, s.db)
}

// ensureCategoryNameFree fails if a category other than exceptID already
// uses name.
func (t *sqliteTx) ensureCategoryNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := t.CategoryByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != exceptID {
		return fmt.Errorf("category %q already exists", name)
	}
	return nil
}

func (t *sqliteTx) insertCategoryItems(ctx context.Context, categoryID string, names []string, now time.Time) error {
	for i, n := range names {
		catID := categoryID
		err := t.InsertCheckItem(ctx, model.CheckItem{
			ID:           uuid.New().String(),
			CategoryID:   &catID,
			Name:         n,
			SortPosition: i,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// cleanItemNames trims names, drops blanks and rejects duplicates, which
// would make templates indistinguishable on import.
func cleanItemNames(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate check item %q", n)
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}
