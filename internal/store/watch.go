package store

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/nhle/taskcheck/internal/model"
)

// watch registers for change signals on table, delivers the current row set
// once, then redelivers the full row set after every committed change until
// ctx is done or the returned UnsubscribeFunc is called. Registration
// happens before the first load so no commit can slip between them.
func watch[T any](
	ctx context.Context,
	s *SQLiteStore,
	table Table,
	load func(context.Context) ([]T, error),
	fn func([]T),
) (UnsubscribeFunc, error) {
	sub := s.hub.subscribe(table)

	rows, err := load(ctx)
	if err != nil {
		s.hub.unsubscribe(table, sub)
		return nil, fmt.Errorf("watching %s: %w", table, err)
	}
	fn(rows)

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-sub.signal:
				rows, err := load(ctx)
				if err != nil {
					s.logger.Printf("refreshing %s: %v", table, err)
					continue
				}
				select {
				case <-done:
					return
				default:
				}
				fn(rows)
			}
		}
	}()

	var once gosync.Once
	return func() {
		once.Do(func() {
			s.hub.unsubscribe(table, sub)
			close(done)
			<-finished
		})
	}, nil
}

// WatchCategories streams the full category list.
func (s *SQLiteStore) WatchCategories(ctx context.Context, fn func([]model.Category)) (UnsubscribeFunc, error) {
	return watch(ctx, s, TableCategories, func(ctx context.Context) ([]model.Category, error) {
		return selectCategories(ctx, s.db)
	}, fn)
}

// WatchTasks streams the full task list.
func (s *SQLiteStore) WatchTasks(ctx context.Context, fn func([]model.Task)) (UnsubscribeFunc, error) {
	return watch(ctx, s, TableTasks, func(ctx context.Context) ([]model.Task, error) {
		return selectTasks(ctx, s.db, TaskFilter{})
	}, fn)
}

// WatchCheckItems streams every checklist template.
func (s *SQLiteStore) WatchCheckItems(ctx context.Context, fn func([]model.CheckItem)) (UnsubscribeFunc, error) {
	return watch(ctx, s, TableCheckItems, func(ctx context.Context) ([]model.CheckItem, error) {
		return selectCheckItems(ctx, s.db, CheckItemFilter{})
	}, fn)
}

// WatchTaskChecks streams every task check.
func (s *SQLiteStore) WatchTaskChecks(ctx context.Context, fn func([]model.TaskCheck)) (UnsubscribeFunc, error) {
	return watch(ctx, s, TableTaskChecks, func(ctx context.Context) ([]model.TaskCheck, error) {
		return selectTaskChecks(ctx, s.db, TaskCheckFilter{})
	}, fn)
}
