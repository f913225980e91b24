package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskcheck/internal/logging"
	"github.com/nhle/taskcheck/internal/model"
	"github.com/nhle/taskcheck/internal/store"
)

// env is what every command needs: the resolved config, an open store and
// the shared log output.
type env struct {
	cfg    *model.AppConfig
	store  *store.SQLiteStore
	out    io.Writer
	closer io.Closer
}

// openEnv loads the config named by --config, applies --db, and opens the
// database, creating its directory if needed.
func openEnv(cmd *cobra.Command) (*env, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.Path = db
	}
	return openEnvWith(cfg)
}

func openEnvWith(cfg *model.AppConfig) (*env, error) {
	out, closer := logging.Output(cfg.Log)

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			closer.Close()
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		closer.Close()
		return nil, err
	}
	s.SetLogger(logging.New(out, "store"))

	return &env{cfg: cfg, store: s, out: out, closer: closer}, nil
}

// logger returns a component logger on the shared output.
func (e *env) logger(component string) *log.Logger {
	return logging.New(e.out, component)
}

func (e *env) Close() error {
	err := e.store.Close()
	if cerr := e.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

// findCategory resolves a category by exact name, then by id or a unique
// id prefix.
func findCategory(ctx context.Context, s store.Store, ref string) (*model.Category, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("category must not be empty")
	}
	c, err := s.GetCategoryByName(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	cats, err := s.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	var matches []model.Category
	for _, c := range cats {
		if c.ID == ref {
			return &c, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no category named or with id %q", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%d categories match %q; use the full id", len(matches), ref)
	}
}

// findTask resolves a task by id, then by a unique name or id prefix.
func findTask(ctx context.Context, s store.Store, ref string) (*model.Task, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("task must not be empty")
	}
	t, err := s.GetTaskByID(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	tasks, err := s.GetTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, err
	}
	var matches []model.Task
	for _, t := range tasks {
		if t.Name == ref || strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no task named or with id %q", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%d tasks match %q; use the id", len(matches), ref)
	}
}

// shortID abbreviates a uuid for listings; findTask accepts the prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
