// Package backup writes scheduled export files and prunes old ones.
package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/taskcheck/internal/transfer"
)

// jobTimeout bounds a single scheduled export.
const jobTimeout = 2 * time.Minute

// Scheduler wraps a cron runner that exports the store into a directory.
type Scheduler struct {
	cron   *cron.Cron
	src    transfer.Snapshotter
	dir    string
	keep   int
	logger *log.Logger
	now    func() time.Time
}

// New creates a Scheduler writing into dir and keeping the newest keep
// backups. keep <= 0 disables pruning. A nil logger logs to stderr.
func New(src transfer.Snapshotter, dir string, keep int, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(os.Stderr, "[backup] ", log.LstdFlags)
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		src:    src,
		dir:    dir,
		keep:   keep,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule registers a backup job. spec is a cron expression with an
// optional seconds field, or a descriptor such as "@daily" or "@every 6h".
func (s *Scheduler) Schedule(spec string) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Printf("Backup failed: %v", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return id, nil
}

// Start runs scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Next returns the next time a scheduled backup will run.
func (s *Scheduler) Next() (time.Time, bool) {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next, !next.IsZero()
}

// RunOnce writes one backup now and prunes old ones. It returns the path
// written.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	path := filepath.Join(s.dir, transfer.BackupFileName(s.now()))
	if err := transfer.ExportFile(ctx, s.src, path); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	s.logger.Printf("Wrote %s", path)

	removed, err := s.Prune()
	if err != nil {
		return path, err
	}
	if len(removed) > 0 {
		s.logger.Printf("Pruned %d old backups", len(removed))
	}
	return path, nil
}

// Prune deletes all but the newest keep backups and returns the removed
// paths. Other files in the directory are left alone.
func (s *Scheduler) Prune() ([]string, error) {
	if s.keep <= 0 {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(s.dir, transfer.BackupGlob))
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	if len(files) <= s.keep {
		return nil, nil
	}

	// Names embed a UTC timestamp, so lexical order is chronological.
	sort.Strings(files)
	stale := files[:len(files)-s.keep]
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("removing %s: %w", f, err)
		}
	}
	return stale, nil
}
