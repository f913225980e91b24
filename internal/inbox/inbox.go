// Package inbox imports export files dropped into a watched directory.
//
// The watcher:
// 1. Imports every *.json file already waiting in the directory
// 2. Watches the directory for new or rewritten files
// 3. Waits until a file has been quiet for the debounce interval
// 4. Moves it to imported/ on success, or to rejected/ with a .err note
package inbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nhle/taskcheck/internal/transfer"
)

// Subdirectories files are moved into once handled.
const (
	ImportedDir = "imported"
	RejectedDir = "rejected"
)

// FileImporter is the part of the importer the watcher needs.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (*transfer.Report, error)
}

// Config holds configuration for the watcher.
type Config struct {
	// DebounceInterval is how long a file must stay unchanged before it is
	// imported, so half-written files are not picked up.
	DebounceInterval time.Duration

	// Logger for inbox activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[inbox] ", log.LstdFlags),
	}
}

// Watcher imports files appearing in one directory.
type Watcher struct {
	importer FileImporter
	dir      string
	config   *Config

	watcher *fsnotify.Watcher
	queue   map[string]time.Time // path -> last event
	queueMu sync.Mutex

	wg sync.WaitGroup
}

// New creates a Watcher for dir, creating dir and its subdirectories if
// needed. Use Run to start it.
func New(importer FileImporter, dir string, config *Config) (*Watcher, error) {
	if importer == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	for _, d := range []string{dir, filepath.Join(dir, ImportedDir), filepath.Join(dir, RejectedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating inbox directory %s: %w", d, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		importer: importer,
		dir:      filepath.Clean(dir),
		config:   config,
		watcher:  watcher,
		queue:    make(map[string]time.Time),
	}, nil
}

// Run imports waiting files, then watches the directory until ctx is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.config.Logger.Printf("Watching %s", w.dir)

	pending, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("listing %s: %w", w.dir, err)
	}
	sort.Strings(pending)
	for _, path := range pending {
		if isCandidate(path) {
			w.handle(ctx, path)
		}
	}

	w.wg.Add(2)
	go w.watchEvents(ctx)
	go w.processQueue(ctx)

	<-ctx.Done()
	w.watcher.Close()
	w.wg.Wait()
	w.config.Logger.Println("Inbox stopped")
	return nil
}

func (w *Watcher) watchEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isCandidate(event.Name) || filepath.Dir(event.Name) != w.dir {
				continue
			}
			w.queueMu.Lock()
			w.queue[event.Name] = time.Now()
			w.queueMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) processQueue(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, path := range w.settled(time.Now()) {
				w.handle(ctx, path)
			}
		}
	}
}

// settled removes and returns the queued files that have been quiet for
// the debounce interval.
func (w *Watcher) settled(now time.Time) []string {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()

	var ready []string
	for path, at := range w.queue {
		if now.Sub(at) < w.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(w.queue, path)
	}
	sort.Strings(ready)
	return ready
}

// handle imports one file and files it away.
func (w *Watcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// Already moved or deleted.
		return
	}

	report, err := w.importer.ImportFile(ctx, path)
	if err != nil {
		w.config.Logger.Printf("Rejected %s: %v", filepath.Base(path), err)
		if moveErr := w.reject(path, err); moveErr != nil {
			w.config.Logger.Printf("Error moving %s: %v", path, moveErr)
		}
		return
	}

	w.config.Logger.Printf("Imported %s: %s", filepath.Base(path), report.Summary())
	if _, err := moveInto(path, filepath.Join(w.dir, ImportedDir)); err != nil {
		w.config.Logger.Printf("Error moving %s: %v", path, err)
	}
}

func (w *Watcher) reject(path string, cause error) error {
	dest, err := moveInto(path, filepath.Join(w.dir, RejectedDir))
	if err != nil {
		return err
	}
	return os.WriteFile(dest+".err", []byte(cause.Error()+"\n"), 0o644)
}

// moveInto renames path into dir, adding a timestamp when the name is
// already taken there.
func moveInto(path, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(dest, ext), time.Now().UTC().Format("20060102-150405.000"), ext)
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", path, dir, err)
	}
	return dest, nil
}

// isCandidate skips non-JSON files and hidden or temporary ones.
func isCandidate(path string) bool {
	base := filepath.Base(path)
	return filepath.Ext(base) == ".json" && !strings.HasPrefix(base, ".")
}
