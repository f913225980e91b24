package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/taskcheck/internal/model"
)

// Snapshotter is the part of the store the exporter needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
}

// backupPrefix starts every export file name written by this package.
const backupPrefix = "taskcheck-backup-"

// BackupGlob matches the names BackupFileName produces.
const BackupGlob = backupPrefix + "*.json"

// Export reads the full graph. Collections are never nil, so they encode
// as empty arrays.
func Export(ctx context.Context, src Snapshotter) (model.Snapshot, error) {
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("exporting: %w", err)
	}
	return snap.Clone(), nil
}

// WriteJSON encodes snap as indented JSON with ISO-8601 timestamps.
func WriteJSON(w io.Writer, snap model.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap.Clone()); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// BackupFileName returns the export file name for a backup taken at t.
func BackupFileName(t time.Time) string {
	return backupPrefix + t.UTC().Format("20060102-150405") + ".json"
}

// ExportFile writes the full graph to path. The file is written next to its
// destination and renamed into place, so readers never see a partial export.
func ExportFile(ctx context.Context, src Snapshotter, path string) error {
	snap, err := Export(ctx, src)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.json")
	if err != nil {
		return fmt.Errorf("creating temp export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteJSON(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving export into place at %s: %w", path, err)
	}
	return nil
}
