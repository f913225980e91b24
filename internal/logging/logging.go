// Package logging builds the component loggers.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nhle/taskcheck/internal/model"
)

// Output returns the writer all loggers share: a size-rotated file when
// cfg.File is set, stderr otherwise. Close the returned closer on exit.
func Output(cfg model.LogConfig) (io.Writer, io.Closer) {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stderr, nopCloser{}
	}
	_ = os.MkdirAll(filepath.Dir(cfg.File), 0o755)
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return rotator, rotator
}

// New returns a logger writing to w with a bracketed component prefix,
// e.g. New(w, "sync") logs lines starting with "[sync] ".
func New(w io.Writer, component string) *log.Logger {
	return log.New(w, "["+component+"] ", log.LstdFlags)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
