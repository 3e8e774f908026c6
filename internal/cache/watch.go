package cache

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher clears cache entries for files that change on disk and reports the
// changed paths.
type Watcher struct {
	trees   *Trees
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	changes chan string
}

// NewWatcher creates a watcher bound to trees.
func NewWatcher(trees *Trees, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		trees:   trees,
		fsw:     fsw,
		logger:  logger,
		changes: make(chan string, 16),
	}, nil
}

// Add watches path. Directories are watched recursively, skipping hidden
// directories; for a file its parent directory is watched.
func (w *Watcher) Add(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	if !fi.IsDir() {
		return w.fsw.Add(filepath.Dir(path))
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// Changes delivers paths whose cache entries were cleared. Notifications are
// dropped while the consumer is behind.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Run processes file-system events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.trees.Clear(ev.Name)
			w.logger.Debug("cache entry cleared", slog.String("file", ev.Name), slog.String("op", ev.Op.String()), slog.Int("cached", w.trees.Len()))
			select {
			case w.changes <- ev.Name:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
