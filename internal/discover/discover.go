// Package discover resolves the file set an operation runs over.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/sittertree/internal/lang"
)

var (
	// ErrPathNotFound is returned when an explicitly given path does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrUnsupportedLanguage is returned when an explicitly given file has no
	// registered language.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNotAFile is returned when a single source file is required and the
	// path names a directory.
	ErrNotAFile = errors.New("not a file")
)

// FileEntry represents a resolved source file.
type FileEntry struct {
	Path     string
	Language string
}

// Options control directory expansion. Explicit file paths are never
// filtered by them.
type Options struct {
	// MaxFileSize skips larger files found in directories; 0 disables.
	MaxFileSize int64
	// RespectGitignore skips files matched by a directory's .gitignore.
	RespectGitignore bool
	// Exclude holds doublestar patterns matched against paths relative to
	// the scanned directory.
	Exclude []string
	Logger  *slog.Logger
}

var skipDirs = map[string]struct{}{
	"node_modules":        {},
	".git":                {},
	".hg":                 {},
	".svn":                {},
	"build":               {},
	"dist":                {},
	"cmake-build-debug":   {},
	"cmake-build-release": {},
}

// Resolve expands paths into the sorted, de-duplicated list of supported
// source files. Directories are walked recursively and unsupported files in
// them are skipped; an explicit file with no registered language or a path
// that does not exist is an error.
func Resolve(paths []string, opts Options) ([]FileEntry, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	seen := make(map[string]struct{})
	var results []FileEntry
	add := func(e FileEntry) {
		key := filepath.Clean(e.Path)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		results = append(results, e)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		if !info.IsDir() {
			e, err := fileEntry(p)
			if err != nil {
				return nil, err
			}
			add(e)
			continue
		}

		entries, err := walk(p, opts)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			add(e)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// ResolveFile checks that path is one existing source file in a supported
// language. Directories are rejected with ErrNotAFile.
func ResolveFile(path string) (FileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileEntry{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return FileEntry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileEntry{}, fmt.Errorf("%w: %s is a directory", ErrNotAFile, path)
	}
	return fileEntry(path)
}

func fileEntry(path string) (FileEntry, error) {
	l := lang.ForPath(path)
	if l == nil {
		return FileEntry{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
	return FileEntry{Path: path, Language: l.Name}, nil
}

func walk(root string, opts Options) ([]FileEntry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gi = loadGitignore(root)
	}

	var results []FileEntry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		l := lang.ForPath(name)
		if l == nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		for _, pattern := range opts.Exclude {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}

		if opts.MaxFileSize > 0 {
			if fi, err := d.Info(); err == nil && fi.Size() > opts.MaxFileSize {
				logger.Warn("skipping large file", slog.String("file", path), slog.Int64("size", fi.Size()))
				return nil
			}
		}

		results = append(results, FileEntry{Path: path, Language: l.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
