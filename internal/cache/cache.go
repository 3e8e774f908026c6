// Package cache keeps parsed syntax trees keyed by file path and invalidates
// them when the file's modification time advances.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maypok86/otter"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrCache is returned when an entry cannot be stored.
var ErrCache = errors.New("cache")

// DefaultCapacity is the number of trees kept when no capacity is configured.
const DefaultCapacity = 512

// MinCapacity is the smallest capacity New accepts. Below it otter's
// admission policy rejects every entry and nothing is ever cached.
const MinCapacity = 16

// Entry is one cached parse result. Source holds the exact bytes the tree was
// built from; node offsets are only valid against it.
type Entry struct {
	ModTime  time.Time
	Language string
	Tree     *sitter.Tree
	Source   []byte
}

// Trees is a bounded path → tree cache. It is safe for concurrent use.
type Trees struct {
	entries otter.Cache[string, Entry]
}

// New returns a cache holding at most capacity trees.
func New(capacity int) (*Trees, error) {
	if capacity < MinCapacity {
		return nil, fmt.Errorf("%w: capacity must be at least %d, got %d", ErrCache, MinCapacity, capacity)
	}
	c, err := otter.MustBuilder[string, Entry](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: building: %v", ErrCache, err)
	}
	return &Trees{entries: c}, nil
}

// Get returns the cached entry for path if the file has not been modified
// since it was stored. Stale entries are dropped.
func (t *Trees) Get(path string) (Entry, bool) {
	key := cacheKey(path)
	e, ok := t.entries.Get(key)
	if !ok {
		return Entry{}, false
	}
	fi, err := os.Stat(path)
	if err != nil || fi.ModTime().After(e.ModTime) {
		t.entries.Delete(key)
		return Entry{}, false
	}
	return e, true
}

// Put stores tree and source for path, stamped with the file's current
// modification time.
func (t *Trees) Put(path, language string, tree *sitter.Tree, source []byte) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: caching %s: %v", ErrCache, path, err)
	}
	t.entries.Set(cacheKey(path), Entry{
		ModTime:  fi.ModTime(),
		Language: language,
		Tree:     tree,
		Source:   source,
	})
	return nil
}

// Clear drops the entry for path.
func (t *Trees) Clear(path string) {
	t.entries.Delete(cacheKey(path))
}

// ClearAll drops every entry.
func (t *Trees) ClearAll() {
	t.entries.Clear()
}

// Len returns the number of cached entries.
func (t *Trees) Len() int {
	return t.entries.Size()
}

// Close releases the cache's background resources.
func (t *Trees) Close() {
	t.entries.Close()
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
