// Package parse reads source files and turns them into tree-sitter trees,
// reusing cached trees while files are unchanged.
package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sittertree/internal/cache"
	"github.com/phobologic/sittertree/internal/lang"
	"github.com/phobologic/sittertree/internal/textdecode"
)

// ErrParse marks a failure to read or parse one file.
var ErrParse = errors.New("parse failure")

// File is one parsed source file.
type File struct {
	Path     string
	Language *lang.Language
	Source   []byte
	Tree     *sitter.Tree
	Decoder  textdecode.Decoder
}

// Root returns the tree's root node.
func (f *File) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// Text returns the decoded source text of node.
func (f *File) Text(node *sitter.Node) string {
	return f.Decoder.Decode(f.Source[node.StartByte():node.EndByte()])
}

// Registry parses files for every registered language. It pools parsers per
// language and consults the tree cache before parsing. A Registry is safe for
// concurrent use.
type Registry struct {
	trees *cache.Trees

	mu      sync.Mutex
	parsers map[string]*sync.Pool
}

// NewRegistry returns a registry backed by trees. A nil cache disables
// caching.
func NewRegistry(trees *cache.Trees) *Registry {
	return &Registry{
		trees:   trees,
		parsers: make(map[string]*sync.Pool),
	}
}

// Cache returns the tree cache, which may be nil.
func (r *Registry) Cache() *cache.Trees {
	return r.trees
}

// Load reads and parses path with the language registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*File, error) {
	l := lang.ForPath(path)
	if l == nil {
		return nil, fmt.Errorf("%w: %s: no language for extension", ErrParse, path)
	}
	return r.LoadAs(ctx, path, l)
}

// LoadAs reads and parses path as language l.
func (r *Registry) LoadAs(ctx context.Context, path string, l *lang.Language) (*File, error) {
	if r.trees != nil {
		if e, ok := r.trees.Get(path); ok && e.Language == l.Name {
			return &File{
				Path:     path,
				Language: l,
				Source:   e.Source,
				Tree:     e.Tree,
				Decoder:  textdecode.Guess(e.Source),
			}, nil
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrParse, path, err)
	}

	tree, err := r.ParseBytes(ctx, l, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}

	if r.trees != nil {
		// A file that vanished between read and stat is still usable.
		_ = r.trees.Put(path, l.Name, tree, source)
	}

	return &File{
		Path:     path,
		Language: l,
		Source:   source,
		Tree:     tree,
		Decoder:  textdecode.Guess(source),
	}, nil
}

// ParseBytes parses source with language l without touching the cache.
func (r *Registry) ParseBytes(ctx context.Context, l *lang.Language, source []byte) (*sitter.Tree, error) {
	pool := r.pool(l)
	p := pool.Get().(*sitter.Parser)
	defer pool.Put(p)
	return p.ParseCtx(ctx, nil, source)
}

func (r *Registry) pool(l *lang.Language) *sync.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pool, ok := r.parsers[l.Name]
	if !ok {
		pool = &sync.Pool{New: func() any { return l.NewParser() }}
		r.parsers[l.Name] = pool
	}
	return pool
}
