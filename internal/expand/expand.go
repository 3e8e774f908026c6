// Package expand drives keyword searches across many files, growing the
// keyword set round by round from the type names each round turns up.
package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/sittertree/internal/discover"
	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/parse"
	"github.com/phobologic/sittertree/internal/project"
	"github.com/phobologic/sittertree/internal/rag"
	"github.com/phobologic/sittertree/internal/search"
)

// ErrInvalidRange is returned by BlockContext for a line range that is empty
// or starts before line 1.
var ErrInvalidRange = errors.New("invalid line range")

// Engine runs searches over the files named by a set of paths. Every call
// resolves and loads its files once; round state never outlives a call.
type Engine struct {
	registry *parse.Registry
	opts     discover.Options
	logger   *slog.Logger
}

// New returns an engine that loads files through registry. A nil logger
// discards all output.
func New(registry *parse.Registry, opts discover.Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Engine{registry: registry, opts: opts, logger: logger}
}

// Project returns the document of every file under paths, keyed by path.
// Detailed documents keep every node; otherwise only definitions and what
// leads to them are kept.
func (e *Engine) Project(ctx context.Context, paths []string, detailed bool) (out map[string]*model.Node, err error) {
	defer e.recoverPanic("project", func() { out, err = map[string]*model.Node{}, nil })

	files, err := e.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	mode := model.Overview
	if detailed {
		mode = model.Detailed
	}
	out = make(map[string]*model.Node, len(files))
	for _, f := range files {
		out[f.Path] = project.Document(f, mode)
	}
	return out, nil
}

// Index builds a similarity index over the overview document of every file
// under paths.
func (e *Engine) Index(ctx context.Context, paths []string) (*rag.Index, error) {
	files, err := e.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	ix, err := rag.New()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		n, err := ix.Add(ctx, f.Path, project.Document(f, model.Overview))
		if err != nil {
			return nil, err
		}
		e.logger.Debug("indexed file", "file", f.Path, "chunks", n)
	}
	return ix, nil
}

// Similar indexes the files under paths and returns the n chunks whose text
// is most similar to query.
func (e *Engine) Similar(ctx context.Context, paths []string, query string, n int) (out []rag.Hit, err error) {
	defer e.recoverPanic("similar", func() { out, err = nil, nil })

	ix, err := e.Index(ctx, paths)
	if err != nil {
		return nil, err
	}
	return ix.Query(ctx, query, n)
}

// FlatSearch matches keywords in every file, widening the keyword set for up
// to depth rounds with the type names found beside each match. The result
// holds one document per file that matched any accumulated keyword.
func (e *Engine) FlatSearch(ctx context.Context, paths, keywords []string, depth int) (out map[string]*model.Node, err error) {
	defer e.recoverPanic("flat search", func() { out, err = map[string]*model.Node{}, nil })

	files, err := e.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	seen, err := e.harvest(ctx, files, model.NewKeywordSet(keywords...), depth)
	if err != nil {
		return nil, err
	}

	out = make(map[string]*model.Node)
	for _, f := range files {
		if doc := search.MatchFile(f, seen, seen, nil); doc != nil {
			out[f.Path] = doc
		}
	}
	return out, nil
}

// DeepSearch finds the definitions named by keywords, then the definitions
// of the types they reference, for depth further rounds.
func (e *Engine) DeepSearch(ctx context.Context, paths, keywords []string, depth int) (out model.Records, err error) {
	defer e.recoverPanic("deep search", func() { out, err = model.Records{}, nil })

	files, err := e.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	return e.deep(ctx, files, model.NewKeywordSet(keywords...), depth)
}

// ContextSearch returns the definitions DeepSearch finds plus the
// definitions of every name a flat search harvests that the deep search did
// not already define.
func (e *Engine) ContextSearch(ctx context.Context, paths, keywords []string, depth int) (out model.Records, err error) {
	defer e.recoverPanic("context search", func() { out, err = model.Records{}, nil })

	files, err := e.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	return e.contextSearch(ctx, files, model.NewKeywordSet(keywords...), depth)
}

// BlockContext runs a context search seeded with the identifiers on lines
// start..end (1-based, inclusive) of file. With no paths the search covers
// file alone.
func (e *Engine) BlockContext(ctx context.Context, paths []string, file string, start, end, depth int) (out model.Records, err error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidRange, start, end)
	}
	defer e.recoverPanic("block context", func() { out, err = model.Records{}, nil })

	entry, err := discover.ResolveFile(file)
	if err != nil {
		return nil, err
	}
	block, err := e.registry.Load(ctx, entry.Path)
	if err != nil {
		return nil, err
	}
	seeds := search.BlockSeeds(block, start, end)
	e.logger.Debug("block seeds", "file", file, "lines", model.LineRange(uint32(start-1), uint32(end-1)), "seeds", seeds.Sorted())
	if seeds.Len() == 0 {
		return model.Records{}, nil
	}

	if len(paths) == 0 {
		paths = []string{file}
	}
	files, err := e.load(ctx, paths)
	if err != nil {
		return nil, err
	}
	return e.contextSearch(ctx, files, seeds, depth)
}

// harvest runs up to depth matcher rounds and returns every keyword seen.
func (e *Engine) harvest(ctx context.Context, files []*parse.File, keywords model.KeywordSet, depth int) (model.KeywordSet, error) {
	seen := keywords.Clone()
	frontier := keywords.Clone()
	for round := 0; round < depth && frontier.Len() > 0; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		harvested := model.NewKeywordSet()
		for _, f := range files {
			m := &search.Matcher{File: f, Keywords: frontier, Exclude: seen, Harvested: harvested}
			m.Match(f.Root())
		}
		frontier = harvested.Minus(seen)
		seen.AddAll(frontier)
		e.logger.Debug("search round", "round", round, "harvested", harvested.Len(), "frontier", frontier.Len(), "seen", seen.Len())
	}
	return seen, nil
}

func (e *Engine) deep(ctx context.Context, files []*parse.File, keywords model.KeywordSet, depth int) (model.Records, error) {
	records := model.Records{}
	seen := model.NewKeywordSet()
	frontier := keywords.Clone()
	for round := 0; round <= depth && frontier.Len() > 0; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen.AddAll(frontier)
		harvested := model.NewKeywordSet()
		for _, f := range files {
			found, refs := search.Locate(f, frontier, seen)
			records.Merge(found)
			harvested.AddAll(refs)
		}
		frontier = harvested.Minus(seen)
		e.logger.Debug("deep search round", "round", round, "records", len(records), "harvested", harvested.Len(), "frontier", frontier.Len())
	}
	return records, nil
}

func (e *Engine) contextSearch(ctx context.Context, files []*parse.File, keywords model.KeywordSet, depth int) (model.Records, error) {
	records, err := e.deep(ctx, files, keywords, depth)
	if err != nil {
		return nil, err
	}
	used, err := e.harvest(ctx, files, keywords, depth)
	if err != nil {
		return nil, err
	}
	residual := used.Minus(records.Names())
	e.logger.Debug("context residual", "used", used.Len(), "residual", residual.Sorted())

	more, err := e.deep(ctx, files, residual, 0)
	if err != nil {
		return nil, err
	}
	records.Merge(more)
	return records, nil
}

// load resolves paths and parses the files concurrently. Files that fail to
// parse are logged and left out; the rest keep resolution order.
func (e *Engine) load(ctx context.Context, paths []string) ([]*parse.File, error) {
	entries, err := discover.Resolve(paths, e.opts)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	loaded := make([]*parse.File, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, entry := range entries {
		g.Go(func() error {
			loaded[i] = e.loadOne(gctx, entry.Path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]*parse.File, 0, len(loaded))
	for _, f := range loaded {
		if f != nil {
			files = append(files, f)
		}
	}
	return files, nil
}

func (e *Engine) loadOne(ctx context.Context, path string) (f *parse.File) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("skipping file", "path", path, "panic", r)
			f = nil
		}
	}()
	f, err := e.registry.Load(ctx, path)
	if err != nil {
		e.logger.Warn("skipping file", "path", path, "err", err)
		return nil
	}
	return f
}

// recoverPanic turns a panic in op into an error log and lets reset install an
// empty result.
func (e *Engine) recoverPanic(op string, reset func()) {
	if r := recover(); r != nil {
		e.logger.Error("search aborted", "op", op, "panic", r)
		reset()
	}
}
