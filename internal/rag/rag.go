// Package rag indexes the text of overview documents in an in-memory vector
// collection and answers similarity queries against it.
//
// Embeddings are computed locally by hashing identifier terms into a fixed
// number of dimensions, so indexing needs no model server.
package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/philippgille/chromem-go"

	"github.com/phobologic/sittertree/internal/model"
)

// Dimensions is the length of every embedding.
const Dimensions = 384

// DefaultResults is the number of hits a query returns when none is given.
const DefaultResults = 5

// ErrEmptyQuery is returned for a query with no searchable terms.
var ErrEmptyQuery = errors.New("query has no searchable terms")

// Metadata keys stored with each chunk.
const (
	metaFile      = "file"
	metaKind      = "kind"
	metaLineRange = "line_range"
)

// Chunk is one piece of document text with the lines it spans.
type Chunk struct {
	Kind      string
	LineRange string
	Text      string
}

// Hit is a chunk returned by a query.
type Hit struct {
	File       string
	Chunk      Chunk
	Similarity float32
}

// Index is a vector collection of chunks. It is safe for concurrent use.
type Index struct {
	coll *chromem.Collection
}

// New returns an empty index.
func New() (*Index, error) {
	coll, err := chromem.NewDB().CreateCollection("sittertree", nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return &Index{coll: coll}, nil
}

// Add indexes every chunk of doc under file and returns how many were added.
func (ix *Index) Add(ctx context.Context, file string, doc *model.Node) (int, error) {
	chunks := Chunks(doc)
	docs := make([]chromem.Document, 0, len(chunks))
	for i, c := range chunks {
		vec := Embed(c.Text)
		if vec == nil {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        file + "#" + strconv.Itoa(i),
			Content:   c.Text,
			Embedding: vec,
			Metadata: map[string]string{
				metaFile:      file,
				metaKind:      c.Kind,
				metaLineRange: c.LineRange,
			},
		})
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := ix.coll.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", file, err)
	}
	return len(docs), nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return ix.coll.Count()
}

// Query returns up to n chunks most similar to text, best first. Ties are
// broken by file and line range so output is stable.
func (ix *Index) Query(ctx context.Context, text string, n int) ([]Hit, error) {
	vec := Embed(text)
	if vec == nil {
		return nil, fmt.Errorf("%w: %q", ErrEmptyQuery, text)
	}
	if n <= 0 {
		n = DefaultResults
	}
	n = min(n, ix.coll.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := ix.coll.QueryEmbedding(ctx, vec, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			File: r.Metadata[metaFile],
			Chunk: Chunk{
				Kind:      r.Metadata[metaKind],
				LineRange: r.Metadata[metaLineRange],
				Text:      r.Content,
			},
			Similarity: r.Similarity,
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].File != hits[j].File {
			return hits[i].File < hits[j].File
		}
		return hits[i].Chunk.LineRange < hits[j].Chunk.LineRange
	})
	return hits, nil
}

// Chunks collects every node below the document root that carries both text
// and a line range. Leaf text wins over the text, declaration_text and
// template_text attributes, in that order.
func Chunks(doc *model.Node) []Chunk {
	if doc == nil {
		return nil
	}
	var out []Chunk
	for _, c := range doc.Children {
		c.Walk(func(n *model.Node) {
			lines, _ := n.Attrs.Get(model.AttrLineRange)
			text := chunkText(n)
			if lines == "" || text == "" {
				return
			}
			out = append(out, Chunk{Kind: n.Kind, LineRange: lines, Text: text})
		})
	}
	return out
}

func chunkText(n *model.Node) string {
	if n.Text != "" {
		return n.Text
	}
	for _, key := range []string{model.AttrText, model.AttrDeclarationText, model.AttrTemplateText} {
		if v, ok := n.Attrs.Get(key); ok && v != "" {
			return v
		}
	}
	return ""
}

// Embed hashes the terms of text into a unit vector. It returns nil when text
// has no terms.
func Embed(text string) []float32 {
	terms := Terms(text)
	if len(terms) == 0 {
		return nil
	}
	vec := make([]float32, Dimensions)
	for _, t := range terms {
		h := xxhash.Sum64String(t)
		sign := float32(1)
		if h>>63 == 1 {
			sign = -1
		}
		vec[h%Dimensions] += sign
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Every term cancelled out; fall back to a single fixed dimension.
		vec[xxhash.Sum64String(terms[0])%Dimensions] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func embed(_ context.Context, text string) ([]float32, error) {
	vec := Embed(text)
	if vec == nil {
		return nil, fmt.Errorf("%w: %q", ErrEmptyQuery, text)
	}
	return vec, nil
}

// Terms splits text into lower-cased identifier terms. Each identifier
// contributes itself plus its snake_case and camelCase parts, so "LinkedList"
// yields "linkedlist", "linked" and "list".
func Terms(text string) []string {
	var out []string
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) {
		parts := splitIdentifier(word)
		whole := strings.ToLower(strings.Trim(word, "_"))
		if whole == "" {
			continue
		}
		out = append(out, whole)
		if len(parts) > 1 {
			out = append(out, parts...)
		}
	}
	return out
}

func splitIdentifier(word string) []string {
	var parts []string
	for _, piece := range strings.Split(word, "_") {
		runes := []rune(piece)
		start := 0
		for i := 1; i < len(runes); i++ {
			lowerToUpper := unicode.IsLower(runes[i-1]) && unicode.IsUpper(runes[i])
			acronymEnd := i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i+1])
			if lowerToUpper || acronymEnd {
				parts = append(parts, strings.ToLower(string(runes[start:i])))
				start = i
			}
		}
		if start < len(runes) {
			parts = append(parts, strings.ToLower(string(runes[start:])))
		}
	}
	return parts
}

// Document renders hits as a document tree for the output formats. Each hit
// becomes a child carrying its file, line range and similarity.
func Document(query string, hits []Hit) *model.Node {
	doc := &model.Node{Kind: "query"}
	doc.Attrs.Set(model.AttrSearchKey, query)
	for _, h := range hits {
		n := &model.Node{Kind: h.Chunk.Kind, Text: h.Chunk.Text}
		n.Attrs.Set(model.AttrFile, h.File)
		n.Attrs.Set(model.AttrLineRange, h.Chunk.LineRange)
		n.Attrs.Set("similarity", strconv.FormatFloat(float64(h.Similarity), 'f', 3, 64))
		doc.Children = append(doc.Children, n)
	}
	return doc
}
