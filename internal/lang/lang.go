// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars and the node-kind tables that drive projection and
// search.
package lang

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Shape describes a named definition: a node of one of Kinds whose name is
// carried by its first child of one of NameKinds. Children of a Through kind
// (pointer or reference declarators) are searched as if they were direct.
type Shape struct {
	Kinds     []string
	NameKinds []string
	Through   []string
}

// Language holds tree-sitter configuration and node-kind tables for a
// supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// DefinitionKinds are kept in overview mode and carry a line range.
	DefinitionKinds kindSet
	// CommentKinds are kept in overview mode, reduced to kind and line range.
	CommentKinds kindSet
	// BodyKinds are opaque implementation blocks the keyword matcher skips.
	BodyKinds kindSet
	// HarvestKinds are direct children of a matched node collected as new
	// keywords by the keyword matcher.
	HarvestKinds kindSet
	// ReferenceKinds are descendants of a recorded definition collected as
	// referenced names by the definition locator.
	ReferenceKinds kindSet

	// Shapes are the named definition shapes the locator recognizes.
	Shapes []Shape

	// SeedKinds are identifier-bearing leaves considered for block seeds.
	SeedKinds kindSet
	// SeedParents accept a seed leaf when its parent has one of these kinds.
	SeedParents kindSet
	// SeedContexts accept a seed leaf when its parent or grandparent has one
	// of these kinds.
	SeedContexts kindSet
}

type kindSet map[string]struct{}

func kinds(names ...string) kindSet {
	s := make(kindSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s kindSet) has(kind string) bool {
	_, ok := s[kind]
	return ok
}

// NewParser creates a fresh tree-sitter parser for this language.
// Parsers are not safe for concurrent use.
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// IsDefinition reports whether kind is a definition node kept in overviews.
func (l *Language) IsDefinition(kind string) bool { return l.DefinitionKinds.has(kind) }

// IsComment reports whether kind is a comment.
func (l *Language) IsComment(kind string) bool { return l.CommentKinds.has(kind) }

// IsBody reports whether kind is an implementation block the matcher skips.
func (l *Language) IsBody(kind string) bool { return l.BodyKinds.has(kind) }

// IsHarvest reports whether a child of kind beside a match becomes a keyword.
func (l *Language) IsHarvest(kind string) bool { return l.HarvestKinds.has(kind) }

// IsReference reports whether a leaf of kind inside a definition names
// something the definition refers to.
func (l *Language) IsReference(kind string) bool { return l.ReferenceKinds.has(kind) }

// IsSeed reports whether a leaf of the given kind, with the given parent and
// grandparent kinds, contributes to a block seed. Empty strings stand for a
// missing ancestor.
func (l *Language) IsSeed(kind, parent, grandparent string) bool {
	if !l.SeedKinds.has(kind) {
		return false
	}
	if l.SeedParents.has(parent) {
		return true
	}
	return l.SeedContexts.has(parent) || l.SeedContexts.has(grandparent)
}

// SubtreeHasDefinition reports whether node or any of its descendants is a
// definition kind.
func (l *Language) SubtreeHasDefinition(node *sitter.Node) bool {
	if l.IsDefinition(node.Type()) {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if l.SubtreeHasDefinition(node.Child(i)) {
			return true
		}
	}
	return false
}

// DefinitionName returns the name node of a recognized definition shape, or
// nil if node is not one.
func (l *Language) DefinitionName(node *sitter.Node) *sitter.Node {
	kind := node.Type()
	for _, shape := range l.Shapes {
		if !contains(shape.Kinds, kind) {
			continue
		}
		return findName(node, shape)
	}
	return nil
}

func findName(node *sitter.Node, shape Shape) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if contains(shape.NameKinds, child.Type()) {
			return child
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if contains(shape.Through, child.Type()) {
			if name := findName(child, shape); name != nil {
				return name
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ForPath returns the language registered for path's extension, or nil.
func ForPath(path string) *Language {
	name := ForExtension(filepath.Ext(path))
	if name == "" {
		return nil
	}
	return Languages[name]
}

// IsDeclarationLike reports whether a kind name marks a declaration or
// declarator.
func IsDeclarationLike(kind string) bool {
	return strings.Contains(kind, "declarat")
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
