// Package search finds keywords and named definitions in syntax trees.
package search

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sittertree/internal/lang"
	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/parse"
	"github.com/phobologic/sittertree/internal/project"
)

// Matcher looks for exact-text keyword leaves and collects the type names it
// passes on the way.
type Matcher struct {
	File     *parse.File
	Keywords model.KeywordSet
	// Exclude holds names that are never harvested.
	Exclude model.KeywordSet
	// Harvested receives type names found next to matches. May be nil.
	Harvested model.KeywordSet

	longest int
	sized   bool
}

// Match searches node and returns the minimal document subtree holding every
// match below it.
func (m *Matcher) Match(node *sitter.Node) (bool, *model.Node) {
	l := m.File.Language
	kind := node.Type()
	exact := m.exact(node)

	if node.ChildCount() == 0 {
		if !exact {
			return false, nil
		}
		out := &model.Node{Kind: kind}
		out.Attrs.Set(model.AttrMatch, "true")
		out.Attrs.Set(model.AttrLineRange, lineRange(node))
		out.Attrs.Set(model.AttrText, m.File.Text(node))
		return true, out
	}

	// Function bodies are opaque; only signatures are searched.
	if l.IsBody(kind) {
		return false, nil
	}

	var matched []*model.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if ok, child := m.Match(node.Child(i)); ok {
			matched = append(matched, child)
		}
	}
	if !exact && len(matched) == 0 {
		return false, nil
	}

	m.harvest(node)

	out := &model.Node{Kind: kind}
	if l.IsDefinition(kind) || lang.IsDeclarationLike(kind) {
		out.Attrs.Set(model.AttrLineRange, lineRange(node))
	}
	if exact {
		out.Attrs.Set(model.AttrMatch, "true")
		out.Attrs.Set(model.AttrLineRange, lineRange(node))
	}
	out.Children = matched

	project.Synthesize(m.File, node, &out.Attrs)
	if strings.HasSuffix(kind, "function_definition") {
		sig := cutAt(m.File.Text(node), "{")
		sig = cutAt(sig, ";")
		out.Attrs.Set(model.AttrDeclarationText, lang.CollapseWhitespace(sig))
	}

	// Attribute-less wrappers collapse into their only matching child.
	if len(out.Attrs) == 0 && len(matched) == 1 {
		return true, matched[0]
	}
	return true, out
}

// exact reports whether node's text is a keyword. Decoding never makes text
// shorter than its source span, so spans longer than the longest keyword are
// rejected without decoding.
func (m *Matcher) exact(node *sitter.Node) bool {
	if !m.fits(int(node.EndByte() - node.StartByte())) {
		return false
	}
	return m.Keywords.Has(m.File.Text(node))
}

// fits reports whether a span of n bytes could decode to some keyword.
func (m *Matcher) fits(n int) bool {
	if !m.sized {
		for w := range m.Keywords {
			m.longest = max(m.longest, len(w))
		}
		m.sized = true
	}
	return n <= m.longest
}

func (m *Matcher) harvest(node *sitter.Node) {
	if m.Harvested == nil {
		return
	}
	l := m.File.Language
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if !l.IsHarvest(child.Type()) {
			continue
		}
		name := m.File.Text(child)
		if m.Exclude.Has(name) {
			continue
		}
		m.Harvested.Add(name)
	}
}

// MatchFile runs the matcher over f. When anything matches it returns the
// match tree wrapped in a document tagged with the searched keywords.
func MatchFile(f *parse.File, keywords, exclude, harvested model.KeywordSet) *model.Node {
	m := &Matcher{File: f, Keywords: keywords, Exclude: exclude, Harvested: harvested}
	ok, found := m.Match(f.Root())
	if !ok {
		return nil
	}
	doc := project.Wrap(f, found, model.Detailed)
	doc.Attrs.Set(model.AttrSearchKey, strings.Join(keywords.Sorted(), ", "))
	return doc
}

func cutAt(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

func lineRange(node *sitter.Node) string {
	return model.LineRange(node.StartPoint().Row, node.EndPoint().Row)
}
