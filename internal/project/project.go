// Package project converts tree-sitter subtrees into document trees.
package project

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/sittertree/internal/lang"
	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/parse"
)

// Project converts node into a document node. In overview mode it returns nil
// for subtrees that hold no definition or comment.
func Project(f *parse.File, node *sitter.Node, mode model.Mode) *model.Node {
	l := f.Language
	kind := node.Type()

	if mode == model.Overview && !l.IsDefinition(kind) && !l.IsComment(kind) && !l.SubtreeHasDefinition(node) {
		return nil
	}

	out := &model.Node{Kind: kind}
	if l.IsDefinition(kind) || l.IsComment(kind) || lang.IsDeclarationLike(kind) {
		out.Attrs.Set(model.AttrLineRange, lineRange(node))
	}

	// Comments are reduced to their location.
	if l.IsComment(kind) {
		return out
	}

	Synthesize(f, node, &out.Attrs)

	if node.ChildCount() == 0 {
		out.Text = f.Text(node)
		return out
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		if child := Project(f, node.Child(i), mode); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	return out
}

// Document projects the whole file and wraps it in an ast node carrying the
// file's metadata.
func Document(f *parse.File, mode model.Mode) *model.Node {
	return Wrap(f, Project(f, f.Root(), mode), mode)
}

// Wrap puts projected under an ast node with file, language and, in overview
// mode, mode attributes.
func Wrap(f *parse.File, projected *model.Node, mode model.Mode) *model.Node {
	doc := &model.Node{Kind: model.DocumentKind}
	doc.Attrs.Set(model.AttrFile, f.Path)
	doc.Attrs.Set(model.AttrLanguage, f.Language.Name)
	if mode == model.Overview {
		doc.Attrs.Set(model.AttrMode, string(model.Overview))
	}
	if projected != nil {
		doc.Children = []*model.Node{projected}
	}
	return doc
}

// Synthesize adds the summary text attributes selected by the suffix of
// node's kind name.
func Synthesize(f *parse.File, node *sitter.Node, attrs *model.Attributes) {
	kind := node.Type()
	switch {
	case strings.HasSuffix(kind, "declarator"):
		start := node.StartByte()
		if parent := node.Parent(); parent != nil {
			start = parent.StartByte()
		}
		attrs.Set(model.AttrText, lang.CollapseWhitespace(f.Decoder.Decode(f.Source[start:node.EndByte()])))
	case strings.HasSuffix(kind, "field_declaration"):
		attrs.Set(model.AttrText, lang.CollapseWhitespace(f.Text(node)))
	case strings.HasSuffix(kind, "template_declaration"):
		attrs.Set(model.AttrTemplateText, lang.CollapseWhitespace(cutAt(f.Text(node), ">")))
	case strings.HasSuffix(kind, "specifier"):
		attrs.Set(model.AttrDeclarationText, lang.CollapseWhitespace(cutAt(f.Text(node), ";", "{")))
	}
}

// cutAt truncates s at the earliest occurrence of any separator.
func cutAt(s string, seps ...string) string {
	end := len(s)
	for _, sep := range seps {
		if i := strings.Index(s, sep); i >= 0 && i < end {
			end = i
		}
	}
	return s[:end]
}

func lineRange(node *sitter.Node) string {
	return model.LineRange(node.StartPoint().Row, node.EndPoint().Row)
}
