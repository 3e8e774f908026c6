package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/parse"
)

func load(t *testing.T, name, src string) *parse.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	f, err := parse.NewRegistry(nil).Load(context.Background(), path)
	require.NoError(t, err)
	return f
}

func find(n *model.Node, kind string) *model.Node {
	var found *model.Node
	n.Walk(func(c *model.Node) {
		if found == nil && c.Kind == kind {
			found = c
		}
	})
	return found
}

func attr(t *testing.T, n *model.Node, key string) string {
	t.Helper()
	require.NotNil(t, n)
	v, ok := n.Attrs.Get(key)
	require.True(t, ok, "%s has no %s attribute: %+v", n.Kind, key, n.Attrs)
	return v
}

const nodeSrc = "struct Node {\n  int value;\n  Node* next;\n};\n"

func TestProjectDetailedLeaves(t *testing.T) {
	t.Parallel()
	f := load(t, "x.cpp", "int x;\n")

	doc := Project(f, f.Root(), model.Detailed)
	require.NotNil(t, doc)
	assert.Equal(t, "translation_unit", doc.Kind)
	assert.NotEmpty(t, attr(t, doc, model.AttrLineRange))

	decl := find(doc, "declaration")
	assert.Equal(t, "1-1", attr(t, decl, model.AttrLineRange))

	var leaves []string
	for _, c := range decl.Children {
		assert.Empty(t, c.Children)
		leaves = append(leaves, c.Text)
	}
	assert.Equal(t, []string{"int", "x", ";"}, leaves)
}

func TestProjectDeclaratorText(t *testing.T) {
	t.Parallel()
	f := load(t, "area.cpp", "int area(int w,\n         int h);\n")

	doc := Project(f, f.Root(), model.Detailed)
	decl := find(doc, "function_declarator")
	assert.Equal(t, "int area(int w, int h)", attr(t, decl, model.AttrText))
	assert.Equal(t, "1-2", attr(t, decl, model.AttrLineRange))
}

func TestProjectSpecifierAndFieldText(t *testing.T) {
	t.Parallel()
	f := load(t, "node.cpp", nodeSrc)

	doc := Project(f, f.Root(), model.Detailed)
	specifier := find(doc, "struct_specifier")
	assert.Equal(t, "struct Node", attr(t, specifier, model.AttrDeclarationText))
	assert.Equal(t, "1-4", attr(t, specifier, model.AttrLineRange))

	field := find(doc, "field_declaration")
	assert.Equal(t, "int value;", attr(t, field, model.AttrText))
	assert.Equal(t, "2-2", attr(t, field, model.AttrLineRange))
}

func TestProjectTemplateText(t *testing.T) {
	t.Parallel()
	f := load(t, "box.hpp", "template <typename T>\nclass Box { T v; };\n")

	doc := Project(f, f.Root(), model.Detailed)
	tmpl := find(doc, "template_declaration")
	assert.Equal(t, "template <typename T", attr(t, tmpl, model.AttrTemplateText))
}

func TestProjectOverviewPrunes(t *testing.T) {
	t.Parallel()
	f := load(t, "node.cpp", nodeSrc+"int helper() { return 1; }\n")

	doc := Project(f, f.Root(), model.Overview)
	require.NotNil(t, doc)

	// Every kept node is a definition or leads to one.
	l := f.Language
	doc.Walk(func(n *model.Node) {
		hasDef := false
		n.Walk(func(d *model.Node) {
			if l.IsDefinition(d.Kind) || l.IsComment(d.Kind) {
				hasDef = true
			}
		})
		assert.True(t, hasDef, "%s kept without a definition below it", n.Kind)
	})

	assert.Nil(t, find(doc, "type_identifier"))
	assert.Nil(t, find(doc, "return_statement"))

	var fields []string
	doc.Walk(func(n *model.Node) {
		if n.Kind == "field_declaration" {
			fields = append(fields, attr(t, n, model.AttrText))
			assert.Empty(t, n.Children)
		}
	})
	assert.Equal(t, []string{"int value;", "Node* next;"}, fields)

	fn := find(doc, "function_definition")
	require.NotNil(t, fn)
	assert.Equal(t, "int helper()", attr(t, find(fn, "function_declarator"), model.AttrText))
}

func TestProjectOverviewIsStable(t *testing.T) {
	t.Parallel()
	f := load(t, "node.cpp", nodeSrc)

	kinds := func(n *model.Node) []string {
		var out []string
		n.Walk(func(c *model.Node) { out = append(out, c.Kind) })
		return out
	}

	overview := Project(f, f.Root(), model.Overview)
	detailed := Project(f, f.Root(), model.Detailed)

	// The overview kinds are an ordered subsequence of the detailed kinds,
	// and re-pruning keeps every one of them.
	all := kinds(detailed)
	i := 0
	for _, k := range kinds(overview) {
		for i < len(all) && all[i] != k {
			i++
		}
		require.Less(t, i, len(all), "overview kind %s not found in order", k)
		i++
	}
	for _, k := range kinds(overview) {
		n := find(overview, k)
		hasDef := false
		n.Walk(func(d *model.Node) {
			if f.Language.IsDefinition(d.Kind) {
				hasDef = true
			}
		})
		assert.True(t, hasDef)
	}
}

func TestProjectCommentRedacted(t *testing.T) {
	t.Parallel()
	f := load(t, "c.c", "/* secret\n   notes */\nint x;\n")

	for _, mode := range []model.Mode{model.Detailed, model.Overview} {
		doc := Project(f, f.Root(), mode)
		c := find(doc, "comment")
		require.NotNil(t, c, "mode %s", mode)
		assert.Equal(t, "1-2", attr(t, c, model.AttrLineRange))
		assert.Empty(t, c.Text)
		assert.Empty(t, c.Children)
		assert.Len(t, c.Attrs, 1)
	}
}

func TestDocument(t *testing.T) {
	t.Parallel()
	f := load(t, "node.cpp", nodeSrc)

	doc := Document(f, model.Overview)
	assert.Equal(t, model.DocumentKind, doc.Kind)
	assert.Equal(t, f.Path, attr(t, doc, model.AttrFile))
	assert.Equal(t, "cpp", attr(t, doc, model.AttrLanguage))
	assert.Equal(t, "overview", attr(t, doc, model.AttrMode))
	require.Len(t, doc.Children, 1)

	detailed := Document(f, model.Detailed)
	_, ok := detailed.Attrs.Get(model.AttrMode)
	assert.False(t, ok)
}

func TestCutAt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "struct A ", cutAt("struct A { int x; };", ";", "{"))
	assert.Equal(t, "struct A", cutAt("struct A;", ";", "{"))
	assert.Equal(t, "none", cutAt("none", ">"))
}
