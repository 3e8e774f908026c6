package rag

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sittertree/internal/model"
)

func TestTerms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want []string
	}{
		{"LinkedList", []string{"linkedlist", "linked", "list"}},
		{"head_ptr", []string{"head_ptr", "head", "ptr"}},
		{"HTTPServer", []string{"httpserver", "http", "server"}},
		{"Node* next;", []string{"node", "next"}},
		{"int", []string{"int"}},
		{"  ;* ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Terms(tt.text))
		})
	}
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	vec := Embed("class LinkedList")
	require.Len(t, vec, Dimensions)
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-5)
	assert.Equal(t, vec, Embed("class LinkedList"))

	assert.Nil(t, Embed(""))
	assert.Nil(t, Embed("{};"))
}

func node(kind, lines, text string, children ...*model.Node) *model.Node {
	n := &model.Node{Kind: kind, Children: children}
	if lines != "" {
		n.Attrs.Set(model.AttrLineRange, lines)
	}
	if text != "" {
		n.Attrs.Set(model.AttrDeclarationText, text)
	}
	return n
}

func sampleDoc() *model.Node {
	field := node("field_declaration", "2-2", "")
	field.Attrs.Set(model.AttrText, "Node* head;")
	class := node("class_specifier", "1-4", "class LinkedList",
		node("type_identifier", "", ""),
		node("field_declaration_list", "", "", field),
	)
	// A leaf with text but no lines is not a chunk.
	class.Children[0].Text = "LinkedList"

	doc := &model.Node{Kind: model.DocumentKind, Children: []*model.Node{
		node("translation_unit", "", "", class),
	}}
	doc.Attrs.Set(model.AttrFile, "list.cpp")
	return doc
}

func TestChunks(t *testing.T) {
	t.Parallel()

	got := Chunks(sampleDoc())
	assert.Equal(t, []Chunk{
		{Kind: "class_specifier", LineRange: "1-4", Text: "class LinkedList"},
		{Kind: "field_declaration", LineRange: "2-2", Text: "Node* head;"},
	}, got)

	assert.Empty(t, Chunks(nil))
	assert.Empty(t, Chunks(&model.Node{Kind: model.DocumentKind}))
}

func TestChunksPreferLeafText(t *testing.T) {
	t.Parallel()

	leaf := node("comment", "3-3", "ignored")
	leaf.Text = "// owner"
	got := Chunks(&model.Node{Kind: model.DocumentKind, Children: []*model.Node{leaf}})
	require.Len(t, got, 1)
	assert.Equal(t, "// owner", got[0].Text)
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New()
	require.NoError(t, err)
	return ix
}

func TestIndexQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := newIndex(t)

	n, err := ix.Add(ctx, "list.cpp", sampleDoc())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, ix.Len())

	hits, err := ix.Query(ctx, "linked list", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "list.cpp", hits[0].File)
	assert.Equal(t, Chunk{Kind: "class_specifier", LineRange: "1-4", Text: "class LinkedList"}, hits[0].Chunk)
	assert.Greater(t, hits[0].Similarity, float32(0))

	// More results than chunks returns every chunk.
	hits, err = ix.Query(ctx, "head", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Node* head;", hits[0].Chunk.Text)
	assert.GreaterOrEqual(t, hits[0].Similarity, hits[1].Similarity)
}

func TestIndexReAddReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := newIndex(t)

	_, err := ix.Add(ctx, "list.cpp", sampleDoc())
	require.NoError(t, err)
	_, err = ix.Add(ctx, "list.cpp", sampleDoc())
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
}

func TestQueryEdgeCases(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := newIndex(t)

	hits, err := ix.Query(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = ix.Query(ctx, ";;", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestDocument(t *testing.T) {
	t.Parallel()

	doc := Document("linked list", []Hit{{
		File:       "list.cpp",
		Chunk:      Chunk{Kind: "class_specifier", LineRange: "1-4", Text: "class LinkedList"},
		Similarity: 0.8165,
	}})
	assert.Equal(t, "query", doc.Kind)
	key, _ := doc.Attrs.Get(model.AttrSearchKey)
	assert.Equal(t, "linked list", key)
	require.Len(t, doc.Children, 1)
	hit := doc.Children[0]
	assert.Equal(t, "class_specifier", hit.Kind)
	assert.Equal(t, "class LinkedList", hit.Text)
	assert.Equal(t, model.Attributes{
		{Key: model.AttrFile, Value: "list.cpp"},
		{Key: model.AttrLineRange, Value: "1-4"},
		{Key: "similarity", Value: "0.817"},
	}, hit.Attrs)
}
