package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sittertree/internal/model"
)

func sampleDoc() *model.Node {
	leaf := &model.Node{Kind: "type_identifier", Text: "Node"}
	leaf.Attrs.Set(model.AttrMatch, "true")
	leaf.Attrs.Set(model.AttrLineRange, "1-1")

	specifier := &model.Node{Kind: "struct_specifier", Children: []*model.Node{leaf}}
	specifier.Attrs.Set(model.AttrLineRange, "1-1")
	specifier.Attrs.Set(model.AttrDeclarationText, "struct Node")

	doc := &model.Node{Kind: model.DocumentKind, Children: []*model.Node{specifier}}
	doc.Attrs.Set(model.AttrFile, "node.cpp")
	doc.Attrs.Set(model.AttrLanguage, "cpp")
	return doc
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"xml", XML, false},
		{"TOON", TOON, false},
		{" json ", JSON, false},
		{"yaml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"struct_specifier", "struct_specifier"},
		{"{", "n__"},
		{"::", "n___"},
		{"_hidden", "n__hidden"},
		{"1st", "n_1st"},
		{"a b", "a_b"},
		{"", "node"},
		{"ns.name", "ns.name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "SanitizeName(%q)", tt.in)
	}
}

func TestWriteXML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XML, map[string]*model.Node{"node.cpp": sampleDoc()}))

	want := strings.Join([]string{
		`<results>`,
		`  <result key="node.cpp">`,
		`    <ast file="node.cpp" language="cpp">`,
		`      <struct_specifier line_range="1-1" declaration_text="struct Node">`,
		`        <type_identifier match="true" line_range="1-1">Node</type_identifier>`,
		`      </struct_specifier>`,
		`    </ast>`,
		`  </result>`,
		`</results>`,
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteXMLEscapes(t *testing.T) {
	t.Parallel()

	doc := &model.Node{Kind: "<", Text: "a < b && c"}
	doc.Attrs.Set(model.AttrText, `say "hi"`)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XML, map[string]*model.Node{"k": doc}))
	out := buf.String()
	assert.Contains(t, out, "<n__ ")
	assert.Contains(t, out, "a &lt; b &amp;&amp; c")
	assert.Contains(t, out, `text="say &#34;hi&#34;"`)
}

func TestWriteJSONKeepsAttributeOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, map[string]*model.Node{"node.cpp": sampleDoc()}))

	out := buf.String()
	assert.Less(t, strings.Index(out, `"line_range"`), strings.Index(out, `"declaration_text"`))
	assert.Less(t, strings.Index(out, `"file"`), strings.Index(out, `"language"`))

	var decoded map[string]struct {
		Type       string            `json:"type"`
		Attributes map[string]string `json:"attributes"`
		Children   []json.RawMessage `json:"children"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Contains(t, decoded, "node.cpp")
	assert.Equal(t, "ast", decoded["node.cpp"].Type)
	assert.Equal(t, "cpp", decoded["node.cpp"].Attributes["language"])
	assert.Len(t, decoded["node.cpp"].Children, 1)
}

func TestWriteTOON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, TOON, map[string]*model.Node{"node.cpp": sampleDoc()}))
	assert.True(t, strings.HasPrefix(buf.String(), "node.cpp:\n  kind: ast\n"))
}

func TestWriteRecords(t *testing.T) {
	t.Parallel()

	records := model.Records{
		{File: "node.cpp", Name: "Node", Start: 1, End: 1}: sampleDoc(),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, XML, records))
	assert.Contains(t, buf.String(), `<result key="node.cpp:Node at line(1-1)">`)

	buf.Reset()
	require.NoError(t, WriteRecords(&buf, TOON, records))
	assert.True(t, strings.HasPrefix(buf.String(), "records[1]{file,name,lines}:\n"))
}

func TestWriteEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, XML, nil))
	assert.Empty(t, buf.String())

	require.NoError(t, Write(&buf, JSON, nil))
	assert.Equal(t, "{}\n", buf.String())

	assert.ErrorIs(t, Write(&buf, Format("yaml"), nil), ErrUnknownFormat)
}
