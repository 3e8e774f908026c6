// Package render serializes query results as XML, TOON or JSON.
package render

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/sittertree/internal/model"
	"github.com/phobologic/sittertree/internal/toon"
)

// Format names an output encoding.
type Format string

const (
	XML  Format = "xml"
	TOON Format = "toon"
	JSON Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{XML, TOON, JSON}

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q (want xml, toon or json)", ErrUnknownFormat, name)
}

// Write encodes results, keyed by file path or record string, to w.
func Write(w io.Writer, format Format, results map[string]*model.Node) error {
	var out string
	switch format {
	case XML:
		s, err := encodeXML(results)
		if err != nil {
			return err
		}
		out = s
	case TOON:
		out = toon.Encode(results)
	case JSON:
		s, err := encodeJSON(results)
		if err != nil {
			return err
		}
		out = s
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

// WriteRecords encodes definition records to w. TOON output leads with a
// tabular index of the records.
func WriteRecords(w io.Writer, format Format, records model.Records) error {
	if format == TOON {
		_, err := fmt.Fprintln(w, toon.EncodeRecords(records))
		return err
	}
	return Write(w, format, records.ByString())
}

func sortedKeys(results map[string]*model.Node) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	invalidNameChars = regexp.MustCompile(`[^\w\-.]`)
	invalidNameStart = regexp.MustCompile(`^[\d\-._]`)
)

// SanitizeName turns a node kind into a valid XML element name.
func SanitizeName(name string) string {
	s := invalidNameChars.ReplaceAllString(name, "_")
	if s == "" {
		return "node"
	}
	if invalidNameStart.MatchString(s) {
		s = "n_" + s
	}
	return s
}

func encodeXML(results map[string]*model.Node) (string, error) {
	if len(results) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "results"}}
	if err := enc.EncodeToken(root); err != nil {
		return "", err
	}
	for _, k := range sortedKeys(results) {
		start := xml.StartElement{
			Name: xml.Name{Local: "result"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "key"}, Value: k}},
		}
		if err := enc.EncodeToken(start); err != nil {
			return "", err
		}
		if doc := results[k]; doc != nil {
			if err := encodeXMLNode(enc, doc); err != nil {
				return "", err
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return "", err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", fmt.Errorf("encoding xml: %w", err)
	}
	return buf.String(), nil
}

func encodeXMLNode(enc *xml.Encoder, n *model.Node) error {
	start := xml.StartElement{Name: xml.Name{Local: SanitizeName(n.Kind)}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: SanitizeName(a.Key)}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := encodeXMLNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// jsonNode mirrors model.Node with attributes kept in insertion order.
type jsonNode struct {
	Type       string      `json:"type"`
	Attributes orderedAttr `json:"attributes,omitempty"`
	Text       string      `json:"text,omitempty"`
	Children   []*jsonNode `json:"children,omitempty"`
}

type orderedAttr model.Attributes

func (a orderedAttr) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toJSON(n *model.Node) *jsonNode {
	if n == nil {
		return nil
	}
	out := &jsonNode{Type: n.Kind, Attributes: orderedAttr(n.Attrs), Text: n.Text}
	for _, c := range n.Children {
		out.Children = append(out.Children, toJSON(c))
	}
	return out
}

func encodeJSON(results map[string]*model.Node) (string, error) {
	docs := make(map[string]*jsonNode, len(results))
	for k, v := range results {
		docs[k] = toJSON(v)
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding json: %w", err)
	}
	return string(data), nil
}
