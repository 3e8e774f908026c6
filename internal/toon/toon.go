// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// document trees.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/sittertree/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts query results into TOON. Each result is a top-level key
// holding its document; keys are emitted in sorted order.
func Encode(results map[string]*model.Node) string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s:", encodeValue(k))
		if doc := results[k]; doc != nil {
			writeNode(&b, doc, "  ", "  ")
		}
	}
	return b.String()
}

// EncodeRecords emits a tabular index of the definitions followed by their
// documents keyed by record string.
func EncodeRecords(records model.Records) string {
	keys := make([]model.RecordKey, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k.File, k.Name, fmt.Sprintf("%d-%d", k.Start, k.End)}
	}

	out := formatTabular("records", []string{"file", "name", "lines"}, rows)
	if len(records) > 0 {
		out += "\n" + Encode(records.ByString())
	}
	return out
}

// writeNode emits n as a list of fields. The first field line starts with
// first, the rest with rest.
func writeNode(b *strings.Builder, n *model.Node, first, rest string) {
	prefix := first
	field := func(key, value string) {
		fmt.Fprintf(b, "\n%s%s: %s", prefix, key, encodeValue(value))
		prefix = rest
	}

	field("kind", n.Kind)
	for _, a := range n.Attrs {
		field(a.Key, a.Value)
	}
	if n.Text != "" {
		field("raw", n.Text)
	}
	if len(n.Children) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%schildren[%d]:", prefix, len(n.Children))
	for _, c := range n.Children {
		writeNode(b, c, rest+"  - ", rest+"    ")
	}
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
