// Package model defines core data structures for sittertree.
package model

import (
	"fmt"
	"sort"
)

// Mode selects how much of a syntax tree a projection keeps.
type Mode string

const (
	Detailed Mode = "detailed"
	Overview Mode = "overview"
)

// Attribute keys emitted on document nodes.
const (
	AttrFile            = "file"
	AttrLanguage        = "language"
	AttrMode            = "mode"
	AttrSearchKey       = "search_key"
	AttrLineRange       = "line_range"
	AttrMatch           = "match"
	AttrText            = "text"
	AttrTemplateText    = "template_text"
	AttrDeclarationText = "declaration_text"
)

// DocumentKind is the kind of the wrapper node around a projected file.
const DocumentKind = "ast"

// Attr is a single key/value pair on a document node.
type Attr struct {
	Key   string
	Value string
}

// Attributes is an insertion-ordered attribute map.
type Attributes []Attr

// Set stores value under key, replacing an existing value in place.
func (a *Attributes) Set(key, value string) {
	for i := range *a {
		if (*a)[i].Key == key {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Key: key, Value: value})
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Node is one element of a document tree projected from a syntax tree.
type Node struct {
	Kind     string
	Attrs    Attributes
	Text     string
	Children []*Node
}

// Walk calls fn for n and every descendant in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// LineRange formats 0-based tree-sitter rows as a 1-based inclusive range.
func LineRange(startRow, endRow uint32) string {
	return fmt.Sprintf("%d-%d", startRow+1, endRow+1)
}

// RecordKey identifies a recorded definition.
type RecordKey struct {
	File  string
	Name  string
	Start int
	End   int
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s:%s at line(%d-%d)", k.File, k.Name, k.Start, k.End)
}

// Records maps definition keys to their overview documents.
type Records map[RecordKey]*Node

// Merge copies every record of other into r.
func (r Records) Merge(other Records) {
	for k, v := range other {
		r[k] = v
	}
}

// Names returns the set of definition names present in r.
func (r Records) Names() KeywordSet {
	names := NewKeywordSet()
	for k := range r {
		names.Add(k.Name)
	}
	return names
}

// ByString re-keys the records by their string form.
func (r Records) ByString() map[string]*Node {
	out := make(map[string]*Node, len(r))
	for k, v := range r {
		out[k.String()] = v
	}
	return out
}

// KeywordSet is an unordered set of literal identifiers.
type KeywordSet map[string]struct{}

// NewKeywordSet returns a set holding words.
func NewKeywordSet(words ...string) KeywordSet {
	s := make(KeywordSet, len(words))
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// Add inserts word.
func (s KeywordSet) Add(word string) { s[word] = struct{}{} }

// Has reports whether word is a member.
func (s KeywordSet) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Len returns the number of members.
func (s KeywordSet) Len() int { return len(s) }

// AddAll adds every member of other to s.
func (s KeywordSet) AddAll(other KeywordSet) {
	for w := range other {
		s[w] = struct{}{}
	}
}

// Minus returns the members of s that are not in other.
func (s KeywordSet) Minus(other KeywordSet) KeywordSet {
	out := NewKeywordSet()
	for w := range s {
		if !other.Has(w) {
			out.Add(w)
		}
	}
	return out
}

// Clone returns an independent copy of s.
func (s KeywordSet) Clone() KeywordSet {
	out := make(KeywordSet, len(s))
	out.AddAll(s)
	return out
}

// Sorted returns the members in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
