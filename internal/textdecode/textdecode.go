// Package textdecode picks a text encoding for raw source bytes and decodes
// node slices with it.
package textdecode

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// Decoder turns byte slices of one source file into text.
type Decoder struct {
	name string
	enc  encoding.Encoding // nil for utf-8
}

// Name returns the encoding label, e.g. "utf-8" or "gbk".
func (d Decoder) Name() string {
	return d.name
}

// Decode converts b to a string. Bytes the encoding cannot represent become
// U+FFFD.
func (d Decoder) Decode(b []byte) string {
	if d.enc == nil {
		return string(b)
	}
	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// UTF8 is the universal fallback decoder.
var UTF8 = Decoder{name: "utf-8"}

// candidates are tried in order; the first that decodes cleanly wins.
var candidates = []Decoder{
	UTF8,
	{name: "gbk", enc: simplifiedchinese.GBK},
	{name: "big5", enc: traditionalchinese.Big5},
	{name: "latin1", enc: charmap.ISO8859_1},
}

// Guess returns the first candidate encoding that decodes data without
// errors, or UTF8 when none does.
func Guess(data []byte) Decoder {
	for _, d := range candidates {
		if decodesCleanly(d, data) {
			return d
		}
	}
	return UTF8
}

func decodesCleanly(d Decoder, data []byte) bool {
	if d.enc == nil {
		return utf8.Valid(data)
	}
	out, err := d.enc.NewDecoder().Bytes(data)
	if err != nil {
		return false
	}
	// x/text substitutes U+FFFD for invalid sequences instead of failing.
	return !strings.ContainsRune(string(out), utf8.RuneError)
}
