// Package charsets canonicalises charset labels and sniffs byte-order
// marks for the content filters.
package charsets

import (
	"bytes"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// Lookup returns the encoding and canonical name for a charset label.
func Lookup(label string) (encoding.Encoding, string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, "", false
	}
	e, name := charset.Lookup(label)
	if e == nil {
		return nil, "", false
	}
	return e, name, true
}

// Same reports whether two labels name the same supported charset.
func Same(a, b string) bool {
	_, na, ok1 := Lookup(a)
	_, nb, ok2 := Lookup(b)
	return ok1 && ok2 && na == nb
}

var boms = []struct {
	mark []byte
	name string
}{
	{[]byte{0xEF, 0xBB, 0xBF}, "utf-8"},
	{[]byte{0xFE, 0xFF}, "utf-16be"},
	{[]byte{0xFF, 0xFE}, "utf-16le"},
}

// SniffBOM returns the charset implied by a byte-order mark at the start
// of content.
func SniffBOM(content []byte) (string, bool) {
	for _, b := range boms {
		if bytes.HasPrefix(content, b.mark) {
			return b.name, true
		}
	}
	return "", false
}
