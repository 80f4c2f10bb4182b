package css

import (
	"strconv"
	"strings"
)

// Token is a single decoded CSS value lexeme. The concrete types are
// *Ident, *String, *URL, *Attr, *Counter and *Simple.
//
// Encode returns text that re-lexes to a token of the same type with the
// same decoded value. A token that was not changed by decoding encodes
// to its original source text.
type Token interface {
	Encode() string
	// Text is the decoded value used for keyword comparisons.
	Text() string
	token()
}

// Ident is a CSS identifier.
type Ident struct {
	Original string
	Decoded  string
	Changed  bool
}

// String is a quoted string. Original includes the quotes.
type String struct {
	Original string
	Decoded  string
	Changed  bool
	Quote    byte
}

// URL is url(...), quoted or not in the source. Verification may
// replace Value with the result of the boundary callback.
type URL struct {
	Value String

	checked  bool
	accepted bool
}

// Attr is attr(identifier).
type Attr struct {
	Name Ident
}

// Counter is counter(name[, style]) or counters(name, separator[, style]).
type Counter struct {
	Name      Ident
	ListType  *Ident
	Separator *String
	Plural    bool
}

// Simple is any other token: numbers, dimensions, hash colors,
// punctuation and function calls such as rgb(). Never re-encoded.
type Simple struct {
	Original string
}

func (*Ident) token()   {}
func (*String) token()  {}
func (*URL) token()     {}
func (*Attr) token()    {}
func (*Counter) token() {}
func (*Simple) token()  {}

func (t *Ident) Text() string   { return t.Decoded }
func (t *String) Text() string  { return t.Decoded }
func (t *URL) Text() string     { return t.Value.Decoded }
func (t *Attr) Text() string    { return t.Name.Decoded }
func (t *Counter) Text() string { return t.Name.Decoded }
func (t *Simple) Text() string  { return t.Original }

// Encode implements Token.
func (t *Ident) Encode() string {
	if !t.Changed {
		return t.Original
	}
	return encodeIdent(t.Decoded)
}

// Encode implements Token.
func (t *String) Encode() string {
	if !t.Changed {
		return t.Original
	}
	q := t.Quote
	if q != '\'' {
		q = '"'
	}
	return encodeString(t.Decoded, q)
}

// Encode implements Token. URLs are always emitted quoted.
func (t *URL) Encode() string {
	return "url(" + encodeString(t.Value.Decoded, '"') + ")"
}

// Encode implements Token.
func (t *Attr) Encode() string {
	return "attr(" + t.Name.Encode() + ")"
}

// Encode implements Token.
func (t *Counter) Encode() string {
	var sb strings.Builder
	if t.Plural {
		sb.WriteString("counters(")
	} else {
		sb.WriteString("counter(")
	}
	sb.WriteString(t.Name.Encode())
	if t.Plural && t.Separator != nil {
		sb.WriteString(", ")
		sb.WriteString(t.Separator.Encode())
	}
	if t.ListType != nil {
		sb.WriteString(", ")
		sb.WriteString(t.ListType.Encode())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Encode implements Token.
func (t *Simple) Encode() string { return t.Original }

// NewString returns an unchanged-looking String token for s, quoted with
// double quotes.
func NewString(s string) *String {
	return &String{Original: encodeString(s, '"'), Decoded: s, Quote: '"'}
}

func isNameChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
		r == '-' || r == '_' || r >= 0x80
}

func isNameStart(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_' || r >= 0x80
}

// safeRune reports whether r may appear unescaped in output. Characters
// outside Basic Latin are escaped so that the output does not depend on
// the transport charset, and angle brackets are escaped so that a value
// can never close an enclosing <style> element.
func safeRune(r rune) bool {
	return r >= 0x20 && r < 0x7f && r != '<' && r != '>'
}

func hexEscape(sb *strings.Builder, r rune) {
	sb.WriteByte('\\')
	sb.WriteString(strconv.FormatInt(int64(r), 16))
	sb.WriteByte(' ')
}

func encodeIdent(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case i == 0 && r >= '0' && r <= '9':
			hexEscape(&sb, r)
		case i == 1 && s[0] == '-' && r >= '0' && r <= '9':
			hexEscape(&sb, r)
		case r < 0x80 && isNameChar(r):
			sb.WriteRune(r)
		case safeRune(r):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			hexEscape(&sb, r)
		}
	}
	return sb.String()
}

func encodeString(s string, quote byte) string {
	var sb strings.Builder
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case safeRune(r):
			sb.WriteRune(r)
		default:
			hexEscape(&sb, r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}
