package css

import (
	"errors"
	"strconv"
	"strings"
)

// Lexer errors. ErrBadString and ErrBadToken only invalidate the
// declaration being lexed; ErrUnbalanced and ErrBadEscape desynchronise
// the value and abort the document.
var (
	ErrBadString  = errors.New("css: newline in string")
	ErrBadToken   = errors.New("css: malformed token")
	ErrUnbalanced = errors.New("css: unbalanced parentheses")
	ErrBadEscape  = errors.New("css: malformed escape")
)

// maxTokens caps the number of tokens in one declaration value. Longer
// values are rejected before grammar matching.
const maxTokens = 64

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

func isNewline(r rune) bool {
	return r == '\n' || r == '\r' || r == '\f'
}

func isHex(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// escapeLen returns the number of runes taken by the escape starting at
// rs[0], which must be a backslash.
func escapeLen(rs []rune) (int, error) {
	if len(rs) < 2 {
		return 0, ErrBadEscape
	}
	if rs[1] == '\r' && len(rs) > 2 && rs[2] == '\n' {
		return 3, nil
	}
	if !isHex(rs[1]) {
		return 2, nil
	}
	n := 1
	for n < len(rs) && n <= 6 && isHex(rs[n]) {
		n++
	}
	if n < len(rs) && isSpace(rs[n]) {
		if rs[n] == '\r' && n+1 < len(rs) && rs[n+1] == '\n' {
			n++
		}
		n++
	}
	return n, nil
}

// decodeEscapes decodes CSS backslash escapes in raw. An escaped newline
// is elided inside strings and rejected elsewhere.
func decodeEscapes(raw string, inString bool) (string, bool, error) {
	if !strings.ContainsRune(raw, '\\') {
		return raw, false, nil
	}
	rs := []rune(raw)
	var sb strings.Builder
	for i := 0; i < len(rs); i++ {
		if rs[i] != '\\' {
			sb.WriteRune(rs[i])
			continue
		}
		n, err := escapeLen(rs[i:])
		if err != nil {
			return "", false, err
		}
		switch {
		case isNewline(rs[i+1]):
			if !inString {
				return "", false, ErrBadToken
			}
		case isHex(rs[i+1]):
			digits := strings.TrimFunc(string(rs[i+1:i+n]), isSpace)
			v, err := strconv.ParseInt(digits, 16, 32)
			if err != nil || v == 0 || v > 0x10FFFF || v >= 0xD800 && v <= 0xDFFF {
				return "", false, ErrBadToken
			}
			sb.WriteRune(rune(v))
		default:
			sb.WriteRune(rs[i+1])
		}
		i += n - 1
	}
	return sb.String(), true, nil
}

// splitWords splits a declaration value into raw words. Whitespace ends a
// word outside strings and parentheses; ',' and '/' at the top level are
// words of their own.
func splitWords(s string) ([]string, error) {
	var words []string
	var cur strings.Builder
	var quote rune
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		if c == '\\' {
			n, err := escapeLen(rs[i:])
			if err != nil {
				return nil, err
			}
			cur.WriteString(string(rs[i : i+n]))
			i += n - 1
			continue
		}
		if quote != 0 {
			if isNewline(c) {
				return nil, ErrBadString
			}
			cur.WriteRune(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
			cur.WriteRune(c)
		case c == '(':
			depth++
			cur.WriteRune(c)
		case c == ')':
			depth--
			if depth < 0 {
				return nil, ErrUnbalanced
			}
			cur.WriteRune(c)
		case depth == 0 && isSpace(c):
			flush()
		case depth == 0 && (c == ',' || c == '/'):
			flush()
			words = append(words, string(c))
		default:
			cur.WriteRune(c)
		}
	}
	if quote != 0 {
		return nil, ErrBadString
	}
	if depth != 0 {
		return nil, ErrUnbalanced
	}
	flush()
	return words, nil
}

// Lex splits a declaration value into tokens.
func Lex(value string) ([]Token, error) {
	words, err := splitWords(value)
	if err != nil {
		return nil, err
	}
	if len(words) > maxTokens {
		return nil, ErrBadToken
	}
	toks := make([]Token, 0, len(words))
	for _, w := range words {
		t, err := lexWord(w)
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
	}
	return toks, nil
}

func lexWord(w string) (Token, error) {
	lower := strings.ToLower(w)
	switch {
	case w[0] == '"' || w[0] == '\'':
		return lexString(w)
	case strings.HasPrefix(lower, "url("):
		return lexURL(w)
	case strings.HasPrefix(lower, "attr("):
		return lexAttr(w)
	case strings.HasPrefix(lower, "counters("):
		return lexCounter(w[len("counters("):], true)
	case strings.HasPrefix(lower, "counter("):
		return lexCounter(w[len("counter("):], false)
	}
	if looksLikeIdent(w) {
		return lexIdent(w)
	}
	return &Simple{Original: w}, nil
}

func lexString(w string) (*String, error) {
	q := rune(w[0])
	rs := []rune(w)
	end := -1
	for i := 1; i < len(rs); i++ {
		if rs[i] == '\\' {
			n, err := escapeLen(rs[i:])
			if err != nil {
				return nil, err
			}
			i += n - 1
			continue
		}
		if rs[i] == q {
			end = i
			break
		}
	}
	if end != len(rs)-1 {
		return nil, ErrBadToken
	}
	inner := string(rs[1:end])
	decoded, escaped, err := decodeEscapes(inner, true)
	if err != nil {
		return nil, err
	}
	return &String{
		Original: w,
		Decoded:  decoded,
		Changed:  escaped || !allSafe(inner),
		Quote:    byte(q),
	}, nil
}

func lexURL(w string) (*URL, error) {
	if !strings.HasSuffix(w, ")") {
		return nil, ErrBadToken
	}
	inner := trimSpace(w[len("url(") : len(w)-1])
	if inner == "" {
		return nil, ErrBadToken
	}
	if inner[0] == '"' || inner[0] == '\'' {
		s, err := lexString(inner)
		if err != nil {
			return nil, err
		}
		return &URL{Value: *s}, nil
	}
	rs := []rune(inner)
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; {
		case r == '\\':
			n, err := escapeLen(rs[i:])
			if err != nil {
				return nil, err
			}
			i += n - 1
		case r == '"' || r == '\'' || r == '(' || r == ')' || isSpace(r):
			return nil, ErrBadToken
		}
	}
	decoded, _, err := decodeEscapes(inner, false)
	if err != nil {
		return nil, err
	}
	return &URL{Value: String{Original: inner, Decoded: decoded, Changed: true, Quote: '"'}}, nil
}

func lexAttr(w string) (*Attr, error) {
	if !strings.HasSuffix(w, ")") {
		return nil, ErrBadToken
	}
	inner := trimSpace(w[len("attr(") : len(w)-1])
	if !looksLikeIdent(inner) {
		return nil, ErrBadToken
	}
	id, err := lexIdent(inner)
	if err != nil {
		return nil, err
	}
	return &Attr{Name: *id}, nil
}

// lexCounter parses the arguments of counter( or counters( including
// the closing parenthesis.
func lexCounter(args string, plural bool) (*Counter, error) {
	if !strings.HasSuffix(args, ")") {
		return nil, ErrBadToken
	}
	words, err := splitWords(args[:len(args)-1])
	if err != nil {
		return nil, err
	}
	if len(words) == 0 || !looksLikeIdent(words[0]) {
		return nil, ErrBadToken
	}
	name, err := lexIdent(words[0])
	if err != nil {
		return nil, err
	}
	c := &Counter{Name: *name, Plural: plural}
	rest := words[1:]
	if plural {
		if len(rest) < 2 || rest[0] != "," || (rest[1][0] != '"' && rest[1][0] != '\'') {
			return nil, ErrBadToken
		}
		if c.Separator, err = lexString(rest[1]); err != nil {
			return nil, err
		}
		rest = rest[2:]
	}
	switch {
	case len(rest) == 0:
	case len(rest) == 2 && rest[0] == "," && looksLikeIdent(rest[1]):
		if c.ListType, err = lexIdent(rest[1]); err != nil {
			return nil, err
		}
	default:
		return nil, ErrBadToken
	}
	return c, nil
}

func lexIdent(w string) (*Ident, error) {
	decoded, escaped, err := decodeEscapes(w, false)
	if err != nil {
		return nil, err
	}
	return &Ident{Original: w, Decoded: decoded, Changed: escaped || !allSafe(w)}, nil
}

func allSafe(s string) bool {
	for _, r := range s {
		if !safeRune(r) {
			return false
		}
	}
	return true
}

// looksLikeIdent reports whether w is lexically a CSS identifier,
// counting escapes as name characters.
func looksLikeIdent(w string) bool {
	rs := []rune(w)
	if len(rs) == 0 {
		return false
	}
	i := 0
	if rs[0] == '-' {
		i++
		if i == len(rs) {
			return false
		}
		if rs[i] == '-' {
			i++
			if i == len(rs) {
				return false
			}
		}
	}
	for first := true; i < len(rs); first = false {
		if rs[i] == '\\' {
			n, err := escapeLen(rs[i:])
			if err != nil || isNewline(rs[i+1]) {
				return false
			}
			i += n
			continue
		}
		if first && !isNameStart(rs[i]) || !isNameChar(rs[i]) {
			return false
		}
		i++
	}
	return true
}

// SplitImportant removes a trailing "!important" (one or two tokens).
func SplitImportant(toks []Token) ([]Token, bool) {
	n := len(toks)
	if n >= 1 {
		if s, ok := toks[n-1].(*Simple); ok && strings.EqualFold(s.Original, "!important") {
			return toks[:n-1], true
		}
	}
	if n >= 2 {
		bang, ok1 := toks[n-2].(*Simple)
		word, ok2 := toks[n-1].(*Ident)
		if ok1 && ok2 && bang.Original == "!" && strings.EqualFold(word.Decoded, "important") {
			return toks[:n-2], true
		}
	}
	return toks, false
}

// Join encodes toks back into a declaration value.
func Join(toks []Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if s, ok := t.(*Simple); ok && s.Original == "," {
			sb.WriteByte(',')
			continue
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Encode())
	}
	return sb.String()
}
