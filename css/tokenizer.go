package css

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/njchilds90/contentfilter/filtererr"
	"github.com/njchilds90/contentfilter/internal/charsets"
)

// Options configures a stylesheet filter pass.
type Options struct {
	// URIs vets @import targets and url() values. Nil drops them all.
	URIs URIProcessor

	// Elements restricts element names in selectors. Nil accepts any
	// syntactically valid name.
	Elements ElementFilter

	// Charset is the charset the document is being read with. An
	// @charset rule naming a different charset is a fatal error.
	Charset string

	// DetectOnly records the @charset rule and writes nothing.
	DetectOnly bool

	Logger *slog.Logger
}

type state int

const (
	stateTopLevel state = iota
	stateSelector
	stateDeclaration
	stateTopLevelQuoted
	stateSelectorQuoted
	stateDeclarationQuoted
	stateComment
)

func (s state) quoted() state {
	switch s {
	case stateSelector:
		return stateSelectorQuoted
	case stateDeclaration:
		return stateDeclarationQuoted
	}
	return stateTopLevelQuoted
}

func (s state) unquoted() state {
	switch s {
	case stateSelectorQuoted:
		return stateSelector
	case stateDeclarationQuoted:
		return stateDeclaration
	}
	return stateTopLevel
}

type tokenizer struct {
	opts   Options
	log    *slog.Logger
	w      *bufio.Writer
	inline bool

	state    state
	resume   state
	quote    rune
	escaped  bool
	prev     rune
	buf      bytes.Buffer
	atStart  bool
	started  bool
	ruleSeen bool
	done     bool

	media     [][]string
	discard   bool
	page      bool
	elements  []string
	decls     []string
	braces    int
	parens    int
	broken    bool
	badString bool
	detected  string
}

func newTokenizer(w io.Writer, opts Options) *tokenizer {
	t := &tokenizer{opts: opts, log: opts.Logger, atStart: true}
	if t.log == nil {
		t.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w != nil && !opts.DetectOnly {
		t.w = bufio.NewWriter(w)
	}
	return t
}

// FilterStylesheet reads a stylesheet from r and writes the sanitised
// stylesheet to w. It returns the charset named by a leading @charset
// rule, if any.
func FilterStylesheet(r io.RuneReader, w io.Writer, opts Options) (string, error) {
	t := newTokenizer(w, opts)
	err := t.run(r)
	if err == nil && t.w != nil {
		if ferr := t.w.Flush(); ferr != nil {
			err = filtererr.Wrap(filtererr.ErrIO, "write", ferr)
		}
	}
	return t.detected, err
}

// FilterInline sanitises the value of a style attribute on element.
// Parsing starts in the declaration state and stops at the first
// unmatched '}'.
func FilterInline(style, element string, opts Options) (string, error) {
	var out strings.Builder
	t := newTokenizer(&out, opts)
	t.inline = true
	t.atStart = false
	t.started = true
	t.state = stateDeclaration
	if element != "" {
		t.elements = []string{strings.ToLower(element)}
	}
	if err := t.run(strings.NewReader(style)); err != nil {
		return "", err
	}
	return strings.Join(t.decls, " "), nil
}

func (t *tokenizer) run(r io.RuneReader) error {
	for !t.done {
		c, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return filtererr.Wrap(filtererr.ErrIO, "read", err)
		}
		if t.atStart {
			t.atStart = false
			if c == '\uFEFF' {
				t.write("\uFEFF")
				continue
			}
		}
		if err := t.step(c); err != nil {
			return err
		}
	}
	return t.finish()
}

func (t *tokenizer) write(s string) {
	if t.w != nil && !t.inline {
		_, _ = t.w.WriteString(s)
	}
}

func (t *tokenizer) drop(what, detail string) {
	t.log.Debug("css: dropped "+what, "detail", detail)
}

func (t *tokenizer) step(c rune) error {
	switch t.state {
	case stateComment:
		if c == '/' && t.prev == '*' {
			t.state = t.resume
			t.prev = 0
			if t.buf.Len() > 0 {
				t.buf.WriteByte(' ')
			}
			return nil
		}
		t.prev = c
		return nil
	case stateTopLevelQuoted, stateSelectorQuoted, stateDeclarationQuoted:
		t.stepQuoted(c)
		return nil
	}

	if c == '*' && t.prev == '/' {
		t.buf.Truncate(t.buf.Len() - 1)
		t.resume = t.state
		t.state = stateComment
		t.prev = 0
		return nil
	}
	t.prev = c

	if t.state == stateDeclaration {
		return t.stepDeclaration(c)
	}
	return t.stepTopLevel(c)
}

func (t *tokenizer) stepQuoted(c rune) {
	switch {
	case t.escaped:
		t.escaped = false
	case c == '\\':
		t.escaped = true
	case c == t.quote:
		t.state = t.state.unquoted()
	case isNewline(c):
		// An unterminated string ends at the newline and spoils the
		// construct it is in.
		t.badString = true
		t.state = t.state.unquoted()
	}
	t.buf.WriteRune(c)
}

func (t *tokenizer) beginQuote(c rune) {
	t.quote = c
	t.escaped = false
	t.state = t.state.quoted()
	t.buf.WriteRune(c)
}

func (t *tokenizer) stepTopLevel(c rune) error {
	switch {
	case c == '"' || c == '\'':
		if t.state == stateTopLevel && t.buf.Len() == 0 {
			t.state = stateSelector
		}
		t.beginQuote(c)
	case c == '{':
		t.startBlock()
	case c == ';':
		return t.statement()
	case c == '}':
		if text := trimSpace(t.buf.String()); text != "" {
			t.drop("garbage", text)
		}
		t.resetConstruct()
		if len(t.media) > 0 {
			t.media = t.media[:len(t.media)-1]
			t.write("}\n")
		}
	case isSpace(c):
		if t.buf.Len() == 0 {
			return nil
		}
		// Legacy HTML comment delimiters are ignored between rules.
		if text := trimSpace(t.buf.String()); text == "<!--" || text == "-->" {
			t.resetConstruct()
			return nil
		}
		t.buf.WriteRune(c)
	default:
		if t.state == stateTopLevel && t.buf.Len() == 0 && c != '@' {
			t.state = stateSelector
		}
		t.buf.WriteRune(c)
	}
	return nil
}

func (t *tokenizer) resetConstruct() {
	t.buf.Reset()
	t.badString = false
	t.state = stateTopLevel
}

func (t *tokenizer) currentMedia() []string {
	if len(t.media) == 0 {
		return nil
	}
	return t.media[len(t.media)-1]
}

// startBlock handles '{' outside a declaration block: an at-rule block
// or a rule set.
func (t *tokenizer) startBlock() {
	text := trimSpace(t.buf.String())
	bad := t.badString
	t.resetConstruct()
	t.started = true

	if strings.HasPrefix(text, "@") {
		name, rest := splitAtKeyword(text)
		switch name {
		case "media":
			list, ok := FilterMedia(rest)
			if ok && !bad && len(t.media) == 0 {
				t.write("@media " + strings.Join(list, ", ") + " {\n")
				t.media = append(t.media, list)
				t.ruleSeen = true
				return
			}
		case "page":
			pseudo := strings.ToLower(rest)
			if !bad && len(t.media) == 0 && (pseudo == "" || pseudo == ":first" || pseudo == ":left" || pseudo == ":right") {
				if pseudo == "" {
					t.write("@page {")
				} else {
					t.write("@page " + pseudo + " {")
				}
				t.beginRule(false, true, nil)
				return
			}
		}
		t.drop("at-rule", text)
		t.beginRule(true, false, nil)
		return
	}

	sel, subjects, ok := ValidateSelectors(text, t.opts.Elements)
	if !ok || bad {
		t.drop("selector", text)
		t.beginRule(true, false, nil)
		return
	}
	t.write(sel + " {")
	t.beginRule(false, false, subjects)
}

func (t *tokenizer) beginRule(discard, page bool, elements []string) {
	t.state = stateDeclaration
	t.discard = discard
	t.page = page
	t.elements = elements
	t.decls = t.decls[:0]
	t.braces = 0
	t.parens = 0
	t.ruleSeen = true
}

func splitAtKeyword(text string) (string, string) {
	i := 1
	for i < len(text) && isSelectorNameChar(text[i]) {
		i++
	}
	return strings.ToLower(text[1:i]), trimSpace(text[i:])
}

// statement handles ';' outside a declaration block.
func (t *tokenizer) statement() error {
	text := trimSpace(t.buf.String())
	bad := t.badString
	first := !t.started
	t.resetConstruct()
	t.started = true
	if text == "" {
		return nil
	}
	if bad || !strings.HasPrefix(text, "@") {
		t.drop("statement", text)
		return nil
	}
	name, rest := splitAtKeyword(text)
	switch name {
	case "charset":
		return t.charsetRule(rest, first)
	case "import":
		return t.importRule(rest)
	}
	t.drop("at-rule", text)
	return nil
}

func (t *tokenizer) charsetRule(rest string, first bool) error {
	if !first || rest == "" || rest[0] != '"' && rest[0] != '\'' {
		t.drop("@charset", rest)
		return nil
	}
	str, err := lexString(rest)
	if err != nil {
		t.drop("@charset", rest)
		return nil
	}
	t.detected = str.Decoded
	if t.opts.DetectOnly {
		return nil
	}
	if _, _, ok := charsets.Lookup(str.Decoded); !ok {
		return filtererr.New(filtererr.ErrCharset, "css-charset-unsupported",
			"the stylesheet declares an unsupported charset: "+str.Decoded)
	}
	if t.opts.Charset != "" && !charsets.Same(str.Decoded, t.opts.Charset) {
		return filtererr.New(filtererr.ErrCharset, "css-charset-mismatch",
			"the stylesheet declares charset "+str.Decoded+" but is being read as "+t.opts.Charset)
	}
	t.write("@charset " + NewString(str.Decoded).Encode() + ";\n")
	return nil
}

func (t *tokenizer) importRule(rest string) error {
	if t.ruleSeen || len(t.media) > 0 {
		t.drop("@import", "after rules")
		return nil
	}
	toks, err := Lex(rest)
	if err != nil {
		if errors.Is(err, ErrUnbalanced) || errors.Is(err, ErrBadEscape) {
			return filtererr.Wrap(filtererr.ErrSyntax, "css-syntax", err)
		}
		t.drop("@import", rest)
		return nil
	}
	if len(toks) == 0 {
		return nil
	}
	var target string
	switch tok := toks[0].(type) {
	case *URL:
		target = tok.Value.Decoded
	case *String:
		target = tok.Decoded
	default:
		t.drop("@import", rest)
		return nil
	}
	var mediaList []string
	if len(toks) > 1 {
		var sb strings.Builder
		for _, tok := range toks[1:] {
			switch tok := tok.(type) {
			case *Ident:
				sb.WriteString(tok.Decoded)
			case *Simple:
				if tok.Original != "," {
					t.drop("@import", rest)
					return nil
				}
				sb.WriteByte(',')
			default:
				t.drop("@import", rest)
				return nil
			}
		}
		var ok bool
		if mediaList, ok = FilterMedia(sb.String()); !ok {
			t.drop("@import", rest)
			return nil
		}
	}
	if t.opts.URIs == nil {
		t.drop("@import", target)
		return nil
	}
	res, ok := t.opts.URIs.ProcessURI(target, "text/css")
	if !ok {
		t.drop("@import", target)
		return nil
	}
	out := "@import " + (&URL{Value: *NewString(res)}).Encode()
	if len(mediaList) > 0 {
		out += " " + strings.Join(mediaList, ", ")
	}
	t.write(out + ";\n")
	return nil
}

func (t *tokenizer) stepDeclaration(c rune) error {
	switch {
	case c == '"' || c == '\'':
		t.beginQuote(c)
	case c == '(':
		t.parens++
		t.buf.WriteRune(c)
	case c == ')':
		t.parens--
		t.buf.WriteRune(c)
	case c == '{':
		t.braces++
		t.broken = true
		t.buf.WriteRune(c)
	case c == '}':
		if t.braces > 0 {
			t.braces--
			t.buf.WriteRune(c)
			return nil
		}
		if err := t.endDeclaration(); err != nil {
			return err
		}
		t.endRule()
	case c == ';' && t.braces == 0 && t.parens <= 0:
		return t.endDeclaration()
	default:
		t.buf.WriteRune(c)
	}
	return nil
}

func (t *tokenizer) endDeclaration() error {
	text := trimSpace(t.buf.String())
	broken := t.broken || t.badString
	t.buf.Reset()
	t.broken = false
	t.badString = false
	t.parens = 0
	if t.discard || text == "" {
		return nil
	}
	if broken {
		t.drop("declaration", text)
		return nil
	}
	i := strings.IndexByte(text, ':')
	if i < 0 {
		t.drop("declaration", text)
		return nil
	}
	name := strings.ToLower(trimSpace(text[:i]))
	value := trimSpace(text[i+1:])
	ctx := &Context{
		Elements: t.elements,
		Media:    t.currentMedia(),
		URIs:     t.opts.URIs,
		Page:     t.page,
	}
	out, ok, err := VerifyDeclaration(name, value, ctx)
	if err != nil {
		return filtererr.Wrap(filtererr.ErrSyntax, "css-syntax", err)
	}
	if !ok {
		t.log.Debug("css: dropped declaration", "property", name)
		return nil
	}
	t.decls = append(t.decls, name+": "+out+";")
	return nil
}

func (t *tokenizer) endRule() {
	if t.inline {
		t.done = true
		return
	}
	if !t.discard {
		for _, d := range t.decls {
			t.write(" " + d)
		}
		t.write(" }\n")
	}
	t.decls = t.decls[:0]
	t.discard = false
	t.page = false
	t.elements = nil
	t.state = stateTopLevel
}

// finish closes what is still open at end of input.
func (t *tokenizer) finish() error {
	st := t.state
	if st == stateComment {
		st = t.resume
	}
	switch st {
	case stateDeclaration:
		if err := t.endDeclaration(); err != nil {
			return err
		}
		t.endRule()
	case stateDeclarationQuoted:
		t.buf.Reset()
		t.endRule()
	default:
		if text := trimSpace(t.buf.String()); text != "" {
			t.drop("unterminated", text)
		}
		t.buf.Reset()
	}
	for range t.media {
		t.write("}\n")
	}
	t.media = nil
	return nil
}
