package contentfilter

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/njchilds90/contentfilter/css"
	"github.com/njchilds90/contentfilter/filtererr"
)

type htmlState int

const (
	htmlText htmlState = iota
	htmlInTag
	htmlInTagQuotedDouble
	htmlInTagQuotedSingle
	htmlInTagWhitespace
	htmlInComment
	htmlInCommentClosing
)

// textEscaper makes text inert in HTML without touching entities.
var textEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// htmlTokenizer is a single pass state machine over decoded HTML. It
// never builds a tree: each tag is sanitised and written as soon as its
// closing '>' is seen.
type htmlTokenizer struct {
	opts    Options
	log     *slog.Logger
	cb      BoundaryCallback
	w       *bufio.Writer
	charset string
	detect  bool

	state htmlState
	buf   strings.Builder
	raw   strings.Builder
	frags []string

	// <style> and <script> content is buffered until the matching
	// closing tag. rawOpen is the sanitised opening tag, or "" when the
	// element is being discarded.
	rawTag  string
	rawOpen string
	rawBuf  strings.Builder

	open     []string
	detected string
	done     bool
}

func newHTMLTokenizer(w io.Writer, charset string, cb BoundaryCallback, opts Options, detect bool) *htmlTokenizer {
	t := &htmlTokenizer{
		opts:    opts,
		log:     opts.Logger,
		cb:      cb,
		charset: charset,
		detect:  detect,
	}
	if t.log == nil {
		t.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w != nil && !detect {
		t.w = bufio.NewWriter(w)
	}
	return t
}

func (t *htmlTokenizer) run(r io.RuneReader) error {
	for !t.done {
		c, _, err := r.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return filtererr.Wrap(filtererr.ErrIO, "read", err)
		}
		if err := t.step(c); err != nil {
			return err
		}
	}
	t.finish()
	return nil
}

func (t *htmlTokenizer) flush() error {
	if t.w == nil {
		return nil
	}
	if err := t.w.Flush(); err != nil {
		return filtererr.Wrap(filtererr.ErrIO, "write", err)
	}
	return nil
}

func (t *htmlTokenizer) write(s string) {
	if t.w != nil {
		_, _ = t.w.WriteString(s)
	}
}

func isSpace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func (t *htmlTokenizer) step(c rune) error {
	switch t.state {
	case htmlText:
		if c == '<' {
			t.flushText()
			t.beginTag()
			return nil
		}
		t.buf.WriteRune(c)

	case htmlInTag:
		switch {
		case c == '<':
			t.abortTag()
			t.beginTag()
		case isSpace(c) && t.buf.Len() == 0 && len(t.frags) == 0:
			// "< " is a literal less-than sign.
			t.raw.WriteRune(c)
			t.abortTag()
		case c == '>':
			t.pushFragment()
			return t.endTag()
		case c == '"' || c == '\'':
			t.beginQuote(c)
		case isSpace(c):
			t.raw.WriteRune(c)
			t.pushFragment()
			t.state = htmlInTagWhitespace
		case c == '-' && len(t.frags) == 0 && t.buf.String() == "!-":
			t.raw.WriteRune(c)
			t.buf.Reset()
			t.state = htmlInComment
		default:
			t.raw.WriteRune(c)
			t.buf.WriteRune(c)
		}

	case htmlInTagQuotedDouble, htmlInTagQuotedSingle:
		t.raw.WriteRune(c)
		t.buf.WriteRune(c)
		if c == '"' && t.state == htmlInTagQuotedDouble || c == '\'' && t.state == htmlInTagQuotedSingle {
			t.state = htmlInTag
		}

	case htmlInTagWhitespace:
		switch {
		case c == '<':
			t.abortTag()
			t.beginTag()
		case c == '>':
			return t.endTag()
		case isSpace(c):
			t.raw.WriteRune(c)
		case c == '"' || c == '\'':
			t.beginQuote(c)
		default:
			t.raw.WriteRune(c)
			t.buf.WriteRune(c)
			t.state = htmlInTag
		}

	case htmlInComment:
		t.buf.WriteRune(c)
		if strings.HasSuffix(t.buf.String(), "--") {
			t.state = htmlInCommentClosing
		}

	case htmlInCommentClosing:
		if c == '>' {
			body := t.buf.String()
			body = body[:len(body)-2]
			t.buf.Reset()
			t.state = htmlText
			t.endComment(body)
			return nil
		}
		t.buf.WriteRune(c)
		if c != '-' {
			t.state = htmlInComment
		}
	}
	return nil
}

func (t *htmlTokenizer) beginTag() {
	t.state = htmlInTag
	t.raw.Reset()
	t.raw.WriteByte('<')
	t.buf.Reset()
	t.frags = t.frags[:0]
}

func (t *htmlTokenizer) beginQuote(c rune) {
	t.raw.WriteRune(c)
	t.buf.WriteRune(c)
	if c == '"' {
		t.state = htmlInTagQuotedDouble
	} else {
		t.state = htmlInTagQuotedSingle
	}
}

func (t *htmlTokenizer) pushFragment() {
	if t.buf.Len() > 0 {
		t.frags = append(t.frags, t.buf.String())
		t.buf.Reset()
	}
}

// abortTag gives up on the tag being read and emits its raw text,
// escaped, as ordinary text.
func (t *htmlTokenizer) abortTag() {
	text := t.raw.String()
	t.raw.Reset()
	t.buf.Reset()
	t.frags = t.frags[:0]
	t.state = htmlText
	t.emitText(text, true)
}

func (t *htmlTokenizer) flushText() {
	text := t.buf.String()
	t.buf.Reset()
	t.emitText(text, false)
}

func (t *htmlTokenizer) emitText(text string, escape bool) {
	if text == "" {
		return
	}
	if t.rawTag != "" {
		if t.rawTag == "style" {
			t.rawBuf.WriteString(text)
		}
		return
	}
	if t.detect {
		return
	}
	t.cb.OnText(html.UnescapeString(text), t.containing())
	if escape {
		text = textEscaper.Replace(text)
	}
	t.write(text)
}

func (t *htmlTokenizer) containing() string {
	if len(t.open) == 0 {
		return ""
	}
	return t.open[len(t.open)-1]
}

func (t *htmlTokenizer) endComment(body string) {
	switch {
	case t.rawTag == "style":
		// Legacy stylesheet hiding: the comment body is the stylesheet.
		t.rawBuf.WriteString(body)
	case t.rawTag != "", t.detect, t.opts.DeleteComments:
	default:
		t.write("<!--" + textEscaper.Replace(body) + "-->")
	}
}

func (t *htmlTokenizer) endTag() error {
	t.raw.WriteByte('>')
	raw := t.raw.String()
	t.raw.Reset()
	t.state = htmlText

	pt, ok := parseTag(t.frags)
	t.frags = t.frags[:0]
	if !ok {
		t.emitText(raw, true)
		return nil
	}
	if t.rawTag != "" {
		return t.rawContentTag(pt, raw)
	}
	if t.detect && pt.name == "body" {
		t.done = true
		return nil
	}
	p, ok := lookupTag(pt.name)
	if !ok {
		t.unknownTag(pt)
		return nil
	}
	if pt.closing {
		t.closeTag(p)
		return nil
	}
	return t.openTag(p, pt)
}

// rawContentTag handles a tag seen inside <style> or <script>.
func (t *htmlTokenizer) rawContentTag(pt *parsedTag, raw string) error {
	if pt.closing && pt.name == t.rawTag {
		return t.closeRaw()
	}
	if !pt.closing && (pt.name == "style" || pt.name == "script") {
		return filtererr.New(filtererr.ErrSyntax, "nested-"+pt.name,
			"a <"+pt.name+"> element was opened inside <"+t.rawTag+">")
	}
	if t.rawTag == "style" {
		t.rawBuf.WriteString(raw)
	}
	return nil
}

func (t *htmlTokenizer) closeRaw() error {
	tag, open, content := t.rawTag, t.rawOpen, t.rawBuf.String()
	t.rawTag, t.rawOpen = "", ""
	t.rawBuf.Reset()
	if tag != "style" || open == "" {
		return nil
	}
	var out strings.Builder
	if _, err := css.FilterStylesheet(strings.NewReader(content), &out, t.cssOptions()); err != nil {
		return err
	}
	t.write(open + out.String() + "</style>")
	return nil
}

func (t *htmlTokenizer) cssOptions() css.Options {
	return css.Options{
		URIs:     t.cb,
		Elements: isElementName,
		Charset:  t.charset,
		Logger:   t.log,
	}
}

func (t *htmlTokenizer) unknownTag(pt *parsedTag) {
	t.log.Debug("html: dropped unknown tag", "tag", pt.name)
	if pt.closing || t.detect || t.opts.Strict || t.opts.DeleteComments {
		return
	}
	t.write("<!-- deleted unknown element -->")
}

func (t *htmlTokenizer) openTag(p *tagPolicy, pt *parsedTag) error {
	switch p.kind {
	case kindScript:
		t.log.Debug("html: dropped script")
		if !pt.selfClosing {
			t.rawTag = "script"
		}
		return nil
	case kindStyle:
		open := t.styleTag(p, pt)
		if !pt.selfClosing {
			t.rawTag = "style"
			t.rawOpen = open
		}
		return nil
	}

	out, err := t.sanitize(p, pt)
	if err != nil || out == nil {
		return err
	}
	t.write(out.String())
	if !out.selfClosing && !isVoidElement(out.name) && out.verbatim == "" {
		t.open = append(t.open, out.name)
	}
	return nil
}

func (t *htmlTokenizer) closeTag(p *tagPolicy) {
	switch p.kind {
	case kindScript, kindStyle, kindDoctype, kindXMLDecl:
		return
	}
	if isVoidElement(p.name) {
		return
	}
	for i := len(t.open) - 1; i >= 0; i-- {
		if t.open[i] == p.name {
			t.open = t.open[:i]
			break
		}
	}
	t.write("</" + p.name + ">")
}

// reject removes an element the callback refused. In strict mode this
// fails the document; otherwise a comment marks the removal.
func (t *htmlTokenizer) reject(reason, explanation string) error {
	t.log.Debug("html: rejected element", "reason", reason)
	if t.opts.Strict {
		return filtererr.New(filtererr.ErrRejected, reason, explanation)
	}
	if !t.detect && !t.opts.DeleteComments {
		t.write("<!-- " + textEscaper.Replace(explanation) + " -->")
	}
	return nil
}

// finish handles end of input. Unterminated tags become text,
// unterminated comments and raw text elements are dropped.
func (t *htmlTokenizer) finish() {
	switch t.state {
	case htmlText:
		t.flushText()
	case htmlInTag, htmlInTagWhitespace, htmlInTagQuotedDouble, htmlInTagQuotedSingle:
		t.abortTag()
	case htmlInComment, htmlInCommentClosing:
		t.log.Debug("html: dropped unterminated comment")
		t.buf.Reset()
	}
	if t.rawTag != "" {
		t.log.Debug("html: dropped unterminated element", "tag", t.rawTag)
		t.rawTag, t.rawOpen = "", ""
		t.rawBuf.Reset()
	}
}
