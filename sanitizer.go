package contentfilter

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/njchilds90/contentfilter/css"
	"github.com/njchilds90/contentfilter/filtererr"
	"github.com/njchilds90/contentfilter/internal/charsets"
)

// Error is the document-fatal error returned by the filters.
type Error = filtererr.Error

// Error kinds, matched with errors.Is.
var (
	ErrCharset  = filtererr.ErrCharset
	ErrSyntax   = filtererr.ErrSyntax
	ErrIO       = filtererr.ErrIO
	ErrRejected = filtererr.ErrRejected
)

// AsError returns err as an *Error if it is one.
func AsError(err error) (*Error, bool) {
	return filtererr.AsError(err)
}

// Options configures a filter.
type Options struct {
	// Strict turns refused links, forms and base URIs into fatal
	// errors instead of annotating their removal with a comment.
	Strict bool

	// DeleteComments drops document comments instead of escaping them.
	DeleteComments bool

	// Logger receives debug records for every dropped construct. Nil
	// discards them.
	Logger *slog.Logger
}

// ContentFilter sanitises one MIME type.
type ContentFilter interface {
	// Read filters a whole document held in memory.
	Read(content []byte, charset string, cb BoundaryCallback) ([]byte, error)

	// Filter streams a document from r to w. Output is written in the
	// same charset as the input.
	Filter(r io.Reader, w io.Writer, charset string, cb BoundaryCallback) error

	// ExtractCharset sniffs the charset a document declares for itself,
	// reading it as fallback until a declaration is found. It never
	// fails; ok is false when nothing was found.
	ExtractCharset(content []byte, fallback string) (charset string, ok bool)
}

// ForMIMEType returns the filter for a MIME type.
func ForMIMEType(mimeType string, opts *Options) (ContentFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "text/html", "application/xhtml+xml":
		return NewHTMLFilter(opts), true
	case "text/css":
		return NewCSSFilter(opts), true
	}
	return nil, false
}

func optionsOrDefault(opts *Options) Options {
	if opts == nil {
		return Options{}
	}
	return *opts
}

func lookupCharset(label string) (encoding.Encoding, string, error) {
	enc, name, ok := charsets.Lookup(label)
	if !ok {
		return nil, "", filtererr.New(filtererr.ErrCharset, "unsupported-charset",
			"the content is in an unsupported charset: "+label)
	}
	return enc, name, nil
}

func closeOutput(w io.Closer, err error) error {
	if cerr := w.Close(); err == nil && cerr != nil {
		err = filtererr.Wrap(filtererr.ErrIO, "write", cerr)
	}
	return err
}

// HTMLFilter filters text/html.
type HTMLFilter struct {
	opts Options
}

// NewHTMLFilter returns an HTML filter. If opts is nil the defaults are
// used.
func NewHTMLFilter(opts *Options) *HTMLFilter {
	return &HTMLFilter{opts: optionsOrDefault(opts)}
}

// Read implements ContentFilter.
func (f *HTMLFilter) Read(content []byte, charset string, cb BoundaryCallback) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Filter(bytes.NewReader(content), &buf, charset, cb); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filter implements ContentFilter. Characters the charset cannot
// represent are written as numeric character references.
func (f *HTMLFilter) Filter(r io.Reader, w io.Writer, charset string, cb BoundaryCallback) error {
	enc, name, err := lookupCharset(charset)
	if err != nil {
		return err
	}
	if cb == nil {
		cb = nopCallback{}
	}
	out := transform.NewWriter(w, encoding.HTMLEscapeUnsupported(enc.NewEncoder()))
	t := newHTMLTokenizer(out, name, cb, f.opts, false)
	err = t.run(bufio.NewReader(transform.NewReader(r, enc.NewDecoder())))
	if err == nil {
		err = t.flush()
	}
	return closeOutput(out, err)
}

// ExtractCharset implements ContentFilter. A byte-order mark wins;
// otherwise the first <meta> or XML declaration naming a charset before
// <body> does.
func (f *HTMLFilter) ExtractCharset(content []byte, fallback string) (cs string, ok bool) {
	if name, ok := charsets.SniffBOM(content); ok {
		return name, true
	}
	defer func() {
		if recover() != nil {
			cs, ok = "", false
		}
	}()
	enc, _, found := charsets.Lookup(fallback)
	if !found {
		enc, _, _ = charsets.Lookup("utf-8")
	}
	t := newHTMLTokenizer(nil, fallback, nopCallback{}, f.opts, true)
	_ = t.run(bufio.NewReader(transform.NewReader(bytes.NewReader(content), enc.NewDecoder())))
	return canonicalCharset(t.detected)
}

func canonicalCharset(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	if _, name, ok := charsets.Lookup(label); ok {
		return name, true
	}
	return label, true
}

// CSSFilter filters text/css.
type CSSFilter struct {
	opts Options
}

// NewCSSFilter returns a stylesheet filter. If opts is nil the defaults
// are used.
func NewCSSFilter(opts *Options) *CSSFilter {
	return &CSSFilter{opts: optionsOrDefault(opts)}
}

// Read implements ContentFilter.
func (f *CSSFilter) Read(content []byte, charset string, cb BoundaryCallback) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Filter(bytes.NewReader(content), &buf, charset, cb); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filter implements ContentFilter.
func (f *CSSFilter) Filter(r io.Reader, w io.Writer, charset string, cb BoundaryCallback) error {
	enc, name, err := lookupCharset(charset)
	if err != nil {
		return err
	}
	if cb == nil {
		cb = nopCallback{}
	}
	out := transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
	_, err = css.FilterStylesheet(bufio.NewReader(transform.NewReader(r, enc.NewDecoder())), out, css.Options{
		URIs:     cb,
		Elements: isElementName,
		Charset:  name,
		Logger:   f.opts.Logger,
	})
	return closeOutput(out, err)
}

// ExtractCharset implements ContentFilter. A byte-order mark wins;
// otherwise a leading @charset rule does.
func (f *CSSFilter) ExtractCharset(content []byte, fallback string) (cs string, ok bool) {
	if name, ok := charsets.SniffBOM(content); ok {
		return name, true
	}
	defer func() {
		if recover() != nil {
			cs, ok = "", false
		}
	}()
	enc, _, found := charsets.Lookup(fallback)
	if !found {
		enc, _, _ = charsets.Lookup("utf-8")
	}
	detected, _ := css.FilterStylesheet(bufio.NewReader(transform.NewReader(bytes.NewReader(content), enc.NewDecoder())),
		nil, css.Options{DetectOnly: true, Logger: f.opts.Logger})
	return canonicalCharset(detected)
}

// Sanitize filters a UTF-8 HTML string.
func Sanitize(htmlStr string, cb BoundaryCallback) (string, error) {
	return SanitizeReader(strings.NewReader(htmlStr), cb)
}

// SanitizeReader filters UTF-8 HTML read from r.
func SanitizeReader(r io.Reader, cb BoundaryCallback) (string, error) {
	var sb strings.Builder
	if err := NewHTMLFilter(nil).Filter(r, &sb, "utf-8", cb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// SanitizeStyle filters the value of a style attribute on element.
func SanitizeStyle(style, element string, cb BoundaryCallback) (string, error) {
	if cb == nil {
		cb = nopCallback{}
	}
	return css.FilterInline(style, element, css.Options{URIs: cb, Elements: isElementName})
}

// textCollector gathers text and refuses everything else.
type textCollector struct {
	nopCallback
	sb strings.Builder
}

func (c *textCollector) OnText(text, _ string) {
	c.sb.WriteString(text)
}

// StripTags returns the text content of a UTF-8 HTML string with
// entities decoded. Style and script content is not text.
func StripTags(htmlStr string) (string, error) {
	c := &textCollector{}
	if err := NewHTMLFilter(&Options{DeleteComments: true}).Filter(strings.NewReader(htmlStr), io.Discard, "utf-8", c); err != nil {
		return "", err
	}
	return c.sb.String(), nil
}
