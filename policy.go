package contentfilter

import (
	"mime"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/njchilds90/contentfilter/css"
	"github.com/njchilds90/contentfilter/internal/charsets"
)

var (
	languageRegexp = regexp.MustCompile(`^[A-Za-z]{1,8}(-[A-Za-z0-9]{1,8})*$`)
	mimeTypeRegexp = regexp.MustCompile(`^[a-z0-9!#$&^_.+-]+/[a-z0-9!#$&^_.+-]+$`)
)

var linkTypes = sliceToSet([]string{
	"alternate", "stylesheet", "start", "next", "prev", "previous", "contents",
	"toc", "index", "glossary", "copyright", "chapter", "section", "subsection",
	"appendix", "help", "bookmark", "icon", "shortcut", "author", "license",
	"first", "last", "up", "made",
})

var safeInputTypes = sliceToSet([]string{
	"text", "password", "checkbox", "radio", "submit", "reset", "hidden", "image", "button",
})

var metaNames = sliceToSet([]string{
	"author", "description", "keywords", "generator", "copyright", "robots",
	"date", "subject", "abstract", "rating", "viewport",
})

var knownDoctypes = func() map[string]string {
	list := []string{
		`html`,
		`HTML PUBLIC "-//IETF//DTD HTML 2.0//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.0//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.0 Transitional//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.01//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.01//EN" "http://www.w3.org/TR/html4/strict.dtd"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.01 Transitional//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.01 Transitional//EN" "http://www.w3.org/TR/html4/loose.dtd"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.01 Frameset//EN"`,
		`HTML PUBLIC "-//W3C//DTD HTML 4.01 Frameset//EN" "http://www.w3.org/TR/html4/frameset.dtd"`,
		`html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd"`,
		`html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd"`,
		`html PUBLIC "-//W3C//DTD XHTML 1.0 Frameset//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-frameset.dtd"`,
		`html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd"`,
	}
	m := make(map[string]string, len(list))
	for _, d := range list {
		m[strings.ToLower(d)] = d
	}
	return m
}()

func normalizeWords(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// sanitize applies the tag's whitelist and structural rules. A nil tag
// means the element is dropped.
func (t *htmlTokenizer) sanitize(p *tagPolicy, pt *parsedTag) (*parsedTag, error) {
	switch p.kind {
	case kindDoctype:
		return t.doctype(pt), nil
	case kindXMLDecl:
		return t.xmlDecl(pt), nil
	case kindMeta:
		return t.meta(pt), nil
	}
	if t.detect {
		return nil, nil
	}
	switch p.kind {
	case kindBase:
		return t.base(pt)
	case kindLink:
		return t.link(p, pt)
	case kindForm:
		return t.form(p, pt)
	case kindInput:
		typ, ok := pt.get("type")
		if ok && !safeInputTypes[strings.ToLower(strings.TrimSpace(typ))] {
			t.log.Debug("html: dropped input", "type", typ)
			return nil, nil
		}
	}

	override := ""
	if p.kind == kindAnchor {
		// A stylesheet relation wins over a contradicting type.
		override, _ = targetMIMEType(pt)
	}
	attrs, err := t.filterAttributes(p, pt, override)
	if err != nil {
		return nil, err
	}
	attrs = filterValues(attrs, func(a *attribute) bool {
		switch {
		case a.name == "type" && p.kind == kindAnchor:
			a.value = override
			return override != ""
		case a.name == "type" && p.kind == kindInput:
			a.value = strings.ToLower(strings.TrimSpace(a.value))
		case a.name == "type" && p.kind == kindButton:
			a.value = strings.ToLower(strings.TrimSpace(a.value))
			return a.value == "submit" || a.value == "reset" || a.value == "button"
		case a.name == "xmlns" && p.kind == kindHTML:
			return a.value == "http://www.w3.org/1999/xhtml"
		}
		return true
	})
	return &parsedTag{name: p.name, attrs: attrs, selfClosing: pt.selfClosing}, nil
}

func filterValues(attrs []attribute, keep func(*attribute) bool) []attribute {
	out := attrs[:0]
	for i := range attrs {
		a := attrs[i]
		if keep(&a) {
			out = append(out, a)
		}
	}
	return out
}

// filterAttributes keeps the whitelisted attributes of pt. Inline styles
// go through the CSS filter and URI attributes through the callback.
// Event handlers are always removed. Only the first of a repeated
// attribute counts.
func (t *htmlTokenizer) filterAttributes(p *tagPolicy, pt *parsedTag, override string) ([]attribute, error) {
	var out []attribute
	seen := make(map[string]bool, len(pt.attrs))
	for _, a := range pt.attrs {
		if seen[a.name] {
			continue
		}
		seen[a.name] = true
		switch {
		case isEventAttr(a.name):
			t.log.Debug("html: dropped event handler", "tag", p.name, "attr", a.name)
		case a.name == "lang" || a.name == "xml:lang":
			if v := strings.TrimSpace(a.value); languageRegexp.MatchString(v) {
				out = append(out, attribute{name: a.name, value: v, hasValue: true})
			}
		case a.name == "dir":
			if v := strings.ToLower(strings.TrimSpace(a.value)); v == "ltr" || v == "rtl" {
				out = append(out, attribute{name: a.name, value: v, hasValue: true})
			}
		case a.name == "style" && p.attrs["style"]:
			style, err := css.FilterInline(a.value, p.name, t.cssOptions())
			if err != nil {
				return nil, err
			}
			if style != "" {
				out = append(out, attribute{name: a.name, value: style, hasValue: true})
			}
		case p.uriAttrs[a.name]:
			if uri, ok := t.cb.ProcessURI(a.value, override); ok {
				out = append(out, attribute{name: a.name, value: uri, hasValue: true})
			} else {
				t.log.Debug("html: dropped uri", "tag", p.name, "attr", a.name)
			}
		case p.attrs[a.name]:
			out = append(out, a)
		default:
			t.log.Debug("html: dropped attribute", "tag", p.name, "attr", a.name)
		}
	}
	return out, nil
}

func hasAttribute(attrs []attribute, name string) bool {
	for _, a := range attrs {
		if a.name == name {
			return true
		}
	}
	return false
}

// targetMIMEType infers the type the target of a link or anchor will be
// treated as. A stylesheet relation in rel or rev means text/css;
// otherwise a well-formed type attribute is used. agrees is false when a
// stylesheet relation comes with a type other than text/css.
func targetMIMEType(pt *parsedTag) (override string, agrees bool) {
	rel, _ := pt.get("rel")
	rev, _ := pt.get("rev")
	typ, hasType := pt.get("type")
	typ = strings.ToLower(strings.TrimSpace(typ))

	stylesheet := false
	for _, w := range append(normalizeWords(rel), normalizeWords(rev)...) {
		stylesheet = stylesheet || w == "stylesheet"
	}
	switch {
	case stylesheet:
		return "text/css", !hasType || typ == "text/css"
	case hasType && mimeTypeRegexp.MatchString(typ):
		return typ, true
	}
	return "", true
}

func (t *htmlTokenizer) link(p *tagPolicy, pt *parsedTag) (*parsedTag, error) {
	rel, _ := pt.get("rel")
	rev, _ := pt.get("rev")
	relWords, revWords := normalizeWords(rel), normalizeWords(rev)
	for _, w := range append(append([]string(nil), relWords...), revWords...) {
		if !linkTypes[w] {
			t.log.Debug("html: dropped link", "type", w)
			return nil, nil
		}
	}
	if href, ok := pt.get("href"); !ok || strings.TrimSpace(href) == "" {
		return nil, nil
	}

	override, agrees := targetMIMEType(pt)
	if !agrees {
		typ, _ := pt.get("type")
		t.log.Debug("html: dropped link", "type", typ)
		return nil, nil
	}

	attrs, err := t.filterAttributes(p, pt, override)
	if err != nil {
		return nil, err
	}
	if !hasAttribute(attrs, "href") {
		return nil, t.reject("link-rejected", "a link was removed because its target was refused")
	}
	attrs = filterValues(attrs, func(a *attribute) bool {
		switch a.name {
		case "rel":
			a.value = strings.Join(relWords, " ")
		case "rev":
			a.value = strings.Join(revWords, " ")
		case "type":
			a.value = override
			return override != ""
		case "media":
			list, ok := css.FilterMedia(a.value)
			a.value = strings.Join(list, ", ")
			return ok
		}
		return true
	})
	return &parsedTag{name: p.name, attrs: attrs, selfClosing: pt.selfClosing}, nil
}

func (t *htmlTokenizer) form(p *tagPolicy, pt *parsedTag) (*parsedTag, error) {
	method, _ := pt.get("method")
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = "get"
	}
	switch method {
	case "get":
		if !t.cb.AllowGetForms() {
			return nil, t.reject("form-get-refused", "a form using GET was removed")
		}
	case "post":
		if !t.cb.AllowPostForms() {
			return nil, t.reject("form-post-refused", "a form using POST was removed")
		}
	default:
		return nil, t.reject("form-method", "a form with an unsupported method was removed")
	}
	action, _ := pt.get("action")
	action, ok := t.cb.ProcessForm(method, action)
	if !ok {
		return nil, t.reject("form-action-refused", "a form was removed because its action was refused")
	}

	attrs, err := t.filterAttributes(p, pt, "")
	if err != nil {
		return nil, err
	}
	attrs = append(attrs,
		attribute{name: "method", value: method, hasValue: true},
		attribute{name: "action", value: action, hasValue: true})
	if method == "post" {
		attrs = append(attrs, attribute{name: "enctype", value: "multipart/form-data", hasValue: true})
	}
	attrs = append(attrs, attribute{name: "accept-charset", value: "UTF-8", hasValue: true})
	return &parsedTag{name: p.name, attrs: attrs}, nil
}

func (t *htmlTokenizer) base(pt *parsedTag) (*parsedTag, error) {
	href, ok := pt.get("href")
	if !ok {
		return nil, nil
	}
	href, ok = t.cb.OnBaseHref(href)
	if !ok {
		return nil, t.reject("base-refused", "a base URI was removed because it was refused")
	}
	return &parsedTag{
		name:        "base",
		attrs:       []attribute{{name: "href", value: href, hasValue: true}},
		selfClosing: pt.selfClosing,
	}, nil
}

// styleTag returns the sanitised opening tag for <style>, or "" when the
// element and its content must be discarded.
func (t *htmlTokenizer) styleTag(p *tagPolicy, pt *parsedTag) string {
	if t.detect {
		return ""
	}
	out := &parsedTag{name: p.name}
	seen := make(map[string]bool)
	for _, a := range pt.attrs {
		if seen[a.name] {
			continue
		}
		seen[a.name] = true
		switch a.name {
		case "type":
			if v := strings.ToLower(strings.TrimSpace(a.value)); v != "text/css" {
				t.log.Debug("html: dropped style element", "type", v)
				return ""
			}
			out.attrs = append(out.attrs, attribute{name: "type", value: "text/css", hasValue: true})
		case "media":
			list, ok := css.FilterMedia(a.value)
			if !ok {
				t.log.Debug("html: dropped style element", "media", a.value)
				return ""
			}
			out.attrs = append(out.attrs, attribute{name: "media", value: strings.Join(list, ", "), hasValue: true})
		case "title":
			out.attrs = append(out.attrs, a)
		}
	}
	return out.String()
}

// noteCharset records the first charset the document declares.
func (t *htmlTokenizer) noteCharset(label string) {
	if label = strings.TrimSpace(label); t.detected == "" && label != "" {
		t.detected = label
	}
}

func (t *htmlTokenizer) meta(pt *parsedTag) *parsedTag {
	if cs, ok := pt.get("charset"); ok {
		t.noteCharset(cs)
		if t.detect {
			return nil
		}
		return &parsedTag{
			name:        "meta",
			attrs:       []attribute{{name: "charset", value: t.charset, hasValue: true}},
			selfClosing: pt.selfClosing,
		}
	}

	content, ok := pt.get("content")
	if !ok {
		return nil
	}
	equiv, _ := pt.get("http-equiv")
	name, _ := pt.get("name")
	var attrs []attribute
	switch strings.ToLower(strings.TrimSpace(equiv)) {
	case "content-type":
		mediaType, params, err := mime.ParseMediaType(content)
		if err != nil {
			return nil
		}
		t.noteCharset(params["charset"])
		if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
			return nil
		}
		attrs = []attribute{
			{name: "http-equiv", value: "Content-Type", hasValue: true},
			{name: "content", value: mediaType + "; charset=" + t.charset, hasValue: true},
		}
	case "content-language":
		for _, l := range strings.Split(content, ",") {
			if !languageRegexp.MatchString(strings.TrimSpace(l)) {
				return nil
			}
		}
		attrs = []attribute{
			{name: "http-equiv", value: "Content-Language", hasValue: true},
			{name: "content", value: content, hasValue: true},
		}
	case "content-style-type":
		if strings.ToLower(strings.TrimSpace(content)) != "text/css" {
			return nil
		}
		attrs = []attribute{
			{name: "http-equiv", value: "Content-Style-Type", hasValue: true},
			{name: "content", value: "text/css", hasValue: true},
		}
	case "":
		name = strings.ToLower(strings.TrimSpace(name))
		if !metaNames[name] {
			return nil
		}
		attrs = []attribute{
			{name: "name", value: name, hasValue: true},
			{name: "content", value: content, hasValue: true},
		}
	default:
		return nil
	}
	if t.detect {
		return nil
	}
	return &parsedTag{name: "meta", attrs: attrs, selfClosing: pt.selfClosing}
}

func (t *htmlTokenizer) doctype(pt *parsedTag) *parsedTag {
	if t.detect {
		return nil
	}
	d, ok := knownDoctypes[strings.ToLower(strings.Join(pt.frags, " "))]
	if !ok {
		t.log.Debug("html: dropped doctype")
		return nil
	}
	return &parsedTag{name: pt.name, verbatim: "<!DOCTYPE " + d + ">"}
}

// xmlDecl accepts <?xml version="1.0" encoding="..." standalone="..."?>
// when the encoding agrees with the charset the document is read in.
func (t *htmlTokenizer) xmlDecl(pt *parsedTag) *parsedTag {
	frags := append([]string(nil), pt.frags...)
	if n := len(frags); n > 0 {
		if frags[n-1] == "?" {
			frags = frags[:n-1]
		} else {
			frags[n-1] = strings.TrimSuffix(frags[n-1], "?")
		}
	}
	var version, enc, standalone string
	for _, a := range parseAttributes(frags) {
		switch a.name {
		case "version":
			version = a.value
		case "encoding":
			enc = strings.TrimSpace(a.value)
		case "standalone":
			standalone = a.value
		default:
			return nil
		}
	}
	if enc != "" {
		t.noteCharset(enc)
	}
	if t.detect || version != "1.0" {
		return nil
	}
	if standalone != "" && standalone != "yes" && standalone != "no" {
		return nil
	}
	if enc != "" && !charsets.Same(enc, t.charset) {
		t.log.Debug("html: dropped xml declaration", "encoding", enc)
		return nil
	}
	out := `<?xml version="1.0"`
	if enc != "" {
		out += ` encoding="` + html.EscapeString(enc) + `"`
	}
	if standalone != "" {
		out += ` standalone="` + standalone + `"`
	}
	return &parsedTag{name: pt.name, verbatim: out + "?>"}
}
