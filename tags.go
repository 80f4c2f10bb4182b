package contentfilter

import (
	"strings"
)

// tagKind selects the structural rules applied to a tag on top of its
// attribute whitelist.
type tagKind int

const (
	kindPlain tagKind = iota
	kindHTML
	kindAnchor
	kindLink
	kindBase
	kindForm
	kindInput
	kindButton
	kindMeta
	kindDoctype
	kindXMLDecl
	kindStyle
	kindScript
)

// tagPolicy is the whitelist for one tag name. Built once, read-only.
type tagPolicy struct {
	name     string
	kind     tagKind
	attrs    map[string]bool
	uriAttrs map[string]bool
}

var (
	coreAttrs = []string{"id", "class", "title", "style"}

	cellAttrs = []string{"align", "valign", "bgcolor", "colspan", "rowspan", "width",
		"height", "nowrap", "abbr", "axis", "headers", "scope", "char", "charoff"}
)

// tagDefs lists every allowed tag. Tags absent from this table are
// dropped.
var tagDefs = []struct {
	names []string
	kind  tagKind
	attrs []string
	uris  []string
	core  bool
}{
	{names: []string{"!doctype"}, kind: kindDoctype},
	{names: []string{"?xml"}, kind: kindXMLDecl},
	{names: []string{"html"}, kind: kindHTML, attrs: []string{"xmlns", "version"}},
	{names: []string{"head"}, attrs: []string{"profile"}},
	{names: []string{"title"}},
	{names: []string{"meta"}, kind: kindMeta, attrs: []string{"name", "http-equiv", "content", "charset"}},
	{names: []string{"base"}, kind: kindBase, attrs: []string{"href"}},
	{names: []string{"link"}, kind: kindLink, core: true,
		attrs: []string{"rel", "rev", "type", "media", "hreflang", "charset"}, uris: []string{"href"}},
	{names: []string{"style"}, kind: kindStyle, attrs: []string{"type", "media", "title"}},
	{names: []string{"script"}, kind: kindScript},
	{names: []string{"noscript"}, core: true},
	{names: []string{"body"}, core: true,
		attrs: []string{"bgcolor", "text", "link", "vlink", "alink"}, uris: []string{"background"}},

	{names: []string{"div", "p", "h1", "h2", "h3", "h4", "h5", "h6", "center"}, core: true, attrs: []string{"align"}},
	{names: []string{"span", "b", "i", "u", "s", "strike", "em", "strong", "code", "kbd",
		"samp", "var", "tt", "big", "small", "sub", "sup", "cite", "abbr", "acronym",
		"address", "dfn", "dl", "dt", "dd", "thead", "tbody", "tfoot", "caption",
		"fieldset", "noframes"}, core: true},
	{names: []string{"bdo"}, core: true},
	{names: []string{"br"}, core: true, attrs: []string{"clear"}},
	{names: []string{"hr"}, core: true, attrs: []string{"align", "noshade", "size", "width"}},
	{names: []string{"pre"}, core: true, attrs: []string{"width"}},
	{names: []string{"blockquote", "q"}, core: true, uris: []string{"cite"}},
	{names: []string{"ins", "del"}, core: true, attrs: []string{"datetime"}, uris: []string{"cite"}},
	{names: []string{"font"}, core: true, attrs: []string{"size", "color", "face"}},
	{names: []string{"ul"}, core: true, attrs: []string{"type", "compact"}},
	{names: []string{"ol"}, core: true, attrs: []string{"type", "start", "compact"}},
	{names: []string{"li"}, core: true, attrs: []string{"type", "value"}},
	{names: []string{"a"}, kind: kindAnchor, core: true,
		attrs: []string{"name", "rel", "rev", "type", "hreflang", "charset", "accesskey",
			"tabindex", "shape", "coords"},
		uris: []string{"href"}},
	{names: []string{"img"}, core: true,
		attrs: []string{"alt", "width", "height", "border", "align", "hspace", "vspace", "ismap"},
		uris:  []string{"src", "longdesc", "usemap"}},
	{names: []string{"map"}, core: true, attrs: []string{"name"}},
	{names: []string{"area"}, core: true,
		attrs: []string{"shape", "coords", "alt", "nohref", "accesskey", "tabindex"}, uris: []string{"href"}},
	{names: []string{"table"}, core: true,
		attrs: []string{"border", "cellpadding", "cellspacing", "width", "summary", "align",
			"bgcolor", "frame", "rules"},
		uris: []string{"background"}},
	{names: []string{"tr"}, core: true, attrs: []string{"align", "valign", "bgcolor", "char", "charoff"}},
	{names: []string{"td", "th"}, core: true, attrs: cellAttrs, uris: []string{"background"}},
	{names: []string{"col", "colgroup"}, core: true,
		attrs: []string{"span", "width", "align", "valign", "char", "charoff"}},
	{names: []string{"form"}, kind: kindForm, core: true, attrs: []string{"name"}},
	{names: []string{"input"}, kind: kindInput, core: true,
		attrs: []string{"type", "name", "value", "size", "maxlength", "checked", "disabled",
			"readonly", "alt", "accesskey", "tabindex"},
		uris: []string{"src"}},
	{names: []string{"button"}, kind: kindButton, core: true,
		attrs: []string{"type", "name", "value", "disabled", "accesskey", "tabindex"}},
	{names: []string{"textarea"}, core: true,
		attrs: []string{"name", "rows", "cols", "disabled", "readonly", "accesskey", "tabindex"}},
	{names: []string{"select"}, core: true, attrs: []string{"name", "size", "multiple", "disabled", "tabindex"}},
	{names: []string{"option"}, core: true, attrs: []string{"value", "selected", "disabled", "label"}},
	{names: []string{"optgroup"}, core: true, attrs: []string{"label", "disabled"}},
	{names: []string{"label"}, core: true, attrs: []string{"for", "accesskey"}},
	{names: []string{"legend"}, core: true, attrs: []string{"align", "accesskey"}},
}

var tagTable = buildTagTable()

func buildTagTable() map[string]*tagPolicy {
	table := make(map[string]*tagPolicy)
	for _, d := range tagDefs {
		attrs := d.attrs
		if d.core {
			attrs = append(append([]string(nil), d.attrs...), coreAttrs...)
		}
		for _, name := range d.names {
			table[name] = &tagPolicy{
				name:     name,
				kind:     d.kind,
				attrs:    sliceToSet(attrs),
				uriAttrs: sliceToSet(d.uris),
			}
		}
	}
	return table
}

func lookupTag(name string) (*tagPolicy, bool) {
	p, ok := tagTable[name]
	return p, ok
}

// isElementName reports whether name is an allowed element, for CSS
// selectors.
func isElementName(name string) bool {
	p, ok := tagTable[strings.ToLower(name)]
	return ok && p.kind != kindDoctype && p.kind != kindXMLDecl
}

// isEventAttr reports whether name is a scripting event handler. Every
// on* name counts, known to HTML or not.
func isEventAttr(name string) bool {
	return strings.HasPrefix(name, "on")
}

func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

func sliceToSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[strings.ToLower(v)] = true
	}
	return m
}
