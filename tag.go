package contentfilter

import (
	"strings"

	"golang.org/x/net/html"
)

type attribute struct {
	name     string
	value    string
	hasValue bool
}

// parsedTag is one tag split into its name and attributes. Attribute
// values are entity-decoded; String re-encodes them.
type parsedTag struct {
	name        string
	attrs       []attribute
	closing     bool
	selfClosing bool

	// frags holds the raw fragments after the name, for tags whose
	// content is not attribute shaped (doctype, xml declaration).
	frags []string

	// verbatim, when set, is written instead of the rebuilt tag.
	verbatim string
}

// parseTag builds a parsedTag from the whitespace separated fragments of
// a tag body, quotes intact.
func parseTag(frags []string) (*parsedTag, bool) {
	if len(frags) == 0 {
		return nil, false
	}
	t := &parsedTag{}
	name := frags[0]
	if strings.HasPrefix(name, "/") {
		t.closing = true
		name = name[1:]
	}

	last := frags[len(frags)-1]
	switch {
	case len(frags) > 1 && last == "/":
		frags = frags[:len(frags)-1]
		t.selfClosing = true
	case len(frags) == 1 && strings.HasSuffix(name, "/"):
		name = strings.TrimSuffix(name, "/")
		t.selfClosing = true
	case len(frags) > 1 && (strings.HasSuffix(last, `"/`) || strings.HasSuffix(last, `'/`)):
		frags = append(frags[:len(frags)-1:len(frags)-1], last[:len(last)-1])
		t.selfClosing = true
	}
	if name == "" {
		return nil, false
	}
	t.name = strings.ToLower(name)
	t.frags = frags[1:]
	t.attrs = parseAttributes(t.frags)
	return t, true
}

func parseAttributes(frags []string) []attribute {
	var attrs []attribute
	lastOpen := func() bool {
		return len(attrs) > 0 && !attrs[len(attrs)-1].hasValue
	}
	setLast := func(v string) {
		attrs[len(attrs)-1].value = unquote(v)
		attrs[len(attrs)-1].hasValue = true
	}
	for i := 0; i < len(frags); i++ {
		f := frags[i]
		eq := strings.IndexByte(f, '=')
		switch {
		case eq == 0:
			// name = value, with the '=' detached from the name.
			v := f[1:]
			if v == "" && i+1 < len(frags) {
				i++
				v = frags[i]
			}
			if lastOpen() {
				setLast(v)
			}
		case eq > 0 && f[0] != '"' && f[0] != '\'':
			v := f[eq+1:]
			if v == "" && i+1 < len(frags) {
				i++
				v = frags[i]
			}
			attrs = append(attrs, attribute{name: strings.ToLower(f[:eq]), value: unquote(v), hasValue: true})
		default:
			attrs = append(attrs, attribute{name: strings.ToLower(f)})
		}
	}
	return attrs
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	} else if len(v) > 0 && (v[0] == '"' || v[0] == '\'') {
		v = v[1:]
	}
	return html.UnescapeString(v)
}

func (t *parsedTag) get(name string) (string, bool) {
	for _, a := range t.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

// String renders the tag with every attribute value quoted and escaped.
func (t *parsedTag) String() string {
	if t.verbatim != "" {
		return t.verbatim
	}
	var sb strings.Builder
	sb.WriteByte('<')
	if t.closing {
		sb.WriteByte('/')
	}
	sb.WriteString(t.name)
	for _, a := range t.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.name)
		sb.WriteString(`="`)
		v := a.value
		if !a.hasValue {
			v = a.name
		}
		sb.WriteString(html.EscapeString(v))
		sb.WriteByte('"')
	}
	if t.selfClosing {
		sb.WriteString(" /")
	}
	sb.WriteByte('>')
	return sb.String()
}
