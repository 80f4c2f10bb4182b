package contentfilter

import (
	"github.com/njchilds90/contentfilter/css"
)

// BoundaryCallback is the caller-supplied policy authority for URIs and
// forms. It is the only way the filter reaches outside the document. One
// callback serves one filter invocation; the filter keeps no reference
// to it afterwards.
type BoundaryCallback interface {
	// ProcessURI returns the URI to emit in place of uri, or false to
	// drop the URI and whatever it was attached to. overrideMIMEType is
	// the content type the target will be treated as, or "".
	css.URIProcessor

	// AllowGetForms reports whether forms with method GET may be kept.
	AllowGetForms() bool

	// AllowPostForms reports whether forms with method POST may be kept.
	AllowPostForms() bool

	// ProcessForm returns the action to emit for a form, or false to
	// drop the form.
	ProcessForm(method, action string) (string, bool)

	// OnBaseHref returns the href to emit for <base>, or false to drop it.
	OnBaseHref(href string) (string, bool)

	// OnText observes text content. containingTag is the innermost
	// open element, or "".
	OnText(text, containingTag string)
}

// nopCallback rejects everything. Used while sniffing charsets.
type nopCallback struct{}

func (nopCallback) ProcessURI(string, string) (string, bool) { return "", false }
func (nopCallback) AllowGetForms() bool { return false }
func (nopCallback) AllowPostForms() bool { return false }
func (nopCallback) ProcessForm(string, string) (string, bool) { return "", false }
func (nopCallback) OnBaseHref(string) (string, bool) { return "", false }
func (nopCallback) OnText(string, string) {}
