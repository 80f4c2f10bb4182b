// Package contentfilter sanitises untrusted HTML and CSS on the way to a
// browser, for a proxy that must not let content reach outside itself.
//
// # Overview
//
// contentfilter reads a document as a stream of characters and writes
// the safe subset of it. It never builds a tree. HTML is tokenised by a
// small state machine; each tag is checked against a whitelist as soon
// as its closing '>' is read and is written, rewritten or dropped.
// Stylesheets, <style> contents and style attributes go through the css
// package, which checks every declaration against a value grammar.
//
// # Boundary callback
//
// Every URI, form action and base href is handed to a [BoundaryCallback]
// supplied by the caller. The callback decides what is reachable: it may
// rewrite a URI, or refuse it, in which case the URI and whatever it was
// attached to are removed. The filter itself knows nothing about URIs.
//
// # Failure
//
// Anything the filter does not recognise is dropped. Only a few
// conditions fail the whole document, with an [Error]:
//   - a charset declaration that contradicts the charset being read
//   - an unbalanced or badly escaped CSS value
//   - a <style> or <script> opened inside another
//   - in strict mode, a link, form or base URI the callback refused
//
// # Concurrency
//
// Filters hold no per-document state and may be shared between
// goroutines. A BoundaryCallback serves one call and is not retained.
//
// # Example
//
//	f := contentfilter.NewHTMLFilter(nil)
//	clean, err := f.Read(page, "utf-8", cb)
package contentfilter
