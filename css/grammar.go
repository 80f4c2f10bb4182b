package css

import (
	"strings"
)

// TypeFlags selects the primitive value types a grammar accepts for a
// single token.
type TypeFlags uint16

// Primitive value types.
const (
	TypeInteger TypeFlags = 1 << iota
	TypeReal
	TypePercentage
	TypeLength
	TypeAngle
	TypeColor
	TypeURI
	TypeShape
	TypeString
	TypeIdentifier
	TypeTime
	TypeFrequency
	TypeCounter
	TypeAttr
)

// maxSteps bounds the work of the backtracking search for one
// declaration. A search that runs out of steps rejects the value.
const maxSteps = 20000

// URIProcessor decides what happens to a URI found in CSS. It returns
// the URI to emit, or false to drop the URI and the construct carrying
// it. An empty overrideMIMEType means no override.
type URIProcessor interface {
	ProcessURI(uri, overrideMIMEType string) (string, bool)
}

// Context is the environment a declaration is verified in.
type Context struct {
	// Elements are the lower-case subject element names of the selector
	// (or the tag carrying an inline style). Empty means unknown.
	Elements []string

	// Media are the enclosing media types. Empty means "all".
	Media []string

	// URIs vets url() values. Nil rejects every URI.
	URIs URIProcessor

	// Page restricts declarations to those allowed inside @page.
	Page bool
}

// Grammar describes the values a CSS property accepts. Grammars are
// immutable once built.
type Grammar struct {
	Name string

	elements  map[string]bool
	values    map[string]bool
	media     map[string]bool
	types     TypeFlags
	exprs     []Expr
	valueOnly bool
}

// Expr is a node of a grammar expression: Atom, Seq, Opt, Repeat or
// AnyOrder.
type Expr interface {
	expr()
}

// Atom delegates between Min and Max tokens (longest first) to an
// auxiliary grammar.
type Atom struct {
	G        *Grammar
	Min, Max int
}

// Seq matches its items one after the other.
type Seq []Expr

// Opt matches Item or nothing.
type Opt struct {
	Item Expr
}

// Repeat matches Item between Lo and Hi times.
type Repeat struct {
	Item   Expr
	Lo, Hi int
}

// AnyOrder matches one or more of its items, each at most once, in any
// order (CSS "||").
type AnyOrder []Expr

func (Atom) expr()     {}
func (Seq) expr()      {}
func (Opt) expr()      {}
func (Repeat) expr()   {}
func (AnyOrder) expr() {}

func (g *Grammar) inContext(ctx *Context) bool {
	if g.elements != nil {
		for _, e := range ctx.Elements {
			if !g.elements[e] {
				return false
			}
		}
	}
	if g.media != nil && len(ctx.Media) > 0 {
		for _, m := range ctx.Media {
			if m == "all" || g.media[m] {
				return true
			}
		}
		return false
	}
	return true
}

type matcher struct {
	ctx   *Context
	steps int
}

func (m *matcher) tick() bool {
	m.steps++
	return m.steps <= maxSteps
}

func (m *matcher) accepts(g *Grammar, toks []Token) bool {
	if !m.tick() || len(toks) == 0 {
		return false
	}
	if !g.valueOnly && !g.inContext(m.ctx) {
		return false
	}
	if len(toks) == 1 && m.single(g, toks[0]) {
		return true
	}
	for _, e := range g.exprs {
		if m.whole(e, toks) {
			return true
		}
	}
	return false
}

func (m *matcher) whole(e Expr, toks []Token) bool {
	return m.match(e, toks, func(rest []Token) bool { return len(rest) == 0 })
}

// match tries every way e can consume a prefix of toks and calls k with
// the remainder, stopping at the first k that succeeds.
func (m *matcher) match(e Expr, toks []Token, k func([]Token) bool) bool {
	if !m.tick() {
		return false
	}
	switch e := e.(type) {
	case Atom:
		hi := e.Max
		if hi > len(toks) {
			hi = len(toks)
		}
		for n := hi; n >= e.Min && n > 0; n-- {
			if m.accepts(e.G, toks[:n]) && k(toks[n:]) {
				return true
			}
		}
		return false
	case Seq:
		return m.seq(e, toks, k)
	case Opt:
		return m.match(e.Item, toks, k) || k(toks)
	case Repeat:
		return m.repeat(e, 0, toks, k)
	case AnyOrder:
		return m.anyOrder(e, 0, toks, k)
	}
	return false
}

func (m *matcher) seq(s Seq, toks []Token, k func([]Token) bool) bool {
	if len(s) == 0 {
		return k(toks)
	}
	return m.match(s[0], toks, func(rest []Token) bool {
		return m.seq(s[1:], rest, k)
	})
}

func (m *matcher) repeat(r Repeat, count int, toks []Token, k func([]Token) bool) bool {
	if count < r.Hi && len(toks) > 0 {
		more := m.match(r.Item, toks, func(rest []Token) bool {
			return len(rest) < len(toks) && m.repeat(r, count+1, rest, k)
		})
		if more {
			return true
		}
	}
	return count >= r.Lo && k(toks)
}

func (m *matcher) anyOrder(items AnyOrder, used uint64, toks []Token, k func([]Token) bool) bool {
	for i, item := range items {
		if used&(1<<uint(i)) != 0 {
			continue
		}
		for n := len(toks); n >= 1; n-- {
			if !m.whole(item, toks[:n]) {
				continue
			}
			rest := toks[n:]
			if k(rest) || m.anyOrder(items, used|1<<uint(i), rest, k) {
				return true
			}
		}
	}
	return false
}

func (m *matcher) single(g *Grammar, t Token) bool {
	if g.values != nil {
		switch t.(type) {
		case *Ident, *Simple:
			if g.values[strings.ToLower(t.Text())] {
				return true
			}
		}
	}
	if g.types == 0 {
		return false
	}
	switch t := t.(type) {
	case *Simple:
		return m.simple(g.types, t.Original)
	case *Ident:
		return g.types&TypeIdentifier != 0 || g.types&TypeColor != 0 && isColorKeyword(t.Decoded)
	case *String:
		return g.types&TypeString != 0
	case *URL:
		return g.types&TypeURI != 0 && m.uri(t)
	case *Counter:
		return g.types&TypeCounter != 0 && (t.ListType == nil || validListType(t.ListType.Decoded))
	case *Attr:
		return g.types&TypeAttr != 0
	}
	return false
}

func (m *matcher) simple(f TypeFlags, s string) bool {
	num, unit, ok := splitDimension(s)
	if ok {
		unit = strings.ToLower(unit)
		switch {
		case unit == "":
			if f&TypeInteger != 0 && isInteger(num) || f&TypeReal != 0 {
				return true
			}
			return f&(TypeLength|TypeAngle) != 0 && isZero(num)
		case unit == "%":
			return f&TypePercentage != 0
		case lengthUnits[unit]:
			return f&TypeLength != 0
		case angleUnits[unit]:
			return f&TypeAngle != 0
		case timeUnits[unit]:
			return f&TypeTime != 0
		case frequencyUnits[unit]:
			return f&TypeFrequency != 0
		}
		return false
	}
	if f&TypeColor != 0 && isColorValue(s) {
		return true
	}
	return f&TypeShape != 0 && isShape(s)
}

func (m *matcher) uri(u *URL) bool {
	if !u.checked {
		u.checked = true
		if m.ctx.URIs != nil {
			if res, ok := m.ctx.URIs.ProcessURI(u.Value.Decoded, ""); ok {
				u.Value = *NewString(res)
				u.accepted = true
			}
		}
	}
	return u.accepted
}

// Accepts reports whether toks form a valid value for g in ctx. URL
// tokens are rewritten in place with the URIProcessor's result.
func (g *Grammar) Accepts(toks []Token, ctx *Context) bool {
	if ctx == nil {
		ctx = &Context{}
	}
	m := &matcher{ctx: ctx}
	return m.accepts(g, toks)
}

// VerifyDeclaration validates value for property and returns the
// re-encoded value. ok is false when the declaration must be dropped;
// err is non-nil only for errors that invalidate the whole document.
func VerifyDeclaration(property, value string, ctx *Context) (string, bool, error) {
	g := Lookup(property)
	if g == nil {
		return "", false, nil
	}
	if ctx == nil {
		ctx = &Context{}
	}
	if ctx.Page && !strings.HasPrefix(g.Name, "margin") {
		return "", false, nil
	}
	toks, err := Lex(value)
	if err != nil {
		if err == ErrUnbalanced || err == ErrBadEscape {
			return "", false, err
		}
		return "", false, nil
	}
	toks, important := SplitImportant(toks)
	if len(toks) == 0 || !g.Accepts(toks, ctx) {
		return "", false, nil
	}
	out := Join(toks)
	if important {
		out += " !important"
	}
	return out, true, nil
}
