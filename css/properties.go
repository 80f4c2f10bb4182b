package css

import (
	"strings"
	"sync"
)

type option func(*Grammar)

func values(vs ...string) option {
	return func(g *Grammar) {
		if g.values == nil {
			g.values = make(map[string]bool, len(vs))
		}
		for _, v := range vs {
			g.values[v] = true
		}
	}
}

func types(f TypeFlags) option {
	return func(g *Grammar) { g.types |= f }
}

func exprs(es ...Expr) option {
	return func(g *Grammar) { g.exprs = append(g.exprs, es...) }
}

func elements(names ...string) option {
	return func(g *Grammar) { g.elements = sliceToSet(names) }
}

func media(names ...string) option {
	return func(g *Grammar) { g.media = sliceToSet(names) }
}

// aux builds an auxiliary grammar: value-only, referenced from other
// grammars' expressions.
func aux(name string, opts ...option) *Grammar {
	g := &Grammar{Name: name, valueOnly: true}
	for _, o := range opts {
		o(g)
	}
	return g
}

// prop builds a property grammar. Every property accepts "inherit".
func prop(name string, opts ...option) *Grammar {
	g := &Grammar{Name: name}
	values("inherit")(g)
	for _, o := range opts {
		o(g)
	}
	return g
}

func one(g *Grammar) Atom { return Atom{G: g, Min: 1, Max: 1} }

func span(g *Grammar, lo, hi int) Atom { return Atom{G: g, Min: lo, Max: hi} }

func seq(es ...Expr) Seq { return Seq(es) }

func opt(e Expr) Opt { return Opt{Item: e} }

func rep(e Expr, lo, hi int) Repeat { return Repeat{Item: e, Lo: lo, Hi: hi} }

func anyOrder(es ...Expr) AnyOrder { return AnyOrder(es) }

// sides is the 1-4 value box shorthand.
func sides(g *Grammar) Repeat { return rep(one(g), 1, 4) }

var (
	auxInteger  = aux("integer", types(TypeInteger))
	auxLength   = aux("length", types(TypeLength))
	auxColor    = aux("color", types(TypeColor))
	auxURI      = aux("uri", types(TypeURI))
	auxString   = aux("string", types(TypeString))
	auxIdent    = aux("identifier", types(TypeIdentifier))
	auxComma    = aux("comma", values(","))
	auxSlash    = aux("slash", values("/"))
	auxLengthPc = aux("length-percentage", types(TypeLength|TypePercentage))

	auxBorderWidth = aux("border-width", values("thin", "medium", "thick"), types(TypeLength))
	auxBorderStyle = aux("border-style", values("none", "hidden", "dotted", "dashed", "solid",
		"double", "groove", "ridge", "inset", "outset"))
	auxBorderColor  = aux("border-color", values("transparent"), types(TypeColor))
	auxOutlineColor = aux("outline-color", values("invert"), types(TypeColor))
	auxMargin       = aux("margin-width", values("auto"), types(TypeLength|TypePercentage))

	auxFontStyle   = aux("font-style", values("normal", "italic", "oblique"))
	auxFontVariant = aux("font-variant", values("normal", "small-caps"))
	auxFontWeight  = aux("font-weight", values("normal", "bold", "bolder", "lighter",
		"100", "200", "300", "400", "500", "600", "700", "800", "900"))
	auxFontSize = aux("font-size", values("xx-small", "x-small", "small", "medium", "large",
		"x-large", "xx-large", "larger", "smaller"), types(TypeLength|TypePercentage))
	auxLineHeight = aux("line-height", values("normal"), types(TypeReal|TypeLength|TypePercentage))
	auxFamilyName = aux("family-name", types(TypeString), exprs(rep(one(auxIdent), 1, 8)))
	auxFontFamily = aux("font-family", exprs(seq(
		span(auxFamilyName, 1, 8),
		rep(seq(one(auxComma), span(auxFamilyName, 1, 8)), 0, 32),
	)))

	auxListType     = aux("list-style-type", values(keys(listTypes)...))
	auxListPosition = aux("list-style-position", values("inside", "outside"))
	auxListImage    = aux("list-style-image", values("none"), types(TypeURI))

	auxBgColor      = aux("background-color", values("transparent"), types(TypeColor))
	auxBgImage      = aux("background-image", values("none"), types(TypeURI))
	auxBgRepeat     = aux("background-repeat", values("repeat", "repeat-x", "repeat-y", "no-repeat"))
	auxBgAttachment = aux("background-attachment", values("scroll", "fixed"))
	auxPosX         = aux("position-x", values("left", "center", "right"), types(TypeLength|TypePercentage))
	auxPosY         = aux("position-y", values("top", "center", "bottom"), types(TypeLength|TypePercentage))
	auxHKeyword     = aux("horizontal", values("left", "center", "right"))
	auxVKeyword     = aux("vertical", values("top", "center", "bottom"))
	auxBgPosition   = aux("background-position", exprs(
		seq(one(auxPosX), opt(one(auxPosY))),
		anyOrder(one(auxHKeyword), one(auxVKeyword)),
	))

	auxDecoration = []Expr{
		one(aux("underline", values("underline"))),
		one(aux("overline", values("overline"))),
		one(aux("line-through", values("line-through"))),
		one(aux("blink", values("blink"))),
	}
	auxContentItem = aux("content-item",
		values("open-quote", "close-quote", "no-open-quote", "no-close-quote"),
		types(TypeString|TypeURI|TypeCounter|TypeAttr))
	auxCursorKeyword = aux("cursor-keyword", values(cursorKeywords...))
	auxPause         = aux("pause", types(TypeTime|TypePercentage))
)

var cursorKeywords = []string{
	"auto", "crosshair", "default", "pointer", "move", "e-resize",
	"ne-resize", "nw-resize", "n-resize", "se-resize", "sw-resize",
	"s-resize", "w-resize", "text", "wait", "help", "progress",
}

var auralMedia = []string{"aural", "speech"}

var tableElements = []string{"table", "thead", "tbody", "tfoot", "tr", "td", "th", "caption", "col", "colgroup"}

// properties is the eagerly known name set. Each constructor runs at
// most once, on first lookup.
var properties = map[string]func() *Grammar{
	"color":                 func() *Grammar { return prop("color", types(TypeColor)) },
	"background-color":      func() *Grammar { return prop("background-color", values("transparent"), types(TypeColor)) },
	"background-image":      func() *Grammar { return prop("background-image", values("none"), types(TypeURI)) },
	"background-repeat":     func() *Grammar { return prop("background-repeat", values(keys(auxBgRepeat.values)...)) },
	"background-attachment": func() *Grammar { return prop("background-attachment", values("scroll", "fixed")) },
	"background-position":   func() *Grammar { return prop("background-position", exprs(span(auxBgPosition, 1, 2))) },
	"background": func() *Grammar {
		return prop("background", exprs(anyOrder(
			one(auxBgColor), one(auxBgImage), one(auxBgRepeat),
			one(auxBgAttachment), span(auxBgPosition, 1, 2),
		)))
	},

	"border-collapse": func() *Grammar {
		return prop("border-collapse", values("collapse", "separate"), elements(tableElements...))
	},
	"border-spacing": func() *Grammar {
		return prop("border-spacing", elements(tableElements...), exprs(rep(one(auxLength), 1, 2)))
	},
	"border-color": func() *Grammar { return prop("border-color", exprs(sides(auxBorderColor))) },
	"border-style": func() *Grammar { return prop("border-style", exprs(sides(auxBorderStyle))) },
	"border-width": func() *Grammar { return prop("border-width", exprs(sides(auxBorderWidth))) },
	"border":        func() *Grammar { return borderShorthand("border") },
	"border-top":    func() *Grammar { return borderShorthand("border-top") },
	"border-right":  func() *Grammar { return borderShorthand("border-right") },
	"border-bottom": func() *Grammar { return borderShorthand("border-bottom") },
	"border-left":   func() *Grammar { return borderShorthand("border-left") },

	"top":    func() *Grammar { return offset("top") },
	"right":  func() *Grammar { return offset("right") },
	"bottom": func() *Grammar { return offset("bottom") },
	"left":   func() *Grammar { return offset("left") },

	"caption-side": func() *Grammar {
		return prop("caption-side", values("top", "bottom"), elements(tableElements...))
	},
	"clear": func() *Grammar { return prop("clear", values("none", "left", "right", "both")) },
	"clip":  func() *Grammar { return prop("clip", values("auto"), types(TypeShape)) },
	"content": func() *Grammar {
		return prop("content", values("normal", "none"), exprs(rep(one(auxContentItem), 1, 16)))
	},
	"counter-increment": func() *Grammar { return counterProperty("counter-increment") },
	"counter-reset":     func() *Grammar { return counterProperty("counter-reset") },
	"cursor": func() *Grammar {
		return prop("cursor", values(cursorKeywords...), exprs(seq(
			rep(seq(one(auxURI), one(auxComma)), 0, 8),
			one(auxCursorKeyword),
		)))
	},
	"direction": func() *Grammar { return prop("direction", values("ltr", "rtl")) },
	"display": func() *Grammar {
		return prop("display", values("inline", "block", "list-item", "run-in",
			"inline-block", "table", "inline-table", "table-row-group",
			"table-header-group", "table-footer-group", "table-row",
			"table-column-group", "table-column", "table-cell",
			"table-caption", "none"))
	},
	"empty-cells": func() *Grammar {
		return prop("empty-cells", values("show", "hide"), elements(tableElements...))
	},
	"float": func() *Grammar { return prop("float", values("left", "right", "none")) },

	"font-family":  func() *Grammar { return prop("font-family", exprs(span(auxFontFamily, 1, maxTokens))) },
	"font-size":    func() *Grammar { return prop("font-size", exprs(one(auxFontSize))) },
	"font-style":   func() *Grammar { return prop("font-style", exprs(one(auxFontStyle))) },
	"font-variant": func() *Grammar { return prop("font-variant", exprs(one(auxFontVariant))) },
	"font-weight":  func() *Grammar { return prop("font-weight", exprs(one(auxFontWeight))) },
	"font": func() *Grammar {
		return prop("font",
			values("caption", "icon", "menu", "message-box", "small-caption", "status-bar"),
			exprs(seq(
				opt(anyOrder(one(auxFontStyle), one(auxFontVariant), one(auxFontWeight))),
				one(auxFontSize),
				opt(seq(one(auxSlash), one(auxLineHeight))),
				span(auxFontFamily, 1, maxTokens),
			)))
	},

	"height":     func() *Grammar { return prop("height", values("auto"), types(TypeLength|TypePercentage)) },
	"width":      func() *Grammar { return prop("width", values("auto"), types(TypeLength|TypePercentage)) },
	"min-height": func() *Grammar { return prop("min-height", types(TypeLength|TypePercentage)) },
	"min-width":  func() *Grammar { return prop("min-width", types(TypeLength|TypePercentage)) },
	"max-height": func() *Grammar { return prop("max-height", values("none"), types(TypeLength|TypePercentage)) },
	"max-width":  func() *Grammar { return prop("max-width", values("none"), types(TypeLength|TypePercentage)) },

	"letter-spacing": func() *Grammar { return prop("letter-spacing", values("normal"), types(TypeLength)) },
	"word-spacing":   func() *Grammar { return prop("word-spacing", values("normal"), types(TypeLength)) },
	"line-height":    func() *Grammar { return prop("line-height", exprs(one(auxLineHeight))) },

	"list-style-image":    func() *Grammar { return prop("list-style-image", exprs(one(auxListImage))) },
	"list-style-position": func() *Grammar { return prop("list-style-position", exprs(one(auxListPosition))) },
	"list-style-type":     func() *Grammar { return prop("list-style-type", exprs(one(auxListType))) },
	"list-style": func() *Grammar {
		return prop("list-style", exprs(anyOrder(one(auxListType), one(auxListPosition), one(auxListImage))))
	},

	"margin":        func() *Grammar { return prop("margin", exprs(sides(auxMargin))) },
	"margin-top":    func() *Grammar { return prop("margin-top", exprs(one(auxMargin))) },
	"margin-right":  func() *Grammar { return prop("margin-right", exprs(one(auxMargin))) },
	"margin-bottom": func() *Grammar { return prop("margin-bottom", exprs(one(auxMargin))) },
	"margin-left":   func() *Grammar { return prop("margin-left", exprs(one(auxMargin))) },

	"padding":        func() *Grammar { return prop("padding", exprs(sides(auxLengthPc))) },
	"padding-top":    func() *Grammar { return prop("padding-top", types(TypeLength|TypePercentage)) },
	"padding-right":  func() *Grammar { return prop("padding-right", types(TypeLength|TypePercentage)) },
	"padding-bottom": func() *Grammar { return prop("padding-bottom", types(TypeLength|TypePercentage)) },
	"padding-left":   func() *Grammar { return prop("padding-left", types(TypeLength|TypePercentage)) },

	"orphans": func() *Grammar { return prop("orphans", types(TypeInteger)) },
	"widows":  func() *Grammar { return prop("widows", types(TypeInteger)) },

	"outline":       func() *Grammar { return prop("outline", exprs(anyOrder(one(auxOutlineColor), one(auxBorderStyle), one(auxBorderWidth)))) },
	"outline-color": func() *Grammar { return prop("outline-color", exprs(one(auxOutlineColor))) },
	"outline-style": func() *Grammar { return prop("outline-style", exprs(one(auxBorderStyle))) },
	"outline-width": func() *Grammar { return prop("outline-width", exprs(one(auxBorderWidth))) },

	"overflow":          func() *Grammar { return prop("overflow", values("visible", "hidden", "scroll", "auto")) },
	"page-break-after":  func() *Grammar { return prop("page-break-after", values("auto", "always", "avoid", "left", "right")) },
	"page-break-before": func() *Grammar { return prop("page-break-before", values("auto", "always", "avoid", "left", "right")) },
	"page-break-inside": func() *Grammar { return prop("page-break-inside", values("avoid", "auto")) },
	"position":          func() *Grammar { return prop("position", values("static", "relative", "absolute", "fixed")) },
	"quotes": func() *Grammar {
		return prop("quotes", values("none"), exprs(rep(seq(one(auxString), one(auxString)), 1, 8)))
	},
	"table-layout": func() *Grammar {
		return prop("table-layout", values("auto", "fixed"), elements(tableElements...))
	},
	"text-align":      func() *Grammar { return prop("text-align", values("left", "right", "center", "justify")) },
	"text-decoration": func() *Grammar { return prop("text-decoration", values("none"), exprs(anyOrder(auxDecoration...))) },
	"text-indent":     func() *Grammar { return prop("text-indent", types(TypeLength|TypePercentage)) },
	"text-transform":  func() *Grammar { return prop("text-transform", values("capitalize", "uppercase", "lowercase", "none")) },
	"unicode-bidi":    func() *Grammar { return prop("unicode-bidi", values("normal", "embed", "bidi-override")) },
	"vertical-align": func() *Grammar {
		return prop("vertical-align", values("baseline", "sub", "super", "top", "text-top",
			"middle", "bottom", "text-bottom"), types(TypeLength|TypePercentage))
	},
	"visibility":  func() *Grammar { return prop("visibility", values("visible", "hidden", "collapse")) },
	"white-space": func() *Grammar { return prop("white-space", values("normal", "pre", "nowrap", "pre-wrap", "pre-line")) },
	"z-index":     func() *Grammar { return prop("z-index", values("auto"), types(TypeInteger)) },
	"opacity":     func() *Grammar { return prop("opacity", types(TypeReal)) },

	"volume": func() *Grammar {
		return prop("volume", media(auralMedia...), values("silent", "x-soft", "soft", "medium", "loud", "x-loud"),
			types(TypeReal|TypePercentage))
	},
	"speak":        func() *Grammar { return prop("speak", media(auralMedia...), values("normal", "none", "spell-out")) },
	"pause-before": func() *Grammar { return prop("pause-before", media(auralMedia...), exprs(one(auxPause))) },
	"pause-after":  func() *Grammar { return prop("pause-after", media(auralMedia...), exprs(one(auxPause))) },
	"pause":        func() *Grammar { return prop("pause", media(auralMedia...), exprs(rep(one(auxPause), 1, 2))) },
	"speech-rate": func() *Grammar {
		return prop("speech-rate", media(auralMedia...), values("x-slow", "slow", "medium", "fast",
			"x-fast", "faster", "slower"), types(TypeReal))
	},
	"pitch": func() *Grammar {
		return prop("pitch", media(auralMedia...), values("x-low", "low", "medium", "high", "x-high"),
			types(TypeFrequency))
	},
	"pitch-range": func() *Grammar { return prop("pitch-range", media(auralMedia...), types(TypeReal)) },
	"richness":    func() *Grammar { return prop("richness", media(auralMedia...), types(TypeReal)) },
	"stress":      func() *Grammar { return prop("stress", media(auralMedia...), types(TypeReal)) },
	"elevation": func() *Grammar {
		return prop("elevation", media(auralMedia...), values("below", "level", "above", "higher", "lower"),
			types(TypeAngle))
	},
}

func init() {
	for _, side := range []string{"top", "right", "bottom", "left"} {
		name := "border-" + side
		properties[name+"-color"] = func() *Grammar { return prop(name+"-color", exprs(one(auxBorderColor))) }
		properties[name+"-style"] = func() *Grammar { return prop(name+"-style", exprs(one(auxBorderStyle))) }
		properties[name+"-width"] = func() *Grammar { return prop(name+"-width", exprs(one(auxBorderWidth))) }
	}
}

func borderShorthand(name string) *Grammar {
	return prop(name, exprs(anyOrder(one(auxBorderWidth), one(auxBorderStyle), one(auxBorderColor))))
}

func offset(name string) *Grammar {
	return prop(name, values("auto"), types(TypeLength|TypePercentage))
}

func counterProperty(name string) *Grammar {
	return prop(name, values("none"), exprs(rep(seq(one(auxIdent), opt(one(auxInteger))), 1, 16)))
}

var (
	grammarMu    sync.Mutex
	grammarCache = map[string]*Grammar{}
)

// Lookup returns the grammar for a property name, or nil if the
// property is not allowed. Grammars are built on first use.
func Lookup(property string) *Grammar {
	name := strings.ToLower(property)
	build, ok := properties[name]
	if !ok {
		return nil
	}
	grammarMu.Lock()
	defer grammarMu.Unlock()
	if g, ok := grammarCache[name]; ok {
		return g
	}
	g := build()
	grammarCache[name] = g
	return g
}

// Known reports whether property has a registered grammar.
func Known(property string) bool {
	_, ok := properties[strings.ToLower(property)]
	return ok
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
