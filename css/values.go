package css

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dimensionRegexp = regexp.MustCompile(`^([+-]?(?:[0-9]+|[0-9]*\.[0-9]+))([a-zA-Z]+|%)?$`)
	hashColorRegexp = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcRegexp      = regexp.MustCompile(`^([a-zA-Z]+)\(([^()]*)\)$`)
	intRegexp       = regexp.MustCompile(`^[+-]?[0-9]+$`)
)

var (
	lengthUnits    = sliceToSet([]string{"em", "ex", "px", "in", "cm", "mm", "pt", "pc", "ch", "rem", "vw", "vh", "vmin", "vmax"})
	angleUnits     = sliceToSet([]string{"deg", "grad", "rad", "turn"})
	timeUnits      = sliceToSet([]string{"s", "ms"})
	frequencyUnits = sliceToSet([]string{"hz", "khz"})
)

func splitDimension(s string) (num, unit string, ok bool) {
	m := dimensionRegexp.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func isInteger(s string) bool {
	return intRegexp.MatchString(s)
}

func isZero(num string) bool {
	f, err := strconv.ParseFloat(num, 64)
	return err == nil && f == 0
}

func isColorKeyword(s string) bool {
	s = strings.ToLower(s)
	return namedColors[s] || systemColors[s] || s == "transparent" || s == "currentcolor"
}

// isColorValue accepts #rgb forms and rgb()/rgba()/hsl()/hsla().
func isColorValue(s string) bool {
	if hashColorRegexp.MatchString(s) {
		return true
	}
	m := funcRegexp.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	args := splitArgs(m[2])
	switch strings.ToLower(m[1]) {
	case "rgb":
		return len(args) == 3 && rgbArgs(args)
	case "rgba":
		return len(args) == 4 && rgbArgs(args[:3]) && isAlpha(args[3])
	case "hsl":
		return len(args) == 3 && hslArgs(args)
	case "hsla":
		return len(args) == 4 && hslArgs(args[:3]) && isAlpha(args[3])
	}
	return false
}

func splitArgs(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = trimSpace(parts[i])
	}
	return parts
}

func rgbArgs(args []string) bool {
	pct := strings.HasSuffix(args[0], "%")
	for _, a := range args {
		num, unit, ok := splitDimension(a)
		if !ok {
			return false
		}
		if pct {
			if unit != "%" {
				return false
			}
			continue
		}
		if unit != "" || !isInteger(num) {
			return false
		}
		v, err := strconv.Atoi(strings.TrimPrefix(num, "+"))
		if err != nil || v < 0 || v > 255 {
			return false
		}
	}
	return true
}

func hslArgs(args []string) bool {
	if _, unit, ok := splitDimension(args[0]); !ok || unit != "" && !angleUnits[strings.ToLower(unit)] {
		return false
	}
	for _, a := range args[1:] {
		if _, unit, ok := splitDimension(a); !ok || unit != "%" {
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	num, unit, ok := splitDimension(s)
	if !ok || unit != "" {
		return false
	}
	f, err := strconv.ParseFloat(num, 64)
	return err == nil && f >= 0 && f <= 1
}

// isShape accepts rect(top, right, bottom, left) with lengths or auto,
// separated by commas or whitespace.
func isShape(s string) bool {
	m := funcRegexp.FindStringSubmatch(s)
	if m == nil || !strings.EqualFold(m[1], "rect") {
		return false
	}
	var args []string
	if strings.Contains(m[2], ",") {
		args = splitArgs(m[2])
	} else {
		args = strings.FieldsFunc(m[2], isSpace)
	}
	if len(args) != 4 {
		return false
	}
	for _, a := range args {
		if strings.EqualFold(a, "auto") {
			continue
		}
		num, unit, ok := splitDimension(a)
		if !ok {
			return false
		}
		if unit == "" && !isZero(num) || unit != "" && !lengthUnits[strings.ToLower(unit)] {
			return false
		}
	}
	return true
}

var listTypes = sliceToSet([]string{
	"disc", "circle", "square", "decimal", "decimal-leading-zero",
	"lower-roman", "upper-roman", "lower-greek", "lower-latin",
	"upper-latin", "armenian", "georgian", "lower-alpha", "upper-alpha",
	"none",
})

func validListType(s string) bool {
	return listTypes[strings.ToLower(s)]
}

var systemColors = sliceToSet([]string{
	"activeborder", "activecaption", "appworkspace", "background",
	"buttonface", "buttonhighlight", "buttonshadow", "buttontext",
	"captiontext", "graytext", "highlight", "highlighttext",
	"inactiveborder", "inactivecaption", "inactivecaptiontext",
	"infobackground", "infotext", "menu", "menutext", "scrollbar",
	"threeddarkshadow", "threedface", "threedhighlight",
	"threedlightshadow", "threedshadow", "window", "windowframe",
	"windowtext",
})

var namedColors = sliceToSet([]string{
	"aliceblue", "antiquewhite", "aqua", "aquamarine", "azure", "beige",
	"bisque", "black", "blanchedalmond", "blue", "blueviolet", "brown",
	"burlywood", "cadetblue", "chartreuse", "chocolate", "coral",
	"cornflowerblue", "cornsilk", "crimson", "cyan", "darkblue",
	"darkcyan", "darkgoldenrod", "darkgray", "darkgreen", "darkgrey",
	"darkkhaki", "darkmagenta", "darkolivegreen", "darkorange",
	"darkorchid", "darkred", "darksalmon", "darkseagreen",
	"darkslateblue", "darkslategray", "darkslategrey", "darkturquoise",
	"darkviolet", "deeppink", "deepskyblue", "dimgray", "dimgrey",
	"dodgerblue", "firebrick", "floralwhite", "forestgreen", "fuchsia",
	"gainsboro", "ghostwhite", "gold", "goldenrod", "gray", "green",
	"greenyellow", "grey", "honeydew", "hotpink", "indianred", "indigo",
	"ivory", "khaki", "lavender", "lavenderblush", "lawngreen",
	"lemonchiffon", "lightblue", "lightcoral", "lightcyan",
	"lightgoldenrodyellow", "lightgray", "lightgreen", "lightgrey",
	"lightpink", "lightsalmon", "lightseagreen", "lightskyblue",
	"lightslategray", "lightslategrey", "lightsteelblue", "lightyellow",
	"lime", "limegreen", "linen", "magenta", "maroon",
	"mediumaquamarine", "mediumblue", "mediumorchid", "mediumpurple",
	"mediumseagreen", "mediumslateblue", "mediumspringgreen",
	"mediumturquoise", "mediumvioletred", "midnightblue", "mintcream",
	"mistyrose", "moccasin", "navajowhite", "navy", "oldlace", "olive",
	"olivedrab", "orange", "orangered", "orchid", "palegoldenrod",
	"palegreen", "paleturquoise", "palevioletred", "papayawhip",
	"peachpuff", "peru", "pink", "plum", "powderblue", "purple", "red",
	"rosybrown", "royalblue", "saddlebrown", "salmon", "sandybrown",
	"seagreen", "seashell", "sienna", "silver", "skyblue", "slateblue",
	"slategray", "slategrey", "snow", "springgreen", "steelblue", "tan",
	"teal", "thistle", "tomato", "turquoise", "violet", "wheat", "white",
	"whitesmoke", "yellow", "yellowgreen",
})

func sliceToSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[strings.ToLower(v)] = true
	}
	return m
}
