package css

import (
	"strings"
)

var mediaTypes = sliceToSet([]string{
	"all", "aural", "braille", "embossed", "handheld", "print",
	"projection", "screen", "speech", "tty", "tv",
})

// FilterMedia parses a comma separated media list and keeps only the
// recognised media types. ok is false when none remain.
func FilterMedia(list string) ([]string, bool) {
	var out []string
	for _, m := range strings.Split(list, ",") {
		m = strings.ToLower(trimSpace(m))
		if mediaTypes[m] {
			out = append(out, m)
		}
	}
	return out, len(out) > 0
}

var pseudoClasses = sliceToSet([]string{
	"link", "hover", "active", "focus", "first-child",
	"first-line", "first-letter", "before", "after",
})

// ElementFilter reports whether an element name may appear in a
// selector.
type ElementFilter func(name string) bool

// ValidateSelectors validates a comma separated selector group. It
// returns the normalised group and the subject element names. Any
// invalid selector invalidates the whole group.
func ValidateSelectors(group string, known ElementFilter) (string, []string, bool) {
	parts, ok := splitTopLevel(group, ',')
	if !ok {
		return "", nil, false
	}
	out := make([]string, 0, len(parts))
	var subjects []string
	for _, p := range parts {
		sel, subject, ok := validateSelector(trimSpace(p), known)
		if !ok {
			return "", nil, false
		}
		out = append(out, sel)
		if subject != "" && subject != "*" {
			subjects = append(subjects, subject)
		}
	}
	return strings.Join(out, ", "), subjects, true
}

// splitTopLevel splits s on sep outside brackets and quotes.
func splitTopLevel(s string, sep byte) ([]string, bool) {
	var parts []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
			if depth < 0 {
				return nil, false
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if quote != 0 || depth != 0 {
		return nil, false
	}
	return append(parts, s[start:]), true
}

// combinatorAt finds the first top-level child/sibling combinator, or
// failing that the first top-level whitespace run.
func combinatorAt(s string) (int, int, byte) {
	var quote byte
	depth := 0
	space := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth > 0:
		case c == '>' || c == '+':
			return i, i + 1, c
		case isSpace(rune(c)) && space < 0:
			space = i
		}
	}
	if space < 0 {
		return -1, -1, 0
	}
	end := space
	for end < len(s) && isSpace(rune(s[end])) {
		end++
	}
	return space, end, ' '
}

func validateSelector(s string, known ElementFilter) (string, string, bool) {
	if s == "" {
		return "", "", false
	}
	start, end, comb := combinatorAt(s)
	if comb == 0 {
		return validateSimpleSelector(s, known)
	}
	left, right := trimSpace(s[:start]), trimSpace(s[end:])
	if left == "" || right == "" {
		return "", "", false
	}
	l, _, ok := validateSelector(left, known)
	if !ok {
		return "", "", false
	}
	r, subject, ok := validateSelector(right, known)
	if !ok {
		return "", "", false
	}
	if comb == ' ' {
		return l + " " + r, subject, true
	}
	return l + " " + string(comb) + " " + r, subject, true
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSelectorNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

// scanName returns the length of the name at the start of s.
func scanName(s string) int {
	n := 0
	for n < len(s) && isSelectorNameChar(s[n]) {
		n++
	}
	return n
}

// validateSimpleSelector accepts: element name, then at most one class
// or id, then at most one pseudo-class, then attribute selectors.
func validateSimpleSelector(s string, known ElementFilter) (string, string, bool) {
	var sb strings.Builder
	elem := ""
	i := 0
	if s[0] == '*' {
		elem = "*"
		i = 1
	} else if isLetter(s[0]) {
		i = scanName(s)
		elem = strings.ToLower(s[:i])
		if known != nil && !known(elem) {
			return "", "", false
		}
	}
	sb.WriteString(elem)

	if i < len(s) && (s[i] == '.' || s[i] == '#') {
		n := scanName(s[i+1:])
		if n == 0 || s[i] == '.' && !isLetter(s[i+1]) && s[i+1] != '_' && s[i+1] != '-' {
			return "", "", false
		}
		sb.WriteString(s[i : i+1+n])
		i += 1 + n
	}

	if i < len(s) && s[i] == ':' {
		n := scanName(s[i+1:])
		name := strings.ToLower(s[i+1 : i+1+n])
		i += 1 + n
		switch {
		case pseudoClasses[name]:
			sb.WriteString(":" + name)
		case name == "lang" && i < len(s) && s[i] == '(':
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				return "", "", false
			}
			lang := trimSpace(s[i+1 : i+end])
			if lang == "" || scanName(lang) != len(lang) {
				return "", "", false
			}
			sb.WriteString(":lang(" + lang + ")")
			i += end + 1
		default:
			return "", "", false
		}
	}

	for i < len(s) && s[i] == '[' {
		end := closingBracket(s, i)
		if end < 0 {
			return "", "", false
		}
		attr, ok := validateAttributeSelector(s[i+1 : end])
		if !ok {
			return "", "", false
		}
		sb.WriteString(attr)
		i = end + 1
	}

	if i != len(s) || sb.Len() == 0 {
		return "", "", false
	}
	return sb.String(), elem, true
}

func closingBracket(s string, open int) int {
	var quote byte
	for i := open + 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ']':
			return i
		}
	}
	return -1
}

// validateAttributeSelector checks the inside of [...]. The name must
// start with a letter and continue with letters, digits, '_' or '-';
// the value must be an identifier or a quoted string.
func validateAttributeSelector(inner string) (string, bool) {
	inner = trimSpace(inner)
	if inner == "" || !isLetter(inner[0]) {
		return "", false
	}
	n := 1
	for n < len(inner) && isSelectorNameChar(inner[n]) {
		n++
	}
	name := strings.ToLower(inner[:n])
	rest := trimSpace(inner[n:])
	if rest == "" {
		return "[" + name + "]", true
	}
	var op string
	switch {
	case strings.HasPrefix(rest, "~="), strings.HasPrefix(rest, "|="):
		op = rest[:2]
	case rest[0] == '=':
		op = "="
	default:
		return "", false
	}
	rhs := trimSpace(rest[len(op):])
	if rhs == "" {
		return "", false
	}
	var value string
	if rhs[0] == '"' || rhs[0] == '\'' {
		str, err := lexString(rhs)
		if err != nil {
			return "", false
		}
		value = str.Encode()
	} else {
		if !looksLikeIdent(rhs) {
			return "", false
		}
		id, err := lexIdent(rhs)
		if err != nil {
			return "", false
		}
		value = id.Encode()
	}
	return "[" + name + op + value + "]", true
}
