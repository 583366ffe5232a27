package expression

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokOther tokenKind = iota
	tokSpace
	tokIdent
	tokNumber
	tokString
	tokComment
)

type token struct {
	kind tokenKind
	text string
}

// scan splits src into coarse tokens. It only distinguishes what the
// source rewrites below need: identifiers, numbers, string literals,
// comments, whitespace and single-rune punctuation.
func scan(src string) []token {
	var toks []token
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])
		start := i
		kind := tokOther
		switch {
		case unicode.IsSpace(r):
			kind = tokSpace
			i += size
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
		case r == '"' || r == '\'' || r == '`':
			kind = tokString
			i = skipString(src, i)
		case r == '/' && strings.HasPrefix(src[i:], "/*"):
			kind = tokComment
			if end := strings.Index(src[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(src)
			}
		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(rune(src[i+1])) && !afterIdent(toks)):
			kind = tokNumber
			i = scanNumber(src, i)
		case isIdentStart(r):
			kind = tokIdent
			i += size
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if !isIdentStart(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
		default:
			i += size
		}
		toks = append(toks, token{kind: kind, text: src[start:i]})
	}
	return toks
}

func afterIdent(toks []token) bool {
	return len(toks) > 0 && (toks[len(toks)-1].kind == tokIdent || toks[len(toks)-1].text == ")" || toks[len(toks)-1].text == "]")
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func skipString(src string, i int) int {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			if quote != '`' {
				i += 2
				continue
			}
		case quote:
			return i + 1
		}
		i++
	}
	return len(src)
}

func scanNumber(src string, i int) int {
	for i < len(src) && (isDigit(rune(src[i])) || src[i] == '_') {
		i++
	}
	if i < len(src) && src[i] == '.' && (i+1 >= len(src) || src[i+1] != '.') {
		i++
		for i < len(src) && isDigit(rune(src[i])) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(rune(src[j])) {
			i = j
			for i < len(src) && isDigit(rune(src[i])) {
				i++
			}
		}
	}
	return i
}

// rewriteSource turns quantity literals ("10 mm", "2kg*m/s^2") into qty()
// calls and cell ranges ("A1:B3") into range identifiers so the result can
// be handed to the expr parser.
func rewriteSource(src string) string {
	toks := scan(src)
	var b strings.Builder
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case tokNumber:
			if frac, next, ok := scanFraction(toks, i); ok {
				b.WriteString(frac)
				i = next - 1
				continue
			}
			if unit, next := scanUnitSuffix(toks, i+1); unit != "" {
				b.WriteString(`qty(` + strings.ReplaceAll(t.text, "_", "") + `, "` + unit + `")`)
				i = next - 1
				continue
			}
		case tokIdent:
			if i+2 < len(toks) && toks[i+1].text == ":" && toks[i+2].kind == tokIdent &&
				IsAddress(t.text) && IsAddress(toks[i+2].text) {
				b.WriteString(rangeIdent(t.text, toks[i+2].text))
				i += 2
				continue
			}
		}
		b.WriteString(t.text)
	}
	return b.String()
}

// scanFraction turns "1/2 in" into a single quantity literal, so the unit
// applies to the whole fraction.
func scanFraction(toks []token, i int) (string, int, bool) {
	if i+2 >= len(toks) || toks[i+1].text != "/" || toks[i+2].kind != tokNumber {
		return "", 0, false
	}
	if prev := previousSignificant(toks, i); prev == "/" || prev == "*" || prev == "^" {
		return "", 0, false
	}
	unit, next := scanUnitSuffix(toks, i+3)
	if unit == "" {
		return "", 0, false
	}
	num, err1 := strconv.ParseFloat(strings.ReplaceAll(toks[i].text, "_", ""), 64)
	den, err2 := strconv.ParseFloat(strings.ReplaceAll(toks[i+2].text, "_", ""), 64)
	if err1 != nil || err2 != nil || den == 0 {
		return "", 0, false
	}
	return `qty(` + strconv.FormatFloat(num/den, 'g', -1, 64) + `, "` + unit + `")`, next, true
}

func previousSignificant(toks []token, i int) string {
	for j := i - 1; j >= 0; j-- {
		if toks[j].kind != tokSpace && toks[j].kind != tokComment {
			return toks[j].text
		}
	}
	return ""
}

// scanUnitSuffix reads a unit expression following a number, allowing one
// space between number and unit and none inside the unit expression.
func scanUnitSuffix(toks []token, i int) (string, int) {
	if i < len(toks) && toks[i].kind == tokSpace && toks[i].text == " " {
		i++
	}
	if i >= len(toks) || toks[i].kind != tokIdent || !IsUnitName(toks[i].text) {
		return "", i
	}
	var unit strings.Builder
	unit.WriteString(toks[i].text)
	i++
	for i < len(toks) {
		switch {
		case toks[i].text == "^" && i+1 < len(toks) && toks[i+1].kind == tokNumber:
			unit.WriteString("^" + toks[i+1].text)
			i += 2
		case toks[i].text == "^" && i+2 < len(toks) && toks[i+1].text == "-" && toks[i+2].kind == tokNumber:
			unit.WriteString("^-" + toks[i+2].text)
			i += 3
		case (toks[i].text == "*" || toks[i].text == "/") && i+1 < len(toks) &&
			toks[i+1].kind == tokIdent && IsUnitName(toks[i+1].text):
			unit.WriteString(toks[i].text + toks[i+1].text)
			i += 2
		default:
			return unit.String(), i
		}
	}
	return unit.String(), i
}

const rangeSep = "__"

var (
	addressPattern = regexp.MustCompile(`^\$?[A-Z]{1,3}\$?[0-9]+$`)
	rangePattern   = regexp.MustCompile(`^(\$?[A-Z]{1,3}\$?[0-9]+)` + rangeSep + `(\$?[A-Z]{1,3}\$?[0-9]+)$`)
)

// IsAddress reports whether name looks like a cell address such as "B3" or
// "$B$3".
func IsAddress(name string) bool {
	return addressPattern.MatchString(name)
}

func rangeIdent(from, to string) string {
	return from + rangeSep + to
}

// referenceName maps a program identifier back to the reference it stands
// for: range identifiers become "A1:B3", anything else is returned as is.
func referenceName(ident string) string {
	if m := rangePattern.FindStringSubmatch(ident); m != nil {
		return m[1] + ":" + m[2]
	}
	return ident
}

// splitTopLevel splits s at sep where it is not nested inside brackets,
// string literals or comments.
func splitTopLevel(s string, sep string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '"' || c == '\'' || c == '`':
			i = skipString(s, i)
			continue
		case strings.HasPrefix(s[i:], "/*"):
			if end := strings.Index(s[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(s)
			}
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[last:i])
			i += len(sep)
			last = i
			continue
		}
		i++
	}
	return append(parts, s[last:])
}

// stripParens removes redundant parentheses enclosing all of s.
func stripParens(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		inner := s[1 : len(s)-1]
		if !balanced(inner) {
			break
		}
		s = strings.TrimSpace(inner)
	}
	return s
}

func balanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '"', '\'', '`':
			i = skipString(s, i)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return false
			}
		}
		i++
	}
	return depth == 0
}

// leadingComment separates a leading /*...*/ comment from the rest of text.
func leadingComment(text string) (comment, rest string) {
	t := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(t, "/*") {
		return "", text
	}
	end := strings.Index(t[2:], "*/")
	if end < 0 {
		return "", text
	}
	return t[2 : end+2], t[end+4:]
}

// renameTokens rewrites cell address identifiers in src. Member names
// after a dot and callee names are left alone.
func renameTokens(src string, rename func(string) (string, bool)) string {
	toks := scan(src)
	var b strings.Builder
	prev := ""
	for i, t := range toks {
		if t.kind == tokIdent && prev != "." && IsAddress(t.text) &&
			!(i+1 < len(toks) && toks[i+1].text == "(") {
			if n, ok := rename(t.text); ok {
				b.WriteString(n)
				prev = n
				continue
			}
		}
		b.WriteString(t.text)
		if t.kind != tokSpace {
			prev = t.text
		}
	}
	return b.String()
}
