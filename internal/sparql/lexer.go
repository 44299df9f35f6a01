package sparql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"evalgo.org/rdfendpoint/internal/graph"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName   // prefixed name; text holds "prefix:local"
	tokBlank   // _:label, text holds the label
	tokVar     // ?x or $x, text holds the name
	tokString  // text holds the unescaped value
	tokLang    // @en, text holds the tag
	tokInteger // numeric literals keep their lexical form
	tokDecimal
	tokDouble
	tokKeyword // bare word, text upper-cased; raw holds the original
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	raw  string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "<" + t.text + ">"
	case tokVar:
		return "?" + t.text
	case tokString:
		return fmt.Sprintf("%q", t.text)
	case tokKeyword:
		return t.raw
	default:
		return t.text
	}
}

// SyntaxError reports a malformed query or update.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		lx.toks = append(lx.toks, tok)
		if tok.kind == tokEOF {
			return lx.toks, nil
		}
	}
}

func (lx *lexer) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Pos: lx.pos, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpaceAndComments()
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	c := lx.src[lx.pos]
	rest := lx.src[lx.pos:]

	switch {
	case c == '<':
		if iri, n, ok := scanIRIRef(rest); ok {
			lx.pos += n
			v, err := graph.Unescape(iri)
			if err != nil {
				return token{}, lx.errorf("%v", err)
			}
			return token{kind: tokIRI, text: v, pos: start}, nil
		}
		if strings.HasPrefix(rest, "<=") {
			lx.pos += 2
			return token{kind: tokPunct, text: "<=", pos: start}, nil
		}
		lx.pos++
		return token{kind: tokPunct, text: "<", pos: start}, nil
	case c == '?' || c == '$':
		n := scanName(rest[1:], true)
		if n == 0 {
			lx.pos++
			return token{kind: tokPunct, text: "?", pos: start}, nil
		}
		lx.pos += 1 + n
		return token{kind: tokVar, text: rest[1 : 1+n], pos: start}, nil
	case c == '"' || c == '\'':
		return lx.scanString(start)
	case c == '@':
		n := 1
		for n < len(rest) && (isAlnum(rest[n]) || rest[n] == '-') {
			n++
		}
		if n == 1 {
			return token{}, lx.errorf("empty language tag")
		}
		lx.pos += n
		return token{kind: tokLang, text: rest[1:n], pos: start}, nil
	case c == '_' && strings.HasPrefix(rest, "_:"):
		n := scanLocal(rest[2:])
		if n == 0 {
			return token{}, lx.errorf("empty blank node label")
		}
		lx.pos += 2 + n
		return token{kind: tokBlank, text: rest[2 : 2+n], pos: start}, nil
	case isDigit(c) || (c == '.' && len(rest) > 1 && isDigit(rest[1])):
		return lx.scanNumber(start)
	case c == ':' || isNameStart(rest):
		return lx.scanWord(start)
	}

	for _, p := range []string{"^^", "&&", "||", "!=", ">=", "<=", "{", "}", "(", ")", "[", "]", ".", ",", ";", "*", "+", "-", "/", "!", "^", "|", "=", ">", "<"} {
		if strings.HasPrefix(rest, p) {
			lx.pos += len(p)
			return token{kind: tokPunct, text: p, pos: start}, nil
		}
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return token{}, lx.errorf("unexpected character %q", r)
}

// scanIRIRef recognizes <...> when the content is a valid IRIREF; otherwise
// the '<' is an operator.
func scanIRIRef(s string) (string, int, bool) {
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '>':
			body := s[1:i]
			if strings.Contains(body, "&&") || strings.Contains(body, "||") {
				return "", 0, false
			}
			return body, i + 1, true
		case c <= 0x20, c == '<', c == '"', c == '{', c == '}', c == '|', c == '^', c == '`':
			return "", 0, false
		}
	}
	return "", 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r)
}

func isNameRune(r rune, allowDigitsOnly bool) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) || r == 0xB7 || (allowDigitsOnly && unicode.IsDigit(r))
}

// scanName measures a variable name or prefix.
func scanName(s string, variable bool) int {
	n := 0
	for n < len(s) {
		r, w := utf8.DecodeRuneInString(s[n:])
		if variable && r == '-' {
			break
		}
		if !isNameRune(r, variable) && !(r == '.' && !variable) {
			break
		}
		n += w
	}
	if !variable {
		for n > 0 && s[n-1] == '.' {
			n--
		}
	}
	return n
}

// scanLocal measures the local part of a prefixed name, including %XX and \ escapes.
func scanLocal(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		switch {
		case c == '\\' && n+1 < len(s):
			n += 2
			continue
		case c == '%' && n+2 < len(s):
			n += 3
			continue
		case c == ':' || c == '.':
			n++
			continue
		}
		r, w := utf8.DecodeRuneInString(s[n:])
		if !isNameRune(r, true) {
			break
		}
		n += w
	}
	for n > 0 && s[n-1] == '.' {
		n--
	}
	return n
}

func unescapeLocal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (lx *lexer) scanWord(start int) (token, error) {
	rest := lx.src[lx.pos:]
	n := scanName(rest, false)
	if n < len(rest) && rest[n] == ':' {
		local := scanLocal(rest[n+1:])
		lx.pos += n + 1 + local
		text := rest[:n+1] + unescapeLocal(rest[n+1:n+1+local])
		return token{kind: tokPName, text: text, pos: start}, nil
	}
	if n == 0 {
		return token{}, lx.errorf("unexpected character %q", rest[0])
	}
	lx.pos += n
	word := rest[:n]
	return token{kind: tokKeyword, text: strings.ToUpper(word), raw: word, pos: start}, nil
}

func (lx *lexer) scanNumber(start int) (token, error) {
	rest := lx.src[lx.pos:]
	n := 0
	for n < len(rest) && isDigit(rest[n]) {
		n++
	}
	kind := tokInteger
	if n < len(rest) && rest[n] == '.' && n+1 < len(rest) && isDigit(rest[n+1]) {
		kind = tokDecimal
		n++
		for n < len(rest) && isDigit(rest[n]) {
			n++
		}
	} else if n < len(rest) && rest[n] == '.' && n+1 < len(rest) && (rest[n+1] == 'e' || rest[n+1] == 'E') {
		n++
	}
	if n < len(rest) && (rest[n] == 'e' || rest[n] == 'E') {
		m := n + 1
		if m < len(rest) && (rest[m] == '+' || rest[m] == '-') {
			m++
		}
		if m < len(rest) && isDigit(rest[m]) {
			for m < len(rest) && isDigit(rest[m]) {
				m++
			}
			n = m
			kind = tokDouble
		}
	}
	lx.pos += n
	return token{kind: kind, text: rest[:n], pos: start}, nil
}

func (lx *lexer) scanString(start int) (token, error) {
	rest := lx.src[lx.pos:]
	q := rest[:1]
	long := strings.HasPrefix(rest, q+q+q)
	delim := q
	if long {
		delim = q + q + q
	}
	i := len(delim)
	for i < len(rest) {
		c := rest[i]
		if c == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(rest[i:], delim) {
			if long {
				// a long string may end with extra quote characters before the delimiter
				for strings.HasPrefix(rest[i+1:], delim) {
					i++
				}
			}
			raw := rest[len(delim):i]
			v, err := graph.Unescape(raw)
			if err != nil {
				return token{}, lx.errorf("%v", err)
			}
			lx.pos += i + len(delim)
			return token{kind: tokString, text: v, pos: start}, nil
		}
		if !long && (c == '\n' || c == '\r') {
			return token{}, lx.errorf("newline in string literal")
		}
		i++
	}
	return token{}, lx.errorf("unterminated string literal")
}
