package graph

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/geoknoesis/rdf-go/rdf"
)

// Well-known vocabulary.
const (
	RDFNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNS = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNS  = "http://www.w3.org/2001/XMLSchema#"

	XSDString   = XSDNS + "string"
	XSDBoolean  = XSDNS + "boolean"
	XSDInteger  = XSDNS + "integer"
	XSDDecimal  = XSDNS + "decimal"
	XSDDouble   = XSDNS + "double"
	XSDFloat    = XSDNS + "float"
	XSDDateTime = XSDNS + "dateTime"
	RDFType     = RDFNS + "type"
	RDFLangStr  = RDFNS + "langString"
	RDFFirst    = RDFNS + "first"
	RDFRest     = RDFNS + "rest"
	RDFNil      = RDFNS + "nil"
)

// IRI builds an IRI term.
func IRI(v string) rdf.IRI { return rdf.IRI{Value: v} }

// Blank builds a blank node term.
func Blank(id string) rdf.BlankNode { return rdf.BlankNode{ID: id} }

// Literal builds a simple literal.
func Literal(lex string) rdf.Literal { return rdf.Literal{Lexical: lex} }

// LangLiteral builds a language-tagged literal.
func LangLiteral(lex, lang string) rdf.Literal { return rdf.Literal{Lexical: lex, Lang: lang} }

// TypedLiteral builds a literal with a datatype. xsd:string collapses to a simple literal.
func TypedLiteral(lex, datatype string) rdf.Literal {
	if datatype == XSDString {
		datatype = ""
	}
	return rdf.Literal{Lexical: lex, Datatype: rdf.IRI{Value: datatype}}
}

// Canonical normalizes a term so that equal RDF terms compare equal with ==.
func Canonical(t rdf.Term) rdf.Term {
	switch v := t.(type) {
	case rdf.Literal:
		if v.Lang != "" {
			v.Datatype = rdf.IRI{}
		} else if v.Datatype.Value == XSDString {
			v.Datatype = rdf.IRI{}
		}
		return v
	case rdf.TripleTerm:
		v.S = Canonical(v.S)
		v.O = Canonical(v.O)
		return v
	default:
		return t
	}
}

// Equal reports RDF term equality. Two nil terms are equal.
func Equal(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Canonical(a) == Canonical(b)
}

// Datatype returns the datatype IRI of a literal, including the implicit xsd:string and rdf:langString.
func Datatype(l rdf.Literal) string {
	switch {
	case l.Lang != "":
		return RDFLangStr
	case l.Datatype.Value == "":
		return XSDString
	default:
		return l.Datatype.Value
	}
}

// FormatTerm renders a term in N-Triples syntax. A nil term renders as "".
func FormatTerm(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.IRI:
		return "<" + escapeIRI(v.Value) + ">"
	case rdf.BlankNode:
		return "_:" + v.ID
	case rdf.Literal:
		v = Canonical(v).(rdf.Literal)
		s := `"` + escapeLiteral(v.Lexical) + `"`
		if v.Lang != "" {
			return s + "@" + v.Lang
		}
		if v.Datatype.Value != "" {
			return s + "^^<" + escapeIRI(v.Datatype.Value) + ">"
		}
		return s
	case rdf.TripleTerm:
		return "<< " + FormatTerm(v.S) + " " + FormatTerm(v.P) + " " + FormatTerm(v.O) + " >>"
	default:
		return t.String()
	}
}

func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func escapeIRI(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r <= 0x20, strings.ContainsRune("<>\"{}|^`\\", r):
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseTerm reads a term written by FormatTerm. The empty string yields nil.
func ParseTerm(s string) (rdf.Term, error) {
	if s == "" {
		return nil, nil
	}
	sc := &termScanner{src: s}
	t, err := sc.term()
	if err != nil {
		return nil, err
	}
	sc.skipSpace()
	if sc.pos != len(sc.src) {
		return nil, fmt.Errorf("trailing data after term %q", s)
	}
	return t, nil
}

// MustParseTerm is ParseTerm for literals in tests and tables.
func MustParseTerm(s string) rdf.Term {
	t, err := ParseTerm(s)
	if err != nil {
		panic(err)
	}
	return t
}

type termScanner struct {
	src string
	pos int
}

func (sc *termScanner) skipSpace() {
	for sc.pos < len(sc.src) && (sc.src[sc.pos] == ' ' || sc.src[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *termScanner) term() (rdf.Term, error) {
	sc.skipSpace()
	rest := sc.src[sc.pos:]
	switch {
	case strings.HasPrefix(rest, "<<"):
		sc.pos += 2
		s, err := sc.term()
		if err != nil {
			return nil, err
		}
		p, err := sc.term()
		if err != nil {
			return nil, err
		}
		o, err := sc.term()
		if err != nil {
			return nil, err
		}
		sc.skipSpace()
		if !strings.HasPrefix(sc.src[sc.pos:], ">>") {
			return nil, fmt.Errorf("unterminated triple term in %q", sc.src)
		}
		sc.pos += 2
		pi, ok := p.(rdf.IRI)
		if !ok {
			return nil, fmt.Errorf("triple term predicate must be an IRI in %q", sc.src)
		}
		return rdf.TripleTerm{S: s, P: pi, O: o}, nil
	case strings.HasPrefix(rest, "<"):
		v, err := sc.iri()
		if err != nil {
			return nil, err
		}
		return rdf.IRI{Value: v}, nil
	case strings.HasPrefix(rest, "_:"):
		end := sc.pos + 2
		for end < len(sc.src) && !strings.ContainsRune(" \t>", rune(sc.src[end])) {
			end++
		}
		id := sc.src[sc.pos+2 : end]
		sc.pos = end
		if id == "" {
			return nil, fmt.Errorf("empty blank node label in %q", sc.src)
		}
		return rdf.BlankNode{ID: id}, nil
	case strings.HasPrefix(rest, `"`):
		return sc.literal()
	default:
		return nil, fmt.Errorf("invalid term %q", sc.src)
	}
}

func (sc *termScanner) iri() (string, error) {
	end := strings.IndexByte(sc.src[sc.pos:], '>')
	if end < 0 {
		return "", fmt.Errorf("unterminated IRI in %q", sc.src)
	}
	raw := sc.src[sc.pos+1 : sc.pos+end]
	sc.pos += end + 1
	return Unescape(raw)
}

func (sc *termScanner) literal() (rdf.Term, error) {
	i := sc.pos + 1
	for ; i < len(sc.src); i++ {
		if sc.src[i] == '\\' {
			i++
			continue
		}
		if sc.src[i] == '"' {
			break
		}
	}
	if i >= len(sc.src) {
		return nil, fmt.Errorf("unterminated literal in %q", sc.src)
	}
	lex, err := Unescape(sc.src[sc.pos+1 : i])
	if err != nil {
		return nil, err
	}
	sc.pos = i + 1
	rest := sc.src[sc.pos:]
	switch {
	case strings.HasPrefix(rest, "@"):
		end := sc.pos + 1
		for end < len(sc.src) && sc.src[end] != ' ' && sc.src[end] != '\t' && sc.src[end] != '>' {
			end++
		}
		lang := sc.src[sc.pos+1 : end]
		sc.pos = end
		return LangLiteral(lex, lang), nil
	case strings.HasPrefix(rest, "^^<"):
		sc.pos += 2
		dt, err := sc.iri()
		if err != nil {
			return nil, err
		}
		return TypedLiteral(lex, dt), nil
	default:
		return Literal(lex), nil
	}
}

// Unescape decodes the N-Triples escapes \t \b \n \r \f \" \' \\ \uXXXX and \UXXXXXXXX.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(s[i])
		case 'u', 'U':
			n := 4
			if s[i] == 'U' {
				n = 8
			}
			if i+1+n > len(s) {
				return "", fmt.Errorf("short unicode escape in %q", s)
			}
			cp, err := strconv.ParseUint(s[i+1:i+1+n], 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad unicode escape in %q: %w", s, err)
			}
			if !utf8.ValidRune(rune(cp)) {
				return "", fmt.Errorf("invalid code point %X in %q", cp, s)
			}
			b.WriteRune(rune(cp))
			i += n
		default:
			return "", fmt.Errorf("invalid escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}
