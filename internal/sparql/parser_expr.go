package sparql

import (
	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// builtinArity maps built-in function names to their argument count; -1 is variadic.
var builtinArity = map[string]int{
	"STR": 1, "LANG": 1, "LANGMATCHES": 2, "DATATYPE": 1, "BOUND": 1,
	"IRI": 1, "URI": 1, "BNODE": -1, "RAND": 0, "ABS": 1, "CEIL": 1,
	"FLOOR": 1, "ROUND": 1, "CONCAT": -1, "SUBSTR": -1, "STRLEN": 1,
	"REPLACE": -1, "UCASE": 1, "LCASE": 1, "ENCODE_FOR_URI": 1,
	"CONTAINS": 2, "STRSTARTS": 2, "STRENDS": 2, "STRBEFORE": 2,
	"STRAFTER": 2, "YEAR": 1, "MONTH": 1, "DAY": 1, "HOURS": 1,
	"MINUTES": 1, "SECONDS": 1, "TIMEZONE": 1, "TZ": 1, "NOW": 0,
	"UUID": 0, "STRUUID": 0, "MD5": 1, "SHA1": 1, "SHA256": 1,
	"SHA384": 1, "SHA512": 1, "COALESCE": -1, "IF": 3, "STRLANG": 2,
	"STRDT": 2, "SAMETERM": 2, "ISIRI": 1, "ISURI": 1, "ISBLANK": 1,
	"ISLITERAL": 1, "ISNUMERIC": 1, "REGEX": -1, "LANGDIR": 1,
	"ISTRIPLE": 1, "TRIPLE": 3, "SUBJECT": 1, "PREDICATE": 1, "OBJECT": 1,
}

var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true,
	"AVG": true, "SAMPLE": true, "GROUP_CONCAT": true,
}

func (p *parser) expression() (Expr, error) {
	l, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("||") {
		r, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		l = ExprBinary{Op: "||", L: l, R: r}
	}
	return l, nil
}

func (p *parser) andExpr() (Expr, error) {
	l, err := p.relational()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("&&") {
		r, err := p.relational()
		if err != nil {
			return nil, err
		}
		l = ExprBinary{Op: "&&", L: l, R: r}
	}
	return l, nil
}

func (p *parser) relational() (Expr, error) {
	l, err := p.additive()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "!=", "<=", ">=", "<", ">"} {
		if p.acceptPunct(op) {
			r, err := p.additive()
			if err != nil {
				return nil, err
			}
			return ExprBinary{Op: op, L: l, R: r}, nil
		}
	}
	not := false
	if p.atKeyword("NOT") && p.peekAt(1).kind == tokKeyword && p.peekAt(1).text == "IN" {
		p.pos++
		not = true
	}
	if p.acceptKeyword("IN") {
		list, err := p.argList()
		if err != nil {
			return nil, err
		}
		return ExprIn{X: l, List: list, Not: not}, nil
	}
	return l, nil
}

func (p *parser) additive() (Expr, error) {
	l, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.atPunct("+"), p.atPunct("-"):
			op = p.next().text
		default:
			return l, nil
		}
		r, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		l = ExprBinary{Op: op, L: l, R: r}
	}
}

func (p *parser) multiplicative() (Expr, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") {
		op := p.next().text
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = ExprBinary{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *parser) unary() (Expr, error) {
	for _, op := range []string{"!", "-", "+"} {
		if p.acceptPunct(op) {
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			if op == "-" {
				if t, ok := x.(ExprTerm); ok {
					if lit, ok := t.Term.(rdf.Literal); ok && isNumericDatatype(lit.Datatype.Value) && lit.Lexical != "" && lit.Lexical[0] != '-' {
						lit.Lexical = "-" + lit.Lexical
						return ExprTerm{Term: lit}, nil
					}
				}
			}
			return ExprUnary{Op: op, X: x}, nil
		}
	}
	return p.primary()
}

func (p *parser) argList() ([]Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []Expr
	if p.acceptPunct(")") {
		return args, nil
	}
	for {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.acceptPunct(")") {
			return args, nil
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokPunct:
		if t.text == "(" {
			p.pos++
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			return e, p.expectPunct(")")
		}
	case tokVar:
		p.pos++
		return ExprVar{Name: t.text}, nil
	case tokIRI, tokPName:
		iri, err := p.iri()
		if err != nil {
			return nil, err
		}
		if p.atPunct("(") {
			args, err := p.argList()
			if err != nil {
				return nil, err
			}
			return ExprCall{Name: iri.Value, Args: args}, nil
		}
		return ExprTerm{Term: iri}, nil
	case tokString:
		lit, err := p.literal()
		return ExprTerm{Term: lit}, err
	case tokInteger, tokDecimal, tokDouble:
		p.pos++
		return ExprTerm{Term: numericLiteral(t, "")}, nil
	case tokKeyword:
		return p.keywordExpr()
	}
	return nil, p.errorf("expected expression, found %s", t)
}

func (p *parser) keywordExpr() (Expr, error) {
	t := p.next()
	switch t.text {
	case "TRUE", "FALSE":
		return ExprTerm{Term: graph.TypedLiteral(lowerASCII(t.text), graph.XSDBoolean)}, nil
	case "EXISTS":
		g, err := p.groupGraphPattern()
		if err != nil {
			return nil, err
		}
		return ExprExists{Group: g}, nil
	case "NOT":
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		g, err := p.groupGraphPattern()
		if err != nil {
			return nil, err
		}
		return ExprExists{Group: g, Not: true}, nil
	}
	if aggregateNames[t.text] {
		return p.aggregate(t.text)
	}
	arity, ok := builtinArity[t.text]
	if !ok {
		return nil, &SyntaxError{Pos: t.pos, Msg: "unknown function " + t.raw}
	}
	if t.text == "BOUND" {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		v := p.next()
		if v.kind != tokVar {
			return nil, p.errorf("BOUND needs a variable")
		}
		return ExprCall{Name: "BOUND", Args: []Expr{ExprVar{Name: v.text}}}, p.expectPunct(")")
	}
	args, err := p.argList()
	if err != nil {
		return nil, err
	}
	if arity >= 0 && len(args) != arity {
		return nil, &SyntaxError{Pos: t.pos, Msg: t.raw + " takes a different number of arguments"}
	}
	switch t.text {
	case "SUBSTR", "REGEX":
		if len(args) < 2 || len(args) > 3 {
			return nil, &SyntaxError{Pos: t.pos, Msg: t.raw + " takes 2 or 3 arguments"}
		}
	case "REPLACE":
		if len(args) < 3 || len(args) > 4 {
			return nil, &SyntaxError{Pos: t.pos, Msg: "REPLACE takes 3 or 4 arguments"}
		}
	case "BNODE":
		if len(args) > 1 {
			return nil, &SyntaxError{Pos: t.pos, Msg: "BNODE takes at most one argument"}
		}
	}
	return ExprCall{Name: t.text, Args: args}, nil
}

func (p *parser) aggregate(name string) (Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	agg := &ExprAggregate{Name: name, Distinct: p.acceptKeyword("DISTINCT")}
	if name == "COUNT" && p.acceptPunct("*") {
		agg.Arg = nil
	} else {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		agg.Arg = e
	}
	if name == "GROUP_CONCAT" {
		agg.Separator = " "
		if p.acceptPunct(";") {
			if err := p.expectKeyword("SEPARATOR"); err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			s := p.next()
			if s.kind != tokString {
				return nil, p.errorf("SEPARATOR needs a string")
			}
			agg.Separator = s.text
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	p.aggregates = true
	return agg, nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
