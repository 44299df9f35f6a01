package sparql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// blankVarPrefix marks variables that stand for blank nodes in a pattern. They
// never appear in results.
const blankVarPrefix = "_:"

type parser struct {
	toks     []token
	pos      int
	prefixes map[string]string
	base     string
	anon     int
	// blankTerms makes blank nodes constants (templates and DATA blocks) instead of variables.
	blankTerms bool
	noPaths    bool
	noVars     bool
	aggregates bool
}

// ParseQuery parses a SPARQL 1.1 query.
func ParseQuery(src string) (*Query, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	if err := p.prologue(); err != nil {
		return nil, err
	}
	q, err := p.query()
	if err != nil {
		return nil, err
	}
	if !p.at(tokEOF) {
		return nil, p.errorf("unexpected %s after query", p.peek())
	}
	return q, nil
}

// ParseUpdate parses a SPARQL 1.1 update request.
func ParseUpdate(src string) (*Update, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	u := &Update{}
	for {
		if err := p.prologue(); err != nil {
			return nil, err
		}
		if p.at(tokEOF) {
			break
		}
		op, err := p.updateOp()
		if err != nil {
			return nil, err
		}
		u.Ops = append(u.Ops, op)
		if !p.acceptPunct(";") {
			break
		}
	}
	if !p.at(tokEOF) {
		return nil, p.errorf("unexpected %s in update", p.peek())
	}
	return u, nil
}

func newParser(src string) (*parser, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks, prefixes: map[string]string{}}, nil
}

func (p *parser) peek() token       { return p.toks[p.pos] }
func (p *parser) peekAt(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind) bool { return p.peek().kind == kind }

func (p *parser) atPunct(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) atKeyword(words ...string) bool {
	t := p.peek()
	if t.kind != tokKeyword {
		return false
	}
	for _, w := range words {
		if t.text == w {
			return true
		}
	}
	return false
}

func (p *parser) acceptPunct(text string) bool {
	if p.atPunct(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptKeyword(word string) bool {
	if p.atKeyword(word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(text string) error {
	if !p.acceptPunct(text) {
		return p.errorf("expected %q, found %s", text, p.peek())
	}
	return nil
}

func (p *parser) expectKeyword(word string) error {
	if !p.acceptKeyword(word) {
		return p.errorf("expected %s, found %s", word, p.peek())
	}
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) prologue() error {
	for {
		switch {
		case p.acceptKeyword("BASE"):
			t := p.next()
			if t.kind != tokIRI {
				return p.errorf("BASE needs an IRI")
			}
			p.base = p.resolve(t.text)
		case p.acceptKeyword("PREFIX"):
			t := p.next()
			if t.kind != tokPName || !strings.HasSuffix(t.text, ":") {
				return p.errorf("PREFIX needs a name ending in ':'")
			}
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorf("PREFIX %s needs an IRI", t.text)
			}
			p.prefixes[strings.TrimSuffix(t.text, ":")] = p.resolve(iri.text)
		default:
			return nil
		}
	}
}

func (p *parser) resolve(iri string) string {
	if p.base == "" || strings.Contains(iri, ":") {
		return iri
	}
	base, err := url.Parse(p.base)
	if err != nil {
		return iri
	}
	ref, err := url.Parse(iri)
	if err != nil {
		return iri
	}
	return base.ResolveReference(ref).String()
}

// iri consumes an IRIREF or prefixed name.
func (p *parser) iri() (rdf.IRI, error) {
	t := p.peek()
	switch t.kind {
	case tokIRI:
		p.pos++
		return graph.IRI(p.resolve(t.text)), nil
	case tokPName:
		p.pos++
		i := strings.IndexByte(t.text, ':')
		ns, ok := p.prefixes[t.text[:i]]
		if !ok {
			return rdf.IRI{}, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("undefined prefix %q", t.text[:i])}
		}
		return graph.IRI(ns + t.text[i+1:]), nil
	}
	return rdf.IRI{}, p.errorf("expected IRI, found %s", t)
}

func (p *parser) atIRI() bool {
	return p.at(tokIRI) || p.at(tokPName)
}

func (p *parser) query() (*Query, error) {
	q := &Query{Limit: -1}
	var err error
	switch {
	case p.acceptKeyword("SELECT"):
		q.Form = FormSelect
		err = p.selectClause(q)
	case p.acceptKeyword("ASK"):
		q.Form = FormAsk
	case p.acceptKeyword("CONSTRUCT"):
		q.Form = FormConstruct
		if p.atPunct("{") {
			q.Template, err = p.template()
		}
	case p.acceptKeyword("DESCRIBE"):
		q.Form = FormDescribe
		err = p.describeClause(q)
	default:
		return nil, p.errorf("expected SELECT, ASK, CONSTRUCT or DESCRIBE, found %s", p.peek())
	}
	if err != nil {
		return nil, err
	}
	if err := p.datasetClauses(q); err != nil {
		return nil, err
	}

	if q.Form == FormConstruct && q.Template == nil {
		// CONSTRUCT WHERE { triples }: the pattern doubles as the template
		if err := p.expectKeyword("WHERE"); err != nil {
			return nil, err
		}
		p.noPaths = true
		g, err := p.groupGraphPattern()
		p.noPaths = false
		if err != nil {
			return nil, err
		}
		q.Where = g
		for _, el := range g.Elements {
			bgp, ok := el.(*BGP)
			if !ok {
				return nil, p.errorf("CONSTRUCT WHERE allows only triple patterns")
			}
			q.Template = append(q.Template, bgp.Triples...)
		}
	} else if q.Form == FormDescribe && !p.atKeyword("WHERE") && !p.atPunct("{") {
		q.Where = &Group{}
	} else {
		p.acceptKeyword("WHERE")
		g, err := p.groupGraphPattern()
		if err != nil {
			return nil, err
		}
		q.Where = g
	}

	if err := p.solutionModifiers(q); err != nil {
		return nil, err
	}
	if p.acceptKeyword("VALUES") {
		v, err := p.dataBlock()
		if err != nil {
			return nil, err
		}
		q.Values = v
	}
	q.aggregates = q.aggregates || p.aggregates || len(q.GroupBy) > 0
	return q, nil
}

func (p *parser) selectClause(q *Query) error {
	if p.acceptKeyword("DISTINCT") {
		q.Distinct = true
	} else if p.acceptKeyword("REDUCED") {
		q.Reduced = true
	}
	if p.acceptPunct("*") {
		q.Star = true
		return nil
	}
	for {
		switch {
		case p.at(tokVar):
			q.Projection = append(q.Projection, Projection{Var: p.next().text})
		case p.atPunct("("):
			p.pos++
			e, err := p.expression()
			if err != nil {
				return err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return err
			}
			v := p.next()
			if v.kind != tokVar {
				return p.errorf("expected variable after AS")
			}
			if err := p.expectPunct(")"); err != nil {
				return err
			}
			q.Projection = append(q.Projection, Projection{Var: v.text, Expr: e})
		default:
			if len(q.Projection) == 0 {
				return p.errorf("SELECT needs * or at least one variable")
			}
			q.aggregates = p.aggregates
			return nil
		}
	}
}

func (p *parser) describeClause(q *Query) error {
	if p.acceptPunct("*") {
		q.Star = true
		return nil
	}
	for {
		switch {
		case p.at(tokVar):
			q.Describe = append(q.Describe, varNode(p.next().text))
		case p.atIRI():
			iri, err := p.iri()
			if err != nil {
				return err
			}
			q.Describe = append(q.Describe, termNode(iri))
		default:
			if len(q.Describe) == 0 {
				return p.errorf("DESCRIBE needs * or at least one resource")
			}
			return nil
		}
	}
}

func (p *parser) datasetClauses(q *Query) error {
	for p.acceptKeyword("FROM") {
		named := p.acceptKeyword("NAMED")
		iri, err := p.iri()
		if err != nil {
			return err
		}
		if named {
			q.FromNamed = append(q.FromNamed, iri)
		} else {
			q.From = append(q.From, iri)
		}
	}
	return nil
}

func (p *parser) solutionModifiers(q *Query) error {
	if p.acceptKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			key, ok, err := p.groupCondition()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			q.GroupBy = append(q.GroupBy, key)
		}
		if len(q.GroupBy) == 0 {
			return p.errorf("GROUP BY needs at least one condition")
		}
	}
	if p.acceptKeyword("HAVING") {
		for p.atPunct("(") || p.at(tokKeyword) || p.atIRI() {
			if p.atKeyword("ORDER", "LIMIT", "OFFSET", "VALUES") {
				break
			}
			e, err := p.constraint()
			if err != nil {
				return err
			}
			q.Having = append(q.Having, e)
		}
		if len(q.Having) == 0 {
			return p.errorf("HAVING needs a condition")
		}
	}
	if p.acceptKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
	orderKeys:
		for {
			var key OrderKey
			switch {
			case p.atKeyword("ASC", "DESC"):
				key.Desc = p.next().text == "DESC"
				if !p.atPunct("(") {
					return p.errorf("expected ( after ASC/DESC")
				}
				e, err := p.primary()
				if err != nil {
					return err
				}
				key.Expr = e
			case p.at(tokVar):
				key.Expr = ExprVar{Name: p.next().text}
			case p.atPunct("(") || (p.at(tokKeyword) && !p.atKeyword("LIMIT", "OFFSET", "VALUES")) || p.atIRI():
				e, err := p.constraint()
				if err != nil {
					return err
				}
				key.Expr = e
			default:
				if len(q.OrderBy) == 0 {
					return p.errorf("ORDER BY needs at least one condition")
				}
				break orderKeys
			}
			q.OrderBy = append(q.OrderBy, key)
		}
	}
	for i := 0; i < 2; i++ {
		switch {
		case p.acceptKeyword("LIMIT"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			q.Limit = n
		case p.acceptKeyword("OFFSET"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			q.Offset = n
		}
	}
	return nil
}

func (p *parser) integer() (int, error) {
	t := p.next()
	if t.kind != tokInteger {
		return 0, p.errorf("expected integer, found %s", t)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, p.errorf("bad integer %s", t.text)
	}
	return n, nil
}

func (p *parser) groupCondition() (GroupKey, bool, error) {
	if p.atKeyword("HAVING", "ORDER", "LIMIT", "OFFSET", "VALUES") {
		return GroupKey{}, false, nil
	}
	switch {
	case p.at(tokVar):
		return GroupKey{Expr: ExprVar{Name: p.next().text}}, true, nil
	case p.atPunct("("):
		p.pos++
		e, err := p.expression()
		if err != nil {
			return GroupKey{}, false, err
		}
		key := GroupKey{Expr: e}
		if p.acceptKeyword("AS") {
			v := p.next()
			if v.kind != tokVar {
				return GroupKey{}, false, p.errorf("expected variable after AS")
			}
			key.Var = v.text
		}
		if err := p.expectPunct(")"); err != nil {
			return GroupKey{}, false, err
		}
		return key, true, nil
	case p.atIRI() || (p.at(tokKeyword) && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "("):
		e, err := p.primary()
		if err != nil {
			return GroupKey{}, false, err
		}
		return GroupKey{Expr: e}, true, nil
	}
	return GroupKey{}, false, nil
}

// constraint is a bracketted expression, a built-in call or a function call.
func (p *parser) constraint() (Expr, error) {
	if p.atPunct("(") {
		p.pos++
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		return e, p.expectPunct(")")
	}
	return p.primary()
}

func (p *parser) groupGraphPattern() (*Group, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	if p.atKeyword("SELECT") {
		sub, err := p.subSelect()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return &Group{Elements: []Pattern{&SubSelect{Query: sub}}}, nil
	}
	g := &Group{}
	for {
		switch {
		case p.acceptPunct("}"):
			return g, nil
		case p.at(tokEOF):
			return nil, p.errorf("unterminated group pattern")
		case p.acceptPunct("."):
		case p.acceptKeyword("FILTER"):
			e, err := p.constraint()
			if err != nil {
				return nil, err
			}
			g.Filters = append(g.Filters, e)
		case p.acceptKeyword("OPTIONAL"):
			sub, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Optional{Group: sub})
		case p.acceptKeyword("MINUS"):
			sub, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Minus{Group: sub})
		case p.acceptKeyword("GRAPH"):
			name, err := p.varOrIRI()
			if err != nil {
				return nil, err
			}
			sub, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &GraphPattern{Name: name, Group: sub})
		case p.acceptKeyword("BIND"):
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			v := p.next()
			if v.kind != tokVar {
				return nil, p.errorf("expected variable after AS")
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Bind{Expr: e, Var: v.text})
		case p.acceptKeyword("VALUES"):
			v, err := p.dataBlock()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, v)
		case p.atKeyword("SERVICE"):
			return nil, p.errorf("SERVICE is not supported")
		case p.atPunct("{"):
			first, err := p.groupGraphPattern()
			if err != nil {
				return nil, err
			}
			alts := []*Group{first}
			for p.acceptKeyword("UNION") {
				next, err := p.groupGraphPattern()
				if err != nil {
					return nil, err
				}
				alts = append(alts, next)
			}
			if len(alts) == 1 {
				g.Elements = append(g.Elements, &SubGroup{Group: first})
			} else {
				g.Elements = append(g.Elements, &Union{Alternatives: alts})
			}
		default:
			triples, err := p.triplesSameSubject()
			if err != nil {
				return nil, err
			}
			if n := len(g.Elements); n > 0 {
				if bgp, ok := g.Elements[n-1].(*BGP); ok {
					bgp.Triples = append(bgp.Triples, triples...)
					continue
				}
			}
			g.Elements = append(g.Elements, &BGP{Triples: triples})
		}
	}
}

func (p *parser) subSelect() (*Query, error) {
	saved := p.aggregates
	p.aggregates = false
	defer func() { p.aggregates = saved }()

	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	q := &Query{Form: FormSelect, Limit: -1}
	if err := p.selectClause(q); err != nil {
		return nil, err
	}
	p.acceptKeyword("WHERE")
	g, err := p.groupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = g
	if err := p.solutionModifiers(q); err != nil {
		return nil, err
	}
	if p.acceptKeyword("VALUES") {
		v, err := p.dataBlock()
		if err != nil {
			return nil, err
		}
		q.Values = v
	}
	q.aggregates = q.aggregates || p.aggregates || len(q.GroupBy) > 0
	return q, nil
}

func (p *parser) dataBlock() (*Values, error) {
	v := &Values{}
	single := false
	switch {
	case p.at(tokVar):
		v.Vars = []string{p.next().text}
		single = true
	case p.acceptPunct("("):
		for p.at(tokVar) {
			v.Vars = append(v.Vars, p.next().text)
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("VALUES needs variables")
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	for !p.acceptPunct("}") {
		if single {
			t, err := p.dataValue()
			if err != nil {
				return nil, err
			}
			v.Rows = append(v.Rows, []rdf.Term{t})
			continue
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		row := make([]rdf.Term, 0, len(v.Vars))
		for !p.acceptPunct(")") {
			t, err := p.dataValue()
			if err != nil {
				return nil, err
			}
			row = append(row, t)
		}
		if len(row) != len(v.Vars) {
			return nil, p.errorf("VALUES row has %d values for %d variables", len(row), len(v.Vars))
		}
		v.Rows = append(v.Rows, row)
	}
	return v, nil
}

func (p *parser) dataValue() (rdf.Term, error) {
	if p.acceptKeyword("UNDEF") {
		return nil, nil
	}
	n, err := p.term()
	if err != nil {
		return nil, err
	}
	if n.IsVar() {
		return nil, p.errorf("variables are not allowed in VALUES")
	}
	return n.Term, nil
}

func (p *parser) varOrIRI() (Node, error) {
	if p.at(tokVar) {
		return varNode(p.next().text), nil
	}
	iri, err := p.iri()
	if err != nil {
		return Node{}, err
	}
	return termNode(iri), nil
}

// template parses { triples } of CONSTRUCT.
func (p *parser) template() ([]TriplePattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	p.blankTerms, p.noPaths = true, true
	defer func() { p.blankTerms, p.noPaths = false, false }()
	var out []TriplePattern
	for !p.acceptPunct("}") {
		if p.acceptPunct(".") {
			continue
		}
		if p.at(tokEOF) {
			return nil, p.errorf("unterminated template")
		}
		triples, err := p.triplesSameSubject()
		if err != nil {
			return nil, err
		}
		out = append(out, triples...)
	}
	return out, nil
}

func (p *parser) freshBlank() Node {
	p.anon++
	label := fmt.Sprintf("anon%d", p.anon)
	if p.blankTerms {
		return termNode(graph.Blank(label))
	}
	return varNode(blankVarPrefix + label)
}

func (p *parser) triplesSameSubject() ([]TriplePattern, error) {
	var out []TriplePattern
	var subject Node
	var err error
	requireProps := true
	switch {
	case p.atPunct("["):
		subject, err = p.blankNodePropertyList(&out)
		requireProps = false
	case p.atPunct("("):
		subject, err = p.collection(&out)
		requireProps = false
	default:
		subject, err = p.term()
	}
	if err != nil {
		return nil, err
	}
	if !requireProps && (p.atPunct(".") || p.atPunct("}")) {
		return out, nil
	}
	if err := p.propertyList(subject, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) propertyList(subject Node, out *[]TriplePattern) error {
	for {
		verb, path, err := p.verb()
		if err != nil {
			return err
		}
		for {
			obj, err := p.graphNode(out)
			if err != nil {
				return err
			}
			*out = append(*out, TriplePattern{S: subject, P: verb, Path: path, O: obj})
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(";") {
			return nil
		}
		for p.acceptPunct(";") {
		}
		if p.atPunct(".") || p.atPunct("}") || p.atPunct("]") {
			return nil
		}
	}
}

func (p *parser) verb() (Node, Path, error) {
	if p.at(tokVar) {
		if p.noVars {
			return Node{}, nil, p.errorf("variables are not allowed here")
		}
		return varNode(p.next().text), nil, nil
	}
	if p.acceptKeyword("A") {
		return termNode(graph.IRI(graph.RDFType)), nil, nil
	}
	if p.noPaths {
		iri, err := p.iri()
		if err != nil {
			return Node{}, nil, err
		}
		return termNode(iri), nil, nil
	}
	path, err := p.pathAlternative()
	if err != nil {
		return Node{}, nil, err
	}
	if link, ok := path.(PathLink); ok {
		return termNode(link.IRI), nil, nil
	}
	return Node{}, path, nil
}

func (p *parser) pathAlternative() (Path, error) {
	first, err := p.pathSequence()
	if err != nil {
		return nil, err
	}
	parts := []Path{first}
	for p.acceptPunct("|") {
		next, err := p.pathSequence()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	if len(parts) == 1 {
		return first, nil
	}
	return PathAlt{Parts: parts}, nil
}

func (p *parser) pathSequence() (Path, error) {
	first, err := p.pathEltOrInverse()
	if err != nil {
		return nil, err
	}
	parts := []Path{first}
	for p.acceptPunct("/") {
		next, err := p.pathEltOrInverse()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	if len(parts) == 1 {
		return first, nil
	}
	return PathSeq{Parts: parts}, nil
}

func (p *parser) pathEltOrInverse() (Path, error) {
	inverse := p.acceptPunct("^")
	elt, err := p.pathPrimary()
	if err != nil {
		return nil, err
	}
	switch {
	case p.acceptPunct("?"):
		elt = PathRepeat{Path: elt, Min: 0}
	case p.acceptPunct("*"):
		elt = PathRepeat{Path: elt, Min: 0, Unbound: true}
	case p.atPunct("+") && p.peekAt(1).kind != tokInteger && p.peekAt(1).kind != tokDecimal && p.peekAt(1).kind != tokDouble:
		p.pos++
		elt = PathRepeat{Path: elt, Min: 1, Unbound: true}
	}
	if inverse {
		return PathInverse{Path: elt}, nil
	}
	return elt, nil
}

func (p *parser) pathPrimary() (Path, error) {
	switch {
	case p.acceptKeyword("A"):
		return PathLink{IRI: graph.IRI(graph.RDFType)}, nil
	case p.acceptPunct("("):
		path, err := p.pathAlternative()
		if err != nil {
			return nil, err
		}
		return path, p.expectPunct(")")
	case p.acceptPunct("!"):
		neg := PathNegated{}
		add := func() error {
			inverse := p.acceptPunct("^")
			var iri rdf.IRI
			if p.acceptKeyword("A") {
				iri = graph.IRI(graph.RDFType)
			} else {
				var err error
				if iri, err = p.iri(); err != nil {
					return err
				}
			}
			if inverse {
				neg.Inverse = append(neg.Inverse, iri)
			} else {
				neg.Forward = append(neg.Forward, iri)
			}
			return nil
		}
		if p.acceptPunct("(") {
			if !p.acceptPunct(")") {
				for {
					if err := add(); err != nil {
						return nil, err
					}
					if !p.acceptPunct("|") {
						break
					}
				}
				if err := p.expectPunct(")"); err != nil {
					return nil, err
				}
			}
		} else if err := add(); err != nil {
			return nil, err
		}
		return neg, nil
	}
	iri, err := p.iri()
	if err != nil {
		return nil, err
	}
	return PathLink{IRI: iri}, nil
}

func (p *parser) graphNode(out *[]TriplePattern) (Node, error) {
	switch {
	case p.atPunct("["):
		return p.blankNodePropertyList(out)
	case p.atPunct("("):
		return p.collection(out)
	}
	return p.term()
}

func (p *parser) blankNodePropertyList(out *[]TriplePattern) (Node, error) {
	if err := p.expectPunct("["); err != nil {
		return Node{}, err
	}
	node := p.freshBlank()
	if p.acceptPunct("]") {
		return node, nil
	}
	if err := p.propertyList(node, out); err != nil {
		return Node{}, err
	}
	return node, p.expectPunct("]")
}

func (p *parser) collection(out *[]TriplePattern) (Node, error) {
	if err := p.expectPunct("("); err != nil {
		return Node{}, err
	}
	var items []Node
	for !p.acceptPunct(")") {
		if p.at(tokEOF) {
			return Node{}, p.errorf("unterminated collection")
		}
		item, err := p.graphNode(out)
		if err != nil {
			return Node{}, err
		}
		items = append(items, item)
	}
	head := termNode(graph.IRI(graph.RDFNil))
	for i := len(items) - 1; i >= 0; i-- {
		cell := p.freshBlank()
		*out = append(*out,
			TriplePattern{S: cell, P: termNode(graph.IRI(graph.RDFFirst)), O: items[i]},
			TriplePattern{S: cell, P: termNode(graph.IRI(graph.RDFRest)), O: head},
		)
		head = cell
	}
	return head, nil
}

// term parses a variable, IRI, blank node or literal.
func (p *parser) term() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokVar:
		if p.noVars {
			return Node{}, p.errorf("variables are not allowed here")
		}
		p.pos++
		return varNode(t.text), nil
	case tokIRI, tokPName:
		iri, err := p.iri()
		return termNode(iri), err
	case tokBlank:
		p.pos++
		if p.blankTerms {
			return termNode(graph.Blank(t.text)), nil
		}
		return varNode(blankVarPrefix + t.text), nil
	case tokString:
		lit, err := p.literal()
		return termNode(lit), err
	case tokInteger, tokDecimal, tokDouble:
		p.pos++
		return termNode(numericLiteral(t, "")), nil
	case tokPunct:
		if (t.text == "+" || t.text == "-") && isNumberTok(p.peekAt(1)) {
			p.pos++
			return termNode(numericLiteral(p.next(), t.text)), nil
		}
		if t.text == "[" && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "]" {
			p.pos += 2
			return p.freshBlank(), nil
		}
		if t.text == "(" && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == ")" {
			p.pos += 2
			return termNode(graph.IRI(graph.RDFNil)), nil
		}
	case tokKeyword:
		switch t.text {
		case "TRUE", "FALSE":
			p.pos++
			return termNode(graph.TypedLiteral(strings.ToLower(t.text), graph.XSDBoolean)), nil
		}
	}
	return Node{}, p.errorf("expected term, found %s", t)
}

func isNumberTok(t token) bool {
	return t.kind == tokInteger || t.kind == tokDecimal || t.kind == tokDouble
}

func numericLiteral(t token, sign string) rdf.Literal {
	lex := t.text
	if sign == "-" {
		lex = "-" + lex
	}
	switch t.kind {
	case tokDecimal:
		return graph.TypedLiteral(lex, graph.XSDDecimal)
	case tokDouble:
		return graph.TypedLiteral(lex, graph.XSDDouble)
	default:
		return graph.TypedLiteral(lex, graph.XSDInteger)
	}
}

func (p *parser) literal() (rdf.Literal, error) {
	t := p.next()
	if p.at(tokLang) {
		return graph.LangLiteral(t.text, p.next().text), nil
	}
	if p.acceptPunct("^^") {
		dt, err := p.iri()
		if err != nil {
			return rdf.Literal{}, err
		}
		return graph.TypedLiteral(t.text, dt.Value), nil
	}
	return graph.Literal(t.text), nil
}

func (p *parser) updateOp() (UpdateOp, error) {
	switch {
	case p.acceptKeyword("LOAD"):
		op := &Load{Silent: p.acceptKeyword("SILENT")}
		src, err := p.iri()
		if err != nil {
			return nil, err
		}
		op.Source = src.Value
		if p.acceptKeyword("INTO") {
			if err := p.expectKeyword("GRAPH"); err != nil {
				return nil, err
			}
			into, err := p.iri()
			if err != nil {
				return nil, err
			}
			op.Into = into
		}
		return op, nil
	case p.atKeyword("CLEAR", "DROP"):
		op := &Clear{Drop: p.next().text == "DROP"}
		op.Silent = p.acceptKeyword("SILENT")
		switch {
		case p.acceptKeyword("DEFAULT"):
			op.Kind = TargetDefault
		case p.acceptKeyword("NAMED"):
			op.Kind = TargetNamed
		case p.acceptKeyword("ALL"):
			op.Kind = TargetAll
		default:
			if err := p.expectKeyword("GRAPH"); err != nil {
				return nil, err
			}
			g, err := p.iri()
			if err != nil {
				return nil, err
			}
			op.Kind, op.Graph = TargetGraph, g
		}
		return op, nil
	case p.acceptKeyword("CREATE"):
		op := &Create{Silent: p.acceptKeyword("SILENT")}
		if err := p.expectKeyword("GRAPH"); err != nil {
			return nil, err
		}
		g, err := p.iri()
		if err != nil {
			return nil, err
		}
		op.Graph = g
		return op, nil
	case p.atKeyword("ADD", "MOVE", "COPY"):
		op := &Transfer{}
		switch p.next().text {
		case "MOVE":
			op.Kind = TransferMove
		case "COPY":
			op.Kind = TransferCopy
		}
		op.Silent = p.acceptKeyword("SILENT")
		from, err := p.graphOrDefault()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("TO"); err != nil {
			return nil, err
		}
		to, err := p.graphOrDefault()
		if err != nil {
			return nil, err
		}
		op.From, op.To = from, to
		return op, nil
	case p.atKeyword("INSERT") && p.peekAt(1).kind == tokKeyword && p.peekAt(1).text == "DATA":
		p.pos += 2
		quads, err := p.quadData()
		return &InsertData{Quads: quads}, err
	case p.atKeyword("DELETE") && p.peekAt(1).kind == tokKeyword && p.peekAt(1).text == "DATA":
		p.pos += 2
		quads, err := p.quadData()
		return &DeleteData{Quads: quads}, err
	case p.atKeyword("DELETE") && p.peekAt(1).kind == tokKeyword && p.peekAt(1).text == "WHERE":
		p.pos += 2
		quads, err := p.quadPattern(false)
		return &DeleteWhere{Quads: quads}, err
	case p.atKeyword("WITH", "DELETE", "INSERT"):
		return p.modify()
	}
	return nil, p.errorf("expected an update operation, found %s", p.peek())
}

func (p *parser) graphOrDefault() (rdf.Term, error) {
	if p.acceptKeyword("DEFAULT") {
		return nil, nil
	}
	p.acceptKeyword("GRAPH")
	return p.iri()
}

func (p *parser) modify() (UpdateOp, error) {
	op := &Modify{}
	if p.acceptKeyword("WITH") {
		g, err := p.iri()
		if err != nil {
			return nil, err
		}
		op.With = g
	}
	if p.acceptKeyword("DELETE") {
		quads, err := p.quadPattern(false)
		if err != nil {
			return nil, err
		}
		op.Delete = quads
	}
	if p.acceptKeyword("INSERT") {
		quads, err := p.quadPattern(true)
		if err != nil {
			return nil, err
		}
		op.Insert = quads
	}
	if op.Delete == nil && op.Insert == nil {
		return nil, p.errorf("expected DELETE or INSERT clause")
	}
	for p.acceptKeyword("USING") {
		named := p.acceptKeyword("NAMED")
		g, err := p.iri()
		if err != nil {
			return nil, err
		}
		if named {
			op.UsingNamed = append(op.UsingNamed, g)
		} else {
			op.Using = append(op.Using, g)
		}
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	where, err := p.groupGraphPattern()
	if err != nil {
		return nil, err
	}
	op.Where = where
	return op, nil
}

// quadData parses the ground quads of INSERT DATA and DELETE DATA.
func (p *parser) quadData() ([]QuadPattern, error) {
	p.noVars = true
	defer func() { p.noVars = false }()
	return p.quadPattern(true)
}

// quadPattern parses { triples GRAPH g { triples } ... }. Blank nodes are
// constants when blanks is set (data and INSERT templates), variables otherwise.
func (p *parser) quadPattern(blanks bool) ([]QuadPattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	savedBlank, savedPaths := p.blankTerms, p.noPaths
	p.blankTerms, p.noPaths = blanks, true
	defer func() { p.blankTerms, p.noPaths = savedBlank, savedPaths }()

	var out []QuadPattern
	addTriples := func(g Node) error {
		for !p.atPunct("}") && !p.atKeyword("GRAPH") {
			if p.acceptPunct(".") {
				continue
			}
			if p.at(tokEOF) {
				return p.errorf("unterminated quad block")
			}
			triples, err := p.triplesSameSubject()
			if err != nil {
				return err
			}
			for _, t := range triples {
				out = append(out, QuadPattern{S: t.S, P: t.P, O: t.O, G: g})
			}
		}
		return nil
	}
	for {
		if err := addTriples(Node{}); err != nil {
			return nil, err
		}
		if p.acceptPunct("}") {
			return out, nil
		}
		if err := p.expectKeyword("GRAPH"); err != nil {
			return nil, err
		}
		g, err := p.varOrIRI()
		if err != nil {
			return nil, err
		}
		if g.IsVar() && p.noVars {
			return nil, p.errorf("variables are not allowed here")
		}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		if err := addTriples(g); err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
	}
}
