package sparql

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// Binding maps variable names to terms. Unbound variables are absent.
type Binding map[string]rdf.Term

func (b Binding) extend(name string, t rdf.Term) Binding {
	out := make(Binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = t
	return out
}

// compatible reports whether the bindings agree on every shared variable.
func compatible(a, b Binding) bool {
	for k, v := range a {
		if w, ok := b[k]; ok && !graph.Equal(v, w) {
			return false
		}
	}
	return true
}

func merge(a, b Binding) Binding {
	out := make(Binding, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// scope is the active graph. A nil graph is the query's default graph.
type scope struct {
	graph rdf.Term
}

type evaluator struct {
	ctx context.Context
	ds  graph.Dataset
	eng *Engine
	// from lists the graphs merged into the default graph; empty means the union of all graphs.
	from []rdf.Term
	// named restricts GRAPH ?g; nil means every named graph.
	named  []rdf.Term
	now    time.Time
	bnodes int
}

func newEvaluator(ctx context.Context, eng *Engine, ds graph.Dataset) *evaluator {
	return &evaluator{ctx: ctx, ds: ds, eng: eng, now: time.Now()}
}

func (ev *evaluator) freshBlank() rdf.BlankNode {
	ev.bnodes++
	return graph.Blank(fmt.Sprintf("b%d_%d", ev.now.UnixNano()%1e6, ev.bnodes))
}

func (ev *evaluator) match(sc scope, s, p, o rdf.Term, fn func(graph.Quad) bool) error {
	if err := ev.ctx.Err(); err != nil {
		return err
	}
	if sc.graph != nil {
		return ev.ds.Match(ev.ctx, graph.Pattern{S: s, P: p, O: o, Kind: graph.InGraph, Name: sc.graph}, fn)
	}
	if len(ev.from) == 0 {
		return ev.ds.Match(ev.ctx, graph.Pattern{S: s, P: p, O: o, Kind: graph.InUnion}, fn)
	}
	deliver := graph.UnionFilter(fn)
	stopped := false
	for _, g := range ev.from {
		if stopped {
			break
		}
		pat := graph.Pattern{S: s, P: p, O: o, Kind: graph.InGraph, Name: g}
		if g == nil {
			pat.Kind = graph.InDefault
		}
		err := ev.ds.Match(ev.ctx, pat, func(q graph.Quad) bool {
			if !deliver(q) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) namedGraphs() ([]rdf.Term, error) {
	if ev.named != nil {
		return ev.named, nil
	}
	return ev.ds.Graphs(ev.ctx)
}

func (ev *evaluator) isNamedGraph(g rdf.Term) (bool, error) {
	if ev.named == nil {
		return true, nil
	}
	for _, n := range ev.named {
		if graph.Equal(n, g) {
			return true, nil
		}
	}
	return false, nil
}

func (ev *evaluator) evalGroup(sc scope, g *Group, input []Binding) ([]Binding, error) {
	sols := input
	var err error
	for _, el := range g.Elements {
		if len(sols) == 0 {
			break
		}
		switch p := el.(type) {
		case *BGP:
			sols, err = ev.evalBGP(sc, p.Triples, sols)
		case *Optional:
			sols, err = ev.evalOptional(sc, p.Group, sols)
		case *Union:
			var out []Binding
			for _, alt := range p.Alternatives {
				res, err := ev.evalNested(sc, alt, sols)
				if err != nil {
					return nil, err
				}
				out = append(out, res...)
			}
			sols = out
		case *Minus:
			sols, err = ev.evalMinus(sc, p.Group, sols)
		case *GraphPattern:
			sols, err = ev.evalGraph(p, sols)
		case *Bind:
			out := make([]Binding, 0, len(sols))
			for _, b := range sols {
				v, err := ev.eval(p.Expr, &row{b: b, sc: sc})
				if err != nil || v == nil {
					out = append(out, b)
					continue
				}
				out = append(out, b.extend(p.Var, v))
			}
			sols = out
		case *Values:
			sols = joinValues(sols, p)
		case *SubSelect:
			var res *Result
			res, err = ev.evalSelect(sc, p.Query)
			if err == nil {
				sols = join(sols, res.Bindings)
			}
		case *SubGroup:
			sols, err = ev.evalNested(sc, p.Group, sols)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(g.Filters) == 0 {
		return sols, nil
	}
	out := sols[:0:0]
	for _, b := range sols {
		if ev.passes(g.Filters, &row{b: b, sc: sc}) {
			out = append(out, b)
		}
	}
	return out, nil
}

// evalNested evaluates a nested group or union branch and joins it with
// sols. The branch only sees the outer solutions when nothing in it can
// observe their variables; otherwise it is evaluated on its own.
func (ev *evaluator) evalNested(sc scope, g *Group, sols []Binding) ([]Binding, error) {
	if substitutable(g) {
		return ev.evalGroup(sc, g, sols)
	}
	res, err := ev.evalGroup(sc, g, []Binding{{}})
	if err != nil {
		return nil, err
	}
	return join(sols, res), nil
}

// substitutable reports whether g holds only patterns that match the same
// way with or without outer bindings: no FILTER, BIND, OPTIONAL, MINUS or sub-select.
func substitutable(g *Group) bool {
	if len(g.Filters) > 0 {
		return false
	}
	for _, el := range g.Elements {
		switch p := el.(type) {
		case *BGP, *Values:
		case *SubGroup:
			if !substitutable(p.Group) {
				return false
			}
		case *Union:
			for _, alt := range p.Alternatives {
				if !substitutable(alt) {
					return false
				}
			}
		case *GraphPattern:
			if !substitutable(p.Group) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (ev *evaluator) passes(filters []Expr, r *row) bool {
	for _, f := range filters {
		v, err := ev.eval(f, r)
		if err != nil {
			return false
		}
		ok, err := ebv(v)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (ev *evaluator) evalOptional(sc scope, g *Group, sols []Binding) ([]Binding, error) {
	var out []Binding
	for _, b := range sols {
		ext, err := ev.evalGroup(sc, g, []Binding{b})
		if err != nil {
			return nil, err
		}
		if len(ext) == 0 {
			out = append(out, b)
			continue
		}
		out = append(out, ext...)
	}
	return out, nil
}

func (ev *evaluator) evalMinus(sc scope, g *Group, sols []Binding) ([]Binding, error) {
	right, err := ev.evalGroup(sc, g, []Binding{{}})
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, b := range sols {
		excluded := false
		for _, r := range right {
			if sharesVar(b, r) && compatible(b, r) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, b)
		}
	}
	return out, nil
}

func sharesVar(a, b Binding) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func (ev *evaluator) evalGraph(p *GraphPattern, sols []Binding) ([]Binding, error) {
	if !p.Name.IsVar() {
		ok, err := ev.isNamedGraph(p.Name.Term)
		if err != nil || !ok {
			return nil, err
		}
		return ev.evalGroup(scope{graph: p.Name.Term}, p.Group, sols)
	}
	names, err := ev.namedGraphs()
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, b := range sols {
		if bound, ok := b[p.Name.Var]; ok {
			known, err := ev.isNamedGraph(bound)
			if err != nil {
				return nil, err
			}
			if !known {
				continue
			}
			res, err := ev.evalGroup(scope{graph: bound}, p.Group, []Binding{b})
			if err != nil {
				return nil, err
			}
			out = append(out, res...)
			continue
		}
		for _, g := range names {
			res, err := ev.evalGroup(scope{graph: g}, p.Group, []Binding{b.extend(p.Name.Var, g)})
			if err != nil {
				return nil, err
			}
			out = append(out, res...)
		}
	}
	return out, nil
}

func join(left, right []Binding) []Binding {
	var out []Binding
	for _, l := range left {
		for _, r := range right {
			if compatible(l, r) {
				out = append(out, merge(l, r))
			}
		}
	}
	return out
}

func joinValues(sols []Binding, v *Values) []Binding {
	rows := make([]Binding, 0, len(v.Rows))
	for _, r := range v.Rows {
		b := Binding{}
		for i, name := range v.Vars {
			if r[i] != nil {
				b[name] = r[i]
			}
		}
		rows = append(rows, b)
	}
	return join(sols, rows)
}

func resolve(n Node, b Binding) rdf.Term {
	if n.IsVar() {
		return b[n.Var]
	}
	return n.Term
}

func (ev *evaluator) evalBGP(sc scope, triples []TriplePattern, sols []Binding) ([]Binding, error) {
	var out []Binding
	collect := func(b Binding) bool {
		out = append(out, b)
		return true
	}
	for _, b := range sols {
		if _, err := ev.bgpEach(sc, triples, b, collect); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// bgpEach calls fn with every extension of b by the remaining patterns, always
// taking the most bound pattern next. It reports false once fn stops.
func (ev *evaluator) bgpEach(sc scope, triples []TriplePattern, b Binding, fn func(Binding) bool) (bool, error) {
	if len(triples) == 0 {
		return fn(b), nil
	}
	best, score := 0, -1
	for i, tp := range triples {
		if s := boundScore(tp, b); s > score {
			best, score = i, s
		}
	}
	tp := triples[best]
	rest := make([]TriplePattern, 0, len(triples)-1)
	rest = append(rest, triples[:best]...)
	rest = append(rest, triples[best+1:]...)

	return ev.matchEach(sc, tp, b, func(next Binding) (bool, error) {
		return ev.bgpEach(sc, rest, next, fn)
	})
}

func boundScore(tp TriplePattern, b Binding) int {
	score := 0
	if resolve(tp.S, b) != nil {
		score += 4
	}
	if tp.Path == nil && resolve(tp.P, b) != nil {
		score++
	}
	if resolve(tp.O, b) != nil {
		score += 2
	}
	if tp.Path != nil {
		score--
	}
	return score
}

func (ev *evaluator) matchEach(sc scope, tp TriplePattern, b Binding, fn func(Binding) (bool, error)) (bool, error) {
	more := true
	var ferr error
	step := func(nb Binding) bool {
		more, ferr = fn(nb)
		return more && ferr == nil
	}
	s, o := resolve(tp.S, b), resolve(tp.O, b)
	if tp.Path != nil {
		var steps []Binding
		err := ev.pathPairs(sc, tp.Path, s, o, func(x, y rdf.Term) bool {
			if nb, ok := bindNode(b, tp.S, x); ok {
				if nb, ok = bindNode(nb, tp.O, y); ok {
					steps = append(steps, nb)
				}
			}
			return true
		})
		if err != nil {
			return false, err
		}
		for _, nb := range steps {
			if !step(nb) {
				break
			}
		}
		return more, ferr
	}
	p := resolve(tp.P, b)
	err := ev.match(sc, s, p, o, func(q graph.Quad) bool {
		nb, ok := bindNode(b, tp.S, q.S)
		if ok {
			nb, ok = bindNode(nb, tp.P, q.P)
		}
		if ok {
			nb, ok = bindNode(nb, tp.O, q.O)
		}
		if !ok {
			return true
		}
		return step(nb)
	})
	if err != nil {
		return false, err
	}
	return more, ferr
}

// bindNode binds a variable node to t, checking consistency when it is already bound.
func bindNode(b Binding, n Node, t rdf.Term) (Binding, bool) {
	if !n.IsVar() {
		return b, true
	}
	if cur, ok := b[n.Var]; ok {
		return b, graph.Equal(cur, t)
	}
	return b.extend(n.Var, t), true
}

// evalSelect runs a SELECT query, including sub-selects.
func (ev *evaluator) evalSelect(sc scope, q *Query) (*Result, error) {
	var sols []Binding
	var err error
	if n := solutionBudget(q); n >= 0 && streamable(q.Where) {
		sols, err = ev.firstSolutions(sc, q.Where, n)
	} else {
		sols, err = ev.evalGroup(sc, q.Where, []Binding{{}})
	}
	if err != nil {
		return nil, err
	}
	if q.Values != nil {
		sols = joinValues(sols, q.Values)
	}

	rows, err := ev.rows(sc, q, sols)
	if err != nil {
		return nil, err
	}

	if len(q.OrderBy) > 0 {
		keys := make([][]rdf.Term, len(rows))
		for i, r := range rows {
			keys[i] = make([]rdf.Term, len(q.OrderBy))
			for j, k := range q.OrderBy {
				v, err := ev.eval(k.Expr, r)
				if err == nil {
					keys[i][j] = v
				}
			}
		}
		idx := make([]int, len(rows))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			for j, k := range q.OrderBy {
				c := orderCompare(keys[idx[a]][j], keys[idx[b]][j])
				if c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		sorted := make([]*row, len(rows))
		for i, j := range idx {
			sorted[i] = rows[j]
		}
		rows = sorted
	}

	vars := projectionVars(q)
	out := make([]Binding, 0, len(rows))
	seen := map[string]struct{}{}
	for _, r := range rows {
		b := make(Binding, len(vars))
		for _, v := range vars {
			if t, ok := r.b[v]; ok {
				b[v] = t
			}
		}
		if q.Distinct || q.Reduced {
			k := bindingKey(b, vars)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, b)
	}
	out = slice(out, q.Offset, q.Limit)
	return &Result{Form: FormSelect, Vars: vars, Bindings: out}, nil
}

// solutionBudget is the number of WHERE solutions that decide the result, or
// -1 when every solution is needed.
func solutionBudget(q *Query) int {
	if q.Limit < 0 || len(q.OrderBy) > 0 || q.aggregates || q.Distinct || q.Reduced || q.Values != nil {
		return -1
	}
	return q.Offset + q.Limit
}

// streamable reports whether g is a single basic graph pattern with its filters.
func streamable(g *Group) bool {
	if len(g.Elements) != 1 {
		return false
	}
	_, ok := g.Elements[0].(*BGP)
	return ok
}

// firstSolutions evaluates a streamable group, stopping the store scans once
// n solutions pass the filters.
func (ev *evaluator) firstSolutions(sc scope, g *Group, n int) ([]Binding, error) {
	var out []Binding
	if n == 0 {
		return out, nil
	}
	bgp := g.Elements[0].(*BGP)
	_, err := ev.bgpEach(sc, bgp.Triples, Binding{}, func(b Binding) bool {
		if len(g.Filters) > 0 && !ev.passes(g.Filters, &row{b: b, sc: sc}) {
			return true
		}
		out = append(out, b)
		return len(out) < n
	})
	return out, err
}

// rows applies grouping, HAVING and the SELECT expressions.
func (ev *evaluator) rows(sc scope, q *Query, sols []Binding) ([]*row, error) {
	var rows []*row
	if q.aggregates {
		groups := groupSolutions(ev, sc, q, sols)
		for _, g := range groups {
			r := &row{b: g.key, group: g.members, sc: sc}
			if !ev.passes(q.Having, r) {
				continue
			}
			rows = append(rows, r)
		}
	} else {
		rows = make([]*row, len(sols))
		for i, b := range sols {
			rows[i] = &row{b: b, sc: sc}
		}
	}
	for _, r := range rows {
		for _, p := range q.Projection {
			if p.Expr == nil {
				continue
			}
			v, err := ev.eval(p.Expr, r)
			if err != nil || v == nil {
				continue
			}
			r.b = r.b.extend(p.Var, v)
		}
	}
	return rows, nil
}

func slice(b []Binding, offset, limit int) []Binding {
	if offset > 0 {
		if offset >= len(b) {
			return nil
		}
		b = b[offset:]
	}
	if limit >= 0 && limit < len(b) {
		b = b[:limit]
	}
	return b
}

func bindingKey(b Binding, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(graph.FormatTerm(b[v]))
		sb.WriteByte(0)
	}
	return sb.String()
}

// projectionVars lists the result variables of a SELECT.
func projectionVars(q *Query) []string {
	if !q.Star {
		vars := make([]string, len(q.Projection))
		for i, p := range q.Projection {
			vars[i] = p.Var
		}
		return vars
	}
	var vars []string
	seen := map[string]bool{}
	add := func(v string) {
		if v == "" || seen[v] || strings.HasPrefix(v, blankVarPrefix) {
			return
		}
		seen[v] = true
		vars = append(vars, v)
	}
	groupVars(q.Where, add)
	if q.Values != nil {
		for _, v := range q.Values.Vars {
			add(v)
		}
	}
	return vars
}

// groupVars reports the in-scope variables of a group in order of appearance.
func groupVars(g *Group, add func(string)) {
	if g == nil {
		return
	}
	for _, el := range g.Elements {
		switch p := el.(type) {
		case *BGP:
			for _, tp := range p.Triples {
				add(tp.S.Var)
				add(tp.P.Var)
				add(tp.O.Var)
			}
		case *Optional:
			groupVars(p.Group, add)
		case *Union:
			for _, alt := range p.Alternatives {
				groupVars(alt, add)
			}
		case *GraphPattern:
			add(p.Name.Var)
			groupVars(p.Group, add)
		case *Bind:
			add(p.Var)
		case *Values:
			for _, v := range p.Vars {
				add(v)
			}
		case *SubSelect:
			for _, v := range projectionVars(p.Query) {
				add(v)
			}
		case *SubGroup:
			groupVars(p.Group, add)
		}
	}
}

func (ev *evaluator) evalAsk(q *Query) (*Result, error) {
	sols, err := ev.evalGroup(scope{}, q.Where, []Binding{{}})
	if err != nil {
		return nil, err
	}
	if q.Values != nil {
		sols = joinValues(sols, q.Values)
	}
	return &Result{Form: FormAsk, Boolean: len(sols) > 0}, nil
}

func (ev *evaluator) evalConstruct(q *Query) (*Result, error) {
	sols, err := ev.solutions(q)
	if err != nil {
		return nil, err
	}
	res := &Result{Form: FormConstruct}
	seen := map[[4]string]struct{}{}
	for i, b := range sols {
		for _, tp := range q.Template {
			quad, ok := instantiate(tp.S, tp.P, tp.O, b, func(id string) rdf.Term {
				return graph.Blank(fmt.Sprintf("%s_c%d", id, i))
			})
			if !ok {
				continue
			}
			k := quad.Key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			res.Quads = append(res.Quads, quad)
		}
	}
	return res, nil
}

// solutions evaluates the WHERE clause with ordering and slicing but keeps blank node variables.
func (ev *evaluator) solutions(q *Query) ([]Binding, error) {
	sols, err := ev.evalGroup(scope{}, q.Where, []Binding{{}})
	if err != nil {
		return nil, err
	}
	if q.Values != nil {
		sols = joinValues(sols, q.Values)
	}
	if len(q.OrderBy) > 0 {
		sort.SliceStable(sols, func(a, b int) bool {
			for _, k := range q.OrderBy {
				x, _ := ev.eval(k.Expr, &row{b: sols[a]})
				y, _ := ev.eval(k.Expr, &row{b: sols[b]})
				c := orderCompare(x, y)
				if c == 0 {
					continue
				}
				if k.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return slice(sols, q.Offset, q.Limit), nil
}

// instantiate builds a ground triple from a template. It reports false when a
// variable is unbound or the triple would be invalid RDF.
func instantiate(s, p, o Node, b Binding, blank func(id string) rdf.Term) (graph.Quad, bool) {
	ground := func(n Node) rdf.Term {
		if n.IsVar() {
			return b[n.Var]
		}
		if bn, ok := n.Term.(rdf.BlankNode); ok && blank != nil {
			return blank(bn.ID)
		}
		return n.Term
	}
	q := graph.Quad{S: ground(s), P: ground(p), O: ground(o)}
	if q.S == nil || q.P == nil || q.O == nil {
		return q, false
	}
	if _, ok := q.S.(rdf.Literal); ok {
		return q, false
	}
	if _, ok := q.P.(rdf.IRI); !ok {
		return q, false
	}
	return q, true
}

func (ev *evaluator) evalDescribe(q *Query) (*Result, error) {
	var resources []rdf.Term
	seenRes := map[string]bool{}
	addRes := func(t rdf.Term) {
		if t == nil {
			return
		}
		if _, ok := t.(rdf.Literal); ok {
			return
		}
		k := graph.FormatTerm(t)
		if !seenRes[k] {
			seenRes[k] = true
			resources = append(resources, t)
		}
	}
	needSolutions := q.Star
	for _, n := range q.Describe {
		if n.IsVar() {
			needSolutions = true
		} else {
			addRes(n.Term)
		}
	}
	if needSolutions {
		sols, err := ev.solutions(q)
		if err != nil {
			return nil, err
		}
		var all []string
		groupVars(q.Where, func(v string) {
			if v != "" && !strings.HasPrefix(v, blankVarPrefix) {
				all = append(all, v)
			}
		})
		for _, b := range sols {
			if q.Star {
				for _, v := range all {
					addRes(b[v])
				}
				continue
			}
			for _, n := range q.Describe {
				if n.IsVar() {
					addRes(b[n.Var])
				}
			}
		}
	}

	res := &Result{Form: FormDescribe}
	seen := map[[4]string]struct{}{}
	visited := map[string]bool{}
	var describe func(t rdf.Term) error
	describe = func(t rdf.Term) error {
		k := graph.FormatTerm(t)
		if visited[k] {
			return nil
		}
		visited[k] = true
		var blanks []rdf.Term
		err := ev.match(scope{}, t, nil, nil, func(q graph.Quad) bool {
			tk := q.Key()
			if _, dup := seen[tk]; !dup {
				seen[tk] = struct{}{}
				res.Quads = append(res.Quads, q.Triple())
			}
			if bn, ok := q.O.(rdf.BlankNode); ok {
				blanks = append(blanks, bn)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, bn := range blanks {
			if err := describe(bn); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range resources {
		if err := describe(r); err != nil {
			return nil, err
		}
	}
	return res, nil
}
