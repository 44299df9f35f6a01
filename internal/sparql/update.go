package sparql

import (
	"fmt"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/google/uuid"

	"evalgo.org/rdfendpoint/internal/graph"
)

func (ev *evaluator) execUpdate(ds graph.Mutable, u *Update) error {
	for _, op := range u.Ops {
		if err := ev.execOp(ds, op); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) execOp(ds graph.Mutable, op UpdateOp) error {
	switch o := op.(type) {
	case *InsertData:
		prefix := "u" + uuid.NewString()[:8] + "_"
		quads := groundQuads(o.Quads, func(id string) rdf.Term { return graph.Blank(prefix + id) })
		return ds.Add(ev.ctx, quads...)
	case *DeleteData:
		return ds.Remove(ev.ctx, groundQuads(o.Quads, nil)...)
	case *DeleteWhere:
		return ev.modify(ds, &Modify{Delete: o.Quads, Where: quadsToGroup(o.Quads)})
	case *Modify:
		return ev.modify(ds, o)
	case *Load:
		err := ev.load(ds, o)
		if err != nil && o.Silent {
			return nil
		}
		return err
	case *Clear:
		return ev.clear(ds, o)
	case *Create:
		return nil
	case *Transfer:
		return ev.transfer(ds, o)
	}
	return fmt.Errorf("unsupported update operation %T", op)
}

func groundQuads(qps []QuadPattern, blank func(string) rdf.Term) []graph.Quad {
	out := make([]graph.Quad, 0, len(qps))
	for _, qp := range qps {
		q, ok := instantiate(qp.S, qp.P, qp.O, nil, blank)
		if !ok {
			continue
		}
		if !qp.G.isZero() {
			q.G = qp.G.Term
		}
		out = append(out, canonicalQuad(q))
	}
	return out
}

func canonicalQuad(q graph.Quad) graph.Quad {
	return graph.Quad{S: graph.Canonical(q.S), P: q.P, O: graph.Canonical(q.O), G: q.G}
}

// quadsToGroup turns a DELETE WHERE block into the equivalent pattern.
func quadsToGroup(qps []QuadPattern) *Group {
	g := &Group{}
	var def *BGP
	named := map[string]*GraphPattern{}
	for _, qp := range qps {
		tp := TriplePattern{S: qp.S, P: qp.P, O: qp.O}
		if qp.G.isZero() {
			if def == nil {
				def = &BGP{}
				g.Elements = append(g.Elements, def)
			}
			def.Triples = append(def.Triples, tp)
			continue
		}
		k := qp.G.Var + "|" + graph.FormatTerm(qp.G.Term)
		gp, ok := named[k]
		if !ok {
			gp = &GraphPattern{Name: qp.G, Group: &Group{Elements: []Pattern{&BGP{}}}}
			named[k] = gp
			g.Elements = append(g.Elements, gp)
		}
		bgp := gp.Group.Elements[0].(*BGP)
		bgp.Triples = append(bgp.Triples, tp)
	}
	return g
}

func (ev *evaluator) modify(ds graph.Mutable, m *Modify) error {
	sub := &evaluator{ctx: ev.ctx, ds: ds, eng: ev.eng, now: ev.now, named: ev.named}
	switch {
	case len(m.Using) > 0 || len(m.UsingNamed) > 0:
		sub.from = m.Using
		if len(m.Using) == 0 {
			sub.from = []rdf.Term{nil}
		}
		if len(m.UsingNamed) > 0 {
			sub.named = m.UsingNamed
		}
	case m.With != nil:
		sub.from = []rdf.Term{m.With}
	}
	sols, err := sub.evalGroup(scope{}, m.Where, []Binding{{}})
	if err != nil {
		return err
	}

	var dels, ins []graph.Quad
	for i, b := range sols {
		for _, qp := range m.Delete {
			if q, ok := templateQuad(qp, b, m.With, nil); ok {
				dels = append(dels, q)
			}
		}
		prefix := fmt.Sprintf("u%s_%d_", uuid.NewString()[:8], i)
		for _, qp := range m.Insert {
			if q, ok := templateQuad(qp, b, m.With, func(id string) rdf.Term { return graph.Blank(prefix + id) }); ok {
				ins = append(ins, q)
			}
		}
	}
	if len(dels) > 0 {
		if err := ds.Remove(ev.ctx, dels...); err != nil {
			return err
		}
	}
	if len(ins) > 0 {
		return ds.Add(ev.ctx, ins...)
	}
	return nil
}

func templateQuad(qp QuadPattern, b Binding, with rdf.Term, blank func(string) rdf.Term) (graph.Quad, bool) {
	q, ok := instantiate(qp.S, qp.P, qp.O, b, blank)
	if !ok {
		return q, false
	}
	switch {
	case qp.G.IsVar():
		g := b[qp.G.Var]
		if _, iri := g.(rdf.IRI); !iri {
			return q, false
		}
		q.G = g
	case !qp.G.isZero():
		q.G = qp.G.Term
	default:
		q.G = with
	}
	return canonicalQuad(q), true
}

func (ev *evaluator) load(ds graph.Mutable, op *Load) error {
	prefix := "l" + uuid.NewString()[:8] + "_"
	quads, err := ev.eng.fetch(ev.ctx, op.Source, prefix, op.Into)
	if err != nil {
		return fmt.Errorf("LOAD <%s>: %w", op.Source, err)
	}
	return ds.Add(ev.ctx, quads...)
}

func (ev *evaluator) clear(ds graph.Mutable, op *Clear) error {
	switch op.Kind {
	case TargetGraph:
		return ds.DropGraph(ev.ctx, op.Graph)
	case TargetDefault:
		return ds.DropGraph(ev.ctx, nil)
	case TargetAll:
		if err := ds.DropGraph(ev.ctx, nil); err != nil {
			return err
		}
	}
	targets, err := ds.Graphs(ev.ctx)
	if err != nil {
		return err
	}
	for _, g := range targets {
		if err := ds.DropGraph(ev.ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) transfer(ds graph.Mutable, op *Transfer) error {
	if graph.Equal(op.From, op.To) {
		return nil
	}
	kind := graph.InDefault
	if op.From != nil {
		kind = graph.InGraph
	}
	src, err := graph.Collect(ev.ctx, ds, graph.Pattern{Kind: kind, Name: op.From})
	if err != nil {
		return err
	}
	if op.Kind != TransferAdd {
		if err := ds.DropGraph(ev.ctx, op.To); err != nil {
			return err
		}
	}
	moved := make([]graph.Quad, len(src))
	for i, q := range src {
		q.G = op.To
		moved[i] = q
	}
	if err := ds.Add(ev.ctx, moved...); err != nil {
		return err
	}
	if op.Kind == TransferMove {
		return ds.DropGraph(ev.ctx, op.From)
	}
	return nil
}
