package sparql

import (
	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

// pathPairs calls fn for every (x, y) connected by path, with s and o as
// optional fixed endpoints. Repetition paths yield distinct pairs.
func (ev *evaluator) pathPairs(sc scope, path Path, s, o rdf.Term, fn func(x, y rdf.Term) bool) error {
	switch p := path.(type) {
	case PathLink:
		return ev.match(sc, s, p.IRI, o, func(q graph.Quad) bool { return fn(q.S, q.O) })
	case PathInverse:
		return ev.pathPairs(sc, p.Path, o, s, func(x, y rdf.Term) bool { return fn(y, x) })
	case PathAlt:
		for _, part := range p.Parts {
			stop := false
			err := ev.pathPairs(sc, part, s, o, func(x, y rdf.Term) bool {
				if !fn(x, y) {
					stop = true
					return false
				}
				return true
			})
			if err != nil || stop {
				return err
			}
		}
		return nil
	case PathSeq:
		return ev.seqPairs(sc, p.Parts, s, o, fn)
	case PathRepeat:
		return ev.repeatPairs(sc, p, s, o, fn)
	case PathNegated:
		return ev.negatedPairs(sc, p, s, o, fn)
	}
	return nil
}

func (ev *evaluator) seqPairs(sc scope, parts []Path, s, o rdf.Term, fn func(x, y rdf.Term) bool) error {
	if len(parts) == 1 {
		return ev.pathPairs(sc, parts[0], s, o, fn)
	}
	type pair struct{ x, mid rdf.Term }
	var firsts []pair
	if s == nil && o != nil {
		// walk from the bound end
		return ev.seqPairs(sc, reversePath(parts), o, nil, func(x, y rdf.Term) bool { return fn(y, x) })
	}
	err := ev.pathPairs(sc, parts[0], s, nil, func(x, mid rdf.Term) bool {
		firsts = append(firsts, pair{x, mid})
		return true
	})
	if err != nil {
		return err
	}
	for _, f := range firsts {
		stop := false
		x := f.x
		err := ev.seqPairs(sc, parts[1:], f.mid, o, func(_, y rdf.Term) bool {
			if !fn(x, y) {
				stop = true
				return false
			}
			return true
		})
		if err != nil || stop {
			return err
		}
	}
	return nil
}

// reversePath turns p1/p2/.../pn into ^pn/.../^p1.
func reversePath(parts []Path) []Path {
	out := make([]Path, len(parts))
	for i, p := range parts {
		out[len(parts)-1-i] = PathInverse{Path: p}
	}
	return out
}

func (ev *evaluator) repeatPairs(sc scope, p PathRepeat, s, o rdf.Term, fn func(x, y rdf.Term) bool) error {
	if s == nil && o != nil {
		inv := PathRepeat{Path: PathInverse{Path: p.Path}, Min: p.Min, Unbound: p.Unbound}
		return ev.repeatPairs(sc, inv, o, nil, func(x, y rdf.Term) bool { return fn(y, x) })
	}
	if s != nil {
		reach, err := ev.reachable(sc, p, s)
		if err != nil {
			return err
		}
		for _, y := range reach {
			if o != nil && !graph.Equal(o, y) {
				continue
			}
			if !fn(s, y) {
				return nil
			}
		}
		return nil
	}
	starts, err := ev.nodes(sc)
	if err != nil {
		return err
	}
	for _, x := range starts {
		reach, err := ev.reachable(sc, p, x)
		if err != nil {
			return err
		}
		for _, y := range reach {
			if !fn(x, y) {
				return nil
			}
		}
	}
	return nil
}

// reachable returns the distinct nodes reachable from start through p.
func (ev *evaluator) reachable(sc scope, p PathRepeat, start rdf.Term) ([]rdf.Term, error) {
	var out []rdf.Term
	seen := map[string]bool{}
	if p.Min == 0 {
		seen[graph.FormatTerm(start)] = true
		out = append(out, start)
	}
	frontier := []rdf.Term{start}
	for depth := 1; len(frontier) > 0; depth++ {
		if !p.Unbound && depth > 1 {
			break
		}
		var next []rdf.Term
		for _, x := range frontier {
			err := ev.pathPairs(sc, p.Path, x, nil, func(_, y rdf.Term) bool {
				k := graph.FormatTerm(y)
				if !seen[k] {
					seen[k] = true
					out = append(out, y)
					next = append(next, y)
				}
				return true
			})
			if err != nil {
				return nil, err
			}
		}
		frontier = next
	}
	return out, nil
}

// nodes lists every subject and object in the active graph.
func (ev *evaluator) nodes(sc scope) ([]rdf.Term, error) {
	var out []rdf.Term
	seen := map[string]bool{}
	add := func(t rdf.Term) {
		k := graph.FormatTerm(t)
		if !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	err := ev.match(sc, nil, nil, nil, func(q graph.Quad) bool {
		add(q.S)
		add(q.O)
		return true
	})
	return out, err
}

func (ev *evaluator) negatedPairs(sc scope, p PathNegated, s, o rdf.Term, fn func(x, y rdf.Term) bool) error {
	excluded := func(set []rdf.IRI, t rdf.Term) bool {
		for _, iri := range set {
			if graph.Equal(iri, t) {
				return true
			}
		}
		return false
	}
	stop := false
	if len(p.Forward) > 0 || len(p.Inverse) == 0 {
		err := ev.match(sc, s, nil, o, func(q graph.Quad) bool {
			if excluded(p.Forward, q.P) {
				return true
			}
			if !fn(q.S, q.O) {
				stop = true
				return false
			}
			return true
		})
		if err != nil || stop {
			return err
		}
	}
	if len(p.Inverse) > 0 {
		return ev.match(sc, o, nil, s, func(q graph.Quad) bool {
			if excluded(p.Inverse, q.P) {
				return true
			}
			return fn(q.O, q.S)
		})
	}
	return nil
}
