// Package graph defines the quad model shared by the stores and the SPARQL engine.
//
// Terms are the value types of github.com/geoknoesis/rdf-go. A nil graph name
// denotes the default graph.
package graph

import (
	"context"

	"github.com/geoknoesis/rdf-go/rdf"
)

// Quad is one RDF statement. G is nil for the default graph.
type Quad struct {
	S, P, O, G rdf.Term
}

// Triple returns the quad without its graph name.
func (q Quad) Triple() Quad {
	return Quad{S: q.S, P: q.P, O: q.O}
}

// Key is a comparable form of the quad, usable as a map key.
func (q Quad) Key() [4]string {
	return [4]string{FormatTerm(q.S), FormatTerm(q.P), FormatTerm(q.O), FormatTerm(q.G)}
}

// Statement converts the quad to the rdf-go statement type.
// It reports false when the predicate is not an IRI.
func (q Quad) Statement() (rdf.Statement, bool) {
	p, ok := q.P.(rdf.IRI)
	if !ok || q.S == nil || q.O == nil {
		return rdf.Statement{}, false
	}
	return rdf.Statement{S: q.S, P: p, O: q.O, G: q.G}, true
}

// FromStatement converts a parsed statement into a canonical quad.
func FromStatement(s rdf.Statement) Quad {
	return Quad{S: Canonical(s.S), P: s.P, O: Canonical(s.O), G: Canonical(s.G)}
}

// GraphKind selects which graphs a Pattern looks at.
type GraphKind int

const (
	// InUnion matches the merge of all graphs; a triple present in several graphs is reported once with G nil.
	InUnion GraphKind = iota
	// InDefault matches the default graph only.
	InDefault
	// InNamed matches every named graph and reports the graph name.
	InNamed
	// InGraph matches the single graph in Pattern.Name.
	InGraph
)

// Pattern is a quad pattern. Nil positions match anything.
type Pattern struct {
	S, P, O rdf.Term
	Kind    GraphKind
	Name    rdf.Term // graph for InGraph
}

// Matches reports whether q satisfies the subject, predicate and object of p.
func (p Pattern) Matches(q Quad) bool {
	return (p.S == nil || Equal(p.S, q.S)) &&
		(p.P == nil || Equal(p.P, q.P)) &&
		(p.O == nil || Equal(p.O, q.O))
}

// InScope reports whether a stored quad belongs to the graphs selected by p.
func (p Pattern) InScope(q Quad) bool {
	switch p.Kind {
	case InDefault:
		return q.G == nil
	case InNamed:
		return q.G != nil
	case InGraph:
		return q.G != nil && Equal(q.G, p.Name)
	default:
		return true
	}
}

// Dataset is a read-only set of quads.
type Dataset interface {
	// Match calls fn for every quad matching p until fn returns false.
	Match(ctx context.Context, p Pattern, fn func(Quad) bool) error
	// Graphs returns the names of the non-empty named graphs.
	Graphs(ctx context.Context) ([]rdf.Term, error)
	// Len returns the number of distinct quads.
	Len(ctx context.Context) (int, error)
}

// Mutable is a Dataset that accepts writes.
type Mutable interface {
	Dataset
	// Add inserts quads; duplicates are ignored.
	Add(ctx context.Context, quads ...Quad) error
	// Remove deletes quads; absent quads are ignored.
	Remove(ctx context.Context, quads ...Quad) error
	// DropGraph removes every quad of graph g; nil drops the default graph.
	DropGraph(ctx context.Context, g rdf.Term) error
}

// Collect returns every quad matching p.
func Collect(ctx context.Context, ds Dataset, p Pattern) ([]Quad, error) {
	var out []Quad
	err := ds.Match(ctx, p, func(q Quad) bool {
		out = append(out, q)
		return true
	})
	return out, err
}

// All returns every stored quad, default graph first.
func All(ctx context.Context, ds Dataset) ([]Quad, error) {
	def, err := Collect(ctx, ds, Pattern{Kind: InDefault})
	if err != nil {
		return nil, err
	}
	named, err := Collect(ctx, ds, Pattern{Kind: InNamed})
	if err != nil {
		return nil, err
	}
	return append(def, named...), nil
}

// UnionFilter wraps fn so that each triple is delivered once, with its graph cleared.
// Backends that store quads use it to implement InUnion.
func UnionFilter(fn func(Quad) bool) func(Quad) bool {
	seen := make(map[[4]string]struct{})
	return func(q Quad) bool {
		t := q.Triple()
		k := t.Key()
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
		return fn(t)
	}
}
