// Package memory is an in-memory, indexed quad dataset. Matches are delivered
// in insertion order.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/geoknoesis/rdf-go/rdf"

	"evalgo.org/rdfendpoint/internal/graph"
)

type entry struct {
	q    graph.Quad
	dead atomic.Bool
}

// posting lists the entries of one index key in insertion order. Removed
// entries are flagged and dropped when they outnumber the live ones.
type posting struct {
	entries []*entry
	live    int
}

func (p *posting) add(e *entry) {
	p.entries = append(p.entries, e)
	p.live++
}

func (p *posting) removed() {
	p.live--
	if len(p.entries) > 32 && len(p.entries) > 2*p.live {
		kept := make([]*entry, 0, p.live)
		for _, e := range p.entries {
			if !e.dead.Load() {
				kept = append(kept, e)
			}
		}
		p.entries = kept
	}
}

// Dataset holds quads in memory with subject, predicate, object and graph indexes.
type Dataset struct {
	mu     sync.RWMutex
	quads  map[[4]string]*entry
	all    *posting
	bySubj map[string]*posting
	byPred map[string]*posting
	byObj  map[string]*posting
	byGr   map[string]*posting
	// graphs lists graph keys in order of first use
	graphs []string
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		quads:  map[[4]string]*entry{},
		all:    &posting{},
		bySubj: map[string]*posting{},
		byPred: map[string]*posting{},
		byObj:  map[string]*posting{},
		byGr:   map[string]*posting{},
	}
}

func index(m map[string]*posting, term string, e *entry) bool {
	p, ok := m[term]
	if !ok {
		p = &posting{}
		m[term] = p
	}
	p.add(e)
	return !ok
}

func unindex(m map[string]*posting, term string) {
	if p, ok := m[term]; ok {
		p.removed()
		if p.live == 0 {
			delete(m, term)
		}
	}
}

// Add inserts quads; duplicates are ignored.
func (d *Dataset) Add(ctx context.Context, quads ...graph.Quad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, q := range quads {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		q = graph.Quad{S: graph.Canonical(q.S), P: q.P, O: graph.Canonical(q.O), G: q.G}
		k := q.Key()
		if _, ok := d.quads[k]; ok {
			continue
		}
		e := &entry{q: q}
		d.quads[k] = e
		d.all.add(e)
		index(d.bySubj, k[0], e)
		index(d.byPred, k[1], e)
		index(d.byObj, k[2], e)
		if index(d.byGr, k[3], e) {
			d.graphs = append(d.graphs, k[3])
		}
	}
	return nil
}

// Remove deletes quads; absent quads are ignored.
func (d *Dataset) Remove(ctx context.Context, quads ...graph.Quad) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range quads {
		d.remove(graph.Quad{S: graph.Canonical(q.S), P: q.P, O: graph.Canonical(q.O), G: q.G}.Key())
	}
	return ctx.Err()
}

func (d *Dataset) remove(k [4]string) {
	e, ok := d.quads[k]
	if !ok {
		return
	}
	e.dead.Store(true)
	delete(d.quads, k)
	d.all.removed()
	unindex(d.bySubj, k[0])
	unindex(d.byPred, k[1])
	unindex(d.byObj, k[2])
	unindex(d.byGr, k[3])
	if _, used := d.byGr[k[3]]; !used {
		for i, g := range d.graphs {
			if g == k[3] {
				d.graphs = append(d.graphs[:i:i], d.graphs[i+1:]...)
				break
			}
		}
	}
}

// DropGraph removes every quad of g; nil is the default graph.
func (d *Dataset) DropGraph(ctx context.Context, g rdf.Term) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byGr[graph.FormatTerm(g)]
	if !ok {
		return ctx.Err()
	}
	var keys [][4]string
	for _, e := range p.entries {
		if !e.dead.Load() {
			keys = append(keys, e.q.Key())
		}
	}
	for _, k := range keys {
		d.remove(k)
	}
	return ctx.Err()
}

// Match calls fn for the quads matching p in insertion order. It stops as
// soon as fn returns false.
func (d *Dataset) Match(ctx context.Context, p graph.Pattern, fn func(graph.Quad) bool) error {
	d.mu.RLock()
	candidates := d.candidates(p)
	d.mu.RUnlock()

	deliver := fn
	if p.Kind == graph.InUnion {
		deliver = graph.UnionFilter(fn)
	}
	for i, e := range candidates {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if e.dead.Load() || !p.InScope(e.q) || !p.Matches(e.q) {
			continue
		}
		if !deliver(e.q) {
			return nil
		}
	}
	return nil
}

// candidates picks the smallest index for p. The returned slice is a
// snapshot; later inserts do not show in it.
func (d *Dataset) candidates(p graph.Pattern) []*entry {
	var best *posting
	consider := func(m map[string]*posting, t rdf.Term) {
		s, ok := m[graph.FormatTerm(t)]
		if !ok {
			s = &posting{}
		}
		if best == nil || s.live < best.live {
			best = s
		}
	}
	if p.S != nil {
		consider(d.bySubj, graph.Canonical(p.S))
	}
	if p.O != nil {
		consider(d.byObj, graph.Canonical(p.O))
	}
	if p.P != nil {
		consider(d.byPred, p.P)
	}
	switch p.Kind {
	case graph.InDefault:
		consider(d.byGr, nil)
	case graph.InGraph:
		consider(d.byGr, p.Name)
	}
	if best == nil {
		best = d.all
	}
	return best.entries[:len(best.entries):len(best.entries)]
}

// Graphs returns the names of the non-empty named graphs in order of first use.
func (d *Dataset) Graphs(ctx context.Context) ([]rdf.Term, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]rdf.Term, 0, len(d.graphs))
	for _, key := range d.graphs {
		if key == "" {
			continue
		}
		for _, e := range d.byGr[key].entries {
			if !e.dead.Load() {
				out = append(out, e.q.G)
				break
			}
		}
	}
	return out, ctx.Err()
}

// Len returns the number of distinct quads.
func (d *Dataset) Len(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.quads), ctx.Err()
}

var _ graph.Mutable = (*Dataset)(nil)
