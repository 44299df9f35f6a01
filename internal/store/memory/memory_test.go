package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/rdfendpoint/internal/graph"
)

func quad(s, o string, g rdf.Term) graph.Quad {
	return graph.Quad{S: graph.IRI("http://example.org/" + s), P: graph.IRI("http://example.org/p"), O: graph.Literal(o), G: g}
}

func objects(t *testing.T, ds *Dataset, p graph.Pattern) []string {
	t.Helper()
	var out []string
	require.NoError(t, ds.Match(context.Background(), p, func(q graph.Quad) bool {
		out = append(out, q.O.(rdf.Literal).Lexical)
		return true
	}))
	return out
}

func TestMatchKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	ds := New()
	require.NoError(t, ds.Add(ctx, quad("z", "1", nil), quad("a", "2", nil), quad("m", "3", nil), quad("a", "2", nil)))
	n, err := ds.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{"1", "2", "3"}, objects(t, ds, graph.Pattern{Kind: graph.InUnion}))

	require.NoError(t, ds.Remove(ctx, quad("a", "2", nil)))
	require.NoError(t, ds.Add(ctx, quad("a", "2", nil)))
	assert.Equal(t, []string{"1", "3", "2"}, objects(t, ds, graph.Pattern{Kind: graph.InUnion}))
	assert.Equal(t, []string{"2"}, objects(t, ds, graph.Pattern{S: graph.IRI("http://example.org/a"), Kind: graph.InUnion}))
}

func TestMatchStopsEarly(t *testing.T) {
	ctx := context.Background()
	ds := New()
	for i := 0; i < 100; i++ {
		require.NoError(t, ds.Add(ctx, quad(fmt.Sprint(i), fmt.Sprint(i), nil)))
	}
	calls := 0
	require.NoError(t, ds.Match(ctx, graph.Pattern{Kind: graph.InUnion}, func(graph.Quad) bool {
		calls++
		return calls < 3
	}))
	assert.Equal(t, 3, calls)
}

func TestRemoveCompactsPostings(t *testing.T) {
	ctx := context.Background()
	ds := New()
	var quads []graph.Quad
	for i := 0; i < 100; i++ {
		quads = append(quads, quad("s", fmt.Sprint(i), nil))
	}
	require.NoError(t, ds.Add(ctx, quads...))
	require.NoError(t, ds.Remove(ctx, quads[:90]...))

	assert.Less(t, len(ds.all.entries), 40)
	assert.Equal(t, 10, ds.all.live)
	got := objects(t, ds, graph.Pattern{S: graph.IRI("http://example.org/s"), Kind: graph.InUnion})
	assert.Equal(t, []string{"90", "91", "92", "93", "94", "95", "96", "97", "98", "99"}, got)
}

func TestSnapshotIgnoresLaterWrites(t *testing.T) {
	ctx := context.Background()
	ds := New()
	require.NoError(t, ds.Add(ctx, quad("a", "1", nil)))
	var seen []string
	require.NoError(t, ds.Match(ctx, graph.Pattern{Kind: graph.InUnion}, func(q graph.Quad) bool {
		seen = append(seen, q.O.(rdf.Literal).Lexical)
		require.NoError(t, ds.Add(ctx, quad("b", "2", nil)))
		return true
	}))
	assert.Equal(t, []string{"1"}, seen)
}

func TestGraphsInOrderOfFirstUse(t *testing.T) {
	ctx := context.Background()
	ds := New()
	g1, g2, g3 := graph.IRI("http://example.org/g1"), graph.IRI("http://example.org/g2"), graph.IRI("http://example.org/g3")
	require.NoError(t, ds.Add(ctx, quad("a", "1", g2), quad("a", "1", nil), quad("a", "2", g1), quad("b", "3", g2), quad("c", "4", g3)))

	gs, err := ds.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{g2, g1, g3}, gs)

	require.NoError(t, ds.DropGraph(ctx, g1))
	require.NoError(t, ds.Remove(ctx, quad("a", "1", g2)))
	gs, err = ds.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{g2, g3}, gs)

	assert.Equal(t, []string{"3"}, objects(t, ds, graph.Pattern{Kind: graph.InGraph, Name: g2}))
	assert.Equal(t, []string{"1"}, objects(t, ds, graph.Pattern{Kind: graph.InDefault}))

	require.NoError(t, ds.Add(ctx, quad("d", "5", g1)))
	gs, err = ds.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{g2, g3, g1}, gs)
}
