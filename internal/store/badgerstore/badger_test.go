package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/rdfendpoint/internal/graph"
)

func openTest(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKeyRoundTrip(t *testing.T) {
	k := [4]string{"<http://example.org/s>", "<http://example.org/p>", "\"a\\u0000b\"", ""}
	for _, idx := range []byte{idxSPOG, idxPOSG, idxOSPG, idxGSPO} {
		got, err := decodeKey(encodeKey(idx, k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := decodeKey([]byte{idxSPOG, 0x7f})
	assert.Error(t, err)
}

func TestStoreMatchAndGraphs(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, "")

	a, p, b := graph.IRI("http://example.org/a"), graph.IRI("http://example.org/p"), graph.IRI("http://example.org/b")
	g := graph.IRI("http://example.org/g")
	quads := []graph.Quad{
		{S: a, P: p, O: b},
		{S: a, P: p, O: graph.Literal("x")},
		{S: b, P: p, O: a, G: g},
		{S: a, P: p, O: b, G: g},
	}
	require.NoError(t, s.Add(ctx, quads...))
	require.NoError(t, s.Add(ctx, quads[0]))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	def, err := graph.Collect(ctx, s, graph.Pattern{S: a, Kind: graph.InDefault})
	require.NoError(t, err)
	assert.Len(t, def, 2)

	union, err := graph.Collect(ctx, s, graph.Pattern{P: p, O: b, Kind: graph.InUnion})
	require.NoError(t, err)
	require.Len(t, union, 1)
	assert.Nil(t, union[0].G)

	named, err := graph.Collect(ctx, s, graph.Pattern{Kind: graph.InGraph, Name: g})
	require.NoError(t, err)
	assert.Len(t, named, 2)

	gs, err := s.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://example.org/g>"}, []string{graph.FormatTerm(gs[0])})

	require.NoError(t, s.DropGraph(ctx, g))
	gs, err = s.Graphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, gs)

	require.NoError(t, s.Remove(ctx, quads[1]))
	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	q := graph.Quad{S: graph.IRI("http://example.org/s"), P: graph.IRI("http://example.org/p"), O: graph.LangLiteral("hi", "en")}
	require.NoError(t, s.Add(ctx, q))
	require.NoError(t, s.Close())

	s = openTest(t, dir)
	got, err := graph.Collect(ctx, s, graph.Pattern{Kind: graph.InUnion})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, graph.Equal(q.O, got[0].O))
}
