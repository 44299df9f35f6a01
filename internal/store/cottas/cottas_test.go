package cottas

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/geoknoesis/rdf-go/rdf"
	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
)

func sample() []graph.Quad {
	var quads []graph.Quad
	p := graph.IRI("http://example.org/p")
	for i := 0; i < 50; i++ {
		s := graph.IRI(fmt.Sprintf("http://example.org/s%02d", i))
		quads = append(quads,
			graph.Quad{S: s, P: p, O: graph.Literal(fmt.Sprintf("v%d", i))},
			graph.Quad{S: s, P: graph.IRI(graph.RDFType), O: graph.IRI("http://example.org/T")},
		)
	}
	quads = append(quads,
		graph.Quad{S: graph.Blank("b1"), P: p, O: graph.LangLiteral("hallo", "de"), G: graph.IRI("http://example.org/g")},
		graph.Quad{S: graph.IRI("http://example.org/s00"), P: p, O: graph.TypedLiteral("3", graph.XSDInteger)},
		graph.Quad{S: graph.IRI("http://example.org/s00"), P: p, O: graph.Literal("v0")}, // duplicate
	)
	return quads
}

func writeSample(t *testing.T, index string, rowGroup int64) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.cottas")
	n, err := WriteFile(context.Background(), path, sample(), WriteOptions{Index: index, RowGroupSize: rowGroup})
	require.NoError(t, err)
	assert.Equal(t, 102, n)

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTripPerIndex(t *testing.T) {
	ctx := context.Background()
	for _, index := range []string{"spo", "sop", "pso", "pos", "osp", "ops", "gspo"} {
		t.Run(index, func(t *testing.T) {
			s := writeSample(t, index, 16)
			assert.Equal(t, index, s.Index())

			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 102, n)

			all, err := graph.All(ctx, s)
			require.NoError(t, err)
			want := map[[4]string]bool{}
			for _, q := range sample() {
				want[q.Key()] = true
			}
			got := map[[4]string]bool{}
			for _, q := range all {
				got[q.Key()] = true
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestWriteSortsByIndex(t *testing.T) {
	s := writeSample(t, "pos", 0)
	var preds []string
	err := s.Match(context.Background(), graph.Pattern{Kind: graph.InDefault}, func(q graph.Quad) bool {
		preds = append(preds, graph.FormatTerm(q.P))
		return true
	})
	require.NoError(t, err)
	assert.IsNonDecreasing(t, preds)
}

func TestMatchBoundSubject(t *testing.T) {
	ctx := context.Background()
	s := writeSample(t, "spo", 8)

	got, err := graph.Collect(ctx, s, graph.Pattern{S: graph.IRI("http://example.org/s00"), Kind: graph.InUnion})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = graph.Collect(ctx, s, graph.Pattern{S: graph.IRI("http://example.org/missing")})
	require.NoError(t, err)
	assert.Empty(t, got)

	named, err := graph.Collect(ctx, s, graph.Pattern{Kind: graph.InGraph, Name: graph.IRI("http://example.org/g")})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, graph.LangLiteral("hallo", "de"), named[0].O)

	graphs, err := s.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{graph.IRI("http://example.org/g")}, graphs)
}

func TestAdmitsStatistics(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi string
		value  string
		want   bool
	}{
		{"inside", "<a>", "<c>", "<b>", true},
		{"below", "<b>", "<c>", "<a>", false},
		{"above", "<a>", "<b>", "<c>", false},
		{"truncated max", "<a>", "<http://ex", "<http://example.org/z>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := sampleChunks(tt.lo, tt.hi)
			assert.Equal(t, tt.want, admits(chunks, map[string][]byte{"s": []byte(tt.value)}))
		})
	}
}

func sampleChunks(lo, hi string) []format.ColumnChunk {
	return []format.ColumnChunk{{
		MetaData: format.ColumnMetaData{
			PathInSchema: []string{"s"},
			Statistics:   format.Statistics{MinValue: []byte(lo), MaxValue: []byte(hi)},
		},
	}}
}

func TestReadOnly(t *testing.T) {
	s := writeSample(t, "spo", 0)
	err := s.Add(context.Background(), graph.Quad{})
	assert.True(t, domain.IsReadOnly(err))
	assert.True(t, domain.IsReadOnly(s.DropGraph(context.Background(), nil)))
}

func TestWriteRejectsBadIndex(t *testing.T) {
	_, err := WriteFile(context.Background(), filepath.Join(t.TempDir(), "x.cottas"), sample(), WriteOptions{Index: "ssp"})
	assert.True(t, domain.IsUsage(err))
}
