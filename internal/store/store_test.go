package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/graph"
	"evalgo.org/rdfendpoint/internal/store/cottas"
	"evalgo.org/rdfendpoint/internal/store/memory"
)

const aTTL = `@prefix ex: <http://example.org/> .
ex:alice ex:knows ex:bob ;
    ex:name "Alice" .
ex:bob ex:name "Bob" .
`

const bTTL = `@prefix ex: <http://example.org/> .
ex:carol ex:name "Carol" .
_:b1 ex:name "anon" .
`

func writeFiles(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ttl")
	b := filepath.Join(dir, "b.ttl")
	require.NoError(t, os.WriteFile(a, []byte(aTTL), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(bTTL), 0o644))
	return a, b
}

func openBackend(t *testing.T, b domain.Backend) Store {
	t.Helper()
	s, err := NewRegistry().Open(context.Background(), domain.StoreConfig{Backend: b})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rows(t *testing.T, s Store, query string) []string {
	t.Helper()
	res, err := s.Query(context.Background(), query)
	require.NoError(t, err)
	var out []string
	for _, b := range res.Bindings {
		var parts []string
		for _, v := range res.Vars {
			parts = append(parts, graph.FormatTerm(b[v]))
		}
		out = append(out, strings.Join(parts, " "))
	}
	sort.Strings(out)
	return out
}

func TestBackendParity(t *testing.T) {
	ctx := context.Background()
	a, b := writeFiles(t)
	queries := []string{
		`SELECT ?s ?o WHERE { ?s <http://example.org/name> ?o }`,
		`SELECT ?x WHERE { <http://example.org/alice> <http://example.org/knows> ?y . ?y <http://example.org/name> ?x }`,
		`SELECT (COUNT(*) AS ?n) WHERE { ?s ?p ?o }`,
	}

	mem := openBackend(t, domain.BackendDefault)
	bad := openBackend(t, domain.BackendBadger)
	for _, s := range []Store{mem, bad} {
		require.NoError(t, s.Load(ctx, a))
		require.NoError(t, s.Load(ctx, b))
		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n, s.Backend().String())
	}
	for _, q := range queries {
		assert.Equal(t, rows(t, mem, q), rows(t, bad, q), q)
	}

	update := `PREFIX ex: <http://example.org/>
DELETE { ?s ex:name ?o } INSERT { ?s ex:label ?o } WHERE { ?s ex:name ?o FILTER(?o = "Bob") }`
	for _, s := range []Store{mem, bad} {
		require.NoError(t, s.Update(ctx, update))
	}
	assert.Equal(t, rows(t, mem, `SELECT ?s ?o WHERE { ?s <http://example.org/label> ?o }`),
		rows(t, bad, `SELECT ?s ?o WHERE { ?s <http://example.org/label> ?o }`))
}

func TestBlankNodesScopedPerFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	doc := "_:b1 <http://example.org/p> \"v\" .\n"
	for _, name := range []string{"x.nt", "y.nt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
	}
	s := openBackend(t, domain.BackendDefault)
	require.NoError(t, s.Load(ctx, filepath.Join(dir, "x.nt")))
	require.NoError(t, s.Load(ctx, filepath.Join(dir, "y.nt")))
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestConvertUnionToNTriples(t *testing.T) {
	ctx := context.Background()
	a, b := writeFiles(t)
	s := openBackend(t, domain.BackendDefault)
	require.NoError(t, s.Load(ctx, a))
	require.NoError(t, s.Load(ctx, a))
	require.NoError(t, s.Load(ctx, b))

	out := filepath.Join(t.TempDir(), "out.nt")
	require.NoError(t, WriteFile(ctx, s, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// a.ttl loaded twice collapses; the blank node of b.ttl stays one node
	assert.Len(t, lines, 5)
}

func TestTurtleRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, b := writeFiles(t)
	s := openBackend(t, domain.BackendDefault)
	require.NoError(t, s.Load(ctx, a))
	require.NoError(t, s.Load(ctx, b))

	out := filepath.Join(t.TempDir(), "round.ttl")
	require.NoError(t, WriteFile(ctx, s, out))

	again := openBackend(t, domain.BackendDefault)
	require.NoError(t, again.Load(ctx, out))
	n, err := again.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCottasStore(t *testing.T) {
	ctx := context.Background()
	a, _ := writeFiles(t)
	src := openBackend(t, domain.BackendDefault)
	require.NoError(t, src.Load(ctx, a))

	quads, err := graph.All(ctx, src.(*Local).Dataset())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "a.cottas")
	_, err = cottas.WriteFile(ctx, path, quads, cottas.WriteOptions{})
	require.NoError(t, err)

	s, err := OpenCottas(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, domain.BackendCottas, s.Backend())
	assert.Len(t, rows(t, s, `SELECT * WHERE { ?s ?p ?o }`), 3)
	assert.True(t, domain.IsReadOnly(s.Update(ctx, `CLEAR ALL`)))
	assert.True(t, domain.IsReadOnly(s.Load(ctx, a)))

	// a COTTAS input can also be merged into a writable store
	mem := NewLocal(domain.BackendDefault, memory.New(), nil, nil)
	require.NoError(t, mem.Load(ctx, path))
	n, err := mem.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRegistryUnknownBackend(t *testing.T) {
	_, err := NewRegistry().Open(context.Background(), domain.StoreConfig{Backend: domain.BackendCottas})
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
